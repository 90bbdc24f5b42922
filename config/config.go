package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL      string
	PageTemplate string // path appended to BaseURL, {n} is the page number
	StartPage    int
	EndPage      int
	StopOnEmpty  bool

	MinDelay time.Duration
	MaxDelay time.Duration

	Timeout           time.Duration
	MaxAttempts       int
	BackoffFactor     time.Duration
	BackoffMax        time.Duration // 0 disables the cap
	RetryableStatuses []int
	UserAgent         string
	RespectRobotsTxt  bool

	Sink            string // csv, json, dual, or sheets
	OutputFile      string
	SheetName       string
	CredentialsFile string
	ShareWith       string

	Verbose     bool
	MetricsAddr string
}

// DefaultConfig returns the defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://books.toscrape.com",
		PageTemplate:      "/catalogue/page-{n}.html",
		StartPage:         1,
		EndPage:           5,
		MinDelay:          1500 * time.Millisecond,
		MaxDelay:          3500 * time.Millisecond,
		Timeout:           30 * time.Second,
		MaxAttempts:       6,
		BackoffFactor:     time.Second,
		BackoffMax:        0,
		RetryableStatuses: []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		RespectRobotsTxt:  false,
		Sink:              "csv",
		OutputFile:        "books.csv",
		SheetName:         "scraped_data",
		CredentialsFile:   "google_creds.json",
	}
}

// PageURL builds the absolute URL of catalogue page n.
func (c *Config) PageURL(n int) string {
	path := strings.ReplaceAll(c.PageTemplate, "{n}", strconv.Itoa(n))
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if !strings.Contains(c.PageTemplate, "{n}") {
		return fmt.Errorf("page template must contain {n}")
	}

	if c.StartPage <= 0 {
		return fmt.Errorf("start page must be positive")
	}
	if c.EndPage <= 0 {
		return fmt.Errorf("end page must be positive")
	}
	if c.StartPage > c.EndPage {
		return fmt.Errorf("start page (%d) cannot exceed end page (%d)", c.StartPage, c.EndPage)
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min delay cannot be negative")
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max delay (%s) cannot be below min delay (%s)", c.MaxDelay, c.MinDelay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.BackoffFactor < 0 {
		return fmt.Errorf("backoff factor cannot be negative")
	}
	if c.BackoffMax < 0 {
		return fmt.Errorf("backoff max cannot be negative")
	}
	for _, s := range c.RetryableStatuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("retryable status %d is not an HTTP status code", s)
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	switch c.Sink {
	case "csv", "json", "dual":
		if c.OutputFile == "" {
			return fmt.Errorf("output file cannot be empty")
		}
	case "sheets":
		if c.SheetName == "" {
			return fmt.Errorf("sheet name cannot be empty")
		}
		if c.CredentialsFile == "" {
			return fmt.Errorf("credentials file cannot be empty")
		}
	default:
		return fmt.Errorf("sink must be csv, json, dual, or sheets")
	}

	return nil
}
