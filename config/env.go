package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment variable the CLI reads.
const EnvPrefix = "BOOKSCRAPE_"

// EnvString returns the trimmed value of name, if set and non-empty.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses name as a base-10 integer.
func EnvInt(name string) (int, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	return n, true, nil
}

// EnvDuration parses name with time.ParseDuration.
func EnvDuration(name string) (time.Duration, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	return d, true, nil
}

// ApplyEnv overrides cfg fields from BOOKSCRAPE_* variables.
func ApplyEnv(cfg *Config) error {
	if v, ok := EnvString("BASE_URL"); ok {
		cfg.BaseURL = v
	}
	for name, dst := range map[string]*int{
		"START_PAGE":   &cfg.StartPage,
		"END_PAGE":     &cfg.EndPage,
		"MAX_ATTEMPTS": &cfg.MaxAttempts,
	} {
		v, ok, err := EnvInt(name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}
	for name, dst := range map[string]*time.Duration{
		"MIN_DELAY":      &cfg.MinDelay,
		"MAX_DELAY":      &cfg.MaxDelay,
		"TIMEOUT":        &cfg.Timeout,
		"BACKOFF_FACTOR": &cfg.BackoffFactor,
	} {
		v, ok, err := EnvDuration(name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}
	for name, dst := range map[string]*string{
		"OUTPUT":       &cfg.OutputFile,
		"SHEET_NAME":   &cfg.SheetName,
		"CREDENTIALS":  &cfg.CredentialsFile,
		"SHARE_WITH":   &cfg.ShareWith,
		"METRICS_ADDR": &cfg.MetricsAddr,
		"USER_AGENT":   &cfg.UserAgent,
	} {
		if v, ok := EnvString(name); ok {
			*dst = v
		}
	}
	return nil
}
