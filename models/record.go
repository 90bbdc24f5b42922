// Package models defines data structures for the scraper.
package models

import "time"

// Record is one catalogue item as displayed on a listing page.
// Two records are duplicates when every field is equal.
type Record struct {
	Name         string `csv:"Name" json:"Name"`
	Price        string `csv:"Price" json:"Price"`
	Availability string `csv:"Availability" json:"Availability"`
}

// Header returns the column names used by tabular sinks.
func Header() []string {
	return []string{"Name", "Price", "Availability"}
}

// Row returns the record's fields in Header order.
func (r Record) Row() []string {
	return []string{r.Name, r.Price, r.Availability}
}

// RunResult holds the overall result of a paging run.
type RunResult struct {
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	RequestCount int
	RetryCount   int
	ErrorCount   int
	RecordCount  int
	InvalidCount int
	FailedURLs   []string
	ErrorsByType map[string]int
}
