package domain

import "time"

// ImportStats holds statistics about one import run.
type ImportStats struct {
	Resource    string
	Fetched     int
	Imported    int
	Updated     int
	Unchanged   int
	Errors      int
	Published   int
	FetchFailed bool
	Duration    time.Duration
}
