// Package seeding generates synthetic scraped listings, loads them into a
// running offers API and checks the ordering of the ranked and trending views.
package seeding

import "time"

// Config holds the settings of one seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Documents  int           // Number of documents to generate
	BatchSize  int           // Documents per POST
	Workers    int           // Concurrent submitters
	Days       int           // Extraction dates are spread over this many days
	Limit      int           // limit used when fetching ranked and trending offers
	Timeout    time.Duration // HTTP request timeout
	Wait       time.Duration // How long to wait for documents to be stored
	Seed       uint64        // Random seed; runs with the same seed generate the same catalogue
	OutputFile string        // Where generated documents are written; empty skips it
	Verbose    bool
}

// Stats summarizes a run.
type Stats struct {
	Generated  int
	Batches    int
	Accepted   int
	Duplicates int
	Rejected   int
	Failed     int
	Throttled  int
	Ranked     int
	Trending   int
	StartTime  time.Time
	Duration   time.Duration
}

// ingestResponse mirrors the body of a 202 from POST /api/archivos.
type ingestResponse struct {
	Accepted   int      `json:"accepted"`
	IDs        []string `json:"ids"`
	Duplicates int      `json:"duplicates"`
	Rejected   []struct {
		Index  int    `json:"index"`
		Reason string `json:"reason"`
	} `json:"rejected"`
}

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
