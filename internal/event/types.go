// Package event defines core types shared across the ingestion pipeline.
package event

import "time"

// Candidate is an unverified event guess produced by a single extraction
// strategy. Every field is optional free text and may be malformed; the
// normalizer is responsible for turning it into something storable.
type Candidate struct {
	Tour        string `json:"tour"`
	Place       string `json:"place"`
	Date        string `json:"date"`
	Performance string `json:"performance"`
	Artist      string `json:"artist"`
}

// Record is a Candidate after date/time normalization and range filling.
// Text fields are empty strings rather than nulls at this stage; Date is
// YYYY-MM-DD or empty, Performance is zero-padded HH:MM or empty.
type Record struct {
	Tour           string `json:"tour"`
	TourStartDate  string `json:"tour_start_date"`
	TourEndDate    string `json:"tour_end_date"`
	Place          string `json:"place"`
	PlaceStartDate string `json:"place_start_date"`
	PlaceEndDate   string `json:"place_end_date"`
	Date           string `json:"date"`
	Performance    string `json:"performance"`
	Artist         string `json:"artist"`
	SourceURL      string `json:"source_url"`
}

// DedupedRecord is a Record plus the short content checksum used as the
// storage-level dedup token. The canonical key itself is derived on demand
// and never persisted.
type DedupedRecord struct {
	Record
	Checksum string `json:"checksum"`
}

// RunStatus is the terminal status recorded for a crawl of one source.
type RunStatus string

// Status values persisted in url_sources.
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// SourceStatus tracks when a source URL was last crawled and how it went.
type SourceStatus struct {
	SourceURL     string    `json:"source_url"`
	LastCrawledAt time.Time `json:"last_crawled_at"`
	LastStatus    RunStatus `json:"last_status"`
}

// Page is the result of rendering a source URL: the fully rendered HTML and
// the URL the browser ended up on after redirects.
type Page struct {
	HTML     string
	FinalURL string
}

// RunSummary is published after a pipeline run completes.
type RunSummary struct {
	SourceURL  string    `json:"source_url"`
	Written    int       `json:"written"`
	Skipped    int       `json:"skipped"`
	FinishedAt time.Time `json:"finished_at"`
}
