// Package memory provides in-memory store implementations for tests and
// local development.
package memory

import (
	"context"
	"sync"

	"github.com/LBtakeuti/fanfan-worker/internal/dedupe"
	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// Store implements event.EventStore and event.SourceStore in process memory.
type Store struct {
	mu      sync.Mutex
	events  map[string]event.DedupedRecord // keyed by the 5-tuple event key
	sources map[string]event.SourceStatus
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		events:  make(map[string]event.DedupedRecord),
		sources: make(map[string]event.SourceStatus),
	}
}

// UpsertEvent writes one record keyed by the natural uniqueness constraint.
func (s *Store) UpsertEvent(_ context.Context, rec event.DedupedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[dedupe.EventKey(rec.Record)] = rec
	return nil
}

// ExistingChecksums reports which of the given checksums are already stored.
func (s *Store) ExistingChecksums(_ context.Context, checksums []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(map[string]bool, len(s.events))
	for _, rec := range s.events {
		stored[rec.Checksum] = true
	}
	existing := make(map[string]bool, len(checksums))
	for _, sum := range checksums {
		if stored[sum] {
			existing[sum] = true
		}
	}
	return existing, nil
}

// GetSource loads the crawl status for a source URL.
func (s *Store) GetSource(_ context.Context, sourceURL string) (event.SourceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.sources[sourceURL]
	if !ok {
		return event.SourceStatus{}, event.ErrSourceUnknown
	}
	return status, nil
}

// TouchSource records the outcome of a crawl attempt for a source URL.
func (s *Store) TouchSource(_ context.Context, status event.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[status.SourceURL] = status
	return nil
}

// Events returns a snapshot of the stored records (tests).
func (s *Store) Events() []event.DedupedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DedupedRecord, 0, len(s.events))
	for _, rec := range s.events {
		out = append(out, rec)
	}
	return out
}
