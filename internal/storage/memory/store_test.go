package memory

import (
	"context"
	"testing"
	"time"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

func TestUpsertEventOverwritesByKey(t *testing.T) {
	t.Parallel()

	s := NewStore()
	rec := event.DedupedRecord{
		Record:   event.Record{Artist: "A", Tour: "T", Place: "P", Date: "2025-10-14", Performance: "18:00", SourceURL: "https://a.example"},
		Checksum: "sum1",
	}
	if err := s.UpsertEvent(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	updated := rec
	updated.SourceURL = "https://b.example"
	updated.Checksum = "sum2"
	if err := s.UpsertEvent(context.Background(), updated); err != nil {
		t.Fatal(err)
	}

	events := s.Events()
	if len(events) != 1 {
		t.Fatalf("same identity should overwrite, got %d records", len(events))
	}
	if events[0].SourceURL != "https://b.example" {
		t.Errorf("latest write should win, got %q", events[0].SourceURL)
	}
}

func TestExistingChecksums(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_ = s.UpsertEvent(context.Background(), event.DedupedRecord{
		Record:   event.Record{Artist: "A", Date: "2025-10-14"},
		Checksum: "stored",
	})

	existing, err := s.ExistingChecksums(context.Background(), []string{"stored", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if !existing["stored"] || existing["missing"] {
		t.Errorf("unexpected result: %v", existing)
	}
}

func TestSourceStatusRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if _, err := s.GetSource(context.Background(), "https://example.com/"); err != event.ErrSourceUnknown {
		t.Fatalf("unknown source should return ErrSourceUnknown, got %v", err)
	}

	status := event.SourceStatus{
		SourceURL:     "https://example.com/",
		LastCrawledAt: time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC),
		LastStatus:    event.RunStatusSuccess,
	}
	if err := s.TouchSource(context.Background(), status); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSource(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if got != status {
		t.Errorf("got %+v, want %+v", got, status)
	}
}
