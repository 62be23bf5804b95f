package event

import (
	"context"
	"time"
)

// Renderer retrieves the fully rendered HTML for a URL.
type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
}

// EventStore persists deduplicated event records.
type EventStore interface {
	// UpsertEvent writes one record keyed by the
	// (artist, tour, place, date, performance) uniqueness constraint.
	UpsertEvent(ctx context.Context, rec DedupedRecord) error
	// ExistingChecksums reports which of the given checksums are already
	// stored.
	ExistingChecksums(ctx context.Context, checksums []string) (map[string]bool, error)
}

// SourceStore persists per-source crawl status.
type SourceStore interface {
	GetSource(ctx context.Context, sourceURL string) (SourceStatus, error)
	TouchSource(ctx context.Context, status SourceStatus) error
}

// ErrSourceUnknown is returned by SourceStore.GetSource when the source URL
// has never been recorded. A first crawl is never in cooldown.
var ErrSourceUnknown = errSourceUnknown{}

type errSourceUnknown struct{}

func (errSourceUnknown) Error() string { return "source url not recorded" }

// BlobStore archives raw artifacts such as rendered HTML snapshots.
type BlobStore interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// Publisher pushes run summaries to a notification topic.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}
