package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithDB(mock), mock
}

func TestUpsertEvent(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	rec := event.DedupedRecord{
		Record: event.Record{
			Tour:           "Tour X",
			TourStartDate:  "2025-11-01",
			TourEndDate:    "2025-11-03",
			Place:          "Hall Z",
			PlaceStartDate: "2025-11-01",
			PlaceEndDate:   "2025-11-01",
			Date:           "2025-11-01",
			Performance:    "18:30",
			Artist:         "Artist Y",
			SourceURL:      "https://example.com/live",
		},
		Checksum: "abc123def456",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(
			"Tour X", "2025-11-01", "2025-11-03",
			"Hall Z", "2025-11-01", "2025-11-01",
			"2025-11-01", "18:30", "Artist Y",
			"https://example.com/live", "abc123def456",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertEvent(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEventNullsEmptyFields(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	rec := event.DedupedRecord{
		Record:   event.Record{Tour: "Tour X", Artist: "Artist Y", SourceURL: "https://example.com/live"},
		Checksum: "abc123def456",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(
			"Tour X", nil, nil,
			"", nil, nil,
			nil, nil, "Artist Y",
			"https://example.com/live", "abc123def456",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertEvent(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEventError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.UpsertEvent(context.Background(), event.DedupedRecord{})
	assert.ErrorContains(t, err, "upsert event")
}

func TestExistingChecksums(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	sums := []string{"aaa", "bbb", "ccc"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT checksum FROM events WHERE checksum = ANY($1)")).
		WithArgs(sums).
		WillReturnRows(pgxmock.NewRows([]string{"checksum"}).AddRow("aaa").AddRow("ccc"))

	existing, err := store.ExistingChecksums(context.Background(), sums)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"aaa": true, "ccc": true}, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingChecksumsEmptyInput(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	existing, err := store.ExistingChecksums(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, existing, "no query issued for an empty batch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSource(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	crawledAt := time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT source_url, last_crawled_at, last_status FROM url_sources")).
		WithArgs("https://example.com/live").
		WillReturnRows(pgxmock.NewRows([]string{"source_url", "last_crawled_at", "last_status"}).
			AddRow("https://example.com/live", crawledAt, event.RunStatusSuccess))

	status, err := store.GetSource(context.Background(), "https://example.com/live")
	require.NoError(t, err)
	assert.Equal(t, event.RunStatusSuccess, status.LastStatus)
	assert.Equal(t, crawledAt, status.LastCrawledAt)
}

func TestGetSourceUnknown(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT source_url, last_crawled_at, last_status FROM url_sources")).
		WithArgs("https://example.com/new").
		WillReturnRows(pgxmock.NewRows([]string{"source_url", "last_crawled_at", "last_status"}))

	_, err := store.GetSource(context.Background(), "https://example.com/new")
	assert.ErrorIs(t, err, event.ErrSourceUnknown)
}

func TestTouchSource(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	crawledAt := time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO url_sources")).
		WithArgs("https://example.com/live", crawledAt, "failed").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.TouchSource(context.Background(), event.SourceStatus{
		SourceURL:     "https://example.com/live",
		LastCrawledAt: crawledAt,
		LastStatus:    event.RunStatusFailed,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
