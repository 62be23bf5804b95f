// Package dedupe derives canonical event identities and collapses duplicate
// records within a batch.
package dedupe

import (
	"crypto/sha1" //nolint:gosec // dedup token, not a security boundary
	"encoding/hex"
	"strings"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// checksumLen is the number of hex characters kept from the digest. Twelve
// characters keep collisions below operational tolerance while staying short
// enough for an indexed column.
const checksumLen = 12

// EventKey returns the canonical identity for "the same event mentioned
// twice": the lower-cased, pipe-joined artist|tour|place|date|performance.
func EventKey(r event.Record) string {
	key := strings.Join([]string{r.Artist, r.Tour, r.Place, r.Date, r.Performance}, "|")
	return strings.ToLower(key)
}

// Checksum returns a deterministic short digest of an event key.
func Checksum(key string) string {
	sum := sha1.Sum([]byte(key)) //nolint:gosec // see package comment
	return hex.EncodeToString(sum[:])[:checksumLen]
}

// Collapse drops in-batch duplicates, keeping the first record per distinct
// key. Insertion order wins deliberately: the first strategy to emit a
// candidate is treated as higher-confidence.
func Collapse(records []event.Record) []event.DedupedRecord {
	seen := make(map[string]bool, len(records))
	out := make([]event.DedupedRecord, 0, len(records))
	for _, r := range records {
		key := EventKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, event.DedupedRecord{Record: r, Checksum: Checksum(key)})
	}
	return out
}
