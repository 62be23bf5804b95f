package extract

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
	"github.com/LBtakeuti/fanfan-worker/internal/normalize"
)

// Feed extracts candidates from RSS/Atom payloads. Dates and times are
// parsed out of each item's title and description, and the venue is taken
// from the first line of that text carrying a venue label or suffix.
type Feed struct {
	heuristic *Heuristic
}

// NewFeed creates the syndication-feed strategy. It shares the heuristic's
// venue-suffix list.
func NewFeed(h *Heuristic) *Feed {
	return &Feed{heuristic: h}
}

// Name identifies the strategy in logs and preview responses.
func (*Feed) Name() string { return "feed" }

// Extract parses the payload as RSS or Atom; anything else yields no
// candidates.
func (f *Feed) Extract(_ context.Context, payload string) ([]event.Candidate, error) {
	if htmlish(payload) {
		return nil, nil
	}
	feed, err := gofeed.NewParser().ParseString(payload)
	if err != nil {
		return nil, err
	}

	out := make([]event.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		text := item.Title + "\n" + item.Description
		out = append(out, event.Candidate{
			Tour:        item.Title,
			Place:       f.heuristic.VenueFromText(text),
			Date:        normalize.ToIsoDate(text),
			Performance: normalize.ToPerformanceTime(text),
		})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// htmlish skips obvious HTML pages before handing the payload to the feed
// parser.
func htmlish(payload string) bool {
	head := strings.ToLower(payload)
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}
