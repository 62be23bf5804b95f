// Package normalize converts the free text found on event pages into ISO
// dates and 24-hour performance times, and derives tour/venue date ranges
// across a batch.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	parensRe     = regexp.MustCompile(`[（）()]`)

	// Japanese long form: 2025年10月14日. A bare 4-digit year is not a date.
	jpDateRe  = regexp.MustCompile(`(20\d{2})年(\d{1,2})月(\d{1,2})日?`)
	sepDateRe = regexp.MustCompile(`(20\d{2})[/.\-](\d{1,2})[/.\-](\d{1,2})`)

	// 開演 is the doors-open/curtain label on Japanese concert pages. The
	// colon is optional there (開演1800 appears in the wild).
	kaienTimeRe = regexp.MustCompile(`開演(\d{1,2}):?(\d{2})`)
	clockTimeRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	hourOnlyRe  = regexp.MustCompile(`(\d{1,2})時`)
)

// ToIsoDate extracts a date from free text and returns it as YYYY-MM-DD,
// or "" if no full Y-M-D date is present. It never guesses partial dates.
func ToIsoDate(text string) string {
	if text == "" {
		return ""
	}
	t := whitespaceRe.ReplaceAllString(text, "")
	t = parensRe.ReplaceAllString(t, "")
	t = strings.NewReplacer("．", ".", "。", ".", "：", ":").Replace(t)

	if m := jpDateRe.FindStringSubmatch(t); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
	}
	if m := sepDateRe.FindStringSubmatch(t); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
	}
	return ""
}

// ToPerformanceTime extracts a start time from free text and returns it as
// zero-padded 24-hour HH:MM, or "" if nothing time-like is present.
func ToPerformanceTime(text string) string {
	if text == "" {
		return ""
	}
	t := whitespaceRe.ReplaceAllString(text, "")
	t = strings.ReplaceAll(t, "：", ":")

	if m := kaienTimeRe.FindStringSubmatch(t); m != nil {
		return pad2(m[1]) + ":" + pad2(m[2])
	}
	if m := clockTimeRe.FindStringSubmatch(t); m != nil {
		return pad2(m[1]) + ":" + pad2(m[2])
	}
	if m := hourOnlyRe.FindStringSubmatch(t); m != nil {
		return pad2(m[1]) + ":00"
	}
	return ""
}

// FillRanges assigns tour_start/end and place_start/end to every record from
// the min/max of the non-empty dates in its tour group and place group.
// Records with no place of their own share the empty-string place group.
// Lexicographic ordering is valid because dates are zero-padded ISO strings.
func FillRanges(records []event.Record) []event.Record {
	byTour := map[string][]string{}
	byPlace := map[string][]string{}
	for _, r := range records {
		if r.Date == "" {
			continue
		}
		byTour[r.Tour] = append(byTour[r.Tour], r.Date)
		byPlace[r.Place] = append(byPlace[r.Place], r.Date)
	}
	for k := range byTour {
		sort.Strings(byTour[k])
	}
	for k := range byPlace {
		sort.Strings(byPlace[k])
	}
	for i := range records {
		if dates := byTour[records[i].Tour]; len(dates) > 0 {
			records[i].TourStartDate = dates[0]
			records[i].TourEndDate = dates[len(dates)-1]
		} else {
			records[i].TourStartDate = ""
			records[i].TourEndDate = ""
		}
		if dates := byPlace[records[i].Place]; len(dates) > 0 {
			records[i].PlaceStartDate = dates[0]
			records[i].PlaceEndDate = dates[len(dates)-1]
		} else {
			records[i].PlaceStartDate = ""
			records[i].PlaceEndDate = ""
		}
	}
	return records
}

// FromCandidates turns raw extraction candidates into normalized records for
// the given source and fills the derived date ranges. Candidate dates that
// carry a time component (ISO datetimes from structured data or calendar
// feeds) are cut at the T; performance values longer than HH:MM are
// truncated to five runes.
func FromCandidates(cands []event.Candidate, sourceURL string) []event.Record {
	records := make([]event.Record, 0, len(cands))
	for _, c := range cands {
		records = append(records, event.Record{
			Tour:        strings.TrimSpace(c.Tour),
			Place:       strings.TrimSpace(c.Place),
			Date:        dateOnly(c.Date),
			Performance: truncRunes(c.Performance, 5),
			Artist:      strings.TrimSpace(c.Artist),
			SourceURL:   sourceURL,
		})
	}
	return FillRanges(records)
}

func dateOnly(d string) string {
	if d == "" {
		return ""
	}
	if i := strings.IndexByte(d, 'T'); i >= 0 {
		return d[:i]
	}
	return d
}

func truncRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

func pad2(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("%02d", n)
	}
	return s
}
