package extract

import (
	"context"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// ICS extracts one candidate per VEVENT from an iCalendar payload.
type ICS struct{}

// NewICS creates the calendar-feed strategy.
func NewICS() *ICS {
	return &ICS{}
}

// Name identifies the strategy in logs and preview responses.
func (*ICS) Name() string { return "ics" }

// Extract parses the payload as iCalendar. Non-calendar payloads (the chain
// feeds every page through here) yield no candidates.
func (*ICS) Extract(_ context.Context, payload string) ([]event.Candidate, error) {
	if !strings.Contains(payload, "BEGIN:VCALENDAR") {
		return nil, nil
	}
	cal, err := ics.ParseCalendar(strings.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var out []event.Candidate
	for _, ev := range cal.Events() {
		date := ""
		if start, err := ev.GetStartAt(); err == nil {
			date = start.UTC().Format(time.RFC3339)
		}
		out = append(out, event.Candidate{
			Tour:  propValue(ev, ics.ComponentPropertySummary),
			Place: propValue(ev, ics.ComponentPropertyLocation),
			Date:  date,
		})
	}
	return out, nil
}

func propValue(ev *ics.VEvent, name ics.ComponentProperty) string {
	if p := ev.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}
