package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// JSONLD extracts schema.org Event objects from embedded
// application/ld+json script blocks.
type JSONLD struct{}

// NewJSONLD creates the structured-data strategy.
func NewJSONLD() *JSONLD {
	return &JSONLD{}
}

// Name identifies the strategy in logs and preview responses.
func (*JSONLD) Name() string { return "jsonld" }

// Extract returns one candidate per Event object found in the page's JSON-LD
// blocks. Malformed blocks are skipped silently; malformed pages return no
// candidates rather than an error.
func (*JSONLD) Extract(_ context.Context, html string) ([]event.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []event.Candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		txt := strings.TrimSpace(sel.Text())
		if txt == "" {
			return
		}
		var parsed any
		if err := json.Unmarshal([]byte(txt), &parsed); err != nil {
			return
		}
		for _, obj := range graphObjects(parsed) {
			if cand, ok := eventCandidate(obj); ok {
				out = append(out, cand)
			}
		}
	})
	return out, nil
}

// graphObjects flattens a JSON-LD payload: a top-level array, an @graph
// container, or a single object.
func graphObjects(parsed any) []map[string]any {
	var raw []any
	switch v := parsed.(type) {
	case []any:
		raw = v
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			raw = graph
		} else {
			raw = []any{v}
		}
	}
	objs := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			objs = append(objs, m)
		}
	}
	return objs
}

func eventCandidate(obj map[string]any) (event.Candidate, bool) {
	if !hasEventType(obj["@type"]) {
		return event.Candidate{}, false
	}

	startDate := asString(obj["startDate"])
	perfTime := ""
	if i := strings.IndexByte(startDate, 'T'); i >= 0 {
		perfTime = startDate[i+1:]
	}

	return event.Candidate{
		Tour:        tourName(obj),
		Place:       locationName(obj["location"]),
		Date:        startDate,
		Performance: perfTime,
		Artist:      performerNames(obj["performer"]),
	}, true
}

func hasEventType(t any) bool {
	for _, v := range asList(t) {
		if strings.EqualFold(asString(v), "event") {
			return true
		}
	}
	return false
}

// performerNames joins the names of a performer list with ", "; a single
// performer object contributes its name alone.
func performerNames(p any) string {
	switch v := p.(type) {
	case []any:
		var names []string
		for _, item := range v {
			if name := nameOf(item); name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, ", ")
	default:
		return nameOf(p)
	}
}

func locationName(loc any) string {
	if list, ok := loc.([]any); ok {
		if len(list) == 0 {
			return ""
		}
		return nameOf(list[0])
	}
	return nameOf(loc)
}

func tourName(obj map[string]any) string {
	if name := nameOf(obj["superEvent"]); name != "" {
		return name
	}
	if name := nameOf(obj["isPartOf"]); name != "" {
		return name
	}
	return asString(obj["name"])
}

func nameOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		return asString(m["name"])
	}
	return ""
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
