package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
	"github.com/LBtakeuti/fanfan-worker/internal/normalize"
)

// The token lists below are hand-tuned for Japanese-language event pages.
// They are data, not algorithm: deployments targeting a different corpus
// override them through Options / config without touching this code. Each
// entry is a regexp alternative, so multi-word tokens may carry their own
// pattern syntax.
var (
	defaultVenueSuffixes = []string{
		"ホール", "ドーム", "スタジアム", "劇場", "会館", "シアター", "アリーナ",
		"フォーラム", "センター", "パシフィコ", "Zepp", "GARDEN", "EX THEATER",
		"BIGCAT", "サンプラザ", "クラブクアトロ",
	}
	defaultVenueLabels = []string{"会場", "venue", "開催場所"}
	defaultNoiseWords  = []string{
		"day", `open\s*/\s*start`, "open", "start", "area", "venue", "info",
		"schedule", "topics",
	}
)

// contentSelectors are the containers mined for visible text, in priority
// order; the whole body is the fallback.
var contentSelectors = []string{"main", "article", "section", ".content", ".post", ".entry", ".detail"}

// venueWindow is how many lines around a dated line are searched for a venue.
const venueWindow = 6

var (
	spaceRe       = regexp.MustCompile(`\s+`)
	parenRe       = regexp.MustCompile(`[（）()]`)
	cornerNoteRe  = regexp.MustCompile(`【.*?】`)
	bracketNoteRe = regexp.MustCompile(`\[.*?\]`)
	tourWordRe    = regexp.MustCompile(`(?i)tour|ツアー`)
	labelStripRe  = regexp.MustCompile(`[:：は\-]`)
)

// Options overrides the tuned token lists; nil slices keep the defaults.
type Options struct {
	VenueSuffixes []string
	VenueLabels   []string
	NoiseWords    []string
}

func (o Options) venueRe() *regexp.Regexp {
	return alternativesRe(o.VenueSuffixes, defaultVenueSuffixes, false)
}

func (o Options) labelRe() *regexp.Regexp {
	return alternativesRe(o.VenueLabels, defaultVenueLabels, false)
}

func (o Options) noiseRe() *regexp.Regexp {
	return alternativesRe(o.NoiseWords, defaultNoiseWords, true)
}

func alternativesRe(tokens, fallback []string, anchored bool) *regexp.Regexp {
	if len(tokens) == 0 {
		tokens = fallback
	}
	alt := strings.Join(tokens, "|")
	if anchored {
		return regexp.MustCompile(`(?i)^(` + alt + `)$`)
	}
	return regexp.MustCompile(`(?i)(` + alt + `)`)
}

// Heuristic mines visible page text line by line: every line that parses to
// a date becomes a candidate, with the performance time and venue searched
// in a small window around it.
type Heuristic struct {
	venueRe *regexp.Regexp
	labelRe *regexp.Regexp
	noiseRe *regexp.Regexp
}

// NewHeuristic creates the HTML-heuristic strategy.
func NewHeuristic(opts Options) *Heuristic {
	return &Heuristic{
		venueRe: opts.venueRe(),
		labelRe: opts.labelRe(),
		noiseRe: opts.noiseRe(),
	}
}

// Name identifies the strategy in logs and preview responses.
func (*Heuristic) Name() string { return "heuristic" }

// Extract scans the page's content containers for dated lines.
func (h *Heuristic) Extract(_ context.Context, html string) ([]event.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	lines := visibleLines(doc)
	tour := guessTour(doc)
	artist := guessArtist(doc)

	var out []event.Candidate
	for i, raw := range lines {
		line := sanitizeLine(raw)
		dateIso := normalize.ToIsoDate(line)
		if dateIso == "" {
			continue
		}
		perf := normalize.ToPerformanceTime(line)
		if perf == "" && i+1 < len(lines) {
			perf = normalize.ToPerformanceTime(lines[i+1])
		}
		if perf == "" && i+2 < len(lines) {
			perf = normalize.ToPerformanceTime(lines[i+2])
		}
		out = append(out, event.Candidate{
			Tour:        tour,
			Place:       h.findVenueNear(lines, i),
			Date:        dateIso,
			Performance: perf,
			Artist:      artist,
		})
	}
	return out, nil
}

// VenueFromText returns the first line of plain text carrying a venue label
// or suffix. Shared with the feed strategy.
func (h *Heuristic) VenueFromText(text string) string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	for i := range lines {
		if v, ok := h.venueFromLine(lines, i); ok {
			return v
		}
	}
	return ""
}

func visibleLines(doc *goquery.Document) []string {
	var blocks []string
	for _, sel := range contentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			blocks = append(blocks, s.Text())
		})
	}
	if len(blocks) == 0 {
		blocks = append(blocks, doc.Find("body").Text())
	}

	var lines []string
	for _, block := range blocks {
		block = strings.ReplaceAll(block, " ", " ")
		for _, ln := range strings.Split(block, "\n") {
			if ln = strings.TrimSpace(ln); ln != "" {
				lines = append(lines, ln)
			}
		}
	}
	return lines
}

func sanitizeLine(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = parenRe.ReplaceAllString(s, "")
	s = cornerNoteRe.ReplaceAllString(s, "")
	return bracketNoteRe.ReplaceAllString(s, "")
}

// findVenueNear looks forward up to venueWindow lines from the dated line,
// then backward, for either a labeled venue (会場: ...) or a line carrying a
// venue suffix. Noise lines (bare OPEN/START/DAY headers) are stepped over.
func (h *Heuristic) findVenueNear(lines []string, idx int) string {
	for j := 0; j <= venueWindow; j++ {
		if v, ok := h.venueFromLine(lines, idx+j); ok {
			return v
		}
	}
	for j := 1; j <= venueWindow; j++ {
		if v, ok := h.venueFromLine(lines, idx-j); ok {
			return v
		}
	}
	return ""
}

func (h *Heuristic) venueFromLine(lines []string, i int) (string, bool) {
	if i < 0 || i >= len(lines) {
		return "", false
	}
	ln := strings.TrimSpace(lines[i])
	if ln == "" {
		return "", false
	}
	if h.labelRe.MatchString(ln) {
		v := h.labelRe.ReplaceAllString(ln, "")
		return strings.TrimSpace(labelStripRe.ReplaceAllString(v, "")), true
	}
	if h.isNoiseLine(ln) {
		return "", false
	}
	if h.venueRe.MatchString(ln) {
		return ln, true
	}
	return "", false
}

func (h *Heuristic) isNoiseLine(ln string) bool {
	normalized := strings.TrimSpace(labelStripRe.ReplaceAllString(ln, ""))
	if normalized == "" {
		return true
	}
	return h.noiseRe.MatchString(normalized)
}

// guessTour prefers headings that mention a tour, then falls back to the
// first h1/h2 on the page.
func guessTour(doc *goquery.Document) string {
	tour := ""
	doc.Find("h1,h2,h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if tourWordRe.MatchString(t) {
			tour = t
			return false
		}
		return true
	})
	if tour != "" {
		return tour
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h2").First().Text())
}

var artistLabelRe = regexp.MustCompile(`Artist|出演者?`)

var artistStripRe = regexp.MustCompile(`(Artist|出演者?|:|：)`)

// guessArtist looks for a small element labeled Artist/出演 and takes its
// sibling or parent text; otherwise the first heading stands in.
func guessArtist(doc *goquery.Document) string {
	artist := ""
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) >= 200 || !artistLabelRe.MatchString(text) {
			return true
		}
		if next := strings.TrimSpace(s.Next().Text()); next != "" {
			artist = next
			return false
		}
		if parent := strings.TrimSpace(s.Parent().Text()); parent != "" && len(parent) < 100 {
			artist = strings.TrimSpace(artistStripRe.ReplaceAllString(parent, ""))
			return false
		}
		return true
	})
	if artist != "" {
		return artist
	}
	return strings.TrimSpace(doc.Find("h1,h2").First().Text())
}
