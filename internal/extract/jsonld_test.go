package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ldPage(block string) string {
	return `<html><head><script type="application/ld+json">` + block + `</script></head><body></body></html>`
}

func TestJSONLDExtractSingleEvent(t *testing.T) {
	t.Parallel()

	html := ldPage(`{
		"@context": "https://schema.org",
		"@type": "Event",
		"name": "Tour X Osaka",
		"startDate": "2025-11-01T18:30:00+09:00",
		"location": {"@type": "Place", "name": "Hall Z"},
		"performer": {"@type": "MusicGroup", "name": "Artist Y"},
		"superEvent": {"name": "Tour X"}
	}`)

	cands, err := NewJSONLD().Extract(context.Background(), html)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "Tour X", c.Tour, "superEvent name wins over the event's own name")
	assert.Equal(t, "Hall Z", c.Place)
	assert.Equal(t, "2025-11-01T18:30:00+09:00", c.Date)
	assert.Equal(t, "18:30:00+09:00", c.Performance)
	assert.Equal(t, "Artist Y", c.Artist)
}

func TestJSONLDExtractGraph(t *testing.T) {
	t.Parallel()

	html := ldPage(`{
		"@graph": [
			{"@type": "WebPage", "name": "not an event"},
			{"@type": "MusicEvent", "name": "Show A", "startDate": "2025-10-14"},
			{"@type": "Event", "name": "Show B", "startDate": "2025-10-15"}
		]
	}`)

	cands, err := NewJSONLD().Extract(context.Background(), html)
	require.NoError(t, err)
	require.Len(t, cands, 1, "only exact Event types qualify")
	assert.Equal(t, "Show B", cands[0].Tour)
	assert.Equal(t, "2025-10-15", cands[0].Date)
	assert.Empty(t, cands[0].Performance, "date-only startDate has no time part")
}

func TestJSONLDExtractTypeList(t *testing.T) {
	t.Parallel()

	html := ldPage(`[{"@type": ["Thing", "Event"], "name": "Show C", "startDate": "2025-12-01"}]`)

	cands, err := NewJSONLD().Extract(context.Background(), html)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Show C", cands[0].Tour)
}

func TestJSONLDExtractPerformerList(t *testing.T) {
	t.Parallel()

	html := ldPage(`{
		"@type": "Event",
		"name": "Festival Day 1",
		"performer": [{"name": "Band A"}, {"name": "Band B"}]
	}`)

	cands, err := NewJSONLD().Extract(context.Background(), html)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Band A, Band B", cands[0].Artist)
}

func TestJSONLDExtractSkipsMalformedBlocks(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<script type="application/ld+json">{not json</script>
		<script type="application/ld+json">{"@type": "Event", "name": "Survivor"}</script>
	</head></html>`

	cands, err := NewJSONLD().Extract(context.Background(), html)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Survivor", cands[0].Tour)
}

func TestJSONLDExtractNoBlocks(t *testing.T) {
	t.Parallel()

	cands, err := NewJSONLD().Extract(context.Background(), "<html><body><p>plain page</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, cands)
}
