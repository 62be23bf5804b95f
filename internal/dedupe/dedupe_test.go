package dedupe

import (
	"testing"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

func TestEventKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   event.Record
		want string
	}{
		{
			"all fields",
			event.Record{Artist: "Artist", Tour: "Tour", Place: "Hall", Date: "2025-10-14", Performance: "18:00"},
			"artist|tour|hall|2025-10-14|18:00",
		},
		{
			"missing fields keep their slots",
			event.Record{Artist: "A", Date: "2025-10-14"},
			"a|||2025-10-14|",
		},
		{
			"lowercased",
			event.Record{Artist: "ARTIST", Tour: "World TOUR"},
			"artist|world tour|||",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EventKey(tt.in); got != tt.want {
				t.Errorf("EventKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	sum := Checksum("a|||2025-10-14|")
	if len(sum) != checksumLen {
		t.Fatalf("checksum length = %d, want %d", len(sum), checksumLen)
	}
	if again := Checksum("a|||2025-10-14|"); again != sum {
		t.Errorf("checksum not deterministic: %q vs %q", sum, again)
	}
	if other := Checksum("b|||2025-10-14|"); other == sum {
		t.Errorf("distinct keys collided: %q", sum)
	}
}

func TestCollapse(t *testing.T) {
	t.Parallel()

	first := event.Record{Artist: "A", Tour: "T", Place: "P1", Date: "2025-10-14", Performance: "18:00", SourceURL: "https://a.example"}
	dup := first
	dup.SourceURL = "https://b.example" // identity fields equal, payload differs
	other := event.Record{Artist: "A", Tour: "T", Place: "P2", Date: "2025-10-15"}

	out := Collapse([]event.Record{first, dup, other})

	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if out[0].SourceURL != "https://a.example" {
		t.Errorf("first occurrence should win, got %q", out[0].SourceURL)
	}
	if out[0].Checksum == "" || out[1].Checksum == "" {
		t.Errorf("checksums not populated: %+v", out)
	}
	if out[0].Checksum == out[1].Checksum {
		t.Errorf("distinct records share checksum %q", out[0].Checksum)
	}
}

func TestCollapseCaseInsensitive(t *testing.T) {
	t.Parallel()

	out := Collapse([]event.Record{
		{Artist: "Artist", Tour: "Tour"},
		{Artist: "ARTIST", Tour: "TOUR"},
	})
	if len(out) != 1 {
		t.Fatalf("case variants should collapse, got %d records", len(out))
	}
}
