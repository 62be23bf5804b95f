package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func TestAIExtractWithoutKey(t *testing.T) {
	t.Parallel()

	a := NewAI(AIConfig{}, zap.NewNop())
	cands, err := a.Extract(context.Background(), "<html><body>anything</body></html>")
	assert.NoError(t, err)
	assert.Nil(t, cands, "missing credential degrades to empty, not error")
}

func TestParseCandidateArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   int
		wantOK bool
	}{
		{
			name:   "bare array",
			in:     `[{"tour":"T","place":"P","date":"2025-10-14","performance":"18:00","artist":"A"}]`,
			want:   1,
			wantOK: true,
		},
		{
			name:   "fenced array",
			in:     "```json\n[{\"tour\":\"T\"}]\n```",
			want:   1,
			wantOK: true,
		},
		{
			name:   "empty array",
			in:     "[]",
			want:   0,
			wantOK: true,
		},
		{
			name:   "prose without array",
			in:     "イベント情報は見つかりませんでした。",
			wantOK: false,
		},
		{
			name:   "broken json",
			in:     `[{"tour":`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cands, ok := parseCandidateArray(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Len(t, cands, tt.want)
			}
		})
	}
}

func TestPageText(t *testing.T) {
	t.Parallel()

	html := `<html><head><script>var x = 1;</script><style>.a{}</style></head><body><p>公演情報</p><p>2025年10月14日</p></body></html>`
	text := pageText(html, 10000)
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, ".a{}")
	assert.Contains(t, text, "公演情報")
	assert.Contains(t, text, "2025年10月14日")
}

func TestPageTextTruncatesRunes(t *testing.T) {
	t.Parallel()

	text := pageText("<p>あいうえおかきくけこ</p>", 5)
	assert.Equal(t, "あいうえお", text, "budget counts runes, not bytes")
}
