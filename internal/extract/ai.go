package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

var (
	scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTagRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	anyTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// AI is the last-resort extraction strategy: it prompts a chat model with
// the page's plain text and a strict JSON-array contract. It degrades to an
// empty result on any failure (missing credential, network error or an
// unparsable response) and never returns an error to the chain.
type AI struct {
	client   *openai.Client
	model    string
	maxChars int
	logger   *zap.Logger
}

// AIConfig configures the generative-model strategy. An empty APIKey leaves
// the strategy configured but inert.
type AIConfig struct {
	APIKey   string
	Model    string
	MaxChars int
}

// NewAI creates the AI fallback strategy.
func NewAI(cfg AIConfig, logger *zap.Logger) *AI {
	a := &AI{model: cfg.Model, maxChars: cfg.MaxChars, logger: logger}
	if a.model == "" {
		a.model = openai.GPT4oMini
	}
	if a.maxChars <= 0 {
		a.maxChars = 10000
	}
	if cfg.APIKey != "" {
		a.client = openai.NewClient(cfg.APIKey)
	}
	return a
}

// Name identifies the strategy in logs and preview responses.
func (*AI) Name() string { return "ai" }

// Extract asks the model for a JSON array of events found in the page text.
func (a *AI) Extract(ctx context.Context, html string) ([]event.Candidate, error) {
	if a.client == nil {
		a.logger.Debug("ai extraction skipped: no api key configured")
		return nil, nil
	}

	text := pageText(html, a.maxChars)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		a.logger.Warn("ai extraction request failed", zap.Error(err))
		return nil, nil
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	cands, ok := parseCandidateArray(resp.Choices[0].Message.Content)
	if !ok {
		a.logger.Warn("ai returned no parsable JSON array")
		return nil, nil
	}
	return cands, nil
}

// pageText strips script/style blocks and tags and truncates to the
// character budget, keeping model token usage bounded.
func pageText(html string, maxChars int) string {
	text := scriptTagRe.ReplaceAllString(html, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = anyTagRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > maxChars {
		runes = runes[:maxChars]
	}
	return string(runes)
}

func buildPrompt(text string) string {
	return `以下のHTMLテキストから音楽イベント・ライブ・コンサートの公演情報を抽出してください。

抽出ルール:
1. 各イベントについて以下の情報をJSON配列で返す
2. JSON形式: [{"tour": "ツアー名", "place": "会場名", "date": "YYYY-MM-DD", "performance": "HH:MM", "artist": "アーティスト名"}]
3. 日付は必ずYYYY-MM-DD形式に変換
4. 開演時刻は24時間形式HH:MM（例: "18:30"）
5. 情報が不明な場合は空文字""を設定
6. イベント情報が見つからない場合は空配列[]を返す
7. JSONのみを返し、説明文は不要

HTMLテキスト:
` + text + `

JSON配列:`
}

// parseCandidateArray finds the first bracket-delimited JSON array in the
// model output (models wrap answers in markdown fences at will).
func parseCandidateArray(response string) ([]event.Candidate, bool) {
	start := strings.IndexByte(response, '[')
	end := strings.LastIndexByte(response, ']')
	if start < 0 || end <= start {
		return nil, false
	}
	var cands []event.Candidate
	if err := json.Unmarshal([]byte(response[start:end+1]), &cands); err != nil {
		return nil, false
	}
	return cands, true
}
