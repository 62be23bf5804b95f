package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// Probe implements event.Renderer with a plain HTTP GET via Colly, for
// environments without a Chrome binary. Pages that require JavaScript will
// come back unrendered; the extractor chain still gets structured data,
// feeds and server-rendered markup.
type Probe struct {
	base      *colly.Collector
	userAgent string
	timeout   time.Duration
}

// NewProbe builds a Probe renderer.
func NewProbe(userAgent string, timeout time.Duration) *Probe {
	c := colly.NewCollector(colly.Async(false))
	// robots.txt is enforced by the pipeline's own gate before any render;
	// letting Colly re-check would fetch robots.txt twice per run.
	c.IgnoreRobotsTxt = true
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Probe{base: c, userAgent: userAgent, timeout: timeout}
}

// Render fetches the URL body without JavaScript execution.
func (p *Probe) Render(ctx context.Context, rawURL string) (event.Page, error) {
	collector := p.base.Clone()
	if p.userAgent != "" {
		collector.UserAgent = p.userAgent
	}
	collector.SetRequestTimeout(p.timeout)

	var page event.Page
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		page.HTML = string(r.Body)
		page.FinalURL = r.Request.URL.String()
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return event.Page{}, fmt.Errorf("probe fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return event.Page{}, fmt.Errorf("probe visit %s: %w", rawURL, err)
		}
	}
	if fetchErr != nil {
		return event.Page{}, fmt.Errorf("probe fetch %s: %w", rawURL, fetchErr)
	}
	if page.FinalURL == "" {
		page.FinalURL = rawURL
	}
	return page, nil
}
