// Package pipeline sequences one ingestion run: cooldown check, rate limit,
// robots check, render, extract, normalize, dedup, persist, and the
// per-source status bookkeeping around it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LBtakeuti/fanfan-worker/internal/dedupe"
	"github.com/LBtakeuti/fanfan-worker/internal/event"
	"github.com/LBtakeuti/fanfan-worker/internal/extract"
	"github.com/LBtakeuti/fanfan-worker/internal/metrics"
	"github.com/LBtakeuti/fanfan-worker/internal/normalize"
)

// FetchLimiter gates outbound fetches per host.
type FetchLimiter interface {
	Allow(url string) bool
}

// RobotsPolicy evaluates robots.txt for a URL.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// Pipeline drives one source URL through the full ingestion sequence.
// Extraction, normalization and dedup are pure; the blocking I/O points are
// the robots fetch, the render, storage access and the optional AI call.
type Pipeline struct {
	renderer event.Renderer
	limiter  FetchLimiter
	robots   RobotsPolicy
	chain    *extract.Chain
	events   event.EventStore
	sources  event.SourceStore
	blobs    event.BlobStore // optional
	pub      event.Publisher // optional
	clock    event.Clock
	cooldown time.Duration
	logger   *zap.Logger
}

// Deps bundles pipeline collaborators. Blobs and Pub may be nil.
type Deps struct {
	Renderer event.Renderer
	Limiter  FetchLimiter
	Robots   RobotsPolicy
	Chain    *extract.Chain
	Events   event.EventStore
	Sources  event.SourceStore
	Blobs    event.BlobStore
	Pub      event.Publisher
	Clock    event.Clock
}

// New constructs a Pipeline.
func New(deps Deps, cooldown time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		renderer: deps.Renderer,
		limiter:  deps.Limiter,
		robots:   deps.Robots,
		chain:    deps.Chain,
		events:   deps.Events,
		sources:  deps.Sources,
		blobs:    deps.Blobs,
		pub:      deps.Pub,
		clock:    deps.Clock,
		cooldown: cooldown,
		logger:   logger,
	}
}

// Run executes the full pipeline for one source URL and returns the number
// of newly written records. Cooldown, rate-limit and robots refusals fail
// the run without touching the source's status; a render failure records a
// failed crawl before propagating. A completed run records success even if
// individual upserts failed.
func (p *Pipeline) Run(ctx context.Context, sourceURL string) (int, error) {
	if err := p.checkCooldown(ctx, sourceURL); err != nil {
		metrics.ObserveRun("cooldown")
		return 0, err
	}
	if !p.limiter.Allow(sourceURL) {
		metrics.ObserveRateLimitRejection()
		metrics.ObserveRun("rate_limited")
		return 0, ErrRateLimited
	}
	if !p.robots.Allowed(ctx, sourceURL) {
		metrics.ObserveRun("robots_disallowed")
		return 0, ErrRobotsDisallowed
	}

	page, err := p.render(ctx, sourceURL)
	if err != nil {
		// First point where "we tried and failed" must be recorded.
		p.touchSource(ctx, sourceURL, event.RunStatusFailed)
		metrics.ObserveRun("render_failed")
		return 0, fmt.Errorf("render %s: %w", sourceURL, err)
	}
	p.snapshot(ctx, sourceURL, page)

	res := p.chain.Extract(ctx, page.HTML, true)
	metrics.ObserveCandidates(res.Strategy, len(res.Candidates))

	records := normalize.FromCandidates(res.Candidates, page.FinalURL)
	uniques := dedupe.Collapse(records)

	written, skipped := p.persist(ctx, uniques)
	p.touchSource(ctx, sourceURL, event.RunStatusSuccess)
	p.publishSummary(ctx, sourceURL, written, skipped)

	metrics.ObserveRun("success")
	p.logger.Info("run completed",
		zap.String("source_url", sourceURL),
		zap.String("strategy", res.Strategy),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("written", written),
		zap.Int("skipped", skipped),
	)
	return written, nil
}

// ExtractResult is returned by the preview mode.
type ExtractResult struct {
	Records []event.Record
	UsedAI  bool
	AITried bool
}

// ExtractOnly renders, extracts and normalizes without touching storage or
// the source's status; allowAI controls whether the AI fallback may run at
// all. Duplicates are still collapsed within the batch.
func (p *Pipeline) ExtractOnly(ctx context.Context, url string, allowAI bool) (ExtractResult, error) {
	if !p.limiter.Allow(url) {
		metrics.ObserveRateLimitRejection()
		return ExtractResult{}, ErrRateLimited
	}
	if !p.robots.Allowed(ctx, url) {
		return ExtractResult{}, ErrRobotsDisallowed
	}

	page, err := p.render(ctx, url)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("render %s: %w", url, err)
	}

	res := p.chain.Extract(ctx, page.HTML, allowAI)
	records := normalize.FromCandidates(res.Candidates, page.FinalURL)

	out := ExtractResult{UsedAI: res.AIUsed, AITried: res.AITried}
	for _, rec := range dedupe.Collapse(records) {
		out.Records = append(out.Records, rec.Record)
	}
	return out, nil
}

func (p *Pipeline) checkCooldown(ctx context.Context, sourceURL string) error {
	status, err := p.sources.GetSource(ctx, sourceURL)
	if errors.Is(err, event.ErrSourceUnknown) {
		return nil
	}
	if err != nil {
		// A status read failure must not block the crawl; the cooldown is
		// a soft guard.
		p.logger.Warn("source status read failed", zap.String("source_url", sourceURL), zap.Error(err))
		return nil
	}
	if status.LastCrawledAt.IsZero() {
		return nil
	}
	elapsed := p.clock.Now().Sub(status.LastCrawledAt)
	if elapsed < p.cooldown {
		return &CooldownError{Remaining: p.cooldown - elapsed}
	}
	return nil
}

func (p *Pipeline) render(ctx context.Context, url string) (event.Page, error) {
	start := p.clock.Now()
	page, err := p.renderer.Render(ctx, url)
	metrics.ObserveRenderSeconds(p.clock.Now().Sub(start).Seconds())
	return page, err
}

// persist upserts each not-already-stored record. Individual failures are
// logged and counted; the batch never aborts.
func (p *Pipeline) persist(ctx context.Context, uniques []event.DedupedRecord) (written, skipped int) {
	checksums := make([]string, len(uniques))
	for i, rec := range uniques {
		checksums[i] = rec.Checksum
	}
	existing, err := p.events.ExistingChecksums(ctx, checksums)
	if err != nil {
		// Upserts are idempotent under the uniqueness constraint, so a
		// failed lookup degrades to writing everything.
		p.logger.Warn("checksum lookup failed", zap.Error(err))
		existing = map[string]bool{}
	}

	for _, rec := range uniques {
		if existing[rec.Checksum] {
			skipped++
			continue
		}
		if err := p.events.UpsertEvent(ctx, rec); err != nil {
			metrics.ObserveUpsertFailure()
			p.logger.Error("upsert failed",
				zap.String("checksum", rec.Checksum),
				zap.String("tour", rec.Tour),
				zap.Error(err),
			)
			continue
		}
		written++
	}
	metrics.ObserveWritten(written)
	metrics.ObserveSkipped(skipped)
	return written, skipped
}

func (p *Pipeline) touchSource(ctx context.Context, sourceURL string, status event.RunStatus) {
	err := p.sources.TouchSource(ctx, event.SourceStatus{
		SourceURL:     sourceURL,
		LastCrawledAt: p.clock.Now(),
		LastStatus:    status,
	})
	if err != nil {
		p.logger.Error("source status write failed",
			zap.String("source_url", sourceURL), zap.Error(err))
	}
}

// snapshot archives the rendered HTML when a blob store is configured.
// Best-effort: failures are logged, never fail the run.
func (p *Pipeline) snapshot(ctx context.Context, sourceURL string, page event.Page) {
	if p.blobs == nil {
		return
	}
	name := fmt.Sprintf("%s-%d.html", dedupe.Checksum(sourceURL), p.clock.Now().Unix())
	if err := p.blobs.Save(ctx, name, []byte(page.HTML)); err != nil {
		p.logger.Warn("snapshot save failed", zap.String("object", name), zap.Error(err))
	}
}

func (p *Pipeline) publishSummary(ctx context.Context, sourceURL string, written, skipped int) {
	if p.pub == nil {
		return
	}
	summary := event.RunSummary{
		SourceURL:  sourceURL,
		Written:    written,
		Skipped:    skipped,
		FinishedAt: p.clock.Now(),
	}
	if _, err := p.pub.Publish(ctx, summary); err != nil {
		p.logger.Warn("run summary publish failed", zap.Error(err))
	}
}
