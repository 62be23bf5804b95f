// Package extract turns rendered HTML into unverified event candidates via
// an ordered chain of strategies.
package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
	"github.com/LBtakeuti/fanfan-worker/internal/metrics"
)

// Strategy produces zero or more unverified candidates from a page. A
// strategy error means "this strategy produced nothing"; the chain never
// lets it abort the run.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, html string) ([]event.Candidate, error)
}

// Result reports the outcome of one chain pass.
type Result struct {
	Candidates []event.Candidate
	// Strategy is the name of the strategy that produced the candidates,
	// or "" when nothing was found.
	Strategy string
	AITried  bool
	AIUsed   bool
}

// Chain tries strategies in a fixed priority order and short-circuits at the
// first non-empty result. The AI fallback, when present, only runs after
// every other strategy came up empty and only when the caller allows it.
type Chain struct {
	strategies []Strategy
	ai         Strategy
	logger     *zap.Logger
}

// NewChain builds a chain over the given strategies. ai may be nil.
func NewChain(logger *zap.Logger, ai Strategy, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, ai: ai, logger: logger}
}

// Extract runs the chain against one page.
func (c *Chain) Extract(ctx context.Context, html string, allowAI bool) Result {
	for _, s := range c.strategies {
		if cands := c.run(ctx, s, html); len(cands) > 0 {
			return Result{Candidates: cands, Strategy: s.Name()}
		}
	}
	if c.ai == nil || !allowAI {
		return Result{}
	}
	res := Result{AITried: true}
	if cands := c.run(ctx, c.ai, html); len(cands) > 0 {
		res.Candidates = cands
		res.Strategy = c.ai.Name()
		res.AIUsed = true
	}
	return res
}

func (c *Chain) run(ctx context.Context, s Strategy, html string) []event.Candidate {
	cands, err := s.Extract(ctx, html)
	if err != nil {
		metrics.ObserveStrategyFailure(s.Name())
		c.logger.Warn("extraction strategy failed",
			zap.String("strategy", s.Name()), zap.Error(err))
		return nil
	}
	return cands
}
