// Package memory provides an in-process publisher for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher records published payloads in memory.
type Publisher struct {
	mu       sync.Mutex
	payloads []any
}

// New creates an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends the payload and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("mem-%d", len(p.payloads)), nil
}

// Payloads returns a snapshot of everything published (tests).
func (p *Publisher) Payloads() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.payloads))
	copy(out, p.payloads)
	return out
}
