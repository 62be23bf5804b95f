// Package robots evaluates robots.txt policies for outbound fetches.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// policyTTL bounds how long a parsed robots.txt is reused per host.
const policyTTL = 30 * time.Minute

// Gate fetches and evaluates a host's robots policy. Fetch and parse
// failures fail open: policy absence must not block crawling entirely, but
// an explicit disallow is honored.
type Gate struct {
	httpClient *http.Client
	cache      *gocache.Cache
	userAgent  string
	respect    bool
	logger     *zap.Logger
}

// Config holds robots gate configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Respect disables the gate entirely when false.
	Respect bool
}

// New creates a Gate.
func New(cfg Config, logger *zap.Logger) *Gate {
	return &Gate{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      gocache.New(policyTTL, 2*policyTTL),
		userAgent:  cfg.UserAgent,
		respect:    cfg.Respect,
		logger:     logger,
	}
}

// Allowed reports whether the URL may be fetched under the host's robots
// policy for the configured user agent.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	if !g.respect {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data, err := g.policyFor(ctx, u)
	if err != nil {
		g.logger.Debug("robots.txt unavailable, allowing",
			zap.String("host", u.Host), zap.Error(err))
		return true
	}
	return data.TestAgent(u.Path, g.userAgent)
}

func (g *Gate) policyFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	if cached, ok := g.cache.Get(u.Host); ok {
		if data, ok := cached.(*robotstxt.RobotsData); ok {
			return data, nil
		}
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create robots request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	g.cache.SetDefault(u.Host, data)
	return data, nil
}
