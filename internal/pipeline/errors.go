package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Terminal run errors. These surface verbatim in the HTTP error field;
// strategy and per-record persistence failures are recovered internally and
// never reach the caller.
var (
	ErrRateLimited      = errors.New("rate limit exceeded for this host")
	ErrRobotsDisallowed = errors.New("robots.txt disallow")
)

// CooldownError reports that a source was crawled too recently, carrying the
// remaining wait time.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown: wait %ds", int(math.Ceil(e.Remaining.Seconds())))
}
