package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v56/github"
	log "github.com/sirupsen/logrus"
)

// RateLimitError is returned when the remaining API quota falls below the
// hard floor. It aborts the current run; the caller must not continue.
type RateLimitError struct {
	Remaining int
	Reset     time.Time
}

func (e *RateLimitError) Error() string {
	wait := time.Until(e.Reset).Round(time.Second)
	if wait < 0 {
		wait = 0
	}
	return fmt.Sprintf("rate limit critically low (%d remaining), resets in %s", e.Remaining, wait)
}

// rateLimitGovernor tracks the token's API quota from response metadata and
// enforces the two-tier wait/abort policy: below threshold the caller is
// paused until the quota resets, below criticalThreshold the run is aborted.
type rateLimitGovernor struct {
	threshold         int
	criticalThreshold int

	remaining int
	limit     int
	reset     time.Time
}

func newRateLimitGovernor(threshold int) *rateLimitGovernor {
	return &rateLimitGovernor{
		threshold:         threshold,
		criticalThreshold: 10,
		remaining:         5000,
		limit:             5000,
	}
}

// update refreshes quota state from response metadata without blocking.
func (g *rateLimitGovernor) update(rate github.Rate) {
	if rate.Limit == 0 {
		// Response carried no rate headers, keep previous state.
		return
	}
	g.remaining = rate.Remaining
	g.limit = rate.Limit
	g.reset = rate.Reset.Time
}

// checkAndWait refreshes quota state and enforces policy. Returns a
// *RateLimitError below the critical floor; sleeps until reset (+1s buffer)
// below the soft threshold.
func (g *rateLimitGovernor) checkAndWait(ctx context.Context, rate github.Rate) error {
	g.update(rate)

	log.Debugf("rate limit: %d/%d remaining, resets at %s", g.remaining, g.limit, g.reset)

	if g.remaining < g.criticalThreshold {
		return &RateLimitError{Remaining: g.remaining, Reset: g.reset}
	}

	if g.remaining < g.threshold {
		wait := time.Until(g.reset)
		if wait > 0 {
			log.Warnf("rate limit low (%d remaining), waiting %s until reset", g.remaining, wait.Round(time.Second))
			timer := time.NewTimer(wait + time.Second)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}
