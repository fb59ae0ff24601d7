package guard

import (
	"context"
	"sync"
	"time"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
)

// Status is the approval gate's state
type Status string

const (
	// StatusChecking means the remote check has not reached a terminal
	// state yet. Observers keep their busy indication up while the gate
	// reports this, including across invisible retries.
	StatusChecking Status = "checking"

	// StatusApproved renders the vendor view
	StatusApproved Status = "approved"

	// StatusNotApproved renders the fixed pending-approval view
	StatusNotApproved Status = "not_approved"
)

// ProfileFetcher is the slice of the gateway the gate depends on
type ProfileFetcher interface {
	GetVendorProfile(ctx context.Context) (*api.VendorProfile, error)
}

// ApprovalGate is the asynchronous second guard on vendor views. Every
// run re-fetches the vendor's profile - the approval flag is derived
// state and never cached across navigations.
//
// Rate-limit failures are retried with bounded exponential backoff
// (1s, 2s, 4s with the default config) before the gate settles into
// NotApproved; any other failure settles it immediately. The gate stays
// in StatusChecking for the whole retry sequence and publishes nothing
// after its context is cancelled.
type ApprovalGate struct {
	fetcher ProfileFetcher
	retry   core.RetryConfig
	logger  core.Logger

	mu     sync.RWMutex
	status Status
}

// NewApprovalGate creates a gate in StatusChecking
func NewApprovalGate(fetcher ProfileFetcher, retry core.RetryConfig, logger core.Logger) *ApprovalGate {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &ApprovalGate{
		fetcher: fetcher,
		retry:   retry,
		logger:  logger,
		status:  StatusChecking,
	}
}

// Status returns the gate's current state
func (g *ApprovalGate) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Run performs the approval check and returns the terminal status. On
// cancellation it returns the current (non-terminal) status with the
// context's error, and no state is published afterward.
func (g *ApprovalGate) Run(ctx context.Context) (Status, error) {
	g.setStatus(StatusChecking)

	delay := g.retry.InitialDelay
	var lastErr error

	// One initial attempt plus up to MaxAttempts retries on rate limiting
	for attempt := 0; attempt <= g.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return g.Status(), err
		}

		profile, err := g.fetcher.GetVendorProfile(ctx)
		if err == nil {
			status := StatusNotApproved
			if profile.IsApproved {
				status = StatusApproved
			}
			if ctx.Err() != nil {
				return g.Status(), ctx.Err()
			}
			g.setStatus(status)
			return status, nil
		}
		lastErr = err

		if !core.IsRateLimited(err) {
			g.logger.Error("Approval check failed", map[string]interface{}{
				"operation": "approval_check",
				"error":     err.Error(),
			})
			if ctx.Err() != nil {
				return g.Status(), ctx.Err()
			}
			g.setStatus(StatusNotApproved)
			return StatusNotApproved, err
		}

		// Don't sleep after the last attempt
		if attempt == g.retry.MaxAttempts {
			break
		}

		g.logger.Warn("Approval check rate limited, retrying", map[string]interface{}{
			"operation":      "approval_check_retry",
			"attempt":        attempt + 1,
			"max_retries":    g.retry.MaxAttempts,
			"retry_delay_ms": delay.Milliseconds(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return g.Status(), ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * g.retry.BackoffFactor)
	}

	g.logger.Error("Approval check retry budget exhausted", map[string]interface{}{
		"operation":      "approval_check",
		"total_attempts": g.retry.MaxAttempts + 1,
		"error":          lastErr.Error(),
	})
	if ctx.Err() != nil {
		return g.Status(), ctx.Err()
	}
	g.setStatus(StatusNotApproved)
	return StatusNotApproved, core.NewClientError("guard.ApprovalGate", "approval", core.ErrMaxRetriesExceeded)
}

func (g *ApprovalGate) setStatus(status Status) {
	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
}
