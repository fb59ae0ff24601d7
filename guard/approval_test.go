package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
)

// fakeFetcher replays a scripted sequence of profile results
type fakeFetcher struct {
	results []fetchResult
	calls   int
}

type fetchResult struct {
	profile *api.VendorProfile
	err     error
}

func (f *fakeFetcher) GetVendorProfile(ctx context.Context) (*api.VendorProfile, error) {
	r := f.results[f.calls]
	f.calls++
	return r.profile, r.err
}

func rateLimited() error {
	return &core.ClientError{Op: "api.GET /vendors/me", Kind: "api", Err: core.ErrRateLimited}
}

func approved() fetchResult {
	return fetchResult{profile: &api.VendorProfile{IsApproved: true}}
}

func pending() fetchResult {
	return fetchResult{profile: &api.VendorProfile{IsApproved: false}}
}

func testRetryConfig() core.RetryConfig {
	return core.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestApprovedVendorPassesGate(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{approved()}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	status, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status != StatusApproved {
		t.Errorf("Expected approved, got %s", status)
	}
	if gate.Status() != StatusApproved {
		t.Errorf("Gate status not published, got %s", gate.Status())
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", fetcher.calls)
	}
}

func TestUnapprovedVendorBlocked(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{pending()}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	status, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status != StatusNotApproved {
		t.Errorf("Expected not approved, got %s", status)
	}
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: rateLimited()},
		{err: rateLimited()},
		{err: rateLimited()},
		approved(),
	}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	status, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status != StatusApproved {
		t.Errorf("Expected approved after retries, got %s", status)
	}
	if fetcher.calls != 4 {
		t.Errorf("Expected 4 fetches (1 initial + 3 retries), got %d", fetcher.calls)
	}
}

func TestRateLimitBudgetExhausted(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: rateLimited()},
		{err: rateLimited()},
		{err: rateLimited()},
		{err: rateLimited()},
	}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	status, err := gate.Run(context.Background())
	if !errors.Is(err, core.ErrMaxRetriesExceeded) {
		t.Errorf("Expected max retries error, got %v", err)
	}
	if status != StatusNotApproved {
		t.Errorf("Expected not approved after exhausted budget, got %s", status)
	}
	if fetcher.calls != 4 {
		t.Errorf("Expected exactly 4 fetches, got %d", fetcher.calls)
	}
}

func TestNonRateLimitErrorFailsImmediately(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: errors.New("server exploded")},
	}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	status, err := gate.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error")
	}
	if status != StatusNotApproved {
		t.Errorf("Expected not approved, got %s", status)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected no retries for non-rate-limit error, got %d fetches", fetcher.calls)
	}
}

func TestBackoffDelaysDouble(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: rateLimited()},
		{err: rateLimited()},
		{err: rateLimited()},
		approved(),
	}}
	cfg := core.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	gate := NewApprovalGate(fetcher, cfg, nil)

	start := time.Now()
	_, err := gate.Run(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// 10ms + 20ms + 40ms of backoff
	if elapsed < 70*time.Millisecond {
		t.Errorf("Expected at least 70ms of backoff, got %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Backoff took too long: %v", elapsed)
	}
}

func TestCancellationLeavesGateChecking(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: rateLimited()},
		approved(),
	}}
	cfg := core.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Hour, // cancellation must interrupt the sleep
		BackoffFactor: 2.0,
	}
	gate := NewApprovalGate(fetcher, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var status Status
	var err error
	go func() {
		status, err = gate.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if status != StatusChecking {
		t.Errorf("Expected gate left in checking after cancellation, got %s", status)
	}
	if gate.Status() != StatusChecking {
		t.Errorf("Expected no status published after cancellation, got %s", gate.Status())
	}
}

func TestCancelledBeforeRunPublishesNothing(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{approved()}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := gate.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if status != StatusChecking {
		t.Errorf("Expected checking, got %s", status)
	}
	if fetcher.calls != 0 {
		t.Errorf("Expected no fetch after pre-cancelled context, got %d", fetcher.calls)
	}
}

func TestStatusChecksStayFresh(t *testing.T) {
	// Two consecutive runs each re-fetch: approval is never cached
	fetcher := &fakeFetcher{results: []fetchResult{pending(), approved()}}
	gate := NewApprovalGate(fetcher, testRetryConfig(), nil)

	status, _ := gate.Run(context.Background())
	if status != StatusNotApproved {
		t.Fatalf("Expected not approved first, got %s", status)
	}

	status, err := gate.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status != StatusApproved {
		t.Errorf("Expected approved on re-check, got %s", status)
	}
	if fetcher.calls != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.calls)
	}
}
