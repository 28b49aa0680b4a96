package web

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/webcache-io/webcache/internal/fetch"
)

func batchURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/page-%d", i)
	}
	return urls
}

func TestBatchInputErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, &fakeFetcher{}, Options{})
	ctx := context.Background()

	var input *InputError
	if _, err := svc.Batch(ctx, BatchRequest{URLs: nil, MaxConcurrency: 2}); !errors.As(err, &input) {
		t.Fatalf("empty urls = %v, want InputError", err)
	}
	if _, err := svc.Batch(ctx, BatchRequest{URLs: []string{"https://example.com"}, MaxConcurrency: 0}); !errors.As(err, &input) {
		t.Fatalf("zero concurrency = %v, want InputError", err)
	}
}

func TestBatchBoundsConcurrency(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	svc, _ := newTestService(t, fetcher, Options{})

	result, err := svc.Batch(context.Background(), BatchRequest{
		URLs:           batchURLs(12),
		MaxConcurrency: 3,
	})
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if result.Summary.Failed != 0 {
		t.Fatalf("expected no failures, got %+v", result.Summary)
	}
	if max := fetcher.maxSeen.Load(); max > 3 {
		t.Fatalf("observed %d concurrent fetches, limit was 3", max)
	}
	if fetcher.calls.Load() != 12 {
		t.Fatalf("expected 12 fetches, got %d", fetcher.calls.Load())
	}
}

func TestBatchCapsRequestedConcurrency(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{delay: 10 * time.Millisecond}
	svc, _ := newTestService(t, fetcher, Options{})

	_, err := svc.Batch(context.Background(), BatchRequest{
		URLs:           batchURLs(40),
		MaxConcurrency: 1000,
	})
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if max := fetcher.maxSeen.Load(); max > HardMaxConcurrency {
		t.Fatalf("observed %d concurrent fetches, hard cap is %d", max, HardMaxConcurrency)
	}
}

func TestBatchResultsInInputOrder(t *testing.T) {
	t.Parallel()

	urls := batchURLs(8)
	fetcher := &fakeFetcher{delay: 5 * time.Millisecond}
	svc, _ := newTestService(t, fetcher, Options{})

	result, err := svc.Batch(context.Background(), BatchRequest{URLs: urls, MaxConcurrency: 4})
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if len(result.Items) != len(urls) {
		t.Fatalf("expected %d items, got %d", len(urls), len(result.Items))
	}
	for i, item := range result.Items {
		if item.URL != urls[i] {
			t.Fatalf("item %d out of order: %q", i, item.URL)
		}
	}
}

func TestBatchPartialFailure(t *testing.T) {
	t.Parallel()

	urls := batchURLs(5)
	fetcher := &fakeFetcher{
		failWith: map[string]error{urls[2]: &fetch.HTTPStatusError{Status: 500}},
	}
	svc, _ := newTestService(t, fetcher, Options{})

	result, err := svc.Batch(context.Background(), BatchRequest{URLs: urls, MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if result.Summary.Failed != 1 || result.Summary.Succeeded != 4 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	failed := result.Items[2]
	if failed.Status != OutcomeFailed || failed.ErrorMsg == "" {
		t.Fatalf("expected item 2 failed with message, got %+v", failed)
	}
	var statusErr *fetch.HTTPStatusError
	if !errors.As(failed.Err, &statusErr) {
		t.Fatalf("expected typed error preserved, got %v", failed.Err)
	}
}

func TestBatchSummaryMatchesItems(t *testing.T) {
	t.Parallel()

	urls := batchURLs(4)
	fetcher := &fakeFetcher{}
	svc, _ := newTestService(t, fetcher, Options{})
	ctx := context.Background()

	// Pre-warm one URL so the batch sees a cached outcome.
	if _, err := svc.Open(ctx, OpenRequest{URL: urls[0]}); err != nil {
		t.Fatalf("warm Open() error = %v", err)
	}

	result, err := svc.Batch(ctx, BatchRequest{URLs: urls, MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if result.Summary.Cached != 1 || result.Summary.Succeeded != 3 || result.Summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if result.Summary.Total != len(urls) {
		t.Fatalf("total mismatch: %+v", result.Summary)
	}

	counted := BatchSummary{Total: len(result.Items)}
	for _, item := range result.Items {
		switch item.Status {
		case OutcomeFetched:
			counted.Succeeded++
		case OutcomeCached:
			counted.Cached++
		default:
			counted.Failed++
		}
	}
	if counted != result.Summary {
		t.Fatalf("summary inconsistent with items: %+v vs %+v", counted, result.Summary)
	}
}

func TestBatchFailFastStopsNewWork(t *testing.T) {
	t.Parallel()

	urls := batchURLs(20)
	fetcher := &fakeFetcher{
		delay:    10 * time.Millisecond,
		failWith: map[string]error{urls[0]: &fetch.HTTPStatusError{Status: 500}},
	}
	svc, _ := newTestService(t, fetcher, Options{})

	result, err := svc.Batch(context.Background(), BatchRequest{
		URLs:           urls,
		MaxConcurrency: 1,
		FailFast:       true,
	})
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if result.Summary.Failed == 0 {
		t.Fatal("expected failures under fail-fast")
	}
	// With concurrency 1 and the first unit failing, most units never start.
	if calls := fetcher.calls.Load(); calls >= int64(len(urls)) {
		t.Fatalf("fail-fast must stop new work, saw %d fetches", calls)
	}
	// Every URL still gets an item, in order, with a reason.
	if len(result.Items) != len(urls) {
		t.Fatalf("expected %d items, got %d", len(urls), len(result.Items))
	}
	for i, item := range result.Items {
		if item.URL != urls[i] {
			t.Fatalf("item %d out of order: %q", i, item.URL)
		}
		if item.Status == OutcomeFailed && item.ErrorMsg == "" {
			t.Fatalf("failed item %d lacks a reason", i)
		}
	}
}
