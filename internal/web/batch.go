package web

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// HardMaxConcurrency caps the batch fan-out regardless of what the caller
// requests.
const HardMaxConcurrency = 16

// BatchRequest runs the open operation over many URLs.
type BatchRequest struct {
	URLs           []string
	Mode           Mode
	MaxConcurrency int
	FailFast       bool
	ForceRefresh   bool
	Accept         string
}

// BatchItem is the per-URL outcome. Items are returned in input order, not
// completion order.
type BatchItem struct {
	URL      string
	Status   Outcome
	Result   *OpenResult
	ErrorMsg string
	Err      error
}

// BatchSummary aggregates the per-item outcomes; it is always consistent
// with the returned items.
type BatchSummary struct {
	Total     int
	Succeeded int
	Cached    int
	Failed    int
}

// BatchResult is the full batch outcome.
type BatchResult struct {
	Items   []BatchItem
	Summary BatchSummary
}

// Batch dispatches each URL as an independent unit of work under a counting
// semaphore sized to min(requested, HardMaxConcurrency). A unit holds its
// slot for its entire duration and releases it regardless of outcome.
//
// With FailFast set, the first failure cancels the batch context: units not
// yet admitted are not started and in-flight units are cancelled at their
// next suspension point; outcomes already completed are still returned, and
// cancelled units are reported as failed.
func (s *Service) Batch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if len(req.URLs) == 0 {
		return nil, &InputError{Msg: "urls cannot be empty"}
	}
	if req.MaxConcurrency <= 0 {
		return nil, &InputError{Msg: "max_concurrency must be at least 1"}
	}
	limit := req.MaxConcurrency
	if limit > HardMaxConcurrency {
		limit = HardMaxConcurrency
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(limit))
	items := make([]BatchItem, len(req.URLs))

	var wg sync.WaitGroup
	var failed atomic.Bool

	for i, rawURL := range req.URLs {
		if err := sem.Acquire(batchCtx, 1); err != nil {
			// Batch cancelled before this unit was admitted.
			items[i] = BatchItem{URL: rawURL, Status: OutcomeFailed, ErrorMsg: err.Error(), Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()
			defer sem.Release(1)

			result, err := s.Open(batchCtx, OpenRequest{
				URL:          rawURL,
				Mode:         req.Mode,
				ForceRefresh: req.ForceRefresh,
				Accept:       req.Accept,
			})
			if err != nil {
				items[i] = BatchItem{URL: rawURL, Status: OutcomeFailed, ErrorMsg: err.Error(), Err: err}
				if req.FailFast && failed.CompareAndSwap(false, true) {
					cancel()
				}
				return
			}
			items[i] = BatchItem{URL: rawURL, Status: result.Outcome, Result: result}
		}(i, rawURL)
	}

	wg.Wait()

	summary := BatchSummary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case OutcomeFetched:
			summary.Succeeded++
		case OutcomeCached:
			summary.Cached++
		default:
			summary.Failed++
		}
	}
	return &BatchResult{Items: items, Summary: summary}, nil
}
