package ingest

import (
	"context"
	"sync"

	"photo-ingest/internal/logging"
	"photo-ingest/internal/workers"
)

// BatchItem is the outcome of one image in a batch submission. Items
// are returned in submission order; each image's run is independent, so
// a mix of successes and failures is normal.
type BatchItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// IngestBatch runs each request through its own ingestion run with a
// small bounded concurrency. The bound exists purely to limit memory
// and bandwidth, not for correctness; runs share no state.
func (c *Coordinator) IngestBatch(ctx context.Context, reqs []Request, maxConcurrent int) []BatchItem {
	if maxConcurrent < 1 {
		maxConcurrent = workers.ForIO(4)
	}
	if maxConcurrent > len(reqs) {
		maxConcurrent = len(reqs)
	}

	logging.Debug("ingest: batch of %d with concurrency %d", len(reqs), maxConcurrent)

	items := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := c.Ingest(ctx, req)
			items[i] = BatchItem{Index: i, Result: res, Err: err}
		}(i, req)
	}

	wg.Wait()
	return items
}
