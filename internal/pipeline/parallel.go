package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/peppi/internal/dataset"
)

// WorkItem holds a complex ready for enrichment.
type WorkItem struct {
	Seq     int
	Complex *dataset.Complex
}

// WorkResult holds an enriched complex. Stage failures are recorded in the
// complex status; Err is only set when the batch was cancelled.
type WorkResult struct {
	Seq     int
	Complex *dataset.Complex
	Err     error
}

// ParallelEnrich enriches work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (p *Pipeline) ParallelEnrich(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:     item.Seq,
					Complex: item.Complex,
					Err:     p.Enrich(ctx, item.Complex),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// feed sends complexes as work items and closes the channel. It stops
// early when ctx is cancelled.
func feed(ctx context.Context, complexes []*dataset.Complex) <-chan WorkItem {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, c := range complexes {
			select {
			case items <- WorkItem{Seq: i, Complex: c}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return items
}
