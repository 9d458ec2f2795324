// Package pipeline runs symbol batches through a provider and appends the
// resulting quotes to the run's artifact, one batch at a time and in the
// order the batches were given.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"securityprices/internal/provider"
)

// Policy decides what a batch with inconsistent extraction does to the run.
type Policy string

const (
	Abort Policy = "abort"
	Skip  Policy = "skip"
)

// Writer appends rows to the run's artifact.
type Writer interface {
	Append(quotes []provider.Quote) error
}

// Options contains configuration options for a run.
type Options struct {
	// MaxConcurrency bounds in-flight fetches. 1 or less runs strictly
	// sequentially: fetch, write, then the next batch.
	MaxConcurrency int
	// OnMismatch applies to provider.ErrLengthMismatch only; every other
	// error aborts.
	OnMismatch Policy
}

// DefaultOptions returns the sequential, abort-on-mismatch options.
func DefaultOptions() Options {
	return Options{MaxConcurrency: 1, OnMismatch: Abort}
}

// Summary describes a finished or aborted run.
type Summary struct {
	Batches int
	Rows    int
	Skipped int
}

type result struct {
	quotes []provider.Quote
	err    error
}

type runner struct {
	w       Writer
	opts    Options
	total   int
	summary Summary
}

// Run fetches every batch and appends its rows before moving on. The first
// unrecoverable error stops the run; rows of earlier batches stay written.
func Run(ctx context.Context, p provider.Provider, w Writer, batches [][]string, opts Options) (Summary, error) {
	if opts.OnMismatch == "" {
		opts.OnMismatch = Abort
	}
	r := &runner{w: w, opts: opts, total: len(batches)}
	var err error
	if opts.MaxConcurrency <= 1 {
		err = r.sequential(ctx, p, batches)
	} else {
		err = r.concurrent(ctx, p, batches)
	}
	return r.summary, err
}

func (r *runner) sequential(ctx context.Context, p provider.Provider, batches [][]string) error {
	for i, batch := range batches {
		var res result
		if len(batch) > 0 {
			res.quotes, res.err = p.Fetch(ctx, batch)
		}
		if err := r.commit(i, batch, res); err != nil {
			return err
		}
	}
	return nil
}

// concurrent fetches up to MaxConcurrency batches at once but commits them
// strictly in batch order. When a batch fails, fetches still in flight are
// canceled and nothing after it is written.
func (r *runner) concurrent(ctx context.Context, p provider.Provider, batches [][]string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]result, len(batches))
	done := make([]chan struct{}, len(batches))
	for i := range done {
		done[i] = make(chan struct{})
	}

	// g only bounds in-flight fetches. Workers record their error in
	// results and return nil so that commit sees failures in batch order.
	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrency)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, batch := range batches {
			g.Go(func() error {
				defer close(done[i])
				if err := ctx.Err(); err != nil {
					results[i].err = err
					return nil
				}
				if len(batch) > 0 {
					results[i].quotes, results[i].err = p.Fetch(ctx, batch)
				}
				return nil
			})
		}
	}()

	var runErr error
	for i, batch := range batches {
		<-done[i]
		if err := r.commit(i, batch, results[i]); err != nil {
			runErr = err
			break
		}
	}
	cancel()
	<-dispatched
	g.Wait() // always nil, see above
	return runErr
}

func (r *runner) commit(i int, batch []string, res result) error {
	n := i + 1
	if res.err != nil {
		if r.opts.OnMismatch == Skip && errors.Is(res.err, provider.ErrLengthMismatch) {
			log.Printf("batch %d/%d skipped: %v", n, r.total, res.err)
			r.summary.Batches++
			r.summary.Skipped++
			return nil
		}
		return fmt.Errorf("batch %d: %w", n, res.err)
	}
	if len(batch) == 0 {
		log.Printf("batch %d/%d is empty; nothing written", n, r.total)
		r.summary.Batches++
		return nil
	}
	if len(res.quotes) != len(batch) {
		return fmt.Errorf("batch %d: %w: got %d quotes for %d symbols", n, provider.ErrMissingSymbol, len(res.quotes), len(batch))
	}
	if err := r.w.Append(res.quotes); err != nil {
		return fmt.Errorf("batch %d: %w", n, err)
	}
	log.Printf("batch %d/%d: wrote %d rows", n, r.total, len(res.quotes))
	r.summary.Batches++
	r.summary.Rows += len(res.quotes)
	return nil
}
