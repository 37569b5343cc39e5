// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs one function per item with bounded concurrency and an
// optional rate limit, returning results in input order.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/pkg/types"
)

// Pool holds the settings shared by every Map call of a stage.
type Pool struct {
	concurrency int
	policy      types.FailurePolicy
	limiter     *httputil.Limiter
}

// New builds a Pool from cfg. Concurrency below 1 means sequential.
func New(cfg types.BatchConfig) *Pool {
	c := cfg.Concurrency
	if c < 1 {
		c = 1
	}
	policy := cfg.FailurePolicy
	if policy == "" {
		policy = types.FailFast
	}
	return &Pool{
		concurrency: c,
		policy:      policy,
		limiter:     httputil.NewLimiter(cfg.RequestsPerSecond, c),
	}
}

// Policy returns the failure policy the pool applies.
func (p *Pool) Policy() types.FailurePolicy { return p.policy }

// ItemError reports the failing item of a fail-fast Map.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Map calls fn for every item and returns the outputs in input order.
//
// Under FailFast the first error cancels the remaining items and is
// returned as an *ItemError. Under ContinueOnError every item runs and
// errs[i] holds the failure of item i; the returned error is then only a
// context error. errs is nil when nothing failed.
func Map[In, Out any](ctx context.Context, p *Pool, items []In, fn func(ctx context.Context, i int, item In) (Out, error)) (out []Out, errs []error, err error) {
	if p == nil {
		p = New(types.BatchConfig{})
	}
	out = make([]Out, len(items))
	itemErrs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return err
			}
			res, err := fn(gctx, i, item)
			if err != nil {
				if p.policy == types.ContinueOnError && ctx.Err() == nil {
					itemErrs[i] = err
					return nil
				}
				return &ItemError{Index: i, Err: err}
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for _, e := range itemErrs {
		if e != nil {
			return out, itemErrs, nil
		}
	}
	return out, nil, nil
}
