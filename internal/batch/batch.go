// Package batch runs one operation over many videos with a bounded number of workers.
// A failing item never stops the others; each item gets its own Outcome.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vidset/log"
	apperrors "vidset/pkg/errors"
)

type Outcome[T any] struct {
	Item  string
	Value T
	Err   error
}

func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

type Options struct {
	// Workers caps concurrent items; zero means one per CPU.
	Workers int
	// OnProgress is called after every finished item, possibly from several goroutines.
	OnProgress func(done, total int)
	// Operation labels log lines.
	Operation string
}

// Run applies fn to every item and returns the outcomes in input order.
func Run[T any](ctx context.Context, items []string, opts Options, fn func(ctx context.Context, item string) (T, error)) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			outcome := Outcome[T]{Item: item}
			if err := gctx.Err(); err != nil {
				outcome.Err = err
			} else {
				outcome.Value, outcome.Err = fn(gctx, item)
			}
			if outcome.Err != nil {
				log.GetLogger().Warn("batch item failed", zap.String("operation", opts.Operation),
					zap.String("path", item), zap.Error(outcome.Err))
			}
			outcomes[i] = outcome

			finished := int(done.Add(1))
			if opts.OnProgress != nil {
				opts.OnProgress(finished, len(items))
			}
			// never cancel siblings
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func Failed[T any](outcomes []Outcome[T]) []Outcome[T] {
	var failed []Outcome[T]
	for _, o := range outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err summarises failed items as a PartialBatchFailure, or returns nil when every item succeeded.
func Err[T any](outcomes []Outcome[T]) error {
	failed := Failed(outcomes)
	if len(failed) == 0 {
		return nil
	}
	items := make([]string, 0, len(failed))
	for _, o := range failed {
		items = append(items, o.Item)
	}
	return apperrors.WrapWithDetail(apperrors.CodePartialBatchFailure,
		fmt.Sprintf("部分条目处理失败 %d of %d items failed", len(failed), len(outcomes)),
		strings.Join(items, ", "), failed[0].Err)
}
