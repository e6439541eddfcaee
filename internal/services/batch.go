package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// BatchResult counts per-plant outcomes of a bulk operation.
type BatchResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

type itemOutcome int

const (
	itemSucceeded itemOutcome = iota
	itemSkipped
)

// forEachPlant runs fn for every plant with at most limit in flight. A failing or
// panicking item is counted and logged; it never stops the batch. Only a canceled
// ctx is returned as an error.
func forEachPlant(ctx context.Context, log *logger.Logger, plants []*types.Plant, limit int, fn func(context.Context, *types.Plant) (itemOutcome, error)) (BatchResult, error) {
	if limit < 1 {
		limit = 1
	}
	var ok, skipped, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(limit)
	for _, p := range plants {
		p := p
		if p == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					log.Error("Batch item panicked", "plant_id", p.ID, "panic", fmt.Sprint(r))
				}
			}()
			outcome, ferr := fn(ctx, p)
			switch {
			case ferr != nil:
				failed.Add(1)
				log.Warn("Batch item failed", "plant_id", p.ID, "error", ferr)
			case outcome == itemSkipped:
				skipped.Add(1)
			default:
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{
		Total:     len(plants),
		Succeeded: int(ok.Load()),
		Skipped:   int(skipped.Load()),
		Errored:   int(failed.Load()),
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
