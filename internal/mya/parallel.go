package mya

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
	"github.com/JeffersonLab/mya-getter/internal/logging"
)

// DefaultMaxWorkers bounds the number of concurrent archive queries in a
// parallel batch.
const DefaultMaxWorkers = 8

// Executor runs a single query to completion and returns its parsed table.
type Executor[Q any] func(ctx context.Context, query Q) (*dataframe.SampleTable, error)

// RunParallel fans a batch of queries out over a fixed-size worker pool and
// concatenates the results. Each result row is labeled query_<i>, where i
// is the query's position in the input slice. Result sets are appended in
// completion order, so row order across labels is unspecified; rows within
// one label keep their query's order.
//
// The first executor error cancels the batch context, fails any in-flight
// queries, and aborts the whole call. There are no partial results and no
// per-query retries.
func RunParallel[Q any](ctx context.Context, queries []Q, executor Executor[Q], maxWorkers int) (*dataframe.CombinedTable, error) {
	logger := logging.GetLogger()
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxWorkers)

	combined := &dataframe.CombinedTable{}
	var mu sync.Mutex

	logger.WithField("queries", len(queries)).WithField("max_workers", maxWorkers).Info("Dispatching parallel queries")
	for i, query := range queries {
		label := fmt.Sprintf("query_%d", i)
		query := query
		group.Go(func() error {
			table, err := executor(ctx, query)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			mu.Lock()
			defer mu.Unlock()
			return combined.Append(label, table)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	logger.WithField("rows", combined.NumRows()).Info("Parallel queries complete")
	return combined, nil
}
