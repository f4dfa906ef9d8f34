package mya

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
)

// fakeSampler synthesizes the table a mySampler call would have produced:
// NumSamples rows starting at the query's start time, spaced by its
// interval.
func fakeSampler(_ context.Context, query MySamplerQuery) (*dataframe.SampleTable, error) {
	interval, err := query.IntervalDuration()
	if err != nil {
		return nil, err
	}
	table := dataframe.NewSampleTable(query.PVList)
	for i := 0; i < query.NumSamples; i++ {
		values := make([]string, len(query.PVList))
		for j := range values {
			values[j] = fmt.Sprintf("%d.0", i)
		}
		if err := table.AddRow(query.Start.Add(time.Duration(i)*interval), values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func TestRunParallel_OffsetQueries(t *testing.T) {
	base := mustTime(t, "2022-02-01 00:00:00")
	queries := []MySamplerQuery{
		{Start: base.Add(10 * time.Second), Interval: "1s", NumSamples: 5, PVList: []string{"R123GMES"}},
		{Start: base, Interval: "1s", NumSamples: 5, PVList: []string{"R123GMES"}},
	}

	combined, err := RunParallel(context.Background(), queries, fakeSampler, 2)
	require.NoError(t, err)

	assert.Equal(t, 10, combined.NumRows())

	q0 := combined.LabelRows("query_0")
	require.Len(t, q0, 5)
	for i, row := range q0 {
		assert.Equal(t, base.Add(time.Duration(10+i)*time.Second), row.Timestamp)
	}

	q1 := combined.LabelRows("query_1")
	require.Len(t, q1, 5)
	for i, row := range q1 {
		assert.Equal(t, base.Add(time.Duration(i)*time.Second), row.Timestamp)
	}

	for _, row := range combined.Rows {
		assert.Contains(t, []string{"query_0", "query_1"}, row.Label)
	}
}

func TestRunParallel_RowCountIsSumOfQueryCounts(t *testing.T) {
	base := mustTime(t, "2022-02-01 00:00:00")
	var queries []MySamplerQuery
	want := 0
	for i := 1; i <= 6; i++ {
		queries = append(queries, MySamplerQuery{
			Start: base, Interval: "1s", NumSamples: i, PVList: []string{"R123GMES"},
		})
		want += i
	}

	combined, err := RunParallel(context.Background(), queries, fakeSampler, 3)
	require.NoError(t, err)
	assert.Equal(t, want, combined.NumRows())

	for i := range queries {
		assert.Len(t, combined.LabelRows(fmt.Sprintf("query_%d", i)), i+1)
	}
}

func TestRunParallel_PoolSizeIsBounded(t *testing.T) {
	const maxWorkers = 2

	var current, peak int64
	var mu sync.Mutex
	executor := func(ctx context.Context, query MySamplerQuery) (*dataframe.SampleTable, error) {
		n := atomic.AddInt64(&current, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return fakeSampler(ctx, query)
	}

	base := mustTime(t, "2022-02-01 00:00:00")
	queries := make([]MySamplerQuery, 8)
	for i := range queries {
		queries[i] = MySamplerQuery{Start: base, Interval: "1s", NumSamples: 1, PVList: []string{"R123GMES"}}
	}

	_, err := RunParallel(context.Background(), queries, executor, maxWorkers)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(maxWorkers))
}

func TestRunParallel_FirstErrorAbortsBatch(t *testing.T) {
	executor := func(ctx context.Context, query MySamplerQuery) (*dataframe.SampleTable, error) {
		if query.NumSamples == 0 {
			return nil, &ExecutionError{Source: "mySampler", Detail: "boom"}
		}
		// Siblings hang until the failed query cancels the batch context.
		<-ctx.Done()
		return nil, ctx.Err()
	}

	base := mustTime(t, "2022-02-01 00:00:00")
	queries := []MySamplerQuery{
		{Start: base, Interval: "1s", NumSamples: 1, PVList: []string{"R123GMES"}},
		{Start: base, Interval: "1s", NumSamples: 0, PVList: []string{"R123GMES"}},
	}

	combined, err := RunParallel(context.Background(), queries, executor, 2)
	assert.Nil(t, combined)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query_1")
}

func TestRunParallel_DefaultWorkerCount(t *testing.T) {
	base := mustTime(t, "2022-02-01 00:00:00")
	queries := []MySamplerQuery{
		{Start: base, Interval: "1s", NumSamples: 2, PVList: []string{"R123GMES"}},
	}

	combined, err := RunParallel(context.Background(), queries, fakeSampler, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, combined.NumRows())
}
