package trips

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
	"github.com/JeffersonLab/mya-getter/internal/logging"
	"github.com/JeffersonLab/mya-getter/internal/mya"
)

// Interval is one contiguous down-state period, half-open on the right.
type Interval struct {
	PV    string
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// DownStateIntervals turns a state-change series for one PV into the list
// of periods where the PV sat in the off state. Rows whose value is not
// numeric (the archive lost track of the PV) reset any interval in
// progress. Inconsistent sequences, such as two consecutive off
// transitions, drop the pending interval and log a warning.
func DownStateIntervals(table *dataframe.SampleTable, pv string, onState, offState float64) []Interval {
	logger := logging.GetLogger()

	var intervals []Interval
	var start *time.Time
	for i, row := range table.Rows {
		raw, ok := table.Value(i, pv)
		if !ok {
			return nil
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			start = nil
			continue
		}

		switch {
		case start == nil:
			if value != onState {
				t := row.Timestamp
				start = &t
			}
		case value == offState:
			logger.WithField("pv", pv).WithField("date", row.Timestamp).Warn("Found trip start with previous start still in memory")
			start = nil
		case value == onState:
			intervals = append(intervals, Interval{PV: pv, Start: *start, End: row.Timestamp})
			start = nil
		}
	}
	return intervals
}

// CollapseOverlapping merges overlapping intervals into single intervals
// spanning the earliest start and the latest end. The result is sorted by
// start time.
func CollapseOverlapping(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// OverlapAny reports, for each interval in the first list, whether it
// overlaps any interval in the second. Both lists must be sorted by start
// time. Useful for seeing whether one event (an RF trip, a raised flag)
// occurred during another.
func OverlapAny(intervals, others []Interval) []bool {
	overlaps := make([]bool, len(intervals))
	startJ := 0
	for i := range intervals {
		for j := startJ; j < len(others); j++ {
			if intervals[i].Overlaps(others[j]) {
				overlaps[i] = true
				startJ = j
				break
			}
			if others[j].Start.After(intervals[i].End) {
				break
			}
		}
	}
	return overlaps
}

// RemoveRepeats drops rows whose value for the given PV matches the
// previous row's value. Typical use is after collapsing a PV's value space
// down to on/off, which leaves long runs of identical states.
func RemoveRepeats(table *dataframe.SampleTable, pv string) *dataframe.SampleTable {
	out := dataframe.NewSampleTable(table.PVs)
	prev := ""
	for i, row := range table.Rows {
		current, ok := table.Value(i, pv)
		if !ok {
			return table
		}
		if i > 0 && current == prev {
			continue
		}
		out.AddRow(row.Timestamp, row.Values)
		prev = current
	}
	return out
}

// CombinedDownStateIntervals queries each PV's state changes over the
// window, extracts its down-state intervals, keeps those no longer than
// maxDuration (zero means keep all), and collapses the overlapping
// intervals across PVs into one non-overlapping set.
func CombinedDownStateIntervals(ctx context.Context, executor mya.Executor[mya.MyDataQuery], pvs []string, begin, end time.Time, onState, offState float64, maxDuration time.Duration) ([]Interval, error) {
	var all []Interval
	for _, pv := range pvs {
		table, err := executor(ctx, mya.MyDataQuery{Begin: begin, End: end, PVList: []string{pv}})
		if err != nil {
			return nil, err
		}
		for _, iv := range DownStateIntervals(table, pv, onState, offState) {
			if maxDuration > 0 && iv.Duration() > maxDuration {
				continue
			}
			all = append(all, iv)
		}
	}
	return CollapseOverlapping(all), nil
}
