package dataframe

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// DateLayout is the timestamp format used in CSV output. It matches the
// rewritten mySampler output format (date and time joined by an underscore).
const DateLayout = "2006-01-02_15:04:05"

// Sample is one row of query output: a timestamp plus one value per PV.
// Values are kept as strings because the archive utilities emit
// "<undefined>" for channels that were disconnected during the window.
type Sample struct {
	Timestamp time.Time
	Values    []string
}

// SampleTable holds the parsed output of a single query. Rows are in the
// order the utility produced them and the table is not mutated after parse.
type SampleTable struct {
	PVs  []string
	Rows []Sample
}

func NewSampleTable(pvs []string) *SampleTable {
	return &SampleTable{PVs: append([]string(nil), pvs...)}
}

func (t *SampleTable) AddRow(timestamp time.Time, values []string) error {
	if len(values) != len(t.PVs) {
		return fmt.Errorf("row has %d values, table has %d PV columns", len(values), len(t.PVs))
	}
	t.Rows = append(t.Rows, Sample{Timestamp: timestamp, Values: values})
	return nil
}

func (t *SampleTable) NumRows() int {
	return len(t.Rows)
}

// Value returns the value of the named PV in the given row.
func (t *SampleTable) Value(row int, pv string) (string, bool) {
	if row < 0 || row >= len(t.Rows) {
		return "", false
	}
	for i, name := range t.PVs {
		if name == pv {
			return t.Rows[row].Values[i], true
		}
	}
	return "", false
}

func (t *SampleTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Date"}, t.PVs...)); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, row.Timestamp.Format(DateLayout))
		record = append(record, row.Values...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LabeledSample is a Sample tagged with the label of the query it came from.
type LabeledSample struct {
	Label string
	Sample
}

// CombinedTable is the concatenation of several SampleTables produced by a
// parallel batch. Row order across labels follows completion order of the
// batch and is not specified; rows within one label keep their query's
// order.
type CombinedTable struct {
	PVs  []string
	Rows []LabeledSample
}

// Append concatenates a labeled result set onto the combined table. All
// appended tables must share the same PV column order; the first append
// fixes it.
func (c *CombinedTable) Append(label string, t *SampleTable) error {
	if c.PVs == nil {
		c.PVs = append([]string(nil), t.PVs...)
	} else if len(c.PVs) != len(t.PVs) {
		return fmt.Errorf("result set %q has %d PV columns, combined table has %d", label, len(t.PVs), len(c.PVs))
	} else {
		for i := range c.PVs {
			if c.PVs[i] != t.PVs[i] {
				return fmt.Errorf("result set %q PV column %d is %q, combined table has %q", label, i, t.PVs[i], c.PVs[i])
			}
		}
	}
	for _, row := range t.Rows {
		c.Rows = append(c.Rows, LabeledSample{Label: label, Sample: row})
	}
	return nil
}

func (c *CombinedTable) NumRows() int {
	return len(c.Rows)
}

// LabelRows returns the rows carrying the given label, in their original
// query order.
func (c *CombinedTable) LabelRows(label string) []LabeledSample {
	var rows []LabeledSample
	for _, row := range c.Rows {
		if row.Label == label {
			rows = append(rows, row)
		}
	}
	return rows
}

func (c *CombinedTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"query", "Date"}, c.PVs...)); err != nil {
		return err
	}
	for _, row := range c.Rows {
		record := make([]string, 0, len(row.Values)+2)
		record = append(record, row.Label, row.Timestamp.Format(DateLayout))
		record = append(record, row.Values...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
