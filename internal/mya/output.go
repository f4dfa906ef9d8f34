package mya

import (
	"fmt"
	"strings"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
)

// parseTabularOutput converts the human-readable columns both archive
// utilities print into a SampleTable. The first non-blank line is a header
// naming the Date column and each PV; every data line carries the date and
// time as two fields followed by one value per PV.
func parseTabularOutput(source, output string, numPVs int, parseTimestamp func(string) (time.Time, error)) (*dataframe.SampleTable, error) {
	var table *dataframe.SampleTable
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if table == nil {
			if fields[0] != "Date" {
				return nil, &ParseError{Source: source, Reason: fmt.Sprintf("expected header starting with Date, got %q", fields[0])}
			}
			if numPVs > 0 && len(fields)-1 != numPVs {
				return nil, &ParseError{Source: source, Reason: fmt.Sprintf("header names %d PVs, query asked for %d", len(fields)-1, numPVs)}
			}
			table = dataframe.NewSampleTable(fields[1:])
			continue
		}

		if len(fields) != len(table.PVs)+2 {
			return nil, &ParseError{Source: source, Reason: fmt.Sprintf("row has %d fields, expected %d", len(fields), len(table.PVs)+2)}
		}
		timestamp, err := parseTimestamp(fields[0] + " " + fields[1])
		if err != nil {
			return nil, &ParseError{Source: source, Reason: fmt.Sprintf("bad timestamp %q %q", fields[0], fields[1])}
		}
		if err := table.AddRow(timestamp, fields[2:]); err != nil {
			return nil, &ParseError{Source: source, Reason: err.Error()}
		}
	}

	if table == nil {
		return nil, &ParseError{Source: source, Reason: "empty output, no header line"}
	}
	return table, nil
}
