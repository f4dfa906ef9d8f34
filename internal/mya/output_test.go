package mya

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplerOutput = `Date                     R123GMES    R124GMES
2022-02-01 00:00:00          5.5         6.1
2022-02-01 00:00:01          5.6 <undefined>
2022-02-01 00:00:02          5.7         6.3
`

func parseSamplerTimestamp(s string) (time.Time, error) {
	return time.Parse(DateTimeLayout, s)
}

func TestParseTabularOutput(t *testing.T) {
	table, err := parseTabularOutput("mySampler", samplerOutput, 2, parseSamplerTimestamp)
	require.NoError(t, err)

	assert.Equal(t, []string{"R123GMES", "R124GMES"}, table.PVs)
	require.Equal(t, 3, table.NumRows())

	assert.Equal(t, mustTime(t, "2022-02-01 00:00:00"), table.Rows[0].Timestamp)
	assert.Equal(t, []string{"5.5", "6.1"}, table.Rows[0].Values)
	assert.Equal(t, []string{"5.6", "<undefined>"}, table.Rows[1].Values)

	// Sample spacing survives the parse.
	for i := 1; i < table.NumRows(); i++ {
		assert.Equal(t, time.Second, table.Rows[i].Timestamp.Sub(table.Rows[i-1].Timestamp))
	}
}

func TestParseTabularOutput_MissingHeader(t *testing.T) {
	out := "2022-02-01 00:00:00 5.5\n"
	table, err := parseTabularOutput("mySampler", out, 1, parseSamplerTimestamp)
	assert.Nil(t, table)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "header")
}

func TestParseTabularOutput_EmptyOutput(t *testing.T) {
	_, err := parseTabularOutput("mySampler", "\n\n", 1, parseSamplerTimestamp)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParseTabularOutput_ColumnCountMismatch(t *testing.T) {
	out := "Date R123GMES\n2022-02-01 00:00:00 5.5 extra\n"
	_, err := parseTabularOutput("mySampler", out, 1, parseSamplerTimestamp)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "fields")
}

func TestParseTabularOutput_HeaderPVCountMismatch(t *testing.T) {
	out := "Date R123GMES\n"
	_, err := parseTabularOutput("mySampler", out, 2, parseSamplerTimestamp)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParseTabularOutput_BadTimestamp(t *testing.T) {
	out := "Date R123GMES\nnot-a-date 00:00:00 5.5\n"
	_, err := parseTabularOutput("mySampler", out, 1, parseSamplerTimestamp)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "timestamp")
}

func TestParseMyDataTimestamp(t *testing.T) {
	ts, err := parseMyDataTimestamp("2021-11-07 01:00:00.123456")
	require.NoError(t, err)
	assert.Equal(t, 123456000, ts.Nanosecond())

	ts, err = parseMyDataTimestamp("2021-11-07 01:00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, ts.Nanosecond())

	_, err = parseMyDataTimestamp("garbage")
	assert.Error(t, err)
}

func TestMySamplerCLI_MissingBinary(t *testing.T) {
	cli := &MySamplerCLI{Path: "/nonexistent/mySampler"}
	_, err := cli.Run(context.Background(), MySamplerQuery{
		Start:      mustTime(t, "2022-02-01 00:00:00"),
		Interval:   "1s",
		NumSamples: 5,
		PVList:     []string{"R123GMES"},
	})

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
}

func TestMyDataCLI_MissingBinary(t *testing.T) {
	cli := &MyDataCLI{Path: "/nonexistent/myData"}
	_, err := cli.Run(context.Background(), MyDataQuery{
		Begin:  mustTime(t, "2022-02-01 00:00:00"),
		End:    mustTime(t, "2022-02-01 01:00:00"),
		PVList: []string{"R123GMES"},
	})

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
}
