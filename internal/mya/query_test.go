package mya

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateTimeLayout, s)
	require.NoError(t, err)
	return parsed
}

func TestMySamplerQuery_Args(t *testing.T) {
	query := MySamplerQuery{
		Start:      mustTime(t, "2023-05-01 00:00:00"),
		Interval:   "1d",
		NumSamples: 15,
		PVList:     []string{"R1M1GMES", "R1Q1GMES"},
		Deployment: "history",
	}
	assert.Equal(t, []string{"-b", "2023-05-01 00:00:00", "-s", "1d", "-n", "15", "-m", "history"}, query.Args())

	query.Deployment = ""
	assert.Equal(t, []string{"-b", "2023-05-01 00:00:00", "-s", "1d", "-n", "15"}, query.Args())
}

func TestMySamplerQuery_WebParams(t *testing.T) {
	query := MySamplerQuery{
		Start:      mustTime(t, "2023-05-01 00:00:00"),
		Interval:   "1d",
		NumSamples: 15,
		PVList:     []string{"R1M1GMES", "R1Q1GMES"},
		Deployment: "history",
	}

	params, err := query.WebParams()
	require.NoError(t, err)
	assert.Equal(t, "R1M1GMES,R1Q1GMES", params.Get("c"))
	assert.Equal(t, "2023-05-01T00:00:00", params.Get("b"))
	assert.Equal(t, "15", params.Get("n"))
	assert.Equal(t, "history", params.Get("m"))
	assert.Equal(t, "86400000", params.Get("s"))
}

func TestIntervalMillis(t *testing.T) {
	cases := []struct {
		interval string
		want     int64
	}{
		{"1s", 1_000},
		{"30s", 30_000},
		{"1m", 60_000},
		{"2h", 7_200_000},
		{"1d", 86_400_000},
		{"1w", 604_800_000},
	}
	for _, tc := range cases {
		got, err := intervalMillis(tc.interval)
		require.NoError(t, err, tc.interval)
		assert.Equal(t, tc.want, got, tc.interval)
	}

	for _, bad := range []string{"", "s", "1", "1.5s", "1x", "1ss"} {
		_, err := intervalMillis(bad)
		assert.Error(t, err, bad)
	}
}

func TestMyDataQuery_Args(t *testing.T) {
	query := MyDataQuery{
		Begin:  mustTime(t, "2021-11-01 08:00:00"),
		End:    mustTime(t, "2021-11-01 09:00:00"),
		PVList: []string{"IBC0R08CRCUR1"},
	}
	assert.Equal(t, []string{"-b", "2021-11-01 08:00:00", "-e", "2021-11-01 09:00:00"}, query.Args())
}

func TestGenerateQueries(t *testing.T) {
	begin := mustTime(t, "2022-02-01 00:00:00")

	samplerQueries := GenerateMySamplerQueries(begin, 600, "1s", time.Hour, 3, []string{"R123GMES"}, "")
	require.Len(t, samplerQueries, 3)
	for i, q := range samplerQueries {
		assert.Equal(t, begin.Add(time.Duration(i)*time.Hour), q.Start)
		assert.Equal(t, 600, q.NumSamples)
		assert.Equal(t, "1s", q.Interval)
	}

	dataQueries := GenerateMyDataQueries(begin, 10*time.Minute, time.Hour, 2, []string{"R123GMES"})
	require.Len(t, dataQueries, 2)
	for i, q := range dataQueries {
		assert.Equal(t, begin.Add(time.Duration(i)*time.Hour), q.Begin)
		assert.Equal(t, q.Begin.Add(10*time.Minute), q.End)
	}
}
