package mya

import "time"

// GenerateMySamplerQueries builds a series of numQueries identical sampling
// queries whose start times step forward queryInterval from begin. This is
// the "query ten minutes of data once every hour" pattern.
func GenerateMySamplerQueries(begin time.Time, numSamples int, interval string, queryInterval time.Duration, numQueries int, pvs []string, deployment string) []MySamplerQuery {
	queries := make([]MySamplerQuery, 0, numQueries)
	for i := 0; i < numQueries; i++ {
		queries = append(queries, MySamplerQuery{
			Start:      begin.Add(time.Duration(i) * queryInterval),
			Interval:   interval,
			NumSamples: numSamples,
			PVList:     pvs,
			Deployment: deployment,
		})
	}
	return queries
}

// GenerateMyDataQueries builds a series of numQueries myData windows of the
// given duration, each starting queryInterval after the previous one.
func GenerateMyDataQueries(begin time.Time, duration, queryInterval time.Duration, numQueries int, pvs []string) []MyDataQuery {
	queries := make([]MyDataQuery, 0, numQueries)
	for i := 0; i < numQueries; i++ {
		start := begin.Add(time.Duration(i) * queryInterval)
		queries = append(queries, MyDataQuery{
			Begin:  start,
			End:    start.Add(duration),
			PVList: pvs,
		})
	}
	return queries
}
