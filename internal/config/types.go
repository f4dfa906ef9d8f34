package config

import (
	"fmt"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/mya"
)

// Subcommand names accepted in a batch config file.
const (
	SubcommandMySampler = "mysampler"
	SubcommandMyData    = "mydata"
)

// BatchConfig is a parsed batch file: which utility to run and the queries
// to fan out to it.
type BatchConfig struct {
	Subcommand string       `yaml:"subcommand"`
	LogLevel   string       `yaml:"log_level,omitempty"`
	MaxWorkers int          `yaml:"max_workers,omitempty"`
	Queries    []QueryGroup `yaml:"queries"`
}

// QueryGroup applies one PV list to a set of time periods.
type QueryGroup struct {
	PVList  []string `yaml:"pvlist"`
	Periods []Period `yaml:"periods"`
}

// Period is one time window. mysampler periods set start, interval and
// num_samples; mydata periods set begin and end.
type Period struct {
	Start      string `yaml:"start,omitempty"`
	Interval   string `yaml:"interval,omitempty"`
	NumSamples int    `yaml:"num_samples,omitempty"`
	Deployment string `yaml:"deployment,omitempty"`

	Begin string `yaml:"begin,omitempty"`
	End   string `yaml:"end,omitempty"`
}

// MySamplerQueries flattens the config into one query per (group, period).
func (c *BatchConfig) MySamplerQueries() ([]mya.MySamplerQuery, error) {
	var queries []mya.MySamplerQuery
	for _, group := range c.Queries {
		for _, period := range group.Periods {
			start, err := time.Parse(mya.DateTimeLayout, period.Start)
			if err != nil {
				return nil, fmt.Errorf("invalid period start %q: %w", period.Start, err)
			}
			queries = append(queries, mya.MySamplerQuery{
				Start:      start,
				Interval:   period.Interval,
				NumSamples: period.NumSamples,
				PVList:     group.PVList,
				Deployment: period.Deployment,
			})
		}
	}
	return queries, nil
}

// MyDataQueries flattens the config into one query per (group, period).
func (c *BatchConfig) MyDataQueries() ([]mya.MyDataQuery, error) {
	var queries []mya.MyDataQuery
	for _, group := range c.Queries {
		for _, period := range group.Periods {
			begin, err := time.Parse(mya.DateTimeLayout, period.Begin)
			if err != nil {
				return nil, fmt.Errorf("invalid period begin %q: %w", period.Begin, err)
			}
			end, err := time.Parse(mya.DateTimeLayout, period.End)
			if err != nil {
				return nil, fmt.Errorf("invalid period end %q: %w", period.End, err)
			}
			queries = append(queries, mya.MyDataQuery{
				Begin:  begin,
				End:    end,
				PVList: group.PVList,
			})
		}
	}
	return queries, nil
}
