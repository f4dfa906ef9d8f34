package mya

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the timestamp format the archive utilities accept on
// the command line and print in their output.
const DateTimeLayout = "2006-01-02 15:04:05"

// MySamplerQuery holds the arguments for one mySampler invocation: sample
// NumSamples values of each PV starting at Start, Interval apart.
type MySamplerQuery struct {
	Start      time.Time
	Interval   string // e.g. "1s", "30m", "1d"
	NumSamples int
	PVList     []string
	Deployment string // optional, e.g. "history"
}

// Args returns the mySampler command-line arguments, without the command
// path and without the PV list appended yet.
func (q MySamplerQuery) Args() []string {
	args := []string{
		"-b", q.Start.Truncate(time.Second).Format(DateTimeLayout),
		"-s", q.Interval,
		"-n", strconv.Itoa(q.NumSamples),
	}
	if q.Deployment != "" {
		args = append(args, "-m", q.Deployment)
	}
	return args
}

// WebParams converts the command-line arguments to their myquery
// counterparts. The service wants the inter-sample period in milliseconds.
func (q MySamplerQuery) WebParams() (url.Values, error) {
	millis, err := intervalMillis(q.Interval)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("c", strings.Join(q.PVList, ","))
	params.Set("b", q.Start.Truncate(time.Second).Format("2006-01-02T15:04:05"))
	params.Set("n", strconv.Itoa(q.NumSamples))
	params.Set("s", strconv.FormatInt(millis, 10))
	if q.Deployment != "" {
		params.Set("m", q.Deployment)
	}
	return params, nil
}

// IntervalDuration returns the sample interval as a time.Duration.
func (q MySamplerQuery) IntervalDuration() (time.Duration, error) {
	millis, err := intervalMillis(q.Interval)
	if err != nil {
		return 0, err
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// MyDataQuery holds the arguments for one myData invocation: every archived
// update of each PV between Begin and End.
type MyDataQuery struct {
	Begin  time.Time
	End    time.Time
	PVList []string
}

func (q MyDataQuery) Args() []string {
	return []string{
		"-b", q.Begin.Truncate(time.Second).Format(DateTimeLayout),
		"-e", q.End.Truncate(time.Second).Format(DateTimeLayout),
	}
}

const (
	millisPerSecond = 1_000
	millisPerMinute = 60_000
	millisPerHour   = 3_600_000
	millisPerDay    = 86_400_000
	millisPerWeek   = 604_800_000
)

var intervalPattern = regexp.MustCompile(`^(\d+)(\D)$`)

// intervalMillis parses mySampler interval strings such as "1s" or "30m".
// The multiplier is an integer because the mySampler CLI does not accept
// fractional intervals.
func intervalMillis(interval string) (int64, error) {
	match := intervalPattern.FindStringSubmatch(interval)
	if match == nil {
		return 0, fmt.Errorf("unsupported time specification %q", interval)
	}
	multiplier, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unsupported time specification %q", interval)
	}

	var millis int64
	switch match[2] {
	case "s":
		millis = millisPerSecond
	case "m":
		millis = millisPerMinute
	case "h":
		millis = millisPerHour
	case "d":
		millis = millisPerDay
	case "w":
		millis = millisPerWeek
	default:
		return 0, fmt.Errorf("unsupported time specification %q", interval)
	}
	return millis * multiplier, nil
}
