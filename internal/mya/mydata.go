package mya

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
	"github.com/JeffersonLab/mya-getter/internal/logging"

	"github.com/sirupsen/logrus"
)

// DefaultMyDataPath is where the certified myData binary lives on CEBAF
// machines.
const DefaultMyDataPath = "/usr/csite/certified/bin/myData"

// MyDataCLI wraps the myData command-line utility, which returns every
// archived update in a time window rather than evenly spaced samples.
type MyDataCLI struct {
	Path    string
	Options []string
}

// myData timestamps can carry fractional seconds.
var myDataLayouts = []string{
	"2006-01-02 15:04:05.999999",
	DateTimeLayout,
}

func (c *MyDataCLI) Run(ctx context.Context, query MyDataQuery) (*dataframe.SampleTable, error) {
	logger := logging.GetLogger()

	path := c.Path
	if path == "" {
		path = DefaultMyDataPath
	}
	args := query.Args()
	args = append(args, c.Options...)
	args = append(args, query.PVList...)

	logger.WithFields(logrus.Fields{
		"begin": query.Begin.Format(DateTimeLayout),
		"end":   query.End.Format(DateTimeLayout),
		"pvs":   len(query.PVList),
	}).Info("Starting myData query")

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExecutionError{Source: path, Detail: strings.TrimSpace(stderr.String()), Err: err}
	}

	return parseTabularOutput(path, stdout.String(), len(query.PVList), parseMyDataTimestamp)
}

func parseMyDataTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range myDataLayouts {
		var timestamp time.Time
		if timestamp, err = time.Parse(layout, s); err == nil {
			return timestamp, nil
		}
	}
	return time.Time{}, err
}
