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

// DefaultMySamplerPath is where the certified mySampler binary lives on
// CEBAF machines. Override with the MYSAMPLER_CMD environment variable or
// the Path field.
const DefaultMySamplerPath = "/usr/csite/certified/bin/mySampler"

// MySamplerCLI wraps the mySampler command-line utility.
type MySamplerCLI struct {
	Path    string   // command path; DefaultMySamplerPath when empty
	Options []string // extra arguments inserted before the PV list
}

// Run executes mySampler for one query and parses its output into a table.
// The utility prints a header line naming the Date column and each PV,
// followed by one line per sample.
func (c *MySamplerCLI) Run(ctx context.Context, query MySamplerQuery) (*dataframe.SampleTable, error) {
	logger := logging.GetLogger()

	path := c.Path
	if path == "" {
		path = DefaultMySamplerPath
	}
	args := query.Args()
	args = append(args, c.Options...)
	args = append(args, query.PVList...)

	logger.WithFields(logrus.Fields{
		"begin":   query.Start.Format(DateTimeLayout),
		"samples": query.NumSamples,
		"pvs":     len(query.PVList),
	}).Info("Starting mySampler query")

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExecutionError{Source: path, Detail: strings.TrimSpace(stderr.String()), Err: err}
	}

	logger.WithFields(logrus.Fields{
		"begin": query.Start.Format(DateTimeLayout),
		"pvs":   len(query.PVList),
	}).Info("Finished mySampler query")

	return parseTabularOutput(path, stdout.String(), len(query.PVList), func(s string) (time.Time, error) {
		return time.Parse(DateTimeLayout, s)
	})
}
