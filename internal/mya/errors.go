package mya

import "fmt"

// ExecutionError reports that an archive utility or the myquery service
// could not be executed: missing binary, non-zero exit status, or a non-2xx
// HTTP response.
type ExecutionError struct {
	Source string // command path or request URL
	Detail string // stderr tail or HTTP status
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("executing %s: %s", e.Source, e.Detail)
	}
	return fmt.Sprintf("executing %s: %v", e.Source, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ParseError reports output that could not be split into the expected
// column structure. No partial table is returned alongside it.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s output: %s", e.Source, e.Reason)
}
