package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"cityops/internal/activity"
	"cityops/internal/config"
)

// isTerminal reports whether f is an interactive terminal.
var isTerminal = func(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

// newActivityWriter sets up the activity sink from config and flags. Rows
// go to GreptimeDB when an endpoint is configured, otherwise to out, and are
// additionally appended to the configured JSONL log file. A nil out with no
// endpoint discards rows. The returned cleanup closes any opened files.
func newActivityWriter(a config.Activity, printOnly bool, out io.Writer) (activity.Writer, func(), error) {
	cleanup := func() {}

	base, err := baseWriter(a, printOnly, out)
	if err != nil {
		return nil, nil, err
	}
	if a.LogFile == "" {
		return base, cleanup, nil
	}
	fw, err := activity.NewFileWriter(a.LogFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fw.Close() }
	return activity.NewMultiWriter(base, fw), cleanup, nil
}

// baseWriter chooses the primary sink based on printOnly and the endpoint.
func baseWriter(a config.Activity, printOnly bool, out io.Writer) (activity.Writer, error) {
	if printOnly || a.GreptimeEndpoint == "" {
		return stdoutWriter(out), nil
	}
	gw, err := activity.NewGreptimeDBWriter(a.GreptimeEndpoint, a.Database, a.Table)
	if err != nil {
		return nil, err
	}
	return gw, nil
}

func stdoutWriter(out io.Writer) activity.Writer {
	if out == nil {
		return activity.Discard{}
	}
	if f, ok := out.(*os.File); ok && isTerminal(f) {
		return activity.NewColorWriter(out)
	}
	return activity.NewJSONWriter(out)
}
