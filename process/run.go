package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Run executes a subprocess to completion. A non-zero exit is an error
// quoting the last stderr line; the Result is returned either way once the
// process started.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	cmd.configure(c)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("process: %s killed: %w", cmd.Binary, ctx.Err())
	case res.ExitCode < 0:
		return res, fmt.Errorf("process: %s: %w", cmd.Binary, err)
	}
	if msg := res.lastStderrLine(); msg != "" {
		return res, fmt.Errorf("process: %s exited %d: %s", cmd.Binary, res.ExitCode, msg)
	}
	return res, fmt.Errorf("process: %s exited %d", cmd.Binary, res.ExitCode)
}
