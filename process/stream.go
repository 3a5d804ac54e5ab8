package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// maxStderr bounds the stderr tail kept for diagnostics.
const maxStderr = 4096

// Stream is a running subprocess whose stdout is read incrementally.
type Stream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser
	stderr *tailBuffer

	waitOnce sync.Once
	waitErr  error
	done     chan struct{}
}

// Start launches cmd and returns once it is running. Stop or cancelling
// ctx terminates the process group.
func Start(ctx context.Context, cmd Command) (*Stream, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	cmd.configure(c)

	stdout, err := c.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	stderr := &tailBuffer{max: maxStderr}
	c.Stderr = stderr

	if err := c.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}

	s := &Stream{cmd: c, cancel: cancel, stdout: stdout, stderr: stderr, done: make(chan struct{})}
	return s, nil
}

// Stdout returns the process output. Reads return io.EOF once the process
// exits or is stopped.
func (s *Stream) Stdout() io.Reader { return s.stdout }

// Stderr returns the most recent stderr output.
func (s *Stream) Stderr() string { return s.stderr.String() }

// Pid returns the process id.
func (s *Stream) Pid() int { return s.cmd.Process.Pid }

// Wait blocks until the process exits and returns its exit error. It may be
// called more than once and from several goroutines.
func (s *Stream) Wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
		s.cancel()
		close(s.done)
	})
	<-s.done
	return s.waitErr
}

// Stop terminates the process group and waits for it to exit. It is safe
// to call more than once.
func (s *Stream) Stop() error {
	s.cancel()
	err := s.Wait()
	if err != nil && s.cmd.ProcessState != nil && !s.cmd.ProcessState.Success() {
		// Termination by our own signal is the expected outcome.
		return nil
	}
	return err
}

// Done is closed once the process has been waited for.
func (s *Stream) Done() <-chan struct{} { return s.done }

type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.max; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
