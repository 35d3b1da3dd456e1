package handbrake

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/backmassage/convert-videos/internal/planner"
)

// stderrTailLines bounds how much encoder log is kept for failure summaries.
const stderrTailLines = 40

// waitDelay is how long a cancelled encoder gets to exit after being
// signalled before it is killed and its pipes are closed.
const waitDelay = 10 * time.Second

// Logger is the subset of the application logger the adapter writes to.
type Logger interface {
	Debug(format string, args ...any)
}

// HandBrake runs HandBrakeCLI as a child process.
type HandBrake struct {
	Bin string // HandBrakeCLI executable; "" means "HandBrakeCLI" on PATH
	Log Logger // optional; receives the command line and raw encoder output
}

// New returns a HandBrakeCLI adapter for the given binary.
func New(bin string, log Logger) *HandBrake { return &HandBrake{Bin: bin, Log: log} }

// Encode runs one encode described by plan and blocks until the encoder
// exits. onProgress, when non-nil, is called for every status line from
// the goroutine copying stdout; it must not block.
//
// A nonzero exit wraps ErrEncode together with a one-line summary of stderr.
// When ctx is cancelled the encoder is interrupted and ctx.Err() is
// returned, whatever the exit status.
func (h *HandBrake) Encode(ctx context.Context, plan *planner.Plan, onProgress ProgressFunc) error {
	args := Build(h.Bin, plan)
	cmd, afterStart := priorityCommand(ctx, args, plan.NiceLevel)
	cmd.WaitDelay = waitDelay
	h.debug("encoder command: %s", strings.Join(cmd.Args, " "))

	errs := &tail{n: stderrTailLines}
	stdout := &lineWriter{fn: func(line string) {
		if p, ok := ParseProgress(line); ok {
			if onProgress != nil {
				onProgress(p)
			}
			return
		}
		h.debug("handbrake: %s", line)
	}}
	stderr := &lineWriter{fn: func(line string) {
		errs.add(line)
		h.debug("handbrake: %s", line)
	}}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrEncode, args[0], err)
	}
	if afterStart != nil {
		if err := afterStart(cmd); err != nil {
			h.debug("could not lower encoder priority: %v", err)
		}
	}
	err := cmd.Wait()
	stdout.Flush()
	stderr.Flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit status %d: %s", ErrEncode, exitErr.ExitCode(), Summarize(errs.String()))
		}
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}

func (h *HandBrake) debug(format string, args ...any) {
	if h.Log != nil {
		h.Log.Debug(format, args...)
	}
}
