//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package handbrake

import (
	"context"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// priorityCommand prefixes args with `nice -n level` when nice is on PATH.
// Otherwise the returned hook lowers the child's priority with setpriority
// once it has started. Cancellation sends SIGINT so HandBrakeCLI can close
// its output cleanly before WaitDelay expires.
func priorityCommand(ctx context.Context, args []string, level int) (*exec.Cmd, func(*exec.Cmd) error) {
	var (
		cmd        *exec.Cmd
		afterStart func(*exec.Cmd) error
	)
	nice, err := exec.LookPath("nice")
	switch {
	case level <= 0:
		cmd = exec.CommandContext(ctx, args[0], args[1:]...)
	case err == nil:
		niceArgs := append([]string{"-n", strconv.Itoa(level)}, args...)
		cmd = exec.CommandContext(ctx, nice, niceArgs...)
	default:
		cmd = exec.CommandContext(ctx, args[0], args[1:]...)
		afterStart = func(c *exec.Cmd) error {
			return unix.Setpriority(unix.PRIO_PROCESS, c.Process.Pid, level)
		}
	}
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	return cmd, afterStart
}
