//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package handbrake

import (
	"context"
	"os/exec"
)

func priorityCommand(ctx context.Context, args []string, _ int) (*exec.Cmd, func(*exec.Cmd) error) {
	return exec.CommandContext(ctx, args[0], args[1:]...), nil
}
