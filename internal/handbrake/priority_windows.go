//go:build windows

package handbrake

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// priorityCommand starts the encoder in the below-normal priority class.
// Windows has no nice levels, so any positive level maps to the same class.
func priorityCommand(ctx context.Context, args []string, level int) (*exec.Cmd, func(*exec.Cmd) error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if level <= 0 {
		return cmd, nil
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.BELOW_NORMAL_PRIORITY_CLASS}
	return cmd, setBelowNormal
}

// setBelowNormal re-applies the priority class after start; some launchers
// ignore the creation flag.
func setBelowNormal(cmd *exec.Cmd) error {
	h, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(cmd.Process.Pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.SetPriorityClass(h, windows.BELOW_NORMAL_PRIORITY_CLASS)
}
