// Package check provides system diagnostics (--check mode), pre-run
// dependency validation (CheckDeps) for HandBrakeCLI and ffprobe, and the
// free-space probe used by the engine's guard.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/display"
	"github.com/backmassage/convert-videos/internal/handbrake"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrHandBrakeNotFound   = errors.New("HandBrakeCLI not found")
	ErrFFprobeNotFound     = errors.New("ffprobe not found")
	ErrEncoderNotAvailable = errors.New("encoder not supported by this HandBrakeCLI build")
)

// toolTimeout bounds every version or help query.
const toolTimeout = 15 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// RunCheck runs the --check flow: tool versions, HEVC encoders known to
// HandBrakeCLI, host resources and free space on the target directory.
// It is informational and reports whether every required piece was found.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")
	ok := true

	if v, err := Version(ctx, cfg.HandBrakePath, "--version"); err != nil {
		log.Error("HandBrakeCLI (%s): %v", cfg.HandBrakePath, err)
		ok = false
	} else {
		log.Success("HandBrakeCLI: %s", v)
		checkEncoders(ctx, cfg, log)
	}

	if v, err := Version(ctx, cfg.FFprobePath, "-version"); err != nil {
		log.Error("ffprobe (%s): %v", cfg.FFprobePath, err)
		ok = false
	} else {
		log.Success("ffprobe: %s", v)
	}

	checkHost(ctx, log)
	if cfg.Directory != "" {
		checkDisk(ctx, cfg.Directory, log)
	}
	return ok
}

// checkEncoders lists which HEVC encoder families the HandBrakeCLI build
// supports, marking the configured one.
func checkEncoders(ctx context.Context, cfg *config.Config, log Logger) {
	avail, err := Encoders(ctx, cfg.HandBrakePath)
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
		return
	}
	log.Info("HEVC encoders:")
	for _, enc := range config.Encoders {
		mark := " "
		if enc == cfg.Encoder {
			mark = "*"
		}
		if avail[enc] {
			log.Success(" %s %s (%s)", mark, enc, handbrake.EncoderName(enc))
		} else {
			log.Warn(" %s %s (%s) not available", mark, enc, handbrake.EncoderName(enc))
		}
	}
}

func checkHost(ctx context.Context, log Logger) {
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		log.Info("CPU threads: %d", n)
	} else {
		log.Debug("CPU count unavailable: %v", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		log.Info("Memory: %s available of %s", display.FormatBytes(int64(vm.Available)), display.FormatBytes(int64(vm.Total)))
	} else {
		log.Debug("Memory stats unavailable: %v", err)
	}
}

func checkDisk(ctx context.Context, dir string, log Logger) {
	u, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		log.Warn("Free space on %s unavailable: %v", dir, err)
		return
	}
	log.Info("Free space on %s: %s of %s (%.1f%% used)", dir,
		display.FormatBytes(int64(u.Free)), display.FormatBytes(int64(u.Total)), u.UsedPercent)
}

// CheckDeps is the pre-run validation: both tools must be runnable and
// the configured encoder must be supported by HandBrakeCLI. Returns a
// wrapped sentinel error on failure.
func CheckDeps(ctx context.Context, cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.HandBrakePath); err != nil {
		return fmt.Errorf("%w: %s", ErrHandBrakeNotFound, cfg.HandBrakePath)
	}
	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, cfg.FFprobePath)
	}
	avail, err := Encoders(ctx, cfg.HandBrakePath)
	if err != nil {
		// Older builds print help differently; the encode itself will fail
		// loudly if the encoder is really missing.
		return nil
	}
	if len(avail) > 0 && !avail[cfg.Encoder] {
		return fmt.Errorf("%w: %s", ErrEncoderNotAvailable, handbrake.EncoderName(cfg.Encoder))
	}
	return nil
}

// FreeSpace returns the bytes available on the volume holding path.
func FreeSpace(path string) (uint64, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// Version runs bin with the given version flag and returns the first
// non-empty line of its output.
func Version(ctx context.Context, bin, flag string) (string, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return "", errors.New("not found")
	}
	out, err := output(ctx, bin, flag)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l, nil
		}
	}
	return "", errors.New("no version output")
}

// Encoders reports which HEVC encoder families appear in the video encoder
// list of `HandBrakeCLI --help`.
func Encoders(ctx context.Context, bin string) (map[config.Encoder]bool, error) {
	out, err := output(ctx, bin, "--help")
	if err != nil && out == "" {
		return nil, err
	}
	return parseEncoders(out), nil
}

// parseEncoders scans help text for encoder names listed one per line.
// Matching whole lines keeps x265 from matching x265_10bit.
func parseEncoders(help string) map[config.Encoder]bool {
	names := make(map[string]bool)
	for _, line := range strings.Split(help, "\n") {
		names[strings.TrimSpace(line)] = true
	}
	avail := make(map[config.Encoder]bool)
	for _, enc := range config.Encoders {
		if names[handbrake.EncoderName(enc)] {
			avail[enc] = true
		}
	}
	return avail
}

// output runs a short-lived tool query with a timeout and returns the
// combined output. HandBrakeCLI writes its version banner to stderr on
// some builds.
func output(ctx context.Context, bin string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	return string(out), err
}
