package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/convert-videos/internal/config"
)

// mockLog records messages by level.
type mockLog struct {
	infos, successes, warns, errors []string
}

func (m *mockLog) Info(f string, a ...interface{}) { m.infos = append(m.infos, fmt.Sprintf(f, a...)) }
func (m *mockLog) Success(f string, a ...interface{}) {
	m.successes = append(m.successes, fmt.Sprintf(f, a...))
}
func (m *mockLog) Warn(f string, a ...interface{}) { m.warns = append(m.warns, fmt.Sprintf(f, a...)) }
func (m *mockLog) Error(f string, a ...interface{}) {
	m.errors = append(m.errors, fmt.Sprintf(f, a...))
}
func (m *mockLog) Debug(string, ...interface{}) {}

const sampleHelp = `Usage: HandBrakeCLI [options] -i <source> -o <destination>
   -e, --encoder <string>  Select video encoder:
                               svt_av1
                               x264
                               x265
                               x265_10bit
                               mpeg4
`

// fakeTool writes a shell script that prints body for any arguments.
func fakeTool(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestParseEncoders(t *testing.T) {
	avail := parseEncoders(sampleHelp)
	assert.True(t, avail[config.EncoderX265])
	assert.True(t, avail[config.EncoderX265_10])
	assert.False(t, avail[config.EncoderNVENCHEVC])
}

func TestVersion(t *testing.T) {
	bin := fakeTool(t, "HandBrakeCLI", `printf '\nHandBrake 1.8.2\n'`)
	v, err := Version(context.Background(), bin, "--version")
	require.NoError(t, err)
	assert.Equal(t, "HandBrake 1.8.2", v)

	_, err = Version(context.Background(), filepath.Join(t.TempDir(), "nope"), "--version")
	assert.Error(t, err)
}

func TestCheckDeps(t *testing.T) {
	hb := fakeTool(t, "HandBrakeCLI", "cat <<'EOF'\n"+sampleHelp+"EOF")
	fp := fakeTool(t, "ffprobe", "echo ffprobe version 6.1")

	cfg := config.DefaultConfig()
	cfg.HandBrakePath = hb
	cfg.FFprobePath = fp
	require.NoError(t, CheckDeps(context.Background(), &cfg))

	cfg.Encoder = config.EncoderNVENCHEVC
	err := CheckDeps(context.Background(), &cfg)
	assert.ErrorIs(t, err, ErrEncoderNotAvailable)
	assert.Contains(t, err.Error(), "nvenc_h265", "names the HandBrakeCLI encoder")

	cfg.FFprobePath = filepath.Join(t.TempDir(), "missing")
	assert.ErrorIs(t, CheckDeps(context.Background(), &cfg), ErrFFprobeNotFound)

	cfg.HandBrakePath = filepath.Join(t.TempDir(), "missing")
	assert.ErrorIs(t, CheckDeps(context.Background(), &cfg), ErrHandBrakeNotFound)
}

func TestRunCheck(t *testing.T) {
	hb := fakeTool(t, "HandBrakeCLI", `if [ "$1" = "--version" ]; then echo "HandBrake 1.8.2"; else cat <<'EOF'
`+sampleHelp+`EOF
fi`)
	cfg := config.DefaultConfig()
	cfg.HandBrakePath = hb
	cfg.FFprobePath = filepath.Join(t.TempDir(), "missing-ffprobe")
	cfg.Directory = t.TempDir()

	log := &mockLog{}
	ok := RunCheck(context.Background(), &cfg, log)

	assert.False(t, ok, "ffprobe is missing")
	assert.Contains(t, log.successes, "HandBrakeCLI: HandBrake 1.8.2")
	assert.Contains(t, log.successes, " * x265_10bit (x265_10bit)")
	assert.Contains(t, log.warns, "   nvenc_hevc (nvenc_h265) not available")
	require.Len(t, log.errors, 1)
	assert.Contains(t, log.errors[0], "ffprobe")
}

func TestFreeSpace(t *testing.T) {
	free, err := FreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)

	_, err = FreeSpace(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
