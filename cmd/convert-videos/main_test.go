package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/convert-videos/internal/config"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) config.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestRun_Version(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"--version"}, &out, &errOut, noEnv)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), config.Version)
}

func TestRun_Help(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-h"}, &out, &errOut, noEnv)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "--min-file-size")
}

func TestRun_BadFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"--no-such-flag"}, &out, &errOut, noEnv)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut.String(), "no-such-flag")
}

func TestRun_ConfigErrorNamesKeyAndLayer(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"--quality", "99", t.TempDir()}, &out, &errOut, noEnv)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut.String(), "quality")
	assert.Contains(t, errOut.String(), "cli")
}

func TestRun_MissingDirectory(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(nil, &out, &errOut, envOf(map[string]string{
		"VIDEO_CONVERTER_LOG_FILE": filepath.Join(t.TempDir(), "convert.log"),
	}))
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut.String(), "directory")
}

func TestRun_DirectoryNotFound(t *testing.T) {
	var out, errOut bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing")
	code := run([]string{"--no-color", "--log-file", filepath.Join(t.TempDir(), "c.log"), missing}, &out, &errOut, noEnv)
	assert.Equal(t, exitError, code)
	assert.Contains(t, out.String(), "Directory not usable")
}

func TestMain(m *testing.M) {
	// Keep a developer's ./config.yaml out of the picture.
	dir, err := os.MkdirTemp("", "convert-videos-main")
	if err != nil {
		panic(err)
	}
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}
