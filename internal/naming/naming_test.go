package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	return p
}

func TestConvertedScheme(t *testing.T) {
	s := ConvertedScheme("/media/Movie.2019.avi", "MKV")
	assert.Equal(t, "/media/Movie.2019.converted.mkv", s.Candidate(0))
	assert.Equal(t, "/media/Movie.2019.converted.1.mkv", s.Candidate(1))
	assert.Equal(t, "/media/Movie.2019.converted.12.mkv", s.Candidate(12))
}

func TestFailScheme(t *testing.T) {
	s := FailScheme("/media/A.mp4")
	assert.Equal(t, "/media/A.mp4.fail", s.Candidate(0))
	assert.Equal(t, "/media/A.mp4.fail_1", s.Candidate(1))
	assert.Equal(t, "/media/A.mp4.fail_2", s.Candidate(2))
}

func TestTempPath(t *testing.T) {
	assert.Equal(t, "/media/A.converted.mp4.temp", TempPath("/media/A.mkv", "mp4"))
}

func TestIsFailMarker(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"A.mp4.fail", true},
		{"A.mp4.fail_1", true},
		{"A.mp4.fail_23", true},
		{"/deep/dir/A.mkv.fail", true},
		{"A.mp4", false},
		{"Epic.failure.mkv", false},
		{"fail.mkv", false},
		{"A.mp4.fail_", false},
		{"A.mp4.fail_x", false},
		{"A.fail.mkv", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFailMarker(tt.name))
		})
	}
}

func TestResolve_NoCollision(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, dir, "A.avi")
	var r Resolver
	got, err := r.Resolve(ConvertedScheme(in, "mkv"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "A.converted.mkv"), got)
}

func TestResolve_ReturnsNPlusFirstCandidate(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d taken", n), func(t *testing.T) {
			dir := t.TempDir()
			in := touch(t, dir, "A.mp4")
			s := FailScheme(in)
			for i := 0; i < n; i++ {
				touch(t, dir, filepath.Base(s.Candidate(i)))
			}
			var r Resolver
			got, err := r.Resolve(s)
			require.NoError(t, err)
			assert.Equal(t, s.Candidate(n), got)
			_, err = os.Lstat(got)
			assert.True(t, os.IsNotExist(err), "resolved name must not exist")
		})
	}
}

func TestResolve_Exhausted(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, dir, "A.mp4")
	s := FailScheme(in)
	for i := 0; i < 3; i++ {
		touch(t, dir, filepath.Base(s.Candidate(i)))
	}
	r := Resolver{MaxAttempts: 3}
	_, err := r.Resolve(s)
	assert.ErrorIs(t, err, ErrCollisionsExhausted)
}

func TestResolve_MissingDirectory(t *testing.T) {
	var r Resolver
	_, err := r.Resolve(FailScheme(filepath.Join(t.TempDir(), "gone", "A.mp4")))
	assert.Error(t, err)
}

func TestRenameInto(t *testing.T) {
	dir := t.TempDir()
	in := touch(t, dir, "A.mp4")
	touch(t, dir, "A.mp4.fail")

	var r Resolver
	got, err := r.RenameInto(in, FailScheme(in))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "A.mp4.fail_1"), got)

	b, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "A.mp4", string(b), "content moved with the rename")
	b, _ = os.ReadFile(filepath.Join(dir, "A.mp4.fail"))
	assert.Equal(t, "A.mp4.fail", string(b), "existing marker untouched")
}

func TestRenameInto_Exhausted(t *testing.T) {
	dir := t.TempDir()
	tmp := touch(t, dir, "A.converted.mkv.temp")
	touch(t, dir, "A.converted.mkv")
	touch(t, dir, "A.converted.1.mkv")

	r := Resolver{MaxAttempts: 2}
	_, err := r.RenameInto(tmp, ConvertedScheme(filepath.Join(dir, "A.mkv"), "mkv"))
	assert.ErrorIs(t, err, ErrCollisionsExhausted)
	_, err = os.Stat(tmp)
	assert.NoError(t, err, "source stays when no name is free")
}

func TestLedger(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.mkv")
	l, err := ReadLedger(dir)
	require.NoError(t, err)
	assert.True(t, l.Has("x.mkv"))
	assert.False(t, l.Has("y.mkv"))
}
