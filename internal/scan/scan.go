// Package scan discovers conversion candidates under a directory tree.
package scan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/naming"
)

// DefaultExtensions are the container extensions considered for conversion
// (lowercase, without the dot).
var DefaultExtensions = []string{"mp4", "mkv", "mov", "avi"}

// Logger is the subset of the application logger the scanner needs.
type Logger interface {
	Warn(string, ...interface{})
	Debug(string, ...interface{})
}

// DiscoveryError reports a directory that could not be read. It aborts the
// whole run.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Options controls which files become candidates.
type Options struct {
	MinSize    int64    // files smaller than this are never yielded
	Extensions []string // nil means DefaultExtensions
	Log        Logger
}

// Scanner walks a tree and yields candidates largest first.
type Scanner struct {
	minSize int64
	exts    map[string]bool
	log     Logger
}

// New returns a Scanner for opts.
func New(opts Options) *Scanner {
	exts := opts.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}
	s := &Scanner{minSize: opts.MinSize, exts: make(map[string]bool, len(exts)), log: opts.Log}
	for _, e := range exts {
		s.exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return s
}

// Match applies the name-based filters: a known extension and no failure
// marker.
func (s *Scanner) Match(name string) bool {
	if naming.IsFailMarker(name) {
		return false
	}
	return s.exts[extOf(name)]
}

// Discovery is the result of one walk: the candidates in processing order.
type Discovery struct {
	Root  string
	Files []media.File // descending size, ties by path

	s   *Scanner
	ctx context.Context
}

// Discover walks root, following symlinks, and returns the candidates
// sorted by descending size (ties by path). Any unreadable directory is a
// [*DiscoveryError].
func (s *Scanner) Discover(ctx context.Context, root string) (*Discovery, error) {
	w := walker{s: s, ctx: ctx, visited: make(map[string]bool), seen: make(map[string]seenFile)}
	if err := w.dir(root); err != nil {
		return nil, err
	}

	slices.SortFunc(w.found, func(a, b media.File) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return &Discovery{Root: root, Files: w.found, s: s, ctx: ctx}, nil
}

// TotalSize sums the sizes recorded by the walk.
func (d *Discovery) TotalSize() int64 {
	var n int64
	for _, f := range d.Files {
		n += f.Size
	}
	return n
}

// All returns the candidates as a lazy sequence. Each file is stat'ed again
// right before it is yielded, so files removed or shrunk below the size
// threshold since the walk are skipped.
func (d *Discovery) All() iter.Seq[media.File] {
	return func(yield func(media.File) bool) {
		for _, f := range d.Files {
			if d.ctx.Err() != nil {
				return
			}
			fi, err := os.Stat(f.Path)
			if err != nil {
				d.s.warn("Skipping %s: %v", f.Path, err)
				continue
			}
			if fi.Size() < d.s.minSize {
				d.s.debug("Skipping %s: shrank below the size threshold", f.Path)
				continue
			}
			f.Size = fi.Size()
			if !yield(f) {
				return
			}
		}
	}
}

// Scan is Discover reduced to its lazy sequence.
func (s *Scanner) Scan(ctx context.Context, root string) (iter.Seq[media.File], error) {
	d, err := s.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	return d.All(), nil
}

type walker struct {
	s       *Scanner
	ctx     context.Context
	visited map[string]bool     // resolved real paths of directories already walked
	seen    map[string]seenFile // resolved real paths of files already found
	found   []media.File
}

type seenFile struct {
	index int  // position in found
	link  bool // found through a symlink entry
}

func (w *walker) dir(path string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return &DiscoveryError{Path: path, Err: err}
	}
	if w.visited[real] {
		w.s.debug("Skipping %s: directory already visited via %s", path, real)
		return nil
	}
	w.visited[real] = true

	entries, err := os.ReadDir(path)
	if err != nil {
		return &DiscoveryError{Path: path, Err: err}
	}
	for _, e := range entries {
		p := filepath.Join(path, e.Name())
		mode := e.Type()
		link := mode&fs.ModeSymlink != 0
		if link {
			fi, err := os.Stat(p)
			if err != nil {
				w.s.warn("Skipping broken link %s: %v", p, err)
				continue
			}
			mode = fi.Mode().Type()
		}
		switch {
		case mode.IsDir():
			if err := w.dir(p); err != nil {
				return err
			}
		case mode.IsRegular():
			w.file(p, link)
		}
	}
	return nil
}

// file records a candidate once per physical file. When the same file is
// reachable by several paths, a plain entry wins over a symlink entry, and
// otherwise the first path walked wins.
func (w *walker) file(path string, link bool) {
	if !w.s.Match(path) {
		return
	}
	fi, err := os.Stat(path)
	if err != nil {
		w.s.warn("Cannot stat %s: %v", path, err)
		return
	}
	if fi.Size() < w.s.minSize {
		return
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.s.warn("Cannot resolve %s: %v", path, err)
		return
	}
	if prev, ok := w.seen[real]; ok {
		if prev.link && !link {
			w.s.debug("Using %s instead of link %s", path, w.found[prev.index].Path)
			w.found[prev.index].Path = path
			w.found[prev.index].Ext = extOf(path)
			w.seen[real] = seenFile{index: prev.index}
			return
		}
		w.s.debug("Skipping %s: same file as %s", path, w.found[prev.index].Path)
		return
	}
	w.seen[real] = seenFile{index: len(w.found), link: link}
	w.found = append(w.found, media.File{
		Path:  path,
		Size:  fi.Size(),
		Ext:   extOf(path),
		State: media.StateDiscovered,
	})
}

func (s *Scanner) warn(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Warn(format, args...)
	}
}

func (s *Scanner) debug(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Debug(format, args...)
	}
}

func extOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsDiscoveryError reports whether err is a discovery failure.
func IsDiscoveryError(err error) bool {
	var e *DiscoveryError
	return errors.As(err, &e)
}
