package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/backmassage/convert-videos/internal/fsx"
)

// DefaultMaxAttempts bounds the suffix search.
const DefaultMaxAttempts = 100

// ErrCollisionsExhausted is returned when every candidate up to the bound
// is taken.
var ErrCollisionsExhausted = errors.New("naming collisions exhausted")

// Ledger is the set of sibling names present in a directory when it was
// read. It lives for one resolution only; nothing is cached across files.
type Ledger map[string]struct{}

// ReadLedger lists dir into a Ledger.
func ReadLedger(dir string) (Ledger, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	l := make(Ledger, len(entries))
	for _, e := range entries {
		l[e.Name()] = struct{}{}
	}
	return l, nil
}

// Has reports whether name (a base name) was present.
func (l Ledger) Has(name string) bool {
	_, ok := l[name]
	return ok
}

// Resolver picks free names from a [Scheme]. The zero value uses
// DefaultMaxAttempts.
type Resolver struct {
	MaxAttempts int
}

func (r *Resolver) max() int {
	if r == nil || r.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return r.MaxAttempts
}

// Resolve returns the first candidate of s that does not exist. Given N
// consecutive taken candidates it returns candidate N.
func (r *Resolver) Resolve(s Scheme) (string, error) {
	ledger, err := ReadLedger(s.Dir)
	if err != nil {
		return "", err
	}
	return r.next(s, ledger, 0)
}

// next scans candidates from n, consulting the ledger and then the disk.
func (r *Resolver) next(s Scheme, ledger Ledger, n int) (string, error) {
	for ; n < r.max(); n++ {
		p := s.Candidate(n)
		if ledger.Has(filepath.Base(p)) {
			continue
		}
		exists, err := fsx.Exists(p)
		if err != nil {
			return "", err
		}
		if !exists {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %d candidates in %s", ErrCollisionsExhausted, r.max(), s.Dir)
}

// RenameInto moves src to the first free candidate of s and returns the
// chosen path. The rename never replaces an existing file; if another
// writer takes a candidate between the check and the rename, the next
// candidate is tried.
func (r *Resolver) RenameInto(src string, s Scheme) (string, error) {
	ledger, err := ReadLedger(s.Dir)
	if err != nil {
		return "", err
	}
	for {
		// Each lost race adds the taken name to the ledger, so this ends
		// in a rename or in ErrCollisionsExhausted.
		dst, err := r.next(s, ledger, 0)
		if err != nil {
			return "", err
		}
		err = fsx.RenameNoReplace(src, dst)
		if err == nil {
			return dst, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		ledger[filepath.Base(dst)] = struct{}{}
	}
}
