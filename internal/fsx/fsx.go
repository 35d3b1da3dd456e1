// Package fsx wraps the few filesystem mutations the engine performs so
// their failure modes are classified once: cross-device renames and
// no-replace renames onto an existing name.
package fsx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Replaceable for tests that simulate EXDEV and friends.
var renameNoReplaceFunc = renameNoReplace

// CrossDeviceError reports a rename that failed because source and target
// live on different filesystems. Renames are never emulated with
// copy+delete.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device rename %q -> %q: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is a cross-device rename failure.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// RenameNoReplace renames src to dst only if dst does not exist. When dst
// exists the error satisfies errors.Is(err, fs.ErrExist) and nothing moved.
// On Linux and Windows the check is atomic; elsewhere it is check-then-rename.
func RenameNoReplace(src, dst string) error {
	return classify(src, dst, renameNoReplaceFunc(src, dst))
}

// RemoveIfExists deletes path, treating "already gone" as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether path names anything, without following symlinks.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

func classify(src, dst string, err error) error {
	if err != nil && isEXDEV(err) {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	return err
}

// renameCheckFirst is the portable fallback: refuse when dst exists, then
// rename. A writer racing between the two steps can still be replaced.
func renameCheckFirst(src, dst string) error {
	exists, err := Exists(dst)
	if err != nil {
		return err
	}
	if exists {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}
