package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Scheme produces candidate paths in one directory. Candidate(0) is the
// preferred name; higher n are the collision fallbacks.
type Scheme struct {
	Dir  string
	name func(n int) string
}

// Candidate returns the n-th candidate path.
func (s Scheme) Candidate(n int) string { return filepath.Join(s.Dir, s.name(n)) }

// ConvertedScheme names the final output for input in container ext:
// "<stem>.converted.<ext>", then "<stem>.converted.<n>.<ext>".
func ConvertedScheme(input, ext string) Scheme {
	stem := Stem(input)
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return Scheme{Dir: filepath.Dir(input), name: func(n int) string {
		if n == 0 {
			return stem + ".converted." + ext
		}
		return fmt.Sprintf("%s.converted.%d.%s", stem, n, ext)
	}}
}

// FailScheme names the failure marker for input: "<name>.fail", then
// "<name>.fail_<n>".
func FailScheme(input string) Scheme {
	base := filepath.Base(input)
	return Scheme{Dir: filepath.Dir(input), name: func(n int) string {
		if n == 0 {
			return base + ".fail"
		}
		return fmt.Sprintf("%s.fail_%d", base, n)
	}}
}

// TempPath is where the encoder writes before validation. It is the
// preferred converted name plus ".temp", so it is stable per input: a temp
// orphaned by a crash is overwritten by the next attempt and never matches
// the scanner's extension set.
func TempPath(input, ext string) string {
	return ConvertedScheme(input, ext).Candidate(0) + TempSuffix
}

// TempSuffix marks in-progress encoder output.
const TempSuffix = ".temp"

// Stem returns the file name without directory and final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var failMarker = regexp.MustCompile(`\.fail(_\d+)?$`)

// IsFailMarker reports whether name ends with a failure marker
// (".fail" or ".fail_<n>"). A name that merely contains "fail" elsewhere,
// like "Epic.failure.mkv", is not a marker.
func IsFailMarker(name string) bool {
	return failMarker.MatchString(filepath.Base(name))
}
