package handbrake

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEncode wraps every failure reported by the encoder process itself.
var ErrEncode = errors.New("encode failed")

// Known HandBrakeCLI failure signatures, checked in order. The first match
// becomes the one-line summary of a failed encode.
var stderrSignatures = []struct {
	re      *regexp.Regexp
	summary string
}{
	{regexp.MustCompile(`(?i)No space left on device`), "output volume is full"},
	{regexp.MustCompile(`(?i)Permission denied`), "permission denied"},
	{regexp.MustCompile(`(?i)No title found|scan: unrecognized file type|Invalid data found when processing input`), "input is not a readable video"},
	{regexp.MustCompile(`(?i)Invalid video encoder|encoder .* not (found|available)|Unknown encoder`), "encoder not available in this HandBrakeCLI build"},
	{regexp.MustCompile(`(?i)nvenc.*(failed|error|unsupported)|CUDA.*(error|failed)|No NVENC capable devices`), "NVENC initialization failed"},
	{regexp.MustCompile(`(?i)Invalid preset|preset .* not found`), "encoder preset rejected"},
	{regexp.MustCompile(`(?i)Failed to open .* for writing|avformat_write_header failed|muxer: .*failed`), "cannot write output"},
}

// Summarize returns a short description of why an encode failed, based on
// the stderr tail. Unknown failures fall back to the last non-empty line.
func Summarize(stderr string) string {
	for _, s := range stderrSignatures {
		if s.re.MatchString(stderr) {
			return s.summary
		}
	}
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no encoder output"
}
