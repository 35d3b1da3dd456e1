package probe

import (
	"fmt"
	"math"
	"strconv"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
// Duration is kept verbatim so an absent value can be told apart from zero.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   string
	Size       int64
	BitRate    int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index         int
	Codec         string
	Width         int
	Height        int
	Duration      string
	IsAttachedPic bool
}

// Result is the parsed output of a single ffprobe JSON call.
// PrimaryVideo is the first non-attached-pic video stream (nil if none).
// The track counts tell what the copy-all audio and subtitle policy carries
// over.
type Result struct {
	Format          FormatInfo
	PrimaryVideo    *VideoStream
	AudioStreams    int
	SubtitleStreams int
}

// VideoCodec returns the primary video codec, or ErrProbe when the file has
// no usable video stream.
func (r *Result) VideoCodec() (string, error) {
	if r.PrimaryVideo == nil || r.PrimaryVideo.Codec == "" {
		return "", fmt.Errorf("%w: no video stream in %q", ErrProbe, r.Format.Filename)
	}
	return r.PrimaryVideo.Codec, nil
}

// DurationSeconds returns the container duration truncated to whole
// seconds, falling back to the primary video stream's duration. A missing,
// unparseable or non-positive duration is ErrDurationUnknown.
func (r *Result) DurationSeconds() (int64, error) {
	raw := r.Format.Duration
	if raw == "" && r.PrimaryVideo != nil {
		raw = r.PrimaryVideo.Duration
	}
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("%w: no duration reported", ErrDurationUnknown)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: unparseable duration %q", ErrDurationUnknown, raw)
	}
	secs := int64(f)
	if secs <= 0 {
		return 0, fmt.Errorf("%w: duration %q is not positive", ErrDurationUnknown, raw)
	}
	return secs, nil
}

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (r *Result) Resolution() string {
	if r.PrimaryVideo == nil || r.PrimaryVideo.Width <= 0 || r.PrimaryVideo.Height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(r.PrimaryVideo.Width) + "x" + strconv.Itoa(r.PrimaryVideo.Height)
}
