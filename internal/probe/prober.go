package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Sentinel errors. Every error returned by the ffprobe adapter wraps one of
// these so callers can classify failures with errors.Is.
var (
	ErrProbe           = errors.New("probe failed")
	ErrDurationUnknown = errors.New("duration unknown")
)

// Prober answers the two questions the conversion engine asks about a file.
type Prober interface {
	// Probe describes the streams of path. The codec of the primary video
	// stream comes from [Result.VideoCodec].
	Probe(ctx context.Context, path string) (*Result, error)
	// Duration returns the container duration in whole seconds (truncated).
	Duration(ctx context.Context, path string) (int64, error)
}

// FFprobe is the [Prober] backed by a single ffprobe JSON call per query.
type FFprobe struct {
	Bin string // ffprobe executable; "" means "ffprobe" on PATH
}

// New returns an ffprobe adapter for the given binary.
func New(bin string) *FFprobe { return &FFprobe{Bin: bin} }

// Probe implements [Prober] with one ffprobe run.
func (p *FFprobe) Probe(ctx context.Context, path string) (*Result, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: ffprobe %q: %v: %s", ErrProbe, path, err, msg)
		}
		return nil, fmt.Errorf("%w: ffprobe %q: %v", ErrProbe, path, err)
	}
	return ParseJSON(out)
}

// Duration implements [Prober].
func (p *FFprobe) Duration(ctx context.Context, path string) (int64, error) {
	r, err := p.Probe(ctx, path)
	if err != nil {
		if errors.Is(err, ErrProbe) {
			return 0, fmt.Errorf("%w: %w", ErrDurationUnknown, err)
		}
		return 0, err
	}
	return r.DurationSeconds()
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe JSON: %v", ErrProbe, err)
	}
	return buildResult(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index       int            `json:"index"`
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Duration    string         `json:"duration"`
	Disposition map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *Result {
	r := &Result{
		Format: FormatInfo{
			Filename:   raw.Format.Filename,
			FormatName: raw.Format.FormatName,
			Duration:   strings.TrimSpace(raw.Format.Duration),
			Size:       parseInt64(raw.Format.Size),
			BitRate:    parseInt64(raw.Format.BitRate),
		},
	}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			vs := VideoStream{
				Index:         s.Index,
				Codec:         strings.ToLower(s.CodecName),
				Width:         s.Width,
				Height:        s.Height,
				Duration:      strings.TrimSpace(s.Duration),
				IsAttachedPic: s.Disposition["attached_pic"] == 1,
			}
			if !vs.IsAttachedPic && r.PrimaryVideo == nil {
				r.PrimaryVideo = &vs
			}
		case "audio":
			r.AudioStreams++
		case "subtitle":
			r.SubtitleStreams++
		}
	}
	return r
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
