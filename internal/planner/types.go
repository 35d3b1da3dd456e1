package planner

import (
	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/media"
)

// Action describes the per-file processing decision.
type Action int

const (
	ActionEncode Action = iota
	ActionSkip
)

func (a Action) String() string {
	if a == ActionSkip {
		return "skip"
	}
	return "encode"
}

// Plan holds the complete set of decisions for converting a single media
// file. It is produced by BuildPlan and consumed by the encoder adapter to
// construct command arguments and by the engine to finalize.
type Plan struct {
	Action     Action
	SkipReason media.Reason

	// Encoding.
	Encoder   config.Encoder
	Preset    string // already mapped to the encoder family
	Quality   int
	Container config.Container

	// Streams. Every audio and subtitle track is carried over unchanged.
	CopyAllAudio     bool
	CopyAllSubtitles bool

	// Scheduling priority offset for the encoder process (0 disables).
	NiceLevel int

	// Input and output.
	InputPath   string
	TempPath    string // encoder output until validation succeeds
	InputSize   int64
	SourceCodec string // probed codec of the input
}

// RequiredSpace is the free space demanded on the output volume before an
// encode starts. HEVC output is normally smaller than the source, so the
// input size is a safe upper bound.
func (p *Plan) RequiredSpace() int64 { return p.InputSize }
