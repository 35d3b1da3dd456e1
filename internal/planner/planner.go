package planner

import (
	"strings"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/naming"
)

// targetCodecs are the codec names ffprobe reports for HEVC.
var targetCodecs = map[string]bool{
	"hevc": true,
	"h265": true,
}

// IsTargetCodec reports whether codec is already HEVC.
func IsTargetCodec(codec string) bool {
	return targetCodecs[strings.ToLower(strings.TrimSpace(codec))]
}

// BuildPlan produces the Plan for a probed file. This is the decision the
// engine makes for every file once its codec is known:
//
//  1. Already HEVC: skip with no side effects.
//  2. Otherwise encode with the configured family, preset and quality into
//     the per-input temp path, copying every audio and subtitle track.
func BuildPlan(cfg *config.Config, f media.File) *Plan {
	plan := &Plan{
		InputPath:   f.Path,
		InputSize:   f.Size,
		SourceCodec: f.Codec,
	}
	if IsTargetCodec(f.Codec) {
		plan.Action = ActionSkip
		plan.SkipReason = media.ReasonAlreadyTarget
		return plan
	}

	plan.Action = ActionEncode
	plan.Encoder = cfg.Encoder
	plan.Preset = config.MapPreset(cfg.Preset, cfg.Encoder)
	plan.Quality = cfg.Quality
	plan.Container = cfg.Container
	plan.CopyAllAudio = true
	plan.CopyAllSubtitles = true
	plan.NiceLevel = cfg.NiceLevel
	plan.TempPath = naming.TempPath(f.Path, string(cfg.Container))
	return plan
}
