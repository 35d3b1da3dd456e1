package handbrake

import (
	"strconv"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/planner"
)

// encoderNames maps encoder families to HandBrakeCLI -e values.
var encoderNames = map[config.Encoder]string{
	config.EncoderX265:      "x265",
	config.EncoderX265_10:   "x265_10bit",
	config.EncoderNVENCHEVC: "nvenc_h265",
}

// EncoderName returns the HandBrakeCLI -e value for enc, which is also the
// name HandBrakeCLI lists in its --help output.
func EncoderName(enc config.Encoder) string { return encoderNames[enc] }

// formatNames maps containers to HandBrakeCLI -f values.
var formatNames = map[config.Container]string{
	config.ContainerMKV: "av_mkv",
	config.ContainerMP4: "av_mp4",
}

// Build constructs the complete HandBrakeCLI argument slice for a plan,
// starting with bin. Video is re-encoded at constant quality; every audio
// track is passed through (AAC fallback when the container cannot carry
// the source codec) and every subtitle track is kept.
func Build(bin string, plan *planner.Plan) []string {
	if bin == "" {
		bin = "HandBrakeCLI"
	}
	args := make([]string, 0, 24)

	// --- Input / output ---
	args = append(args, bin, "-i", plan.InputPath, "-o", plan.TempPath)

	// --- Video ---
	args = append(args,
		"-e", EncoderName(plan.Encoder),
		"--encoder-preset", plan.Preset,
		"-q", strconv.Itoa(plan.Quality),
	)

	// --- Container ---
	args = append(args, "-f", formatNames[plan.Container])

	// --- Audio ---
	if plan.CopyAllAudio {
		args = append(args, "--all-audio", "--aencoder", "copy", "--audio-fallback", "av_aac")
	}

	// --- Subtitles ---
	if plan.CopyAllSubtitles {
		args = append(args, "--all-subtitles")
	}
	return args
}
