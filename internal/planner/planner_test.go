package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/media"
)

// --- Helper builders ---

func defaultCfg() *config.Config {
	cfg := config.DefaultConfig()
	return &cfg
}

func h264File() media.File {
	return media.File{Path: "/media/Movie.avi", Size: 2 << 30, Ext: "avi", Codec: "h264", State: media.StateProbed}
}

func TestIsTargetCodec(t *testing.T) {
	tests := []struct {
		codec string
		want  bool
	}{
		{"hevc", true},
		{"HEVC", true},
		{"h265", true},
		{" hevc\n", true},
		{"h264", false},
		{"av1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTargetCodec(tt.codec))
		})
	}
}

func TestBuildPlan_H264Encode(t *testing.T) {
	plan := BuildPlan(defaultCfg(), h264File())
	assert.Equal(t, ActionEncode, plan.Action)
	assert.Equal(t, config.EncoderX265_10, plan.Encoder)
	assert.Equal(t, "medium", plan.Preset)
	assert.Equal(t, 24, plan.Quality)
	assert.Equal(t, config.ContainerMKV, plan.Container)
	assert.True(t, plan.CopyAllAudio)
	assert.True(t, plan.CopyAllSubtitles)
	assert.Equal(t, 10, plan.NiceLevel)
	assert.Equal(t, "/media/Movie.converted.mkv.temp", plan.TempPath)
	assert.Equal(t, int64(2<<30), plan.RequiredSpace())
	assert.Equal(t, "h264", plan.SourceCodec)
}

func TestBuildPlan_HEVCSkips(t *testing.T) {
	f := h264File()
	f.Codec = "hevc"
	plan := BuildPlan(defaultCfg(), f)
	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, media.ReasonAlreadyTarget, plan.SkipReason)
	assert.Empty(t, plan.TempPath, "a skipped file gets no temp path")
}

func TestBuildPlan_NVENCPresetMapped(t *testing.T) {
	cfg := defaultCfg()
	cfg.Encoder = config.EncoderNVENCHEVC
	cfg.Preset = "veryslow"
	cfg.Container = config.ContainerMP4
	plan := BuildPlan(cfg, h264File())
	assert.Equal(t, "slow", plan.Preset)
	assert.Equal(t, "/media/Movie.converted.mp4.temp", plan.TempPath)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "encode", ActionEncode.String())
	assert.Equal(t, "skip", ActionSkip.String())
}
