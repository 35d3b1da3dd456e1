// Package config resolves the runtime configuration from four layers:
// built-in defaults, the YAML config file, environment variables (with an
// optional .env file) and explicit CLI flags, in increasing priority.
//
// The resolved [Config] is a plain value. It is built once at startup and
// passed by value to every component, so nothing downstream can mutate it.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Encoder selects the HEVC encoder family used by HandBrakeCLI.
type Encoder string

const (
	EncoderX265      Encoder = "x265"       // 8-bit software encode.
	EncoderX265_10   Encoder = "x265_10bit" // 10-bit software encode (default).
	EncoderNVENCHEVC Encoder = "nvenc_hevc" // NVIDIA hardware encode.
)

// Encoders lists the accepted encoder families in help-text order.
var Encoders = []Encoder{EncoderX265, EncoderX265_10, EncoderNVENCHEVC}

// IsHardware reports whether the encoder runs on a GPU.
func (e Encoder) IsHardware() bool { return e == EncoderNVENCHEVC }

// Container is the output container format.
type Container string

const (
	ContainerMKV Container = "mkv" // Matroska (default).
	ContainerMP4 Container = "mp4"
)

// Containers lists the accepted output containers.
var Containers = []Container{ContainerMKV, ContainerMP4}

// ColorMode controls ANSI color output on the console.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// x265 presets, fastest to slowest.
var X265Presets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// NVENC presets accepted by HandBrakeCLI.
var NVENCPresets = []string{"default", "fast", "medium", "slow"}

// Quality bounds (constant quality RF for x265 and NVENC).
const (
	MinQuality = 0
	MaxQuality = 51
)

// Config holds all runtime settings after layer resolution.
type Config struct {
	// Scan input.
	Directory   string
	MinFileSize int64 // bytes; binary multipliers (1 KB = 1024 B).

	// Encoder settings.
	Encoder   Encoder
	Preset    string // already mapped to the encoder family
	Quality   int
	Container Container

	// Behavior flags.
	RemoveOriginal bool
	DryRun         bool
	Loop           bool
	LoopInterval   time.Duration // Default: 1h.
	Watch          bool          // Wake the loop early on filesystem activity.
	WatchSettle    time.Duration // Quiet period before a watch-triggered cycle.
	NiceLevel      int           // Scheduling priority offset for HandBrakeCLI.

	// External tools.
	HandBrakePath string
	FFprobePath   string

	// Display, logging and outer surfaces.
	LogFile    string // "" selects the default path in the temp directory.
	StatusAddr string // "" disables the status endpoint.
	Verbose    bool
	ColorMode  ColorMode
	CheckOnly  bool

	// ConfigFile is the config document that was loaded ("" when none).
	ConfigFile string
}

// DefaultConfig returns the configuration produced by the defaults layer
// alone. It is the base every other layer overrides.
func DefaultConfig() Config {
	cfg, err := Resolve()
	if err != nil {
		// The defaults layer is static; failing here is a programming error.
		panic(err)
	}
	return cfg
}

// DefaultLogFile is used when no layer sets logging.log_file.
func DefaultLogFile() string {
	return filepath.Join(os.TempDir(), "convert_videos.log")
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks the cross-field requirements that layer resolution cannot:
// a directory is required unless only diagnostics were requested.
func (c *Config) Validate() error {
	if c.CheckOnly {
		return nil
	}
	if c.Directory == "" {
		return &Error{Key: KeyDirectory, Layer: LayerDefault,
			Err: errors.New("no directory specified; pass it as an argument or set it in the config file")}
	}
	return nil
}

// Warnings lists valid settings whose combination is likely unintended.
func (c *Config) Warnings() []string {
	var w []string
	if c.Loop && !c.RemoveOriginal && !c.DryRun {
		w = append(w, "loop mode keeps originals: every cycle encodes them again into a new "+
			".converted.N copy until the name counter runs out and the original is marked .fail")
	}
	return w
}

// ValidateDirectory ensures the resolved directory exists and is a directory.
func (c *Config) ValidateDirectory() error {
	fi, err := os.Stat(c.Directory)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.New(c.Directory + " is not a directory")
	}
	return nil
}

// MapPreset translates a preset name into the closest equivalent for the
// encoder family. x265 encoders understand the nine x265 speed presets;
// NVENC understands four.
func MapPreset(preset string, enc Encoder) string {
	switch enc {
	case EncoderX265, EncoderX265_10:
		if contains(X265Presets, preset) {
			return preset
		}
		// NVENC's "default" and anything unknown land on the middle preset.
		return "medium"
	case EncoderNVENCHEVC:
		if contains(NVENCPresets, preset) {
			return preset
		}
		switch preset {
		case "ultrafast", "superfast", "veryfast", "faster", "fast":
			return "fast"
		case "slow", "slower", "veryslow":
			return "slow"
		}
		return "medium"
	}
	return preset
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
