package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Key names a configurable setting using its config-file path.
type Key string

const (
	KeyDirectory      Key = "directory"
	KeyMinFileSize    Key = "min_file_size"
	KeyOutputFormat   Key = "output.format"
	KeyOutputEncoder  Key = "output.encoder"
	KeyOutputPreset   Key = "output.preset"
	KeyOutputQuality  Key = "output.quality"
	KeyRemoveOriginal Key = "remove_original_files"
	KeyLoop           Key = "loop"
	KeyLoopInterval   Key = "loop_interval"
	KeyDryRun         Key = "dry_run"
	KeyLogFile        Key = "logging.log_file"
	KeyHandBrake      Key = "dependencies.handbrake"
	KeyFFprobe        Key = "dependencies.ffprobe"
	KeyWatch          Key = "watch"
	KeyWatchSettle    Key = "watch_settle"
	KeyStatusAddr     Key = "status_addr"
	KeyNice           Key = "nice"

	// KeyConfig names the config document itself in errors.
	KeyConfig Key = "config"
)

// LayerName identifies where a value came from.
type LayerName string

const (
	LayerDefault LayerName = "default"
	LayerFile    LayerName = "file"
	LayerEnv     LayerName = "env"
	LayerCLI     LayerName = "cli"
)

// Layer is a partial configuration: only keys present in Values are set.
// Values are raw strings; parsing happens once during [Resolve] so errors
// can name both the key and the layer.
type Layer struct {
	Name   LayerName
	Values map[Key]string
}

// NewLayer returns an empty layer with the given name.
func NewLayer(name LayerName) Layer {
	return Layer{Name: name, Values: make(map[Key]string)}
}

// Set records a value for key, replacing any earlier value in this layer.
func (l Layer) Set(key Key, value string) { l.Values[key] = value }

func defaultLayer() Layer {
	return Layer{Name: LayerDefault, Values: map[Key]string{
		KeyMinFileSize:    "1GB",
		KeyOutputFormat:   string(ContainerMKV),
		KeyOutputEncoder:  string(EncoderX265_10),
		KeyOutputPreset:   "medium",
		KeyOutputQuality:  "24",
		KeyRemoveOriginal: "false",
		KeyLoop:           "false",
		KeyLoopInterval:   "1h",
		KeyDryRun:         "false",
		KeyHandBrake:      "HandBrakeCLI",
		KeyFFprobe:        "ffprobe",
		KeyWatch:          "false",
		KeyWatchSettle:    "2m",
		KeyNice:           "10",
	}}
}

// setting is a resolved raw value and the layer that supplied it.
type setting struct {
	value string
	layer LayerName
}

// Resolve merges layers over the built-in defaults. Later layers win per
// key, so callers pass them in increasing priority: file, env, cli.
// Every value is parsed and validated; the first failure is returned as an
// [*Error] naming the key and the layer it came from.
func Resolve(layers ...Layer) (Config, error) {
	merged := make(map[Key]setting)
	for _, l := range append([]Layer{defaultLayer()}, layers...) {
		for k, v := range l.Values {
			merged[k] = setting{value: v, layer: l.Name}
		}
	}

	var cfg Config
	// Keys are parsed in a fixed order so the reported error is stable.
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		s := merged[k]
		if err := apply(&cfg, k, s.value); err != nil {
			return Config{}, &Error{Key: k, Layer: s.layer, Err: err}
		}
	}

	// The preset is validated against the union of both families and then
	// mapped to the closest equivalent for the chosen encoder.
	cfg.Preset = MapPreset(cfg.Preset, cfg.Encoder)
	cfg.ColorMode = ColorAuto
	return cfg, nil
}

func apply(cfg *Config, key Key, raw string) error {
	var err error
	switch key {
	case KeyDirectory:
		cfg.Directory = NormalizeDirArg(strings.TrimSpace(raw))
	case KeyMinFileSize:
		cfg.MinFileSize, err = ParseSize(raw)
	case KeyOutputFormat:
		cfg.Container, err = parseContainer(raw)
	case KeyOutputEncoder:
		cfg.Encoder, err = parseEncoder(raw)
	case KeyOutputPreset:
		cfg.Preset, err = parsePreset(raw)
	case KeyOutputQuality:
		cfg.Quality, err = parseQuality(raw)
	case KeyRemoveOriginal:
		cfg.RemoveOriginal, err = parseBool(raw)
	case KeyLoop:
		cfg.Loop, err = parseBool(raw)
	case KeyLoopInterval:
		cfg.LoopInterval, err = parseInterval(raw)
	case KeyDryRun:
		cfg.DryRun, err = parseBool(raw)
	case KeyLogFile:
		cfg.LogFile = strings.TrimSpace(raw)
	case KeyHandBrake:
		cfg.HandBrakePath, err = nonEmpty(raw)
	case KeyFFprobe:
		cfg.FFprobePath, err = nonEmpty(raw)
	case KeyWatch:
		cfg.Watch, err = parseBool(raw)
	case KeyWatchSettle:
		cfg.WatchSettle, err = parseInterval(raw)
	case KeyStatusAddr:
		cfg.StatusAddr = strings.TrimSpace(raw)
	case KeyNice:
		cfg.NiceLevel, err = parseNice(raw)
	default:
		err = errors.New("unknown setting")
	}
	return err
}

func parseContainer(raw string) (Container, error) {
	c := Container(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(Containers, c) {
		return "", fmt.Errorf("unsupported output format %q (supported: mkv, mp4)", raw)
	}
	return c, nil
}

func parseEncoder(raw string) (Encoder, error) {
	e := Encoder(strings.TrimSpace(raw))
	if !slices.Contains(Encoders, e) {
		return "", fmt.Errorf("unsupported encoder %q (supported: x265, x265_10bit, nvenc_hevc)", raw)
	}
	return e, nil
}

func parsePreset(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if !slices.Contains(X265Presets, p) && !slices.Contains(NVENCPresets, p) {
		return "", fmt.Errorf("unsupported preset %q", raw)
	}
	return p, nil
}

func parseQuality(raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("quality must be an integer: %q", raw)
	}
	if q < MinQuality || q > MaxQuality {
		return 0, fmt.Errorf("quality %d out of range (%d-%d)", q, MinQuality, MaxQuality)
	}
	return q, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

// parseInterval accepts Go durations ("90m", "1h30m") or a bare number of
// seconds ("3600").
func parseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("interval must be positive: %q", raw)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive: %q", raw)
	}
	return d, nil
}

func parseNice(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > 19 {
		return 0, fmt.Errorf("nice level must be an integer in 0-19: %q", raw)
	}
	return n, nil
}

func nonEmpty(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New("must not be empty")
	}
	return s, nil
}
