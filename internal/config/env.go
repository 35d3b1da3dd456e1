package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "VIDEO_CONVERTER_"

// EnvConfigFile names the config document when --config is not given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// envPreserveOriginal is the inverse spelling of REMOVE_ORIGINAL_FILES.
const envPreserveOriginal = EnvPrefix + "PRESERVE_ORIGINAL_FILES"

var envKeys = []struct {
	name string
	key  Key
}{
	{EnvPrefix + "DIRECTORY", KeyDirectory},
	{EnvPrefix + "MIN_FILE_SIZE", KeyMinFileSize},
	{EnvPrefix + "OUTPUT_FORMAT", KeyOutputFormat},
	{EnvPrefix + "ENCODER", KeyOutputEncoder},
	{EnvPrefix + "PRESET", KeyOutputPreset},
	{EnvPrefix + "QUALITY", KeyOutputQuality},
	{EnvPrefix + "REMOVE_ORIGINAL_FILES", KeyRemoveOriginal},
	{EnvPrefix + "LOOP", KeyLoop},
	{EnvPrefix + "LOOP_INTERVAL", KeyLoopInterval},
	{EnvPrefix + "DRY_RUN", KeyDryRun},
	{EnvPrefix + "LOG_FILE", KeyLogFile},
	{EnvPrefix + "HANDBRAKE", KeyHandBrake},
	{EnvPrefix + "FFPROBE", KeyFFprobe},
	{EnvPrefix + "WATCH", KeyWatch},
	{EnvPrefix + "STATUS_ADDR", KeyStatusAddr},
}

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// EnvLookup returns a lookup over the process environment, falling back to
// variables from dotenvPath when that file exists. The process environment
// always wins over the .env file.
func EnvLookup(dotenvPath string) (LookupFunc, error) {
	dotenv := map[string]string{}
	if dotenvPath != "" {
		m, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, &Error{Layer: LayerEnv, Err: err}
		}
	}
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}, nil
}

// EnvLayer builds the env layer from lookup. Empty variables count as unset.
// Setting both REMOVE_ORIGINAL_FILES and PRESERVE_ORIGINAL_FILES to the same
// truth value is contradictory and rejected.
func EnvLayer(lookup LookupFunc) (Layer, error) {
	layer := NewLayer(LayerEnv)
	for _, e := range envKeys {
		if v, ok := lookup(e.name); ok && v != "" {
			layer.Set(e.key, v)
		}
	}

	v, ok := lookup(envPreserveOriginal)
	if !ok || v == "" {
		return layer, nil
	}
	preserve, err := parseBool(v)
	if err != nil {
		return layer, &Error{Key: KeyRemoveOriginal, Layer: LayerEnv, Err: err}
	}
	if raw, set := layer.Values[KeyRemoveOriginal]; set {
		remove, err := parseBool(raw)
		if err == nil && remove == preserve {
			return layer, &Error{Key: KeyRemoveOriginal, Layer: LayerEnv,
				Err: errors.New(EnvPrefix + "REMOVE_ORIGINAL_FILES and " + envPreserveOriginal + " contradict each other")}
		}
		return layer, nil
	}
	if preserve {
		layer.Set(KeyRemoveOriginal, "false")
	} else {
		layer.Set(KeyRemoveOriginal, "true")
	}
	return layer, nil
}
