package config

import (
	"errors"
	"io/fs"
)

// Load resolves the full configuration for a run: the config file (named by
// --config, then VIDEO_CONVERTER_CONFIG, then ./config.yaml), the env layer
// from lookup, and the CLI layer from opts. CLI-only settings are copied
// from opts afterwards.
func Load(opts Options, lookup LookupFunc) (Config, error) {
	path, required, source := opts.ConfigPath, opts.ConfigPath != "", LayerCLI
	if !required {
		if p, ok := lookup(EnvConfigFile); ok && p != "" {
			path, required, source = p, true, LayerEnv
		} else {
			path = DefaultConfigFile
		}
	}

	file, err := LoadFile(path, required)
	if err != nil {
		// A named file that does not exist is blamed on whoever named it.
		var cerr *Error
		if errors.As(err, &cerr) && errors.Is(err, fs.ErrNotExist) {
			cerr.Layer = source
		}
		return Config{}, err
	}
	env, err := EnvLayer(lookup)
	if err != nil {
		return Config{}, err
	}
	cli := opts.Layer
	if cli.Values == nil {
		cli = NewLayer(LayerCLI)
	}

	cfg, err := Resolve(file, env, cli)
	if err != nil {
		return Config{}, err
	}
	if len(file.Values) > 0 || required {
		cfg.ConfigFile = path
	}
	cfg.Verbose = opts.Verbose
	cfg.CheckOnly = opts.CheckOnly
	if opts.ColorMode != "" {
		cfg.ColorMode = opts.ColorMode
	}
	return cfg, nil
}
