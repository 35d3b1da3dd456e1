package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into input, encoding, behavior, display and utility.
// Every setting flag writes into the CLI layer only when the user passes it,
// so lower layers (env, file, defaults) hold unless overridden.

import (
	"flag"
	"fmt"
	"io"
	"strconv"
)

// Version is shown in --version and help; override at build time with
// -ldflags "-X github.com/backmassage/convert-videos/internal/config.Version=...".
var Version = "1.0.0-dev"

// Options is the result of parsing the command line: the CLI layer plus the
// flags that never come from other layers.
type Options struct {
	Layer       Layer
	ConfigPath  string // --config; "" means env or ./config.yaml
	Verbose     bool
	ColorMode   ColorMode
	CheckOnly   bool
	ShowHelp    bool
	ShowVersion bool
}

// ParseFlags parses args (without the program name). It never exits; the
// caller handles ShowHelp and ShowVersion.
func ParseFlags(args []string) (Options, error) {
	opts := Options{Layer: NewLayer(LayerCLI), ColorMode: ColorAuto}

	fs := flag.NewFlagSet("convert-videos", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var u utilityFlags
	defineEncodingFlags(fs, opts.Layer)
	defineBehaviorFlags(fs, opts.Layer, &opts)
	defineDisplayFlags(fs, &opts, &u)
	defineUtilityFlags(fs, &opts)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return opts, err
	}
	if u.noColor {
		opts.ColorMode = ColorNever
	} else if u.forceColor {
		opts.ColorMode = ColorAlways
	}
	if opts.ShowHelp || opts.ShowVersion {
		return opts, nil
	}
	return opts, parsePositionalArgs(positional, &opts)
}

// parseInterspersed lets flags follow the directory argument: parsing
// resumes after each positional argument. Everything after "--" is
// positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if n := len(args) - len(rest); n > 0 && args[n-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// utilityFlags holds display toggles that are folded into Options after Parse.
type utilityFlags struct {
	forceColor bool
	noColor    bool
}

// defineEncodingFlags registers --encoder, --preset, --quality, --output-format.
func defineEncodingFlags(fs *flag.FlagSet, l Layer) {
	fs.Var(layerValue{l, KeyOutputEncoder}, "encoder", "Encoder: x265 | x265_10bit | nvenc_hevc")
	fs.Var(layerValue{l, KeyOutputPreset}, "preset", "Encoder preset")
	fs.Var(layerValue{l, KeyOutputQuality}, "quality", "Constant quality 0-51")
	fs.Var(layerValue{l, KeyOutputQuality}, "q", "Same as --quality")
	fs.Var(layerValue{l, KeyOutputFormat}, "output-format", "Output container: mkv | mp4")
	fs.Var(layerValue{l, KeyHandBrake}, "handbrake", "Path to HandBrakeCLI")
	fs.Var(layerValue{l, KeyFFprobe}, "ffprobe", "Path to ffprobe")
}

// defineBehaviorFlags registers dry-run, loop, removal, size and watch flags.
func defineBehaviorFlags(fs *flag.FlagSet, l Layer, opts *Options) {
	fs.Var(boolLayerValue{l, KeyDryRun}, "dry-run", "Report what would be converted; change nothing")
	fs.Var(boolLayerValue{l, KeyDryRun}, "d", "Same as --dry-run")
	fs.Var(boolLayerValue{l, KeyLoop}, "loop", "Repeat the scan indefinitely")
	fs.Var(layerValue{l, KeyLoopInterval}, "loop-interval", "Pause between loop cycles (e.g. 30m, 3600)")
	fs.Var(boolLayerValue{l, KeyRemoveOriginal}, "remove-original-files", "Delete originals after a verified conversion")
	fs.Var(layerValue{l, KeyMinFileSize}, "min-file-size", "Skip files smaller than this (e.g. 500MB)")
	fs.Var(boolLayerValue{l, KeyWatch}, "watch", "Wake the loop early when files change")
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to the YAML config file")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log-file, --status-addr.
func defineDisplayFlags(fs *flag.FlagSet, opts *Options, u *utilityFlags) {
	fs.BoolVar(&u.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&u.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&opts.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&opts.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&opts.CheckOnly, "c", false, "Same as --check")
	fs.Var(layerValue{opts.Layer, KeyLogFile}, "log-file", "Log file path")
	fs.Var(layerValue{opts.Layer, KeyStatusAddr}, "status-addr", "Serve run status over HTTP on this address")
}

// defineUtilityFlags registers --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, opts *Options) {
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")
	fs.BoolVar(&opts.ShowVersion, "V", false, "Same as --version")
	fs.BoolVar(&opts.ShowHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&opts.ShowHelp, "h", false, "Same as --help")
}

// parsePositionalArgs sets the directory from the optional positional arg.
func parsePositionalArgs(args []string, opts *Options) error {
	switch len(args) {
	case 0:
		return nil
	case 1:
		opts.Layer.Set(KeyDirectory, args[0])
		return nil
	}
	return fmt.Errorf("expected at most one directory argument, got %d", len(args))
}

// PrintUsage writes the help text to w. Column-aligned for readability.
func PrintUsage(w io.Writer) {
	const col1 = 32 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "convert-videos v" + Version + " - batch HEVC conversion with HandBrakeCLI"},
		{"", ""},
		{"  convert-videos [OPTIONS] [directory]", ""},
		{"", ""},
		{"Encoding", ""},
		{"  --encoder <name>", "x265 | x265_10bit | nvenc_hevc (default: x265_10bit)"},
		{"  --preset <name>", "Encoder preset (default: medium)"},
		{"  -q, --quality <0-51>", "Constant quality (default: 24)"},
		{"  --output-format <mkv|mp4>", "Output container (default: mkv)"},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "Report what would be converted; change nothing"},
		{"  --remove-original-files", "Delete originals after a verified conversion"},
		{"  --min-file-size <size>", "Skip smaller files (default: 1GB)"},
		{"  --loop", "Repeat the scan indefinitely (kept originals are re-encoded each cycle)"},
		{"  --loop-interval <dur>", "Pause between cycles (default: 1h)"},
		{"  --watch", "Wake the loop early when files change"},
		{"", ""},
		{"Configuration", ""},
		{"  --config <path>", "YAML config file (default: ./config.yaml)"},
		{"  --handbrake <path>", "HandBrakeCLI binary (default: HandBrakeCLI)"},
		{"  --ffprobe <path>", "ffprobe binary (default: ffprobe)"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"  --log-file <path>", "Log file (default: $TMPDIR/convert_videos.log)"},
		{"  --status-addr <addr>", "Serve run status over HTTP (e.g. :8080)"},
		{"", ""},
		{"Utility", ""},
		{"  -c, --check", "System diagnostics (HandBrakeCLI, ffprobe, disk)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
		{"", ""},
		{"Settings resolve as: flags > " + EnvPrefix + "* env > config file > defaults.", ""},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters that write straight into a layer, so a flag is only
// "set" when the user actually passed it.

type layerValue struct {
	l   Layer
	key Key
}

func (v layerValue) String() string {
	if v.l.Values == nil {
		return ""
	}
	return v.l.Values[v.key]
}

func (v layerValue) Set(s string) error {
	v.l.Set(v.key, s)
	return nil
}

type boolLayerValue layerValue

func (v boolLayerValue) String() string   { return layerValue(v).String() }
func (v boolLayerValue) IsBoolFlag() bool { return true }
func (v boolLayerValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	v.l.Set(v.key, strconv.FormatBool(b))
	return nil
}
