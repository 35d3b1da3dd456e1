package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "config.yaml"

// scalar captures a YAML scalar verbatim so numbers, sizes and booleans are
// parsed by the same code regardless of layer.
type scalar string

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", n.Line)
	}
	*s = scalar(n.Value)
	return nil
}

// fileDoc mirrors the config document. A null or absent key leaves the
// pointer nil, which means "not set in this layer".
type fileDoc struct {
	Directory           *scalar `yaml:"directory"`
	MinFileSize         *scalar `yaml:"min_file_size"`
	RemoveOriginalFiles *scalar `yaml:"remove_original_files"`
	Loop                *scalar `yaml:"loop"`
	LoopInterval        *scalar `yaml:"loop_interval"`
	DryRun              *scalar `yaml:"dry_run"`
	Watch               *scalar `yaml:"watch"`
	WatchSettle         *scalar `yaml:"watch_settle"`
	StatusAddr          *scalar `yaml:"status_addr"`
	Nice                *scalar `yaml:"nice"`

	Output *struct {
		Format  *scalar `yaml:"format"`
		Encoder *scalar `yaml:"encoder"`
		Preset  *scalar `yaml:"preset"`
		Quality *scalar `yaml:"quality"`
	} `yaml:"output"`

	Logging *struct {
		LogFile *scalar `yaml:"log_file"`
	} `yaml:"logging"`

	Dependencies *struct {
		HandBrake *scalar `yaml:"handbrake"`
		FFprobe   *scalar `yaml:"ffprobe"`
	} `yaml:"dependencies"`
}

// LoadFile reads the YAML config at path into a file layer. A missing file
// yields an empty layer unless required is set (an explicitly named file
// must exist).
func LoadFile(path string, required bool) (Layer, error) {
	layer := NewLayer(LayerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return layer, nil
		}
		return layer, &Error{Key: KeyConfig, Layer: LayerFile, Err: err}
	}
	if err := ParseFile(bytes.NewReader(data), layer); err != nil {
		return layer, &Error{Key: KeyConfig, Layer: LayerFile, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return layer, nil
}

// ParseFile decodes a config document from r into layer. Unknown keys are
// rejected so typos don't silently fall back to defaults.
func ParseFile(r io.Reader, layer Layer) error {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty document
		}
		return err
	}

	set := func(k Key, v *scalar) {
		if v != nil {
			layer.Set(k, string(*v))
		}
	}
	set(KeyDirectory, doc.Directory)
	set(KeyMinFileSize, doc.MinFileSize)
	set(KeyRemoveOriginal, doc.RemoveOriginalFiles)
	set(KeyLoop, doc.Loop)
	set(KeyLoopInterval, doc.LoopInterval)
	set(KeyDryRun, doc.DryRun)
	set(KeyWatch, doc.Watch)
	set(KeyWatchSettle, doc.WatchSettle)
	set(KeyStatusAddr, doc.StatusAddr)
	set(KeyNice, doc.Nice)
	if o := doc.Output; o != nil {
		set(KeyOutputFormat, o.Format)
		set(KeyOutputEncoder, o.Encoder)
		set(KeyOutputPreset, o.Preset)
		set(KeyOutputQuality, o.Quality)
	}
	if l := doc.Logging; l != nil {
		set(KeyLogFile, l.LogFile)
	}
	if d := doc.Dependencies; d != nil {
		set(KeyHandBrake, d.HandBrake)
		set(KeyFFprobe, d.FFprobe)
	}
	return nil
}
