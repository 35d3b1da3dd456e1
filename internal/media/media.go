// Package media holds the domain types shared by the scanner, the conversion
// engine and the reporting layers.
package media

import "time"

// State is a step of the per-file conversion lifecycle.
type State int

const (
	StateDiscovered State = iota
	StateProbed
	StateEligible
	StateConverting
	StateSkipped
	StateConverted
	StateFailed
)

var stateNames = [...]string{
	StateDiscovered: "discovered",
	StateProbed:     "probed",
	StateEligible:   "eligible",
	StateConverting: "converting",
	StateSkipped:    "skipped",
	StateConverted:  "converted",
	StateFailed:     "failed",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a file's pipeline.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateConverted || s == StateFailed
}

// MarshalText lets results render states by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason explains why a file ended Failed or Skipped. Converted results carry
// an empty reason.
type Reason string

const (
	ReasonNone Reason = ""

	// Failure reasons.
	ReasonProbeError       Reason = "probe_error"
	ReasonDurationUnknown  Reason = "duration_unknown"
	ReasonEncodeError      Reason = "encode_error"
	ReasonDurationMismatch Reason = "duration_mismatch"
	ReasonNamingExhausted  Reason = "naming_collision_exhausted"
	ReasonFinalizeError    Reason = "finalize_error"
	ReasonInterrupted      Reason = "interrupted"

	// Skip reasons.
	ReasonAlreadyTarget     Reason = "already_target_codec"
	ReasonInsufficientSpace Reason = "insufficient_space"
	ReasonDryRun            Reason = "dry_run"
)

// File is a discovered media file while it moves through the engine. Codec
// and Duration stay zero until probed.
type File struct {
	Path     string
	Size     int64
	Ext      string // lowercase, without the dot
	Codec    string
	Duration int64 // whole seconds
	State    State
}

// Result is the immutable outcome of one file's pipeline.
type Result struct {
	InputPath     string        `json:"input_path"`
	OutputPath    string        `json:"output_path,omitempty"`
	MarkerPath    string        `json:"marker_path,omitempty"`
	State         State         `json:"state"`
	Reason        Reason        `json:"reason,omitempty"`
	Detail        string        `json:"detail,omitempty"`
	Codec         string        `json:"codec,omitempty"`
	OriginalSize  int64         `json:"original_size"`
	ConvertedSize int64         `json:"converted_size,omitempty"`
	DryRun        bool          `json:"dry_run,omitempty"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// SpaceSaved returns the bytes reclaimed by a converted file, zero otherwise.
func (r Result) SpaceSaved() int64 {
	if r.State != StateConverted {
		return 0
	}
	return r.OriginalSize - r.ConvertedSize
}
