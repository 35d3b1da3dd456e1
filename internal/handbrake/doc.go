// Package handbrake runs HandBrakeCLI for a planner.Plan.
//
// Build turns a plan into arguments; HandBrake.Encode runs them at lowered
// scheduling priority, streams progress parsed from stdout and keeps the
// tail of stderr so a failure can be summarized in one line. Every encoder
// failure wraps ErrEncode; cancellation returns the context's error.
package handbrake
