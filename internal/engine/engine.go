// Package engine drives one media file through the conversion state machine:
// probe, plan, encode, validate, then finalize as converted or mark as
// failed. Every call to Process yields exactly one terminal media.Result.
//
// Failures are recorded in the file system itself: the original is renamed
// with a .fail marker, which the scanner excludes from every later pass.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/display"
	"github.com/backmassage/convert-videos/internal/fsx"
	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/naming"
	"github.com/backmassage/convert-videos/internal/planner"
	"github.com/backmassage/convert-videos/internal/probe"
	"github.com/hashicorp/go-hclog"
)

// DurationTolerance is the largest difference, in whole seconds, between
// input and output durations that still counts as a valid transcode. It
// absorbs truncation to whole seconds on both probes.
const DurationTolerance = 1

// Encoder runs one encode. handbrake.HandBrake is the production adapter.
type Encoder interface {
	Encode(ctx context.Context, plan *planner.Plan, onProgress handbrake.ProgressFunc) error
}

// FreeSpaceFunc reports the bytes available to the caller on the volume
// holding path.
type FreeSpaceFunc func(path string) (uint64, error)

// Logger is the subset of logging.Logger the engine writes to.
type Logger interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Fields(level hclog.Level, msg string, args ...interface{})
}

// Deps are the collaborators an Engine calls out to. Prober, Encoder and
// Log are required; a nil Resolver uses naming defaults and a nil
// FreeSpace disables the free-space guard.
type Deps struct {
	Prober    probe.Prober
	Encoder   Encoder
	Resolver  *naming.Resolver
	FreeSpace FreeSpaceFunc
	Log       Logger
}

// Engine processes files one at a time. It holds no per-file state between
// calls and is not safe for concurrent use.
type Engine struct {
	cfg  config.Config
	deps Deps
	now  func() time.Time
}

// New returns an engine bound to a resolved configuration.
func New(cfg config.Config, deps Deps) *Engine {
	if deps.Resolver == nil {
		deps.Resolver = &naming.Resolver{}
	}
	return &Engine{cfg: cfg, deps: deps, now: time.Now}
}

// Process runs f through the state machine and returns its terminal result.
// No outcome is returned as an error: per-file problems become a Failed or
// Skipped result with a reason, so the caller always moves on to the next
// file. When ctx is cancelled mid-file the result is Failed(Interrupted).
func (e *Engine) Process(ctx context.Context, f media.File, onProgress handbrake.ProgressFunc) media.Result {
	start := e.now()
	f.State = media.StateDiscovered
	res := e.process(ctx, &f, onProgress)
	res.Elapsed = e.now().Sub(start)
	e.logResult(res)
	return res
}

func (e *Engine) process(ctx context.Context, f *media.File, onProgress handbrake.ProgressFunc) media.Result {
	res := media.Result{
		InputPath:    f.Path,
		OriginalSize: f.Size,
		DryRun:       e.cfg.DryRun,
	}

	// --- Discovered -> Probed ---
	info, err := e.deps.Prober.Probe(ctx, f.Path)
	var codec string
	if err == nil {
		codec, err = info.VideoCodec()
	}
	if err != nil {
		if ctx.Err() != nil {
			return e.interrupted(res, "")
		}
		return e.fail(res, media.ReasonProbeError, "", err)
	}
	f.Codec = codec
	f.State = media.StateProbed
	res.Codec = codec

	// --- Probed -> Skipped | Eligible ---
	plan := planner.BuildPlan(&e.cfg, *f)
	if plan.Action == planner.ActionSkip {
		return skip(res, plan.SkipReason, "source is already "+codec)
	}
	f.State = media.StateEligible

	if reason, detail := e.checkSpace(f.Path, plan); reason != media.ReasonNone {
		return skip(res, reason, detail)
	}

	if e.cfg.DryRun {
		// Reading the directory is not a mutation; the name is the one a
		// real run would pick right now.
		if out, err := e.deps.Resolver.Resolve(naming.ConvertedScheme(f.Path, string(plan.Container))); err == nil {
			res.OutputPath = out
		}
		return skip(res, media.ReasonDryRun, fmt.Sprintf("would encode %s -> %s (%s, preset %s, q %d)",
			codec, plan.Container, plan.Encoder, plan.Preset, plan.Quality))
	}

	// --- Eligible -> Converting ---
	f.State = media.StateConverting
	if err := fsx.RemoveIfExists(plan.TempPath); err != nil {
		e.deps.Log.Warn("Could not remove stale temp file %s: %v", plan.TempPath, err)
	}
	e.deps.Log.Info("Encoding %s (%s %s, %d audio and %d subtitle tracks, %s)",
		filepath.Base(f.Path), codec, info.Resolution(), info.AudioStreams, info.SubtitleStreams,
		display.FormatBytes(f.Size))

	err = e.deps.Encoder.Encode(ctx, plan, onProgress)
	if ctx.Err() != nil {
		return e.interrupted(res, plan.TempPath)
	}
	if err != nil {
		return e.fail(res, media.ReasonEncodeError, plan.TempPath, err)
	}

	// --- Converting -> validation ---
	dIn, errIn := e.deps.Prober.Duration(ctx, f.Path)
	dOut, errOut := e.deps.Prober.Duration(ctx, plan.TempPath)
	if ctx.Err() != nil {
		return e.interrupted(res, plan.TempPath)
	}
	if err := errors.Join(errIn, errOut); err != nil {
		return e.fail(res, media.ReasonDurationUnknown, plan.TempPath, err)
	}
	if dIn <= 0 || dOut <= 0 {
		return e.fail(res, media.ReasonDurationUnknown, plan.TempPath,
			fmt.Errorf("%w: input %ds, output %ds", probe.ErrDurationUnknown, dIn, dOut))
	}
	f.Duration = dIn
	if diff := dIn - dOut; diff > DurationTolerance || diff < -DurationTolerance {
		return e.fail(res, media.ReasonDurationMismatch, plan.TempPath,
			fmt.Errorf("input %ds, output %ds", dIn, dOut))
	}

	return e.finalize(res, f, plan)
}

// finalize moves a validated temp output to its collision-free final name
// and removes the original when configured to.
func (e *Engine) finalize(res media.Result, f *media.File, plan *planner.Plan) media.Result {
	if fi, err := os.Stat(plan.TempPath); err == nil {
		res.ConvertedSize = fi.Size()
	}

	out, err := e.deps.Resolver.RenameInto(plan.TempPath, naming.ConvertedScheme(f.Path, string(plan.Container)))
	if err != nil {
		res.ConvertedSize = 0
		if errors.Is(err, naming.ErrCollisionsExhausted) {
			return e.fail(res, media.ReasonNamingExhausted, plan.TempPath, err)
		}
		return e.fail(res, media.ReasonFinalizeError, plan.TempPath, err)
	}
	res.OutputPath = out
	res.State = media.StateConverted
	f.State = media.StateConverted

	if e.cfg.RemoveOriginal {
		if err := os.Remove(f.Path); err != nil {
			e.deps.Log.Warn("Converted but could not remove original %s: %v", f.Path, err)
		} else {
			e.deps.Log.Debug("Removed original %s", f.Path)
		}
	}
	return res
}

// fail discards the temp output and marks the original so later scans
// skip it. Dry runs record the failure without touching anything.
func (e *Engine) fail(res media.Result, reason media.Reason, temp string, cause error) media.Result {
	res.State = media.StateFailed
	res.Reason = reason
	if cause != nil {
		res.Detail = cause.Error()
	}
	if e.cfg.DryRun {
		return res
	}

	if temp != "" {
		if err := fsx.RemoveIfExists(temp); err != nil {
			e.deps.Log.Warn("Could not discard temp output %s: %v", temp, err)
		}
	}
	marker, err := e.deps.Resolver.RenameInto(res.InputPath, naming.FailScheme(res.InputPath))
	if err != nil {
		e.deps.Log.Error("Could not mark %s as failed: %v", res.InputPath, err)
		return res
	}
	res.MarkerPath = marker
	return res
}

// interrupted discards the temp output but leaves the original unmarked, so
// the next run retries it.
func (e *Engine) interrupted(res media.Result, temp string) media.Result {
	res.State = media.StateFailed
	res.Reason = media.ReasonInterrupted
	res.Detail = "cancelled"
	if temp != "" {
		if err := fsx.RemoveIfExists(temp); err != nil {
			e.deps.Log.Warn("Could not discard temp output %s: %v", temp, err)
		}
	}
	return res
}

// checkSpace reports ReasonInsufficientSpace when the volume holding the
// input cannot take an output as large as the input. Probe errors only
// warn: the guard is advisory.
func (e *Engine) checkSpace(path string, plan *planner.Plan) (media.Reason, string) {
	if e.deps.FreeSpace == nil {
		return media.ReasonNone, ""
	}
	dir := filepath.Dir(path)
	free, err := e.deps.FreeSpace(dir)
	if err != nil {
		e.deps.Log.Warn("Free space check failed for %s: %v", dir, err)
		return media.ReasonNone, ""
	}
	need := plan.RequiredSpace()
	if need > 0 && free < uint64(need) {
		return media.ReasonInsufficientSpace, fmt.Sprintf("need %s, %s free on %s",
			display.FormatBytes(need), display.FormatBytes(int64(free)), dir)
	}
	return media.ReasonNone, ""
}

func skip(res media.Result, reason media.Reason, detail string) media.Result {
	res.State = media.StateSkipped
	res.Reason = reason
	res.Detail = detail
	return res
}

// logResult writes the single outcome line for a file.
func (e *Engine) logResult(r media.Result) {
	name := filepath.Base(r.InputPath)
	kv := []interface{}{"state", r.State.String(), "size", r.OriginalSize}
	if r.Reason != media.ReasonNone {
		kv = append(kv, "reason", string(r.Reason))
	}
	switch r.State {
	case media.StateConverted:
		kv = append(kv, "output", r.OutputPath, "converted_size", r.ConvertedSize, "elapsed", r.Elapsed)
		e.deps.Log.Fields(hclog.Info, fmt.Sprintf("Converted %s -> %s (%s -> %s, %s of original, %s)",
			name, filepath.Base(r.OutputPath),
			display.FormatBytes(r.OriginalSize), display.FormatBytes(r.ConvertedSize),
			display.FormatRatio(r.ConvertedSize, r.OriginalSize), display.FormatDuration(r.Elapsed)), kv...)
	case media.StateSkipped:
		if r.Reason == media.ReasonDryRun {
			e.deps.Log.Fields(hclog.Info, fmt.Sprintf("[DRY] %s: %s", name, r.Detail), kv...)
			return
		}
		e.deps.Log.Fields(hclog.Info, fmt.Sprintf("Skipped %s: %s", name, r.Detail), kv...)
	case media.StateFailed:
		if r.MarkerPath != "" {
			kv = append(kv, "marker", r.MarkerPath)
		}
		e.deps.Log.Fields(hclog.Error, fmt.Sprintf("Failed %s: %s", name, r.Detail), kv...)
	}
}
