package pipeline

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/display"
	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/logging"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/report"
	"github.com/backmassage/convert-videos/internal/scan"
)

// Scanner produces the candidates of one cycle. *scan.Scanner implements it.
type Scanner interface {
	Discover(ctx context.Context, root string) (*scan.Discovery, error)
	Match(name string) bool
}

// Processor turns one candidate into its terminal result. *engine.Engine
// implements it.
type Processor interface {
	Process(ctx context.Context, f media.File, onProgress handbrake.ProgressFunc) media.Result
}

// Runner executes cycles. It is not safe for concurrent use; observers are
// how other goroutines follow along.
type Runner struct {
	cfg       config.Config
	scanner   Scanner
	engine    Processor
	log       *logging.Logger
	observers []Observer
	newID     func() string
}

// New returns a Runner over the resolved configuration.
func New(cfg config.Config, scanner Scanner, engine Processor, log *logging.Logger, observers ...Observer) *Runner {
	return &Runner{
		cfg:       cfg,
		scanner:   scanner,
		engine:    engine,
		log:       log,
		observers: observers,
		newID:     uuid.NewString,
	}
}

// RunOnce runs one discovery and conversion cycle and returns its reporter.
// A *scan.DiscoveryError aborts the cycle before any file is touched.
// When ctx is cancelled the cycle stops after the current file and
// ctx.Err() is returned along with the partial report.
func (r *Runner) RunOnce(ctx context.Context) (*report.Reporter, error) {
	id := r.newID()
	log := r.log.With("cycle", id)
	rep := report.New(id)
	r.each(func(o Observer) { o.CycleStarted(rep) })

	disc, err := r.scanner.Discover(ctx, r.cfg.Directory)
	if err != nil {
		log.Error("Discovery failed: %v", err)
		r.each(func(o Observer) { o.CycleFinished(rep) })
		return rep, err
	}
	rep.SetDiscovered(len(disc.Files))
	logCycleHeader(&r.cfg, log, disc)

	total, i := len(disc.Files), 0
	for f := range disc.All() {
		i++
		log.Info("[%d/%d] %s (%s)", i, total, filepath.Base(f.Path), display.FormatBytes(f.Size))
		r.each(func(o Observer) { o.FileStarted(f, i, total) })

		res := r.engine.Process(ctx, f, func(p handbrake.Progress) {
			r.each(func(o Observer) { o.FileProgress(f, p) })
		})
		rep.Add(res)
		r.each(func(o Observer) { o.FileFinished(res) })

		if res.Reason == media.ReasonInterrupted || ctx.Err() != nil {
			log.Warn("Interrupted, stopping after %s", filepath.Base(f.Path))
			break
		}
	}

	logSummary(&r.cfg, log, rep.Summary())
	r.each(func(o Observer) { o.CycleFinished(rep) })
	return rep, ctx.Err()
}

// Loop runs cycles until ctx is cancelled, sleeping LoopInterval between
// them. With Watch enabled, changes under the directory cut the sleep
// short once the tree has been quiet for WatchSettle. Cancellation is a
// clean exit; a discovery failure is returned.
func (r *Runner) Loop(ctx context.Context) error {
	var w *watcher
	if r.cfg.Watch {
		var err error
		w, err = newWatcher(r.cfg.Directory, r.scanner.Match, r.log)
		if err != nil {
			r.log.Warn("Watch disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.log.Info("Next scan in %s", display.FormatDuration(r.cfg.LoopInterval))
		if !r.wait(ctx, w) {
			r.log.Info("Shutting down")
			return nil
		}
	}
}

// wait blocks until the next cycle is due. It returns false when ctx is
// cancelled first.
func (r *Runner) wait(ctx context.Context, w *watcher) bool {
	timer := time.NewTimer(r.cfg.LoopInterval)
	defer timer.Stop()

	var changes <-chan struct{}
	if w != nil {
		// Our own renames from the cycle that just ended do not count.
		w.Drain()
		changes = w.Changes()
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-changes:
			if settle == nil {
				r.log.Debug("Change detected, waiting %s for the tree to settle", display.FormatDuration(r.cfg.WatchSettle))
			}
			settle = time.After(r.cfg.WatchSettle)
		case <-settle:
			r.log.Info("Directory changed, scanning early")
			return true
		}
	}
}

func (r *Runner) each(fn func(Observer)) {
	for _, o := range r.observers {
		fn(o)
	}
}

// --- Logging helpers ---

func logCycleHeader(cfg *config.Config, log *logging.Logger, disc *scan.Discovery) {
	log.Info("Found %d files (%s) in %s", len(disc.Files), display.FormatBytes(disc.TotalSize()), disc.Root)
	log.Info("Encoder: %s, preset %s, quality %d, container %s",
		cfg.Encoder, cfg.Preset, cfg.Quality, strings.ToUpper(string(cfg.Container)))
	log.Info("Minimum size: %s", display.FormatBytes(cfg.MinFileSize))
	if cfg.DryRun {
		log.Info("Dry run: nothing will be encoded, renamed or removed")
	}
	if cfg.RemoveOriginal {
		log.Warn("Originals are removed after a validated conversion")
	}
	for i, f := range disc.Files {
		log.Info("  %3d. %s (%s)", i+1, f.Path, display.FormatBytes(f.Size))
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, s report.Summary) {
	log.Info("==============================")
	log.Info("Done: %d converted, %d skipped, %d failed", s.Converted, s.Skipped, s.Failed)
	log.Info("Summary report:")
	log.Info("  Total files processed: %d of %d", s.Processed, s.Discovered)
	for _, reason := range slices.Sorted(maps.Keys(s.FailureReasons)) {
		log.Info("  Failed (%s): %d", reason, s.FailureReasons[reason])
	}

	if cfg.DryRun {
		log.Info("  Would convert: %d", s.DryRun)
		log.Info("  Total space saved: n/a (dry run)")
		return
	}

	saved := s.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(s.OriginalBytes),
			display.FormatBytes(s.ConvertedBytes))
	} else {
		log.Warn("  Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}
