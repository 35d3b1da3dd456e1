package pipeline

import (
	"math"

	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/logging"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/report"
)

// Observer receives cycle and file events from a Runner. Calls are made
// from the runner's goroutine, except FileProgress which comes from the
// encoder's output reader; implementations must not block.
type Observer interface {
	CycleStarted(rep *report.Reporter)
	FileStarted(f media.File, index, total int)
	FileProgress(f media.File, p handbrake.Progress)
	FileFinished(res media.Result)
	CycleFinished(rep *report.Reporter)
}

// NopObserver implements Observer with no-ops, for embedding.
type NopObserver struct{}

func (NopObserver) CycleStarted(*report.Reporter)               {}
func (NopObserver) FileStarted(media.File, int, int)            {}
func (NopObserver) FileProgress(media.File, handbrake.Progress) {}
func (NopObserver) FileFinished(media.Result)                   {}
func (NopObserver) CycleFinished(*report.Reporter)              {}

// ProgressLogger logs encode progress every Step percent.
type ProgressLogger struct {
	NopObserver
	Log  *logging.Logger
	Step float64 // percent between log lines; 0 means 10

	last float64
}

// NewProgressLogger returns a ProgressLogger writing to log.
func NewProgressLogger(log *logging.Logger) *ProgressLogger {
	return &ProgressLogger{Log: log, Step: 10}
}

func (p *ProgressLogger) FileStarted(media.File, int, int) { p.last = 0 }

func (p *ProgressLogger) FileProgress(_ media.File, pr handbrake.Progress) {
	step := p.Step
	if step <= 0 {
		step = 10
	}
	mark := math.Floor(pr.Percent/step) * step
	if mark <= p.last {
		return
	}
	p.last = mark
	if pr.ETA != "" {
		p.Log.Info("  %3.0f%% (%.1f fps, ETA %s)", mark, pr.AvgFPS, pr.ETA)
		return
	}
	p.Log.Info("  %3.0f%%", mark)
}
