package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/engine"
	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/logging"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/planner"
	"github.com/backmassage/convert-videos/internal/probe"
	"github.com/backmassage/convert-videos/internal/report"
	"github.com/backmassage/convert-videos/internal/scan"
)

// --- Doubles ---

// recProcessor records the files it is given and converts them all.
type recProcessor struct {
	mu      sync.Mutex
	seen    []string
	process func(ctx context.Context, f media.File) media.Result
}

func (p *recProcessor) Process(ctx context.Context, f media.File, onProgress handbrake.ProgressFunc) media.Result {
	p.mu.Lock()
	p.seen = append(p.seen, filepath.Base(f.Path))
	p.mu.Unlock()
	if onProgress != nil {
		onProgress(handbrake.Progress{Percent: 50})
	}
	if p.process != nil {
		return p.process(ctx, f)
	}
	return media.Result{InputPath: f.Path, State: media.StateConverted, OriginalSize: f.Size, ConvertedSize: f.Size / 2}
}

func (p *recProcessor) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

// recObserver records event names in order.
type recObserver struct {
	mu       sync.Mutex
	events   []string
	finished func(rep *report.Reporter)
}

func (o *recObserver) add(e string) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *recObserver) CycleStarted(*report.Reporter)               { o.add("cycle") }
func (o *recObserver) FileStarted(f media.File, _, _ int)          { o.add("start " + filepath.Base(f.Path)) }
func (o *recObserver) FileProgress(media.File, handbrake.Progress) { o.add("progress") }
func (o *recObserver) FileFinished(r media.Result)                 { o.add("done " + filepath.Base(r.InputPath)) }
func (o *recObserver) CycleFinished(rep *report.Reporter) {
	o.add("end")
	if o.finished != nil {
		o.finished(rep)
	}
}

// --- Helpers ---

func sized(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return p
}

func testConfig(dir string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Directory = dir
	cfg.MinFileSize = 1000
	cfg.LoopInterval = 20 * time.Millisecond
	cfg.WatchSettle = 50 * time.Millisecond
	return cfg
}

func newRunner(cfg config.Config, p Processor, obs ...Observer) *Runner {
	log := logging.Discard()
	return New(cfg, scan.New(scan.Options{MinSize: cfg.MinFileSize, Log: log}), p, log, obs...)
}

// --- RunOnce ---

func TestRunOnce_ProcessesLargestFirst(t *testing.T) {
	dir := t.TempDir()
	sized(t, dir, "small.mkv", 1200)
	sized(t, dir, "big.mp4", 3000)
	sized(t, dir, "tiny.avi", 10)
	sized(t, dir, "mid.mov", 2000)

	p := &recProcessor{}
	obs := &recObserver{}
	rep, err := newRunner(testConfig(dir), p, obs).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"big.mp4", "mid.mov", "small.mkv"}, p.names())
	s := rep.Summary()
	assert.NotEmpty(t, s.CycleID)
	assert.Equal(t, 3, s.Discovered)
	assert.Equal(t, 3, s.Converted)
	assert.Equal(t, int64(3100), s.BytesSaved)

	assert.Equal(t, []string{
		"cycle",
		"start big.mp4", "progress", "done big.mp4",
		"start mid.mov", "progress", "done mid.mov",
		"start small.mkv", "progress", "done small.mkv",
		"end",
	}, obs.events)
}

func TestRunOnce_DiscoveryError(t *testing.T) {
	p := &recProcessor{}
	_, err := newRunner(testConfig(filepath.Join(t.TempDir(), "missing")), p).RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, scan.IsDiscoveryError(err))
	assert.Empty(t, p.names())
}

func TestRunOnce_InterruptStopsCycle(t *testing.T) {
	dir := t.TempDir()
	sized(t, dir, "a.mkv", 3000)
	sized(t, dir, "b.mkv", 2000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &recProcessor{process: func(_ context.Context, f media.File) media.Result {
		cancel()
		return media.Result{InputPath: f.Path, State: media.StateFailed, Reason: media.ReasonInterrupted}
	}}

	rep, err := newRunner(testConfig(dir), p).RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a.mkv"}, p.names())
	assert.Len(t, rep.Results(), 1)
}

// fakeProber and fakeEncoder drive a real engine through the scheduler.
type fakeProber struct{ codecs map[string]string }

func (p fakeProber) Probe(_ context.Context, path string) (*probe.Result, error) {
	return &probe.Result{PrimaryVideo: &probe.VideoStream{Codec: p.codecs[filepath.Base(path)]}}, nil
}

func (fakeProber) Duration(context.Context, string) (int64, error) { return 120, nil }

type fakeEncoder struct{ calls int }

func (e *fakeEncoder) Encode(_ context.Context, plan *planner.Plan, _ handbrake.ProgressFunc) error {
	e.calls++
	return os.WriteFile(plan.TempPath, []byte("hevc"), 0o644)
}

func listing(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunOnce_Scenario(t *testing.T) {
	tests := []struct {
		name      string
		dryRun    bool
		wantFiles []string
		wantCalls int
	}{
		{"real run", false, []string{"A.converted.mkv", "A.mp4", "B.mp4", "C.mkv"}, 1},
		{"dry run", true, []string{"A.mp4", "B.mp4", "C.mkv"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			sized(t, dir, "A.mp4", 2000)
			sized(t, dir, "B.mp4", 500)
			sized(t, dir, "C.mkv", 1500)

			cfg := testConfig(dir)
			cfg.DryRun = tt.dryRun
			enc := &fakeEncoder{}
			eng := engine.New(cfg, engine.Deps{
				Prober:  fakeProber{codecs: map[string]string{"A.mp4": "h264", "B.mp4": "h264", "C.mkv": "hevc"}},
				Encoder: enc,
				Log:     logging.Discard(),
			})
			p := &recProcessor{process: func(ctx context.Context, f media.File) media.Result {
				return eng.Process(ctx, f, nil)
			}}

			rep, err := newRunner(cfg, p).RunOnce(context.Background())
			require.NoError(t, err)

			assert.Equal(t, []string{"A.mp4", "C.mkv"}, p.names(), "same discovery list either way")
			results := rep.Results()
			require.Len(t, results, 2)
			assert.Equal(t, media.StateSkipped, results[1].State)
			assert.Equal(t, media.ReasonAlreadyTarget, results[1].Reason)
			if tt.dryRun {
				assert.Equal(t, media.ReasonDryRun, results[0].Reason)
			} else {
				assert.Equal(t, media.StateConverted, results[0].State)
			}
			assert.Equal(t, tt.wantCalls, enc.calls)
			assert.ElementsMatch(t, tt.wantFiles, listing(t, dir))
		})
	}
}

// --- Loop ---

func runLoop(ctx context.Context, t *testing.T, r *Runner) error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- r.Loop(ctx) }()
	select {
	case err := <-errc:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Loop did not return")
		return nil
	}
}

func TestLoop_RepeatsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	sized(t, dir, "a.mkv", 2000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		mu  sync.Mutex
		ids []string
	)
	obs := &recObserver{finished: func(rep *report.Reporter) {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, rep.CycleID())
		if len(ids) == 3 {
			cancel()
		}
	}}

	err := runLoop(ctx, t, newRunner(testConfig(dir), &recProcessor{}, obs))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1], "each cycle gets a fresh id")
}

func TestLoop_DiscoveryErrorIsReturned(t *testing.T) {
	r := newRunner(testConfig(filepath.Join(t.TempDir(), "missing")), &recProcessor{})
	err := runLoop(context.Background(), t, r)
	assert.True(t, scan.IsDiscoveryError(err))
}

func TestLoop_WatchWakesEarly(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.LoopInterval = time.Hour
	cfg.Watch = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cycles := 0
	obs := &recObserver{finished: func(*report.Reporter) {
		cycles++
		if cycles == 1 {
			go func() {
				time.Sleep(100 * time.Millisecond)
				_ = os.WriteFile(filepath.Join(dir, "new.mkv"), make([]byte, 2000), 0o644)
			}()
			return
		}
		cancel()
	}}
	p := &recProcessor{}

	err := runLoop(ctx, t, newRunner(cfg, p, obs))
	require.NoError(t, err)
	assert.Equal(t, 2, cycles)
	assert.Equal(t, []string{"new.mkv"}, p.names())
}

func TestLoop_CancelDuringWait(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.LoopInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &recObserver{finished: func(*report.Reporter) {
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
	}}
	start := time.Now()
	require.NoError(t, runLoop(ctx, t, newRunner(cfg, &recProcessor{}, obs)))
	assert.Less(t, time.Since(start), 5*time.Second)
}

// --- Observers ---

func TestProgressLogger_Steps(t *testing.T) {
	pl := NewProgressLogger(logging.Discard())
	pl.FileStarted(media.File{}, 1, 1)
	for _, pct := range []float64{1, 9.9, 10.2, 15, 20, 55} {
		pl.FileProgress(media.File{}, handbrake.Progress{Percent: pct})
	}
	assert.Equal(t, 50.0, pl.last)

	pl.FileStarted(media.File{}, 2, 2)
	assert.Zero(t, pl.last)
}

var (
	_ Observer = NopObserver{}
	_ Observer = (*ProgressLogger)(nil)
)
