// Package report accumulates per-file conversion results for one cycle and
// summarizes them. A Reporter is safe for concurrent use: the scheduler
// writes to it while the status server reads.
package report

import (
	"sync"
	"time"

	"github.com/backmassage/convert-videos/internal/media"
)

// Summary tracks aggregate counters and byte totals across a cycle.
type Summary struct {
	CycleID    string    `json:"cycle_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Discovered int       `json:"discovered"`
	Processed  int       `json:"processed"`
	Converted  int       `json:"converted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	DryRun     int       `json:"dry_run_planned"`

	// Per-reason counts for Skipped and Failed results.
	SkipReasons    map[media.Reason]int `json:"skip_reasons"`
	FailureReasons map[media.Reason]int `json:"failure_reasons"`

	// Byte totals over converted files only.
	OriginalBytes  int64 `json:"original_bytes"`
	ConvertedBytes int64 `json:"converted_bytes"`
	BytesSaved     int64 `json:"bytes_saved"`
}

// SpaceSaved returns the aggregate byte difference between inputs and
// outputs. Positive means outputs are smaller; negative means they grew.
func (s Summary) SpaceSaved() int64 {
	return s.OriginalBytes - s.ConvertedBytes
}

// Reporter is the per-cycle result sink.
type Reporter struct {
	mu         sync.RWMutex
	cycleID    string
	started    time.Time
	discovered int
	results    []media.Result
}

// New returns an empty reporter for one cycle.
func New(cycleID string) *Reporter {
	return &Reporter{cycleID: cycleID, started: time.Now()}
}

// CycleID returns the identifier of the cycle this reporter belongs to.
func (r *Reporter) CycleID() string { return r.cycleID }

// SetDiscovered records how many candidates the scan produced.
func (r *Reporter) SetDiscovered(n int) {
	r.mu.Lock()
	r.discovered = n
	r.mu.Unlock()
}

// Add records one terminal result.
func (r *Reporter) Add(res media.Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

// Results returns a copy of the results in the order they were added.
func (r *Reporter) Results() []media.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]media.Result, len(r.results))
	copy(out, r.results)
	return out
}

// Summary computes the aggregate view of everything added so far.
func (r *Reporter) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		CycleID:        r.cycleID,
		StartedAt:      r.started,
		Discovered:     r.discovered,
		Processed:      len(r.results),
		SkipReasons:    map[media.Reason]int{},
		FailureReasons: map[media.Reason]int{},
	}
	for _, res := range r.results {
		switch res.State {
		case media.StateConverted:
			s.Converted++
			s.OriginalBytes += res.OriginalSize
			s.ConvertedBytes += res.ConvertedSize
		case media.StateSkipped:
			s.Skipped++
			s.SkipReasons[res.Reason]++
			if res.Reason == media.ReasonDryRun {
				s.DryRun++
			}
		case media.StateFailed:
			s.Failed++
			s.FailureReasons[res.Reason]++
		}
	}
	s.BytesSaved = s.SpaceSaved()
	return s
}
