package handbrake

import (
	"bytes"
	"regexp"
	"strconv"
)

// Progress is one parsed HandBrakeCLI status update.
type Progress struct {
	Task    int     `json:"task"`
	Tasks   int     `json:"tasks"`
	Percent float64 `json:"percent"`
	FPS     float64 `json:"fps,omitempty"`
	AvgFPS  float64 `json:"avg_fps,omitempty"`
	ETA     string  `json:"eta,omitempty"`
}

// ProgressFunc receives progress updates while an encode runs.
type ProgressFunc func(Progress)

// Encoding: task 1 of 1, 45.67 % (120.53 fps, avg 118.20 fps, ETA 00h12m34s)
var progressLine = regexp.MustCompile(
	`Encoding: task (\d+) of (\d+), (\d+(?:\.\d+)?) %` +
		`(?: \((\d+(?:\.\d+)?) fps, avg (\d+(?:\.\d+)?) fps, ETA (\w+)\))?`)

// ParseProgress extracts a progress update from one line of HandBrakeCLI
// stdout.
func ParseProgress(line string) (Progress, bool) {
	m := progressLine.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	p := Progress{ETA: m[6]}
	p.Task, _ = strconv.Atoi(m[1])
	p.Tasks, _ = strconv.Atoi(m[2])
	p.Percent, _ = strconv.ParseFloat(m[3], 64)
	if m[4] != "" {
		p.FPS, _ = strconv.ParseFloat(m[4], 64)
		p.AvgFPS, _ = strconv.ParseFloat(m[5], 64)
	}
	return p, true
}

// lineWriter splits everything written to it into lines on '\r' as well
// as '\n', since HandBrakeCLI redraws its status line with carriage
// returns. Empty lines are dropped.
type lineWriter struct {
	buf []byte
	fn  func(string)
}

// maxLine flushes runaway output that never ends a line.
const maxLine = 64 * 1024

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		if i > 0 {
			w.fn(string(w.buf[:i]))
		}
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) > maxLine {
		w.Flush()
	}
	return len(p), nil
}

// Flush emits a trailing partial line.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.fn(string(w.buf))
	}
	w.buf = w.buf[:0]
}

// tail keeps the last n lines written to it.
type tail struct {
	n     int
	lines []string
}

func (t *tail) add(line string) {
	if len(t.lines) == t.n {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.n-1]
	}
	t.lines = append(t.lines, line)
}

func (t *tail) String() string {
	var b bytes.Buffer
	for _, l := range t.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
