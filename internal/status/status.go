// Package status serves a small read-only HTTP view of the running
// scheduler: health, the summary and results of the latest cycle, and the
// file being converted right now. The Server is a pipeline.Observer.
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/report"
)

const shutdownTimeout = 5 * time.Second

// Current describes the file in progress.
type Current struct {
	Path      string              `json:"path"`
	Size      int64               `json:"size"`
	Index     int                 `json:"index"`
	Total     int                 `json:"total"`
	StartedAt time.Time           `json:"started_at"`
	Progress  *handbrake.Progress `json:"progress,omitempty"`
}

// Server tracks scheduler events and serves them over HTTP.
type Server struct {
	mu      sync.RWMutex
	rep     *report.Reporter // latest cycle, running or finished
	running bool
	cycles  int
	current *Current

	version string
	started time.Time
	log     hclog.Logger
	router  *gin.Engine
}

// New returns a Server. log may be nil.
func New(version string, log hclog.Logger) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{version: version, started: time.Now(), log: log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog)
	r.GET("/healthz", s.handleHealth)
	r.GET("/summary", s.handleSummary)
	r.GET("/results", s.handleResults)
	r.GET("/current", s.handleCurrent)
	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. A listen failure is returned immediately.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.log.Info("status server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("status request", "method", c.Request.Method, "path", c.Request.URL.Path,
		"status", c.Writer.Status(), "elapsed", time.Since(start))
}

// --- Handlers ---

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"cycles":  s.cycles,
		"running": s.running,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	s.mu.RLock()
	rep, running := s.rep, s.running
	s.mu.RUnlock()
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cycle has started yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": running, "summary": rep.Summary()})
}

func (s *Server) handleResults(c *gin.Context) {
	s.mu.RLock()
	rep := s.rep
	s.mu.RUnlock()
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cycle has started yet"})
		return
	}
	results := rep.Results()
	if want := c.Query("state"); want != "" {
		filtered := results[:0]
		for _, r := range results {
			if r.State.String() == want {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	c.JSON(http.StatusOK, gin.H{"cycle_id": rep.CycleID(), "results": results})
}

func (s *Server) handleCurrent(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		c.JSON(http.StatusOK, gin.H{"idle": true})
		return
	}
	cur := *s.current
	if cur.Progress != nil {
		p := *cur.Progress
		cur.Progress = &p
	}
	c.JSON(http.StatusOK, gin.H{"idle": false, "file": cur})
}

// --- Observer ---

func (s *Server) CycleStarted(rep *report.Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rep = rep
	s.running = true
	s.cycles++
	s.current = nil
}

func (s *Server) FileStarted(f media.File, index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Current{Path: f.Path, Size: f.Size, Index: index, Total: total, StartedAt: time.Now()}
}

func (s *Server) FileProgress(f media.File, p handbrake.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Path == f.Path {
		s.current.Progress = &p
	}
}

func (s *Server) FileFinished(media.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *Server) CycleFinished(*report.Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.current = nil
}
