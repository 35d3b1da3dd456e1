package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/convert-videos/internal/handbrake"
	"github.com/backmassage/convert-videos/internal/media"
	"github.com/backmassage/convert-videos/internal/pipeline"
	"github.com/backmassage/convert-videos/internal/report"
)

var _ pipeline.Observer = (*Server)(nil)

func get(t *testing.T, s *Server, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return w.Code, body
}

func TestHealthz(t *testing.T) {
	s := New("1.2.3", nil)
	code, body := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, false, body["running"])
}

func TestSummaryBeforeFirstCycle(t *testing.T) {
	s := New("", nil)
	code, _ := get(t, s, "/summary")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, s, "/results")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCycleLifecycle(t *testing.T) {
	s := New("", nil)
	rep := report.New("cycle-7")
	s.CycleStarted(rep)

	f := media.File{Path: "/m/A.mp4", Size: 2048}
	s.FileStarted(f, 1, 2)
	s.FileProgress(f, handbrake.Progress{Percent: 42.5, ETA: "00h01m00s"})

	code, body := get(t, s, "/current")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["idle"])
	file := body["file"].(map[string]interface{})
	assert.Equal(t, "/m/A.mp4", file["path"])
	assert.Equal(t, 42.5, file["progress"].(map[string]interface{})["percent"])

	res := media.Result{InputPath: f.Path, State: media.StateConverted, OriginalSize: 2048, ConvertedSize: 1024}
	rep.Add(res)
	s.FileFinished(res)
	rep.Add(media.Result{InputPath: "/m/B.mp4", State: media.StateFailed, Reason: media.ReasonEncodeError})

	_, body = get(t, s, "/current")
	assert.Equal(t, true, body["idle"])

	code, body = get(t, s, "/summary")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["running"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, "cycle-7", summary["cycle_id"])
	assert.Equal(t, float64(1), summary["converted"])
	assert.Equal(t, float64(1024), summary["bytes_saved"])

	_, body = get(t, s, "/results?state=failed")
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "encode_error", results[0].(map[string]interface{})["reason"])

	s.CycleFinished(rep)
	_, body = get(t, s, "/healthz")
	assert.Equal(t, float64(1), body["cycles"])
	assert.Equal(t, false, body["running"])
}

func TestListenAndServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	err := New("", nil).ListenAndServe(context.Background(), "not-an-address")
	assert.Error(t, err)
}
