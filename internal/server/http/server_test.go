package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/config"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/filter"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/queue"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/scheduler"
	pebblestore "github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/storage/pebble"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/telemetry"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/uploader"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/clock"
)

// newTestServer wires the full local API stack over a temp store and returns
// an httptest frontend for it. collectorURL may be empty when a test never
// flushes.
func newTestServer(t *testing.T, collectorURL string) *httptest.Server {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := queue.Open(db, queue.Options{Capacity: 1000})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	cfg := config.Default()
	cfg.ServerURL = collectorURL
	svc := telemetry.New(store, filter.Filter{}, cfg, nil)
	up := uploader.New(store, nil, uploader.AlwaysOnline{}, svc.Config, nil)
	sched := scheduler.New(up, scheduler.Options{
		Debounce: cfg.DebounceDelay(),
		Interval: cfg.UploadInterval(),
		Clock:    clock.NewFake(time.Unix(0, 0)),
	})
	sched.Start(context.Background())
	t.Cleanup(sched.Stop)
	svc.Bind(sched)

	s := New(svc, nil)
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, "")
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("body: %s", body)
	}
}

func TestIngestAndStats(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/events", `{"type":"crash","data":{"fatal":true}}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var ir struct {
		ID       string `json:"id"`
		Filtered bool   `json:"filtered"`
	}
	if err := json.Unmarshal(body, &ir); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ir.ID == "" || ir.Filtered {
		t.Fatalf("ingest response: %+v", ir)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/queue/stats", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", resp.StatusCode)
	}
	var st struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Size != 1 {
		t.Fatalf("size = %d, want 1", st.Size)
	}
}

func TestIngestRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/events", `{"type":"telepathy","data":{}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/events", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestFlushEndpoint(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ts := newTestServer(t, collector.URL)
	for i := 0; i < 3; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/events", `{"type":"session","data":{}}`)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("ingest status %d", resp.StatusCode)
		}
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/queue/flush", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("flush status %d", resp.StatusCode)
	}
	var fr struct {
		Delivered int    `json:"delivered"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &fr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fr.Delivered != 3 || fr.Error != "" {
		t.Fatalf("flush response: %+v", fr)
	}
}

func TestClearEndpoint(t *testing.T) {
	ts := newTestServer(t, "")
	doJSON(t, http.MethodPost, ts.URL+"/v1/events", `{"type":"custom","data":{}}`)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/v1/queue", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status %d", resp.StatusCode)
	}

	_, body := doJSON(t, http.MethodGet, ts.URL+"/v1/queue/stats", "")
	if !strings.Contains(string(body), `"size":0`) {
		t.Fatalf("stats after clear: %s", body)
	}
}

func TestConfigurePatch(t *testing.T) {
	ts := newTestServer(t, "")

	resp, _ := doJSON(t, http.MethodPatch, ts.URL+"/v1/config", `{"batchSize":25,"serverUrl":"https://collector.example.com/v1/batch"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("patch status %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPatch, ts.URL+"/v1/config", `{"batchSize":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid patch status %d: %s", resp.StatusCode, body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, "")
	cases := []struct{ method, path string }{
		{http.MethodGet, "/v1/events"},
		{http.MethodPost, "/v1/queue/stats"},
		{http.MethodGet, "/v1/queue/flush"},
		{http.MethodPost, "/v1/queue"},
		{http.MethodPost, "/v1/config"},
	}
	for _, c := range cases {
		resp, _ := doJSON(t, c.method, ts.URL+c.path, "")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: status %d", c.method, c.path, resp.StatusCode)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, "")
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS headers")
	}
}
