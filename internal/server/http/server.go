package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/queue"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/internal/telemetry"
	"github.com/hirlogixbuilt0157-wq/mobile-pulse/pkg/log"
)

// Server serves the local ingestion/management API over HTTP.
type Server struct {
	svc    *telemetry.Service
	logger log.Logger
	srv    *http.Server
	lis    net.Listener
}

// New builds a Server around the telemetry service.
func New(svc *telemetry.Service, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NewNullOutput()))
	}
	mux := http.NewServeMux()
	s := &Server{svc: svc, logger: logger, srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/events", s.handleIngest)
	mux.HandleFunc("/v1/queue/stats", s.handleStats)
	mux.HandleFunc("/v1/queue/flush", s.handleFlush)
	mux.HandleFunc("/v1/queue", s.handleClear)
	mux.HandleFunc("/v1/config", s.handleConfigure)
	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the bound listen address, once serving.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Close stops the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestReq struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ingestResp struct {
	ID       string `json:"id"`
	Filtered bool   `json:"filtered,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req ingestReq
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	kind, err := queue.ParseKind(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	eid, err := s.svc.Ingest(r.Context(), kind, req.Data)
	if err != nil {
		if queue.IsStorageError(err) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResp{ID: eid, Filtered: eid == ""})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"size": s.svc.QueueSize()})
}

type flushResp struct {
	Delivered int    `json:"delivered"`
	Retried   int    `json:"retried"`
	Evicted   int    `json:"evicted"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := s.svc.Flush(r.Context())
	resp := flushResp{Delivered: out.Delivered, Retried: out.Retried, Evicted: out.Evicted}
	if out.Err != nil && !errors.Is(out.Err, context.Canceled) {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.svc.Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var patch telemetry.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.svc.Configure(patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
