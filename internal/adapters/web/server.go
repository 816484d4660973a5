package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/corey/silencio/internal/adapters/openai"
	"github.com/corey/silencio/internal/app"
	"github.com/corey/silencio/internal/domain/inventory"
	"github.com/corey/silencio/internal/domain/redact"
	"github.com/corey/silencio/internal/domain/tags"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// Service is the part of *app.App the HTTP API needs.
type Service interface {
	Redact(origin app.Origin, document string, rows []redact.TargetRow) (redact.Result, error)
	RedactItems(origin app.Origin, document string, items []inventory.Item) ([]redact.TargetRow, redact.Result, error)
	RedactDocument(ctx context.Context, origin app.Origin, document, source string, refresh bool) (*inventory.Inventory, []redact.TargetRow, redact.Result, error)
	Classify(ctx context.Context, document, source string, refresh bool) (*inventory.Inventory, error)
}

// Server serves the redaction API and a small demo page over HTTP.
type Server struct {
	svc      Service
	metrics  prometheus.Gatherer
	log      *zap.Logger
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .silencio/run/http.port
}

// NewServer creates an HTTP server. metrics may be nil to disable /metrics.
// The portFilePath is where the bound port is written for discovery.
func NewServer(svc Service, metrics prometheus.Gatherer, log *zap.Logger, portFilePath string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		svc:          svc,
		metrics:      metrics,
		log:          log.Named("http"),
		portFilePath: portFilePath,
		started:      time.Now(),
	}
}

// DefaultPort computes a project-specific port: 19000 + (hash(abs_path) % 1000).
func DefaultPort(projectRoot string) int {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	// Use first 4 bytes as uint32
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19000 + int(n%1000)
}

// Handler returns the routed handler, wrapped with request logging.
func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(staticFS, "static")
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServer(http.FS(static)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/redact", s.handleRedact)
	mux.HandleFunc("POST /api/classify", s.handleClassify)
	mux.HandleFunc("POST /api/tags", s.handleTags)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	return s.withRequestID(mux)
}

// Start begins listening on the preferred port. Writes the port to the port file.
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Write port file for discovery
	if s.portFilePath != "" {
		os.WriteFile(s.portFilePath, []byte(fmt.Sprintf("%d", s.port)), 0644)
	}

	go s.httpSrv.Serve(ln)
	s.log.Info("listening", zap.String("url", s.URL()))
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the server URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// HealthResult is the /api/health response.
type HealthResult struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// RedactRequest is the /api/redact body. Exactly one source of rows is used:
// explicit rows, else classifier-style items, else the classifier itself.
type RedactRequest struct {
	Document string             `json:"document"`
	Rows     []redact.TargetRow `json:"rows,omitempty"`
	Items    []inventory.Item   `json:"items,omitempty"`
	Refresh  bool               `json:"refresh,omitempty"`
}

// RedactResponse is the /api/redact response.
type RedactResponse struct {
	DocumentID   string             `json:"document_id,omitempty"`
	RedactedText string             `json:"redacted_text"`
	Matches      []redact.Match     `json:"matches"`
	Rows         []redact.TargetRow `json:"rows"`
	Segments     []tags.Segment     `json:"segments"`
}

// ClassifyRequest is the /api/classify body.
type ClassifyRequest struct {
	Document string `json:"document"`
	Source   string `json:"source,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`
}

// TagsRequest is the /api/tags body.
type TagsRequest struct {
	Text string `json:"text"`
}

// TagsResult is the /api/tags response.
type TagsResult struct {
	Tags  []tags.Tag `json:"tags"`
	Count int        `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResult{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req RedactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		rows  []redact.TargetRow
		res   redact.Result
		docID string
		err   error
	)
	switch {
	case req.Rows != nil:
		rows = req.Rows
		res, err = s.svc.Redact(app.OriginAPI, req.Document, rows)
	case req.Items != nil:
		rows, res, err = s.svc.RedactItems(app.OriginAPI, req.Document, req.Items)
	default:
		var inv *inventory.Inventory
		inv, rows, res, err = s.svc.RedactDocument(r.Context(), app.OriginAPI, req.Document, "api", req.Refresh)
		if inv != nil {
			docID = inv.DocumentID
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rows == nil {
		rows = []redact.TargetRow{}
	}
	segments := tags.Segments(req.Document, res.Matches)
	if segments == nil {
		segments = []tags.Segment{}
	}
	writeJSON(w, http.StatusOK, RedactResponse{
		DocumentID:   docID,
		RedactedText: res.RedactedText,
		Matches:      res.Matches,
		Rows:         rows,
		Segments:     segments,
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inv, err := s.svc.Classify(r.Context(), req.Document, req.Source, req.Refresh)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	var req TagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	found := tags.Find(req.Text)
	if found == nil {
		found = []tags.Tag{}
	}
	writeJSON(w, http.StatusOK, TagsResult{Tags: found, Count: len(found)})
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, redact.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrNoClassifier), errors.Is(err, openai.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "empty request body"
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
