package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/frames/internal/domain"
	"github.com/pbaille/frames/internal/logging"
	"github.com/pbaille/frames/internal/report"
	"github.com/pbaille/frames/internal/store"
	"github.com/pbaille/frames/internal/timefmt"
	"github.com/pbaille/frames/internal/tracker"
)

// Server exposes frames and reports over HTTP
type Server struct {
	store   *store.Store
	tracker *tracker.Tracker
	format  timefmt.Formatter
	logger  *logging.Logger
	addr    string
}

// New creates a new API server
func New(s *store.Store, t *tracker.Tracker, f timefmt.Formatter, logger *logging.Logger, addr string) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Server{store: s, tracker: t, format: f, logger: logger, addr: addr}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Frames
	mux.HandleFunc("GET /frames/active", s.activeFrames)
	mux.HandleFunc("POST /frames/start", s.startFrame)
	mux.HandleFunc("POST /frames/stop", s.stopFrames)

	// Reports
	mux.HandleFunc("GET /report", s.report)

	// Projects and tags
	mux.HandleFunc("GET /projects", s.listProjects)
	mux.HandleFunc("GET /tags", s.listTags)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return s.withLogging(withCORS(mux))
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("starting server", "addr", s.addr)
	fmt.Printf("Starting server on %s\n", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// FrameResponse is a frame with display fields for API clients
type FrameResponse struct {
	*domain.Frame
	Elapsed string `json:"elapsed"`
	Date    string `json:"date"`
	Start   string `json:"start"`
}

func (s *Server) frameResponse(f *domain.Frame) FrameResponse {
	return FrameResponse{
		Frame:   f,
		Elapsed: s.format.Duration(f.Elapsed(s.tracker.Now())),
		Date:    s.format.Date(f.StartedAt),
		Start:   s.format.Time(f.StartedAt),
	}
}

func (s *Server) activeFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := s.tracker.Active()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]FrameResponse, 0, len(frames))
	for i := range frames {
		resp = append(resp, s.frameResponse(&frames[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"frames": resp,
	})
}

// StartFrameRequest is the request body for starting a frame
type StartFrameRequest struct {
	Project  string   `json:"project"`
	Tags     []string `json:"tags,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Estimate string   `json:"estimate,omitempty"`
}

func (s *Server) startFrame(w http.ResponseWriter, r *http.Request) {
	var req StartFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Project) == "" {
		writeError(w, http.StatusBadRequest, "project is required")
		return
	}

	var estimate time.Duration
	if req.Estimate != "" {
		var err error
		if estimate, err = timefmt.ParseInterval(req.Estimate); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	frame, err := s.tracker.StartWith(req.Project, nil, tracker.FrameDetails{
		Tags:     req.Tags,
		Notes:    req.Notes,
		Estimate: estimate,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, s.frameResponse(frame))
}

// StopFrameRequest is the request body for stopping frames. An empty project
// stops every active frame.
type StopFrameRequest struct {
	Project string `json:"project,omitempty"`
}

func (s *Server) stopFrames(w http.ResponseWriter, r *http.Request) {
	var req StopFrameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	frames, err := s.store.ActiveFrames(req.Project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(frames) == 0 {
		writeError(w, http.StatusNotFound, "no active frame")
		return
	}

	resp := make([]FrameResponse, 0, len(frames))
	for i := range frames {
		if err := s.tracker.Stop(&frames[i], nil); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		resp = append(resp, s.frameResponse(&frames[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"frames": resp,
	})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := report.FormatJSON
	if name := q.Get("format"); name != "" {
		var err error
		if format, err = report.ParseFormat(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	from, err := timefmt.ParseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := timefmt.ParseDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := report.Build(s.store, s.format).
		From(from).
		To(to).
		ForProject(q["project"]...).
		ForTag(q["tag"]...).
		Create()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	if err := rep.Render(w, format); err != nil {
		s.logger.Error("render report", "format", format.String(), "error", err.Error())
	}
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatCSV:
		return "text/csv; charset=utf-8"
	case report.FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
	})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags": tags,
	})
}

// statusFor maps domain and report errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, report.ErrMissingRange),
		errors.Is(err, report.ErrUnknownFormat),
		errors.Is(err, domain.ErrStopBeforeStart),
		errors.Is(err, domain.ErrNegativeEstimate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFrameActive),
		errors.Is(err, domain.ErrFrameStopped):
		return http.StatusConflict
	case errors.Is(err, domain.ErrFrameNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
