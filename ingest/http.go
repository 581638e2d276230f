package ingest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the ingestion pipeline over HTTP. Runs triggered over HTTP
// skip the confirmation gate; the POST itself is the consent.
type Server struct {
	runner     *Runner
	store      *Store
	summaryDir string
	logger     *slog.Logger

	// running guards against concurrent batch runs over the same tree.
	running sync.Mutex
}

// NewServer creates an HTTP server facade. store may be nil, which disables
// the run-history endpoints.
func NewServer(runner *Runner, store *Store, summaryDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, store: store, summaryDir: summaryDir, logger: logger}
}

// Handler builds the chi router for the service.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/v1/health", s.handleHealth)
	r.Post("/v1/ingest", s.handleIngest)
	r.Get("/v1/runs", s.handleListRuns)
	r.Get("/v1/runs/{id}", s.handleGetRun)
	r.Get("/v1/runs/{id}/files", s.handleRunFiles)
	r.Get("/v1/summaries", s.handleListSummaries)
	r.Get("/v1/summaries/{name}", s.handleGetSummary)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest triggers a batch run. Only one run at a time is allowed.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, errors.New("a run is already in progress"))
		return
	}
	defer s.running.Unlock()

	report, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Error("http-triggered run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("run ledger disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("run ledger disabled"))
		return
	}
	run, err := s.store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, errors.New("run not found"))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunFiles(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("run ledger disabled"))
		return
	}
	files, err := s.store.ListRunFiles(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if files == nil {
		files = []RunFileRecord{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, _ *http.Request) {
	names, err := ListSummaries(s.summaryDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// The name is a path segment from the client; never let it traverse.
	if name != filepath.Base(name) || !strings.HasSuffix(name, summarySuffix) {
		writeError(w, http.StatusBadRequest, errors.New("invalid summary name"))
		return
	}
	sum, err := ReadSummary(filepath.Join(s.summaryDir, name))
	if err != nil {
		writeError(w, http.StatusNotFound, errors.New("summary not found"))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
