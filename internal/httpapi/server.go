// Package httpapi is the thin transport adapter in front of the tool core.
// It parses nothing itself beyond the outer JSON body: argument validation
// belongs to the tools, and every response is the same envelope: a result
// payload or a classified failure, never a raw error string.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupiduntilnot/toolguard/internal/db"
	"github.com/stupiduntilnot/toolguard/internal/tool"
)

const maxRequestBodyBytes = 1 << 20

// Envelope is the standard response wrapper for all tool calls.
type Envelope struct {
	OK     bool          `json:"ok"`
	Result any           `json:"result,omitempty"`
	Error  *tool.Failure `json:"error,omitempty"`
}

type Server struct {
	runner   *tool.Runner
	database *sql.DB
	srv      *http.Server
	logger   zerolog.Logger
}

// NewServer wires the runner behind the HTTP surface. database may be nil;
// audit logging is then skipped.
func NewServer(addr string, runner *tool.Runner, database *sql.DB, logger zerolog.Logger) *Server {
	s := &Server{
		runner:   runner,
		database: database,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/tools", s.handleListTools)
	mux.HandleFunc("POST /v1/tools/exec", s.handleTool("exec"))
	mux.HandleFunc("POST /v1/tools/fetch", s.handleTool("fetch"))

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("http server starting")
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.runner.Tools()})
}

func (s *Server) handleTool(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err != nil {
			s.respondFailure(w, name, 0,
				tool.Failf(tool.KindInvalidInput, "unreadable request body: %v", err))
			return
		}

		started := time.Now()
		result, failure := s.runner.RunOne(r.Context(), tool.Call{
			Name:      name,
			Arguments: json.RawMessage(body),
		})
		elapsed := time.Since(started).Milliseconds()

		if failure != nil {
			s.respondFailure(w, name, elapsed, failure)
			return
		}
		s.audit(db.EventInvocationOK, name, "", elapsed)
		writeJSON(w, http.StatusOK, Envelope{OK: true, Result: result})
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, name string, elapsed int64, failure *tool.Failure) {
	s.audit(db.EventInvocationFailed, name, failure.Kind, elapsed)
	writeJSON(w, statusForFailure(failure.Kind), Envelope{OK: false, Error: failure})
}

func (s *Server) audit(eventType, name, code string, elapsed int64) {
	if s.database == nil {
		return
	}
	if _, err := db.LogInvocation(s.database, eventType, name, code, elapsed, nil); err != nil {
		s.logger.Warn().Err(err).Str("tool", name).Msg("failed to write audit row")
	}
}

// statusForFailure maps a failure kind to an HTTP status. TIMEOUT and
// NON_ZERO_EXIT are 200: they carry a full diagnostic outcome and the tool
// call itself worked as designed.
func statusForFailure(kind string) int {
	switch kind {
	case tool.KindInvalidInput, tool.KindInvalidURL:
		return http.StatusBadRequest
	case tool.KindCommandNotAllowed, tool.KindDisallowedArgument, tool.KindSSRFBlocked:
		return http.StatusForbidden
	case tool.KindTimeout, tool.KindNonZeroExit:
		return http.StatusOK
	case tool.KindDNSFailed, tool.KindFetchFailed, tool.KindTooManyRedirects:
		return http.StatusBadGateway
	case tool.KindAborted:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func withLogging(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
