// Package ops exposes a small operational HTTP surface: liveness and
// the most recent sweep report. It is meant for probes and dashboards,
// not for end users, so there is no auth and no mutation endpoint.
package ops

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/handlesync/handlesync-server/internal/reconcile"
)

// ReportSource yields the most recent sweep report, if any.
type ReportSource interface {
	LastReport() *reconcile.SweepReport
}

// Server serves the operational endpoints.
type Server struct {
	reports ReportSource
	router  *chi.Mux
	logger  *slog.Logger
}

// NewServer builds the ops router.
func NewServer(reports ReportSource, logger *slog.Logger) *Server {
	s := &Server{
		reports: reports,
		router:  chi.NewRouter(),
		logger:  logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/status", s.handleStatus)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type guildStatus struct {
	Records  int    `json:"records"`
	Renamed  int    `json:"renamed"`
	Reattach int    `json:"reattached"`
	Cleared  int    `json:"cleared"`
	Errors   int    `json:"errors"`
	FirstErr string `json:"first_error,omitempty"`
}

type statusResponse struct {
	SweepStarted  *time.Time             `json:"sweep_started,omitempty"`
	SweepFinished *time.Time             `json:"sweep_finished,omitempty"`
	Guilds        map[string]guildStatus `json:"guilds,omitempty"`
	FirstErr      string                 `json:"first_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{}

	if report := s.reports.LastReport(); report != nil {
		started, finished := report.Started, report.Finished
		resp.SweepStarted = &started
		resp.SweepFinished = &finished
		resp.FirstErr = report.FirstErr
		resp.Guilds = make(map[string]guildStatus, len(report.Guilds))
		for guildID, stats := range report.Guilds {
			resp.Guilds[guildID] = guildStatus{
				Records:  stats.Records,
				Renamed:  stats.Renamed,
				Reattach: stats.Reattach,
				Cleared:  stats.Cleared,
				Errors:   stats.Errors,
				FirstErr: stats.FirstErr,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.MarshalWrite(w, resp); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}
