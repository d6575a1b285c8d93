// Package api exposes the cron triggers and signup hooks over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ResumeMailer/internal/campaigns"
	"ResumeMailer/internal/models"
)

type Processor interface {
	ProcessEmailJobs(ctx context.Context) (models.BatchSummary, error)
}

type Scheduler interface {
	ScheduleWelcomeSeries(ctx context.Context, userID string) (*models.EmailJob, error)
	CancelWelcomeSeries(ctx context.Context, userID string) (int64, error)
	ScheduleAbandonedResumes(ctx context.Context) (campaigns.ScheduleReport, error)
	ScheduleReengagement(ctx context.Context, threshold, limit int) (campaigns.ScheduleReport, error)
}

type Suppressions interface {
	AddSuppressions(ctx context.Context, addrs ...string) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Processor Processor
	Scheduler Scheduler
	Log       *zap.Logger

	// Optional.
	Suppressions Suppressions
	Health       Pinger
	Now          func() time.Time
}

type ServerConfig struct {
	Port         string
	CronSecret   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	router     *mux.Router
	httpServer *http.Server
	log        *zap.Logger
}

func NewServer(cfg ServerConfig, h *Handler) *Server {
	if h.Now == nil {
		h.Now = time.Now
	}

	router := NewRouter(h, cfg.CronSecret)

	return &Server{
		router: router,
		log:    h.Log,
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// NewRouter wires every route. Everything under /api requires the cron secret.
func NewRouter(h *Handler, cronSecret string) *mux.Router {
	if h.Now == nil {
		h.Now = time.Now
	}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware(h.Log))
	r.Use(RecoveryMiddleware(h.Log))

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(CronAuthMiddleware(cronSecret, h.Log))

	api.HandleFunc("/cron/process-emails", h.handleProcessEmails).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/cron/abandoned-resumes", h.handleAbandonedResumes).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/cron/re-engagement", h.handleReengagement).Methods(http.MethodGet, http.MethodPost)

	api.HandleFunc("/email/welcome", h.handleWelcome).Methods(http.MethodPost)
	api.HandleFunc("/email/opt-out", h.handleOptOut).Methods(http.MethodPost)
	api.HandleFunc("/email/suppressions", h.handleSuppressions).Methods(http.MethodPost)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info("api server started", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
