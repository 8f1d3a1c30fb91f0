package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

type eventService interface {
	StartEvent(ctx context.Context, scopeID string, opts domain.EventOptions) (domain.EventInfo, error)
	StopEvent(scopeID string) error
	GetEvent(scopeID string) (domain.EventInfo, error)
	ListEvents() []domain.EventInfo
}

type notificationPublisher interface {
	PublishReaction(ctx context.Context, r domain.ReactionAdded) error
	PublishMessageDeleted(ctx context.Context, m domain.MessageDeleted) error
}

type balanceReader interface {
	Balance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
}

// Dependencies are the collaborators the HTTP surface delegates to.
// WebsocketHandler, MetricsHandler, Metrics, ViewerCount and LedgerState
// may be nil.
type Dependencies struct {
	Events           eventService
	Publisher        notificationPublisher
	Balances         balanceReader
	WebsocketHandler http.Handler
	MetricsHandler   http.Handler
	Metrics          *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
	ViewerCount      func(scopeID string) int
	LedgerState      func() string
	Clock            clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	events    eventService
	publisher notificationPublisher
	balances  balanceReader

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	viewerCount  func(scopeID string) int
	ledgerState  func() string
	clock        clockwork.Clock
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:             e,
		config:           cfg,
		events:           deps.Events,
		publisher:        deps.Publisher,
		balances:         deps.Balances,
		websocketHandler: deps.WebsocketHandler,
		metricsHandler:   deps.MetricsHandler,
		httpMetrics:      deps.Metrics,
		healthChecks:     deps.HealthChecks,
		viewerCount:      deps.ViewerCount,
		ledgerState:      deps.LedgerState,
		clock:            clock,
		startTime:        clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the full middleware stack, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
