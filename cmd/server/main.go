package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/eventbus"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/httpserver"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/postgres"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/redis"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/websocket"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/app"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/config"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/logging"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/version"
	"github.com/centrifugal/centrifuge"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.InstanceID == "" {
		hostname, _ := os.Hostname()
		cfg.InstanceID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}
	return cfg
}

func setupDB(cfg *config.Config, dbMetrics *metrics.DBMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, dbMetrics)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, redisMetrics *metrics.RedisMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(redisMetrics))
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupNode(cfg *config.Config, annMetrics *metrics.AnnouncementMetrics) *centrifuge.Node {
	node, err := websocket.NewNode(annMetrics, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create centrifuge node", "error", err)
		os.Exit(1)
	}
	if err := websocket.SetupRedis(node, cfg.RedisURL); err != nil {
		slog.Error("Failed to set up centrifuge redis broker", "error", err)
		os.Exit(1)
	}
	if err := node.Run(); err != nil {
		slog.Error("Failed to run centrifuge node", "error", err)
		os.Exit(1)
	}
	return node
}

func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client, ledger *app.BreakerLedger) []httpserver.HealthCheck {
	return []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		{Name: "ledger_breaker", Check: func(context.Context) error {
			if ledger.State() == circuitbreaker.OpenState {
				return errors.New("ledger circuit breaker is open")
			}
			return nil
		}},
	}
}

func runGracefulShutdown(srv *httpserver.Server, events *app.EventService, node *centrifuge.Node, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Ends every event: final teardown, retraction and claim release.
		events.StopAll()
		stopBackground()

		if err := node.Shutdown(shutdownCtx); err != nil {
			slog.Error("Centrifuge shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat, cfg.InstanceID)
	slog.Info("Application starting", "version", version.Get(cfg.InstanceID).String(), "env", cfg.AppEnv, "port", cfg.Port)

	reg := metrics.NewRegistry()
	rewardMetrics := metrics.NewRewardMetrics(reg)
	annMetrics := metrics.NewAnnouncementMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)
	dbMetrics := metrics.NewDBMetrics(reg)
	breakerMetrics := metrics.NewBreakerMetrics(reg)
	redisMetrics := metrics.NewRedisMetrics(reg)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "economy",
		Name:        "build_info",
		Help:        "Build information; always 1.",
		ConstLabels: prometheus.Labels{"version": version.Version, "commit": version.Commit},
	}, func() float64 { return 1 }))

	pool := setupDB(cfg, dbMetrics)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg, redisMetrics)
	defer func() { _ = redisClient.Close() }()

	node := setupNode(cfg, annMetrics)

	bus := eventbus.New()
	ledgerStore := postgres.NewLedger(pool, clock)
	ledger := app.NewBreakerLedger(ledgerStore, breakerMetrics)
	announcer := websocket.NewAnnouncer(node, annMetrics)
	claims := redis.NewEventClaims(redisClient, cfg.InstanceID)

	events := app.NewEventService(bus, announcer, ledger, claims, app.EventDefaults{
		Marker:         cfg.CurrencySign,
		SettleInterval: cfg.SettleInterval,
		Eligibility: domain.EligibilityOptions{
			MinAccountAge:        cfg.MinAccountAge,
			MinMembershipAge:     cfg.MinMembershipAge,
			RequireMembershipAge: cfg.RequireMembershipAge,
		},
	}, rewardMetrics, clock)

	// Every instance bridges ingest notifications from Redis into its own bus,
	// so a webhook accepted anywhere reaches the instance running the event.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg errgroup.Group
	subscriber := redis.NewTriggerSubscriber(redisClient, bus, clock, cfg.CurrencySign)
	bg.Go(func() error {
		subscriber.Start(bgCtx)
		return nil
	})
	bg.Go(func() error {
		events.RunClaimRenewal(bgCtx)
		return nil
	})

	wsHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.Origins(), cfg.IsDevelopment()),
	})

	srv := httpserver.NewServer(cfg, httpserver.Dependencies{
		Events:           events,
		Publisher:        redis.NewNotificationPublisher(redisClient),
		Balances:         ledgerStore,
		WebsocketHandler: wsHandler,
		MetricsHandler:   metrics.Handler(reg),
		Metrics:          httpMetrics,
		HealthChecks:     healthChecks(pool, redisClient, ledger),
		ViewerCount:      func(scopeID string) int { return websocket.ViewerCount(node, scopeID) },
		LedgerState:      func() string { return ledger.State().String() },
		Clock:            clock,
	})

	done := runGracefulShutdown(srv, events, node, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	_ = bg.Wait()
	slog.Info("Shutdown complete")
}
