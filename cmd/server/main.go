package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/api/http"
	"github.com/negotiation-hub/negotiation-hub/internal/application/audit"
	"github.com/negotiation-hub/negotiation-hub/internal/application/auth"
	"github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	"github.com/negotiation-hub/negotiation-hub/internal/application/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/application/notification"
	"github.com/negotiation-hub/negotiation-hub/internal/application/user"
	"github.com/negotiation-hub/negotiation-hub/internal/config"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/redisbus"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/sse"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/store"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/telemetry"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	policy, err := lifecycle.LoadPolicy(cfg.LifecyclePolicyFile)
	if err != nil {
		log.Fatalf("policy error: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	stores, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer stores.Close()

	// infrastructure
	sseHub := sse.NewHub(logger, cfg.SSEHeartbeat)
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatalf("metrics error: %v", err)
	}
	broadcaster := sse.NewLifecycleBroadcaster(sseHub)

	// services
	auditSvc := audit.NewService(stores.Audit, logger, cfg.AuditSigningKey)
	notificationSvc := notification.NewService(stores.Notifications, sseHub, stores.Negotiations, stores.Users, logger)
	userSvc := user.NewService(stores.Users, logger)
	authSvc := auth.NewService(stores.Users, stores.Sessions, cfg.SessionTTL, logger)

	publisher := lifecycle.NewPublisher(logger, cfg.PublisherBuffer, notificationSvc, auditSvc, metrics, broadcaster)
	publisher.OnDrop(metrics.RecordDrop)

	var relay *redisbus.Relay
	if cfg.RedisAddr != "" {
		relay = redisbus.NewRelay(redisbus.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.RedisChannel, logger)
		publisher.Subscribe(relay)
	}

	pipeline := lifecycle.NewPipeline(logger,
		lifecycle.NewStateCacheListener(stores.Negotiations),
		lifecycle.NewPostListener(stores.Posts),
		lifecycle.NewPublishListener(publisher),
	)
	lifecycleSvc, err := lifecycle.NewService(stores.Negotiations, stores.Ledger, pipeline, policy, logger)
	if err != nil {
		log.Fatalf("lifecycle error: %v", err)
	}
	auditSvc.WithRules(lifecycleSvc.NegotiationRules(), lifecycleSvc.ResourceRules())
	negotiationSvc := negotiation.NewService(stores.Negotiations, stores.Posts, lifecycleSvc, notificationSvc, logger)

	var limiter *httpapi.RateLimiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = httpapi.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	// API server
	apiServer := httpapi.NewServer(lifecycleSvc, negotiationSvc, notificationSvc, auditSvc, authSvc, userSvc, sseHub, httpapi.Options{
		Metrics:             metrics,
		Limiter:             limiter,
		SessionCookieName:   cfg.SessionCookieName,
		SessionCookieSecure: cfg.SessionCookieSecure,
		Logger:              logger,
	})

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// background loops
	publisher.Start(ctx)
	sseHub.Start(ctx)
	if limiter != nil {
		go limiter.Run(ctx.Done(), time.Minute)
	}
	go authSvc.RunPurge(ctx, cfg.SessionPurgeInterval)
	if relay != nil {
		go func() {
			// Remote transitions only reach local SSE clients; notifications
			// and audit were written by the node that committed them.
			if err := relay.Run(ctx, broadcaster.Handle); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("redis relay stopped")
			}
		}()
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", stores.Driver).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Closing the hub ends open SSE streams so Shutdown does not wait on them.
	sseHub.Stop()
	_ = httpServer.Shutdown(ctxShutdown)
	publisher.Stop()
	stop()
	_ = metrics.Shutdown(ctxShutdown)
	logger.Info().Int64("dropped", publisher.Dropped()).Msg("shutdown complete")
}
