// jobmate-profile-service
//
// Company profile of record. Keeps profiles and posts in sync with the rest
// of the platform over the broker:
//   - account lifecycle and subscription events reconcile the profile
//   - post creation dispatches media upload and waits for its callback
//   - country changes are audited as shard migrations
//   - premium-status and company-name lookups are answered by correlation id
//
// Exposes ProfileService over gRPC and a REST + /health surface over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"jobmate/profile-service/internal/bridge"
	"jobmate/profile-service/internal/config"
	"jobmate/profile-service/internal/consumer"
	"jobmate/profile-service/internal/db"
	"jobmate/profile-service/internal/discovery"
	"jobmate/profile-service/internal/grpcserver"
	"jobmate/profile-service/internal/httpapi"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/observability"
	"jobmate/profile-service/internal/posts"
	"jobmate/profile-service/internal/profile"
	"jobmate/profile-service/internal/reconcile"
	"jobmate/profile-service/internal/scheduler"
	"jobmate/profile-service/internal/shard"
	"jobmate/profile-service/internal/store"
	"jobmate/profile-service/internal/store/memstore"
	"jobmate/profile-service/internal/store/postgres"
)

const (
	version      = "1.0.0"
	maxPoolConns = 10
	reclaimEvery = time.Minute
	reapEvery    = time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[profile-service] Config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── Storage ─────────────────────────────────────────────────────────────
	var st store.Store
	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Println("[profile-service] Using in-memory storage")
		st = memstore.New()
	default:
		log.Println("[profile-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, maxPoolConns)
		if err != nil {
			log.Fatalf("[profile-service] PostgreSQL: %v", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalf("[profile-service] Migrate: %v", err)
		}
		st = postgres.New(pool)
		log.Println("[profile-service] PostgreSQL connected ✓")
	}

	// ── Broker ──────────────────────────────────────────────────────────────
	metrics := observability.NewMetricsRecorder(otel.GetMeterProvider(), logger)
	resolver := discovery.NewResolver(cfg.RegistryURL, cfg.RegistryApp, cfg.RedisURL, logger)
	addr, err := resolver.Refresh(ctx)
	if err != nil {
		log.Fatalf("[profile-service] Broker discovery: %v", err)
	}

	log.Println("[profile-service] Connecting to broker…")
	broker, err := messaging.Dial(ctx, addr, messaging.Options{
		Group:         cfg.ConsumerGroup,
		Consumer:      cfg.ConsumerName,
		MaxDeliveries: cfg.MaxDeliveries,
		OnDeadLetter:  metrics.RecordDeadLetter,
	}, logger)
	if err != nil {
		log.Fatalf("[profile-service] Broker: %v", err)
	}
	defer broker.Close()
	log.Println("[profile-service] Broker connected ✓")

	// ── Components ──────────────────────────────────────────────────────────
	ch := cfg.Channels
	shards := shard.NewOrchestrator(broker, ch.ShardMigration, logger)
	profiles := profile.NewService(st, shards, broker, ch.ProfileSummary, logger)
	workflow := posts.NewWorkflow(st, broker, ch.MediaUploadRequest, logger)
	reconciler := reconcile.New(st, broker, ch, logger)
	responder := bridge.New(st.Profiles(), broker, ch, logger)
	router := consumer.NewRouter(ch, reconciler, workflow, responder, metrics, logger)

	// ── Consumers ───────────────────────────────────────────────────────────
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := router.Run(ctx, broker); err != nil {
			logger.Error("consumers stopped", "err", err)
			cancel()
		}
	}()

	// ── Scheduler ───────────────────────────────────────────────────────────
	jobs := []scheduler.Job{
		scheduler.StreamReclaim(reclaimEvery, broker),
		scheduler.PendingPostReaper(reapEvery, cfg.PendingTimeout, workflow, metrics),
	}
	if cfg.RegistryURL != "" {
		jobs = append(jobs, scheduler.BrokerRefresh(cfg.BrokerRefresh, resolver, broker))
	}
	sched := scheduler.New(logger, jobs...)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[profile-service] Scheduler: %v", err)
	}

	// ── gRPC server ─────────────────────────────────────────────────────────
	grpcSrv, hs := grpcserver.New(grpcserver.NewServer(profiles, workflow), logger)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("[profile-service] gRPC listen: %v", err)
	}
	go func() {
		log.Printf("[profile-service] gRPC listening on :%s", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("[profile-service] gRPC server error: %v", err)
		}
	}()

	// ── HTTP server ─────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	httpapi.NewHandler(profiles, workflow, version, logger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[profile-service] v%s listening on :%s", version, cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[profile-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-ctx.Done()

	log.Println("[profile-service] Shutting down…")
	hs.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[profile-service] HTTP shutdown error: %v", err)
	}
	grpcSrv.GracefulStop()
	sched.Stop()
	wg.Wait()
	log.Println("[profile-service] Stopped.")
}
