package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Spotmap-App/internal/application"
	"Spotmap-App/internal/cache"
	"Spotmap-App/internal/config"
	"Spotmap-App/internal/domain/repository"
	"Spotmap-App/internal/domain/service"
	"Spotmap-App/internal/domain/strategy"
	"Spotmap-App/internal/handler"
	"Spotmap-App/internal/infrastructure/database"
	"Spotmap-App/internal/infrastructure/logger"
	"Spotmap-App/internal/infrastructure/metrics"
	"Spotmap-App/internal/infrastructure/realtime"
	repoImpl "Spotmap-App/internal/repository"
	"Spotmap-App/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込み失敗: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガー初期化失敗: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info("Initializing Supabase client...")
	supabaseClient, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		zl.Fatal("Supabaseクライアント初期化失敗", zap.Error(err))
	}
	if err := supabaseClient.HealthCheck(); err != nil {
		zl.Fatal("Supabaseヘルスチェック失敗", zap.Error(err))
	}
	zl.Info("✅ Supabase connection successful!")

	healthChecks := map[string]handler.HealthCheck{
		"supabase": func(context.Context) error { return supabaseClient.HealthCheck() },
	}

	mapDataRepo := repoImpl.NewSupabaseMapDataRepository(supabaseClient)
	var activityRepo repository.ActivityRepository = repoImpl.NewSupabasePostsRepository(supabaseClient)
	if cfg.UsePostgresActivity() {
		postgresClient, err := database.NewPostgreSQLClientWithRetry(ctx, cfg.SupabaseURL, cfg.SupabaseDBPassword, 3, 2*time.Second)
		if err != nil {
			zl.Warn("⚠️  PostgreSQLに接続できないためSupabase経由で投稿を取得します", zap.Error(err))
		} else {
			defer postgresClient.Close()
			activityRepo = repoImpl.NewPostgresPostsRepository(postgresClient)
			healthChecks["postgres"] = postgresClient.HealthCheck
			zl.Info("✅ PostgreSQL connection successful!")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pinMetrics := metrics.NewPinMetrics(registry)

	bus := realtime.NewEventBus(zl.Named("realtime"), pinMetrics)
	defer bus.Close()

	strategies := strategy.NewRegistry(strategy.Dependencies{
		Repo:     mapDataRepo,
		Activity: activityRepo,
		Logger:   zl.Named("strategy"),
		Metrics:  pinMetrics,
	})
	mapPinsService := application.NewMapPinsService(application.MapPinsServiceDeps{
		Strategies: strategies,
		Enricher:   service.NewPinEnricher(activityRepo, mapDataRepo, zl.Named("enricher")),
		Cache:      cache.NewPinCache(cfg.PinCacheTTL, nil),
		Coalescer:  cache.NewCoalescer(),
		Metrics:    pinMetrics,
		Logger:     zl.Named("pins"),
	})

	sessions := usecase.NewMapSessionManager(usecase.NewMapSessionFactory(usecase.MapLocationsConfig{
		Service:      mapPinsService,
		Events:       bus,
		TriggerDelay: cfg.FetchTriggerDelay,
		Debounce:     cfg.RealtimeDebounce,
		Logger:       zl.Named("session"),
	}), cfg.SessionIdleTTL, pinMetrics, zl.Named("sessions"))
	defer sessions.CloseAll()

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterDeps{
		MapPins:      handler.NewMapPinsHandler(mapPinsService),
		Sessions:     handler.NewMapSessionHandler(sessions),
		Webhook:      handler.NewRealtimeWebhookHandler(bus, zl.Named("webhook")),
		Gatherer:     registry,
		HealthChecks: healthChecks,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Spotmap-App server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("サーバー起動失敗", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("🛑 シャットダウン開始")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("シャットダウン失敗", zap.Error(err))
	}
}
