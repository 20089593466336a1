package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/usecase"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/config"
	infraKafka "github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/kafka"
	"github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/oauth"
	infraPostgres "github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/postgres"
	"github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/provider"
	"github.com/TRoazhon/FLOOSE-2025/internal/presentation/rest"
	pkgkafka "github.com/TRoazhon/FLOOSE-2025/pkg/kafka"
	"github.com/TRoazhon/FLOOSE-2025/pkg/observability"
	pgpkg "github.com/TRoazhon/FLOOSE-2025/pkg/postgres"
)

func main() {
	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logger.Info("starting banking core", "provider", cfg.Provider)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// Database connection and migrations.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgCfg := pgpkg.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}
	pool, err := pgpkg.NewPool(ctx, pgCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database", "database", cfg.Database.Database)

	if err := pgpkg.RunMigrations(pgCfg.DSN(), cfg.Database.MigrationsDir); err != nil {
		logger.Warn("migration warning", "error", err)
	}

	// Infrastructure adapters.
	accountRepo := infraPostgres.NewLocalAccountRepository(pool)
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.Config{Brokers: cfg.Kafka.Brokers})
	defer kafkaProducer.Close()
	eventPublisher := infraKafka.NewPublisher(kafkaProducer, logger)

	// Banking provider, selected by configuration.
	var bankProvider port.BankProvider
	var beginAuthUC *usecase.BeginAuthorizationUseCase
	var completeAuthUC *usecase.CompleteAuthorizationUseCase
	var userInfoUC *usecase.UserInfoUseCase

	switch cfg.Provider {
	case config.ProviderPSD2:
		attempts := oauth.NewMemoryAttemptStore()
		tokens := oauth.NewMemoryTokenStore()
		oauthClient := oauth.NewClient(oauth.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURI:  cfg.OAuth.RedirectURI,
			Environment:  cfg.OAuth.Environment,
		}, attempts, tokens, logger, metrics)

		bankProvider = provider.NewPSD2(oauthClient, logger)
		beginAuthUC = usecase.NewBeginAuthorizationUseCase(oauthClient, logger)
		completeAuthUC = usecase.NewCompleteAuthorizationUseCase(oauthClient, logger)
		userInfoUC = usecase.NewUserInfoUseCase(oauthClient, logger)

		go pruneAttempts(attempts, logger)
	default:
		bankProvider = provider.NewSimulator(logger)
	}

	// Use cases.
	listBanksUC := usecase.NewListBanksUseCase(bankProvider)
	connectUC := usecase.NewConnectBankUseCase(bankProvider, logger)
	disconnectUC := usecase.NewDisconnectBankUseCase(bankProvider, logger)
	statusUC := usecase.NewConnectionStatusUseCase(bankProvider)
	syncUC := usecase.NewSyncAccountsUseCase(bankProvider, accountRepo, eventPublisher, logger, metrics)
	summaryUC := usecase.NewAccountsSummaryUseCase(bankProvider, logger)
	recentUC := usecase.NewRecentTransactionsUseCase(bankProvider, logger)
	spendingUC := usecase.NewSpendingByCategoryUseCase(bankProvider, logger)

	// HTTP server: banking API, health probes, metrics.
	bankingHandler := rest.NewBankingHandler(
		listBanksUC,
		beginAuthUC,
		completeAuthUC,
		connectUC,
		disconnectUC,
		statusUC,
		syncUC,
		summaryUC,
		recentUC,
		spendingUC,
		userInfoUC,
		logger,
	)
	healthHandler := rest.NewHealthHandler(cfg.ServiceName, cfg.Provider, logger)

	mux := http.NewServeMux()
	bankingHandler.RegisterRoutes(mux)
	healthHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("banking core stopped")
}

// pruneAttempts periodically evicts expired authorization attempts so
// abandoned flows do not accumulate.
func pruneAttempts(attempts *oauth.MemoryAttemptStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if n := attempts.PruneExpired(); n > 0 {
			logger.Debug("pruned expired authorization attempts", "count", n)
		}
	}
}
