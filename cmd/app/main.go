package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"

	"fitness-subscription-platform/internal/config"
	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/infra/api"
	pg "fitness-subscription-platform/internal/infra/db/postgres"
	"fitness-subscription-platform/internal/infra/logging"
	"fitness-subscription-platform/internal/infra/metrics"
	"fitness-subscription-platform/internal/infra/payment"
	red "fitness-subscription-platform/internal/infra/redis"
	"fitness-subscription-platform/internal/infra/sched"
	"fitness-subscription-platform/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	entCache := red.NewEntitlementCache(redisClient, cfg.Redis.EntitlementTTL, logger)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	planRepo := red.NewCachedPlanRepo(pg.NewPlanRepo(pool), redisClient, cfg.Redis.PlanListTTL, logger)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	withdrawalRepo := pg.NewWithdrawalRepo(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	switch cfg.Payment.Provider {
	case "razorpay":
		rz := cfg.Payment.Razorpay
		gateway = payment.NewRazorpayGateway(rz.KeyID, rz.KeySecret, rz.WebhookSecret, rz.BaseURL)
	case "noop":
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("noop gateway is dev-only")
		}
		gateway = payment.NewNoopGateway()
	default:
		logger.Fatal().Str("provider", cfg.Payment.Provider).Msg("unknown payment provider")
	}

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	checkoutUC := usecase.NewCheckoutUseCase(payRepo, planRepo, gateway, cfg.Checkout.GatewayTimeout, logger)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, planRepo, subRepo, userRepo, txManager, entCache, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, userRepo, txManager, entCache, logger)
	entitlementUC := usecase.NewEntitlementUseCase(subRepo, entCache, logger)
	withdrawalUC := usecase.NewWithdrawalUseCase(withdrawalRepo, logger)
	paymentQueryUC := usecase.NewPaymentQueryUseCase(payRepo, logger)

	// ---- Background reconciler ----
	reconciler := sched.NewPaymentReconciler(
		reconcileUC, payRepo, gateway,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.FailAfter,
		logger,
	)
	go reconciler.Start(ctx)

	// ---- HTTP server ----
	srv := api.NewServer(api.ServerDeps{
		Checkout:    checkoutUC,
		Reconcile:   reconcileUC,
		Subs:        subUC,
		Plans:       planUC,
		Payments:    paymentQueryUC,
		Withdrawals: withdrawalUC,
		Entitlement: entitlementUC,
		Gateway:     gateway,
		Limiter:     rateLimiter,
		JWTSecret:   cfg.Auth.JWTSecret,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
