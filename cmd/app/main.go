// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"club-registration/internal/config"
	"club-registration/internal/domain/ports/adapter"
	payAdapters "club-registration/internal/infra/adapters/payment"
	"club-registration/internal/infra/api"
	pg "club-registration/internal/infra/db/postgres"
	"club-registration/internal/infra/logging"
	"club-registration/internal/infra/metrics"
	"club-registration/internal/infra/notify"
	red "club-registration/internal/infra/redis"
	"club-registration/internal/infra/sched"
	"club-registration/internal/infra/web"
	"club-registration/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	membershipRepo := pg.NewMembershipRepo(pool)
	userMembershipRepo := pg.NewUserMembershipRepo(pool)
	registrationRepo := pg.NewRegistrationRepo(pool)
	categoryRepo := pg.NewCategoryRepoCacheDecorator(pg.NewCategoryRepo(pool), redisClient)
	userRegRepo := pg.NewUserRegistrationRepo(pool)
	waitlistRepo := pg.NewWaitlistRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	stagedRepo := pg.NewStagedTransactionRepo(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	var querier sched.IntentStatusQuerier
	if cfg.Payment.Stripe.SecretKey != "" {
		sg, err := payAdapters.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.BaseURL)
		if err != nil {
			log.Fatalf("stripe gateway: %v", err)
		}
		gateway, querier = sg, sg
	} else {
		if !cfg.Runtime.Dev {
			log.Fatalf("payment.stripe.secret_key is required outside dev mode")
		}
		ng := payAdapters.NewNoopPaymentGateway()
		gateway, querier = ng, ng
		log.Printf("payment gateway: noop (dev)")
	}

	// ---- Notifications ----
	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger), cfg.Notify.Workers, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// ---- Use cases ----
	reconcilerUC := usecase.NewReconcilerUseCase(stagedRepo, paymentRepo, refundRepo, userRegRepo, userMembershipRepo, gateway, tm, dispatcher.Enqueue, logger)
	eligibilityUC := usecase.NewEligibilityUseCase(userRepo, registrationRepo, categoryRepo, userRegRepo, membershipRepo, userMembershipRepo, usecase.PaymentMethodPolicy(cfg.Payment.Policy), logger)
	capacityUC := usecase.NewCapacityUseCase(categoryRepo, userRegRepo, waitlistRepo, tm, logger)
	membershipUC := usecase.NewMembershipUseCase(membershipRepo, userMembershipRepo, userRepo, reconcilerUC, tm, logger)
	registrationUC := usecase.NewRegistrationUseCase(registrationRepo, categoryRepo, userRegRepo, userRepo, eligibilityUC, capacityUC, reconcilerUC, locker, logger)

	// ---- Webhook + metrics server ----
	webhookSrv := api.NewWebhookServer(reconcilerUC, cfg.Payment.Stripe.WebhookPath, cfg.Payment.Stripe.WebhookSecret, logger)
	mux := http.NewServeMux()
	webhookSrv.Register(mux)
	apiHandler := api.Chain(mux, api.TraceID(logger), api.Recover(logger), api.RequestLog(logger))
	apiServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.API.Port), Handler: apiHandler}
	go func() {
		log.Printf("webhook server listening on %s path=%s", apiServer.Addr, cfg.Payment.Stripe.WebhookPath)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("webhook server error: %v", err)
		}
	}()

	// ---- Registration + admin API ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	webSrv := web.NewServer(eligibilityUC, capacityUC, registrationUC, membershipUC, reconcilerUC, auth, cfg.Admin.APIKey, logger)
	router := chi.NewRouter()
	webSrv.RegisterRoutes(router)
	webHandler := api.Chain(router, api.TraceID(logger), api.Recover(logger), api.RequestLog(logger), api.Timeout(30*time.Second))
	webServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: webHandler}
	go func() {
		log.Printf("api server listening on %s", webServer.Addr)
		if err := webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()

	// ---- Background workers ----
	reconcilerSweep := sched.NewPaymentReconciler(reconcilerUC, stagedRepo, paymentRepo, querier, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StalePendingAfter, logger)
	go reconcilerSweep.Start(ctx)

	slotExpiry := sched.NewSlotExpiryWorker(capacityUC, userRegRepo, cfg.Scheduler.SlotExpiryInterval, cfg.Scheduler.SlotAbandonedAfter, logger)
	go slotExpiry.Start(ctx)

	expiryNotices := sched.NewMembershipExpiryWorker(userMembershipRepo, membershipRepo, userRepo, dispatcher.Enqueue, cfg.Scheduler.ExpiryCheckInterval, int(cfg.Scheduler.ExpiryNoticeWindow/(24*time.Hour)), logger)
	go func() { _ = expiryNotices.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = webServer.Shutdown(shutdownCtx)
}
