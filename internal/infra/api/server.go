package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/usecase"
)

// RateLimiter is the throttle applied to the checkout verification endpoint.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

// NoopRateLimiter admits everything; test and dev wiring.
func NoopRateLimiter() RateLimiter { return noopLimiter{} }

type Server struct {
	checkoutUC    usecase.CheckoutUseCase
	reconcileUC   usecase.ReconcileUseCase
	subUC         usecase.SubscriptionUseCase
	planUC        usecase.PlanUseCase
	paymentUC     usecase.PaymentQueryUseCase
	withdrawalUC  usecase.WithdrawalUseCase
	entitlementUC usecase.EntitlementUseCase
	gateway       adapter.PaymentGateway
	limiter       RateLimiter
	jwtSecret     string
	log           *zerolog.Logger
}

type ServerDeps struct {
	Checkout    usecase.CheckoutUseCase
	Reconcile   usecase.ReconcileUseCase
	Subs        usecase.SubscriptionUseCase
	Plans       usecase.PlanUseCase
	Payments    usecase.PaymentQueryUseCase
	Withdrawals usecase.WithdrawalUseCase
	Entitlement usecase.EntitlementUseCase
	Gateway     adapter.PaymentGateway
	Limiter     RateLimiter
	JWTSecret   string
	Logger      *zerolog.Logger
}

func NewServer(d ServerDeps) *Server {
	limiter := d.Limiter
	if limiter == nil {
		limiter = NoopRateLimiter()
	}
	return &Server{
		checkoutUC:    d.Checkout,
		reconcileUC:   d.Reconcile,
		subUC:         d.Subs,
		planUC:        d.Plans,
		paymentUC:     d.Payments,
		withdrawalUC:  d.Withdrawals,
		entitlementUC: d.Entitlement,
		gateway:       d.Gateway,
		limiter:       limiter,
		jwtSecret:     d.JWTSecret,
		log:           d.Logger,
	}
}

// Router builds the full route tree. The webhook route sits outside the JWT
// group: the gateway authenticates with its signature, not a bearer token.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.jwtSecret))

			r.Post("/checkout", s.handleCheckout)
			r.Post("/payments/verify", s.handleVerify)
			r.Get("/payments", s.handleListPayments)
			r.Get("/subscriptions/my", s.handleMySubscription)
			r.Delete("/subscriptions/my", s.handleCancelSubscription)
			r.Get("/entitlement", s.handleEntitlement)

			r.Get("/plans", s.handleListPlans)
			r.Get("/plans/{id}", s.handleGetPlan)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleTrainer))
				r.Post("/withdrawals", s.handleRequestWithdrawal)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleAdmin))
				r.Post("/plans", s.handleCreatePlan)
				r.Put("/plans/{id}", s.handleUpdatePlan)
				r.Delete("/plans/{id}", s.handleDeactivatePlan)
				r.Get("/withdrawals", s.handleListWithdrawals)
				r.Put("/withdrawals/{id}/approve", s.handleApproveWithdrawal)
				r.Put("/withdrawals/{id}/reject", s.handleRejectWithdrawal)
				r.Post("/payments/{id}/refund", s.handleRefund)
			})
		})
	})

	return r
}
