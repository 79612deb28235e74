package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/infra/logging"
	"fitness-subscription-platform/internal/infra/metrics"
)

const (
	maxWebhookBody   = 1 << 20
	verifyRateLimit  = 10
	verifyRateWindow = time.Minute
)

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "plan_id is required")
		return
	}

	sess, payment, err := s.checkoutUC.Checkout(r.Context(), p.UserID, req.PlanID)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Str("plan_id", req.PlanID).Msg("checkout failed")
		writeDomainError(w, err)
		return
	}

	metrics.IncPayment("pending")
	writeJSON(w, http.StatusCreated, newCheckoutResponse(sess, payment))
}

// handleWebhook is the gateway-facing confirmation entry point. The contract
// with the gateway's retry machinery: 2xx acknowledges (delivery done), non-2xx
// redelivers. Signature failures and permanent payload problems are 400 so a
// misconfigured sender notices; transient failures are 500 so money is never
// dropped.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := s.gateway.Name()
	start := time.Now()
	defer func() {
		metrics.ObserveWebhookDuration(provider, time.Since(start).Seconds())
	}()
	l := logging.With(r.Context(), s.log)

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.IncWebhookDelivery(provider, "bad_payload")
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	cp, err := s.gateway.VerifyWebhook(rawBody, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) {
			metrics.IncWebhookDelivery(provider, "signature_invalid")
			l.Warn().Msg("webhook signature rejected")
			writeError(w, http.StatusBadRequest, "signature verification failed")
			return
		}
		metrics.IncWebhookDelivery(provider, "bad_payload")
		l.Warn().Err(err).Msg("webhook payload rejected")
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if cp == nil {
		// Signature-valid event with nothing to reconcile.
		metrics.IncWebhookDelivery(provider, "ignored")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	_, duplicate, err := s.reconcileUC.Reconcile(r.Context(), cp)
	if err != nil {
		// Unknown plan or broken metadata will not heal on redelivery;
		// acknowledge so the gateway stops retrying, and leave the alert to
		// the error log.
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			metrics.IncWebhookDelivery(provider, "ignored")
			metrics.IncReconciled("webhook", "error")
			l.Error().Err(err).Str("transaction_id", cp.TransactionID).Msg("unreconcilable capture acknowledged")
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		metrics.IncWebhookDelivery(provider, "error")
		metrics.IncReconciled("webhook", "error")
		l.Error().Err(err).Str("transaction_id", cp.TransactionID).Msg("reconciliation failed, requesting redelivery")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if duplicate {
		metrics.IncWebhookDelivery(provider, "duplicate")
		metrics.IncReconciled("webhook", "duplicate")
	} else {
		metrics.IncWebhookDelivery(provider, "processed")
		metrics.IncReconciled("webhook", "activated")
		metrics.IncSubscriptionActivated()
		metrics.IncPayment("success")
		metrics.AddPaymentRevenue(cp.Currency, cp.AmountMinor)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleVerify is the client-side fallback for when the webhook loses the
// race (or never arrives). The checkout widget's signature proves the caller
// really finished a checkout; the gateway fetch proves the money.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	l := logging.With(r.Context(), s.log)

	allowed, err := s.limiter.Allow(r.Context(), "rate_limit:verify:"+p.UserID, verifyRateLimit, verifyRateWindow)
	if err != nil {
		// Limiter backend down: admit rather than block paying users.
		l.Warn().Err(err).Msg("rate limiter unavailable")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many verification attempts")
		return
	}

	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "order_id, payment_id and signature are required")
		return
	}

	if err := s.gateway.VerifyCheckoutSignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		metrics.IncReconciled("verify", "error")
		writeError(w, http.StatusBadRequest, "signature verification failed")
		return
	}

	cp, err := s.gateway.FetchPayment(r.Context(), req.PaymentID)
	if err != nil {
		l.Error().Err(err).Str("payment_id", req.PaymentID).Msg("gateway fetch failed")
		writeError(w, http.StatusBadGateway, "gateway unavailable")
		return
	}
	if cp == nil {
		writeError(w, http.StatusConflict, "payment not captured")
		return
	}
	if cp.OrderID != req.OrderID {
		writeError(w, http.StatusBadRequest, "order mismatch")
		return
	}
	if cp.Meta.UserID != p.UserID {
		writeError(w, http.StatusForbidden, "payment belongs to another user")
		return
	}

	payment, duplicate, err := s.reconcileUC.Reconcile(r.Context(), cp)
	if err != nil {
		metrics.IncReconciled("verify", "error")
		writeDomainError(w, err)
		return
	}
	if duplicate {
		metrics.IncReconciled("verify", "duplicate")
	} else {
		metrics.IncReconciled("verify", "activated")
		metrics.IncSubscriptionActivated()
		metrics.IncPayment("success")
		metrics.AddPaymentRevenue(cp.Currency, cp.AmountMinor)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment":           newPaymentResponse(payment),
		"already_processed": duplicate,
	})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payments, err := s.paymentUC.ListForUser(r.Context(), p.UserID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, pay := range payments {
		out = append(out, newPaymentResponse(pay))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	sub, err := s.subUC.GetActiveForUser(r.Context(), p.UserID)
	if err != nil {
		// No subscription is a normal answer here, not an error.
		if errors.Is(err, domain.ErrNoActiveSubscription) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	if err := s.subUC.Cancel(r.Context(), p.UserID, p.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.IncSubscriptionCancelled()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	if err := s.entitlementUC.RequireActiveEntitlement(r.Context(), p.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"entitled": true})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	activeOnly := p.Role != model.RoleAdmin

	plans, err := s.planUC.List(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		out = append(out, newPlanResponse(plan))
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlanResponse(plan))
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan fields")
		return
	}

	plan, err := s.planUC.Create(r.Context(), req.Name, req.PriceMinor, req.Currency, req.DurationDays, req.Features)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPlanResponse(plan))
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan fields")
		return
	}

	plan, err := s.planUC.Update(r.Context(), chi.URLParam(r, "id"), usecasePlanUpdate(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlanResponse(plan))
}

func (s *Server) handleDeactivatePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.planUC.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req withdrawalCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "amount_minor must be positive")
		return
	}

	wd, err := s.withdrawalUC.Request(r.Context(), p.UserID, req.AmountMinor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newWithdrawalResponse(wd))
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := s.withdrawalUC.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]withdrawalResponse, 0, len(withdrawals))
	for _, wd := range withdrawals {
		out = append(out, newWithdrawalResponse(wd))
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": out})
}

func (s *Server) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	wd, err := s.withdrawalUC.Approve(r.Context(), chi.URLParam(r, "id"), p.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWithdrawalResponse(wd))
}

func (s *Server) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	wd, err := s.withdrawalUC.Reject(r.Context(), chi.URLParam(r, "id"), p.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWithdrawalResponse(wd))
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "amount_minor and reason are required")
		return
	}

	payment, err := s.paymentUC.Refund(r.Context(), chi.URLParam(r, "id"), req.AmountMinor, req.Reason, p.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.IncPayment("refunded")
	writeJSON(w, http.StatusOK, newPaymentResponse(payment))
}
