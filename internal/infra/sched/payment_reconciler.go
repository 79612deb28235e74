package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/domain/ports/repository"
	"fitness-subscription-platform/internal/infra/metrics"
	"fitness-subscription-platform/internal/usecase"
)

const scanBatchSize = 200

// PaymentReconciler periodically polls the gateway for payments stuck in
// pending. It covers the deliveries the webhook never made: gateway outage,
// process crash mid-confirm, user closing the tab before the verify call.
// Pending rows that never see money are eventually marked failed.
type PaymentReconciler struct {
	uc         usecase.ReconcileUseCase
	payments   repository.PaymentRepository
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to poll
	failAfter  time.Duration // how old before an unpaid pending row is abandoned
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.ReconcileUseCase, payments repository.PaymentRepository, gateway adapter.PaymentGateway, interval, staleAfter, failAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if failAfter <= 0 {
		failAfter = 24 * time.Hour
	}
	return &PaymentReconciler{
		uc:         uc,
		payments:   payments,
		gateway:    gateway,
		interval:   interval,
		staleAfter: staleAfter,
		failAfter:  failAfter,
		log:        logger,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, scanBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending failed")
		return
	}

	for _, p := range pending {
		if p.OrderID == "" {
			continue
		}
		captures, err := w.gateway.FetchOrderPayments(ctx, p.OrderID)
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", p.OrderID).Msg("reconciler: gateway poll failed")
			continue
		}

		if len(captures) == 0 {
			// No money ever arrived. Old enough rows are abandoned so the
			// pending backlog does not grow without bound.
			if time.Since(p.CreatedAt) > w.failAfter {
				moved, err := w.payments.MarkFailedIfPending(ctx, repository.NoTX, p.ID)
				if err != nil {
					w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("reconciler: mark failed errored")
				} else if moved {
					metrics.IncPayment("failed")
					w.log.Info().Str("payment_id", p.ID).Msg("reconciler: abandoned stale pending payment")
				}
			}
			continue
		}

		for _, cp := range captures {
			_, duplicate, err := w.uc.Reconcile(ctx, cp)
			if err != nil {
				metrics.IncReconciled("poll", "error")
				w.log.Error().Err(err).Str("transaction_id", cp.TransactionID).Msg("reconciler: reconcile failed")
				continue
			}
			if duplicate {
				metrics.IncReconciled("poll", "duplicate")
				continue
			}
			metrics.IncReconciled("poll", "activated")
			metrics.IncSubscriptionActivated()
			metrics.IncPayment("success")
			metrics.AddPaymentRevenue(cp.Currency, cp.AmountMinor)
			w.log.Info().Str("payment_id", p.ID).Str("transaction_id", cp.TransactionID).Msg("reconciler: recovered payment")
		}
	}
}
