package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ WithdrawalUseCase = (*withdrawalUC)(nil)

// WithdrawalUseCase handles trainer payout requests. Approve and Reject share
// the reconciliation engine's discipline at smaller scale: the status check
// and the transition are one conditional write, so a request is processed at
// most once no matter how approvals race.
type WithdrawalUseCase interface {
	Request(ctx context.Context, trainerID string, amountMinor int64) (*model.Withdrawal, error)
	Approve(ctx context.Context, id, actor string) (*model.Withdrawal, error)
	Reject(ctx context.Context, id, actor string) (*model.Withdrawal, error)
	List(ctx context.Context, status string) ([]*model.Withdrawal, error)
}

type withdrawalUC struct {
	withdrawals repository.WithdrawalRepository
	log         *zerolog.Logger
	now         func() time.Time
}

func NewWithdrawalUseCase(withdrawals repository.WithdrawalRepository, logger *zerolog.Logger) *withdrawalUC {
	return &withdrawalUC{withdrawals: withdrawals, log: logger, now: time.Now}
}

func (u *withdrawalUC) Request(ctx context.Context, trainerID string, amountMinor int64) (*model.Withdrawal, error) {
	w, err := model.NewWithdrawal(uuid.NewString(), trainerID, amountMinor)
	if err != nil {
		return nil, err
	}
	if err := u.withdrawals.Save(ctx, repository.NoTX, w); err != nil {
		return nil, err
	}
	u.log.Info().Str("withdrawal_id", w.ID).Str("trainer_id", trainerID).Int64("amount_minor", amountMinor).Msg("withdrawal requested")
	return w, nil
}

func (u *withdrawalUC) Approve(ctx context.Context, id, actor string) (*model.Withdrawal, error) {
	return u.transition(ctx, id, actor, model.WithdrawalStatusApproved)
}

func (u *withdrawalUC) Reject(ctx context.Context, id, actor string) (*model.Withdrawal, error) {
	return u.transition(ctx, id, actor, model.WithdrawalStatusRejected)
}

func (u *withdrawalUC) transition(ctx context.Context, id, actor string, to model.WithdrawalStatus) (*model.Withdrawal, error) {
	if id == "" || actor == "" {
		return nil, domain.ErrInvalidArgument
	}
	moved, err := u.withdrawals.Transition(ctx, repository.NoTX, id, to, actor, u.now())
	if err != nil {
		return nil, err
	}
	if !moved {
		// Distinguish "gone" from "already processed" for the caller.
		if _, err := u.withdrawals.FindByID(ctx, repository.NoTX, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyProcessed
	}
	w, err := u.withdrawals.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("withdrawal_id", id).Str("actor", actor).Str("status", string(to)).Msg("withdrawal processed")
	return w, nil
}

func (u *withdrawalUC) List(ctx context.Context, status string) ([]*model.Withdrawal, error) {
	return u.withdrawals.List(ctx, repository.NoTX, status)
}
