package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the subscription plan catalog (admin-owned reference data).
type PlanUseCase interface {
	Create(ctx context.Context, name string, priceMinor int64, currency string, durationDays int, features []string) (*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Plan, error)
	Update(ctx context.Context, id string, upd PlanUpdate) (*model.Plan, error)
	Deactivate(ctx context.Context, id string) error
}

// PlanUpdate carries the partial fields an admin may change. The plan id is
// immutable.
type PlanUpdate struct {
	Name         *string
	PriceMinor   *int64
	DurationDays *int
	Features     []string
	Active       *bool
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{plans: plans, log: logger}
}

func (u *planUC) Create(ctx context.Context, name string, priceMinor int64, currency string, durationDays int, features []string) (*model.Plan, error) {
	p, err := model.NewPlan(uuid.NewString(), name, priceMinor, currency, durationDays, features)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, repository.NoTX, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	u.log.Info().Str("plan_id", p.ID).Str("name", p.Name).Int64("price_minor", p.PriceMinor).Msg("plan created")
	return p, nil
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.plans.FindByID(ctx, repository.NoTX, id)
}

func (u *planUC) List(ctx context.Context, activeOnly bool) ([]*model.Plan, error) {
	return u.plans.List(ctx, repository.NoTX, activeOnly)
}

func (u *planUC) Update(ctx context.Context, id string, upd PlanUpdate) (*model.Plan, error) {
	p, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, domain.ErrInvalidArgument
		}
		p.Name = *upd.Name
	}
	if upd.PriceMinor != nil {
		if *upd.PriceMinor <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		p.PriceMinor = *upd.PriceMinor
	}
	if upd.DurationDays != nil {
		if *upd.DurationDays <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		p.DurationDays = *upd.DurationDays
	}
	if upd.Features != nil {
		p.Features = upd.Features
	}
	if upd.Active != nil {
		p.Active = *upd.Active
	}
	if err := u.plans.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *planUC) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.plans.Deactivate(ctx, repository.NoTX, id); err != nil {
		return err
	}
	u.log.Info().Str("plan_id", id).Msg("plan deactivated")
	return nil
}
