package repository

import (
	"context"

	"fitness-subscription-platform/internal/domain/model"
)

// PlanRepository is the port for the plan catalog.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// List returns plans ordered by price ascending.
	List(ctx context.Context, tx Tx, activeOnly bool) ([]*model.Plan, error)
	// Deactivate soft-deletes; it never removes rows referenced by history.
	Deactivate(ctx context.Context, tx Tx, id string) error
}
