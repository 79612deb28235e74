package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
	"fitness-subscription-platform/internal/infra/metrics"
)

var _ repository.PlanRepository = (*CachedPlanRepo)(nil)

// CachedPlanRepo caches the plan list, the hottest read in the catalog. Every
// write invalidates both list variants; point reads go straight to the
// database because the id-keyed path is rare and cheap. Redis being down
// degrades to the inner repository on every call.
type CachedPlanRepo struct {
	inner  repository.PlanRepository
	client RedisClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewCachedPlanRepo(inner repository.PlanRepository, client RedisClient, ttl time.Duration, logger *zerolog.Logger) *CachedPlanRepo {
	return &CachedPlanRepo{inner: inner, client: client, ttl: ttl, log: logger}
}

func planListKey(activeOnly bool) string {
	if activeOnly {
		return "plans:list:active"
	}
	return "plans:list:all"
}

func (r *CachedPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if err := r.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	return r.inner.FindByID(ctx, tx, id)
}

func (r *CachedPlanRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Plan, error) {
	// Cache only untransacted reads; a caller inside a transaction wants the
	// database's view, not a snapshot from before it started.
	if tx != repository.NoTX {
		return r.inner.List(ctx, tx, activeOnly)
	}

	key := planListKey(activeOnly)
	raw, err := r.client.Get(ctx, key)
	if err == nil {
		var plans []*model.Plan
		if err := json.Unmarshal([]byte(raw), &plans); err == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
		r.log.Warn().Str("key", key).Msg("plan list cache entry corrupt, dropping")
		if err := r.client.Del(ctx, key); err != nil {
			r.log.Warn().Err(err).Msg("plan list cache drop failed")
		}
	} else if !errors.Is(err, ErrNil) {
		r.log.Warn().Err(err).Msg("plan list cache read failed")
	}
	metrics.IncCacheRequest("plan_list", "miss")

	plans, err := r.inner.List(ctx, tx, activeOnly)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plans); err == nil {
		if err := r.client.Set(ctx, key, string(b), r.ttl); err != nil {
			r.log.Warn().Err(err).Msg("plan list cache write failed")
		}
	}
	return plans, nil
}

func (r *CachedPlanRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	if err := r.inner.Deactivate(ctx, tx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedPlanRepo) invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, planListKey(true), planListKey(false)); err != nil {
		r.log.Warn().Err(err).Msg("plan list cache invalidate failed")
	}
	metrics.IncCacheRequest("plan_list", "invalidate")
}
