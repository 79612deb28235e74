//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock PlanRepo ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	SaveFunc     func(ctx context.Context, tx repository.Tx, p *model.Plan) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.data {
		if other.Name == p.Name && other.ID != p.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.data {
		if activeOnly && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceMinor < out[j].PriceMinor })
	return out, nil
}

func (r *MockPlanRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	return nil
}

// ---- Mock SubscriptionRepo ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription // by id

	ActivateFunc         func(ctx context.Context, tx repository.Tx, s *model.Subscription) (string, error)
	FindActiveByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
	MarkExpiredFunc      func(ctx context.Context, tx repository.Tx, id string) error
	CancelFunc           func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

// Activate mirrors the production upsert: at most one active row per user.
func (r *MockSubscriptionRepo) Activate(ctx context.Context, tx repository.Tx, s *model.Subscription) (string, error) {
	if r.ActivateFunc != nil {
		return r.ActivateFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.UserID == s.UserID && existing.Status == model.SubscriptionStatusActive {
			existing.PlanID = s.PlanID
			existing.StartDate = s.StartDate
			existing.EndDate = s.EndDate
			existing.UpdatedAt = s.UpdatedAt
			return existing.ID, nil
		}
	}
	cp := *s
	r.data[s.ID] = &cp
	return s.ID, nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if r.FindActiveByUserFunc != nil {
		return r.FindActiveByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) error {
	if r.MarkExpiredFunc != nil {
		return r.MarkExpiredFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok && s.Status == model.SubscriptionStatusActive {
		s.Status = model.SubscriptionStatusExpired
	}
	return nil
}

func (r *MockSubscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.CancelFunc != nil {
		return r.CancelFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCancelled
	return true, nil
}

// ---- Mock PaymentRepo ----

type MockPaymentRepo struct {
	mu     sync.Mutex
	data   map[string]*model.Payment // by id
	byTxID map[string]string         // transaction id -> payment id

	SaveFunc                func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	AppendFunc              func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	ClaimPendingFunc        func(ctx context.Context, tx repository.Tx, orderID, transactionID string, amountMinor int64, subscriptionID string, paidAt time.Time) (*model.Payment, error)
	FindByTransactionIDFunc func(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error)
	MarkRefundedFunc        func(ctx context.Context, tx repository.Tx, id string, rf *model.Refund) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}, byTxID: map[string]string{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	if p.TransactionID != nil {
		r.byTxID[*p.TransactionID] = p.ID
	}
	return nil
}

// Append enforces the transaction id uniqueness the partial index provides
// in production.
func (r *MockPaymentRepo) Append(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.AppendFunc != nil {
		return r.AppendFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.TransactionID == nil {
		return domain.ErrInvalidArgument
	}
	if _, taken := r.byTxID[*p.TransactionID]; taken {
		return domain.ErrDuplicateTransaction
	}
	cp := *p
	r.data[p.ID] = &cp
	r.byTxID[*p.TransactionID] = p.ID
	return nil
}

func (r *MockPaymentRepo) ClaimPending(ctx context.Context, tx repository.Tx, orderID, transactionID string, amountMinor int64, subscriptionID string, paidAt time.Time) (*model.Payment, error) {
	if r.ClaimPendingFunc != nil {
		return r.ClaimPendingFunc(ctx, tx, orderID, transactionID, amountMinor, subscriptionID, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byTxID[transactionID]; taken {
		return nil, domain.ErrDuplicateTransaction
	}
	for _, p := range r.data {
		if p.OrderID == orderID && p.Status == model.PaymentStatusPending {
			p.Status = model.PaymentStatusSuccess
			p.TransactionID = &transactionID
			p.AmountMinor = amountMinor
			p.SubscriptionID = &subscriptionID
			p.PaidAt = &paidAt
			p.UpdatedAt = paidAt
			r.byTxID[transactionID] = p.ID
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	if r.FindByTransactionIDFunc != nil {
		return r.FindByTransactionIDFunc(ctx, tx, transactionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byTxID[transactionID]; ok {
		cp := *r.data[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.Payment
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MockPaymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string, rf *model.Refund) (bool, error) {
	if r.MarkRefundedFunc != nil {
		return r.MarkRefundedFunc(ctx, tx, id, rf)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PaymentStatusSuccess {
		return false, nil
	}
	p.Status = model.PaymentStatusRefunded
	cp := *rf
	p.Refund = &cp
	return true, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	return true, nil
}

// ---- Mock UserRepo ----

type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]*model.User

	UpdateSubscriptionSnapshotFunc func(ctx context.Context, tx repository.Tx, userID string, snap *model.SubscriptionSnapshot) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{data: map[string]*model.User{}}
}

func (r *MockUserRepo) Put(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.data[u.ID] = &cp
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.data[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) UpdateSubscriptionSnapshot(ctx context.Context, tx repository.Tx, userID string, snap *model.SubscriptionSnapshot) error {
	if r.UpdateSubscriptionSnapshotFunc != nil {
		return r.UpdateSubscriptionSnapshotFunc(ctx, tx, userID, snap)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[userID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *snap
	u.Subscription = &cp
	return nil
}

// ---- Mock WithdrawalRepo ----

type MockWithdrawalRepo struct {
	mu   sync.Mutex
	data map[string]*model.Withdrawal

	TransitionFunc func(ctx context.Context, tx repository.Tx, id string, to model.WithdrawalStatus, actor string, at time.Time) (bool, error)
}

var _ repository.WithdrawalRepository = (*MockWithdrawalRepo)(nil)

func NewMockWithdrawalRepo() *MockWithdrawalRepo {
	return &MockWithdrawalRepo{data: map[string]*model.Withdrawal{}}
}

func (r *MockWithdrawalRepo) Save(ctx context.Context, tx repository.Tx, w *model.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.data[w.ID] = &cp
	return nil
}

func (r *MockWithdrawalRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.data[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockWithdrawalRepo) List(ctx context.Context, tx repository.Tx, status string) ([]*model.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Withdrawal
	for _, w := range r.data {
		if status != "" && string(w.Status) != status {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MockWithdrawalRepo) Transition(ctx context.Context, tx repository.Tx, id string, to model.WithdrawalStatus, actor string, at time.Time) (bool, error) {
	if r.TransitionFunc != nil {
		return r.TransitionFunc(ctx, tx, id, to, actor, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.data[id]
	if !ok || w.Status != model.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = to
	w.ProcessedBy = &actor
	w.ProcessedAt = &at
	w.UpdatedAt = at
	return true, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	CreateCheckoutSessionFunc func(ctx context.Context, userID string, plan *model.Plan, receipt string) (*adapter.CheckoutSession, error)
	VerifyWebhookFunc         func(rawBody []byte, signature string) (*adapter.ConfirmedPayment, error)
	VerifyCheckoutSigFunc     func(orderID, paymentID, signature string) error
	FetchPaymentFunc          func(ctx context.Context, paymentID string) (*adapter.ConfirmedPayment, error)
	FetchOrderPaymentsFunc    func(ctx context.Context, orderID string) ([]*adapter.ConfirmedPayment, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, userID string, plan *model.Plan, receipt string) (*adapter.CheckoutSession, error) {
	if g.CreateCheckoutSessionFunc != nil {
		return g.CreateCheckoutSessionFunc(ctx, userID, plan, receipt)
	}
	return &adapter.CheckoutSession{
		OrderID:     "order_" + uuid.NewString(),
		AmountMinor: plan.PriceMinor,
		Currency:    plan.Currency,
		Receipt:     receipt,
		KeyID:       "key_test",
	}, nil
}

func (g *MockPaymentGateway) VerifyWebhook(rawBody []byte, signature string) (*adapter.ConfirmedPayment, error) {
	if g.VerifyWebhookFunc != nil {
		return g.VerifyWebhookFunc(rawBody, signature)
	}
	return nil, nil
}

func (g *MockPaymentGateway) VerifyCheckoutSignature(orderID, paymentID, signature string) error {
	if g.VerifyCheckoutSigFunc != nil {
		return g.VerifyCheckoutSigFunc(orderID, paymentID, signature)
	}
	return nil
}

func (g *MockPaymentGateway) FetchPayment(ctx context.Context, paymentID string) (*adapter.ConfirmedPayment, error) {
	if g.FetchPaymentFunc != nil {
		return g.FetchPaymentFunc(ctx, paymentID)
	}
	return nil, nil
}

func (g *MockPaymentGateway) FetchOrderPayments(ctx context.Context, orderID string) ([]*adapter.ConfirmedPayment, error) {
	if g.FetchOrderPaymentsFunc != nil {
		return g.FetchOrderPaymentsFunc(ctx, orderID)
	}
	return nil, nil
}

// ---- Mock EntitlementCache ----

type MockEntitlementCache struct {
	mu          sync.Mutex
	entitled    map[string]time.Time
	Invalidated []string
}

func NewMockEntitlementCache() *MockEntitlementCache {
	return &MockEntitlementCache{entitled: map[string]time.Time{}}
}

func (c *MockEntitlementCache) IsEntitled(ctx context.Context, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.entitled[userID]
	return ok && until.After(time.Now())
}

func (c *MockEntitlementCache) MarkEntitled(ctx context.Context, userID string, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entitled[userID] = until
}

func (c *MockEntitlementCache) Invalidate(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entitled, userID)
	c.Invalidated = append(c.Invalidated, userID)
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error

	Calls int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately without a real transaction. Assign
// WithTxFunc to exercise rollback behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
