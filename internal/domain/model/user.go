package model

import "time"

type Role string

const (
	RoleUser    Role = "user"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// SubscriptionSnapshot is the denormalized copy of a user's current
// subscription kept on the user row for fast reads. It is a cache of the
// subscription ledger: activation and cancellation rewrite it inside the
// same transaction that changes the ledger. The lazy expiry flip does not,
// so a lapsed snapshot may read "active" until the next ledger write; the
// ledger is the source of truth for entitlement.
type SubscriptionSnapshot struct {
	PlanID    string
	StartDate time.Time
	EndDate   time.Time
	Status    SubscriptionStatus
}

// User is owned by the upstream identity service; the core only reads the id
// and maintains the subscription snapshot.
type User struct {
	ID           string // UUID
	Name         string
	Email        string
	Role         Role
	Subscription *SubscriptionSnapshot
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
