package domain

import (
	"context"
	"time"
)

// ServicePort is the assertion service surface
type ServicePort interface {
	Award(ctx context.Context, callerID, badgeSlug string, in AwardInput) (Assertion, error)
	AwardBatch(ctx context.Context, callerID, badgeSlug string, in BatchInput) (Batch, error)
	Batch(ctx context.Context, callerID, batchID string) (Batch, error)
	Revoke(ctx context.Context, callerID, id string, in RevokeInput) (Assertion, error)
	ByID(ctx context.Context, callerID, id string) (Assertion, error)
	ListByBadge(ctx context.Context, callerID, badgeSlug string, q ListQuery) ([]Assertion, int, error)
	ListByIssuer(ctx context.Context, callerID, issuerSlug string, q ListQuery) ([]Assertion, int, error)
	Changed(ctx context.Context, callerID, issuerSlug string, since time.Time) (ChangedFeed, error)
}

// ReadPort resolves instances for hosted JSON and the backpack, no staff gate.
// Callers are responsible for not leaking what they read
type ReadPort interface {
	Public(ctx context.Context, id string) (Assertion, error)
}
