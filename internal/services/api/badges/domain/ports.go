package domain

import (
	"context"
	"time"
)

// ServicePort is the badge class service surface
type ServicePort interface {
	Create(ctx context.Context, callerID, issuerSlug string, in CreateBadgeInput) (Badge, error)
	BySlug(ctx context.Context, slug string) (Badge, error)
	Update(ctx context.Context, callerID, slug string, in UpdateBadgeInput) (Badge, error)
	Delete(ctx context.Context, callerID, slug string) error
	ListByIssuer(ctx context.Context, issuerSlug string, q ListQuery) ([]Badge, int, error)
	Changed(ctx context.Context, callerID, issuerSlug string, since time.Time) (ChangedFeed, error)
}

// ReadPort is what sibling modules need from badges: resolving a class for
// issuing or for expanding backpack entries. Archived classes still resolve
type ReadPort interface {
	BySlug(ctx context.Context, slug string) (Badge, error)
}
