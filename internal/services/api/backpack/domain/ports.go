package domain

import "context"

// ServicePort is the backpack surface, always scoped to the calling user
type ServicePort interface {
	List(ctx context.Context, userID string, q ListQuery) ([]BackpackBadge, error)
	SetAcceptance(ctx context.Context, userID, id string, in AcceptanceInput) (BackpackBadge, error)
	Delete(ctx context.Context, userID, id string) error

	Import(ctx context.Context, userID string, in ImportInput) (ImportedBadge, error)

	Collections(ctx context.Context, userID string) ([]Collection, error)
	CreateCollection(ctx context.Context, userID string, in CreateCollectionInput) (Collection, error)
	CollectionBySlug(ctx context.Context, userID, slug string) (Collection, error)
	UpdateCollection(ctx context.Context, userID, slug string, in UpdateCollectionInput) (Collection, error)
	DeleteCollection(ctx context.Context, userID, slug string) error

	ShareAssertion(ctx context.Context, userID, id string, opts ShareOptions) (ShareLink, error)
	ShareCollection(ctx context.Context, userID, slug string, opts ShareOptions) (ShareLink, error)
}

// PublicPort resolves published collections for unauthenticated readers
type PublicPort interface {
	CollectionByHash(ctx context.Context, hash string) (PublicCollection, error)
}
