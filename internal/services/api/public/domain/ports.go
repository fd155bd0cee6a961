package domain

import "context"

// ServicePort builds the hosted Open Badges documents
type ServicePort interface {
	Issuer(ctx context.Context, slug string) (IssuerDoc, error)
	Badge(ctx context.Context, slug string) (BadgeDoc, error)
	Assertion(ctx context.Context, id string, expand Expand) (AssertionResult, error)
}
