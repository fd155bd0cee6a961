package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Token(ctx context.Context, in TokenInput) (TokenOut, error)
	Refresh(ctx context.Context, raw string) (TokenOut, error)
}
