package domain

import "context"

// ServicePort is the issuer service surface the HTTP layer and sibling
// modules program against
type ServicePort interface {
	Create(ctx context.Context, callerID string, in CreateIssuerInput) (Issuer, error)
	BySlug(ctx context.Context, slug string) (Issuer, error)
	Update(ctx context.Context, callerID, slug string, in UpdateIssuerInput) (Issuer, error)
	Delete(ctx context.Context, callerID, slug string) error
	List(ctx context.Context, q ListQuery) ([]Issuer, int, error)

	AddStaff(ctx context.Context, callerID, slug string, in AddStaffInput) (StaffMember, error)
	RemoveStaff(ctx context.Context, callerID, slug, userID string) error
	Staff(ctx context.Context, callerID, slug string) ([]StaffMember, error)

	InviteMember(ctx context.Context, callerID, networkSlug string, in InviteMemberInput) (Membership, error)
	DecideMembership(ctx context.Context, callerID, networkSlug, memberSlug string, in DecideMembershipInput) (Membership, error)
	Members(ctx context.Context, callerID, networkSlug string) ([]Membership, error)
}

// AccessPort is the narrow gate sibling modules use for staff checks.
// RequireRole resolves the issuer and fails with Forbidden unless the user
// holds at least the given role (owner > editor > staff)
type AccessPort interface {
	BySlug(ctx context.Context, slug string) (Issuer, error)
	RequireRole(ctx context.Context, userID, slug, role string) (Issuer, error)
}
