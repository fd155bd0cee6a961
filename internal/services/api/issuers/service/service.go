// Package service contains issuer workflows: registration, staff grants, and
// network membership
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
	str "badgehub/internal/platform/strings"
	"badgehub/internal/services/api/issuers/domain"
	"badgehub/internal/services/api/issuers/repo"
	"badgehub/internal/services/notify"
)

// Region resolves postal codes, used to sanity-check issuer zips
type Region interface {
	OrtByPLZ(plz string) string
}

// Service defines the issuer service contract
type Service interface {
	domain.ServicePort
	domain.AccessPort
}

// Svc implements the issuer service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	region Region
	notify notify.Port
	log    logger.Logger
}

// New constructs an issuer service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], region Region, n notify.Port) *Svc {
	if db == nil {
		panic("issuers.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("issuers.Service requires a non nil Repo binder")
	}
	if region == nil {
		panic("issuers.Service requires a region lookup")
	}
	if n == nil {
		panic("issuers.Service requires a notify port")
	}
	return &Svc{
		Repo:   binder.Bind(db),
		binder: binder,
		db:     db,
		region: region,
		notify: n,
		log:    *logger.Named("issuers"),
	}
}

func roleRank(role string) int {
	switch role {
	case domain.RoleOwner:
		return 3
	case domain.RoleEditor:
		return 2
	case domain.RoleStaff:
		return 1
	}
	return 0
}

// slug collisions get a short random suffix, then one more try
const createAttempts = 3

// Create registers an institution and makes the caller its owner
func (s *Svc) Create(ctx context.Context, callerID string, in domain.CreateIssuerInput) (domain.Issuer, error) {
	base := str.Slugify(in.Name)
	if base == "" {
		return domain.Issuer{}, perr.InvalidArgf("name %q does not yield a usable slug", in.Name)
	}

	row := repo.IssuerRow{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		URL:         in.URL,
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		ImageURL:    in.ImageURL,
		ZipCode:     strings.TrimSpace(in.ZipCode),
		City:        strings.TrimSpace(in.City),
		Category:    strings.TrimSpace(in.Category),
		IsNetwork:   in.IsNetwork,
		CreatedBy:   callerID,
	}
	s.checkZip(&row)

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		row.Slug = base
		if attempt > 0 {
			row.Slug = base + "-" + uuid.NewString()[:4]
		}
		err = s.db.Tx(ctx, func(q repokit.Queryer) error {
			rq := s.binder.Bind(q)
			if err := rq.Create(ctx, row); err != nil {
				return err
			}
			return rq.UpsertStaff(ctx, row.ID, callerID, domain.RoleOwner)
		})
		if err == nil {
			return toIssuer(row), nil
		}
		if !perr.IsDuplicateKey(err) {
			return domain.Issuer{}, err
		}
	}
	return domain.Issuer{}, perr.Wrapf(err, perr.ErrorCodeConflict, "allocate slug for %q", in.Name)
}

// BySlug returns the public view of an issuer
func (s *Svc) BySlug(ctx context.Context, slug string) (domain.Issuer, error) {
	row, err := s.Repo.BySlug(ctx, slug)
	if err != nil {
		return domain.Issuer{}, err
	}
	return toIssuer(row), nil
}

// Update applies the non nil fields, staff gated at editor
func (s *Svc) Update(ctx context.Context, callerID, slug string, in domain.UpdateIssuerInput) (domain.Issuer, error) {
	cur, err := s.requireRoleRow(ctx, callerID, slug, domain.RoleEditor)
	if err != nil {
		return domain.Issuer{}, err
	}

	if in.Name != nil {
		cur.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		cur.Description = *in.Description
	}
	if in.URL != nil {
		cur.URL = *in.URL
	}
	if in.Email != nil {
		cur.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.ImageURL != nil {
		cur.ImageURL = *in.ImageURL
	}
	if in.ZipCode != nil {
		cur.ZipCode = strings.TrimSpace(*in.ZipCode)
	}
	if in.City != nil {
		cur.City = strings.TrimSpace(*in.City)
	}
	if in.Category != nil {
		cur.Category = strings.TrimSpace(*in.Category)
	}
	s.checkZip(&cur)

	if err := s.Repo.Update(ctx, cur); err != nil {
		return domain.Issuer{}, err
	}
	return toIssuer(cur), nil
}

// Delete removes an issuer without live badge instances, owner only
func (s *Svc) Delete(ctx context.Context, callerID, slug string) error {
	cur, err := s.requireRoleRow(ctx, callerID, slug, domain.RoleOwner)
	if err != nil {
		return err
	}
	live, err := s.Repo.LiveAssertions(ctx, cur.ID)
	if err != nil {
		return err
	}
	if live > 0 {
		return perr.Conflictf("issuer %s still has %d live badge instances", slug, live)
	}
	return s.Repo.Delete(ctx, cur.ID)
}

// List pages through the issuer index with optional filters
func (s *Svc) List(ctx context.Context, q domain.ListQuery) ([]domain.Issuer, int, error) {
	q = q.Clamped()

	rows, total, err := s.Repo.List(ctx, repo.ListFilter{
		Category: strings.TrimSpace(q.Category),
		Verified: q.Verified,
		Q:        strings.TrimSpace(q.Q),
		Limit:    q.PageSize,
		Offset:   (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Issuer, 0, len(rows))
	for _, r := range rows {
		out = append(out, toIssuer(r))
	}
	return out, total, nil
}

// AddStaff grants a role to an account found by address, owner only
func (s *Svc) AddStaff(ctx context.Context, callerID, slug string, in domain.AddStaffInput) (domain.StaffMember, error) {
	cur, err := s.requireRoleRow(ctx, callerID, slug, domain.RoleOwner)
	if err != nil {
		return domain.StaffMember{}, err
	}

	userID, err := s.Repo.UserIDByEmail(ctx, in.Email)
	if err != nil {
		return domain.StaffMember{}, err
	}

	if in.Role != domain.RoleOwner {
		if err := s.guardLastOwner(ctx, cur.ID, userID); err != nil {
			return domain.StaffMember{}, err
		}
	}
	if err := s.Repo.UpsertStaff(ctx, cur.ID, userID, in.Role); err != nil {
		return domain.StaffMember{}, err
	}

	staff, err := s.Repo.StaffOf(ctx, cur.ID)
	if err != nil {
		return domain.StaffMember{}, err
	}
	for _, m := range staff {
		if m.UserID == userID {
			return toStaff(m), nil
		}
	}
	return domain.StaffMember{UserID: userID, Role: in.Role}, nil
}

// RemoveStaff revokes a grant, owner only. The last owner stays
func (s *Svc) RemoveStaff(ctx context.Context, callerID, slug, userID string) error {
	cur, err := s.requireRoleRow(ctx, callerID, slug, domain.RoleOwner)
	if err != nil {
		return err
	}
	if err := s.guardLastOwner(ctx, cur.ID, userID); err != nil {
		return err
	}
	return s.Repo.DeleteStaff(ctx, cur.ID, userID)
}

// Staff lists the grants of an issuer, any staff member may look
func (s *Svc) Staff(ctx context.Context, callerID, slug string) ([]domain.StaffMember, error) {
	cur, err := s.requireRoleRow(ctx, callerID, slug, domain.RoleStaff)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.StaffOf(ctx, cur.ID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StaffMember, 0, len(rows))
	for _, m := range rows {
		out = append(out, toStaff(m))
	}
	return out, nil
}

// InviteMember invites an institution into a network, editor gated on the network
func (s *Svc) InviteMember(ctx context.Context, callerID, networkSlug string, in domain.InviteMemberInput) (domain.Membership, error) {
	network, err := s.requireRoleRow(ctx, callerID, networkSlug, domain.RoleEditor)
	if err != nil {
		return domain.Membership{}, err
	}
	if !network.IsNetwork {
		return domain.Membership{}, perr.InvalidArgf("issuer %s is not a network", networkSlug)
	}

	member, err := s.Repo.BySlug(ctx, in.Slug)
	if err != nil {
		return domain.Membership{}, err
	}
	if member.ID == network.ID {
		return domain.Membership{}, perr.InvalidArgf("a network cannot join itself")
	}

	id := uuid.NewString()
	if err := s.Repo.InsertMembership(ctx, id, network.ID, member.ID, callerID); err != nil {
		if perr.IsDuplicateKey(err) {
			return domain.Membership{}, perr.DuplicateKeyf("%s is already part of %s", in.Slug, networkSlug)
		}
		return domain.Membership{}, err
	}

	if member.Email != "" {
		s.notify.Notify(ctx, notify.KindNetworkInvite, member.Email, map[string]string{
			"network_name": network.Name,
			"issuer_name":  member.Name,
		})
	} else {
		s.log.Debug().Str("member", member.Slug).Msg("invited issuer has no contact email, skipping notification")
	}

	return s.Membership(ctx, networkSlug, in.Slug)
}

// DecideMembership lets the invited institution accept or reject, editor gated
// on the member. Deciding the same way twice is a no-op
func (s *Svc) DecideMembership(ctx context.Context, callerID, networkSlug, memberSlug string, in domain.DecideMembershipInput) (domain.Membership, error) {
	member, err := s.requireRoleRow(ctx, callerID, memberSlug, domain.RoleEditor)
	if err != nil {
		return domain.Membership{}, err
	}
	network, err := s.Repo.BySlug(ctx, networkSlug)
	if err != nil {
		return domain.Membership{}, err
	}

	m, err := s.Repo.Membership(ctx, network.ID, member.ID)
	if err != nil {
		return domain.Membership{}, err
	}
	if m.Status == in.Status {
		return toMembership(m), nil
	}
	if m.Status != domain.MembershipInvited {
		return domain.Membership{}, perr.Conflictf("invitation was already %s", m.Status)
	}

	if err := s.Repo.DecideMembership(ctx, m.ID, in.Status); err != nil {
		return domain.Membership{}, err
	}
	return s.Membership(ctx, networkSlug, memberSlug)
}

// Members lists the institutions of a network with their invitation state
func (s *Svc) Members(ctx context.Context, callerID, networkSlug string) ([]domain.Membership, error) {
	network, err := s.requireRoleRow(ctx, callerID, networkSlug, domain.RoleStaff)
	if err != nil {
		return nil, err
	}
	if !network.IsNetwork {
		return nil, perr.InvalidArgf("issuer %s is not a network", networkSlug)
	}
	rows, err := s.Repo.MembersOf(ctx, network.ID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Membership, 0, len(rows))
	for _, m := range rows {
		out = append(out, toMembership(m))
	}
	return out, nil
}

// Membership resolves one network/member pair
func (s *Svc) Membership(ctx context.Context, networkSlug, memberSlug string) (domain.Membership, error) {
	network, err := s.Repo.BySlug(ctx, networkSlug)
	if err != nil {
		return domain.Membership{}, err
	}
	member, err := s.Repo.BySlug(ctx, memberSlug)
	if err != nil {
		return domain.Membership{}, err
	}
	m, err := s.Repo.Membership(ctx, network.ID, member.ID)
	if err != nil {
		return domain.Membership{}, err
	}
	return toMembership(m), nil
}

// RequireRole resolves the issuer and enforces a minimum staff role
func (s *Svc) RequireRole(ctx context.Context, userID, slug, role string) (domain.Issuer, error) {
	row, err := s.requireRoleRow(ctx, userID, slug, role)
	if err != nil {
		return domain.Issuer{}, err
	}
	return toIssuer(row), nil
}

func (s *Svc) requireRoleRow(ctx context.Context, userID, slug, role string) (repo.IssuerRow, error) {
	row, err := s.Repo.BySlug(ctx, slug)
	if err != nil {
		return repo.IssuerRow{}, err
	}
	have, err := s.Repo.RoleOf(ctx, row.ID, userID)
	if err != nil {
		return repo.IssuerRow{}, err
	}
	if roleRank(have) < roleRank(role) {
		return repo.IssuerRow{}, perr.Forbiddenf("requires %s access to issuer %s", role, slug)
	}
	return row, nil
}

// guardLastOwner fails when the change would strip the only owner
func (s *Svc) guardLastOwner(ctx context.Context, issuerID, userID string) error {
	role, err := s.Repo.RoleOf(ctx, issuerID, userID)
	if err != nil {
		return err
	}
	if role != domain.RoleOwner {
		return nil
	}
	staff, err := s.Repo.StaffOf(ctx, issuerID)
	if err != nil {
		return err
	}
	owners := 0
	for _, m := range staff {
		if m.Role == domain.RoleOwner {
			owners++
		}
	}
	if owners <= 1 {
		return perr.Conflictf("an issuer needs at least one owner")
	}
	return nil
}

// checkZip logs unknown postal codes but never rejects them, and backfills the
// city from the dataset when it was left blank
func (s *Svc) checkZip(row *repo.IssuerRow) {
	if row.ZipCode == "" {
		return
	}
	ort := s.region.OrtByPLZ(row.ZipCode)
	if ort == "" {
		s.log.Warn().Str("slug", row.Slug).Str("zip", row.ZipCode).Msg("issuer zip code not in the regional dataset")
		return
	}
	if row.City == "" {
		row.City = ort
	}
}

func toIssuer(r repo.IssuerRow) domain.Issuer {
	return domain.Issuer{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		URL:         r.URL,
		Email:       r.Email,
		ImageURL:    r.ImageURL,
		ZipCode:     r.ZipCode,
		City:        r.City,
		Category:    r.Category,
		Verified:    r.Verified,
		IsNetwork:   r.IsNetwork,
		CreatedAt:   r.CreatedAt,
	}
}

func toStaff(r repo.StaffRow) domain.StaffMember {
	return domain.StaffMember{
		UserID:    r.UserID,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      r.Role,
		CreatedAt: r.CreatedAt,
	}
}

func toMembership(r repo.MembershipRow) domain.Membership {
	return domain.Membership{
		ID:         r.ID,
		MemberSlug: r.MemberSlug,
		MemberName: r.MemberName,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		DecidedAt:  r.DecidedAt,
	}
}
