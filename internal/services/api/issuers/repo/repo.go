// Package repo provides postgres access for issuers, staff, and networks
package repo

import (
	"context"
	stdsql "database/sql"
	"errors"
	"time"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	str "badgehub/internal/platform/strings"
)

// IssuerRow is one institution
type IssuerRow struct {
	ID          string
	Slug        string
	Name        string
	Description string
	URL         string
	Email       string
	ImageURL    string
	ZipCode     string
	City        string
	Category    string
	Verified    bool
	IsNetwork   bool
	CreatedBy   string
	CreatedAt   time.Time
}

// StaffRow is one staff grant with account context
type StaffRow struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
}

// MembershipRow is one institution in a network
type MembershipRow struct {
	ID         string
	NetworkID  string
	MemberID   string
	MemberSlug string
	MemberName string
	Status     string
	CreatedAt  time.Time
	DecidedAt  *time.Time
}

// ListFilter narrows the issuer index
type ListFilter struct {
	Category string
	Verified *bool
	Q        string
	Limit    int
	Offset   int
}

// Repo is the persistence surface for issuers
type Repo interface {
	Create(ctx context.Context, row IssuerRow) error
	BySlug(ctx context.Context, slug string) (IssuerRow, error)
	ByID(ctx context.Context, id string) (IssuerRow, error)
	Update(ctx context.Context, row IssuerRow) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]IssuerRow, int, error)
	LiveAssertions(ctx context.Context, issuerID string) (int, error)

	UpsertStaff(ctx context.Context, issuerID, userID, role string) error
	DeleteStaff(ctx context.Context, issuerID, userID string) error
	StaffOf(ctx context.Context, issuerID string) ([]StaffRow, error)
	RoleOf(ctx context.Context, issuerID, userID string) (string, error)
	UserIDByEmail(ctx context.Context, email string) (string, error)

	InsertMembership(ctx context.Context, id, networkID, memberID, invitedBy string) error
	Membership(ctx context.Context, networkID, memberID string) (MembershipRow, error)
	DecideMembership(ctx context.Context, id, status string) error
	MembersOf(ctx context.Context, networkID string) ([]MembershipRow, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const issuerCols = `id::text, slug, name, description, url, email, image_url,
	                zip_code, city, category, verified, is_network,
	                COALESCE(created_by::text, ''), created_at`

func scanIssuer(row interface{ Scan(...any) error }) (IssuerRow, error) {
	var r IssuerRow
	err := row.Scan(&r.ID, &r.Slug, &r.Name, &r.Description, &r.URL, &r.Email,
		&r.ImageURL, &r.ZipCode, &r.City, &r.Category, &r.Verified, &r.IsNetwork,
		&r.CreatedBy, &r.CreatedAt)
	return r, err
}

func (r *queries) Create(ctx context.Context, row IssuerRow) error {
	const sql = `INSERT INTO issuers
	               (id, slug, name, description, url, email, image_url,
	                zip_code, city, category, verified, is_network, created_by)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.Slug, row.Name, row.Description, row.URL, row.Email,
		row.ImageURL, row.ZipCode, row.City, row.Category, row.Verified,
		row.IsNetwork, str.SQLNull(row.CreatedBy))
	return err
}

func (r *queries) BySlug(ctx context.Context, slug string) (IssuerRow, error) {
	const sql = `SELECT ` + issuerCols + ` FROM issuers WHERE slug = $1`
	row, err := scanIssuer(r.q.QueryRow(ctx, sql, slug))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return IssuerRow{}, perr.NotFoundf("no issuer %s", slug)
		}
		return IssuerRow{}, err
	}
	return row, nil
}

func (r *queries) ByID(ctx context.Context, id string) (IssuerRow, error) {
	const sql = `SELECT ` + issuerCols + ` FROM issuers WHERE id = $1`
	row, err := scanIssuer(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return IssuerRow{}, perr.NotFoundf("no issuer %s", id)
		}
		return IssuerRow{}, err
	}
	return row, nil
}

func (r *queries) Update(ctx context.Context, row IssuerRow) error {
	const sql = `UPDATE issuers
	             SET name = $2, description = $3, url = $4, email = $5,
	                image_url = $6, zip_code = $7, city = $8, category = $9,
	                updated_at = now()
	             WHERE id = $1`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.Name, row.Description, row.URL, row.Email,
		row.ImageURL, row.ZipCode, row.City, row.Category)
	return err
}

func (r *queries) Delete(ctx context.Context, id string) error {
	const sql = `DELETE FROM issuers WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) List(ctx context.Context, f ListFilter) ([]IssuerRow, int, error) {
	const where = ` FROM issuers
	             WHERE ($1 = '' OR category = $1)
	               AND ($2::boolean IS NULL OR verified = $2)
	               AND ($3 = '' OR name ILIKE '%' || $3 || '%')`

	var verified any
	if f.Verified != nil {
		verified = *f.Verified
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*)`+where, f.Category, verified, f.Q).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+issuerCols+where+` ORDER BY name ASC LIMIT $4 OFFSET $5`,
		f.Category, verified, f.Q, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []IssuerRow
	for rows.Next() {
		row, err := scanIssuer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func (r *queries) LiveAssertions(ctx context.Context, issuerID string) (int, error) {
	const sql = `SELECT count(*)
	             FROM badge_instances i
	             JOIN badge_classes b ON b.id = i.badge_class_id
	             WHERE b.issuer_id = $1 AND NOT i.revoked`
	var n int
	err := r.q.QueryRow(ctx, sql, issuerID).Scan(&n)
	return n, err
}

func (r *queries) UpsertStaff(ctx context.Context, issuerID, userID, role string) error {
	const sql = `INSERT INTO issuer_staff (issuer_id, user_id, role)
	             VALUES ($1, $2, $3)
	             ON CONFLICT (issuer_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.q.Exec(ctx, sql, issuerID, userID, role)
	return err
}

func (r *queries) DeleteStaff(ctx context.Context, issuerID, userID string) error {
	const sql = `DELETE FROM issuer_staff WHERE issuer_id = $1 AND user_id = $2`
	_, err := r.q.Exec(ctx, sql, issuerID, userID)
	return err
}

func (r *queries) StaffOf(ctx context.Context, issuerID string) ([]StaffRow, error) {
	const sql = `SELECT s.user_id::text,
	                COALESCE((SELECT e.email FROM user_emails e
	                          WHERE e.user_id = s.user_id AND e.is_primary), ''),
	                u.first_name, u.last_name, s.role, s.created_at
	             FROM issuer_staff s
	             JOIN users u ON u.id = s.user_id
	             WHERE s.issuer_id = $1
	             ORDER BY s.created_at ASC`
	rows, err := r.q.Query(ctx, sql, issuerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffRow
	for rows.Next() {
		var s StaffRow
		if err := rows.Scan(&s.UserID, &s.Email, &s.FirstName, &s.LastName, &s.Role, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *queries) RoleOf(ctx context.Context, issuerID, userID string) (string, error) {
	const sql = `SELECT role FROM issuer_staff WHERE issuer_id = $1 AND user_id = $2`
	var role string
	err := r.q.QueryRow(ctx, sql, issuerID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return role, nil
}

func (r *queries) UserIDByEmail(ctx context.Context, email string) (string, error) {
	const sql = `SELECT user_id::text FROM user_emails WHERE lower(email) = lower($1)`
	var id string
	err := r.q.QueryRow(ctx, sql, email).Scan(&id)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return "", perr.NotFoundf("no account for %s", email)
		}
		return "", err
	}
	return id, nil
}

func (r *queries) InsertMembership(ctx context.Context, id, networkID, memberID, invitedBy string) error {
	const sql = `INSERT INTO network_memberships (id, network_id, member_id, invited_by)
	             VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, sql, id, networkID, memberID, str.SQLNull(invitedBy))
	return err
}

const membershipCols = `m.id::text, m.network_id::text, m.member_id::text,
	                i.slug, i.name, m.status, m.created_at, m.decided_at`

func (r *queries) Membership(ctx context.Context, networkID, memberID string) (MembershipRow, error) {
	const sql = `SELECT ` + membershipCols + `
	             FROM network_memberships m
	             JOIN issuers i ON i.id = m.member_id
	             WHERE m.network_id = $1 AND m.member_id = $2`
	var m MembershipRow
	err := r.q.QueryRow(ctx, sql, networkID, memberID).Scan(
		&m.ID, &m.NetworkID, &m.MemberID, &m.MemberSlug, &m.MemberName,
		&m.Status, &m.CreatedAt, &m.DecidedAt)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return MembershipRow{}, perr.NotFoundf("no membership")
		}
		return MembershipRow{}, err
	}
	return m, nil
}

func (r *queries) DecideMembership(ctx context.Context, id, status string) error {
	const sql = `UPDATE network_memberships
	             SET status = $2, decided_at = now()
	             WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, status)
	return err
}

func (r *queries) MembersOf(ctx context.Context, networkID string) ([]MembershipRow, error) {
	const sql = `SELECT ` + membershipCols + `
	             FROM network_memberships m
	             JOIN issuers i ON i.id = m.member_id
	             WHERE m.network_id = $1
	             ORDER BY m.created_at ASC`
	rows, err := r.q.Query(ctx, sql, networkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MembershipRow
	for rows.Next() {
		var m MembershipRow
		if err := rows.Scan(&m.ID, &m.NetworkID, &m.MemberID, &m.MemberSlug,
			&m.MemberName, &m.Status, &m.CreatedAt, &m.DecidedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
