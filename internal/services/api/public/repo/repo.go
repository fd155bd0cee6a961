// Package repo provides read only postgres projections for the hosted
// Open Badges documents
package repo

import (
	"context"
	stdsql "database/sql"
	"errors"
	"time"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
)

// IssuerRow carries the public profile fields of an issuer
type IssuerRow struct {
	Slug        string
	Name        string
	Description string
	URL         string
	Email       string
	ImageURL    string
}

// BadgeRow carries the public fields of a badge class. Archived classes
// resolve like live ones so issued assertions keep verifying
type BadgeRow struct {
	ID           string
	Slug         string
	IssuerSlug   string
	Name         string
	Description  string
	ImageURL     string
	CriteriaText string
	Tags         []string
}

// ExtensionRow is one named extension payload of a badge class
type ExtensionRow struct {
	Name    string
	Payload []byte
}

// InstanceRow carries one awarded badge with its recipient identity fields
type InstanceRow struct {
	ID               string
	BadgeSlug        string
	RecipientEmail   string
	RecipientSalt    string
	IssuedOn         time.Time
	ExpiresAt        *time.Time
	Revoked          bool
	RevocationReason string
	Narrative        string
}

// EvidenceRow is one piece of evidence on an instance
type EvidenceRow struct {
	URL       string
	Narrative string
}

// Repo is the read surface behind the public endpoints
type Repo interface {
	IssuerBySlug(ctx context.Context, slug string) (IssuerRow, error)
	BadgeBySlug(ctx context.Context, slug string) (BadgeRow, error)
	ExtensionsOf(ctx context.Context, badgeID string) ([]ExtensionRow, error)
	InstanceByID(ctx context.Context, id string) (InstanceRow, error)
	EvidenceOf(ctx context.Context, instanceID string) ([]EvidenceRow, error)
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

func (r *queries) IssuerBySlug(ctx context.Context, slug string) (IssuerRow, error) {
	const sql = `SELECT slug, name, description, url, email, image_url
	             FROM issuers WHERE slug = $1`
	var row IssuerRow
	err := r.q.QueryRow(ctx, sql, slug).Scan(&row.Slug, &row.Name,
		&row.Description, &row.URL, &row.Email, &row.ImageURL)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return IssuerRow{}, perr.NotFoundf("no issuer %s", slug)
		}
		return IssuerRow{}, err
	}
	return row, nil
}

func (r *queries) BadgeBySlug(ctx context.Context, slug string) (BadgeRow, error) {
	const sql = `SELECT b.id::text, b.slug, i.slug, b.name, b.description,
	                b.image_url, b.criteria_text, b.tags
	             FROM badge_classes b JOIN issuers i ON i.id = b.issuer_id
	             WHERE b.slug = $1`
	var row BadgeRow
	err := r.q.QueryRow(ctx, sql, slug).Scan(&row.ID, &row.Slug, &row.IssuerSlug,
		&row.Name, &row.Description, &row.ImageURL, &row.CriteriaText, &row.Tags)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return BadgeRow{}, perr.NotFoundf("no badge class %s", slug)
		}
		return BadgeRow{}, err
	}
	return row, nil
}

func (r *queries) ExtensionsOf(ctx context.Context, badgeID string) ([]ExtensionRow, error) {
	const sql = `SELECT name, payload FROM badge_class_extensions
	             WHERE badge_class_id = $1 ORDER BY name`
	rows, err := r.q.Query(ctx, sql, badgeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtensionRow
	for rows.Next() {
		var e ExtensionRow
		if err := rows.Scan(&e.Name, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) InstanceByID(ctx context.Context, id string) (InstanceRow, error) {
	const sql = `SELECT a.id::text, b.slug, a.recipient_email, a.recipient_salt,
	                a.issued_on, a.expires_at, a.revoked, a.revocation_reason,
	                a.narrative
	             FROM badge_instances a JOIN badge_classes b ON b.id = a.badge_class_id
	             WHERE a.id = $1`
	var row InstanceRow
	err := r.q.QueryRow(ctx, sql, id).Scan(&row.ID, &row.BadgeSlug,
		&row.RecipientEmail, &row.RecipientSalt, &row.IssuedOn, &row.ExpiresAt,
		&row.Revoked, &row.RevocationReason, &row.Narrative)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return InstanceRow{}, perr.NotFoundf("no assertion %s", id)
		}
		return InstanceRow{}, err
	}
	return row, nil
}

func (r *queries) EvidenceOf(ctx context.Context, instanceID string) ([]EvidenceRow, error) {
	const sql = `SELECT url, narrative FROM badge_evidence
	             WHERE instance_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, sql, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EvidenceRow
	for rows.Next() {
		var e EvidenceRow
		if err := rows.Scan(&e.URL, &e.Narrative); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
