// Package repo provides postgres access for badge classes and extensions
package repo

import (
	"context"
	stdsql "database/sql"
	"errors"
	"time"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
)

// BadgeRow is one badge class. IssuerSlug is joined in on reads
type BadgeRow struct {
	ID           string
	Slug         string
	IssuerID     string
	IssuerSlug   string
	Name         string
	Description  string
	ImageURL     string
	CriteriaText string
	CriteriaHTML string
	Tags         []string
	ExpiresDays  *int
	Archived     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExtensionRow is one named extension payload of a badge class
type ExtensionRow struct {
	Name    string
	Payload []byte
}

// Repo is the persistence surface for badge classes
type Repo interface {
	Create(ctx context.Context, row BadgeRow) error
	BySlug(ctx context.Context, slug string) (BadgeRow, error)
	ByID(ctx context.Context, id string) (BadgeRow, error)
	Update(ctx context.Context, row BadgeRow) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByIssuer(ctx context.Context, issuerID string, limit, offset int) ([]BadgeRow, int, error)
	ChangedSince(ctx context.Context, issuerID string, since time.Time) ([]BadgeRow, error)
	AssertionCount(ctx context.Context, badgeID string) (int, error)

	ReplaceExtensions(ctx context.Context, badgeID string, exts []ExtensionRow) error
	ExtensionsOf(ctx context.Context, badgeID string) ([]ExtensionRow, error)
	ExtensionsFor(ctx context.Context, badgeIDs []string) (map[string][]ExtensionRow, error)
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

const badgeCols = `b.id::text, b.slug, b.issuer_id::text, i.slug, b.name,
	               b.description, b.image_url, b.criteria_text, b.criteria_html,
	               b.tags, b.expires_days, b.archived, b.created_at, b.updated_at`

const badgeFrom = ` FROM badge_classes b JOIN issuers i ON i.id = b.issuer_id`

func scanBadge(row interface{ Scan(...any) error }) (BadgeRow, error) {
	var r BadgeRow
	err := row.Scan(&r.ID, &r.Slug, &r.IssuerID, &r.IssuerSlug, &r.Name,
		&r.Description, &r.ImageURL, &r.CriteriaText, &r.CriteriaHTML,
		&r.Tags, &r.ExpiresDays, &r.Archived, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *queries) Create(ctx context.Context, row BadgeRow) error {
	const sql = `INSERT INTO badge_classes
	               (id, slug, issuer_id, name, description, image_url,
	                criteria_text, criteria_html, tags, expires_days)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.Slug, row.IssuerID, row.Name, row.Description, row.ImageURL,
		row.CriteriaText, row.CriteriaHTML, row.Tags, row.ExpiresDays)
	return err
}

func (r *queries) BySlug(ctx context.Context, slug string) (BadgeRow, error) {
	const sql = `SELECT ` + badgeCols + badgeFrom + ` WHERE b.slug = $1`
	row, err := scanBadge(r.q.QueryRow(ctx, sql, slug))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return BadgeRow{}, perr.NotFoundf("no badge class %s", slug)
		}
		return BadgeRow{}, err
	}
	return row, nil
}

func (r *queries) ByID(ctx context.Context, id string) (BadgeRow, error) {
	const sql = `SELECT ` + badgeCols + badgeFrom + ` WHERE b.id = $1`
	row, err := scanBadge(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return BadgeRow{}, perr.NotFoundf("no badge class %s", id)
		}
		return BadgeRow{}, err
	}
	return row, nil
}

func (r *queries) Update(ctx context.Context, row BadgeRow) error {
	const sql = `UPDATE badge_classes
	             SET name = $2, description = $3, image_url = $4,
	                criteria_text = $5, criteria_html = $6, tags = $7,
	                expires_days = $8, updated_at = now()
	             WHERE id = $1`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.Name, row.Description, row.ImageURL,
		row.CriteriaText, row.CriteriaHTML, row.Tags, row.ExpiresDays)
	return err
}

func (r *queries) Archive(ctx context.Context, id string) error {
	const sql = `UPDATE badge_classes SET archived = TRUE, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) Delete(ctx context.Context, id string) error {
	const sql = `DELETE FROM badge_classes WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) ListByIssuer(ctx context.Context, issuerID string, limit, offset int) ([]BadgeRow, int, error) {
	const where = ` WHERE b.issuer_id = $1 AND NOT b.archived`

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*)`+badgeFrom+where, issuerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+badgeCols+badgeFrom+where+` ORDER BY b.created_at DESC LIMIT $2 OFFSET $3`,
		issuerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []BadgeRow
	for rows.Next() {
		row, err := scanBadge(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func (r *queries) ChangedSince(ctx context.Context, issuerID string, since time.Time) ([]BadgeRow, error) {
	const sql = `SELECT ` + badgeCols + badgeFrom + `
	             WHERE b.issuer_id = $1 AND b.updated_at > $2
	             ORDER BY b.updated_at ASC`
	rows, err := r.q.Query(ctx, sql, issuerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BadgeRow
	for rows.Next() {
		row, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) AssertionCount(ctx context.Context, badgeID string) (int, error) {
	const sql = `SELECT count(*) FROM badge_instances WHERE badge_class_id = $1`
	var n int
	err := r.q.QueryRow(ctx, sql, badgeID).Scan(&n)
	return n, err
}

func (r *queries) ReplaceExtensions(ctx context.Context, badgeID string, exts []ExtensionRow) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM badge_class_extensions WHERE badge_class_id = $1`, badgeID); err != nil {
		return err
	}
	const ins = `INSERT INTO badge_class_extensions (badge_class_id, name, payload) VALUES ($1, $2, $3)`
	for _, e := range exts {
		if _, err := r.q.Exec(ctx, ins, badgeID, e.Name, e.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *queries) ExtensionsOf(ctx context.Context, badgeID string) ([]ExtensionRow, error) {
	const sql = `SELECT name, payload FROM badge_class_extensions WHERE badge_class_id = $1 ORDER BY name`
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

// ExtensionsFor loads extensions for a page of badge classes in one query
func (r *queries) ExtensionsFor(ctx context.Context, badgeIDs []string) (map[string][]ExtensionRow, error) {
	if len(badgeIDs) == 0 {
		return map[string][]ExtensionRow{}, nil
	}
	const sql = `SELECT badge_class_id::text, name, payload
	             FROM badge_class_extensions
	             WHERE badge_class_id = ANY($1::uuid[]) ORDER BY name`
	rows, err := r.q.Query(ctx, sql, badgeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]ExtensionRow, len(badgeIDs))
	for rows.Next() {
		var id string
		var e ExtensionRow
		if err := rows.Scan(&id, &e.Name, &e.Payload); err != nil {
			return nil, err
		}
		out[id] = append(out[id], e)
	}
	return out, rows.Err()
}
