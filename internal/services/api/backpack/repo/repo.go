// Package repo provides postgres access for the backpack: the user's earned
// instances, imported badges, collections, and share records
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

// HostedRow is one locally issued instance as the recipient sees it.
// Verified reflects the matching email, not the issuer
type HostedRow struct {
	ID               string
	BadgeSlug        string
	BadgeName        string
	BadgeDescription string
	BadgeImageURL    string
	IssuerSlug       string
	IssuerName       string
	IssuerURL        string
	RecipientEmail   string
	IssuedOn         time.Time
	ExpiresAt        *time.Time
	Revoked          bool
	RevocationReason string
	Acceptance       string
	Narrative        string
	Verified         bool
}

// ImportedRow is one imported badge
type ImportedRow struct {
	ID                  string
	UserID              string
	RecipientIdentifier string
	IssuerURL           string
	IssuerName          string
	BadgeName           string
	BadgeDescription    string
	BadgeImageURL       string
	AssertionID         string
	SourceURL           string
	Version             string
	OriginalJSON        []byte
	IssuerJSON          []byte
	BadgeJSON           []byte
	IssuedOn            *time.Time
	ExpiresAt           *time.Time
	Narrative           string
	Acceptance          string
	CreatedAt           time.Time
}

// ImportedExtensionRow is one stored extension of an imported badge
type ImportedExtensionRow struct {
	ImportedID string
	Name       string
	Payload    []byte
}

// CollectionRow is one collection record
type CollectionRow struct {
	ID          string
	UserID      string
	Slug        string
	Name        string
	Description string
	Published   bool
	ShareHash   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntryRow references a hosted instance or an imported badge, never both
type EntryRow struct {
	ID           string
	CollectionID string
	InstanceID   string
	ImportedID   string
	AddedAt      time.Time
}

// ShareRow records one social share
type ShareRow struct {
	ID                string
	UserID            string
	InstanceID        string
	ImportedID        string
	CollectionID      string
	Provider          string
	IncludeIdentifier bool
}

// Flags narrow the backpack listings
type Flags struct {
	IncludeExpired bool
	IncludeRevoked bool
	IncludePending bool
}

// Repo is the persistence surface for the backpack
type Repo interface {
	ListHosted(ctx context.Context, userID string, f Flags) ([]HostedRow, error)
	HostedByID(ctx context.Context, userID, id string) (HostedRow, error)
	SetHostedAcceptance(ctx context.Context, id, acceptance string) error

	InsertImported(ctx context.Context, row ImportedRow) error
	InsertImportedExtensions(ctx context.Context, rows []ImportedExtensionRow) error
	ListImported(ctx context.Context, userID string, f Flags) ([]ImportedRow, error)
	ImportedByID(ctx context.Context, userID, id string) (ImportedRow, error)
	SetImportedAcceptance(ctx context.Context, id, acceptance string) error
	DeleteImported(ctx context.Context, id string) error
	ImportedExtensionsFor(ctx context.Context, ids []string) (map[string][]ImportedExtensionRow, error)

	InsertCollection(ctx context.Context, row CollectionRow) error
	UpdateCollection(ctx context.Context, row CollectionRow) error
	DeleteCollection(ctx context.Context, id string) error
	CollectionBySlug(ctx context.Context, userID, slug string) (CollectionRow, error)
	CollectionByHash(ctx context.Context, hash string) (CollectionRow, error)
	ListCollections(ctx context.Context, userID string) ([]CollectionRow, error)
	ReplaceEntries(ctx context.Context, collectionID string, entries []EntryRow) error
	EntriesFor(ctx context.Context, collectionIDs []string) (map[string][]EntryRow, error)

	InsertShare(ctx context.Context, row ShareRow) error
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

const hostedCols = `a.id::text, b.slug, b.name, b.description, b.image_url,
	              i.slug, i.name, i.url, a.recipient_email, a.issued_on,
	              a.expires_at, a.revoked, a.revocation_reason, a.acceptance,
	              a.narrative, e.verified`

// the email join is what scopes rows to the caller; the unique index on
// lower(email) guarantees at most one owner per instance
const hostedFrom = ` FROM badge_instances a
	              JOIN badge_classes b ON b.id = a.badge_class_id
	              JOIN issuers i ON i.id = a.issuer_id
	              JOIN user_emails e ON e.user_id = $1
	                   AND lower(e.email) = lower(a.recipient_email)`

func scanHosted(row interface{ Scan(...any) error }) (HostedRow, error) {
	var r HostedRow
	err := row.Scan(&r.ID, &r.BadgeSlug, &r.BadgeName, &r.BadgeDescription,
		&r.BadgeImageURL, &r.IssuerSlug, &r.IssuerName, &r.IssuerURL,
		&r.RecipientEmail, &r.IssuedOn, &r.ExpiresAt, &r.Revoked,
		&r.RevocationReason, &r.Acceptance, &r.Narrative, &r.Verified)
	return r, err
}

func (r *queries) ListHosted(ctx context.Context, userID string, f Flags) ([]HostedRow, error) {
	const sql = `SELECT ` + hostedCols + hostedFrom + `
	             WHERE a.acceptance <> 'Rejected'
	               AND ($2 OR e.verified)
	               AND ($3 OR NOT a.revoked)
	               AND ($4 OR a.expires_at IS NULL OR a.expires_at > now())
	             ORDER BY a.issued_on DESC`
	rows, err := r.q.Query(ctx, sql, userID, f.IncludePending, f.IncludeRevoked, f.IncludeExpired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HostedRow
	for rows.Next() {
		row, err := scanHosted(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) HostedByID(ctx context.Context, userID, id string) (HostedRow, error) {
	const sql = `SELECT ` + hostedCols + hostedFrom + ` WHERE a.id = $2`
	row, err := scanHosted(r.q.QueryRow(ctx, sql, userID, id))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return HostedRow{}, perr.NotFoundf("no badge %s in your backpack", id)
		}
		return HostedRow{}, err
	}
	return row, nil
}

func (r *queries) SetHostedAcceptance(ctx context.Context, id, acceptance string) error {
	const sql = `UPDATE badge_instances SET acceptance = $2, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, acceptance)
	return err
}

const importedCols = `id::text, user_id::text, recipient_identifier, issuer_url,
	              issuer_name, badge_name, badge_description, badge_image_url,
	              assertion_id, source_url, version, original_json, issuer_json,
	              badge_json, issued_on, expires_at, narrative, acceptance,
	              created_at`

func scanImported(row interface{ Scan(...any) error }) (ImportedRow, error) {
	var r ImportedRow
	err := row.Scan(&r.ID, &r.UserID, &r.RecipientIdentifier, &r.IssuerURL,
		&r.IssuerName, &r.BadgeName, &r.BadgeDescription, &r.BadgeImageURL,
		&r.AssertionID, &r.SourceURL, &r.Version, &r.OriginalJSON, &r.IssuerJSON,
		&r.BadgeJSON, &r.IssuedOn, &r.ExpiresAt, &r.Narrative, &r.Acceptance,
		&r.CreatedAt)
	return r, err
}

func (r *queries) InsertImported(ctx context.Context, row ImportedRow) error {
	const sql = `INSERT INTO imported_badges
	               (id, user_id, recipient_identifier, issuer_url, issuer_name,
	                badge_name, badge_description, badge_image_url, assertion_id,
	                source_url, version, original_json, issuer_json, badge_json,
	                issued_on, expires_at, narrative, acceptance)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	                $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.UserID, row.RecipientIdentifier, row.IssuerURL, row.IssuerName,
		row.BadgeName, row.BadgeDescription, row.BadgeImageURL, row.AssertionID,
		row.SourceURL, row.Version, row.OriginalJSON, str.SQLNullBytes(row.IssuerJSON),
		str.SQLNullBytes(row.BadgeJSON), row.IssuedOn, row.ExpiresAt, row.Narrative,
		row.Acceptance)
	return err
}

func (r *queries) InsertImportedExtensions(ctx context.Context, rows []ImportedExtensionRow) error {
	const sql = `INSERT INTO imported_badge_extensions (imported_badge_id, name, payload)
	             VALUES ($1, $2, $3)`
	for _, e := range rows {
		if _, err := r.q.Exec(ctx, sql, e.ImportedID, e.Name, e.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *queries) ListImported(ctx context.Context, userID string, f Flags) ([]ImportedRow, error) {
	const sql = `SELECT ` + importedCols + ` FROM imported_badges
	             WHERE user_id = $1
	               AND acceptance <> 'Rejected'
	               AND ($2 OR expires_at IS NULL OR expires_at > now())
	             ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, sql, userID, f.IncludeExpired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImportedRow
	for rows.Next() {
		row, err := scanImported(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) ImportedByID(ctx context.Context, userID, id string) (ImportedRow, error) {
	const sql = `SELECT ` + importedCols + ` FROM imported_badges
	             WHERE user_id = $1 AND id = $2`
	row, err := scanImported(r.q.QueryRow(ctx, sql, userID, id))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return ImportedRow{}, perr.NotFoundf("no badge %s in your backpack", id)
		}
		return ImportedRow{}, err
	}
	return row, nil
}

func (r *queries) SetImportedAcceptance(ctx context.Context, id, acceptance string) error {
	const sql = `UPDATE imported_badges SET acceptance = $2 WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, acceptance)
	return err
}

func (r *queries) DeleteImported(ctx context.Context, id string) error {
	const sql = `DELETE FROM imported_badges WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) ImportedExtensionsFor(ctx context.Context, ids []string) (map[string][]ImportedExtensionRow, error) {
	out := make(map[string][]ImportedExtensionRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const sql = `SELECT imported_badge_id::text, name, payload
	             FROM imported_badge_extensions
	             WHERE imported_badge_id = ANY($1::uuid[])
	             ORDER BY name`
	rows, err := r.q.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e ImportedExtensionRow
		if err := rows.Scan(&e.ImportedID, &e.Name, &e.Payload); err != nil {
			return nil, err
		}
		out[e.ImportedID] = append(out[e.ImportedID], e)
	}
	return out, rows.Err()
}

const collectionCols = `id::text, user_id::text, slug, name, description,
	              published, COALESCE(share_hash::text, ''), created_at, updated_at`

func scanCollection(row interface{ Scan(...any) error }) (CollectionRow, error) {
	var r CollectionRow
	err := row.Scan(&r.ID, &r.UserID, &r.Slug, &r.Name, &r.Description,
		&r.Published, &r.ShareHash, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *queries) InsertCollection(ctx context.Context, row CollectionRow) error {
	const sql = `INSERT INTO collections
	               (id, user_id, slug, name, description, published, share_hash)
	             VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.UserID, row.Slug, row.Name, row.Description,
		row.Published, str.SQLNull(row.ShareHash))
	return err
}

func (r *queries) UpdateCollection(ctx context.Context, row CollectionRow) error {
	const sql = `UPDATE collections
	             SET name = $2, description = $3, published = $4, share_hash = $5,
	                updated_at = now()
	             WHERE id = $1`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.Name, row.Description, row.Published, str.SQLNull(row.ShareHash))
	return err
}

func (r *queries) DeleteCollection(ctx context.Context, id string) error {
	const sql = `DELETE FROM collections WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) CollectionBySlug(ctx context.Context, userID, slug string) (CollectionRow, error) {
	const sql = `SELECT ` + collectionCols + ` FROM collections
	             WHERE user_id = $1 AND slug = $2`
	row, err := scanCollection(r.q.QueryRow(ctx, sql, userID, slug))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return CollectionRow{}, perr.NotFoundf("no collection %s", slug)
		}
		return CollectionRow{}, err
	}
	return row, nil
}

func (r *queries) CollectionByHash(ctx context.Context, hash string) (CollectionRow, error) {
	const sql = `SELECT ` + collectionCols + ` FROM collections
	             WHERE share_hash = $1::uuid AND published`
	row, err := scanCollection(r.q.QueryRow(ctx, sql, hash))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return CollectionRow{}, perr.NotFoundf("no shared collection")
		}
		return CollectionRow{}, err
	}
	return row, nil
}

func (r *queries) ListCollections(ctx context.Context, userID string) ([]CollectionRow, error) {
	const sql = `SELECT ` + collectionCols + ` FROM collections
	             WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionRow
	for rows.Next() {
		row, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) ReplaceEntries(ctx context.Context, collectionID string, entries []EntryRow) error {
	if _, err := r.q.Exec(ctx,
		`DELETE FROM collection_entries WHERE collection_id = $1`, collectionID); err != nil {
		return err
	}
	const sql = `INSERT INTO collection_entries (id, collection_id, instance_id, imported_id)
	             VALUES ($1, $2, $3, $4)`
	for _, e := range entries {
		if _, err := r.q.Exec(ctx, sql, e.ID, collectionID,
			str.SQLNull(e.InstanceID), str.SQLNull(e.ImportedID)); err != nil {
			return err
		}
	}
	return nil
}

func (r *queries) EntriesFor(ctx context.Context, collectionIDs []string) (map[string][]EntryRow, error) {
	out := make(map[string][]EntryRow, len(collectionIDs))
	if len(collectionIDs) == 0 {
		return out, nil
	}
	const sql = `SELECT id::text, collection_id::text,
	                COALESCE(instance_id::text, ''), COALESCE(imported_id::text, ''),
	                added_at
	             FROM collection_entries
	             WHERE collection_id = ANY($1::uuid[])
	             ORDER BY added_at`
	rows, err := r.q.Query(ctx, sql, collectionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e EntryRow
		if err := rows.Scan(&e.ID, &e.CollectionID, &e.InstanceID, &e.ImportedID, &e.AddedAt); err != nil {
			return nil, err
		}
		out[e.CollectionID] = append(out[e.CollectionID], e)
	}
	return out, rows.Err()
}

func (r *queries) InsertShare(ctx context.Context, row ShareRow) error {
	const sql = `INSERT INTO badge_shares
	               (id, user_id, instance_id, imported_id, collection_id,
	                provider, include_identifier)
	             VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.UserID, str.SQLNull(row.InstanceID), str.SQLNull(row.ImportedID),
		str.SQLNull(row.CollectionID), row.Provider, row.IncludeIdentifier)
	return err
}
