// Package repo provides postgres access for badge instances and batch awards
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

// InstanceRow is one awarded badge. Badge and issuer context is joined in
type InstanceRow struct {
	ID               string
	BadgeClassID     string
	BadgeSlug        string
	BadgeName        string
	IssuerID         string
	IssuerSlug       string
	RecipientEmail   string
	RecipientSalt    string
	UserID           string
	IssuedOn         time.Time
	ExpiresAt        *time.Time
	Revoked          bool
	RevocationReason string
	Acceptance       string
	Narrative        string
	ActivityOnline   bool
	BatchID          string
	UpdatedAt        time.Time
}

// EvidenceRow is one piece of evidence
type EvidenceRow struct {
	ID         string
	InstanceID string
	URL        string
	Narrative  string
}

// ExpiringRow is one instance due an expiry warning
type ExpiringRow struct {
	ID             string
	RecipientEmail string
	BadgeName      string
	ExpiresAt      time.Time
}

// ListFilter narrows staff assertion lists
type ListFilter struct {
	Recipient string
	Revoked   *bool
	Limit     int
	Offset    int
}

// BatchHeader is one batch award record
type BatchHeader struct {
	ID           string
	BadgeClassID string
	BadgeSlug    string
	CreatedBy    string
	Status       string
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// BatchItem is one recipient inside a batch
type BatchItem struct {
	BatchID        string
	Idx            int
	RecipientEmail string
	ExpiresAt      *time.Time
	Narrative      string
	ActivityOnline bool
	Status         string
	Error          string
	InstanceID     string
}

// Repo is the persistence surface for assertions
type Repo interface {
	Insert(ctx context.Context, row InstanceRow) error
	InsertEvidence(ctx context.Context, rows []EvidenceRow) error
	ByID(ctx context.Context, id string) (InstanceRow, error)
	Revoke(ctx context.Context, id, reason string) error
	ListByBadge(ctx context.Context, badgeID string, f ListFilter) ([]InstanceRow, int, error)
	ListByIssuer(ctx context.Context, issuerID string, f ListFilter) ([]InstanceRow, int, error)
	ChangedSince(ctx context.Context, issuerID string, since time.Time) ([]InstanceRow, error)
	EvidenceFor(ctx context.Context, instanceIDs []string) (map[string][]EvidenceRow, error)
	ExpiringSoon(ctx context.Context, now, cutoff time.Time) ([]ExpiringRow, error)
	MarkExpiryNotified(ctx context.Context, ids []string) error

	InsertBatch(ctx context.Context, b BatchHeader, items []BatchItem) error
	BatchByID(ctx context.Context, id string) (BatchHeader, error)
	BatchItems(ctx context.Context, id string) ([]BatchItem, error)
	ClaimPendingBatch(ctx context.Context) (BatchHeader, error)
	FinishBatch(ctx context.Context, id string) error
	MarkBatchItem(ctx context.Context, batchID string, idx int, status, errMsg, instanceID string) error
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

const instCols = `a.id::text, a.badge_class_id::text, b.slug, b.name,
	              a.issuer_id::text, i.slug, a.recipient_email, a.recipient_salt,
	              COALESCE(a.user_id::text, ''), a.issued_on, a.expires_at,
	              a.revoked, a.revocation_reason, a.acceptance, a.narrative,
	              a.activity_online, COALESCE(a.batch_id::text, ''), a.updated_at`

const instFrom = ` FROM badge_instances a
	              JOIN badge_classes b ON b.id = a.badge_class_id
	              JOIN issuers i ON i.id = a.issuer_id`

func scanInstance(row interface{ Scan(...any) error }) (InstanceRow, error) {
	var r InstanceRow
	err := row.Scan(&r.ID, &r.BadgeClassID, &r.BadgeSlug, &r.BadgeName,
		&r.IssuerID, &r.IssuerSlug, &r.RecipientEmail, &r.RecipientSalt,
		&r.UserID, &r.IssuedOn, &r.ExpiresAt, &r.Revoked, &r.RevocationReason,
		&r.Acceptance, &r.Narrative, &r.ActivityOnline, &r.BatchID, &r.UpdatedAt)
	return r, err
}

// Insert stores an instance. The account link resolves through the verified
// address at award time, recipients without an account attach later
func (r *queries) Insert(ctx context.Context, row InstanceRow) error {
	const sql = `INSERT INTO badge_instances
	               (id, badge_class_id, issuer_id, recipient_email, recipient_salt,
	                user_id, issued_on, expires_at, narrative, activity_online, batch_id)
	             VALUES ($1, $2, $3, $4, $5,
	                (SELECT user_id FROM user_emails WHERE lower(email) = lower($4) AND verified LIMIT 1),
	                $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, sql,
		row.ID, row.BadgeClassID, row.IssuerID, row.RecipientEmail, row.RecipientSalt,
		row.IssuedOn, row.ExpiresAt, row.Narrative, row.ActivityOnline,
		str.SQLNull(row.BatchID))
	return err
}

func (r *queries) InsertEvidence(ctx context.Context, rows []EvidenceRow) error {
	const sql = `INSERT INTO badge_evidence (id, instance_id, url, narrative) VALUES ($1, $2, $3, $4)`
	for _, e := range rows {
		if _, err := r.q.Exec(ctx, sql, e.ID, e.InstanceID, e.URL, e.Narrative); err != nil {
			return err
		}
	}
	return nil
}

func (r *queries) ByID(ctx context.Context, id string) (InstanceRow, error) {
	const sql = `SELECT ` + instCols + instFrom + ` WHERE a.id = $1`
	row, err := scanInstance(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return InstanceRow{}, perr.NotFoundf("no assertion %s", id)
		}
		return InstanceRow{}, err
	}
	return row, nil
}

func (r *queries) Revoke(ctx context.Context, id, reason string) error {
	const sql = `UPDATE badge_instances
	             SET revoked = TRUE, revocation_reason = $2, updated_at = now()
	             WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, reason)
	return err
}

const listWhere = ` AND ($2 = '' OR lower(a.recipient_email) = lower($2))
	               AND ($3::boolean IS NULL OR a.revoked = $3)`

func (r *queries) ListByBadge(ctx context.Context, badgeID string, f ListFilter) ([]InstanceRow, int, error) {
	return r.list(ctx, `a.badge_class_id = $1`, badgeID, f)
}

func (r *queries) ListByIssuer(ctx context.Context, issuerID string, f ListFilter) ([]InstanceRow, int, error) {
	return r.list(ctx, `a.issuer_id = $1`, issuerID, f)
}

func (r *queries) list(ctx context.Context, scope, scopeID string, f ListFilter) ([]InstanceRow, int, error) {
	var revoked any
	if f.Revoked != nil {
		revoked = *f.Revoked
	}

	var total int
	err := r.q.QueryRow(ctx,
		`SELECT count(*)`+instFrom+` WHERE `+scope+listWhere,
		scopeID, f.Recipient, revoked).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+instCols+instFrom+` WHERE `+scope+listWhere+
			` ORDER BY a.issued_on DESC LIMIT $4 OFFSET $5`,
		scopeID, f.Recipient, revoked, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []InstanceRow
	for rows.Next() {
		row, err := scanInstance(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func (r *queries) ChangedSince(ctx context.Context, issuerID string, since time.Time) ([]InstanceRow, error) {
	const sql = `SELECT ` + instCols + instFrom + `
	             WHERE a.issuer_id = $1 AND a.updated_at > $2
	             ORDER BY a.updated_at ASC`
	rows, err := r.q.Query(ctx, sql, issuerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InstanceRow
	for rows.Next() {
		row, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// EvidenceFor loads evidence for a page of instances in one query
func (r *queries) EvidenceFor(ctx context.Context, instanceIDs []string) (map[string][]EvidenceRow, error) {
	if len(instanceIDs) == 0 {
		return map[string][]EvidenceRow{}, nil
	}
	const sql = `SELECT id::text, instance_id::text, url, narrative
	             FROM badge_evidence WHERE instance_id = ANY($1::uuid[])`
	rows, err := r.q.Query(ctx, sql, instanceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]EvidenceRow, len(instanceIDs))
	for rows.Next() {
		var e EvidenceRow
		if err := rows.Scan(&e.ID, &e.InstanceID, &e.URL, &e.Narrative); err != nil {
			return nil, err
		}
		out[e.InstanceID] = append(out[e.InstanceID], e)
	}
	return out, rows.Err()
}

// ExpiringSoon lists live unwarned instances lapsing inside (now, cutoff]
func (r *queries) ExpiringSoon(ctx context.Context, now, cutoff time.Time) ([]ExpiringRow, error) {
	const sql = `SELECT a.id::text, a.recipient_email, b.name, a.expires_at
	             FROM badge_instances a
	             JOIN badge_classes b ON b.id = a.badge_class_id
	             WHERE a.expires_at IS NOT NULL
	               AND a.expires_at > $1 AND a.expires_at <= $2
	               AND NOT a.revoked AND NOT a.expiry_notified
	             ORDER BY a.expires_at ASC`
	rows, err := r.q.Query(ctx, sql, now, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpiringRow
	for rows.Next() {
		var e ExpiringRow
		if err := rows.Scan(&e.ID, &e.RecipientEmail, &e.BadgeName, &e.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) MarkExpiryNotified(ctx context.Context, ids []string) error {
	const sql = `UPDATE badge_instances SET expiry_notified = TRUE WHERE id = ANY($1::uuid[])`
	_, err := r.q.Exec(ctx, sql, ids)
	return err
}

func (r *queries) InsertBatch(ctx context.Context, b BatchHeader, items []BatchItem) error {
	const hdr = `INSERT INTO assertion_batches (id, badge_class_id, created_by) VALUES ($1, $2, $3)`
	if _, err := r.q.Exec(ctx, hdr, b.ID, b.BadgeClassID, str.SQLNull(b.CreatedBy)); err != nil {
		return err
	}
	const row = `INSERT INTO assertion_batch_rows
	               (batch_id, idx, recipient_email, expires_at, narrative, activity_online)
	             VALUES ($1, $2, $3, $4, $5, $6)`
	for _, it := range items {
		if _, err := r.q.Exec(ctx, row,
			b.ID, it.Idx, it.RecipientEmail, it.ExpiresAt, it.Narrative, it.ActivityOnline); err != nil {
			return err
		}
	}
	return nil
}

const batchCols = `t.id::text, t.badge_class_id::text, b.slug,
	               COALESCE(t.created_by::text, ''), t.status, t.created_at, t.finished_at`

func scanBatch(row interface{ Scan(...any) error }) (BatchHeader, error) {
	var b BatchHeader
	err := row.Scan(&b.ID, &b.BadgeClassID, &b.BadgeSlug, &b.CreatedBy,
		&b.Status, &b.CreatedAt, &b.FinishedAt)
	return b, err
}

func (r *queries) BatchByID(ctx context.Context, id string) (BatchHeader, error) {
	const sql = `SELECT ` + batchCols + `
	             FROM assertion_batches t JOIN badge_classes b ON b.id = t.badge_class_id
	             WHERE t.id = $1`
	b, err := scanBatch(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return BatchHeader{}, perr.NotFoundf("no batch %s", id)
		}
		return BatchHeader{}, err
	}
	return b, nil
}

func (r *queries) BatchItems(ctx context.Context, id string) ([]BatchItem, error) {
	const sql = `SELECT batch_id::text, idx, recipient_email, expires_at, narrative,
	                activity_online, status, error, COALESCE(instance_id::text, '')
	             FROM assertion_batch_rows WHERE batch_id = $1 ORDER BY idx`
	rows, err := r.q.Query(ctx, sql, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchItem
	for rows.Next() {
		var it BatchItem
		if err := rows.Scan(&it.BatchID, &it.Idx, &it.RecipientEmail, &it.ExpiresAt,
			&it.Narrative, &it.ActivityOnline, &it.Status, &it.Error, &it.InstanceID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ClaimPendingBatch flips the oldest pending batch to processing. Run inside a
// Tx so SKIP LOCKED keeps competing workers off the same batch
func (r *queries) ClaimPendingBatch(ctx context.Context) (BatchHeader, error) {
	const sql = `UPDATE assertion_batches t
	             SET status = 'processing'
	             FROM badge_classes b
	             WHERE b.id = t.badge_class_id
	               AND t.id = (SELECT id FROM assertion_batches
	                          WHERE status = 'pending'
	                          ORDER BY created_at LIMIT 1
	                          FOR UPDATE SKIP LOCKED)
	             RETURNING ` + batchCols
	b, err := scanBatch(r.q.QueryRow(ctx, sql))
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return BatchHeader{}, perr.NotFoundf("no pending batch")
		}
		return BatchHeader{}, err
	}
	return b, nil
}

func (r *queries) FinishBatch(ctx context.Context, id string) error {
	const sql = `UPDATE assertion_batches SET status = 'done', finished_at = now() WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) MarkBatchItem(ctx context.Context, batchID string, idx int, status, errMsg, instanceID string) error {
	const sql = `UPDATE assertion_batch_rows
	             SET status = $3, error = $4, instance_id = $5
	             WHERE batch_id = $1 AND idx = $2`
	_, err := r.q.Exec(ctx, sql, batchID, idx, status, errMsg, str.SQLNull(instanceID))
	return err
}
