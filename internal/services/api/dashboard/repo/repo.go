// Package repo provides postgres aggregates for the platform dashboard
package repo

import (
	"context"
	"time"

	"badgehub/internal/modkit/repokit"
)

// Filter scopes dashboard queries. Zips restricts to issuers whose zip code
// is in the set; nil means the whole platform. Now anchors the trend windows
type Filter struct {
	Zips []string
	Now  time.Time
}

// WindowCounts buckets a count by trend window: all time, the last 30 days,
// and the 30 days before that
type WindowCounts struct {
	Total    int64
	Current  int64
	Previous int64
}

// RecentAwardRow is one freshly awarded badge for the KPI drill down
type RecentAwardRow struct {
	BadgeName  string
	IssuerName string
	IssuedOn   time.Time
}

// ClassAwardRow carries one badge class with its competency payload and award
// aggregates. Earners holds the distinct user ids holding the badge; the
// UserAwards columns count only awards tied to a registered user
type ClassAwardRow struct {
	ClassID    string
	Slug       string
	Name       string
	IssuerID   string
	IssuerSlug string
	IssuerName string
	Payload    []byte
	Awards     int64
	Recent     int64
	Previous   int64
	UserAwards int64
	UserRecent int64
	UserPrev   int64
	Earners    []string
}

// TopClassRow is one badge class ranked by awards inside a period
type TopClassRow struct {
	Slug        string
	Name        string
	Description string
	IssuerSlug  string
	IssuerName  string
	Count       int64
}

// LearnerRow is one badge holding user with their award windows
type LearnerRow struct {
	UserID   string
	Gender   string
	ZipCode  string
	Current  int64
	Previous int64
}

// Repo is the read surface for dashboard aggregates
type Repo interface {
	ViewerZip(ctx context.Context, userID string) (string, error)
	AwardCounts(ctx context.Context, f Filter) (WindowCounts, error)
	IssuerCounts(ctx context.Context, f Filter) (WindowCounts, error)
	AwardedClassCount(ctx context.Context, f Filter) (int64, error)
	EarnerCount(ctx context.Context, f Filter) (int64, error)
	RecentAwards(ctx context.Context, f Filter, limit int) ([]RecentAwardRow, error)
	CompetencyClasses(ctx context.Context, f Filter) ([]ClassAwardRow, error)
	AwardCountSince(ctx context.Context, f Filter, since *time.Time) (int64, error)
	TopClasses(ctx context.Context, f Filter, since *time.Time, limit int) ([]TopClassRow, error)
	Learners(ctx context.Context, f Filter) ([]LearnerRow, error)
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

// every query takes the zip set as $1 so the region predicate stays copy
// identical across them
const inRegion = `($1::text[] IS NULL OR bi.issuer_id IN (SELECT id FROM issuers WHERE zip_code = ANY($1)))`

func (r *queries) ViewerZip(ctx context.Context, userID string) (string, error) {
	// a viewer without a profile row sees the unfiltered platform
	const sql = `SELECT coalesce(max(zip_code), '') FROM users WHERE id = $1`
	var zip string
	err := r.q.QueryRow(ctx, sql, userID).Scan(&zip)
	return zip, err
}

func (r *queries) AwardCounts(ctx context.Context, f Filter) (WindowCounts, error) {
	const sql = `
	SELECT count(*),
	       count(*) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '60 days'
	                          AND bi.issued_on <  $2::timestamptz - interval '30 days')
	FROM badge_instances bi
	WHERE NOT bi.revoked AND ` + inRegion

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, f.Zips, f.Now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) IssuerCounts(ctx context.Context, f Filter) (WindowCounts, error) {
	const sql = `
	SELECT count(DISTINCT bi.issuer_id),
	       count(DISTINCT bi.issuer_id) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '30 days'),
	       count(DISTINCT bi.issuer_id) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '60 days'
	                                              AND bi.issued_on <  $2::timestamptz - interval '30 days')
	FROM badge_instances bi
	WHERE NOT bi.revoked AND ` + inRegion

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, f.Zips, f.Now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) AwardedClassCount(ctx context.Context, f Filter) (int64, error) {
	const sql = `
	SELECT count(DISTINCT bi.badge_class_id)
	FROM badge_instances bi
	WHERE NOT bi.revoked AND ` + inRegion

	var n int64
	err := r.q.QueryRow(ctx, sql, f.Zips).Scan(&n)
	return n, err
}

func (r *queries) EarnerCount(ctx context.Context, f Filter) (int64, error) {
	const sql = `
	SELECT count(DISTINCT bi.user_id)
	FROM badge_instances bi
	WHERE NOT bi.revoked AND bi.user_id IS NOT NULL AND ` + inRegion

	var n int64
	err := r.q.QueryRow(ctx, sql, f.Zips).Scan(&n)
	return n, err
}

func (r *queries) RecentAwards(ctx context.Context, f Filter, limit int) ([]RecentAwardRow, error) {
	const sql = `
	SELECT b.name, i.name, bi.issued_on
	FROM badge_instances bi
	JOIN badge_classes b ON b.id = bi.badge_class_id
	JOIN issuers i ON i.id = bi.issuer_id
	WHERE NOT bi.revoked AND ` + inRegion + `
	ORDER BY bi.issued_on DESC
	LIMIT $2`

	rows, err := r.q.Query(ctx, sql, f.Zips, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecentAwardRow
	for rows.Next() {
		var row RecentAwardRow
		if err := rows.Scan(&row.BadgeName, &row.IssuerName, &row.IssuedOn); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) CompetencyClasses(ctx context.Context, f Filter) ([]ClassAwardRow, error) {
	// zero award classes stay in the result so "offered" counts include them
	const sql = `
	SELECT b.id, b.slug, b.name, i.id, i.slug, i.name, e.payload,
	       count(bi.id),
	       count(bi.id) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '30 days'),
	       count(bi.id) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '60 days'
	                              AND bi.issued_on <  $2::timestamptz - interval '30 days'),
	       count(bi.id) FILTER (WHERE bi.user_id IS NOT NULL),
	       count(bi.id) FILTER (WHERE bi.user_id IS NOT NULL
	                              AND bi.issued_on >= $2::timestamptz - interval '30 days'),
	       count(bi.id) FILTER (WHERE bi.user_id IS NOT NULL
	                              AND bi.issued_on >= $2::timestamptz - interval '60 days'
	                              AND bi.issued_on <  $2::timestamptz - interval '30 days'),
	       coalesce(array_agg(DISTINCT bi.user_id::text) FILTER (WHERE bi.user_id IS NOT NULL), '{}')
	FROM badge_classes b
	JOIN issuers i ON i.id = b.issuer_id
	JOIN badge_class_extensions e ON e.badge_class_id = b.id AND e.name = 'extensions:CompetencyExtension'
	LEFT JOIN badge_instances bi ON bi.badge_class_id = b.id AND NOT bi.revoked
	WHERE ($1::text[] IS NULL OR b.issuer_id IN (SELECT id FROM issuers WHERE zip_code = ANY($1)))
	GROUP BY b.id, b.slug, b.name, i.id, i.slug, i.name, e.payload
	ORDER BY b.slug`

	rows, err := r.q.Query(ctx, sql, f.Zips, f.Now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClassAwardRow
	for rows.Next() {
		var row ClassAwardRow
		if err := rows.Scan(
			&row.ClassID, &row.Slug, &row.Name, &row.IssuerID, &row.IssuerSlug, &row.IssuerName,
			&row.Payload, &row.Awards, &row.Recent, &row.Previous,
			&row.UserAwards, &row.UserRecent, &row.UserPrev, &row.Earners,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) AwardCountSince(ctx context.Context, f Filter, since *time.Time) (int64, error) {
	const sql = `
	SELECT count(*)
	FROM badge_instances bi
	WHERE NOT bi.revoked
	  AND ($2::timestamptz IS NULL OR bi.issued_on >= $2)
	  AND ` + inRegion

	var n int64
	err := r.q.QueryRow(ctx, sql, f.Zips, since).Scan(&n)
	return n, err
}

func (r *queries) TopClasses(ctx context.Context, f Filter, since *time.Time, limit int) ([]TopClassRow, error) {
	const sql = `
	SELECT b.slug, b.name, b.description, i.slug, i.name, count(*) AS awards
	FROM badge_instances bi
	JOIN badge_classes b ON b.id = bi.badge_class_id
	JOIN issuers i ON i.id = bi.issuer_id
	WHERE NOT bi.revoked
	  AND ($2::timestamptz IS NULL OR bi.issued_on >= $2)
	  AND ` + inRegion + `
	GROUP BY b.slug, b.name, b.description, i.slug, i.name
	ORDER BY awards DESC, b.slug
	LIMIT $3`

	rows, err := r.q.Query(ctx, sql, f.Zips, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopClassRow
	for rows.Next() {
		var row TopClassRow
		if err := rows.Scan(&row.Slug, &row.Name, &row.Description, &row.IssuerSlug, &row.IssuerName, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) Learners(ctx context.Context, f Filter) ([]LearnerRow, error) {
	const sql = `
	SELECT u.id, coalesce(u.gender, ''), u.zip_code,
	       count(*) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE bi.issued_on >= $2::timestamptz - interval '60 days'
	                          AND bi.issued_on <  $2::timestamptz - interval '30 days')
	FROM badge_instances bi
	JOIN users u ON u.id = bi.user_id
	WHERE NOT bi.revoked AND ` + inRegion + `
	GROUP BY u.id, u.gender, u.zip_code
	ORDER BY u.id`

	rows, err := r.q.Query(ctx, sql, f.Zips, f.Now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LearnerRow
	for rows.Next() {
		var row LearnerRow
		if err := rows.Scan(&row.UserID, &row.Gender, &row.ZipCode, &row.Current, &row.Previous); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
