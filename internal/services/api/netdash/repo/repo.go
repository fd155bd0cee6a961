// Package repo provides postgres aggregates for network dashboards and the
// social space views
package repo

import (
	"context"
	"time"

	"badgehub/internal/modkit/repokit"
)

// Filter scopes instance queries. NetworkID restricts to accepted members of
// the network, Zips to issuers in the zip set, Online to the delivery method;
// each is skipped when empty. Now anchors the trend windows
type Filter struct {
	NetworkID string
	Zips      []string
	Online    *bool
	Now       time.Time
}

// network turns the empty id into a SQL NULL so the predicate collapses
func (f Filter) network() any {
	if f.NetworkID == "" {
		return nil
	}
	return f.NetworkID
}

// WindowCounts buckets a count by trend window: all time, the last 30 days,
// and the 30 days before that
type WindowCounts struct {
	Total    int64
	Current  int64
	Previous int64
}

// CategoryCounts splits badge classes by their category extension
type CategoryCounts struct {
	Participation WindowCounts
	Competency    WindowCounts
}

// ClassAwardRow carries one badge class with its competency payload and award
// aggregates, mirroring the platform dashboard row
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

// ActivityRow is one day of awards for a badge by one awarding institution
type ActivityRow struct {
	Day        time.Time
	Slug       string
	Name       string
	Image      string
	IssuerSlug string
	IssuerName string
	Recipients int64
}

// TopClassRow is one badge class ranked by awards
type TopClassRow struct {
	Slug  string
	Name  string
	Image string
	Count int64
}

// LearnerRow is one badge holding user with their award windows
type LearnerRow struct {
	UserID   string
	Gender   string
	ZipCode  string
	Current  int64
	Previous int64
}

// IssuerStatRow is one awarding institution with its badge volume
type IssuerStatRow struct {
	Slug  string
	Name  string
	Zip   string
	Count int64
	Users int64
}

// Repo is the read surface for network and social space aggregates
type Repo interface {
	MemberCounts(ctx context.Context, networkID string, now time.Time) (WindowCounts, error)
	ClassCounts(ctx context.Context, networkID string, now time.Time) (WindowCounts, error)
	CategoryCounts(ctx context.Context, networkID string, now time.Time) (CategoryCounts, error)
	AwardCounts(ctx context.Context, f Filter) (WindowCounts, error)
	LearnerCounts(ctx context.Context, f Filter) (WindowCounts, error)
	PathLearnerCounts(ctx context.Context, f Filter) (WindowCounts, error)
	FirstAwardAt(ctx context.Context, f Filter) (*time.Time, error)
	CompetencyClasses(ctx context.Context, f Filter) ([]ClassAwardRow, error)
	RecentActivity(ctx context.Context, networkID string, limit int) ([]ActivityRow, error)
	ActivityCount(ctx context.Context, networkID string) (int64, error)
	TopClasses(ctx context.Context, f Filter, limit int) ([]TopClassRow, error)
	Learners(ctx context.Context, f Filter) ([]LearnerRow, error)
	IssuerStats(ctx context.Context) ([]IssuerStatRow, error)
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

// member resolves the accepted members of a network, NULL meaning no
// network scope
const members = `SELECT member_id FROM network_memberships WHERE network_id = $1 AND status = 'accepted'`

// scoped is the shared instance predicate; every filtered query passes
// network, zips, online, and the window anchor as $1..$4
const scoped = `($1::uuid IS NULL OR bi.issuer_id IN (` + members + `))
	  AND ($2::text[] IS NULL OR bi.issuer_id IN (SELECT id FROM issuers WHERE zip_code = ANY($2)))
	  AND ($3::boolean IS NULL OR bi.activity_online = $3)`

func (r *queries) MemberCounts(ctx context.Context, networkID string, now time.Time) (WindowCounts, error) {
	const sql = `
	SELECT count(*),
	       count(*) FILTER (WHERE coalesce(m.decided_at, m.created_at) >= $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE coalesce(m.decided_at, m.created_at) >= $2::timestamptz - interval '60 days'
	                          AND coalesce(m.decided_at, m.created_at) <  $2::timestamptz - interval '30 days')
	FROM network_memberships m
	WHERE m.network_id = $1 AND m.status = 'accepted'`

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, networkID, now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) ClassCounts(ctx context.Context, networkID string, now time.Time) (WindowCounts, error) {
	const sql = `
	SELECT count(*),
	       count(*) FILTER (WHERE b.created_at >= $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE b.created_at >= $2::timestamptz - interval '60 days'
	                          AND b.created_at <  $2::timestamptz - interval '30 days')
	FROM badge_classes b
	WHERE b.issuer_id IN (` + members + `)`

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, networkID, now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) CategoryCounts(ctx context.Context, networkID string, now time.Time) (CategoryCounts, error) {
	// the category rides in a CategoryExtension payload, not a column
	const sql = `
	SELECT count(*) FILTER (WHERE e.payload->>'Category' = 'participation'),
	       count(*) FILTER (WHERE e.payload->>'Category' = 'participation'
	                          AND b.created_at >= $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE e.payload->>'Category' = 'participation'
	                          AND b.created_at >= $2::timestamptz - interval '60 days'
	                          AND b.created_at <  $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE e.payload->>'Category' = 'competency'),
	       count(*) FILTER (WHERE e.payload->>'Category' = 'competency'
	                          AND b.created_at >= $2::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE e.payload->>'Category' = 'competency'
	                          AND b.created_at >= $2::timestamptz - interval '60 days'
	                          AND b.created_at <  $2::timestamptz - interval '30 days')
	FROM badge_classes b
	JOIN badge_class_extensions e ON e.badge_class_id = b.id AND e.name = 'extensions:CategoryExtension'
	WHERE b.issuer_id IN (` + members + `)`

	var c CategoryCounts
	err := r.q.QueryRow(ctx, sql, networkID, now).Scan(
		&c.Participation.Total, &c.Participation.Current, &c.Participation.Previous,
		&c.Competency.Total, &c.Competency.Current, &c.Competency.Previous,
	)
	return c, err
}

func (r *queries) AwardCounts(ctx context.Context, f Filter) (WindowCounts, error) {
	const sql = `
	SELECT count(*),
	       count(*) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '60 days'
	                          AND bi.issued_on <  $4::timestamptz - interval '30 days')
	FROM badge_instances bi
	WHERE NOT bi.revoked AND ` + scoped

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, f.network(), f.Zips, f.Online, f.Now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) LearnerCounts(ctx context.Context, f Filter) (WindowCounts, error) {
	const sql = `
	SELECT count(DISTINCT bi.user_id),
	       count(DISTINCT bi.user_id) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '30 days'),
	       count(DISTINCT bi.user_id) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '60 days'
	                                            AND bi.issued_on <  $4::timestamptz - interval '30 days')
	FROM badge_instances bi
	WHERE NOT bi.revoked AND bi.user_id IS NOT NULL AND ` + scoped

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, f.network(), f.Zips, f.Online, f.Now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) PathLearnerCounts(ctx context.Context, f Filter) (WindowCounts, error) {
	// only badges that sit in a learning path of a member issuer count
	const sql = `
	SELECT count(DISTINCT bi.user_id),
	       count(DISTINCT bi.user_id) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '30 days'),
	       count(DISTINCT bi.user_id) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '60 days'
	                                            AND bi.issued_on <  $4::timestamptz - interval '30 days')
	FROM badge_instances bi
	WHERE NOT bi.revoked AND bi.user_id IS NOT NULL
	  AND bi.badge_class_id IN (
	      SELECT lpb.badge_class_id
	      FROM learning_path_badges lpb
	      JOIN learning_paths lp ON lp.id = lpb.path_id
	      WHERE ($1::uuid IS NULL OR lp.issuer_id IN (` + members + `)))
	  AND ` + scoped

	var w WindowCounts
	err := r.q.QueryRow(ctx, sql, f.network(), f.Zips, f.Online, f.Now).Scan(&w.Total, &w.Current, &w.Previous)
	return w, err
}

func (r *queries) FirstAwardAt(ctx context.Context, f Filter) (*time.Time, error) {
	const sql = `
	SELECT min(bi.issued_on)
	FROM badge_instances bi
	WHERE NOT bi.revoked AND ` + scoped

	var t *time.Time
	err := r.q.QueryRow(ctx, sql, f.network(), f.Zips, f.Online, f.Now).Scan(&t)
	return t, err
}

func (r *queries) CompetencyClasses(ctx context.Context, f Filter) ([]ClassAwardRow, error) {
	// zero award classes stay in the result; the delivery filter applies to
	// the awards, never to the class itself
	const sql = `
	SELECT b.id, b.slug, b.name, i.id, i.slug, i.name, e.payload,
	       count(bi.id),
	       count(bi.id) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '30 days'),
	       count(bi.id) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '60 days'
	                              AND bi.issued_on <  $4::timestamptz - interval '30 days'),
	       count(bi.id) FILTER (WHERE bi.user_id IS NOT NULL),
	       count(bi.id) FILTER (WHERE bi.user_id IS NOT NULL
	                              AND bi.issued_on >= $4::timestamptz - interval '30 days'),
	       count(bi.id) FILTER (WHERE bi.user_id IS NOT NULL
	                              AND bi.issued_on >= $4::timestamptz - interval '60 days'
	                              AND bi.issued_on <  $4::timestamptz - interval '30 days'),
	       coalesce(array_agg(DISTINCT bi.user_id::text) FILTER (WHERE bi.user_id IS NOT NULL), '{}')
	FROM badge_classes b
	JOIN issuers i ON i.id = b.issuer_id
	JOIN badge_class_extensions e ON e.badge_class_id = b.id AND e.name = 'extensions:CompetencyExtension'
	LEFT JOIN badge_instances bi ON bi.badge_class_id = b.id AND NOT bi.revoked
	     AND ($3::boolean IS NULL OR bi.activity_online = $3)
	WHERE ($1::uuid IS NULL OR b.issuer_id IN (` + members + `))
	  AND ($2::text[] IS NULL OR b.issuer_id IN (SELECT id FROM issuers WHERE zip_code = ANY($2)))
	GROUP BY b.id, b.slug, b.name, i.id, i.slug, i.name, e.payload
	ORDER BY b.slug`

	rows, err := r.q.Query(ctx, sql, f.network(), f.Zips, f.Online, f.Now)
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

func (r *queries) RecentActivity(ctx context.Context, networkID string, limit int) ([]ActivityRow, error) {
	// grouped per day, badge, and awarding institution; bi.issuer_id is the
	// awarding issuer, which can differ from the badge owner
	const sql = `
	SELECT date_trunc('day', bi.issued_on) AS day,
	       b.slug, b.name, b.image_url, i.slug, i.name, count(*)
	FROM badge_instances bi
	JOIN badge_classes b ON b.id = bi.badge_class_id
	JOIN issuers i ON i.id = bi.issuer_id
	WHERE NOT bi.revoked AND bi.issuer_id IN (` + members + `)
	GROUP BY day, b.slug, b.name, b.image_url, i.slug, i.name
	ORDER BY day DESC, b.slug
	LIMIT $2`

	rows, err := r.q.Query(ctx, sql, networkID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivityRow
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.Day, &row.Slug, &row.Name, &row.Image, &row.IssuerSlug, &row.IssuerName, &row.Recipients); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) ActivityCount(ctx context.Context, networkID string) (int64, error) {
	const sql = `
	SELECT count(*) FROM (
	    SELECT 1
	    FROM badge_instances bi
	    WHERE NOT bi.revoked AND bi.issuer_id IN (` + members + `)
	    GROUP BY date_trunc('day', bi.issued_on), bi.badge_class_id, bi.issuer_id
	) g`

	var n int64
	err := r.q.QueryRow(ctx, sql, networkID).Scan(&n)
	return n, err
}

func (r *queries) TopClasses(ctx context.Context, f Filter, limit int) ([]TopClassRow, error) {
	const sql = `
	SELECT b.slug, b.name, b.image_url, count(*) AS awards
	FROM badge_instances bi
	JOIN badge_classes b ON b.id = bi.badge_class_id
	WHERE NOT bi.revoked AND ` + scoped + `
	GROUP BY b.slug, b.name, b.image_url
	ORDER BY awards DESC, b.slug
	LIMIT $5`

	rows, err := r.q.Query(ctx, sql, f.network(), f.Zips, f.Online, f.Now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopClassRow
	for rows.Next() {
		var row TopClassRow
		if err := rows.Scan(&row.Slug, &row.Name, &row.Image, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *queries) Learners(ctx context.Context, f Filter) ([]LearnerRow, error) {
	const sql = `
	SELECT u.id, coalesce(u.gender, ''), u.zip_code,
	       count(*) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '30 days'),
	       count(*) FILTER (WHERE bi.issued_on >= $4::timestamptz - interval '60 days'
	                          AND bi.issued_on <  $4::timestamptz - interval '30 days')
	FROM badge_instances bi
	JOIN users u ON u.id = bi.user_id
	WHERE NOT bi.revoked AND ` + scoped + `
	GROUP BY u.id, u.gender, u.zip_code
	ORDER BY u.id`

	rows, err := r.q.Query(ctx, sql, f.network(), f.Zips, f.Online, f.Now)
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

func (r *queries) IssuerStats(ctx context.Context) ([]IssuerStatRow, error) {
	// networks never award directly, so they stay out of the social space
	const sql = `
	SELECT i.slug, i.name, i.zip_code,
	       count(bi.id),
	       count(DISTINCT bi.user_id) FILTER (WHERE bi.user_id IS NOT NULL)
	FROM issuers i
	LEFT JOIN badge_instances bi ON bi.issuer_id = i.id AND NOT bi.revoked
	WHERE NOT i.is_network
	GROUP BY i.slug, i.name, i.zip_code
	ORDER BY i.slug`

	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IssuerStatRow
	for rows.Next() {
		var row IssuerStatRow
		if err := rows.Scan(&row.Slug, &row.Name, &row.Zip, &row.Count, &row.Users); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
