// Package repo provides postgres access for user accounts
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

// UserRow is one account
type UserRow struct {
	ID             string
	FirstName      string
	LastName       string
	Gender         string
	ZipCode        string
	Admin          bool
	MarketingOptIn bool
	TermsVersion   int
	CreatedAt      time.Time
}

// EmailRow is one address bound to an account
type EmailRow struct {
	ID       string
	UserID   string
	Email    string
	Verified bool
	Primary  bool
}

// Repo is the minimal persistence surface for users
type Repo interface {
	CreateUser(ctx context.Context, u UserRow, passwordHash string) error
	UserByID(ctx context.Context, id string) (UserRow, error)
	UpdateUser(ctx context.Context, u UserRow) error

	CreateEmail(ctx context.Context, e EmailRow) error
	EmailByID(ctx context.Context, id string) (EmailRow, error)
	EmailsByUser(ctx context.Context, userID string) ([]EmailRow, error)
	SetVerified(ctx context.Context, id string) error
	ClearPrimary(ctx context.Context, userID string) error
	SetPrimary(ctx context.Context, id string) error
	DeleteEmail(ctx context.Context, id string) error
	VerifiedEmails(ctx context.Context, userID string) ([]string, error)
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

func (r *queries) CreateUser(ctx context.Context, u UserRow, passwordHash string) error {
	const sql = `INSERT INTO users
	               (id, first_name, last_name, gender, zip_code, password_hash,
	                marketing_optin, terms_version)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, sql,
		u.ID, u.FirstName, u.LastName, str.SQLNull(u.Gender), u.ZipCode,
		passwordHash, u.MarketingOptIn, u.TermsVersion)
	return err
}

func (r *queries) UserByID(ctx context.Context, id string) (UserRow, error) {
	const sql = `SELECT id::text, first_name, last_name, COALESCE(gender, ''), zip_code,
	                is_admin, marketing_optin, terms_version, created_at
	             FROM users WHERE id = $1`
	var u UserRow

	row := r.q.QueryRow(ctx, sql, id)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Gender, &u.ZipCode,
		&u.Admin, &u.MarketingOptIn, &u.TermsVersion, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return UserRow{}, perr.NotFoundf("no account %s", id)
		}
		return UserRow{}, err
	}
	return u, nil
}

func (r *queries) UpdateUser(ctx context.Context, u UserRow) error {
	const sql = `UPDATE users
	             SET first_name = $2, last_name = $3, gender = $4, zip_code = $5,
	                marketing_optin = $6, terms_version = $7, updated_at = now()
	             WHERE id = $1`
	_, err := r.q.Exec(ctx, sql,
		u.ID, u.FirstName, u.LastName, str.SQLNull(u.Gender), u.ZipCode,
		u.MarketingOptIn, u.TermsVersion)
	return err
}

func (r *queries) CreateEmail(ctx context.Context, e EmailRow) error {
	const sql = `INSERT INTO user_emails (id, user_id, email, verified, is_primary)
	             VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, sql, e.ID, e.UserID, e.Email, e.Verified, e.Primary)
	return err
}

func (r *queries) EmailByID(ctx context.Context, id string) (EmailRow, error) {
	const sql = `SELECT id::text, user_id::text, email, verified, is_primary
	             FROM user_emails WHERE id = $1`
	var e EmailRow

	row := r.q.QueryRow(ctx, sql, id)
	if err := row.Scan(&e.ID, &e.UserID, &e.Email, &e.Verified, &e.Primary); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return EmailRow{}, perr.NotFoundf("no email %s", id)
		}
		return EmailRow{}, err
	}
	return e, nil
}

func (r *queries) EmailsByUser(ctx context.Context, userID string) ([]EmailRow, error) {
	const sql = `SELECT id::text, user_id::text, email, verified, is_primary
	             FROM user_emails
	             WHERE user_id = $1
	             ORDER BY is_primary DESC, created_at ASC`
	rows, err := r.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmailRow
	for rows.Next() {
		var e EmailRow
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &e.Verified, &e.Primary); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) SetVerified(ctx context.Context, id string) error {
	const sql = `UPDATE user_emails SET verified = true WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) ClearPrimary(ctx context.Context, userID string) error {
	const sql = `UPDATE user_emails SET is_primary = false WHERE user_id = $1 AND is_primary`
	_, err := r.q.Exec(ctx, sql, userID)
	return err
}

func (r *queries) SetPrimary(ctx context.Context, id string) error {
	const sql = `UPDATE user_emails SET is_primary = true WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) DeleteEmail(ctx context.Context, id string) error {
	const sql = `DELETE FROM user_emails WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) VerifiedEmails(ctx context.Context, userID string) ([]string, error) {
	const sql = `SELECT email FROM user_emails
	             WHERE user_id = $1 AND verified
	             ORDER BY is_primary DESC, created_at ASC`
	rows, err := r.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
