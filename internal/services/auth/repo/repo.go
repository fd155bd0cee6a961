// Package repo provides postgres access for auth
package repo

import (
	"context"
	stdsql "database/sql"
	"errors"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
)

// Credential is the stored login identity for a user
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
	Admin        bool
}

// Repo is the minimal persistence surface for auth
type Repo interface {
	CredentialByEmail(ctx context.Context, email string) (Credential, error)
	CredentialByID(ctx context.Context, userID string) (Credential, error)
	HasIssuerRole(ctx context.Context, userID string) (bool, error)
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

func (r *queries) CredentialByEmail(ctx context.Context, email string) (Credential, error) {
	const sql = `SELECT u.id::text, e.email, u.password_hash, u.is_admin
	             FROM user_emails e
	             JOIN users u ON u.id = e.user_id
	             WHERE lower(e.email) = lower($1)`
	var c Credential

	row := r.q.QueryRow(ctx, sql, email)
	if err := row.Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.Admin); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return Credential{}, perr.NotFoundf("no account for %s", email)
		}
		return Credential{}, err
	}
	return c, nil
}

func (r *queries) CredentialByID(ctx context.Context, userID string) (Credential, error) {
	const sql = `SELECT u.id::text,
	                COALESCE((SELECT e.email FROM user_emails e
	                          WHERE e.user_id = u.id AND e.is_primary), ''),
	                u.password_hash, u.is_admin
	             FROM users u
	             WHERE u.id = $1`
	var c Credential

	row := r.q.QueryRow(ctx, sql, userID)
	if err := row.Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.Admin); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return Credential{}, perr.NotFoundf("no account %s", userID)
		}
		return Credential{}, err
	}
	return c, nil
}

func (r *queries) HasIssuerRole(ctx context.Context, userID string) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM issuer_staff WHERE user_id = $1)`
	var staff bool

	row := r.q.QueryRow(ctx, sql, userID)
	if err := row.Scan(&staff); err != nil {
		return false, err
	}
	return staff, nil
}
