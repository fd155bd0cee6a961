// Package service contains account workflows
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/services/api/users/domain"
	"badgehub/internal/services/api/users/repo"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// Service defines the users service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the users service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	notify notify.Port
	events events.Port
}

// New constructs a users service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], n notify.Port, rec events.Port) *Svc {
	if db == nil {
		panic("users.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("users.Service requires a non nil Repo binder")
	}
	if n == nil {
		panic("users.Service requires a notify port")
	}
	if rec == nil {
		panic("users.Service requires an events recorder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db, notify: n, events: rec}
}

// Register creates an account with its primary email and sends the welcome mail
// The signup address is trusted as verified, added addresses are not
func (s *Svc) Register(ctx context.Context, in domain.RegisterInput) (domain.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Profile{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "hash password")
	}

	u := repo.UserRow{
		ID:             uuid.NewString(),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Gender:         in.Gender,
		ZipCode:        strings.TrimSpace(in.ZipCode),
		MarketingOptIn: in.MarketingOptIn,
		TermsVersion:   in.TermsVersion,
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rq := s.binder.Bind(q)
		if err := rq.CreateUser(ctx, u, string(hash)); err != nil {
			return err
		}
		return rq.CreateEmail(ctx, repo.EmailRow{
			ID:       uuid.NewString(),
			UserID:   u.ID,
			Email:    email,
			Verified: true,
			Primary:  true,
		})
	})
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return domain.Profile{}, perr.DuplicateKeyf("an account with %s already exists", email)
		}
		return domain.Profile{}, err
	}

	s.notify.Notify(ctx, notify.KindWelcome, email, map[string]string{"first_name": u.FirstName})
	s.events.Record(ctx, events.Event{Kind: events.KindUserRegistered, UserID: u.ID})

	return s.Profile(ctx, u.ID)
}

// Profile returns the caller facing account view
func (s *Svc) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	u, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	emails, err := s.Repo.EmailsByUser(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return toProfile(u, emails), nil
}

// UpdateProfile applies the non nil fields and returns the fresh view
func (s *Svc) UpdateProfile(ctx context.Context, userID string, in domain.UpdateProfileInput) (domain.Profile, error) {
	u, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Gender != nil {
		u.Gender = *in.Gender
	}
	if in.ZipCode != nil {
		u.ZipCode = strings.TrimSpace(*in.ZipCode)
	}
	if in.MarketingOptIn != nil {
		u.MarketingOptIn = *in.MarketingOptIn
	}
	if in.TermsVersion != nil {
		u.TermsVersion = *in.TermsVersion
	}

	if err := s.Repo.UpdateUser(ctx, u); err != nil {
		return domain.Profile{}, err
	}
	return s.Profile(ctx, userID)
}

// AddEmail attaches an unverified secondary address
func (s *Svc) AddEmail(ctx context.Context, userID string, in domain.AddEmailInput) (domain.Email, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	e := repo.EmailRow{
		ID:     uuid.NewString(),
		UserID: userID,
		Email:  email,
	}
	if err := s.Repo.CreateEmail(ctx, e); err != nil {
		if perr.IsDuplicateKey(err) {
			return domain.Email{}, perr.DuplicateKeyf("%s is already registered", email)
		}
		return domain.Email{}, err
	}
	return toEmail(e), nil
}

// VerifyEmail marks one of the caller's addresses as verified
func (s *Svc) VerifyEmail(ctx context.Context, userID, emailID string) (domain.Email, error) {
	e, err := s.ownedEmail(ctx, userID, emailID)
	if err != nil {
		return domain.Email{}, err
	}
	if !e.Verified {
		if err := s.Repo.SetVerified(ctx, emailID); err != nil {
			return domain.Email{}, err
		}
		e.Verified = true
	}
	return toEmail(e), nil
}

// MakePrimary swaps the primary flag to a verified address
func (s *Svc) MakePrimary(ctx context.Context, userID, emailID string) (domain.Email, error) {
	e, err := s.ownedEmail(ctx, userID, emailID)
	if err != nil {
		return domain.Email{}, err
	}
	if !e.Verified {
		return domain.Email{}, perr.InvalidArgf("unverified email cannot become primary")
	}
	if e.Primary {
		return toEmail(e), nil
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rq := s.binder.Bind(q)
		if err := rq.ClearPrimary(ctx, userID); err != nil {
			return err
		}
		return rq.SetPrimary(ctx, emailID)
	})
	if err != nil {
		return domain.Email{}, err
	}
	e.Primary = true
	return toEmail(e), nil
}

// DeleteEmail removes a secondary address
func (s *Svc) DeleteEmail(ctx context.Context, userID, emailID string) error {
	e, err := s.ownedEmail(ctx, userID, emailID)
	if err != nil {
		return err
	}
	if e.Primary {
		return perr.InvalidArgf("primary email cannot be deleted")
	}
	return s.Repo.DeleteEmail(ctx, emailID)
}

// VerifiedIdentities lists verified emails plus their mailto variants
func (s *Svc) VerifiedIdentities(ctx context.Context, userID string) ([]string, error) {
	emails, err := s.Repo.VerifiedEmails(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(emails)*2)
	for _, e := range emails {
		out = append(out, e, "mailto:"+e)
	}
	return out, nil
}

// ownedEmail loads an address and hides other users' ids behind not found
func (s *Svc) ownedEmail(ctx context.Context, userID, emailID string) (repo.EmailRow, error) {
	e, err := s.Repo.EmailByID(ctx, emailID)
	if err != nil {
		return repo.EmailRow{}, err
	}
	if e.UserID != userID {
		return repo.EmailRow{}, perr.NotFoundf("no email %s", emailID)
	}
	return e, nil
}

func toEmail(e repo.EmailRow) domain.Email {
	return domain.Email{ID: e.ID, Email: e.Email, Verified: e.Verified, Primary: e.Primary}
}

func toProfile(u repo.UserRow, emails []repo.EmailRow) domain.Profile {
	p := domain.Profile{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Gender:         u.Gender,
		ZipCode:        u.ZipCode,
		MarketingOptIn: u.MarketingOptIn,
		TermsVersion:   u.TermsVersion,
		Admin:          u.Admin,
		CreatedAt:      u.CreatedAt,
	}
	p.Emails = make([]domain.Email, 0, len(emails))
	for _, e := range emails {
		p.Emails = append(p.Emails, toEmail(e))
	}
	return p
}
