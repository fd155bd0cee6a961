// Package service builds the hosted Open Badges documents served under
// /public. Documents must verify against the platform's own checker, so
// every IRI they carry points back at this host
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"badgehub/internal/core/obi"
	"badgehub/internal/modkit/repokit"
	"badgehub/internal/services/api/public/domain"
	"badgehub/internal/services/api/public/repo"
)

// Service defines the public document contract
type Service interface {
	domain.ServicePort
}

// Svc implements the public document service
type Svc struct {
	Repo    repo.Repo
	baseURL string
}

// New constructs the public document service. baseURL is the public origin
// the documents use for their ids
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], baseURL string) *Svc {
	if db == nil {
		panic("public.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("public.Service requires a non nil Repo binder")
	}
	return &Svc{
		Repo:    binder.Bind(db),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Issuer returns the OB2 profile document of an issuer
func (s *Svc) Issuer(ctx context.Context, slug string) (domain.IssuerDoc, error) {
	row, err := s.Repo.IssuerBySlug(ctx, slug)
	if err != nil {
		return domain.IssuerDoc{}, err
	}
	return s.issuerDoc(row), nil
}

// Badge returns the OB2 badgeclass document. Archived classes resolve so
// assertions issued before archiving keep verifying
func (s *Svc) Badge(ctx context.Context, slug string) (domain.BadgeDoc, error) {
	row, err := s.Repo.BadgeBySlug(ctx, slug)
	if err != nil {
		return domain.BadgeDoc{}, err
	}
	return s.badgeDoc(ctx, row, false)
}

// Assertion returns the OB2 assertion document, or the revocation stub once
// the assertion is revoked
func (s *Svc) Assertion(ctx context.Context, id string, expand domain.Expand) (domain.AssertionResult, error) {
	row, err := s.Repo.InstanceByID(ctx, id)
	if err != nil {
		return domain.AssertionResult{}, err
	}
	iri := s.assertionIRI(row.ID)

	if row.Revoked {
		return domain.AssertionResult{Gone: &domain.RevocationDoc{
			Context:          obi.ContextV2,
			ID:               iri,
			Revoked:          true,
			RevocationReason: row.RevocationReason,
		}}, nil
	}

	doc := &domain.AssertionDoc{
		Context: obi.ContextV2,
		Type:    "Assertion",
		ID:      iri,
		Recipient: domain.RecipientDoc{
			Type:     "email",
			Identity: obi.HashIdentity("sha256", row.RecipientEmail, row.RecipientSalt),
			Hashed:   true,
			Salt:     row.RecipientSalt,
		},
		Badge:        s.badgeIRI(row.BadgeSlug),
		Verification: domain.VerificationDoc{Type: "hosted"},
		IssuedOn:     row.IssuedOn.UTC().Format(time.RFC3339),
		Narrative:    row.Narrative,
	}
	if row.ExpiresAt != nil {
		doc.Expires = row.ExpiresAt.UTC().Format(time.RFC3339)
	}

	evidence, err := s.Repo.EvidenceOf(ctx, row.ID)
	if err != nil {
		return domain.AssertionResult{}, err
	}
	for _, e := range evidence {
		doc.Evidence = append(doc.Evidence, domain.EvidenceDoc{ID: e.URL, Narrative: e.Narrative})
	}

	if expand.Badge || expand.BadgeIssuer {
		badge, err := s.Repo.BadgeBySlug(ctx, row.BadgeSlug)
		if err != nil {
			return domain.AssertionResult{}, err
		}
		embedded, err := s.badgeDoc(ctx, badge, expand.BadgeIssuer)
		if err != nil {
			return domain.AssertionResult{}, err
		}
		doc.Badge = embedded
	}
	return domain.AssertionResult{Doc: doc}, nil
}

func (s *Svc) issuerDoc(row repo.IssuerRow) domain.IssuerDoc {
	return domain.IssuerDoc{
		Context:     obi.ContextV2,
		Type:        "Issuer",
		ID:          s.issuerIRI(row.Slug),
		Name:        row.Name,
		URL:         row.URL,
		Email:       row.Email,
		Description: row.Description,
		Image:       row.ImageURL,
	}
}

func (s *Svc) badgeDoc(ctx context.Context, row repo.BadgeRow, embedIssuer bool) (domain.BadgeDoc, error) {
	exts, err := s.Repo.ExtensionsOf(ctx, row.ID)
	if err != nil {
		return domain.BadgeDoc{}, err
	}

	doc := domain.BadgeDoc{
		Context:     obi.ContextV2,
		Type:        "BadgeClass",
		ID:          s.badgeIRI(row.Slug),
		Name:        row.Name,
		Description: row.Description,
		Image:       row.ImageURL,
		Criteria:    domain.CriteriaDoc{Narrative: row.CriteriaText},
		Issuer:      s.issuerIRI(row.IssuerSlug),
		Tags:        row.Tags,
	}
	if len(exts) > 0 {
		doc.Extensions = make(map[string]json.RawMessage, len(exts))
		for _, e := range exts {
			doc.Extensions[e.Name] = json.RawMessage(e.Payload)
		}
	}
	if embedIssuer {
		issuer, err := s.Repo.IssuerBySlug(ctx, row.IssuerSlug)
		if err != nil {
			return domain.BadgeDoc{}, err
		}
		doc.Issuer = s.issuerDoc(issuer)
	}
	return doc, nil
}

func (s *Svc) issuerIRI(slug string) string { return s.baseURL + "/public/issuers/" + slug }

func (s *Svc) badgeIRI(slug string) string { return s.baseURL + "/public/badges/" + slug }

func (s *Svc) assertionIRI(id string) string { return s.baseURL + "/public/assertions/" + id }
