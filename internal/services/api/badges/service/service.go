// Package service contains badge class workflows: authoring, archiving, and
// the changed feed sync clients poll
package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/core/competency"
	"badgehub/internal/core/markdown"
	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
	str "badgehub/internal/platform/strings"
	"badgehub/internal/services/api/badges/domain"
	"badgehub/internal/services/api/badges/repo"
	idomain "badgehub/internal/services/api/issuers/domain"
)

// Service defines the badge class service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the badge class service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	access idomain.AccessPort
	log    logger.Logger
	now    func() time.Time
}

// New constructs a badge class service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], access idomain.AccessPort) *Svc {
	if db == nil {
		panic("badges.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("badges.Service requires a non nil Repo binder")
	}
	if access == nil {
		panic("badges.Service requires the issuers access port")
	}
	return &Svc{
		Repo:   binder.Bind(db),
		binder: binder,
		db:     db,
		access: access,
		log:    *logger.Named("badges"),
		now:    time.Now,
	}
}

// changed feeds only reach back this far, older cutoffs force a full resync
const changedRetention = 90 * 24 * time.Hour

const createAttempts = 3

// Create defines a badge class under an issuer, editor gated
func (s *Svc) Create(ctx context.Context, callerID, issuerSlug string, in domain.CreateBadgeInput) (domain.Badge, error) {
	iss, err := s.access.RequireRole(ctx, callerID, issuerSlug, idomain.RoleEditor)
	if err != nil {
		return domain.Badge{}, err
	}
	if err := validateExtensions(in.Extensions); err != nil {
		return domain.Badge{}, err
	}

	base := str.Slugify(in.Name)
	if base == "" {
		return domain.Badge{}, perr.InvalidArgf("name %q does not yield a usable slug", in.Name)
	}

	html, err := markdown.Render(in.Criteria)
	if err != nil {
		return domain.Badge{}, perr.InvalidArgf("criteria markdown: %v", err)
	}

	row := repo.BadgeRow{
		ID:           uuid.NewString(),
		IssuerID:     iss.ID,
		IssuerSlug:   iss.Slug,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		CriteriaText: in.Criteria,
		CriteriaHTML: html,
		Tags:         in.Tags,
		ExpiresDays:  in.ExpiresDays,
	}
	exts := extensionRows(in.Extensions)

	for attempt := 0; attempt < createAttempts; attempt++ {
		row.Slug = base
		if attempt > 0 {
			row.Slug = base + "-" + uuid.NewString()[:4]
		}
		err = s.db.Tx(ctx, func(q repokit.Queryer) error {
			rq := s.binder.Bind(q)
			if err := rq.Create(ctx, row); err != nil {
				return err
			}
			return rq.ReplaceExtensions(ctx, row.ID, exts)
		})
		if err == nil {
			return view(row, exts), nil
		}
		if !perr.IsDuplicateKey(err) {
			return domain.Badge{}, err
		}
	}
	return domain.Badge{}, perr.Wrapf(err, perr.ErrorCodeConflict, "allocate slug for %q", in.Name)
}

// BySlug returns the badge class detail with parsed competencies. Archived
// classes still resolve so issued badges keep their context
func (s *Svc) BySlug(ctx context.Context, slug string) (domain.Badge, error) {
	row, err := s.Repo.BySlug(ctx, slug)
	if err != nil {
		return domain.Badge{}, err
	}
	exts, err := s.Repo.ExtensionsOf(ctx, row.ID)
	if err != nil {
		return domain.Badge{}, err
	}
	return view(row, exts), nil
}

// Update applies the non nil fields, editor gated on the owning issuer
func (s *Svc) Update(ctx context.Context, callerID, slug string, in domain.UpdateBadgeInput) (domain.Badge, error) {
	cur, err := s.Repo.BySlug(ctx, slug)
	if err != nil {
		return domain.Badge{}, err
	}
	if _, err := s.access.RequireRole(ctx, callerID, cur.IssuerSlug, idomain.RoleEditor); err != nil {
		return domain.Badge{}, err
	}
	if err := validateExtensions(in.Extensions); err != nil {
		return domain.Badge{}, err
	}

	if in.Name != nil {
		cur.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		cur.Description = *in.Description
	}
	if in.ImageURL != nil {
		cur.ImageURL = *in.ImageURL
	}
	if in.Criteria != nil {
		html, err := markdown.Render(*in.Criteria)
		if err != nil {
			return domain.Badge{}, perr.InvalidArgf("criteria markdown: %v", err)
		}
		cur.CriteriaText = *in.Criteria
		cur.CriteriaHTML = html
	}
	if in.Tags != nil {
		cur.Tags = *in.Tags
	}
	if in.ExpiresDays != nil {
		if *in.ExpiresDays == 0 {
			cur.ExpiresDays = nil
		} else {
			cur.ExpiresDays = in.ExpiresDays
		}
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rq := s.binder.Bind(q)
		if err := rq.Update(ctx, cur); err != nil {
			return err
		}
		if in.Extensions != nil {
			return rq.ReplaceExtensions(ctx, cur.ID, extensionRows(in.Extensions))
		}
		return nil
	})
	if err != nil {
		return domain.Badge{}, err
	}
	return s.BySlug(ctx, slug)
}

// Delete removes a badge class, editor gated. Classes with issued instances
// are archived instead so the hosted JSON stays resolvable
func (s *Svc) Delete(ctx context.Context, callerID, slug string) error {
	cur, err := s.Repo.BySlug(ctx, slug)
	if err != nil {
		return err
	}
	if _, err := s.access.RequireRole(ctx, callerID, cur.IssuerSlug, idomain.RoleEditor); err != nil {
		return err
	}

	n, err := s.Repo.AssertionCount(ctx, cur.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info().Str("slug", slug).Int("instances", n).Msg("badge class has instances, archiving instead of deleting")
		return s.Repo.Archive(ctx, cur.ID)
	}
	return s.Repo.Delete(ctx, cur.ID)
}

// ListByIssuer pages the issuer's live badge classes
func (s *Svc) ListByIssuer(ctx context.Context, issuerSlug string, q domain.ListQuery) ([]domain.Badge, int, error) {
	iss, err := s.access.BySlug(ctx, issuerSlug)
	if err != nil {
		return nil, 0, err
	}
	q = q.Clamped()

	rows, total, err := s.Repo.ListByIssuer(ctx, iss.ID, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return nil, 0, err
	}
	return s.views(ctx, rows, total)
}

// Changed lists badge classes touched after since, staff gated. A zero since
// returns everything (the full resync), cutoffs past the retention window are
// refused so clients resync instead of trusting a gap
func (s *Svc) Changed(ctx context.Context, callerID, issuerSlug string, since time.Time) (domain.ChangedFeed, error) {
	iss, err := s.access.RequireRole(ctx, callerID, issuerSlug, idomain.RoleStaff)
	if err != nil {
		return domain.ChangedFeed{}, err
	}

	now := s.now()
	if !since.IsZero() && since.Before(now.Add(-changedRetention)) {
		return domain.ChangedFeed{}, perr.InvalidArgf(
			"since is older than the %d day retention window, run a full resync",
			int(changedRetention.Hours()/24))
	}

	rows, err := s.Repo.ChangedSince(ctx, iss.ID, since)
	if err != nil {
		return domain.ChangedFeed{}, err
	}
	items, _, err := s.views(ctx, rows, len(rows))
	if err != nil {
		return domain.ChangedFeed{}, err
	}
	return domain.ChangedFeed{Items: items, Timestamp: now}, nil
}

// views builds API views for a page of rows, extensions loaded in one query
func (s *Svc) views(ctx context.Context, rows []repo.BadgeRow, total int) ([]domain.Badge, int, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	extsByID, err := s.Repo.ExtensionsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Badge, 0, len(rows))
	for _, r := range rows {
		out = append(out, view(r, extsByID[r.ID]))
	}
	return out, total, nil
}

// validateExtensions checks names and the payloads we understand
func validateExtensions(exts map[string]json.RawMessage) error {
	for name, payload := range exts {
		if !strings.HasPrefix(name, "extensions:") {
			return perr.InvalidArgf("extension %q must use the extensions: prefix", name)
		}
		if !json.Valid(payload) {
			return perr.InvalidArgf("extension %q carries invalid JSON", name)
		}
		if name == competency.ExtensionName {
			comps, err := competency.ParseExtension(payload)
			if err != nil {
				return perr.InvalidArgf("competency extension: %v", err)
			}
			for _, c := range comps {
				if strings.TrimSpace(c.Name) == "" {
					return perr.InvalidArgf("competency entries need a name")
				}
				if c.StudyLoad < 0 {
					return perr.InvalidArgf("competency %q has a negative study load", c.Name)
				}
			}
		}
	}
	return nil
}

func extensionRows(exts map[string]json.RawMessage) []repo.ExtensionRow {
	if len(exts) == 0 {
		return nil
	}
	out := make([]repo.ExtensionRow, 0, len(exts))
	for name, payload := range exts {
		out = append(out, repo.ExtensionRow{Name: name, Payload: payload})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func view(row repo.BadgeRow, exts []repo.ExtensionRow) domain.Badge {
	b := domain.Badge{
		ID:           row.ID,
		Slug:         row.Slug,
		IssuerSlug:   row.IssuerSlug,
		Name:         row.Name,
		Description:  row.Description,
		ImageURL:     row.ImageURL,
		Criteria:     row.CriteriaText,
		CriteriaHTML: row.CriteriaHTML,
		Tags:         row.Tags,
		ExpiresDays:  row.ExpiresDays,
		Archived:     row.Archived,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(exts) == 0 {
		return b
	}
	b.Extensions = make(map[string]json.RawMessage, len(exts))
	for _, e := range exts {
		b.Extensions[e.Name] = json.RawMessage(e.Payload)
		if e.Name != competency.ExtensionName {
			continue
		}
		comps, err := competency.ParseExtension(e.Payload)
		if err != nil {
			continue
		}
		b.Competencies = comps
		for _, c := range comps {
			b.StudyLoadMinutes += c.StudyLoad
		}
	}
	return b
}
