// Package service contains the recipient backpack: the merged badge listing,
// acceptance handling, external imports, collections, and social shares
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/core/obi"
	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
	str "badgehub/internal/platform/strings"
	ptime "badgehub/internal/platform/time"
	adomain "badgehub/internal/services/api/assertions/domain"
	"badgehub/internal/services/api/backpack/domain"
	"badgehub/internal/services/api/backpack/repo"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// Identities resolves the verified identifiers the backpack matches against
type Identities interface {
	VerifiedIdentities(ctx context.Context, userID string) ([]string, error)
}

// Verifier checks an imported assertion against its proofs
type Verifier interface {
	Verify(ctx context.Context, in obi.Input, profile obi.RecipientProfile) *obi.VerifyResult
}

// Service defines the backpack service contract
type Service interface {
	domain.ServicePort
	domain.PublicPort
}

// Svc implements the backpack service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	ident   Identities
	verify  Verifier
	notify  notify.Port
	events  events.Port
	baseURL string
	log     logger.Logger
	now     func() time.Time
}

// New constructs a backpack service. baseURL is the public origin used for
// share links
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	ident Identities,
	verify Verifier,
	n notify.Port,
	ev events.Port,
	baseURL string,
) *Svc {
	if db == nil {
		panic("backpack.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("backpack.Service requires a non nil Repo binder")
	}
	if ident == nil {
		panic("backpack.Service requires the users identities port")
	}
	if verify == nil {
		panic("backpack.Service requires a verifier")
	}
	if n == nil {
		panic("backpack.Service requires a notify port")
	}
	if ev == nil {
		panic("backpack.Service requires an events port")
	}
	return &Svc{
		Repo:    binder.Bind(db),
		binder:  binder,
		db:      db,
		ident:   ident,
		verify:  verify,
		notify:  n,
		events:  ev,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     *logger.Named("backpack"),
		now:     time.Now,
	}
}

// List returns the merged backpack, newest first. Rejected badges never show
func (s *Svc) List(ctx context.Context, userID string, q domain.ListQuery) ([]domain.BackpackBadge, error) {
	flags := repo.Flags{
		IncludeExpired: q.IncludeExpired,
		IncludeRevoked: q.IncludeRevoked,
		IncludePending: q.IncludePending,
	}

	hosted, err := s.Repo.ListHosted(ctx, userID, flags)
	if err != nil {
		return nil, err
	}
	imported, err := s.Repo.ListImported(ctx, userID, flags)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BackpackBadge, 0, len(hosted)+len(imported))
	for _, h := range hosted {
		out = append(out, hostedView(h, q))
	}
	for _, im := range imported {
		out = append(out, importedListView(im, q))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].IssuedOn, out[j].IssuedOn
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	return out, nil
}

// SetAcceptance moves a badge between acceptance states. Rejection is final,
// Unaccepted is the initial state only
func (s *Svc) SetAcceptance(ctx context.Context, userID, id string, in domain.AcceptanceInput) (domain.BackpackBadge, error) {
	h, err := s.Repo.HostedByID(ctx, userID, id)
	if err == nil {
		if err := checkTransition(h.Acceptance, in.Acceptance); err != nil {
			return domain.BackpackBadge{}, err
		}
		if h.Acceptance != in.Acceptance {
			if err := s.Repo.SetHostedAcceptance(ctx, h.ID, in.Acceptance); err != nil {
				return domain.BackpackBadge{}, err
			}
			h.Acceptance = in.Acceptance
		}
		return hostedView(h, domain.ListQuery{}), nil
	}
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.BackpackBadge{}, err
	}

	im, err := s.Repo.ImportedByID(ctx, userID, id)
	if err != nil {
		return domain.BackpackBadge{}, err
	}
	if err := checkTransition(im.Acceptance, in.Acceptance); err != nil {
		return domain.BackpackBadge{}, err
	}
	if im.Acceptance != in.Acceptance {
		if err := s.Repo.SetImportedAcceptance(ctx, im.ID, in.Acceptance); err != nil {
			return domain.BackpackBadge{}, err
		}
		im.Acceptance = in.Acceptance
	}
	return importedListView(im, domain.ListQuery{}), nil
}

// Delete removes a badge from the backpack. A locally issued badge is marked
// Rejected so the issuer's records survive, an imported one is gone for good
func (s *Svc) Delete(ctx context.Context, userID, id string) error {
	h, err := s.Repo.HostedByID(ctx, userID, id)
	if err == nil {
		return s.Repo.SetHostedAcceptance(ctx, h.ID, adomain.AcceptanceRejected)
	}
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return err
	}

	im, err := s.Repo.ImportedByID(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.Repo.DeleteImported(ctx, im.ID)
}

// Import verifies an external badge and stores it
func (s *Svc) Import(ctx context.Context, userID string, in domain.ImportInput) (domain.ImportedBadge, error) {
	input, err := importInput(in)
	if err != nil {
		return domain.ImportedBadge{}, err
	}

	emails, err := s.ident.VerifiedIdentities(ctx, userID)
	if err != nil {
		return domain.ImportedBadge{}, err
	}
	if len(emails) == 0 {
		return domain.ImportedBadge{}, perr.InvalidArgf("verify an email address before importing badges")
	}

	res := s.verify.Verify(ctx, input, obi.RecipientProfile{Emails: emails})
	if !res.Report.Valid {
		m := res.Report.Messages[0]
		s.log.Info().Str("user", userID).Str("code", m.Code).Str("detail", m.Detail).Msg("badge import rejected")
		return domain.ImportedBadge{}, perr.InvalidArgf("%s", m.Message)
	}

	row := importedRow(res, input, userID)
	exts := extensionRows(row.ID, res.BadgeClassJSON)

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rq := s.binder.Bind(q)
		if err := rq.InsertImported(ctx, row); err != nil {
			return err
		}
		return rq.InsertImportedExtensions(ctx, exts)
	})
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return domain.ImportedBadge{}, perr.Conflictf("That badge is already in your backpack")
		}
		return domain.ImportedBadge{}, err
	}

	s.notify.Notify(ctx, notify.KindImportFinished, row.RecipientIdentifier, map[string]string{
		"badge_name": row.BadgeName,
	})
	s.events.Record(ctx, events.Event{
		Kind:   events.KindBadgeImported,
		UserID: userID,
		Meta:   map[string]any{"version": row.Version, "issuer_url": row.IssuerURL},
	})

	stored, err := s.Repo.ImportedByID(ctx, userID, row.ID)
	if err != nil {
		stored = row
	}
	return importedDetail(stored, exts), nil
}

// Collections lists the user's collections
func (s *Svc) Collections(ctx context.Context, userID string) ([]domain.Collection, error) {
	rows, err := s.Repo.ListCollections(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	entries, err := s.Repo.EntriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Collection, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.collectionView(r, entries[r.ID]))
	}
	return out, nil
}

// CreateCollection creates a collection, optionally published right away
func (s *Svc) CreateCollection(ctx context.Context, userID string, in domain.CreateCollectionInput) (domain.Collection, error) {
	base := str.Slugify(in.Name)
	if base == "" {
		return domain.Collection{}, perr.InvalidArgf("name %q does not yield a usable slug", in.Name)
	}

	entries, err := s.resolveEntries(ctx, userID, in.BadgeIDs)
	if err != nil {
		return domain.Collection{}, err
	}

	row := repo.CollectionRow{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Published:   in.Published,
	}
	if in.Published {
		row.ShareHash = uuid.NewString()
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		row.Slug = base
		if attempt > 0 {
			row.Slug = base + "-" + uuid.NewString()[:4]
		}
		err = s.db.Tx(ctx, func(q repokit.Queryer) error {
			rq := s.binder.Bind(q)
			if err := rq.InsertCollection(ctx, row); err != nil {
				return err
			}
			return rq.ReplaceEntries(ctx, row.ID, entries)
		})
		if err == nil {
			return s.collectionView(row, entries), nil
		}
		if !perr.IsDuplicateKey(err) {
			return domain.Collection{}, err
		}
	}
	return domain.Collection{}, perr.Wrapf(err, perr.ErrorCodeConflict, "allocate slug for %q", in.Name)
}

// slug collisions get a short random suffix, then one more try
const createAttempts = 3

// CollectionBySlug returns one collection of the caller
func (s *Svc) CollectionBySlug(ctx context.Context, userID, slug string) (domain.Collection, error) {
	row, err := s.Repo.CollectionBySlug(ctx, userID, slug)
	if err != nil {
		return domain.Collection{}, err
	}
	entries, err := s.Repo.EntriesFor(ctx, []string{row.ID})
	if err != nil {
		return domain.Collection{}, err
	}
	return s.collectionView(row, entries[row.ID]), nil
}

// UpdateCollection applies the set fields. Publishing mints a share hash,
// unpublishing discards it so old links die
func (s *Svc) UpdateCollection(ctx context.Context, userID, slug string, in domain.UpdateCollectionInput) (domain.Collection, error) {
	row, err := s.Repo.CollectionBySlug(ctx, userID, slug)
	if err != nil {
		return domain.Collection{}, err
	}

	if in.Name != nil {
		row.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		row.Description = *in.Description
	}
	if in.Published != nil && *in.Published != row.Published {
		row.Published = *in.Published
		if row.Published {
			row.ShareHash = uuid.NewString()
		} else {
			row.ShareHash = ""
		}
	}

	var entries []repo.EntryRow
	if in.BadgeIDs != nil {
		entries, err = s.resolveEntries(ctx, userID, *in.BadgeIDs)
		if err != nil {
			return domain.Collection{}, err
		}
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rq := s.binder.Bind(q)
		if err := rq.UpdateCollection(ctx, row); err != nil {
			return err
		}
		if in.BadgeIDs != nil {
			return rq.ReplaceEntries(ctx, row.ID, entries)
		}
		return nil
	})
	if err != nil {
		return domain.Collection{}, err
	}
	return s.CollectionBySlug(ctx, userID, slug)
}

// DeleteCollection removes a collection, its entries go with it
func (s *Svc) DeleteCollection(ctx context.Context, userID, slug string) error {
	row, err := s.Repo.CollectionBySlug(ctx, userID, slug)
	if err != nil {
		return err
	}
	return s.Repo.DeleteCollection(ctx, row.ID)
}

// ShareAssertion builds a provider share link for one badge and records the
// share. redirect handling is the transport's business
func (s *Svc) ShareAssertion(ctx context.Context, userID, id string, opts domain.ShareOptions) (domain.ShareLink, error) {
	share := repo.ShareRow{
		ID:                uuid.NewString(),
		UserID:            userID,
		Provider:          opts.Provider,
		IncludeIdentifier: opts.IncludeIdentifier,
	}

	var target, identity string
	h, err := s.Repo.HostedByID(ctx, userID, id)
	switch {
	case err == nil:
		share.InstanceID = h.ID
		target = s.baseURL + "/public/assertions/" + h.ID
		identity = h.RecipientEmail
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		im, err := s.Repo.ImportedByID(ctx, userID, id)
		if err != nil {
			return domain.ShareLink{}, err
		}
		if im.SourceURL == "" {
			return domain.ShareLink{}, perr.Conflictf("badge has no shareable url")
		}
		share.ImportedID = im.ID
		target = im.SourceURL
		identity = im.RecipientIdentifier
	default:
		return domain.ShareLink{}, err
	}

	if opts.IncludeIdentifier {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + "identity=" + url.QueryEscape(identity)
	}

	link, err := providerShareURL(opts.Provider, target)
	if err != nil {
		return domain.ShareLink{}, err
	}
	if err := s.Repo.InsertShare(ctx, share); err != nil {
		return domain.ShareLink{}, err
	}
	s.events.Record(ctx, events.Event{
		Kind:        events.KindAssertionShared,
		AssertionID: id,
		UserID:      userID,
		Meta:        map[string]any{"provider": opts.Provider},
	})
	return domain.ShareLink{URL: link}, nil
}

// ShareCollection builds a provider share link for a published collection
func (s *Svc) ShareCollection(ctx context.Context, userID, slug string, opts domain.ShareOptions) (domain.ShareLink, error) {
	row, err := s.Repo.CollectionBySlug(ctx, userID, slug)
	if err != nil {
		return domain.ShareLink{}, err
	}
	if !row.Published || row.ShareHash == "" {
		return domain.ShareLink{}, perr.Conflictf("collection %s is not published", slug)
	}

	target := s.baseURL + "/public/collections/" + row.ShareHash
	link, err := providerShareURL(opts.Provider, target)
	if err != nil {
		return domain.ShareLink{}, err
	}

	err = s.Repo.InsertShare(ctx, repo.ShareRow{
		ID:                uuid.NewString(),
		UserID:            userID,
		CollectionID:      row.ID,
		Provider:          opts.Provider,
		IncludeIdentifier: opts.IncludeIdentifier,
	})
	if err != nil {
		return domain.ShareLink{}, err
	}
	s.events.Record(ctx, events.Event{
		Kind:   events.KindCollectionShared,
		UserID: userID,
		Meta:   map[string]any{"provider": opts.Provider, "collection": row.Slug},
	})
	return domain.ShareLink{URL: link}, nil
}

// CollectionByHash resolves a published collection for anonymous readers
func (s *Svc) CollectionByHash(ctx context.Context, hash string) (domain.PublicCollection, error) {
	if _, err := uuid.Parse(hash); err != nil {
		return domain.PublicCollection{}, perr.NotFoundf("no shared collection")
	}
	row, err := s.Repo.CollectionByHash(ctx, hash)
	if err != nil {
		return domain.PublicCollection{}, err
	}
	entries, err := s.Repo.EntriesFor(ctx, []string{row.ID})
	if err != nil {
		return domain.PublicCollection{}, err
	}

	out := domain.PublicCollection{
		Name:        row.Name,
		Description: row.Description,
		Badges:      []domain.PublicBadge{},
	}
	for _, e := range entries[row.ID] {
		if e.InstanceID != "" {
			h, err := s.Repo.HostedByID(ctx, row.UserID, e.InstanceID)
			if err != nil || h.Revoked {
				continue
			}
			issued := h.IssuedOn
			out.Badges = append(out.Badges, domain.PublicBadge{
				BadgeName:  h.BadgeName,
				BadgeImage: h.BadgeImageURL,
				IssuerName: h.IssuerName,
				IssuedOn:   &issued,
			})
			continue
		}
		im, err := s.Repo.ImportedByID(ctx, row.UserID, e.ImportedID)
		if err != nil {
			continue
		}
		out.Badges = append(out.Badges, domain.PublicBadge{
			BadgeName:  im.BadgeName,
			BadgeImage: im.BadgeImageURL,
			IssuerName: im.IssuerName,
			IssuedOn:   im.IssuedOn,
		})
	}
	return out, nil
}

// resolveEntries maps badge ids to entry rows, verifying each one belongs to
// the caller. Duplicate ids collapse
func (s *Svc) resolveEntries(ctx context.Context, userID string, badgeIDs []string) ([]repo.EntryRow, error) {
	seen := make(map[string]bool, len(badgeIDs))
	out := make([]repo.EntryRow, 0, len(badgeIDs))
	for _, id := range badgeIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		e := repo.EntryRow{ID: uuid.NewString()}
		if _, err := s.Repo.HostedByID(ctx, userID, id); err == nil {
			e.InstanceID = id
			out = append(out, e)
			continue
		} else if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			return nil, err
		}
		if _, err := s.Repo.ImportedByID(ctx, userID, id); err == nil {
			e.ImportedID = id
			out = append(out, e)
			continue
		} else if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			return nil, err
		}
		return nil, perr.InvalidArgf("badge %s is not in your backpack", id)
	}
	return out, nil
}

// checkTransition enforces the acceptance state machine. Equal states pass so
// repeated calls stay idempotent
func checkTransition(cur, next string) error {
	if cur == next {
		return nil
	}
	if cur == adomain.AcceptanceRejected {
		return perr.Conflictf("a rejected badge cannot be restored")
	}
	return nil
}

// importInput enforces the exactly-one rule and classifies the source
func importInput(in domain.ImportInput) (obi.Input, error) {
	sources := 0
	if in.URL != "" {
		sources++
	}
	if in.Image != "" {
		sources++
	}
	if len(bytes.TrimSpace(in.Assertion)) > 0 {
		sources++
	}
	if sources != 1 {
		return obi.Input{}, perr.InvalidArgf("provide exactly one of url, image, or assertion")
	}

	switch {
	case in.URL != "":
		return obi.Input{Kind: obi.KindURL, URL: in.URL}, nil
	case in.Image != "":
		data, err := decodeImage(in.Image)
		if err != nil {
			return obi.Input{}, err
		}
		input, err := obi.InputFromPNG(bytes.NewReader(data))
		if err != nil {
			return obi.Input{}, perr.InvalidArgf("image carries no badge: %v", err)
		}
		return input, nil
	default:
		raw := bytes.TrimSpace(in.Assertion)
		// a JSON string holds a JWS or a URL, an object is the assertion itself
		if raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return obi.Input{}, perr.InvalidArgf("assertion is not valid json")
			}
			raw = []byte(s)
		}
		input, err := obi.DetectInput(raw)
		if err != nil {
			return obi.Input{}, perr.InvalidArgf("assertion is neither json, jws nor url")
		}
		return input, nil
	}
}

// decodeImage accepts base64 PNG bytes, with or without a data url prefix
func decodeImage(img string) ([]byte, error) {
	if idx := strings.Index(img, "base64,"); idx >= 0 && strings.HasPrefix(img, "data:") {
		img = img[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(img))
	if err != nil {
		return nil, perr.InvalidArgf("image must be base64 encoded png")
	}
	return data, nil
}

// importedRow maps a verification result onto the stored shape
func importedRow(res *obi.VerifyResult, in obi.Input, userID string) repo.ImportedRow {
	row := repo.ImportedRow{
		ID:                  uuid.NewString(),
		UserID:              userID,
		RecipientIdentifier: res.RecipientID,
		Version:             res.Version,
		OriginalJSON:        res.AssertionJSON,
		IssuerJSON:          res.IssuerJSON,
		BadgeJSON:           res.BadgeClassJSON,
		Acceptance:          adomain.AcceptanceAccepted,
	}

	if res.Version == obi.VersionOB3 && res.Credential != nil {
		c := res.Credential
		row.AssertionID = c.ID
		row.BadgeName = c.CredentialSubject.Achievement.Name
		row.BadgeDescription = c.CredentialSubject.Achievement.Description
		row.BadgeImageURL = string(c.CredentialSubject.Achievement.Image)
		row.IssuerName = c.Issuer.Name
		row.IssuerURL = c.Issuer.URL
		if row.IssuerURL == "" {
			row.IssuerURL = c.Issuer.ID
		}
		row.IssuedOn = parseWhen(c.IssuedAt())
		row.ExpiresAt = parseWhen(c.ExpiresAt())
	} else {
		if a := res.Assertion; a != nil {
			row.AssertionID = a.ID
			if row.AssertionID == "" {
				row.AssertionID = a.UID
			}
			row.IssuedOn = parseWhen(a.IssuedOn)
			row.ExpiresAt = parseWhen(a.Expires)
			row.Narrative = a.Narrative
		}
		if b := res.BadgeClass; b != nil {
			row.BadgeName = b.Name
			row.BadgeDescription = b.Description
			row.BadgeImageURL = string(b.Image)
		}
		if i := res.Issuer; i != nil {
			row.IssuerName = i.Name
			row.IssuerURL = i.URL
			if row.IssuerURL == "" {
				row.IssuerURL = i.ID
			}
		}
	}

	if in.Kind == obi.KindURL {
		row.SourceURL = in.URL
	} else if strings.HasPrefix(row.AssertionID, "http") {
		row.SourceURL = row.AssertionID
	}
	return row
}

func parseWhen(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := obi.ParseTime(v)
	if err != nil {
		return nil
	}
	return ptime.Ptr(t)
}

// extensionRows lifts extensions:* keys off the badge class document
func extensionRows(importedID string, badgeJSON []byte) []repo.ImportedExtensionRow {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(badgeJSON, &node); err != nil {
		return nil
	}
	var out []repo.ImportedExtensionRow
	for name, payload := range node {
		if !strings.HasPrefix(name, "extensions:") {
			continue
		}
		out = append(out, repo.ImportedExtensionRow{
			ImportedID: importedID,
			Name:       name,
			Payload:    payload,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func providerShareURL(provider, target string) (string, error) {
	switch provider {
	case domain.ProviderFacebook:
		return "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(target), nil
	case domain.ProviderLinkedIn:
		return "https://www.linkedin.com/sharing/share-offsite/?url=" + url.QueryEscape(target), nil
	}
	return "", perr.InvalidArgf("provider must be facebook or linkedin")
}

func hostedView(h repo.HostedRow, q domain.ListQuery) domain.BackpackBadge {
	issued := h.IssuedOn
	v := domain.BackpackBadge{
		ID:         h.ID,
		Source:     domain.SourceHosted,
		BadgeName:  h.BadgeName,
		BadgeImage: h.BadgeImageURL,
		IssuerName: h.IssuerName,
		IssuedOn:   &issued,
		ExpiresAt:  h.ExpiresAt,
		Revoked:    h.Revoked,
		Pending:    !h.Verified,
		Acceptance: h.Acceptance,
		Narrative:  h.Narrative,
	}
	if q.ExpandBadge {
		v.BadgeClass = &domain.BadgeSummary{
			Slug:        h.BadgeSlug,
			Name:        h.BadgeName,
			Description: h.BadgeDescription,
			ImageURL:    h.BadgeImageURL,
		}
	}
	if q.ExpandIssuer {
		v.Issuer = &domain.IssuerSummary{Slug: h.IssuerSlug, Name: h.IssuerName, URL: h.IssuerURL}
	}
	return v
}

func importedListView(im repo.ImportedRow, q domain.ListQuery) domain.BackpackBadge {
	v := domain.BackpackBadge{
		ID:         im.ID,
		Source:     domain.SourceImported,
		BadgeName:  im.BadgeName,
		BadgeImage: im.BadgeImageURL,
		IssuerName: im.IssuerName,
		IssuedOn:   im.IssuedOn,
		ExpiresAt:  im.ExpiresAt,
		Acceptance: im.Acceptance,
		Narrative:  im.Narrative,
		SourceURL:  im.SourceURL,
	}
	if q.ExpandBadge {
		v.BadgeClass = &domain.BadgeSummary{
			Name:        im.BadgeName,
			Description: im.BadgeDescription,
			ImageURL:    im.BadgeImageURL,
		}
	}
	if q.ExpandIssuer {
		v.Issuer = &domain.IssuerSummary{Name: im.IssuerName, URL: im.IssuerURL}
	}
	return v
}

func importedDetail(im repo.ImportedRow, exts []repo.ImportedExtensionRow) domain.ImportedBadge {
	out := domain.ImportedBadge{
		ID:               im.ID,
		BadgeName:        im.BadgeName,
		BadgeDescription: im.BadgeDescription,
		BadgeImageURL:    im.BadgeImageURL,
		IssuerName:       im.IssuerName,
		IssuerURL:        im.IssuerURL,
		AssertionID:      im.AssertionID,
		SourceURL:        im.SourceURL,
		Version:          im.Version,
		IssuedOn:         im.IssuedOn,
		ExpiresAt:        im.ExpiresAt,
		Narrative:        im.Narrative,
		Acceptance:       im.Acceptance,
		CreatedAt:        im.CreatedAt,
	}
	if len(exts) > 0 {
		out.Extensions = make(map[string]json.RawMessage, len(exts))
		for _, e := range exts {
			out.Extensions[e.Name] = e.Payload
		}
	}
	return out
}

func (s *Svc) collectionView(row repo.CollectionRow, entries []repo.EntryRow) domain.Collection {
	c := domain.Collection{
		ID:          row.ID,
		Slug:        row.Slug,
		Name:        row.Name,
		Description: row.Description,
		Published:   row.Published,
		ShareHash:   row.ShareHash,
		BadgeIDs:    make([]string, 0, len(entries)),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Published && row.ShareHash != "" {
		c.ShareURL = s.baseURL + "/public/collections/" + row.ShareHash
	}
	for _, e := range entries {
		if e.InstanceID != "" {
			c.BadgeIDs = append(c.BadgeIDs, e.InstanceID)
		} else {
			c.BadgeIDs = append(c.BadgeIDs, e.ImportedID)
		}
	}
	return c
}
