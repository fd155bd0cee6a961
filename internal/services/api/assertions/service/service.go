// Package service contains assertion workflows: awarding, batch awards with an
// asynchronous worker, revocation, and staff listings
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
	"badgehub/internal/services/api/assertions/domain"
	"badgehub/internal/services/api/assertions/repo"
	bdomain "badgehub/internal/services/api/badges/domain"
	idomain "badgehub/internal/services/api/issuers/domain"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// Identities resolves the verified identifiers of an account, used to match
// recipients who registered after the award
type Identities interface {
	VerifiedIdentities(ctx context.Context, userID string) ([]string, error)
}

// Service defines the assertion service contract
type Service interface {
	domain.ServicePort
	domain.ReadPort
}

// Svc implements the assertion service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	badges bdomain.ReadPort
	access idomain.AccessPort
	ident  Identities
	notify notify.Port
	events events.Port
	log    logger.Logger
	now    func() time.Time
}

// New constructs an assertion service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	badges bdomain.ReadPort,
	access idomain.AccessPort,
	ident Identities,
	n notify.Port,
	ev events.Port,
) *Svc {
	if db == nil {
		panic("assertions.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("assertions.Service requires a non nil Repo binder")
	}
	if badges == nil {
		panic("assertions.Service requires the badges read port")
	}
	if access == nil {
		panic("assertions.Service requires the issuers access port")
	}
	if ident == nil {
		panic("assertions.Service requires the users identities port")
	}
	if n == nil {
		panic("assertions.Service requires a notify port")
	}
	if ev == nil {
		panic("assertions.Service requires an events port")
	}
	return &Svc{
		Repo:   binder.Bind(db),
		binder: binder,
		db:     db,
		badges: badges,
		access: access,
		ident:  ident,
		notify: n,
		events: ev,
		log:    *logger.Named("assertions"),
		now:    time.Now,
	}
}

const changedRetention = 90 * 24 * time.Hour

// Award issues a badge to one recipient, editor gated on the issuer
func (s *Svc) Award(ctx context.Context, callerID, badgeSlug string, in domain.AwardInput) (domain.Assertion, error) {
	badge, iss, err := s.issuableBadge(ctx, callerID, badgeSlug)
	if err != nil {
		return domain.Assertion{}, err
	}

	issuedOn := s.now()
	expires, err := resolveExpiry(in.ExpiresAt, badge.ExpiresDays, issuedOn)
	if err != nil {
		return domain.Assertion{}, err
	}

	row := repo.InstanceRow{
		ID:             uuid.NewString(),
		BadgeClassID:   badge.ID,
		IssuerID:       iss.ID,
		RecipientEmail: strings.ToLower(strings.TrimSpace(in.RecipientEmail)),
		RecipientSalt:  uuid.NewString(),
		IssuedOn:       issuedOn,
		ExpiresAt:      expires,
		Narrative:      in.Narrative,
		ActivityOnline: in.ActivityOnline,
	}
	evidence := evidenceRows(row.ID, in.Evidence)

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rq := s.binder.Bind(q)
		if err := rq.Insert(ctx, row); err != nil {
			return err
		}
		return rq.InsertEvidence(ctx, evidence)
	})
	if err != nil {
		return domain.Assertion{}, err
	}

	out, err := s.Repo.ByID(ctx, row.ID)
	if err != nil {
		return domain.Assertion{}, err
	}
	s.afterIssue(ctx, out, iss.Name)
	return s.view(ctx, out)
}

// AwardBatch enqueues a batch award and returns the pending record. A worker
// issues the rows, Batch reports progress
func (s *Svc) AwardBatch(ctx context.Context, callerID, badgeSlug string, in domain.BatchInput) (domain.Batch, error) {
	if len(in.Recipients) > domain.MaxBatchSize {
		return domain.Batch{}, perr.InvalidArgf("batch exceeds the %d recipient limit", domain.MaxBatchSize)
	}
	badge, _, err := s.issuableBadge(ctx, callerID, badgeSlug)
	if err != nil {
		return domain.Batch{}, err
	}

	hdr := repo.BatchHeader{
		ID:           uuid.NewString(),
		BadgeClassID: badge.ID,
		CreatedBy:    callerID,
	}
	items := make([]repo.BatchItem, 0, len(in.Recipients))
	for i, rc := range in.Recipients {
		items = append(items, repo.BatchItem{
			BatchID:        hdr.ID,
			Idx:            i,
			RecipientEmail: strings.ToLower(strings.TrimSpace(rc.RecipientEmail)),
			ExpiresAt:      rc.ExpiresAt,
			Narrative:      rc.Narrative,
			ActivityOnline: rc.ActivityOnline,
		})
	}

	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).InsertBatch(ctx, hdr, items)
	})
	if err != nil {
		return domain.Batch{}, err
	}
	return s.Batch(ctx, callerID, hdr.ID)
}

// Batch reports a batch award with per recipient status, staff gated
func (s *Svc) Batch(ctx context.Context, callerID, batchID string) (domain.Batch, error) {
	hdr, err := s.Repo.BatchByID(ctx, batchID)
	if err != nil {
		return domain.Batch{}, err
	}
	badge, err := s.badges.BySlug(ctx, hdr.BadgeSlug)
	if err != nil {
		return domain.Batch{}, err
	}
	if _, err := s.access.RequireRole(ctx, callerID, badge.IssuerSlug, idomain.RoleStaff); err != nil {
		return domain.Batch{}, err
	}

	items, err := s.Repo.BatchItems(ctx, batchID)
	if err != nil {
		return domain.Batch{}, err
	}
	return toBatch(hdr, items), nil
}

// Revoke takes a badge back, editor gated. Revoking twice is a no-op and
// un-revoking does not exist
func (s *Svc) Revoke(ctx context.Context, callerID, id string, in domain.RevokeInput) (domain.Assertion, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return domain.Assertion{}, perr.InvalidArgf("a revocation reason is required")
	}

	row, err := s.Repo.ByID(ctx, id)
	if err != nil {
		return domain.Assertion{}, err
	}
	if _, err := s.access.RequireRole(ctx, callerID, row.IssuerSlug, idomain.RoleEditor); err != nil {
		return domain.Assertion{}, err
	}
	if row.Revoked {
		return s.view(ctx, row)
	}

	if err := s.Repo.Revoke(ctx, id, in.Reason); err != nil {
		return domain.Assertion{}, err
	}
	row.Revoked = true
	row.RevocationReason = in.Reason

	s.events.Record(ctx, events.Event{
		Kind:        events.KindBadgeRevoked,
		IssuerSlug:  row.IssuerSlug,
		BadgeSlug:   row.BadgeSlug,
		AssertionID: row.ID,
		UserID:      row.UserID,
	})
	return s.view(ctx, row)
}

// ByID returns one assertion to its issuer's staff or to the recipient.
// Everyone else learns nothing, not even that the id exists
func (s *Svc) ByID(ctx context.Context, callerID, id string) (domain.Assertion, error) {
	row, err := s.Repo.ByID(ctx, id)
	if err != nil {
		return domain.Assertion{}, err
	}
	if !s.canSee(ctx, callerID, row) {
		return domain.Assertion{}, perr.NotFoundf("no assertion %s", id)
	}
	return s.view(ctx, row)
}

// Public resolves an instance for hosted JSON, no gate
func (s *Svc) Public(ctx context.Context, id string) (domain.Assertion, error) {
	row, err := s.Repo.ByID(ctx, id)
	if err != nil {
		return domain.Assertion{}, err
	}
	return s.view(ctx, row)
}

// ListByBadge pages a badge class's instances, staff gated
func (s *Svc) ListByBadge(ctx context.Context, callerID, badgeSlug string, q domain.ListQuery) ([]domain.Assertion, int, error) {
	badge, err := s.badges.BySlug(ctx, badgeSlug)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.access.RequireRole(ctx, callerID, badge.IssuerSlug, idomain.RoleStaff); err != nil {
		return nil, 0, err
	}
	q = q.Clamped()
	rows, total, err := s.Repo.ListByBadge(ctx, badge.ID, filterOf(q))
	if err != nil {
		return nil, 0, err
	}
	return s.views(ctx, rows, total)
}

// ListByIssuer pages an issuer's instances across classes, staff gated
func (s *Svc) ListByIssuer(ctx context.Context, callerID, issuerSlug string, q domain.ListQuery) ([]domain.Assertion, int, error) {
	iss, err := s.access.RequireRole(ctx, callerID, issuerSlug, idomain.RoleStaff)
	if err != nil {
		return nil, 0, err
	}
	q = q.Clamped()
	rows, total, err := s.Repo.ListByIssuer(ctx, iss.ID, filterOf(q))
	if err != nil {
		return nil, 0, err
	}
	return s.views(ctx, rows, total)
}

// Changed lists instances touched after since, staff gated. A zero since
// returns everything, cutoffs past the retention window are refused
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

// ProcessPending drains pending batches one at a time. The scheduler calls
// this on a short tick, competing workers skip each other's claims
func (s *Svc) ProcessPending(ctx context.Context) (int, error) {
	processed := 0
	for {
		var hdr repo.BatchHeader
		err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			var err error
			hdr, err = s.binder.Bind(q).ClaimPendingBatch(ctx)
			return err
		})
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeNotFound) {
				return processed, nil
			}
			return processed, err
		}
		if err := s.processBatch(ctx, hdr); err != nil {
			return processed, err
		}
		processed++
	}
}

func (s *Svc) processBatch(ctx context.Context, hdr repo.BatchHeader) error {
	badge, err := s.badges.BySlug(ctx, hdr.BadgeSlug)
	if err != nil {
		return err
	}
	iss, err := s.access.BySlug(ctx, badge.IssuerSlug)
	if err != nil {
		return err
	}

	items, err := s.Repo.BatchItems(ctx, hdr.ID)
	if err != nil {
		return err
	}

	for _, it := range items {
		if it.Status != domain.BatchRowPending {
			continue
		}

		if badge.Archived {
			if err := s.Repo.MarkBatchItem(ctx, hdr.ID, it.Idx, domain.BatchRowFailed,
				"badge class is archived", ""); err != nil {
				return err
			}
			continue
		}

		issuedOn := s.now()
		expires, expErr := resolveExpiry(it.ExpiresAt, badge.ExpiresDays, issuedOn)
		if expErr != nil {
			if err := s.Repo.MarkBatchItem(ctx, hdr.ID, it.Idx, domain.BatchRowFailed,
				"expiry is not after the issue date", ""); err != nil {
				return err
			}
			continue
		}

		row := repo.InstanceRow{
			ID:             uuid.NewString(),
			BadgeClassID:   badge.ID,
			BadgeSlug:      badge.Slug,
			BadgeName:      badge.Name,
			IssuerID:       iss.ID,
			IssuerSlug:     iss.Slug,
			RecipientEmail: it.RecipientEmail,
			RecipientSalt:  uuid.NewString(),
			IssuedOn:       issuedOn,
			ExpiresAt:      expires,
			Narrative:      it.Narrative,
			ActivityOnline: it.ActivityOnline,
			BatchID:        hdr.ID,
		}
		err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			rq := s.binder.Bind(q)
			if err := rq.Insert(ctx, row); err != nil {
				return err
			}
			return rq.MarkBatchItem(ctx, hdr.ID, it.Idx, domain.BatchRowIssued, "", row.ID)
		})
		if err != nil {
			s.log.Warn().Err(err).Str("batch", hdr.ID).Int("idx", it.Idx).Msg("batch row failed")
			if err := s.Repo.MarkBatchItem(ctx, hdr.ID, it.Idx, domain.BatchRowFailed,
				"could not issue the badge", ""); err != nil {
				return err
			}
			continue
		}

		out, err := s.Repo.ByID(ctx, row.ID)
		if err != nil {
			out = row
		}
		s.afterIssue(ctx, out, iss.Name)
	}

	return s.Repo.FinishBatch(ctx, hdr.ID)
}

// expiryWarningWindow is how far ahead the expiry sweep looks
const expiryWarningWindow = 30 * 24 * time.Hour

// NotifyExpiring warns recipients whose badges lapse within the warning
// window. Each instance is warned once, the scheduler calls this daily
func (s *Svc) NotifyExpiring(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.Repo.ExpiringSoon(ctx, now, now.Add(expiryWarningWindow))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		s.notify.Notify(ctx, notify.KindBadgeExpiring, r.RecipientEmail, map[string]string{
			"badge_name": r.BadgeName,
			"expires_on": r.ExpiresAt.UTC().Format("2006-01-02"),
		})
		ids = append(ids, r.ID)
	}
	if err := s.Repo.MarkExpiryNotified(ctx, ids); err != nil {
		return 0, err
	}
	s.log.Info().Int("warned", len(ids)).Msg("expiry warnings sent")
	return len(ids), nil
}

// afterIssue publishes the recipient notification and the analytics event
func (s *Svc) afterIssue(ctx context.Context, row repo.InstanceRow, issuerName string) {
	s.notify.Notify(ctx, notify.KindBadgeAwarded, row.RecipientEmail, map[string]string{
		"badge_name":  row.BadgeName,
		"issuer_name": issuerName,
	})
	s.events.Record(ctx, events.Event{
		Kind:        events.KindBadgeIssued,
		IssuerSlug:  row.IssuerSlug,
		BadgeSlug:   row.BadgeSlug,
		AssertionID: row.ID,
		UserID:      row.UserID,
		Meta:        map[string]any{"activity_online": row.ActivityOnline},
	})
}

// issuableBadge resolves a badge class that may still be issued from and
// checks the caller is at least an editor of its issuer
func (s *Svc) issuableBadge(ctx context.Context, callerID, badgeSlug string) (bdomain.Badge, idomain.Issuer, error) {
	badge, err := s.badges.BySlug(ctx, badgeSlug)
	if err != nil {
		return bdomain.Badge{}, idomain.Issuer{}, err
	}
	iss, err := s.access.RequireRole(ctx, callerID, badge.IssuerSlug, idomain.RoleEditor)
	if err != nil {
		return bdomain.Badge{}, idomain.Issuer{}, err
	}
	if badge.Archived {
		return bdomain.Badge{}, idomain.Issuer{}, perr.Conflictf("badge class %s is archived", badgeSlug)
	}
	return badge, iss, nil
}

func (s *Svc) canSee(ctx context.Context, callerID string, row repo.InstanceRow) bool {
	if callerID == "" {
		return false
	}
	if row.UserID != "" && row.UserID == callerID {
		return true
	}
	if _, err := s.access.RequireRole(ctx, callerID, row.IssuerSlug, idomain.RoleStaff); err == nil {
		return true
	}
	// recipients who registered after the award match by verified address
	ids, err := s.ident.VerifiedIdentities(ctx, callerID)
	if err != nil {
		return false
	}
	for _, cand := range ids {
		if strings.EqualFold(cand, row.RecipientEmail) {
			return true
		}
	}
	return false
}

// resolveExpiry picks the explicit expiry or derives one from the badge class
// period, and refuses values at or before the issue time
func resolveExpiry(explicit *time.Time, expiresDays *int, issuedOn time.Time) (*time.Time, error) {
	expires := explicit
	if expires == nil && expiresDays != nil {
		e := issuedOn.AddDate(0, 0, *expiresDays)
		expires = &e
	}
	if expires != nil && !expires.After(issuedOn) {
		return nil, perr.InvalidArgf("expires_at must be after issued_on")
	}
	return expires, nil
}

func filterOf(q domain.ListQuery) repo.ListFilter {
	return repo.ListFilter{
		Recipient: strings.TrimSpace(q.Recipient),
		Revoked:   q.Revoked,
		Limit:     q.PageSize,
		Offset:    (q.Page - 1) * q.PageSize,
	}
}

func evidenceRows(instanceID string, in []domain.EvidenceInput) []repo.EvidenceRow {
	out := make([]repo.EvidenceRow, 0, len(in))
	for _, e := range in {
		if e.URL == "" && strings.TrimSpace(e.Narrative) == "" {
			continue
		}
		out = append(out, repo.EvidenceRow{
			ID:         uuid.NewString(),
			InstanceID: instanceID,
			URL:        e.URL,
			Narrative:  e.Narrative,
		})
	}
	return out
}

// view loads evidence for one row, views does it for a page in one query
func (s *Svc) view(ctx context.Context, row repo.InstanceRow) (domain.Assertion, error) {
	evByID, err := s.Repo.EvidenceFor(ctx, []string{row.ID})
	if err != nil {
		return domain.Assertion{}, err
	}
	return toAssertion(row, evByID[row.ID]), nil
}

func (s *Svc) views(ctx context.Context, rows []repo.InstanceRow, total int) ([]domain.Assertion, int, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	evByID, err := s.Repo.EvidenceFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Assertion, 0, len(rows))
	for _, r := range rows {
		out = append(out, toAssertion(r, evByID[r.ID]))
	}
	return out, total, nil
}

func toBatch(hdr repo.BatchHeader, items []repo.BatchItem) domain.Batch {
	b := domain.Batch{
		ID:         hdr.ID,
		BadgeSlug:  hdr.BadgeSlug,
		Status:     hdr.Status,
		CreatedAt:  hdr.CreatedAt,
		FinishedAt: hdr.FinishedAt,
		Rows:       make([]domain.BatchRow, 0, len(items)),
	}
	for _, it := range items {
		b.Rows = append(b.Rows, domain.BatchRow{
			Idx:            it.Idx,
			RecipientEmail: it.RecipientEmail,
			Status:         it.Status,
			Error:          it.Error,
			InstanceID:     it.InstanceID,
		})
	}
	return b
}

func toAssertion(r repo.InstanceRow, evidence []repo.EvidenceRow) domain.Assertion {
	a := domain.Assertion{
		ID:               r.ID,
		BadgeSlug:        r.BadgeSlug,
		BadgeName:        r.BadgeName,
		IssuerSlug:       r.IssuerSlug,
		RecipientEmail:   r.RecipientEmail,
		RecipientSalt:    r.RecipientSalt,
		UserID:           r.UserID,
		IssuedOn:         r.IssuedOn,
		ExpiresAt:        r.ExpiresAt,
		Revoked:          r.Revoked,
		RevocationReason: r.RevocationReason,
		Acceptance:       r.Acceptance,
		Narrative:        r.Narrative,
		ActivityOnline:   r.ActivityOnline,
	}
	for _, e := range evidence {
		a.Evidence = append(a.Evidence, domain.EvidenceItem{ID: e.ID, URL: e.URL, Narrative: e.Narrative})
	}
	return a
}
