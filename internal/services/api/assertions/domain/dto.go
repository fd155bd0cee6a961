// Package domain holds DTOs for awarded badge instances and batch awards
package domain

import "time"

// Acceptance states a recipient can put an awarded badge into
const (
	AcceptanceUnaccepted = "Unaccepted"
	AcceptanceAccepted   = "Accepted"
	AcceptanceRejected   = "Rejected"
)

// Batch row states
const (
	BatchRowPending = "pending"
	BatchRowIssued  = "issued"
	BatchRowFailed  = "failed"
)

// Batches this large are refused
const MaxBatchSize = 50

// EvidenceInput is one piece of evidence attached at award time
type EvidenceInput struct {
	URL       string `json:"url" validate:"omitempty,url"`
	Narrative string `json:"narrative" validate:"omitempty,max=5000"`
}

// AwardInput issues a badge to one recipient. The recipient does not need an
// account yet, the instance attaches when they register the address
type AwardInput struct {
	RecipientEmail string          `json:"recipient_email" validate:"required,email" example:"ada@example.org"`
	ExpiresAt      *time.Time      `json:"expires_at"`
	Narrative      string          `json:"narrative" validate:"omitempty,max=5000"`
	Evidence       []EvidenceInput `json:"evidence" validate:"omitempty,max=10,dive"`
	ActivityOnline bool            `json:"activity_online"`
}

// BatchInput awards one badge class to many recipients at once
type BatchInput struct {
	Recipients []AwardInput `json:"recipients" validate:"required,min=1,dive"`
}

// RevokeInput takes the badge back. Revocation is permanent
type RevokeInput struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// EvidenceItem is one piece of evidence on an instance
type EvidenceItem struct {
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Narrative string `json:"narrative,omitempty"`
}

// Assertion is the staff and recipient view of an awarded badge.
// RecipientSalt feeds the public hashed identity and never serializes
type Assertion struct {
	ID               string         `json:"id"`
	BadgeSlug        string         `json:"badge_slug"`
	BadgeName        string         `json:"badge_name,omitempty"`
	IssuerSlug       string         `json:"issuer_slug"`
	RecipientEmail   string         `json:"recipient_email"`
	RecipientSalt    string         `json:"-"`
	UserID           string         `json:"-"`
	IssuedOn         time.Time      `json:"issued_on"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	Revoked          bool           `json:"revoked"`
	RevocationReason string         `json:"revocation_reason,omitempty"`
	Acceptance       string         `json:"acceptance"`
	Narrative        string         `json:"narrative,omitempty"`
	Evidence         []EvidenceItem `json:"evidence,omitempty"`
	ActivityOnline   bool           `json:"activity_online"`
}

// Paging bounds for assertion lists
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery narrows staff assertion lists
type ListQuery struct {
	Recipient string `json:"recipient"`
	Revoked   *bool  `json:"revoked"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// Clamped normalizes paging silently, out of range values snap to the bounds
func (q ListQuery) Clamped() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// BatchRow is the processing state of one batch recipient
type BatchRow struct {
	Idx            int    `json:"idx"`
	RecipientEmail string `json:"recipient_email"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	InstanceID     string `json:"instance_id,omitempty"`
}

// Batch reports an asynchronous batch award
type Batch struct {
	ID         string     `json:"id"`
	BadgeSlug  string     `json:"badge_slug"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Rows       []BatchRow `json:"rows"`
}

// ChangedFeed lists instances touched after a cutoff. Timestamp is taken
// before the query runs so clients can hand it back as the next since value
type ChangedFeed struct {
	Items     []Assertion `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}
