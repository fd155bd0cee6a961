// Package domain contains the hosted Open Badges document shapes.
// These are served raw as application/ld+json, never enveloped, because
// external verifiers resolve and compare them byte for byte
package domain

import "encoding/json"

// Expand controls node embedding on the public assertion document.
// External verifiers want bare IRIs, badge wallets ask for the full graph
type Expand struct {
	Badge       bool
	BadgeIssuer bool
}

// IssuerDoc is the hosted OB2 issuer profile
type IssuerDoc struct {
	Context     string `json:"@context"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// CriteriaDoc is the OB2 criteria node, narrative only since criteria
// pages are not hosted separately
type CriteriaDoc struct {
	Narrative string `json:"narrative,omitempty"`
}

// BadgeDoc is the hosted OB2 badgeclass document. Issuer holds the issuer
// IRI or, on expanded reads, the embedded IssuerDoc
type BadgeDoc struct {
	Context     string      `json:"@context"`
	Type        string      `json:"type"`
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Criteria    CriteriaDoc `json:"criteria"`
	Issuer      any         `json:"issuer"`
	Tags        []string    `json:"tags,omitempty"`

	// Extensions are inlined as top level extensions:* members
	Extensions map[string]json.RawMessage `json:"-"`
}

// MarshalJSON merges the extension payloads into the document
func (d BadgeDoc) MarshalJSON() ([]byte, error) {
	type plain BadgeDoc
	base, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extensions) == 0 {
		return base, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for name, payload := range d.Extensions {
		obj[name] = payload
	}
	return json.Marshal(obj)
}

// RecipientDoc is the OB2 identity block. Identity is always the salted
// sha256 hash, plaintext email never leaves the platform
type RecipientDoc struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
	Hashed   bool   `json:"hashed"`
	Salt     string `json:"salt,omitempty"`
}

// VerificationDoc marks the assertion as hosted
type VerificationDoc struct {
	Type string `json:"type"`
}

// EvidenceDoc is one OB2 evidence item
type EvidenceDoc struct {
	ID        string `json:"id,omitempty"`
	Narrative string `json:"narrative,omitempty"`
}

// AssertionDoc is the hosted OB2 assertion document. Badge holds the
// badgeclass IRI or, on expanded reads, the embedded BadgeDoc
type AssertionDoc struct {
	Context      string          `json:"@context"`
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	Recipient    RecipientDoc    `json:"recipient"`
	Badge        any             `json:"badge"`
	Verification VerificationDoc `json:"verification"`
	IssuedOn     string          `json:"issuedOn"`
	Expires      string          `json:"expires,omitempty"`
	Narrative    string          `json:"narrative,omitempty"`
	Evidence     []EvidenceDoc   `json:"evidence,omitempty"`
}

// RevocationDoc replaces the assertion document once revoked and is
// served with 410 Gone
type RevocationDoc struct {
	Context          string `json:"@context"`
	ID               string `json:"id"`
	Revoked          bool   `json:"revoked"`
	RevocationReason string `json:"revocationReason,omitempty"`
}

// AssertionResult is what the public assertion endpoint serves. Exactly
// one of Doc and Gone is set
type AssertionResult struct {
	Doc  *AssertionDoc
	Gone *RevocationDoc
}
