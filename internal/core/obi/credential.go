package obi

import (
	"encoding/json"
)

// OB3 verifiable credential model. Field names follow the 3.0 spec with the
// 2.0-era aliases the wild still carries

// IdentityClaim is one credentialSubject identifier entry
type IdentityClaim struct {
	Type         StringList `json:"type,omitempty"`
	IdentityType string     `json:"identityType"`
	IdentityHash string     `json:"identityHash"`
	Hashed       bool       `json:"hashed,omitempty"`
	Salt         string     `json:"salt,omitempty"`
}

// Achievement is the OB3 counterpart of a badgeclass
type Achievement struct {
	ID          string          `json:"id"`
	Type        StringList      `json:"type,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       ImageRef        `json:"image,omitempty"`
	Criteria    json.RawMessage `json:"criteria,omitempty"`
}

// CredentialSubject carries the recipient identifiers and the achievement
type CredentialSubject struct {
	ID          string          `json:"id,omitempty"`
	Type        StringList      `json:"type,omitempty"`
	Identifier  []IdentityClaim `json:"identifier,omitempty"`
	Achievement Achievement     `json:"achievement"`
}

// CredentialIssuer is the OB3 issuer profile, an IRI or embedded profile
type CredentialIssuer struct {
	ID    string     `json:"id"`
	Type  StringList `json:"type,omitempty"`
	Name  string     `json:"name,omitempty"`
	URL   string     `json:"url,omitempty"`
	Email string     `json:"email,omitempty"`
	Image ImageRef   `json:"image,omitempty"`
}

// UnmarshalJSON accepts an IRI string or an embedded issuer profile
func (ci *CredentialIssuer) UnmarshalJSON(b []byte) error {
	var ref NodeRef
	if err := ref.UnmarshalJSON(b); err != nil {
		return err
	}
	if len(ref.Node) == 0 {
		*ci = CredentialIssuer{ID: ref.IRI}
		return nil
	}
	type alias CredentialIssuer
	var a alias
	if err := json.Unmarshal(ref.Node, &a); err != nil {
		return err
	}
	*ci = CredentialIssuer(a)
	return nil
}

// Credential is an OB3 OpenBadgeCredential
type Credential struct {
	Context           json.RawMessage   `json:"@context,omitempty"`
	ID                string            `json:"id,omitempty"`
	Type              StringList        `json:"type"`
	Issuer            CredentialIssuer  `json:"issuer"`
	ValidFrom         string            `json:"validFrom,omitempty"`
	ValidUntil        string            `json:"validUntil,omitempty"`
	IssuanceDate      string            `json:"issuanceDate,omitempty"`
	ExpirationDate    string            `json:"expirationDate,omitempty"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// IssuedAt returns validFrom falling back to issuanceDate
func (c *Credential) IssuedAt() string {
	if c.ValidFrom != "" {
		return c.ValidFrom
	}
	return c.IssuanceDate
}

// ExpiresAt returns validUntil falling back to expirationDate
func (c *Credential) ExpiresAt() string {
	if c.ValidUntil != "" {
		return c.ValidUntil
	}
	return c.ExpirationDate
}

// IsCredential reports whether a decoded JSON object is an OB3 credential:
// a v3 context or a VerifiableCredential/OpenBadgeCredential type
func IsCredential(raw []byte) bool {
	var probe struct {
		Context json.RawMessage `json:"@context"`
		Type    StringList      `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if IsV3Context(probe.Context) {
		return true
	}
	return probe.Type.Has("VerifiableCredential") || probe.Type.Has("OpenBadgeCredential")
}
