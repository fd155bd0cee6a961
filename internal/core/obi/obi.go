// Package obi models Open Badges assertions and verifies them.
// It covers the OB2 node graph (assertion, badgeclass, issuer, keys,
// revocation lists) and OB3 verifiable credentials. Remote fetches go through
// the Fetcher seam; the package itself never mutates anything
package obi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Open Badges context IRIs
const (
	ContextV1       = "https://w3id.org/openbadges/v1"
	ContextV2       = "https://w3id.org/openbadges/v2"
	ContextV3Prefix = "https://purl.imsglobal.org/spec/ob/v3"
)

// StringList accepts a JSON string or array of strings
type StringList []string

// UnmarshalJSON implements the string-or-array convention of JSON-LD types
func (s *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = nil
		return nil
	}
	if b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}

// Has reports whether v is present, case-insensitive
func (s StringList) Has(v string) bool {
	for _, x := range s {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

// NodeRef is a JSON-LD value that may be an IRI string or an embedded node.
// IRI is always populated when derivable; Node holds the raw embedded object
type NodeRef struct {
	IRI  string
	Node json.RawMessage
}

// UnmarshalJSON accepts "https://..." or {...}
func (r *NodeRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = NodeRef{}
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.IRI)
	}
	r.Node = append(json.RawMessage(nil), b...)
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	r.IRI = probe.ID
	return nil
}

// Empty reports whether the reference carries neither an IRI nor a node
func (r NodeRef) Empty() bool { return r.IRI == "" && len(r.Node) == 0 }

// ImageRef accepts an IRI string or an image object with an id
type ImageRef string

// UnmarshalJSON accepts "https://..." or {"id": "https://..."}
func (i *ImageRef) UnmarshalJSON(b []byte) error {
	var ref NodeRef
	if err := ref.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = ImageRef(ref.IRI)
	return nil
}

// IdentityObject is the OB2 recipient block
type IdentityObject struct {
	Identity string `json:"identity"`
	Type     string `json:"type"`
	Hashed   bool   `json:"hashed"`
	Salt     string `json:"salt,omitempty"`
}

// VerificationObject describes how an assertion is verified
type VerificationObject struct {
	Type    StringList `json:"type"`
	URL     string     `json:"url,omitempty"`
	Creator string     `json:"creator,omitempty"`
}

// Hosted reports whether the verification type is hosted
func (v *VerificationObject) Hosted() bool {
	if v == nil || len(v.Type) == 0 {
		return true // hosted is the OB2 default
	}
	return v.Type.Has("hosted") || v.Type.Has("HostedBadge")
}

// Signed reports whether the verification type is signed
func (v *VerificationObject) Signed() bool {
	if v == nil {
		return false
	}
	return v.Type.Has("signed") || v.Type.Has("SignedBadge")
}

// Assertion is an OB2 assertion node
type Assertion struct {
	Context          json.RawMessage     `json:"@context,omitempty"`
	ID               string              `json:"id"`
	Type             StringList          `json:"type"`
	UID              string              `json:"uid,omitempty"`
	Recipient        IdentityObject      `json:"recipient"`
	Badge            NodeRef             `json:"badge"`
	Verification     *VerificationObject `json:"verification,omitempty"`
	Verify           *VerificationObject `json:"verify,omitempty"` // legacy alias
	IssuedOn         string              `json:"issuedOn,omitempty"`
	Expires          string              `json:"expires,omitempty"`
	Revoked          bool                `json:"revoked,omitempty"`
	RevocationReason string              `json:"revocationReason,omitempty"`
	Narrative        string              `json:"narrative,omitempty"`
	Image            ImageRef            `json:"image,omitempty"`
	Evidence         json.RawMessage     `json:"evidence,omitempty"`
}

// VerificationInfo returns the effective verification block, honoring the
// legacy verify alias
func (a *Assertion) VerificationInfo() *VerificationObject {
	if a.Verification != nil {
		return a.Verification
	}
	return a.Verify
}

// BadgeClass is an OB2 badgeclass node
type BadgeClass struct {
	Context     json.RawMessage `json:"@context,omitempty"`
	ID          string          `json:"id"`
	Type        StringList      `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       ImageRef        `json:"image,omitempty"`
	Criteria    NodeRef         `json:"criteria,omitempty"`
	Issuer      NodeRef         `json:"issuer"`
	Tags        []string        `json:"tags,omitempty"`
}

// Issuer is an OB2 issuer profile node
type Issuer struct {
	Context        json.RawMessage `json:"@context,omitempty"`
	ID             string          `json:"id"`
	Type           StringList      `json:"type"`
	Name           string          `json:"name"`
	URL            string          `json:"url,omitempty"`
	Email          string          `json:"email,omitempty"`
	Description    string          `json:"description,omitempty"`
	Image          ImageRef        `json:"image,omitempty"`
	PublicKey      NodeRef         `json:"publicKey,omitempty"`
	RevocationList NodeRef         `json:"revocationList,omitempty"`
}

// CryptographicKey is the OB2 key node referenced by signed assertions
type CryptographicKey struct {
	ID           string     `json:"id"`
	Type         StringList `json:"type"`
	Owner        string     `json:"owner"`
	PublicKeyPem string     `json:"publicKeyPem"`
}

// RevokedEntry is one item of a revocation list, a bare id or an object
type RevokedEntry struct {
	ID     string
	UID    string
	Reason string
}

// UnmarshalJSON accepts "urn:uuid:..." or {"id": ..., "revocationReason": ...}
func (e *RevokedEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.ID)
	}
	var obj struct {
		ID     string `json:"id"`
		UID    string `json:"uid"`
		Reason string `json:"revocationReason"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	e.ID, e.UID, e.Reason = obj.ID, obj.UID, obj.Reason
	return nil
}

// RevocationList is the OB2 revocation list node
type RevocationList struct {
	ID                string         `json:"id"`
	Type              StringList     `json:"type"`
	RevokedAssertions []RevokedEntry `json:"revokedAssertions"`
}

// Contains reports whether the list revokes an assertion id or uid and
// returns the recorded reason when present
func (l *RevocationList) Contains(id, uid string) (string, bool) {
	if l == nil {
		return "", false
	}
	for _, e := range l.RevokedAssertions {
		if (id != "" && e.ID == id) || (uid != "" && (e.UID == uid || e.ID == uid)) {
			return e.Reason, true
		}
	}
	return "", false
}

// ParseTime parses OB timestamps: RFC3339 variants or unix seconds
func ParseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("obi: empty timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("obi: unparseable timestamp %q", v)
}

// contextIRIs flattens an @context value into its string IRIs
func contextIRIs(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return []string{s}
		}
		return nil
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return nil
		}
		var out []string
		for _, it := range items {
			out = append(out, contextIRIs(it)...)
		}
		return out
	}
	return nil
}

// IsV3Context reports whether an @context value names Open Badges 3.x
func IsV3Context(raw json.RawMessage) bool {
	for _, iri := range contextIRIs(raw) {
		if strings.HasPrefix(iri, ContextV3Prefix) {
			return true
		}
	}
	return false
}

// IsV1Context reports whether an @context value names Open Badges 1.x
func IsV1Context(raw json.RawMessage) bool {
	for _, iri := range contextIRIs(raw) {
		if iri == ContextV1 {
			return true
		}
	}
	return false
}
