package obi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Fetcher resolves an IRI to its JSON document. Implementations enforce
// transport policy (schemes, size caps, timeouts)
type Fetcher interface {
	FetchJSON(ctx context.Context, iri string) ([]byte, error)
}

// Badge format versions reported on results
const (
	VersionOB2 = "2.0"
	VersionOB3 = "3.0"
)

// VerifyResult bundles the report with the resolved graph
type VerifyResult struct {
	Report  Report
	Version string

	Assertion  *Assertion
	BadgeClass *BadgeClass
	Issuer     *Issuer
	Credential *Credential

	AssertionJSON  json.RawMessage
	BadgeClassJSON json.RawMessage
	IssuerJSON     json.RawMessage

	RecipientType string
	RecipientID   string
}

// Verifier checks assertions against their hosted or signed proofs
type Verifier struct {
	fetch Fetcher
	now   func() time.Time
}

// NewVerifier builds a Verifier around a fetcher
func NewVerifier(f Fetcher) *Verifier {
	return &Verifier{fetch: f, now: time.Now}
}

// Verify runs the full check for one input and recipient profile.
// The report carries every finding; Valid is false when any error was recorded
func (v *Verifier) Verify(ctx context.Context, in Input, profile RecipientProfile) *VerifyResult {
	res := &VerifyResult{Version: VersionOB2}

	raw, ok := v.resolveInput(ctx, in, res)
	if !ok {
		res.Report.Finalize()
		return res
	}

	if IsCredential(raw) {
		v.verifyCredential(ctx, raw, profile, res)
		res.Report.Finalize()
		return res
	}

	var ctxProbe struct {
		Context json.RawMessage `json:"@context"`
	}
	_ = json.Unmarshal(raw, &ctxProbe)
	if IsV1Context(ctxProbe.Context) {
		res.Report.AddError(CodeUnableToVerify, "Open Badges 1.x assertions are not supported")
		res.Report.Finalize()
		return res
	}

	v.verifyAssertion(ctx, raw, in, profile, res)
	res.Report.Finalize()
	return res
}

// resolveInput turns the input into assertion JSON bytes
func (v *Verifier) resolveInput(ctx context.Context, in Input, res *VerifyResult) ([]byte, bool) {
	switch in.Kind {
	case KindURL:
		raw, err := v.fetch.FetchJSON(ctx, in.URL)
		if err != nil {
			res.Report.AddError(CodeFetchHTTPNode, in.URL)
			return nil, false
		}
		return raw, true
	case KindJWS:
		payload, err := JWSPayload(in.JWS)
		if err != nil {
			res.Report.AddError(CodeUnableToVerify, err.Error())
			return nil, false
		}
		return payload, true
	default:
		return in.JSON, true
	}
}

func (v *Verifier) verifyAssertion(ctx context.Context, raw []byte, in Input, profile RecipientProfile, res *VerifyResult) {
	var a Assertion
	if err := json.Unmarshal(raw, &a); err != nil {
		res.Report.AddError(CodeUnableToVerify, "unparseable assertion")
		return
	}
	res.Assertion = &a
	res.AssertionJSON = canonicalJSON(raw)

	if a.ID == "" && a.UID == "" {
		res.Report.AddError(CodeAssertionNotFound, "assertion has no id")
		return
	}

	// Revocation stubs carry no badge node, so this must run before resolution.
	if a.Revoked {
		res.Report.AddError(CodeAssertionRevoked, a.RevocationReason)
		return
	}

	badge, badgeRaw, ok := v.resolveBadge(ctx, a.Badge, res)
	if !ok {
		return
	}
	res.BadgeClass = badge
	res.BadgeClassJSON = badgeRaw

	issuer, issuerRaw, ok := v.resolveIssuer(ctx, badge.Issuer, res)
	if !ok {
		return
	}
	res.Issuer = issuer
	res.IssuerJSON = issuerRaw

	verification := a.VerificationInfo()
	switch {
	case verification.Signed():
		v.checkSignature(ctx, in, &a, issuer, res)
		v.checkRevocationList(ctx, &a, issuer, res)
	case verification.Hosted():
		v.checkHosted(ctx, raw, &a, verification, in, res)
	}

	v.checkExpiry(a.Expires, res)
	v.checkRecipient(a.Recipient, profile, res)
}

func (v *Verifier) resolveBadge(ctx context.Context, ref NodeRef, res *VerifyResult) (*BadgeClass, json.RawMessage, bool) {
	raw, ok := v.resolveNode(ctx, ref, res)
	if !ok {
		return nil, nil, false
	}
	var b BadgeClass
	if raw == nil || json.Unmarshal(raw, &b) != nil || b.Name == "" {
		res.Report.AddError(CodeAssertionNotFound, "Unable to find a badgeclass")
		return nil, nil, false
	}
	return &b, canonicalJSON(raw), true
}

func (v *Verifier) resolveIssuer(ctx context.Context, ref NodeRef, res *VerifyResult) (*Issuer, json.RawMessage, bool) {
	raw, ok := v.resolveNode(ctx, ref, res)
	if !ok {
		return nil, nil, false
	}
	var is Issuer
	if raw == nil || json.Unmarshal(raw, &is) != nil || (is.Name == "" && is.ID == "") {
		res.Report.AddError(CodeAssertionNotFound, "Unable to find an issuer")
		return nil, nil, false
	}
	return &is, canonicalJSON(raw), true
}

// resolveNode returns embedded node bytes or fetches the IRI.
// A fetch failure records FETCH_HTTP_NODE and returns ok=false;
// an empty ref returns (nil, true) so callers can report the missing node
func (v *Verifier) resolveNode(ctx context.Context, ref NodeRef, res *VerifyResult) (json.RawMessage, bool) {
	if len(ref.Node) > 0 {
		return ref.Node, true
	}
	if ref.IRI == "" {
		return nil, true
	}
	raw, err := v.fetch.FetchJSON(ctx, ref.IRI)
	if err != nil {
		res.Report.AddError(CodeFetchHTTPNode, ref.IRI)
		return nil, false
	}
	return raw, true
}

// checkHosted re-fetches the hosted assertion and compares it with the input
func (v *Verifier) checkHosted(ctx context.Context, raw []byte, a *Assertion, verification *VerificationObject, in Input, res *VerifyResult) {
	hostURL := a.ID
	if verification != nil && verification.URL != "" {
		hostURL = verification.URL
	}
	if hostURL == "" {
		res.Report.AddError(CodeUnableToVerify, "hosted assertion has no verification url")
		return
	}

	// the input fetch already is the authoritative copy
	if in.Kind == KindURL && in.URL == hostURL {
		return
	}

	hosted, err := v.fetch.FetchJSON(ctx, hostURL)
	if err != nil {
		res.Report.AddError(CodeFetchHTTPNode, hostURL)
		return
	}

	var hostedA Assertion
	if err := json.Unmarshal(hosted, &hostedA); err != nil {
		res.Report.AddError(CodeUnableToVerify, "hosted assertion is unparseable")
		return
	}
	if hostedA.Revoked {
		res.Report.AddError(CodeAssertionRevoked, hostedA.RevocationReason)
		return
	}
	if !jsonEqual(raw, hosted) {
		res.Report.AddError(CodeUnableToVerify, "hosted assertion does not match the input")
	}
}

// checkSignature verifies the JWS and the signing key's ownership
func (v *Verifier) checkSignature(ctx context.Context, in Input, a *Assertion, issuer *Issuer, res *VerifyResult) {
	if in.Kind != KindJWS {
		res.Report.AddError(CodeVerifySignature, "signed assertion requires a jws input")
		return
	}

	keyRef := issuer.PublicKey
	if verification := a.VerificationInfo(); verification != nil && verification.Creator != "" {
		keyRef = NodeRef{IRI: verification.Creator}
		if issuer.PublicKey.IRI == verification.Creator && len(issuer.PublicKey.Node) > 0 {
			keyRef = issuer.PublicKey
		}
	}
	if keyRef.Empty() {
		res.Report.AddError(CodeVerifySignature, "issuer declares no public key")
		return
	}

	keyRaw, ok := v.resolveNode(ctx, keyRef, res)
	if !ok {
		return
	}
	var key CryptographicKey
	if keyRaw == nil || json.Unmarshal(keyRaw, &key) != nil || key.PublicKeyPem == "" {
		res.Report.AddError(CodeVerifySignature, "signing key is unavailable")
		return
	}

	// key ownership: the key must point back at the issuer, and when the
	// issuer names a key it must be this one
	if key.Owner != "" && key.Owner != issuer.ID {
		res.Report.AddError(CodeVerifySignature, "signing key is not owned by the issuer")
		return
	}
	if issuer.PublicKey.IRI != "" && key.ID != "" && issuer.PublicKey.IRI != key.ID {
		res.Report.AddError(CodeVerifySignature, "signing key does not match the issuer profile")
		return
	}

	if err := verifyJWS(in.JWS, []byte(key.PublicKeyPem)); err != nil {
		res.Report.AddError(CodeVerifySignature, "")
	}
}

// verifyJWS validates an RS256-family compact JWS against a PEM public key
func verifyJWS(token string, pemKey []byte) error {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return fmt.Errorf("obi: parse public key: %w", err)
	}
	_, err = jwt.Parse(token,
		func(t *jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return fmt.Errorf("obi: verify jws: %w", err)
	}
	return nil
}

// checkRevocationList looks the assertion up in the issuer's revocation list
func (v *Verifier) checkRevocationList(ctx context.Context, a *Assertion, issuer *Issuer, res *VerifyResult) {
	if issuer.RevocationList.Empty() {
		return
	}
	raw, ok := v.resolveNode(ctx, issuer.RevocationList, res)
	if !ok || raw == nil {
		return
	}
	var list RevocationList
	if err := json.Unmarshal(raw, &list); err != nil {
		res.Report.AddError(CodeUnableToVerify, "revocation list is unparseable")
		return
	}
	if reason, revoked := list.Contains(a.ID, a.UID); revoked {
		res.Report.AddError(CodeAssertionRevoked, reason)
	}
}

func (v *Verifier) checkExpiry(expires string, res *VerifyResult) {
	if expires == "" {
		return
	}
	t, err := ParseTime(expires)
	if err != nil {
		res.Report.AddError(CodeUnableToVerify, "unparseable expiry timestamp")
		return
	}
	if t.Before(v.now()) {
		res.Report.AddError(CodeAssertionExpired, "")
	}
}

func (v *Verifier) checkRecipient(id IdentityObject, profile RecipientProfile, res *VerifyResult) {
	if profile.Empty() {
		return
	}
	matched, ok := MatchIdentity(id, profile)
	if !ok {
		res.Report.AddError(CodeVerifyRecipient, "")
		return
	}
	idType := id.Type
	if idType == "" {
		idType = "email"
	}
	res.RecipientType = idType
	res.RecipientID = matched
	res.Report.RecipientProfile = map[string]string{idType: matched}
}

// verifyCredential handles the OB3 path: recipient hash match is mandatory,
// issuer and achievement documents are fetched best-effort
func (v *Verifier) verifyCredential(ctx context.Context, raw []byte, profile RecipientProfile, res *VerifyResult) {
	res.Version = VersionOB3

	var c Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		res.Report.AddError(CodeUnableToVerify, "unparseable credential")
		return
	}
	res.Credential = &c
	res.AssertionJSON = canonicalJSON(raw)

	email, ok := MatchCredentialSubject(c.CredentialSubject, profile)
	if !ok {
		res.Report.AddError(CodeRecipientVerification, "")
		return
	}
	res.RecipientType = "email"
	res.RecipientID = email
	res.Report.RecipientProfile = map[string]string{"email": email}

	if until := c.ExpiresAt(); until != "" {
		if t, err := ParseTime(until); err == nil && t.Before(v.now()) {
			res.Report.AddError(CodeAssertionExpired, "")
		}
	}

	// enrich from hosted documents when the ids resolve; failures keep the
	// embedded data
	if c.Issuer.ID != "" {
		if doc, err := v.fetch.FetchJSON(ctx, c.Issuer.ID); err == nil {
			res.IssuerJSON = canonicalJSON(doc)
		}
	}
	if res.IssuerJSON == nil {
		if b, err := json.Marshal(c.Issuer); err == nil {
			res.IssuerJSON = b
		}
	}

	if id := c.CredentialSubject.Achievement.ID; id != "" {
		if doc, err := v.fetch.FetchJSON(ctx, id); err == nil {
			res.BadgeClassJSON = canonicalJSON(doc)
		}
	}
	if res.BadgeClassJSON == nil {
		if b, err := json.Marshal(c.CredentialSubject.Achievement); err == nil {
			res.BadgeClassJSON = b
		}
	}
}

// canonicalJSON re-marshals raw with sorted keys so comparisons and stored
// copies are stable. Unparseable input is returned as-is
func canonicalJSON(raw []byte) json.RawMessage {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return out
}

// jsonEqual compares two JSON documents structurally
func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	ac, err := json.Marshal(av)
	if err != nil {
		return false
	}
	bc, err := json.Marshal(bv)
	if err != nil {
		return false
	}
	return string(ac) == string(bc)
}
