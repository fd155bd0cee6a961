package obi

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// RecipientProfile holds a user's verified identifiers for recipient checks
type RecipientProfile struct {
	Emails     []string
	Telephones []string
	URLs       []string
}

// Empty reports whether the profile carries no identifiers
func (p RecipientProfile) Empty() bool {
	return len(p.Emails) == 0 && len(p.Telephones) == 0 && len(p.URLs) == 0
}

// HashIdentity produces the salted hash string for an identity in the
// "alg$hex" form the Open Badges spec uses. alg is sha256 or md5
func HashIdentity(alg, identity, salt string) string {
	switch strings.ToLower(alg) {
	case "md5":
		sum := md5.Sum([]byte(identity + salt))
		return "md5$" + hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256([]byte(identity + salt))
		return "sha256$" + hex.EncodeToString(sum[:])
	}
}

// equalFold compares in constant time after lowercasing both sides
func equalFold(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// matchesHash compares a candidate against an "alg$hex" identity hash in
// constant time
func matchesHash(identityHash, candidate, salt string) bool {
	alg, _, ok := strings.Cut(identityHash, "$")
	if !ok {
		return false
	}
	computed := HashIdentity(alg, candidate, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(identityHash)) == 1
}

// emailVariants expands an email with its mailto: form. Case is preserved
// because hashed identities are computed over the raw string
func emailVariants(email string) []string {
	e := strings.TrimSpace(email)
	if e == "" {
		return nil
	}
	if len(e) > 7 && strings.EqualFold(e[:7], "mailto:") {
		e = e[7:]
	}
	return []string{e, "mailto:" + e}
}

// MatchIdentity checks an OB2 identity object against the profile and
// returns the matched identifier
func MatchIdentity(id IdentityObject, profile RecipientProfile) (string, bool) {
	var candidates []string
	switch strings.TrimPrefix(strings.ToLower(id.Type), "id:") {
	case "email", "emailaddress", "":
		for _, e := range profile.Emails {
			candidates = append(candidates, emailVariants(e)...)
		}
	case "telephone":
		candidates = profile.Telephones
	case "url":
		candidates = profile.URLs
	default:
		return "", false
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if id.Hashed {
			if matchesHash(id.Identity, c, id.Salt) {
				return canonicalIdentifier(c), true
			}
		} else if equalFold(id.Identity, c) {
			return canonicalIdentifier(c), true
		}
	}
	return "", false
}

// MatchCredentialSubject checks OB3 identifier claims against the profile
// emails and returns the matched email. Only emailAddress claims participate
func MatchCredentialSubject(subject CredentialSubject, profile RecipientProfile) (string, bool) {
	for _, claim := range subject.Identifier {
		if !strings.EqualFold(claim.IdentityType, "emailAddress") {
			continue
		}
		for _, email := range profile.Emails {
			if email == "" {
				continue
			}
			if matchesHash(claim.IdentityHash, email, claim.Salt) {
				return email, true
			}
			// some issuers store the plain address
			if equalFold(claim.IdentityHash, email) {
				return email, true
			}
		}
	}
	return "", false
}

// canonicalIdentifier strips the mailto: wrapping a variant may carry
func canonicalIdentifier(c string) string {
	if rest, ok := strings.CutPrefix(strings.ToLower(c), "mailto:"); ok {
		return rest
	}
	return c
}
