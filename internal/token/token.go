// Package token issues and recognizes the correlation tokens that tie
// outbound messages to their replies. A token is the configured prefix
// followed by 8 upper-case alphanumeric characters, embedded in subject
// lines as "[token] ...".
package token

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Issuer generates unique correlation tokens.
type Issuer struct {
	prefix string
}

// NewIssuer returns an Issuer for the given prefix.
func NewIssuer(prefix string) *Issuer {
	return &Issuer{prefix: prefix}
}

// Issue returns a fresh token: the prefix plus the first 8 hex digits of
// a random v4 UUID, upper-cased. Collisions are possible in principle
// but never observed over the lifetime of a campaign.
func (i *Issuer) Issue() string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return i.prefix + suffix
}

// Subject composes an outbound subject line carrying tok.
func Subject(tok, base string) string {
	return fmt.Sprintf("[%s] %s", tok, base)
}

// Matcher recognizes bracketed tokens in arbitrary reply text.
type Matcher struct {
	prefix string
	re     *regexp.Regexp
}

// NewMatcher builds a Matcher for the given prefix. Matching is
// case-insensitive in the suffix; extracted tokens are normalized to the
// canonical upper-case form so store lookups always hit.
func NewMatcher(prefix string) *Matcher {
	re := regexp.MustCompile(`(?i)\[` + regexp.QuoteMeta(prefix) + `([A-Za-z0-9]{8})\]`)
	return &Matcher{prefix: prefix, re: re}
}

// Find returns the first token in text, if any.
func (m *Matcher) Find(text string) (string, bool) {
	match := m.re.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return m.prefix + strings.ToUpper(match[1]), true
}

// Extract tries each text source in order and returns the first token
// found. Sources are functions so that expensive ones (rendered HTML)
// are only materialized when every earlier source misses.
func (m *Matcher) Extract(sources ...func() string) (string, bool) {
	for _, src := range sources {
		if tok, ok := m.Find(src()); ok {
			return tok, true
		}
	}
	return "", false
}
