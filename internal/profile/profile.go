// Package profile holds the static registry of wallet and bank receipt layouts
// and the local, signature based document classifier.
package profile

import (
	"regexp"

	"github.com/zombor/receipt-forensics/internal/parsing"
)

// GenericID is the issuer key of the fallback profile.
const GenericID = "generic"

// Profile describes how one issuer lays out its payment receipts.
type Profile struct {
	ID   string
	Name string
	// Signatures are OR-matched against the full OCR text.
	Signatures []*regexp.Regexp
	// Senders and Receivers are tried in order; the first capture wins.
	Senders   []*regexp.Regexp
	Receivers []*regexp.Regexp
	// AmountAnchor matches the line printed right below the amount field.
	AmountAnchor *regexp.Regexp
	DateHint     parsing.DateLayout
}

// IsGeneric reports whether p is the fallback profile.
func (p Profile) IsGeneric() bool {
	return p.ID == GenericID
}

// Matches reports whether any signature matches text.
func (p Profile) Matches(text string) bool {
	for _, sig := range p.Signatures {
		if sig.MatchString(text) {
			return true
		}
	}
	return false
}

// Detect returns the first registered profile whose signature matches text.
// The generic profile closes the list, so Detect always returns a profile.
func Detect(text string) Profile {
	for _, p := range registry[:len(registry)-1] {
		if p.Matches(text) {
			return p
		}
	}
	return registry[len(registry)-1]
}

// ByID returns the profile registered under an issuer key.
func ByID(id string) (Profile, bool) {
	for _, p := range registry {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Registry returns the registered profiles, most specific first and the
// generic profile last. The returned slice is a copy.
func Registry() []Profile {
	return append([]Profile(nil), registry...)
}

// IDs returns every issuer key, in registry order.
func IDs() []string {
	ids := make([]string, len(registry))
	for i, p := range registry {
		ids[i] = p.ID
	}
	return ids
}
