// Package id generates the opaque identifiers used for users, pages and notices.
package id

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rotisserie/eris"
)

// Prefixes for the identifiers issued by LandAI.
const (
	PrefixUser   = "user"
	PrefixPage   = "page"
	PrefixNotice = "note"
	PrefixToken  = "token"
)

// Generate creates a prefixed unique ID using NanoID, e.g. "page-V1StGXR8_Z5jdHi6B-myT".
// The 21 character body uses the URL-safe alphabet so ids can appear in paths unescaped.
func Generate(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", eris.New("id prefix is required")
	}

	value, err := gonanoid.New()
	if err != nil {
		return "", eris.Wrap(err, "generate nanoid")
	}
	return prefix + "-" + value, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	value, err := Generate(prefix)
	if err != nil {
		panic("failed to generate ID: " + err.Error())
	}
	return value
}
