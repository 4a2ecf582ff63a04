// Package htmlsafe strips script-capable markup from stored landing pages before
// they are served to anonymous visitors.
package htmlsafe

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var elementID = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Sanitizer rewrites HTML fragments through an allow-list policy. Anything the policy
// does not name, including SVG, inline styles and event handlers, is dropped.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New returns a Sanitizer using the user-generated-content policy extended with the
// attributes Tailwind-styled landing pages rely on.
func New() *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	policy.AllowAttrs("id").Matching(elementID).Globally()
	policy.AllowElements("header", "footer", "nav", "main", "section", "article", "aside", "figure", "figcaption")
	policy.AllowElements("button")
	policy.AllowAttrs("type").Matching(regexp.MustCompile(`^(button|submit|reset)$`)).OnElements("button")

	return &Sanitizer{policy: policy}
}

// Sanitize returns content with every element and attribute outside the policy removed.
func (s *Sanitizer) Sanitize(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", nil
	}
	return strings.TrimSpace(s.policy.Sanitize(trimmed)), nil
}
