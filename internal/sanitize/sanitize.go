// Package sanitize cleans admin-entered text before it is stored.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
	})
	return policy
}

// HTML strips unsafe markup (scripts, event handlers, javascript: URLs) from
// a rich-text value such as a form description and trims surrounding space.
// Input the policy leaves intact is returned as entered, so plain text with
// &, < or > is not entity-escaped.
func HTML(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	clean := strings.TrimSpace(getPolicy().Sanitize(trimmed))
	if html.UnescapeString(clean) == trimmed {
		return trimmed
	}
	return clean
}
