package shared

import (
	"strings"

	"golang.org/x/text/secure/precis"
)

// NormalizeEmail canonicalizes an email identifier before it is sent
// upstream, so "Jane@Example.COM " and "jane@example.com" resolve to the
// same account.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if normalized, err := precis.UsernameCaseMapped.String(email); err == nil {
		return normalized
	}
	return strings.ToLower(email)
}
