// Package email derives display names from addresses. Contacts imported from
// external estate documents often arrive without a name, so messages fall
// back to a greeting built from the local part of the address.
package email

import (
	"strings"
	"unicode"
)

// GreetingName returns a capitalized first name guessed from the local part
// of an email address. An empty string means nothing usable was found.
func GreetingName(addr string) string {
	local := addr
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		local = addr[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsDigit(r)
	})
	if len(parts) == 0 {
		return ""
	}

	runes := []rune(strings.ToLower(parts[0]))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
