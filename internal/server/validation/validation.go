// Package validation checks the shape of user-supplied credentials and
// authorization headers. Patterns are compiled once at package init.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	loginMinLen = 5
	loginMaxLen = 20
)

var (
	emailPattern = regexp.MustCompile(`^(.+)@(\S+)$`)
	loginPattern = regexp.MustCompile(`^[A-Za-z0-9]+(?:[._-][A-Za-z0-9]+)*$`)

	passwordLength = regexp.MustCompile(`^[^\n\r]{8,255}$`)
	passwordDigit  = regexp.MustCompile(`[0-9]`)
	passwordLower  = regexp.MustCompile(`[a-z]`)
	passwordUpper  = regexp.MustCompile(`[A-Z]`)
	passwordSymbol = regexp.MustCompile(`[!@#&()–{}:;',?/*~$^+=<>]`)

	bearerPattern = regexp.MustCompile(`^Bearer ([A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+)$`)
)

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidEmail reports whether s looks like local@domain.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidLogin reports whether s is 5 to 20 characters of letters and digits,
// optionally split by single '.', '-' or '_' separators.
func ValidLogin(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < loginMinLen || n > loginMaxLen {
		return false
	}
	return loginPattern.MatchString(s)
}

// ValidPassword reports whether s is 8 to 255 characters on a single line
// and contains a digit, a lowercase letter, an uppercase letter and a symbol.
func ValidPassword(s string) bool {
	return passwordLength.MatchString(s) &&
		passwordDigit.MatchString(s) &&
		passwordLower.MatchString(s) &&
		passwordUpper.MatchString(s) &&
		passwordSymbol.MatchString(s)
}

// Check returns nullErr when value is blank, invalidErr when valid rejects
// it and nil otherwise.
func Check(value string, valid func(string) bool, nullErr, invalidErr error) error {
	if IsBlank(value) {
		return nullErr
	}
	if !valid(value) {
		return invalidErr
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer a.b.c"
// header value. ok is false when the header does not have that shape.
func BearerToken(header string) (token string, ok bool) {
	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	return m[1], true
}
