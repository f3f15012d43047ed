// Package phone normalizes guest phone numbers into the canonical
// international form used everywhere else in the service.
package phone

import (
	"fmt"
	"regexp"
	"strings"

	"wedding-rsvp/internal/models"
)

// CountryPrefix is the dialing prefix all guest numbers normalize to.
const CountryPrefix = "+972"

// Israeli mobile numbers: country prefix, trunk digit 5, then 8 more digits.
var mobilePattern = regexp.MustCompile(`^\+9725\d{8}$`)

// Normalize converts a raw phone number into the canonical +9725XXXXXXXX
// form. Accepted inputs are local numbers starting with 0 (05X...), trunk
// numbers missing the leading zero (5X...), and numbers already carrying the
// country code with or without the plus. Anything that does not validate as
// an Israeli mobile number after normalization returns ErrInvalidPhone.
//
// Normalize is idempotent: feeding it its own output yields the same value.
func Normalize(raw string) (string, error) {
	n := strip(raw)
	if n == "" {
		return "", fmt.Errorf("%w: empty number", models.ErrInvalidPhone)
	}

	switch {
	case strings.HasPrefix(n, "0"):
		n = CountryPrefix + n[1:]
	case strings.HasPrefix(n, "5"):
		n = CountryPrefix + n
	case strings.HasPrefix(n, "972"):
		n = "+" + n
	default:
		n = "+" + n
	}

	// 9720 means the local leading zero survived next to the country code.
	if strings.HasPrefix(n, "+9720") {
		n = CountryPrefix + n[len("+9720"):]
	}

	if !mobilePattern.MatchString(n) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidPhone, raw)
	}
	return n, nil
}

// Dialable returns the number without the plus, the form the WhatsApp
// transport expects when building a JID.
func Dialable(canonical string) string {
	return strings.TrimPrefix(canonical, "+")
}

func strip(raw string) string {
	r := strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "")
	return r.Replace(strings.TrimSpace(raw))
}
