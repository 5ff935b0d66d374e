package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// phonePattern accepts domestic numbers: a leading 0 and 10 or 11 digits.
var phonePattern = regexp.MustCompile(`^0\d{9,10}$`)

// NormalizePhone folds full-width characters to ASCII and removes hyphens and
// whitespace.
func NormalizePhone(phone string) string {
	folded := width.Fold.String(phone)
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// DedupeToken validates phone and returns the hex SHA-256 of its normalized
// form. The raw number is never stored.
func DedupeToken(phone string) (string, error) {
	normalized := NormalizePhone(phone)
	if !phonePattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: phone number must be 10 or 11 digits starting with 0", ErrInvalidApplication)
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}
