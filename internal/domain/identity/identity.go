// Package identity extracts the applicant's national identity number
// (cédula de ciudadanía) from document text.
package identity

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoApplicantID is returned when the text carries no identity number.
var ErrNoApplicantID = errors.New("no applicant id in text")

var cedulaPattern = regexp.MustCompile(
	`(?i)(?:CC|cedula(?: de ciudadania)?|cedula)(?:\s*(?:numero|num|No\.?|No:)\s*[:\s]*)?([\d\.\s]+)`,
)

// FoldAccents strips combining marks, so "Cédula" becomes "Cedula".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ExtractCedula returns the digits of the first identity number introduced
// by "CC", "cedula" or "cedula de ciudadania", ignoring case and accents.
func ExtractCedula(text string) (string, error) {
	m := cedulaPattern.FindStringSubmatch(FoldAccents(text))
	if m == nil {
		return "", ErrNoApplicantID
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	if digits == "" {
		return "", ErrNoApplicantID
	}
	return digits, nil
}
