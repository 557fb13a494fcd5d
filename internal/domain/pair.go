package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Pair is an ordered base/quote currency combination, "USD-INR" meaning INR per 1 USD.
type Pair string

const DefaultPair Pair = "USD-INR"

var codeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// NewPair normalizes both codes to upper case and validates them.
func NewPair(base, quote string) (Pair, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if !codeRe.MatchString(base) || !codeRe.MatchString(quote) {
		return "", fmt.Errorf("%w: invalid currency code %q/%q", ErrValidation, base, quote)
	}
	if base == quote {
		return "", fmt.Errorf("%w: identical currencies %s", ErrValidation, base)
	}
	return Pair(base + "-" + quote), nil
}

func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "-")
	if !ok {
		return "", fmt.Errorf("%w: invalid pair %q", ErrValidation, s)
	}
	return NewPair(base, quote)
}

func (p Pair) Base() string {
	base, _, _ := strings.Cut(string(p), "-")
	return base
}

func (p Pair) Quote() string {
	_, quote, _ := strings.Cut(string(p), "-")
	return quote
}

func (p Pair) String() string { return string(p) }

// DailyReferenceKey is the derived partition key holding the reference rate for
// the UTC calendar date of t.
func (p Pair) DailyReferenceKey(t time.Time) string {
	return string(p) + "-DAILY-" + t.UTC().Format(time.DateOnly)
}
