// Package normalizer canonicalizes raw extracted values per field kind so
// that values from different documents become comparable. A value that cannot
// be canonicalized passes through raw and is marked non-comparable; one bad
// field never aborts the rest.
package normalizer

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"veridoc/internal/document/models"
)

// Field is one normalized value. Comparable is false when canonicalization
// was skipped and the raw value passed through.
type Field struct {
	Raw        string
	Value      string
	Comparable bool
}

// DateLayout is the canonical date representation used across the engine.
const DateLayout = "2006-01-02"

var dateLayouts = []string{"02/01/2006", "02.01.2006", DateLayout}

// linkingWords are dropped from name fields: they vary freely across
// documents without changing identity.
var linkingWords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true,
}

// addressAbbreviations expand common shorthand before comparison.
var addressAbbreviations = map[string]string{
	"r.":    "rua",
	"av.":   "avenida",
	"ap.":   "apartamento",
	"apt.":  "apartamento",
	"apto":  "apartamento",
	"apto.": "apartamento",
	"bl.":   "bloco",
	"n.":    "numero",
	"nº":    "numero",
}

// Normalize canonicalizes every field of a raw extraction map.
func Normalize(fields map[string]string) map[string]Field {
	out := make(map[string]Field, len(fields))
	for name, raw := range fields {
		value, comparable := Value(name, raw)
		out[name] = Field{Raw: raw, Value: value, Comparable: comparable}
	}
	return out
}

// Value canonicalizes a single value according to its field kind. The second
// return reports whether the result is comparable across documents.
func Value(fieldName, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	switch models.KindOf(fieldName) {
	case models.KindName:
		return normalizeName(raw), true
	case models.KindDate:
		return normalizeDate(raw)
	case models.KindNumeric:
		return normalizeNumeric(raw)
	case models.KindAddress:
		return normalizeAddress(raw), true
	default:
		return collapseWhitespace(strings.ToLower(raw)), true
	}
}

func normalizeName(raw string) string {
	s := stripDiacritics(strings.ToLower(raw))
	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !linkingWords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

func normalizeDate(raw string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), true
		}
	}
	// Ambiguous or unparsable dates pass through and stay non-comparable.
	return raw, false
}

func normalizeNumeric(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return raw, false
	}
	return b.String(), true
}

func normalizeAddress(raw string) string {
	s := stripDiacritics(strings.ToLower(raw))
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if full, ok := addressAbbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
