package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// headerFolder strips diacritics: decompose, drop combining marks, recompose.
var headerFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader folds a raw CSV header into the snake_case form the rest
// of the pipeline expects: accents stripped, lowercased, every run of
// non-alphanumerics collapsed into a single underscore.
//
//	"Order Purchase Timestamp " -> "order_purchase_timestamp"
//	"Preço (R$)"                -> "preco_r"
func NormalizeHeader(h string) string {
	folded, _, err := transform.String(headerFolder, h)
	if err != nil {
		folded = h
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	b.Grow(len(folded))
	underscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
