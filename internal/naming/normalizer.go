// Package naming normalizes free-text product names into the two canonical
// forms the referential works with: a human-facing display name and an
// order-insensitive matching key.
package naming

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Trade acronyms that stay fully upper-cased in display names instead of
// being title-cased like regular words.
var acronyms = map[string]struct{}{
	"EPI": {}, "PVC": {}, "DN": {}, "PN": {}, "PM": {}, "GM": {},
	"HP": {}, "BP": {}, "HT": {}, "BT": {}, "LED": {}, "IP": {},
	"UV": {}, "PE": {}, "PP": {}, "HD": {}, "BD": {}, "AC": {},
	"DC": {}, "CEM": {}, "NF": {}, "ISO": {}, "HDPE": {}, "PPN": {},
	"PPR": {}, "PEHD": {}, "GE": {}, "TN": {}, "TP": {}, "BTP": {},
	"VRD": {}, "PV": {},
}

// NormalizeDisplayName trims and collapses whitespace, then title-cases each
// word. Words whose alphanumeric core is a known trade acronym are upper-cased
// verbatim instead. The function is idempotent.
func NormalizeDisplayName(raw string) string {
	words := strings.Fields(strings.ToLower(raw))
	for i, word := range words {
		stripped := stripNonAlnum(word)
		upper := strings.ToUpper(stripped)
		if _, ok := acronyms[upper]; ok && stripped != "" {
			words[i] = strings.Replace(word, stripped, upper, 1)
			continue
		}
		words[i] = capitalize(word)
	}
	return strings.Join(words, " ")
}

// Key derives the matching key used for exact and fuzzy duplicate detection:
// lower-cased, diacritics stripped, punctuation replaced by spaces, and the
// remaining tokens sorted alphabetically so word order does not matter.
func Key(name string) string {
	lowered := strings.ToLower(name)
	folded, _, err := transform.String(foldTransformer(), lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// foldTransformer decomposes to NFD and drops combining marks, turning
// "é" into "e" and so on.
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func stripNonAlnum(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func capitalize(word string) string {
	for i, r := range word {
		return word[:i] + string(unicode.ToUpper(r)) + word[i+len(string(r)):]
	}
	return word
}
