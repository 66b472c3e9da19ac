// Package similarity compares product titles: keyword normalization, Jaccard
// similarity and variant detection.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThreshold is the Jaccard similarity at which two titles are
// considered the same kind of product.
const DefaultThreshold = 0.5

// stopWords are dropped before comparing titles.
var stopWords = setOf(
	"de", "para", "con", "sin", "el", "la", "los", "las", "un", "una",
	"unos", "unas", "y", "o", "a", "en", "del", "al", "bebe", "bebé",
	"pack", "set", "unidades", "meses", "años", "mese", "ano",
)

// variantMarkers are words that tell versions of one product apart without
// making it a different product: platforms, colors, sizes and plain editions.
var variantMarkers = setOf(
	// platforms
	"ps4", "ps5", "playstation", "xbox", "series", "one", "switch", "nintendo",
	"steam", "pc", "mac",
	// colors
	"rojo", "roja", "azul", "verde", "negro", "negra", "blanco", "blanca",
	"rosa", "gris", "amarillo", "amarilla", "morado", "morada", "naranja",
	"beige", "marrón", "marron", "lila", "turquesa", "dorado", "dorada",
	"plateado", "plateada", "red", "blue", "green", "black", "white", "pink",
	"grey", "gray", "yellow", "purple", "orange",
	// sizes and editions
	"talla", "size", "pequeño", "pequeña", "mediano", "mediana", "grande",
	"standard", "estándar", "estandar", "edition", "edición", "edicion",
)

// Set is the keyword set of a title.
type Set map[string]struct{}

// Tokens reduces a title to its comparable keywords: lowercase, purely
// alphabetic words longer than two letters, stop words removed.
func Tokens(title string) Set {
	out := make(Set)
	for _, w := range words(title) {
		if !isAlpha(w) || utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	return float64(common) / float64(union)
}

// TitlesSimilar reports whether a and b share at least threshold of their
// keywords. A title without keywords is never similar to anything.
func TitlesSimilar(a, b string, threshold float64) bool {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	return Jaccard(ta, tb) >= threshold
}

// SimilarToRecent reports whether title is similar to any of recent.
func SimilarToRecent(title string, recent []string) bool {
	for _, r := range recent {
		if TitlesSimilar(title, r, DefaultThreshold) {
			return true
		}
	}
	return false
}

// AreVariants reports whether a and b are distinct listings of the same
// product that differ only in platform, color, size or plain edition.
// Identical titles are the same product, not variants.
func AreVariants(a, b string) bool {
	if len(Tokens(a)) == 0 || len(Tokens(b)) == 0 {
		return false
	}
	if signature(a) == signature(b) {
		return false
	}

	baseA, baseB := base(a), base(b)
	if len(baseA) == 0 || len(baseB) == 0 {
		return false
	}
	return equalSets(baseA, baseB)
}

// Markers returns the variant marker words of title in their original
// spelling, e.g. "PS4" or "Rosa".
func Markers(title string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(title, notWordRune) {
		if _, ok := variantMarkers[lower(w)]; ok {
			out = append(out, w)
		}
	}
	return out
}

func base(title string) Set {
	out := Tokens(title)
	for w := range out {
		if _, marker := variantMarkers[w]; marker {
			delete(out, w)
		}
	}
	return out
}

// signature keeps every word, digits included, so "FIFA 26 PS5" and
// "FIFA 26 PS4" differ even though their keywords match.
func signature(title string) string {
	return strings.Join(words(title), " ")
}

func words(title string) []string {
	return strings.FieldsFunc(lower(title), notWordRune)
}

func lower(s string) string {
	return cases.Lower(language.Spanish).String(s)
}

func notWordRune(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}

func isAlpha(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func equalSets(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for w := range a {
		if _, ok := b[w]; !ok {
			return false
		}
	}
	return true
}

func setOf(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}
