package feed

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultKeywords covers maize product terms, price and market terms,
// Mexican geography and the agricultural sector.
var DefaultKeywords = []string{
	"maíz", "maiz", "maíz blanco", "maiz blanco",
	"precio", "cotización", "futuros", "chicago", "cbot", "usda", "bushel", "grano", "granos",
	"méxico", "mexico", "tabasco", "villahermosa", "sagarpa", "sader", "sniim",
	"agrícola", "agricola", "agropecuaria", "agroveterinaria", "productores", "cosecha",
	"mercado", "insumos", "tortilla",
	"ganado", "engorda",
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

type Filterer struct {
	keywords []string
}

func NewFilterer(keywords []string) *Filterer {
	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		// An empty keyword would match every text
		if f := strings.TrimSpace(Fold(kw)); f != "" {
			folded = append(folded, f)
		}
	}
	return &Filterer{keywords: folded}
}

// Run returns the relevant subset of items. bodies is optional; when
// present, bodies[i] is the article text fetched for items[i].
func (f *Filterer) Run(items []NewsItem, bodies []string) []NewsItem {
	relevant := make([]NewsItem, 0, len(items))
	for i, item := range items {
		body := ""
		if i < len(bodies) {
			body = bodies[i]
		}
		if f.IsRelevant(item.Title + " " + item.Description + " " + body) {
			relevant = append(relevant, item)
		}
	}
	return relevant
}

func (f *Filterer) IsRelevant(text string) bool {
	_, ok := f.MatchedKeyword(text)
	return ok
}

// MatchedKeyword returns the first folded keyword found in text.
func (f *Filterer) MatchedKeyword(text string) (string, bool) {
	folded := Fold(text)
	if strings.TrimSpace(folded) == "" {
		return "", false
	}

	for _, kw := range f.keywords {
		if strings.Contains(folded, kw) {
			return kw, true
		}
	}
	return "", false
}

// Fold lower-cases text, drops HTML tags and strips diacritics so that
// "MAÍZ" and "maiz" compare equal.
func Fold(text string) string {
	if text == "" {
		return ""
	}

	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}
