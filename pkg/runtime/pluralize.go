package runtime

import (
	"strings"
	"sync"
)

// PluralizationHelper derives plural resource names from kinds when no
// explicit plural is known. The rules are English heuristics; callers that
// need exactness should set the plural on the GroupVersionKind.
type PluralizationHelper struct {
	mu sync.RWMutex

	// Irregular or already-plural words
	singularToPlural map[string]string
}

// NewPluralizationHelper creates a helper seeded with the kinds whose
// resource name does not follow the suffix rules.
func NewPluralizationHelper() *PluralizationHelper {
	helper := &PluralizationHelper{
		singularToPlural: make(map[string]string),
	}

	helper.AddMapping("endpoints", "endpoints")
	helper.AddMapping("endpointslices", "endpointslices")
	helper.AddMapping("nodemetrics", "nodes")
	helper.AddMapping("podmetrics", "pods")

	return helper
}

// AddMapping adds a custom singular->plural mapping.
func (p *PluralizationHelper) AddMapping(singular, plural string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.singularToPlural[strings.ToLower(singular)] = strings.ToLower(plural)
}

// Pluralize converts a lower-case singular word to its plural form.
func (p *PluralizationHelper) Pluralize(singular string) string {
	p.mu.RLock()
	plural, exists := p.singularToPlural[singular]
	p.mu.RUnlock()
	if exists {
		return plural
	}

	switch {
	case strings.HasSuffix(singular, "s"), strings.HasSuffix(singular, "x"),
		strings.HasSuffix(singular, "z"), strings.HasSuffix(singular, "ch"),
		strings.HasSuffix(singular, "sh"):
		return singular + "es"
	case strings.HasSuffix(singular, "y") && len(singular) > 1 && !isVowel(rune(singular[len(singular)-2])):
		return singular[:len(singular)-1] + "ies"
	default:
		return singular + "s"
	}
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiou", r)
}

// DefaultPluralizationHelper is the global instance used by ToPlural.
var DefaultPluralizationHelper = NewPluralizationHelper()

// ToPlural pluralizes a lower-case kind with the default helper.
func ToPlural(word string) string {
	return DefaultPluralizationHelper.Pluralize(word)
}
