// Package naming derives every spelling of a resource name that the
// generators need: singular and plural forms in Pascal, camel, kebab and
// snake case. All derivations are pure and deterministic, so artifacts
// produced from the same descriptor always agree on spelling.
package naming

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// Forms holds every naming variant for a single resource.
type Forms struct {
	Singular       string // "blog_post" -> "blog_post" normalized: "blog post" tokens joined snake
	Plural         string // "blog_posts"
	Pascal         string // "BlogPost"
	PascalPlural   string // "BlogPosts"
	Camel          string // "blogPost"
	CamelPlural    string // "blogPosts"
	Kebab          string // "blog-post"
	KebabPlural    string // "blog-posts"
	Snake          string // "blog_post"
	SnakePlural    string // "blog_posts"
	RoutePath      string // "/blog-posts"
	RouteParamPath string // "/blog-posts/:id"
}

// InvalidNameError reports a resource name that cannot be used as an
// identifier.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid resource name %q: %s", e.Name, e.Reason)
}

// irregulars maps singular to plural for nouns the suffix rules get wrong.
// Consulted before any rule.
var irregulars = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"foot":   "feet",
	"tooth":  "teeth",
	"mouse":  "mice",
	"goose":  "geese",
	"datum":  "data",
	"index":  "indices",
}

// irregularSingulars is the reverse lookup, built once.
var irregularSingulars = func() map[string]string {
	m := make(map[string]string, len(irregulars))
	for s, p := range irregulars {
		m[p] = s
	}
	return m
}()

// uncountables pluralize to themselves.
var uncountables = map[string]bool{
	"equipment": true,
	"info":      true,
	"media":     true,
	"news":      true,
	"series":    true,
	"species":   true,
	"status":    true,
}

var (
	cacheMu sync.Mutex
	cache   = map[string]Forms{}
)

// ForResource computes (and caches) the Forms for a resource name. The name
// may arrive in any supported casing — "BlogPost", "blog_post" and
// "blog-post" all yield identical Forms.
func ForResource(name string) (Forms, error) {
	cacheMu.Lock()
	if f, ok := cache[name]; ok {
		cacheMu.Unlock()
		return f, nil
	}
	cacheMu.Unlock()

	tokens, err := tokenize(name)
	if err != nil {
		return Forms{}, err
	}

	// Pluralize only the last token: "blog_post" -> "blog_posts".
	last := tokens[len(tokens)-1]
	singularLast := Singularize(last)
	pluralLast := Pluralize(singularLast)

	singTokens := append(append([]string{}, tokens[:len(tokens)-1]...), singularLast)
	plurTokens := append(append([]string{}, tokens[:len(tokens)-1]...), pluralLast)

	f := Forms{
		Singular:     strings.Join(singTokens, " "),
		Plural:       strings.Join(plurTokens, " "),
		Pascal:       joinPascal(singTokens),
		PascalPlural: joinPascal(plurTokens),
		Camel:        joinCamel(singTokens),
		CamelPlural:  joinCamel(plurTokens),
		Kebab:        strings.Join(singTokens, "-"),
		KebabPlural:  strings.Join(plurTokens, "-"),
		Snake:        strings.Join(singTokens, "_"),
		SnakePlural:  strings.Join(plurTokens, "_"),
	}
	f.RoutePath = "/" + f.KebabPlural
	f.RouteParamPath = f.RoutePath + "/:id"

	cacheMu.Lock()
	cache[name] = f
	cacheMu.Unlock()
	return f, nil
}

// Camel renders a name in camelCase without touching its number: "notes"
// stays "notes". Field and property identifiers keep the spelling they were
// declared with; only resource names go through singular/plural derivation.
func Camel(name string) (string, error) {
	tokens, err := tokenize(name)
	if err != nil {
		return "", err
	}
	return joinCamel(tokens), nil
}

// Pluralize returns the plural of a single lowercase word. Input that is
// already plural comes back unchanged: the word is reduced to its singular
// before the suffix rules run, so Pluralize(Singularize(w)) == Pluralize(w)
// for every supported word.
func Pluralize(word string) string {
	return pluralizeSingular(Singularize(word))
}

func pluralizeSingular(word string) string {
	if word == "" {
		return word
	}
	if uncountables[word] {
		return word
	}
	if p, ok := irregulars[word]; ok {
		return p
	}
	switch {
	case strings.HasSuffix(word, "y") && !endsInVowelY(word):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s"),
		strings.HasSuffix(word, "x"),
		strings.HasSuffix(word, "z"),
		strings.HasSuffix(word, "ch"),
		strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}

// Singularize returns the singular of a single lowercase word. It is the
// inverse of Pluralize over the supported vocabulary: for any word w,
// Pluralize(Singularize(w)) == Pluralize(w).
func Singularize(word string) string {
	if word == "" {
		return word
	}
	if uncountables[word] {
		return word
	}
	if s, ok := irregularSingulars[word]; ok {
		return s
	}
	if _, ok := irregulars[word]; ok {
		return word // already singular
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zes"),
		strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"):
		return word // "address" stays
	case strings.HasSuffix(word, "s") && len(word) > 1:
		return word[:len(word)-1]
	default:
		return word
	}
}

func endsInVowelY(word string) bool {
	if len(word) < 2 {
		return false
	}
	return strings.ContainsRune("aeiou", rune(word[len(word)-2]))
}

// tokenize splits a name on case, underscore, hyphen and space boundaries
// into lowercase tokens. Tokenizing an already-cased output reproduces the
// same tokens, which keeps Forms stable under re-derivation.
func tokenize(name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &InvalidNameError{Name: name, Reason: "empty"}
	}

	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			// New token unless we're inside an acronym run ("APIKey").
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				flush()
			} else if i > 0 && unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				flush()
			}
			cur.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsDigit(r) && cur.Len() == 0 && len(tokens) == 0 {
				return nil, &InvalidNameError{Name: name, Reason: "must not start with a digit"}
			}
			cur.WriteRune(r)
		default:
			return nil, &InvalidNameError{Name: name, Reason: fmt.Sprintf("character %q is not identifier-safe", r)}
		}
	}
	flush()

	if len(tokens) == 0 {
		return nil, &InvalidNameError{Name: name, Reason: "no identifier characters"}
	}
	return tokens, nil
}

func joinPascal(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(capitalize(t))
	}
	return b.String()
}

func joinCamel(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0] + joinPascal(tokens[1:])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
