package naming

import (
	"errors"
	"testing"
)

func TestForResource_SimpleWord(t *testing.T) {
	f, err := ForResource("post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Pascal != "Post" {
		t.Errorf("expected Pascal=Post, got %q", f.Pascal)
	}
	if f.Camel != "post" {
		t.Errorf("expected Camel=post, got %q", f.Camel)
	}
	if f.KebabPlural != "posts" {
		t.Errorf("expected KebabPlural=posts, got %q", f.KebabPlural)
	}
	if f.RoutePath != "/posts" {
		t.Errorf("expected RoutePath=/posts, got %q", f.RoutePath)
	}
	if f.RouteParamPath != "/posts/:id" {
		t.Errorf("expected RouteParamPath=/posts/:id, got %q", f.RouteParamPath)
	}
}

func TestForResource_MultiWord(t *testing.T) {
	f, err := ForResource("blog_post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Pascal != "BlogPost" {
		t.Errorf("expected Pascal=BlogPost, got %q", f.Pascal)
	}
	if f.Camel != "blogPost" {
		t.Errorf("expected Camel=blogPost, got %q", f.Camel)
	}
	if f.CamelPlural != "blogPosts" {
		t.Errorf("expected CamelPlural=blogPosts, got %q", f.CamelPlural)
	}
	if f.Kebab != "blog-post" {
		t.Errorf("expected Kebab=blog-post, got %q", f.Kebab)
	}
	if f.SnakePlural != "blog_posts" {
		t.Errorf("expected SnakePlural=blog_posts, got %q", f.SnakePlural)
	}
}

func TestForResource_StableUnderReDerivation(t *testing.T) {
	// Feeding a cased output back in must reproduce the same forms.
	inputs := []string{"blog_post", "BlogPost", "blogPost", "blog-post"}

	base, err := ForResource(inputs[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, in := range inputs[1:] {
		f, err := ForResource(in)
		if err != nil {
			t.Fatalf("ForResource(%q): %v", in, err)
		}
		if f != base {
			t.Errorf("ForResource(%q) = %+v, want %+v", in, f, base)
		}
	}
}

func TestPluralize_Rules(t *testing.T) {
	cases := map[string]string{
		"post":     "posts",
		"category": "categories",
		"box":      "boxes",
		"class":    "classes",
		"match":    "matches",
		"dish":     "dishes",
		"day":      "days", // vowel+y keeps the y
		"person":   "people",
		"child":    "children",
		"series":   "series",
		"status":   "status",
	}
	for in, want := range cases {
		if got := Pluralize(in); got != want {
			t.Errorf("Pluralize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCamel_KeepsDeclaredNumber(t *testing.T) {
	cases := map[string]string{
		"notes":        "notes",
		"tags":         "tags",
		"display_name": "displayName",
		"APIKey":       "apiKey",
		"published-at": "publishedAt",
	}
	for in, want := range cases {
		got, err := Camel(in)
		if err != nil {
			t.Fatalf("Camel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("Camel(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := Camel("no good!"); err == nil {
		t.Errorf("expected an error for a non-identifier name")
	} else {
		t.Logf("invalid name rejected (expected): %v", err)
	}
}

func TestPluralize_PluralInput(t *testing.T) {
	// Pluralizing an already-plural word is a no-op.
	cases := map[string]string{
		"posts":      "posts",
		"categories": "categories",
		"boxes":      "boxes",
		"addresses":  "addresses",
		"people":     "people",
		"data":       "data",
	}
	for in, want := range cases {
		if got := Pluralize(in); got != want {
			t.Errorf("Pluralize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSingularize_RoundTrip(t *testing.T) {
	// Pluralize(Singularize(x)) == Pluralize(x) for singular and plural x.
	words := []string{
		"post", "posts",
		"category", "categories",
		"person", "people",
		"box", "boxes",
		"address", "addresses",
		"series",
		"child", "children",
	}
	for _, w := range words {
		if got, want := Pluralize(Singularize(w)), Pluralize(w); got != want {
			t.Errorf("Pluralize(Singularize(%q)) = %q, want %q", w, got, want)
		}
	}
}

func TestForResource_InvalidNames(t *testing.T) {
	for _, bad := range []string{"", "   ", "post!", "123post", "a b$"} {
		_, err := ForResource(bad)
		if err == nil {
			t.Errorf("ForResource(%q): expected error, got nil", bad)
			continue
		}
		var ine *InvalidNameError
		if !errors.As(err, &ine) {
			t.Errorf("ForResource(%q): expected InvalidNameError, got %T", bad, err)
		}
		t.Logf("rejected %q: %v", bad, err)
	}
}

func TestForResource_AcronymBoundary(t *testing.T) {
	f, err := ForResource("APIKey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Snake != "api_key" {
		t.Errorf("expected Snake=api_key, got %q", f.Snake)
	}
	if f.Pascal != "ApiKey" {
		t.Errorf("expected Pascal=ApiKey, got %q", f.Pascal)
	}
}

func TestForResource_Deterministic(t *testing.T) {
	a, _ := ForResource("user")
	b, _ := ForResource("user")
	if a != b {
		t.Errorf("repeated derivation differs: %+v vs %+v", a, b)
	}
}
