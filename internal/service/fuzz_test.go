package service

import (
	"strings"
	"testing"
)

func FuzzBuildSearchParams(f *testing.F) {
	for _, seed := range []string{
		"",
		"graph neural networks",
		"crispr, off-target, delivery",
		"a, |, :, b",
		",,,",
		"title:foo|bar, baz",
		"query\x00with\x00nulls",
		string([]byte{0xfe, 0xff}),
	} {
		f.Add(seed)
	}

	prefix := keywordFilterField + ":"

	f.Fuzz(func(t *testing.T, query string) {
		p := BuildSearchParams(query)

		if p.Filter == "" {
			return
		}
		if !strings.HasPrefix(p.Filter, prefix) {
			t.Fatalf("filter %q lacks prefix %q", p.Filter, prefix)
		}
		if strings.ContainsAny(p.Search, "|:") || strings.TrimSpace(p.Search) == "" {
			t.Fatalf("search term %q is unusable alongside a filter", p.Search)
		}
		for _, term := range strings.Split(strings.TrimPrefix(p.Filter, prefix), "|") {
			if strings.TrimSpace(term) == "" {
				t.Fatalf("filter %q has a blank term", p.Filter)
			}
			if strings.ContainsAny(term, ",:") {
				t.Fatalf("filter term %q contains a reserved character", term)
			}
		}
	})
}
