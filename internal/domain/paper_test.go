package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePaperID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "canonical", input: "W2741809807", expected: "W2741809807"},
		{name: "numeric only", input: "2741809807", expected: "W2741809807"},
		{name: "openalex url", input: "https://openalex.org/W2741809807", expected: "W2741809807"},
		{name: "api url", input: "https://api.openalex.org/works/W42", expected: "W42"},
		{name: "lowercase prefix", input: "w42", expected: "W42"},
		{name: "surrounding whitespace", input: "  W42 ", expected: "W42"},
		{name: "empty", input: "", expected: ""},
		{name: "blank", input: "   ", expected: ""},
		{name: "trailing slash", input: "https://openalex.org/", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePaperID(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, NormalizePaperID(got), "normalization must be idempotent")
		})
	}
}

func TestIsValidPaperID(t *testing.T) {
	assert.True(t, IsValidPaperID("W1"))
	assert.True(t, IsValidPaperID("W2741809807"))
	assert.False(t, IsValidPaperID(""))
	assert.False(t, IsValidPaperID("W"))
	assert.False(t, IsValidPaperID("Wabc"))
	assert.False(t, IsValidPaperID("A123"))
	assert.False(t, IsValidPaperID(NormalizePaperID("not-an-id")))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "A5023888391", ShortID("https://openalex.org/A5023888391"))
	assert.Equal(t, "C41008148", ShortID("C41008148"))
	assert.Equal(t, "", ShortID(""))
}

func TestPaper_ReferenceIDs(t *testing.T) {
	p := Paper{References: []string{"W1", "https://openalex.org/W2", "bogus", ""}}
	assert.Equal(t, []string{"W1", "W2"}, p.ReferenceIDs())
}

func TestPaperGraph_JSONShadowsReferenceLists(t *testing.T) {
	base := Paper{ID: "W1", PaperID: "W1", Title: "Base", References: []string{"W2"}, Citations: []string{}}
	graph := NewPaperGraph(base)
	graph.References = append(graph.References, Paper{ID: "W2", Title: "Ref"})

	data, err := json.Marshal(graph)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	refs, ok := decoded["references"].([]any)
	require.True(t, ok)
	require.Len(t, refs, 1)
	assert.Equal(t, "Ref", refs[0].(map[string]any)["title"])

	cites, ok := decoded["citations"].([]any)
	require.True(t, ok)
	assert.Empty(t, cites)
	assert.Equal(t, "Base", decoded["title"])
}

func TestErrors_Unwrap(t *testing.T) {
	assert.True(t, errors.Is(NewNotFoundError("paper", "W1"), ErrNotFound))
	assert.True(t, errors.Is(NewValidationError("id", "bad"), ErrInvalidInput))
	assert.True(t, errors.Is(NewRateLimitError("OpenAlex", 0), ErrRateLimited))

	cause := errors.New("boom")
	apiErr := NewExternalAPIError("OpenAlex", 500, "server error", cause)
	assert.True(t, errors.Is(apiErr, cause))
	assert.Equal(t, "OpenAlex API error (status 500): server error", apiErr.Error())
	assert.Equal(t, "paper not found: W1", NewNotFoundError("paper", "W1").Error())
}

func FuzzNormalizePaperID(f *testing.F) {
	for _, seed := range []string{"", "W1", "w2", "123", "https://openalex.org/W3", "a/", "/ w", " W4 ", " /W5"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		id := NormalizePaperID(raw)
		if id == "" {
			return
		}
		if !strings.HasPrefix(id, "W") || strings.Contains(id, "/") {
			t.Fatalf("NormalizePaperID(%q) = %q, want W-prefixed id without slashes", raw, id)
		}
		if again := NormalizePaperID(id); again != id {
			t.Fatalf("NormalizePaperID is not idempotent: %q -> %q -> %q", raw, id, again)
		}
	})
}
