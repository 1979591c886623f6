package openalex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarsphere/citegraph-service/internal/domain"
)

func TestReconstructAbstract(t *testing.T) {
	t.Run("repeated words", func(t *testing.T) {
		text, err := ReconstructAbstract(map[string][]int{"a": {0, 2}, "b": {1}})
		require.NoError(t, err)
		assert.Equal(t, "a b a", text)
	})

	t.Run("gaps are skipped", func(t *testing.T) {
		text, err := ReconstructAbstract(map[string][]int{"first": {0}, "last": {5}})
		require.NoError(t, err)
		assert.Equal(t, "first last", text)
	})

	t.Run("empty index", func(t *testing.T) {
		text, err := ReconstructAbstract(nil)
		require.NoError(t, err)
		assert.Equal(t, "", text)
	})

	t.Run("negative position", func(t *testing.T) {
		_, err := ReconstructAbstract(map[string][]int{"bad": {-1}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errInvalidInvertedIndex))
	})

	t.Run("oversized position", func(t *testing.T) {
		_, err := ReconstructAbstract(map[string][]int{"far": {maxAbstractWords}})
		require.Error(t, err)
	})
}

func TestToPaper(t *testing.T) {
	work := sampleWork()
	p := ToPaper(&work)

	assert.Equal(t, "W2741809807", p.ID)
	assert.Equal(t, "W2741809807", p.PaperID)
	assert.Equal(t, "CRISPR-Cas Systems for Editing", p.Title)
	assert.Equal(t, "CRISPR is a tool.", p.Abstract)
	assert.Equal(t, "Nature Biotechnology", p.Venue)
	require.NotNil(t, p.JournalInfo)
	assert.Equal(t, "journal", p.JournalInfo.Type)
	assert.Equal(t, []string{"1087-0156"}, p.JournalInfo.ISSN)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2014, *p.Year)
	assert.Equal(t, "https://www.nature.com/articles/nbt.2842", p.URL)
	assert.Equal(t, 5000, p.NumCitedBy)
	assert.Equal(t, 5000, p.CitationCount)
	assert.Equal(t, []string{"W1234", "W5678"}, p.References)
	assert.Empty(t, p.Citations)
	assert.NotNil(t, p.Citations)
	assert.Equal(t, "https://doi.org/10.1038/NATURE12373", p.DOI)
	assert.Equal(t, work.CitedByAPIURL, p.CitationsURL)
	assert.Equal(t, "https://europepmc.org/pdf", p.PDFURL)
	assert.True(t, p.IsOpenAccess)

	require.Len(t, p.Authors, 2)
	assert.Equal(t, domain.Author{AuthorID: "A1234567890", Name: "John Smith", Affiliations: []string{"MIT", "Broad Institute"}}, p.Authors[0])
	assert.Equal(t, []string{}, p.Authors[1].Affiliations)

	require.Len(t, p.Topics, 1)
	assert.Equal(t, domain.Topic{ID: "C54355233", Name: "Genetics", Score: 0.87}, p.Topics[0])
}

func TestToPaper_EdgeCases(t *testing.T) {
	t.Run("no concepts yields sentinel topic", func(t *testing.T) {
		p := ToPaper(&Work{ID: "https://openalex.org/W1", Title: "T"})
		assert.Equal(t, []domain.Topic{domain.UnknownTopic}, p.Topics)
		assert.Equal(t, domain.Topic{ID: "unknown", Name: "Unknown", Score: 1.0}, p.Topics[0])
	})

	t.Run("concept without score defaults to one", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", Concepts: []Concept{{ID: "C1", DisplayName: "X"}}})
		assert.Equal(t, 1.0, p.Topics[0].Score)
	})

	t.Run("journal info omitted without source name", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", PrimaryLocation: &Location{Source: &Source{Type: "journal"}}})
		assert.Nil(t, p.JournalInfo)
		assert.Equal(t, "", p.Venue)
	})

	t.Run("missing issn becomes empty list", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", PrimaryLocation: &Location{Source: &Source{DisplayName: "J"}}})
		require.NotNil(t, p.JournalInfo)
		assert.Equal(t, []string{}, p.JournalInfo.ISSN)
	})

	t.Run("url falls back to normalized doi", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", DOI: "https://doi.org/10.1000/ABC"})
		assert.Equal(t, "https://doi.org/10.1000/abc", p.URL)
	})

	t.Run("no url sources", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1"})
		assert.Equal(t, "", p.URL)
		assert.Nil(t, p.Year)
	})

	t.Run("bad inverted index falls back to literal abstract", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", Abstract: "plain text", AbstractInvertedIndex: map[string][]int{"x": {-3}}})
		assert.Equal(t, "plain text", p.Abstract)
	})

	t.Run("bad inverted index without literal abstract", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", AbstractInvertedIndex: map[string][]int{"x": {-3}}})
		assert.Equal(t, "", p.Abstract)
	})

	t.Run("literal abstract used when no index", func(t *testing.T) {
		p := ToPaper(&Work{ID: "W1", Abstract: "plain"})
		assert.Equal(t, "plain", p.Abstract)
	})

	t.Run("nil work", func(t *testing.T) {
		p := ToPaper(nil)
		assert.Equal(t, "unknown", p.ID)
		assert.Equal(t, "Untitled Paper", p.Title)
	})
}

func TestFallback(t *testing.T) {
	p := Fallback(&Work{
		ID:              "https://openalex.org/W9",
		CitedByCount:    99,
		ReferencedWorks: []string{"https://openalex.org/W10"},
	})

	assert.Equal(t, "W9", p.ID)
	assert.Equal(t, "Untitled Paper", p.Title)
	assert.Equal(t, "", p.Abstract)
	assert.Empty(t, p.Authors)
	assert.Nil(t, p.Year)
	assert.Equal(t, 0, p.CitationCount)
	assert.Equal(t, []string{"W10"}, p.References)
	assert.Equal(t, []string{}, p.Citations)
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://doi.org/10.1038/Nature12373", "10.1038/nature12373"},
		{"http://doi.org/10.1/x", "10.1/x"},
		{"doi:10.1/Y", "10.1/y"},
		{"  10.1/z  ", "10.1/z"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDOI(tt.input))
		})
	}
}

func TestWork_Valid(t *testing.T) {
	assert.True(t, (&Work{ID: "W1", Title: "T"}).Valid())
	assert.False(t, (&Work{ID: "W1"}).Valid())
	assert.False(t, (&Work{Title: "T"}).Valid())
	assert.False(t, (&Work{ID: "W1", Title: "T", Error: "boom"}).Valid())

	var nilWork *Work
	assert.False(t, nilWork.Valid())
}
