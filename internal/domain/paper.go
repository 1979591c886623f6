// Package domain provides the normalized paper model and error types shared
// across the citegraph service.
package domain

import (
	"regexp"
	"strings"
)

// paperIDPattern matches a canonical OpenAlex work identifier.
var paperIDPattern = regexp.MustCompile(`^W[0-9]+$`)

// NormalizePaperID converts user supplied work identifiers into canonical form.
// It accepts bare ids ("W123"), numeric ids ("123") and full OpenAlex URLs
// ("https://openalex.org/W123"). The function is idempotent.
func NormalizePaperID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}

	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	if id == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(id, "W"):
	case strings.HasPrefix(id, "w"):
		id = "W" + id[1:]
	default:
		id = "W" + id
	}

	return id
}

// IsValidPaperID reports whether id is a canonical work identifier.
func IsValidPaperID(id string) bool {
	return paperIDPattern.MatchString(id)
}

// ShortID returns the trailing path segment of an OpenAlex entity URL.
func ShortID(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}

// Author is a single authorship entry of a normalized paper.
type Author struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

// JournalInfo describes the venue a paper was published in.
type JournalInfo struct {
	Name string   `json:"name"`
	Type string   `json:"type,omitempty"`
	ISSN []string `json:"issn"`
}

// Topic is a weighted concept attached to a paper.
type Topic struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// UnknownTopic is reported when the upstream record carries no concepts.
var UnknownTopic = Topic{ID: "unknown", Name: "Unknown", Score: 1.0}

// Paper is the normalized paper shape served to API clients.
type Paper struct {
	ID            string       `json:"id"`
	PaperID       string       `json:"paperId"`
	Title         string       `json:"title"`
	Abstract      string       `json:"abstract"`
	Venue         string       `json:"venue"`
	JournalInfo   *JournalInfo `json:"journalInfo"`
	Year          *int         `json:"year"`
	URL           string       `json:"url"`
	Authors       []Author     `json:"authors"`
	NumCitedBy    int          `json:"numCitedBy"`
	CitationCount int          `json:"citationCount"`
	References    []string     `json:"references"`
	Citations     []string     `json:"citations"`
	DOI           string       `json:"doi,omitempty"`
	CitationsURL  string       `json:"citationsUrl,omitempty"`
	PDFURL        string       `json:"pdf_url,omitempty"`
	IsOpenAccess  bool         `json:"is_open_access"`
	Topics        []Topic      `json:"topics"`
}

// PaperGraph is a paper together with its fully materialized neighbourhood.
// References and Citations shadow the identifier lists of the embedded paper
// so the JSON form carries full paper objects.
type PaperGraph struct {
	Paper
	References []Paper `json:"references"`
	Citations  []Paper `json:"citations"`
}

// NewPaperGraph wraps base with empty reference and citation lists.
func NewPaperGraph(base Paper) *PaperGraph {
	return &PaperGraph{
		Paper:      base,
		References: []Paper{},
		Citations:  []Paper{},
	}
}

// ReferenceIDs returns the canonical identifiers of the works a paper cites.
func (p *Paper) ReferenceIDs() []string {
	ids := make([]string, 0, len(p.References))
	for _, ref := range p.References {
		if id := NormalizePaperID(ref); IsValidPaperID(id) {
			ids = append(ids, id)
		}
	}
	return ids
}
