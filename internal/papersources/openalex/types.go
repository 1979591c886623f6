// Package openalex provides a client for the OpenAlex API and the
// transformation of OpenAlex works into normalized papers.
//
// OpenAlex is a free, open catalog of scholarly papers, authors, venues,
// institutions, and concepts. Requests are sent through the polite pool by
// identifying the caller with a contact email.
//
// API Documentation: https://docs.openalex.org/
package openalex

import "strings"

// ListResponse represents the top-level response from the OpenAlex works list endpoint.
type ListResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains metadata about the list results including pagination info.
type Meta struct {
	Count      int    `json:"count"`
	DBTime     int    `json:"db_response_time_ms"`
	Page       *int   `json:"page"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Work represents an academic work (paper) in OpenAlex.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi,omitempty"`
	Title           string       `json:"title"`
	PublicationYear *int         `json:"publication_year,omitempty"`
	Type            string       `json:"type,omitempty"`
	CitedByCount    int          `json:"cited_by_count"`
	CitedByAPIURL   string       `json:"cited_by_api_url,omitempty"`
	Authorships     []Authorship `json:"authorships,omitempty"`
	PrimaryLocation *Location    `json:"primary_location,omitempty"`
	ReferencedWorks []string     `json:"referenced_works,omitempty"`
	Concepts        []Concept    `json:"concepts,omitempty"`

	// Abstract is a plain text abstract. OpenAlex normally omits it in
	// favour of AbstractInvertedIndex, but cached or mirrored records may carry it.
	Abstract string `json:"abstract,omitempty"`

	// AbstractInvertedIndex maps each word to the positions it occupies.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index,omitempty"`

	// Error is populated when the upstream returns an error document with a 200 status.
	Error string `json:"error,omitempty"`
}

// Valid reports whether the work carries the fields required to serve it.
func (w *Work) Valid() bool {
	return w != nil && w.Error == "" && strings.TrimSpace(w.ID) != "" && strings.TrimSpace(w.Title) != ""
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	AuthorPosition string        `json:"author_position,omitempty"`
	Author         AuthorInfo    `json:"author"`
	Institutions   []Institution `json:"institutions,omitempty"`
}

// AuthorInfo contains basic author information.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Orcid       string `json:"orcid,omitempty"`
}

// Institution represents an academic institution.
type Institution struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
}

// Location represents where a work is available.
type Location struct {
	Source         *Source `json:"source,omitempty"`
	LandingPageURL string  `json:"landing_page_url,omitempty"`
	PDFURL         string  `json:"pdf_url,omitempty"`
	IsOA           bool    `json:"is_oa"`
}

// Source represents a publication venue (journal, repository, etc.).
type Source struct {
	ID          string   `json:"id,omitempty"`
	DisplayName string   `json:"display_name"`
	Type        string   `json:"type,omitempty"`
	ISSN        []string `json:"issn,omitempty"`
}

// Concept is a weighted subject tag assigned by OpenAlex.
type Concept struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Score       *float64 `json:"score,omitempty"`
	Level       int      `json:"level,omitempty"`
}
