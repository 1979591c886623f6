package openalex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scholarsphere/citegraph-service/internal/domain"
)

const (
	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// maxAbstractWords bounds the reconstructed abstract length.
	maxAbstractWords = 100_000

	unknownPaperID = "unknown"
	untitledPaper  = "Untitled Paper"
)

var errInvalidInvertedIndex = errors.New("invalid abstract inverted index")

// ToPaper converts an OpenAlex work into the normalized paper shape.
// It never fails: if conversion panics, a minimal fallback record is returned.
func ToPaper(work *Work) (paper domain.Paper) {
	if work == nil {
		return Fallback(&Work{})
	}

	defer func() {
		if r := recover(); r != nil {
			paper = Fallback(work)
		}
	}()

	return toPaper(work)
}

func toPaper(work *Work) domain.Paper {
	id := domain.ShortID(work.ID)

	var (
		venue       string
		journalInfo *domain.JournalInfo
		landingURL  string
		pdfURL      string
		isOA        bool
	)
	if loc := work.PrimaryLocation; loc != nil {
		landingURL = loc.LandingPageURL
		pdfURL = loc.PDFURL
		isOA = loc.IsOA
		if src := loc.Source; src != nil && src.DisplayName != "" {
			venue = src.DisplayName
			issn := src.ISSN
			if issn == nil {
				issn = []string{}
			}
			journalInfo = &domain.JournalInfo{
				Name: src.DisplayName,
				Type: src.Type,
				ISSN: issn,
			}
		}
	}

	paperURL := landingURL
	if paperURL == "" {
		if doi := NormalizeDOI(work.DOI); doi != "" {
			paperURL = doiPrefix + doi
		}
	}

	authors := make([]domain.Author, 0, len(work.Authorships))
	for _, a := range work.Authorships {
		affiliations := make([]string, 0, len(a.Institutions))
		for _, inst := range a.Institutions {
			affiliations = append(affiliations, inst.DisplayName)
		}
		authors = append(authors, domain.Author{
			AuthorID:     domain.ShortID(a.Author.ID),
			Name:         a.Author.DisplayName,
			Affiliations: affiliations,
		})
	}

	return domain.Paper{
		ID:            id,
		PaperID:       id,
		Title:         work.Title,
		Abstract:      abstractText(work),
		Venue:         venue,
		JournalInfo:   journalInfo,
		Year:          work.PublicationYear,
		URL:           paperURL,
		Authors:       authors,
		NumCitedBy:    work.CitedByCount,
		CitationCount: work.CitedByCount,
		References:    referenceIDs(work),
		Citations:     []string{},
		DOI:           work.DOI,
		CitationsURL:  work.CitedByAPIURL,
		PDFURL:        pdfURL,
		IsOpenAccess:  isOA,
		Topics:        topics(work.Concepts),
	}
}

// Fallback builds the minimal record served when a work cannot be converted.
func Fallback(work *Work) domain.Paper {
	id := domain.ShortID(work.ID)
	if id == "" {
		id = unknownPaperID
	}
	title := work.Title
	if title == "" {
		title = untitledPaper
	}

	return domain.Paper{
		ID:         id,
		PaperID:    id,
		Title:      title,
		Authors:    []domain.Author{},
		References: referenceIDs(work),
		Citations:  []string{},
		Topics:     []domain.Topic{domain.UnknownTopic},
	}
}

func abstractText(work *Work) string {
	if len(work.AbstractInvertedIndex) > 0 {
		text, err := ReconstructAbstract(work.AbstractInvertedIndex)
		if err != nil {
			return work.Abstract
		}
		return text
	}
	return work.Abstract
}

func referenceIDs(work *Work) []string {
	refs := make([]string, 0, len(work.ReferencedWorks))
	for _, ref := range work.ReferencedWorks {
		if id := domain.ShortID(ref); id != "" {
			refs = append(refs, id)
		}
	}
	return refs
}

func topics(concepts []Concept) []domain.Topic {
	if len(concepts) == 0 {
		return []domain.Topic{domain.UnknownTopic}
	}

	out := make([]domain.Topic, 0, len(concepts))
	for _, c := range concepts {
		score := 1.0
		if c.Score != nil {
			score = *c.Score
		}
		out = append(out, domain.Topic{
			ID:    domain.ShortID(c.ID),
			Name:  c.DisplayName,
			Score: score,
		})
	}
	return out
}

// ReconstructAbstract rebuilds abstract text from OpenAlex's inverted index.
// Words are placed at their positions in a slice sized to the highest
// position, and non-empty slots are joined with single spaces.
func ReconstructAbstract(invertedIndex map[string][]int) (string, error) {
	if len(invertedIndex) == 0 {
		return "", nil
	}

	maxPos := -1
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			if pos < 0 {
				return "", fmt.Errorf("%w: negative position %d for %q", errInvalidInvertedIndex, pos, word)
			}
			if pos >= maxAbstractWords {
				return "", fmt.Errorf("%w: position %d exceeds limit", errInvalidInvertedIndex, pos)
			}
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 {
		return "", nil
	}

	slots := make([]string, maxPos+1)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			slots[pos] = word
		}
	}

	words := slots[:0]
	for _, w := range slots {
		if w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " "), nil
}

// NormalizeDOI strips URL and scheme prefixes from a DOI and lowercases it.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "https://dx.doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}
