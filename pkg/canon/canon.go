// Package canon implements the Identifier Canonicalizer: it
// parses a RawRecord's header into a canonical (corpus, id, title)
// tuple per corpus-specific grammar.
package canon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/records"
)

// ErrMalformedHeader is returned when no corpus grammar matches a
// record's header. The caller drops the record and logs the reason.
type ErrMalformedHeader struct {
	Corpus corpus.Corpus
	Header string
}

func (e *ErrMalformedHeader) Error() string {
	return fmt.Sprintf("canon: no %s grammar matched header %q", e.Corpus, e.Header)
}

var (
	// The pipe-delimited title is optional; a header without a pipe
	// still yields an id, and finishFlat leaves its title empty.
	statuteHeaderRe      = regexp.MustCompile(`(?i)^Section\s+(\d+\.\d+)(?:\|(.*)|\s.*)?$`)
	adminHeaderRe        = regexp.MustCompile(`(?i)^Rule\s+(\d+-\d+-\d+)(?:\|(.*)|\s.*)?$`)
	constitutionHeaderRe = regexp.MustCompile(`(?i)^Article\s+([IVXLCDM]+),\s*Section\s+(\d+[a-z]?)(?:\|(.*)|\s.*)?$`)
)

// Canonical is a stable (corpus, id, title) tuple ready for citation
// extraction and enrichment.
type Canonical struct {
	Corpus     corpus.Corpus
	ID         string // bare id, not corpus-tagged
	TaggedID   string // corpus.WithTag(ID)
	Title      string
	Header     string
	Paragraphs []string
	SourceURL  string
	SourceHash string
	ScrapedAt  string
}

// Canonicalize parses a raw record into its canonical form according
// to the record's corpus grammar.
func Canonicalize(rec *records.RawRecord) (*Canonical, error) {
	switch rec.Corpus {
	case corpus.Statute:
		return canonicalizeStatute(rec)
	case corpus.Admin:
		return canonicalizeAdmin(rec)
	case corpus.Constitution:
		return canonicalizeConstitution(rec)
	case corpus.Caselaw:
		return canonicalizeCaselaw(rec)
	default:
		return nil, fmt.Errorf("canon: unknown corpus %q", rec.Corpus)
	}
}

func canonicalizeStatute(rec *records.RawRecord) (*Canonical, error) {
	m := statuteHeaderRe.FindStringSubmatch(rec.Header)
	if m == nil {
		return nil, &ErrMalformedHeader{Corpus: corpus.Statute, Header: rec.Header}
	}
	id := m[1]
	return finishFlat(rec, corpus.Statute, id, strings.TrimSpace(m[2])), nil
}

func canonicalizeAdmin(rec *records.RawRecord) (*Canonical, error) {
	m := adminHeaderRe.FindStringSubmatch(rec.Header)
	if m == nil {
		return nil, &ErrMalformedHeader{Corpus: corpus.Admin, Header: rec.Header}
	}
	id := m[1]
	return finishFlat(rec, corpus.Admin, id, strings.TrimSpace(m[2])), nil
}

func canonicalizeConstitution(rec *records.RawRecord) (*Canonical, error) {
	m := constitutionHeaderRe.FindStringSubmatch(rec.Header)
	if m == nil {
		return nil, &ErrMalformedHeader{Corpus: corpus.Constitution, Header: rec.Header}
	}
	roman, section := m[1], m[2]
	id := fmt.Sprintf("Article %s, Section %s", strings.ToUpper(roman), section)
	return finishFlat(rec, corpus.Constitution, id, strings.TrimSpace(m[3])), nil
}

func finishFlat(rec *records.RawRecord, c corpus.Corpus, id, title string) *Canonical {
	if !strings.Contains(rec.Header, "|") {
		title = ""
	}
	return &Canonical{
		Corpus:     c,
		ID:         id,
		TaggedID:   c.WithTag(id),
		Title:      title,
		Header:     rec.Header,
		Paragraphs: rec.Paragraphs,
		SourceURL:  rec.URL,
		SourceHash: rec.URLHash,
		ScrapedAt:  rec.ScrapedAt,
	}
}

func canonicalizeCaselaw(rec *records.RawRecord) (*Canonical, error) {
	if rec.Case == nil {
		return nil, &ErrMalformedHeader{Corpus: corpus.Caselaw, Header: ""}
	}
	cr := rec.Case

	id := strings.TrimSpace(cr.ID.String())
	if id == "" || id == "0" {
		id = fallbackCitation(cr)
	}
	if id == "" {
		return nil, &ErrMalformedHeader{Corpus: corpus.Caselaw, Header: cr.Name}
	}

	paragraphs := make([]string, 0, len(cr.CaseBody.Opinions))
	for _, op := range cr.CaseBody.Opinions {
		text := strings.TrimSpace(op.Text)
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	header := cr.Name
	if cr.DocketNumber != "" {
		header = fmt.Sprintf("%s|%s", cr.DocketNumber, cr.Name)
	}

	return &Canonical{
		Corpus:     corpus.Caselaw,
		ID:         id,
		TaggedID:   corpus.Caselaw.WithTag(id),
		Title:      cr.Name,
		Header:     header,
		Paragraphs: paragraphs,
		SourceURL:  "",
		SourceHash: "",
		ScrapedAt:  cr.Provenance.DateAdded,
	}, nil
}

func fallbackCitation(cr *records.CaseRecord) string {
	for _, c := range cr.Citations {
		if c.Cite != "" {
			return c.Cite
		}
	}
	return ""
}

// ValidStatuteID reports whether s matches the statute id grammar
// NNNN.NN, used by pkg/citation to validate extracted targets.
func ValidStatuteID(s string) bool {
	return statuteIDRe.MatchString(s)
}

// ValidAdminID reports whether s matches the admin rule id grammar
// NNNN-NN-NN.
func ValidAdminID(s string) bool {
	return adminIDRe.MatchString(s)
}

// ValidConstitutionID reports whether s is a long-form constitution id
// "Article <ROMAN>, Section <N>[letter]".
func ValidConstitutionID(s string) bool {
	return constitutionIDRe.MatchString(s)
}

var (
	statuteIDRe      = regexp.MustCompile(`^\d{3,4}\.\d+$`)
	adminIDRe        = regexp.MustCompile(`^\d{3,4}-\d{1,2}-\d{1,2}$`)
	constitutionIDRe = regexp.MustCompile(`^Article\s+[IVXLCDM]+,\s*Section\s+\d+[a-z]?$`)
)

// StatuteChapter returns the chapter prefix (digits before the dot) of
// a statute id, used for range-expansion's same-chapter check.
func StatuteChapter(id string) (string, bool) {
	i := strings.IndexByte(id, '.')
	if i < 0 {
		return "", false
	}
	return id[:i], true
}

// StatuteNumeric parses the fractional portion of a statute id as an
// integer-scaled value for range comparisons (e.g. "2903.01" -> 1).
func StatuteNumeric(id string) (int, bool) {
	i := strings.IndexByte(id, '.')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
