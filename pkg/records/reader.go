// Package records implements the Record Reader: it streams a
// line-delimited input file one record at a time, tolerating malformed
// lines without aborting the pass, and tags each record with the
// corpus it belongs to so downstream components never re-detect it.
package records

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/IntXgers/ohio-code/pkg/corpus"
)

// ErrMalformedLine is wrapped around the underlying JSON error when a
// line fails to parse. The reader logs and skips; it never aborts.
var ErrMalformedLine = fmt.Errorf("records: malformed line")

// RawRecord is the typed, corpus-tagged envelope around one source
// line. Exactly one of the flat fields (Header/Paragraphs) or Case is
// populated, matching which corpus Corpus names.
type RawRecord struct {
	Corpus corpus.Corpus
	Line   int

	URL        string
	URLHash    string
	Header     string
	Paragraphs []string
	ScrapedAt  string

	Case *CaseRecord
}

// CaseRecord mirrors the deeper, nested case-law record shape: id,
// name, decision_date, court, citations, casebody, cites_to, analysis,
// provenance.
type CaseRecord struct {
	ID             json.Number    `json:"id"`
	Name           string         `json:"name"`
	DecisionDate   string         `json:"decision_date"`
	DocketNumber   string         `json:"docket_number"`
	Court          CaseCourt      `json:"court"`
	Citations      []CaseCitation `json:"citations"`
	CaseBody       CaseBody       `json:"casebody"`
	CitesTo        []CaseCitesTo  `json:"cites_to"`
	Analysis       CaseAnalysis   `json:"analysis"`
	Provenance     CaseProvenance `json:"provenance"`
}

type CaseCourt struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NameAbbrev   string `json:"name_abbreviation"`
}

type CaseCitation struct {
	Cite string `json:"cite"`
	Type string `json:"type"`
}

type CaseOpinion struct {
	Text   string `json:"text"`
	Type   string `json:"type"`
	Author string `json:"author"`
}

type CaseBody struct {
	Opinions   []CaseOpinion `json:"opinions"`
	Judges     []string      `json:"judges"`
	Parties    []string      `json:"parties"`
	Attorneys  []string      `json:"attorneys"`
	HeadMatter string        `json:"head_matter"`
}

type CaseCitesTo struct {
	Cite     string   `json:"cite"`
	CaseIDs  []int64  `json:"case_ids"`
	Category string   `json:"category"`
	Reporter string   `json:"reporter"`
}

type CaseAnalysis struct {
	PageRank  CasePageRank `json:"pagerank"`
	WordCount int          `json:"word_count"`
	CharCount int          `json:"char_count"`
}

type CasePageRank struct {
	Raw        float64 `json:"raw"`
	Percentile float64 `json:"percentile"`
}

type CaseProvenance struct {
	Source    string `json:"source"`
	DateAdded string `json:"date_added"`
}

// flatRecord is the on-the-wire shape for statute/admin/constitution
// lines.
type flatRecord struct {
	URL        string   `json:"url"`
	URLHash    string   `json:"url_hash"`
	Header     string   `json:"header"`
	Paragraphs []string `json:"paragraphs"`
	ScrapedAt  string   `json:"scraped_date"`
}

// SkipReason enumerates why a line was dropped, for metrics.
type SkipReason string

const (
	SkipMalformedJSON SkipReason = "malformed_json"
	SkipMetadataHeader SkipReason = "metadata_header"
	SkipEmptyLine      SkipReason = "empty_line"
)

// Skipped is reported once per dropped line via the reader's onSkip
// callback.
type Skipped struct {
	Line   int
	Reason SkipReason
	Err    error
}

// Reader streams RawRecord values from r, one line at a time, bounding
// resident memory regardless of file size.
type Reader struct {
	scanner *bufio.Scanner
	corpus  corpus.Corpus
	line    int
	onSkip  func(Skipped)

	sawFirstLine bool
}

// New returns a Reader for the given corpus over r. onSkip, if
// non-nil, is invoked for every line the reader drops; it must not
// block.
func New(r io.Reader, c corpus.Corpus, onSkip func(Skipped)) *Reader {
	scanner := bufio.NewScanner(r)
	// Case-law casebody text can be long; raise the token buffer well
	// past bufio's 64KiB default so a single long opinion line doesn't
	// get treated as a malformed line.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)
	return &Reader{scanner: scanner, corpus: c, onSkip: onSkip}
}

// Next returns the next well-formed record, or io.EOF when the stream
// is exhausted. It skips malformed or metadata-header lines internally
// and never returns an error for those; callers only see io.EOF or a
// genuine I/O error from the underlying scanner.
func (r *Reader) Next() (*RawRecord, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			r.report(Skipped{Line: r.line, Reason: SkipEmptyLine})
			continue
		}

		if !r.sawFirstLine {
			r.sawFirstLine = true
			if isMetadataHeader(line) {
				r.report(Skipped{Line: r.line, Reason: SkipMetadataHeader})
				continue
			}
		}

		rec, err := r.parse(line)
		if err != nil {
			r.report(Skipped{Line: r.line, Reason: SkipMalformedJSON, Err: err})
			continue
		}
		rec.Line = r.line
		rec.Corpus = r.corpus
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("records: scanning input: %w", err)
	}
	return nil, io.EOF
}

// isMetadataHeader detects the optional first-line metadata object:
// presence of a "processed_files" token.
func isMetadataHeader(line string) bool {
	return strings.Contains(line, `"processed_files"`)
}

func (r *Reader) parse(line string) (*RawRecord, error) {
	if r.corpus == corpus.Caselaw {
		var cr CaseRecord
		if err := json.Unmarshal([]byte(line), &cr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		return &RawRecord{Case: &cr}, nil
	}

	var fr flatRecord
	if err := json.Unmarshal([]byte(line), &fr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return &RawRecord{
		URL:        fr.URL,
		URLHash:    fr.URLHash,
		Header:     fr.Header,
		Paragraphs: fr.Paragraphs,
		ScrapedAt:  fr.ScrapedAt,
	}, nil
}

func (r *Reader) report(s Skipped) {
	if r.onSkip != nil {
		r.onSkip(s)
	}
}
