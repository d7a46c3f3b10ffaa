// Package models defines the typed, validated records that flow
// between the ingest pipeline's components and that are persisted,
// as JSON, into the five KV tables. Source legal text (Section.Paragraphs)
// is write-once and is never touched after C1/C2 produce it.
package models

import (
	"strings"
	"time"

	"github.com/IntXgers/ohio-code/pkg/corpus"
)

// Section is the atomic entity in the store: one statute section, one
// administrative rule, one constitutional section, or one judicial
// opinion.
type Section struct {
	ID         string        `json:"id" validate:"required"`
	Corpus     corpus.Corpus `json:"corpus" validate:"required"`
	SourceURL  string        `json:"source_url"`
	SourceHash string        `json:"source_hash" validate:"omitempty,len=16"`
	Header     string        `json:"header"`
	Title      string        `json:"title"`
	Paragraphs []string      `json:"paragraphs"`

	WordCount      int `json:"word_count"`
	ParagraphCount int `json:"paragraph_count"`

	HasForwardCitations  bool `json:"has_forward_citations"`
	ForwardCitationCount int  `json:"forward_citation_count"`
	HasReverseCitations  bool `json:"has_reverse_citations"`
	InComplexChain       bool `json:"in_complex_chain"`
	IsClickable          bool `json:"is_clickable"`

	ScrapedDate string `json:"scraped_date"`

	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// FullText derives the concatenation of Paragraphs with newline
// separators. It is always recomputed from Paragraphs, never stored
// as the source of truth, per spec invariant 1 (Paragraphs is
// write-once).
func (s *Section) FullText() string {
	return strings.Join(s.Paragraphs, "\n")
}

// Recompute fills in the derived integer/boolean fields from
// Paragraphs and the citation counts the caller supplies. It never
// mutates Paragraphs itself.
func (s *Section) Recompute(forwardCount int, hasReverse bool) {
	s.ParagraphCount = len(s.Paragraphs)
	s.WordCount = wordCount(s.Paragraphs)
	s.ForwardCitationCount = forwardCount
	s.HasForwardCitations = forwardCount > 0
	s.HasReverseCitations = hasReverse
	s.IsClickable = s.HasForwardCitations || s.HasReverseCitations
}

func wordCount(paragraphs []string) int {
	n := 0
	for _, p := range paragraphs {
		n += len(strings.Fields(p))
	}
	return n
}

// Enrichment carries derived, non-textual metadata about a Section. No
// field here ever overwrites or paraphrases Paragraphs; it is computed
// once by C4 and stored alongside the verbatim text.
type Enrichment struct {
	Summary       string   `json:"summary"`
	LegalType     string   `json:"legal_type"`
	PracticeAreas []string `json:"practice_areas,omitempty"`
	Complexity    int      `json:"complexity" validate:"min=1,max=10"`
	KeyTerms      []string `json:"key_terms,omitempty" validate:"max=10"`

	OffenseLevel  string `json:"offense_level,omitempty"`
	OffenseDegree string `json:"offense_degree,omitempty"`

	ArticleName     string `json:"article_name,omitempty"`
	ArticleType     string `json:"article_type,omitempty"`
	RightsCategory  string `json:"rights_category,omitempty"`
	GovernmentBranch string `json:"government_branch,omitempty"`
	SubjectMatter   string `json:"subject_matter,omitempty"`
}

// Legal type values for Enrichment.LegalType.
const (
	LegalTypeCriminalStatute = "criminal_statute"
	LegalTypeCivilStatute    = "civil_statute"
	LegalTypeDefinitional    = "definitional"
	LegalTypeProcedural      = "procedural"
	LegalTypeCaseOpinion     = "case_opinion"
	LegalTypeCriminalCase    = "criminal_case"
	LegalTypeCivilCase       = "civil_case"
	LegalTypeAppellateCase   = "appellate_case"
)

// Fixed practice-area vocabulary, referenced by pkg/enrich.
const (
	AreaCriminalLaw      = "criminal_law"
	AreaFamilyLaw        = "family_law"
	AreaPropertyLaw      = "property_law"
	AreaBusinessLaw      = "business_law"
	AreaTaxLaw           = "tax_law"
	AreaEmploymentLaw    = "employment_law"
	AreaAdministrativeLaw = "administrative_law"
	AreaCivilProcedure   = "civil_procedure"
	AreaConstitutionalLaw = "constitutional_law"
	AreaTortLaw          = "tort_law"
	AreaGeneral          = "general"
)

// Relationship is the typed classification of a citation edge.
type Relationship string

const (
	RelDefines         Relationship = "defines"
	RelCrossReference  Relationship = "cross_reference"
	RelAmendedBy       Relationship = "amended_by"
	RelSupersededBy    Relationship = "superseded_by"
	RelCited           Relationship = "cited"
	RelFollowed        Relationship = "followed"
	RelDistinguished   Relationship = "distinguished"
	RelOverruled       Relationship = "overruled"
	RelReversed        Relationship = "reversed"
	RelAffirmed        Relationship = "affirmed"
	RelQuestioned      Relationship = "questioned"
	RelCompared        Relationship = "compared"
)

// Citation is a typed directed edge between two section ids.
type Citation struct {
	SourceID     string       `json:"source_id" validate:"required"`
	TargetID     string       `json:"target_id" validate:"required"`
	Relationship Relationship `json:"relationship"`
	Context      string       `json:"context" validate:"max=100"`
	Position     int          `json:"position"`
}

// CitationDetail is the denormalized row stored per-edge in the
// citations table, joining a Citation with the target's title/url when
// known (empty when the target is dangling).
type CitationDetail struct {
	Target       string       `json:"target"`
	Title        string       `json:"title,omitempty"`
	URL          string       `json:"url,omitempty"`
	URLHash      string       `json:"url_hash,omitempty"`
	Relationship Relationship `json:"relationship"`
	Context      string       `json:"context"`
	Position     int          `json:"position"`
}

// CitationRecord is the citations table value: source_id -> this.
type CitationRecord struct {
	DirectReferences  []string          `json:"direct_references"`
	ReferencesDetails []CitationDetail  `json:"references_details"`
	ReferenceCount    int               `json:"reference_count"`
}

// ReverseCitationDetail is one row in a reverse_citations entry.
type ReverseCitationDetail struct {
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
}

// ReverseCitationRecord is the reverse_citations table value:
// target_id -> this.
type ReverseCitationRecord struct {
	CitedBy       []string                `json:"cited_by"`
	CitingDetails []ReverseCitationDetail `json:"citing_details"`
	CitedByCount  int                     `json:"cited_by_count"`
}

// ChainSnapshot is an embedded, denormalized copy of a section's
// identifying fields, stored inside a ChainRecord so a single chain
// read serves downstream context composition without further lookups.
type ChainSnapshot struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	URLHash   string `json:"url_hash"`
	FullText  string `json:"full_text"`
	WordCount int    `json:"word_count"`
}

// ChainRecord is the chains table value: chain_id (== primary section
// id) -> this. Only chains meeting the "complex" threshold are written.
type ChainRecord struct {
	PrimarySection   string          `json:"primary_section"`
	ChainSections    []string        `json:"chain_sections"`
	ChainDepth       int             `json:"chain_depth"`
	CompleteChain    []ChainSnapshot `json:"complete_chain"`
	ReferencesCount  int             `json:"references_count"`
}

// BuildConfig records the build-time parameters used to produce a
// store, for reproducibility audits.
type BuildConfig struct {
	BatchSize            int    `json:"batch_size"`
	CheckpointInterval   int    `json:"checkpoint_interval"`
	RangeExpansionLimit  int    `json:"range_expansion_limit"`
	ComplexChainThreshold int   `json:"complex_chain_threshold"`
	ChainMaxSize         int    `json:"chain_max_size"`
	ChainFanout          int    `json:"chain_fanout"`
	ChapterRefMode       string `json:"chapter_ref_mode"`
	EnrichmentEnabled    bool   `json:"enrichment_enabled"`
}

// CorpusInfo is the single metadata record describing an entire build,
// stored under the metadata table's "corpus_info" key.
type CorpusInfo struct {
	BuildID        string      `json:"build_id"`
	Corpus         corpus.Corpus `json:"corpus"`
	SourceDesc     string      `json:"source_description"`
	Version        string      `json:"version"`
	BuildDate      time.Time   `json:"build_date"`
	CheckpointDate time.Time   `json:"checkpoint_date"`

	PrimaryCount   int `json:"primary_count"`
	CitationsCount int `json:"citations_count"`
	ReverseCount   int `json:"reverse_count"`
	ChainsCount    int `json:"chains_count"`

	BuildConfig BuildConfig `json:"build_config"`
}

// SourceRef is one provenance entry (id, url, url_hash, verified date)
// returned alongside composed context bundles.
type SourceRef struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	URLHash      string `json:"url_hash"`
	VerifiedDate string `json:"verified_date"`
}
