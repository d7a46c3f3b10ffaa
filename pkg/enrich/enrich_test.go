package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/models"
)

func TestSummary_StatuteVariants(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"definitions", "Definitions", "Defines Definitions"},
		{"penalty", "Penalty for theft", "Establishes penalties for Penalty for theft"},
		{"procedure", "Filing procedure", "Describes procedure for Filing procedure"},
		{"default", "Aggravated Murder", "Relates to Aggravated Murder"},
		{"blank falls back to generic", "", "Relates to an unspecified provision."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summary(Input{Corpus: corpus.Statute, Title: tt.title})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummary_CaselawJoinsParties(t *testing.T) {
	got := summary(Input{Corpus: corpus.Caselaw, Title: "State v. Doe"})
	assert.Equal(t, "Case between State and Doe", got)
}

func TestLegalType_CriminalStatuteByMarkerCount(t *testing.T) {
	text := "Whoever is convicted of a felony offense shall be guilty of a violation."
	got := legalType(Input{Corpus: corpus.Statute, FullText: text})
	assert.Equal(t, models.LegalTypeCriminalStatute, got)
}

func TestLegalType_DefinitionalByHeader(t *testing.T) {
	got := legalType(Input{Corpus: corpus.Statute, Header: "Definitions", FullText: "As used in this chapter."})
	assert.Equal(t, models.LegalTypeDefinitional, got)
}

func TestLegalType_ProceduralByKeyword(t *testing.T) {
	got := legalType(Input{Corpus: corpus.Statute, FullText: "A motion for a hearing must follow this procedure."})
	assert.Equal(t, models.LegalTypeProcedural, got)
}

func TestLegalType_CivilStatuteDefault(t *testing.T) {
	got := legalType(Input{Corpus: corpus.Statute, FullText: "Contracts are governed by consideration."})
	assert.Equal(t, models.LegalTypeCivilStatute, got)
}

func TestLegalType_CaselawAppellate(t *testing.T) {
	got := legalType(Input{Corpus: corpus.Caselaw, FullText: "The appellant challenges the trial court's ruling on appeal."})
	assert.Equal(t, models.LegalTypeAppellateCase, got)
}

func TestLegalType_CaselawCriminal(t *testing.T) {
	text := "Defendant was convicted of felony assault, a violation resulting in imprisonment and a guilty plea to the offense."
	got := legalType(Input{Corpus: corpus.Caselaw, FullText: text})
	assert.Equal(t, models.LegalTypeCriminalCase, got)
}

func TestPracticeAreas_DetectsByKeywordPairs(t *testing.T) {
	text := "This section concerns marriage and divorce proceedings."
	got := practiceAreas(Input{Corpus: corpus.Statute, FullText: text})
	assert.Contains(t, got, models.AreaFamilyLaw)
}

func TestPracticeAreas_CriminalChapterRange(t *testing.T) {
	got := practiceAreas(Input{Corpus: corpus.Statute, ID: "2903.01", FullText: "no keyword hits here"})
	assert.Contains(t, got, models.AreaCriminalLaw)
}

func TestPracticeAreas_FallsBackToGeneral(t *testing.T) {
	got := practiceAreas(Input{Corpus: corpus.Statute, ID: "100.01", FullText: "nothing relevant at all"})
	assert.Equal(t, []string{models.AreaGeneral}, got)
}

func TestComplexity_StaysWithinBounds(t *testing.T) {
	tests := []Input{
		{WordCount: 5000, ParagraphCount: 50, ForwardCitationCount: 100},
		{WordCount: 0, ParagraphCount: 0, ForwardCitationCount: 0},
		{WordCount: 300, ParagraphCount: 5, ForwardCitationCount: 3},
	}
	for _, in := range tests {
		got := complexity(in)
		assert.GreaterOrEqual(t, got, 1)
		assert.LessOrEqual(t, got, 10)
	}
}

func TestComplexity_HigherVolumeScoresHigher(t *testing.T) {
	low := complexity(Input{WordCount: 50, ParagraphCount: 1, ForwardCitationCount: 0})
	high := complexity(Input{WordCount: 2000, ParagraphCount: 20, ForwardCitationCount: 20})
	assert.Less(t, low, high)
}

func TestKeyTerms_CapAndNoDuplicates(t *testing.T) {
	in := Input{
		Title:    "Aggravated Murder Definitions Penalty Procedure Offense Violation Statute Example",
		FullText: `"Quoted Phrase One" "Quoted Phrase Two" Another Proper Noun Phrase Here And More Terms`,
	}
	got := keyTerms(in)
	assert.LessOrEqual(t, len(got), 10)

	seen := map[string]bool{}
	for _, term := range got {
		assert.False(t, seen[term], "duplicate key term %q", term)
		seen[term] = true
	}
}

func TestKeyTerms_SkipsShortTokensAndStopwords(t *testing.T) {
	got := keyTerms(Input{Title: "the and for"})
	assert.Empty(t, got)
}

func TestOffenseLevelAndDegree(t *testing.T) {
	text := "This offense is a felony of the third degree."
	assert.Equal(t, "felony", offenseLevel(text))
	assert.Equal(t, "F3", offenseDegree(text))
}

func TestOffenseLevelAndDegree_Absent(t *testing.T) {
	assert.Empty(t, offenseLevel("no classification here"))
	assert.Empty(t, offenseDegree("no classification here"))
}

func TestOffenseDegree_Misdemeanor(t *testing.T) {
	text := "a misdemeanor of the first degree"
	assert.Equal(t, "M1", offenseDegree(text))
}

func TestApplyConstitutionFields_ArticleOneKnownSection(t *testing.T) {
	e := &models.Enrichment{}
	applyConstitutionFields(e, Input{ID: "Article I, Section 9", FullText: "excessive bail shall not be required"})
	assert.Equal(t, "Bill of Rights", e.ArticleName)
	assert.Equal(t, "rights", e.ArticleType)
	assert.Equal(t, "bail_and_punishment", e.RightsCategory)
}

func TestApplyConstitutionFields_ArticleOneFallsBackByText(t *testing.T) {
	e := &models.Enrichment{}
	applyConstitutionFields(e, Input{ID: "Article I, Section 99", FullText: "freedom of speech and religion shall not be abridged"})
	assert.Equal(t, "expression_and_religion", e.RightsCategory)
}

func TestApplyConstitutionFields_NonRightsArticleSetsBranch(t *testing.T) {
	e := &models.Enrichment{}
	applyConstitutionFields(e, Input{ID: "Article II, Section 1", FullText: "legislative power"})
	assert.Equal(t, "Legislative", e.ArticleName)
	assert.Equal(t, "legislative", e.GovernmentBranch)
	assert.Empty(t, e.RightsCategory)
}

func TestEnrich_StatuteSetsOffenseFieldsNotConstitutionFields(t *testing.T) {
	e := Enrich(Input{
		Corpus:   corpus.Statute,
		ID:       "2903.01",
		Title:    "Aggravated Murder",
		FullText: "Whoever commits this offense is guilty of a felony of the first degree.",
	})
	require.NotNil(t, e)
	assert.Equal(t, "felony", e.OffenseLevel)
	assert.Equal(t, "F1", e.OffenseDegree)
	assert.Empty(t, e.ArticleName)
}

func TestEnrich_ConstitutionSkipsOffenseFields(t *testing.T) {
	e := Enrich(Input{
		Corpus:   corpus.Constitution,
		ID:       "Article I, Section 9",
		FullText: "excessive bail shall not be required",
	})
	require.NotNil(t, e)
	assert.Empty(t, e.OffenseLevel)
	assert.NotEmpty(t, e.ArticleName)
}

func TestEnrich_ComplexityAndKeyTermsAlwaysBounded(t *testing.T) {
	longText := strings.Repeat("word ", 2000)
	e := Enrich(Input{
		Corpus:               corpus.Statute,
		ID:                   "2903.01",
		Title:                "Aggravated Murder Penalty Procedure Definitions Offense Example Words Here More",
		FullText:             longText,
		WordCount:            2000,
		ParagraphCount:       30,
		ForwardCitationCount: 20,
	})
	require.NotNil(t, e)
	assert.GreaterOrEqual(t, e.Complexity, 1)
	assert.LessOrEqual(t, e.Complexity, 10)
	assert.LessOrEqual(t, len(e.KeyTerms), 10)
}
