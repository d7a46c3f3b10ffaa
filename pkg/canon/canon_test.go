package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/records"
)

func TestCanonicalizeStatute(t *testing.T) {
	rec := &records.RawRecord{
		Corpus:     corpus.Statute,
		Header:     "Section 2903.01|Aggravated Murder",
		Paragraphs: []string{"No person shall purposely..."},
		URL:        "https://codes.ohio.gov/orc/2903.01",
		URLHash:    "abc123abc123abcd",
	}

	got, err := Canonicalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "2903.01", got.ID)
	assert.Equal(t, "orc:2903.01", got.TaggedID)
	assert.Equal(t, "Aggravated Murder", got.Title)
}

func TestCanonicalizeStatute_NoPipeHasNoTitle(t *testing.T) {
	rec := &records.RawRecord{
		Corpus: corpus.Statute,
		Header: "Section 2903.01 Aggravated Murder",
	}
	got, err := Canonicalize(rec)
	require.NoError(t, err)
	assert.Empty(t, got.Title)
}

func TestCanonicalizeMalformedHeader(t *testing.T) {
	rec := &records.RawRecord{Corpus: corpus.Statute, Header: "not a section header at all"}
	_, err := Canonicalize(rec)
	assert.Error(t, err)
	var malformed *ErrMalformedHeader
	assert.ErrorAs(t, err, &malformed)
}

func TestCanonicalizeAdmin(t *testing.T) {
	rec := &records.RawRecord{
		Corpus: corpus.Admin,
		Header: "Rule 4501-1-01|Definitions",
	}
	got, err := Canonicalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "4501-1-01", got.ID)
	assert.Equal(t, "oac:4501-1-01", got.TaggedID)
}

func TestCanonicalizeConstitution(t *testing.T) {
	rec := &records.RawRecord{
		Corpus: corpus.Constitution,
		Header: "Article I, Section 1|Inalienable Rights",
	}
	got, err := Canonicalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "Article I, Section 1", got.ID)
	assert.Equal(t, "const:Article I, Section 1", got.TaggedID)
}

func TestCanonicalizeCaselaw(t *testing.T) {
	rec := &records.RawRecord{
		Corpus: corpus.Caselaw,
		Case: &records.CaseRecord{
			ID:   "12345",
			Name: "State v. Doe",
			CaseBody: records.CaseBody{
				Opinions: []records.CaseOpinion{{Text: "The defendant appeals."}},
			},
		},
	}
	got, err := Canonicalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "12345", got.ID)
	assert.Equal(t, "case:12345", got.TaggedID)
	assert.Equal(t, []string{"The defendant appeals."}, got.Paragraphs)
}

func TestCanonicalizeCaselaw_FallsBackToCitation(t *testing.T) {
	rec := &records.RawRecord{
		Corpus: corpus.Caselaw,
		Case: &records.CaseRecord{
			Name:      "State v. Doe",
			Citations: []records.CaseCitation{{Cite: "123 Ohio St. 3d 456"}},
		},
	}
	got, err := Canonicalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "123 Ohio St. 3d 456", got.ID)
}

func TestIDValidators(t *testing.T) {
	assert.True(t, ValidStatuteID("2903.01"))
	assert.False(t, ValidStatuteID("not-an-id"))
	assert.True(t, ValidAdminID("4501-1-01"))
	assert.False(t, ValidAdminID("2903.01"))
	assert.True(t, ValidConstitutionID("Article I, Section 1"))
	assert.False(t, ValidConstitutionID("Article Z, Section 1"))
}

func TestStatuteChapterAndNumeric(t *testing.T) {
	chapter, ok := StatuteChapter("2903.01")
	require.True(t, ok)
	assert.Equal(t, "2903", chapter)

	numeric, ok := StatuteNumeric("2903.01")
	require.True(t, ok)
	assert.Equal(t, 1, numeric)

	_, ok = StatuteChapter("no-dot")
	assert.False(t, ok)
}
