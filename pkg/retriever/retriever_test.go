package retriever

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/models"
	"github.com/IntXgers/ohio-code/pkg/store"
)

func openTempStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "sections.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSimpleGraph(t *testing.T, db *store.Store) {
	t.Helper()
	primary := models.Section{ID: "orc:2903.01", Corpus: corpus.Statute, Title: "Aggravated Murder", SourceURL: "https://x/2903.01", SourceHash: "aaaaaaaaaaaaaaaa", Paragraphs: []string{"purposely cause the death"}}
	primary.Recompute(1, false)
	target := models.Section{ID: "orc:2903.02", Corpus: corpus.Statute, Title: "Murder", SourceURL: "https://x/2903.02", SourceHash: "bbbbbbbbbbbbbbbb", Paragraphs: []string{"cause the death of another"}}
	target.Recompute(0, true)

	citRec := models.CitationRecord{
		DirectReferences: []string{"orc:2903.02"},
		ReferencesDetails: []models.CitationDetail{
			{Target: "orc:2903.02", Title: "Murder", URL: "https://x/2903.02", URLHash: "bbbbbbbbbbbbbbbb", Relationship: models.RelCrossReference},
		},
		ReferenceCount: 1,
	}
	chain := models.ChainRecord{
		PrimarySection: "orc:2903.01",
		ChainSections:  []string{"orc:2903.01", "orc:2903.02"},
		ChainDepth:     2,
		CompleteChain: []models.ChainSnapshot{
			{ID: "orc:2903.01", Title: "Aggravated Murder", WordCount: 4},
			{ID: "orc:2903.02", Title: "Murder", URL: "https://x/2903.02", URLHash: "bbbbbbbbbbbbbbbb", WordCount: 5},
		},
		ReferencesCount: 1,
	}

	require.NoError(t, db.WriteBatch(
		[]store.SectionWrite{
			{Section: primary, Citation: citRec, Chain: &chain},
			{Section: target, Citation: models.CitationRecord{}},
		},
		[]store.ReverseUpdate{
			{Target: "orc:2903.02", Detail: models.ReverseCitationDetail{Source: "orc:2903.01", Title: "Aggravated Murder"}},
		},
	))
}

func TestGetSection_MissReturnsNilNotError(t *testing.T) {
	r := New(openTempStore(t))
	sec, err := r.GetSection("missing")
	require.NoError(t, err)
	assert.Nil(t, sec)
}

func TestGetSection_HitReturnsValue(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	sec, err := r.GetSection("orc:2903.01")
	require.NoError(t, err)
	require.NotNil(t, sec)
	assert.Equal(t, "Aggravated Murder", sec.Title)
}

func TestGetCompleteContext_MissingIDReturnsNil(t *testing.T) {
	r := New(openTempStore(t))
	ctx, err := r.GetCompleteContext("missing", true, true, 8)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestGetCompleteContext_ComposesSourcesAndWordCount(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	ctx, err := r.GetCompleteContext("orc:2903.01", true, true, 8)
	require.NoError(t, err)
	require.NotNil(t, ctx)

	assert.Len(t, ctx.Citations, 1)
	assert.Len(t, ctx.ReverseCitations, 0) // includeReverse true, but primary has no reverse row
	require.NotNil(t, ctx.Chain)
	assert.Equal(t, 2, ctx.Chain.ChainDepth)

	ids := map[string]bool{}
	for _, s := range ctx.Sources {
		ids[s.ID] = true
	}
	assert.True(t, ids["orc:2903.01"])
	assert.True(t, ids["orc:2903.02"])

	assert.Equal(t, 4+5, ctx.TotalWordCount)
}

func TestGetCompleteContext_TruncatesChainToMaxDepth(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	ctx, err := r.GetCompleteContext("orc:2903.01", true, false, 1)
	require.NoError(t, err)
	require.NotNil(t, ctx.Chain)
	assert.Equal(t, 1, ctx.Chain.ChainDepth)
	assert.Len(t, ctx.Chain.ChainSections, 1)
}

func TestGetCompleteContext_ExcludesChainAndReverseWhenNotRequested(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	ctx, err := r.GetCompleteContext("orc:2903.01", false, false, 8)
	require.NoError(t, err)
	assert.Nil(t, ctx.Chain)
	assert.Nil(t, ctx.ReverseCitations)
}

func TestSearchByKeyword_MatchesTitleOverText(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	results, err := r.SearchByKeyword("murder", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, "title", res.Relevance)
	}
}

func TestSearchByKeyword_RespectsMaxResults(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	results, err := r.SearchByKeyword("murder", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMostCited_SortsDescendingByCount(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	entries, err := r.MostCited(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "orc:2903.02", entries[0].ID)
	assert.Equal(t, 1, entries[0].CitedByCount)
}

func TestRelatedSections_MergesForwardAndReverse(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	related, err := r.RelatedSections("orc:2903.01", 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "cites_primary", related[0].Label)

	related, err = r.RelatedSections("orc:2903.02", 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "cited_by_primary", related[0].Label)
}

func TestBuildLLMContext_IncludesURLHashEverywhere(t *testing.T) {
	db := openTempStore(t)
	seedSimpleGraph(t, db)
	r := New(db)

	text, err := r.BuildLLMContext("orc:2903.01", true, true, 8)
	require.NoError(t, err)
	assert.Contains(t, text, "url_hash:aaaaaaaaaaaaaaaa")
	assert.Contains(t, text, "url_hash:bbbbbbbbbbbbbbbb")
	assert.Contains(t, text, "Direct Citations")
	assert.Contains(t, text, "Citation Chain")
}

func TestBuildLLMContext_MissingIDReturnsEmptyString(t *testing.T) {
	r := New(openTempStore(t))
	text, err := r.BuildLLMContext("missing", true, true, 8)
	require.NoError(t, err)
	assert.Empty(t, text)
}
