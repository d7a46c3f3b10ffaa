// Package retriever implements a read-only API over the five KV
// tables that external query processes use to assemble
// primary+citations+reverse+chain+provenance bundles. A miss is
// absence, not an error; only a genuine store I/O failure is fatal
// to the caller.
package retriever

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/IntXgers/ohio-code/pkg/models"
	"github.com/IntXgers/ohio-code/pkg/store"
)

// Retriever is stateless aside from the read-only transactions it
// opens per call; the same instance serves any number of concurrent
// callers.
type Retriever struct {
	db *store.Store
}

// New wraps an opened store for read-only access.
func New(db *store.Store) *Retriever {
	return &Retriever{db: db}
}

// GetSection returns id's primary entry, or nil if absent.
func (r *Retriever) GetSection(id string) (*models.Section, error) {
	sec, ok, err := r.db.GetSection(id)
	if err != nil || !ok {
		return nil, err
	}
	return sec, nil
}

// GetCitations returns id's citations entry, or nil if absent.
func (r *Retriever) GetCitations(id string) (*models.CitationRecord, error) {
	rec, ok, err := r.db.GetCitations(id)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// GetReverse returns id's reverse_citations entry, or nil if absent.
func (r *Retriever) GetReverse(id string) (*models.ReverseCitationRecord, error) {
	rec, ok, err := r.db.GetReverse(id)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// GetChain returns id's chains entry, or nil if absent (including
// when the section's chain never met the complex threshold).
func (r *Retriever) GetChain(id string) (*models.ChainRecord, error) {
	rec, ok, err := r.db.GetChain(id)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// GetMetadata returns the raw JSON stored under key, or nil if absent.
func (r *Retriever) GetMetadata(key string) (json.RawMessage, error) {
	raw, ok, err := r.db.GetRawMetadata(key)
	if err != nil || !ok {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Context is the get_complete_context result: a single consistent
// snapshot joining primary, citations, reverse citations, a truncated
// chain, and the provenance of every section it names.
type Context struct {
	Section          *models.Section                `json:"section"`
	Citations        []models.CitationDetail        `json:"citations,omitempty"`
	ReverseCitations []models.ReverseCitationDetail  `json:"reverse_citations,omitempty"`
	Chain            *models.ChainRecord             `json:"chain,omitempty"`
	TotalWordCount   int                             `json:"total_word_count"`
	Sources          []models.SourceRef              `json:"sources"`
}

// GetCompleteContext composes one Context for id inside a single
// read-only transaction, so the primary record, its citations, and
// its chain all reflect the same snapshot. Returns nil if id has no
// primary entry.
func (r *Retriever) GetCompleteContext(id string, includeChain, includeReverse bool, maxChainDepth int) (*Context, error) {
	b, err := r.db.GetBundle(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}

	ctx := &Context{
		Section:        b.Section,
		TotalWordCount: b.Section.WordCount,
	}
	sources := []models.SourceRef{sourceRefOf(b.Section)}

	if b.Citation != nil {
		ctx.Citations = b.Citation.ReferencesDetails
		for _, c := range ctx.Citations {
			if c.URL != "" {
				sources = append(sources, models.SourceRef{ID: c.Target, URL: c.URL, URLHash: c.URLHash})
			}
		}
	}

	if includeReverse && b.Reverse != nil {
		ctx.ReverseCitations = b.Reverse.CitingDetails
	}

	if includeChain && b.Chain != nil {
		chain := *b.Chain
		if maxChainDepth > 0 && len(chain.ChainSections) > maxChainDepth {
			chain.ChainSections = chain.ChainSections[:maxChainDepth]
			chain.CompleteChain = chain.CompleteChain[:maxChainDepth]
			chain.ChainDepth = maxChainDepth
		}
		ctx.Chain = &chain
		for _, snap := range chain.CompleteChain {
			if snap.ID == id {
				continue
			}
			ctx.TotalWordCount += snap.WordCount
			sources = append(sources, models.SourceRef{ID: snap.ID, URL: snap.URL, URLHash: snap.URLHash})
		}
	}

	ctx.Sources = dedupSources(sources)
	return ctx, nil
}

func sourceRefOf(sec *models.Section) models.SourceRef {
	return models.SourceRef{ID: sec.ID, URL: sec.SourceURL, URLHash: sec.SourceHash, VerifiedDate: sec.ScrapedDate}
}

func dedupSources(in []models.SourceRef) []models.SourceRef {
	seen := make(map[string]bool, len(in))
	out := make([]models.SourceRef, 0, len(in))
	for _, s := range in {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

// SearchResult is one search_by_keyword hit.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Relevance string `json:"relevance"` // "title" or "text"
	Preview   string `json:"preview"`
}

var errStopScan = errors.New("retriever: result limit reached")

// SearchByKeyword linearly scans the primary table for a
// case-insensitive substring match on title or full text. Unindexed;
// intended for diagnostic use, not production query paths.
func (r *Retriever) SearchByKeyword(keyword string, maxResults int) ([]SearchResult, error) {
	needle := strings.ToLower(keyword)
	var out []SearchResult

	err := r.db.ForEach("primary", func(key, value []byte) error {
		if maxResults > 0 && len(out) >= maxResults {
			return errStopScan
		}
		var sec models.Section
		if err := json.Unmarshal(value, &sec); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		text := sec.FullText()
		switch {
		case strings.Contains(strings.ToLower(sec.Title), needle):
			out = append(out, SearchResult{ID: sec.ID, Title: sec.Title, URL: sec.SourceURL, Relevance: "title", Preview: preview(text, 160)})
		case strings.Contains(strings.ToLower(text), needle):
			out = append(out, SearchResult{ID: sec.ID, Title: sec.Title, URL: sec.SourceURL, Relevance: "text", Preview: previewAround(text, needle, 160)})
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	return out, nil
}

func preview(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}

func previewAround(text, needle string, radius int) string {
	idx := strings.Index(strings.ToLower(text), needle)
	if idx < 0 {
		return preview(text, radius)
	}
	start := idx - radius/2
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + radius/2
	if end > len(text) {
		end = len(text)
	}
	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// MostCitedEntry is one most_cited result.
type MostCitedEntry struct {
	ID           string `json:"id"`
	CitedByCount int    `json:"cited_by_count"`
}

const inboundCountPrefix = "inbound_count_"

// MostCited scans the inbound-count index maintained under
// metadata["inbound_count_<id>"] and returns the top limit sections by
// count, descending.
func (r *Retriever) MostCited(limit int) ([]MostCitedEntry, error) {
	var all []MostCitedEntry
	err := r.db.ForEach("metadata", func(key, value []byte) error {
		k := string(key)
		if !strings.HasPrefix(k, inboundCountPrefix) {
			return nil
		}
		var count int
		if err := json.Unmarshal(value, &count); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		all = append(all, MostCitedEntry{ID: strings.TrimPrefix(k, inboundCountPrefix), CitedByCount: count})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CitedByCount != all[j].CitedByCount {
			return all[i].CitedByCount > all[j].CitedByCount
		}
		return all[i].ID < all[j].ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// RelatedSection is one related_sections neighbor.
type RelatedSection struct {
	ID    string `json:"id"`
	Label string `json:"label"` // "cites_primary" or "cited_by_primary"
}

// RelatedSections merges up to max/2 forward and max/2 reverse
// neighbors of id.
func (r *Retriever) RelatedSections(id string, max int) ([]RelatedSection, error) {
	half := max / 2
	var out []RelatedSection

	if cit, err := r.GetCitations(id); err != nil {
		return nil, err
	} else if cit != nil {
		for i, t := range cit.DirectReferences {
			if i >= half {
				break
			}
			out = append(out, RelatedSection{ID: t, Label: "cites_primary"})
		}
	}

	if rev, err := r.GetReverse(id); err != nil {
		return nil, err
	} else if rev != nil {
		for i, s := range rev.CitedBy {
			if i >= half {
				break
			}
			out = append(out, RelatedSection{ID: s, Label: "cited_by_primary"})
		}
	}

	return out, nil
}

// BuildLLMContext renders a human-readable context block for id:
// primary text, direct citations with full text, a truncated chain,
// a reverse-citation summary, and a provenance block. Every emitted
// section carries its url_hash.
func (r *Retriever) BuildLLMContext(id string, includeChain, includeReverse bool, maxChainDepth int) (string, error) {
	ctx, err := r.GetCompleteContext(id, includeChain, includeReverse, maxChainDepth)
	if err != nil {
		return "", err
	}
	if ctx == nil {
		return "", nil
	}

	var b strings.Builder
	sec := ctx.Section

	fmt.Fprintf(&b, "=== %s ===\n", sec.ID)
	if sec.Title != "" {
		fmt.Fprintf(&b, "%s\n", sec.Title)
	}
	fmt.Fprintf(&b, "[url_hash:%s]\n\n", sec.SourceHash)
	b.WriteString(sec.FullText())
	b.WriteString("\n\n")

	if len(ctx.Citations) > 0 {
		b.WriteString("--- Direct Citations ---\n")
		for _, c := range ctx.Citations {
			fmt.Fprintf(&b, "-> %s (%s) [url_hash:%s]\n", c.Target, c.Relationship, c.URLHash)
			if target, err := r.GetSection(c.Target); err == nil && target != nil {
				b.WriteString(target.FullText())
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	if ctx.Chain != nil {
		b.WriteString("--- Citation Chain ---\n")
		for _, snap := range ctx.Chain.CompleteChain {
			fmt.Fprintf(&b, "* %s: %s [url_hash:%s]\n", snap.ID, snap.Title, snap.URLHash)
		}
		b.WriteString("\n")
	}

	if len(ctx.ReverseCitations) > 0 {
		b.WriteString("--- Cited By ---\n")
		for _, rc := range ctx.ReverseCitations {
			hash := ""
			if s, err := r.GetSection(rc.Source); err == nil && s != nil {
				hash = s.SourceHash
			}
			fmt.Fprintf(&b, "<- %s [url_hash:%s]\n", rc.Source, hash)
		}
		b.WriteString("\n")
	}

	b.WriteString("--- Sources ---\n")
	for _, src := range ctx.Sources {
		fmt.Fprintf(&b, "%s %s [url_hash:%s] verified:%s\n", src.ID, src.URL, src.URLHash, src.VerifiedDate)
	}

	return b.String(), nil
}
