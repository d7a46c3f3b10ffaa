// Package citation implements citation extraction: given a
// canonical section's full text, it returns the typed directed edges
// that text contains, using an ordered, per-corpus table of
// regular-expression rules compiled once at package init.
package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/IntXgers/ohio-code/pkg/canon"
	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/models"
)

// Config parameterizes extraction behavior left to the caller's
// discretion.
type Config struct {
	// RangeExpansionLimit bounds inclusive statute ranges ("2903.01 to
	// 2903.20") that get expanded into every intervening id. Ranges
	// whose numeric gap exceeds this only emit their two endpoints.
	RangeExpansionLimit int
	// ChapterRefMode controls how "Chapter NNN. of the Revised Code"
	// references are recorded: "normalize" rewrites to NNN.01,
	// "chapter_key" stores a distinct "chapter:NNN" target.
	ChapterRefMode string
}

const (
	ChapterRefNormalize  = "normalize"
	ChapterRefChapterKey = "chapter_key"
)

// DefaultConfig returns the documented default extraction settings.
func DefaultConfig() Config {
	return Config{RangeExpansionLimit: 20, ChapterRefMode: ChapterRefNormalize}
}

// match is an internal representation of one regex hit before
// relationship classification and deduplication.
type match struct {
	targetCorpus corpus.Corpus // "" means "unresolved raw string" (case-law reporters)
	targetID     string        // bare id, or raw citation text when targetCorpus == ""
	pos          int
	end          int
}

// Extract returns the citation edges found in fullText for a section
// identified by sourceTaggedID in the given corpus.
func Extract(c corpus.Corpus, sourceTaggedID string, fullText string, cfg Config) []models.Citation {
	var raw []match

	switch c {
	case corpus.Statute:
		raw = append(raw, extractStatutePatterns(fullText, cfg)...)
	case corpus.Admin:
		raw = append(raw, extractAdminPatterns(fullText)...)
		raw = append(raw, extractStatutePatterns(fullText, cfg)...)
	case corpus.Constitution:
		raw = append(raw, extractConstitutionPatterns(fullText)...)
		raw = append(raw, extractStatutePatterns(fullText, cfg)...)
	case corpus.Caselaw:
		raw = append(raw, extractCaselawPatterns(fullText)...)
		raw = append(raw, extractStatutePatterns(fullText, cfg)...)
		raw = append(raw, extractAdminPatterns(fullText)...)
		raw = append(raw, extractConstitutionPatterns(fullText)...)
	}

	return classifyAndDedup(sourceTaggedID, fullText, raw)
}

// classifyAndDedup validates targets, classifies the relationship from
// the surrounding window, captures context, and applies the two-level
// deduplication rule.
func classifyAndDedup(sourceTaggedID, fullText string, raw []match) []models.Citation {
	type key struct {
		target string
		rel    models.Relationship
		ctx    string
	}
	seen := make(map[key]bool)
	out := make([]models.Citation, 0, len(raw))

	for _, m := range raw {
		if !validTarget(m) {
			continue // InvalidCitationTarget: discard this match, keep others
		}
		targetTagged := taggedTarget(m)
		rel := classifyRelationship(fullText, m.pos, m.end)
		ctx := captureContext(fullText, m.pos, m.end)

		k := key{target: targetTagged, rel: rel, ctx: ctx}
		if seen[k] {
			continue
		}
		seen[k] = true

		out = append(out, models.Citation{
			SourceID:     sourceTaggedID,
			TargetID:     targetTagged,
			Relationship: rel,
			Context:      ctx,
			Position:     m.pos,
		})
	}
	return out
}

func taggedTarget(m match) string {
	if m.targetCorpus == "" {
		return m.targetID // unresolved reporter citation, stored as-is
	}
	return m.targetCorpus.WithTag(m.targetID)
}

func validTarget(m match) bool {
	if m.targetCorpus == "" {
		return strings.TrimSpace(m.targetID) != ""
	}
	switch m.targetCorpus {
	case corpus.Statute:
		return canon.ValidStatuteID(m.targetID)
	case corpus.Admin:
		return canon.ValidAdminID(m.targetID)
	case corpus.Constitution:
		return canon.ValidConstitutionID(m.targetID)
	default:
		return true
	}
}

// relationshipRule is one ordered (phrase pattern, relationship) entry
// tested against the lowercased, whitespace-collapsed window around a
// match. First rule whose pattern matches wins.
type relationshipRule struct {
	re  *regexp.Regexp
	rel models.Relationship
}

var relationshipRules = []relationshipRule{
	{regexp.MustCompile(`as defined in`), models.RelDefines},
	{regexp.MustCompile(`pursuant to|in accordance with|as provided in|\bunder\b`), models.RelCrossReference},
	{regexp.MustCompile(`as amended by`), models.RelAmendedBy},
	{regexp.MustCompile(`superseded by|replaced by`), models.RelSupersededBy},
	{regexp.MustCompile(`overrul(?:ed|ing)`), models.RelOverruled},
	{regexp.MustCompile(`revers(?:ed|ing)`), models.RelReversed},
	{regexp.MustCompile(`affirm(?:ed|ing)`), models.RelAffirmed},
	{regexp.MustCompile(`distinguish(?:ed|ing)`), models.RelDistinguished},
	{regexp.MustCompile(`follow(?:ed|ing|s)?`), models.RelFollowed},
	{regexp.MustCompile(`question(?:ed|ing)`), models.RelQuestioned},
	{regexp.MustCompile(`compar(?:ed|ing)|cf\.|contrast`), models.RelCompared},
}

const windowRadius = 30

func classifyRelationship(fullText string, pos, end int) models.Relationship {
	start := pos - windowRadius
	if start < 0 {
		start = 0
	}
	stop := end + windowRadius
	if stop > len(fullText) {
		stop = len(fullText)
	}
	window := collapseWhitespace(strings.ToLower(fullText[start:stop]))

	for _, rule := range relationshipRules {
		if rule.re.MatchString(window) {
			return rule.rel
		}
	}
	return models.RelCrossReference
}

func captureContext(fullText string, pos, end int) string {
	start := pos - windowRadius
	if start < 0 {
		start = 0
	}
	stop := end + windowRadius
	if stop > len(fullText) {
		stop = len(fullText)
	}
	ctx := collapseWhitespace(fullText[start:stop])
	if len(ctx) > 100 {
		ctx = ctx[:100]
	}
	return ctx
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// --- Statute grammar ---

var (
	sectionRangeRe  = regexp.MustCompile(`(?i)sections?\s+(\d{3,4}\.\d+)(\s+to\s+(\d{3,4}\.\d+))?`)
	divisionOfRe    = regexp.MustCompile(`(?i)division\s*\([A-Z]\d*\)\s+of\s+section\s+(\d{3,4}\.\d+)`)
	chapterRe       = regexp.MustCompile(`(?i)(?:Chapter\s+)?(\d{3,4})\.\s+of\s+the\s+Revised\s+Code`)
	standaloneRe    = regexp.MustCompile(`\d{3,4}\.\d+`)
	rcAbbrevRe      = regexp.MustCompile(`(?i)\bR\.?C\.?\s+(\d{3,4}\.\d+)`)
	orcAbbrevRe     = regexp.MustCompile(`(?i)\bORC\s+(\d{3,4}\.\d+)`)
)

func extractStatutePatterns(text string, cfg Config) []match {
	var out []match

	for _, m := range sectionRangeRe.FindAllStringSubmatchIndex(text, -1) {
		startID, endID := m[2], m[3]
		lo := text[startID:endID]
		out = append(out, match{targetCorpus: corpus.Statute, targetID: lo, pos: startID, end: endID})

		if m[6] >= 0 { // range end group present
			hiStart, hiEnd := m[6], m[7]
			hi := text[hiStart:hiEnd]
			out = append(out, expandRange(lo, hi, hiStart, hiEnd, cfg)...)
		}
	}

	for _, m := range divisionOfRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, match{targetCorpus: corpus.Statute, targetID: text[m[2]:m[3]], pos: m[2], end: m[3]})
	}

	for _, m := range chapterRe.FindAllStringSubmatchIndex(text, -1) {
		chNum := text[m[2]:m[3]]
		out = append(out, chapterMatch(chNum, m[0], m[1], cfg))
	}

	out = append(out, standaloneMatches(text, standaloneRe)...)

	for _, m := range rcAbbrevRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, match{targetCorpus: corpus.Statute, targetID: text[m[2]:m[3]], pos: m[0], end: m[1]})
	}
	for _, m := range orcAbbrevRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, match{targetCorpus: corpus.Statute, targetID: text[m[2]:m[3]], pos: m[0], end: m[1]})
	}

	return out
}

// standaloneMatches applies the "standalone numeric" rule, emulating
// the original's negative lookaround (RE2 has none) by checking the
// byte before/after each candidate match isn't part of a larger
// number.
func standaloneMatches(text string, re *regexp.Regexp) []match {
	var out []match
	for _, m := range re.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		if start > 0 {
			c := text[start-1]
			if c == '.' || (c >= '0' && c <= '9') {
				continue
			}
		}
		if end < len(text) {
			c := text[end]
			if c == '.' || (c >= '0' && c <= '9') {
				continue
			}
		}
		out = append(out, match{targetCorpus: corpus.Statute, targetID: text[start:end], pos: start, end: end})
	}
	return out
}

// expandRange implements the range-expansion policy: endpoints sharing
// a chapter prefix and within cfg.RangeExpansionLimit get every
// intervening id; otherwise only the high endpoint is additionally
// emitted (the low endpoint was already emitted by the caller).
func expandRange(lo, hi string, hiPos, hiEnd int, cfg Config) []match {
	loChapter, loOK := canon.StatuteChapter(lo)
	hiChapter, hiOK := canon.StatuteChapter(hi)
	loNum, loNumOK := canon.StatuteNumeric(lo)
	hiNum, hiNumOK := canon.StatuteNumeric(hi)

	if !loOK || !hiOK || loChapter != hiChapter || !loNumOK || !hiNumOK || hiNum < loNum || hiNum-loNum > cfg.RangeExpansionLimit {
		return []match{{targetCorpus: corpus.Statute, targetID: hi, pos: hiPos, end: hiEnd}}
	}

	var out []match
	for n := loNum + 1; n <= hiNum; n++ {
		id := loChapter + "." + zeroPad(n)
		out = append(out, match{targetCorpus: corpus.Statute, targetID: id, pos: hiPos, end: hiEnd})
	}
	return out
}

func zeroPad(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}

func chapterMatch(chNum string, pos, end int, cfg Config) match {
	if cfg.ChapterRefMode == ChapterRefChapterKey {
		return match{targetCorpus: "", targetID: "chapter:" + chNum, pos: pos, end: end}
	}
	return match{targetCorpus: corpus.Statute, targetID: chNum + ".01", pos: pos, end: end}
}

// --- Admin grammar ---

var ruleFormRe = regexp.MustCompile(`(?i)\brule\s+(\d{3,4}-\d{1,2}-\d{1,2})`)

func extractAdminPatterns(text string) []match {
	var out []match
	for _, m := range ruleFormRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, match{targetCorpus: corpus.Admin, targetID: text[m[2]:m[3]], pos: m[0], end: m[1]})
	}
	return out
}

// --- Constitution grammar ---

var (
	articleLongRe  = regexp.MustCompile(`(?i)\bArticle\s+([IVXLCDM]+),?\s+Section\s+(\d+[a-z]?)`)
	articleAbbrevRe = regexp.MustCompile(`(?i)\bArt\.?\s+([IVXLCDM]+)\s*,?\s*(?:Sec\.?|§)\s*(\d+[a-z]?)`)
	articleShortRe  = regexp.MustCompile(`\b([IVXLCDM]+)\.(\d+[a-z]?)\b`)
)

func extractConstitutionPatterns(text string) []match {
	var out []match
	for _, m := range articleLongRe.FindAllStringSubmatchIndex(text, -1) {
		id := canonicalArticleID(text[m[2]:m[3]], text[m[4]:m[5]])
		out = append(out, match{targetCorpus: corpus.Constitution, targetID: id, pos: m[0], end: m[1]})
	}
	for _, m := range articleAbbrevRe.FindAllStringSubmatchIndex(text, -1) {
		id := canonicalArticleID(text[m[2]:m[3]], text[m[4]:m[5]])
		out = append(out, match{targetCorpus: corpus.Constitution, targetID: id, pos: m[0], end: m[1]})
	}
	for _, m := range articleShortRe.FindAllStringSubmatchIndex(text, -1) {
		id := canonicalArticleID(text[m[2]:m[3]], text[m[4]:m[5]])
		out = append(out, match{targetCorpus: corpus.Constitution, targetID: id, pos: m[0], end: m[1]})
	}
	return out
}

func canonicalArticleID(roman, section string) string {
	return "Article " + strings.ToUpper(roman) + ", Section " + section
}

// --- Case-law grammar ---
//
// Reporter citations are only partially resolvable in the source
// material: these patterns match the citation text but store it
// verbatim as the target id rather than resolving it to a
// primary-table key.

var caselawReporterRes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d+\s+Ohio(?:\s+St\.?|\s+App\.?)?\s*(?:\d+d)?\s*,?\s*\d+\b`),
	regexp.MustCompile(`\b\d+\s+N\.E\.(?:2d|3d)?\s*\d+\b`),
	regexp.MustCompile(`\b\d+\s+F\.\d+d\s*\d+\b`),
	regexp.MustCompile(`\b\d+\s+U\.S\.\s*\d+\b`),
	regexp.MustCompile(`\b\d+\s+F\.\s*Supp\.(?:\s*\d+d)?\s*\d+\b`),
}

func extractCaselawPatterns(text string) []match {
	var out []match
	for _, re := range caselawReporterRes {
		for _, m := range re.FindAllStringIndex(text, -1) {
			cite := collapseWhitespace(text[m[0]:m[1]])
			out = append(out, match{targetCorpus: "", targetID: cite, pos: m[0], end: m[1]})
		}
	}
	return out
}
