// Package enrich implements the Enricher: deterministic,
// no-external-call rules that compute classification, complexity, key
// terms, and subject tags from a section's title and full text. Never
// touches Section.Paragraphs.
package enrich

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/models"
)

// Input is the data the enricher needs; it never accepts raw
// Paragraphs mutation and never needs network or model access.
type Input struct {
	Corpus               corpus.Corpus
	ID                   string
	Header               string
	Title                string
	FullText             string
	WordCount            int
	ParagraphCount       int
	ForwardCitationCount int
}

// Enrich computes an Enrichment record for one section.
func Enrich(in Input) *models.Enrichment {
	e := &models.Enrichment{
		Summary:       summary(in),
		LegalType:     legalType(in),
		PracticeAreas: practiceAreas(in),
		Complexity:    complexity(in),
		KeyTerms:      keyTerms(in),
	}

	if in.Corpus == corpus.Statute || in.Corpus == corpus.Caselaw {
		e.OffenseLevel = offenseLevel(in.FullText)
		e.OffenseDegree = offenseDegree(in.FullText)
	}
	if in.Corpus == corpus.Constitution {
		applyConstitutionFields(e, in)
	}

	return e
}

// --- summary ---

func summary(in Input) string {
	if in.Corpus == corpus.Caselaw {
		return caseSummary(in.Title)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.Header)
		if title == "" {
			return "Relates to an unspecified provision."
		}
	}
	lower := strings.ToLower(title)

	switch {
	case strings.Contains(lower, "definitions"):
		return "Defines " + title
	case strings.Contains(lower, "penalty"):
		return "Establishes penalties for " + title
	case strings.Contains(lower, "procedure"), strings.Contains(lower, "process"), strings.Contains(lower, "filing"):
		return "Describes procedure for " + title
	default:
		return "Relates to " + title
	}
}

func caseSummary(title string) string {
	for _, sep := range []string{" v. ", " vs. ", " v ", " vs "} {
		if i := strings.Index(title, sep); i >= 0 {
			a := strings.TrimSpace(title[:i])
			b := strings.TrimSpace(title[i+len(sep):])
			if a != "" && b != "" {
				return "Case between " + a + " and " + b
			}
		}
	}
	return "Relates to " + title
}

// --- legal_type ---

var criminalMarkers = []string{"felony", "misdemeanor", "imprisonment", "convicted", "guilty", "offense", "violation", "penalty"}

func countHits(text string, markers []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, m := range markers {
		if wordContains(lower, m) {
			n++
		}
	}
	return n
}

func wordContains(lower, term string) bool {
	re, ok := wordBoundaryCache[term]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		wordBoundaryCache[term] = re
	}
	return re.MatchString(lower)
}

var wordBoundaryCache = map[string]*regexp.Regexp{}

func legalType(in Input) string {
	lowerText := strings.ToLower(in.FullText)
	lowerHeader := strings.ToLower(in.Header)

	if in.Corpus == corpus.Caselaw {
		if countHits(in.FullText, criminalMarkers) >= 3 {
			return models.LegalTypeCriminalCase
		}
		if wordContains(lowerText, "appeal") || wordContains(lowerText, "appellant") || wordContains(lowerText, "appellee") {
			return models.LegalTypeAppellateCase
		}
		return models.LegalTypeCivilCase
	}

	if countHits(in.FullText, criminalMarkers) >= 2 {
		return models.LegalTypeCriminalStatute
	}
	if strings.Contains(lowerHeader, "definitions") || strings.Contains(lowerText, "as used in") {
		return models.LegalTypeDefinitional
	}
	for _, m := range []string{"procedure", "process", "filing", "hearing", "motion"} {
		if wordContains(lowerText, m) {
			return models.LegalTypeProcedural
		}
	}
	return models.LegalTypeCivilStatute
}

// --- practice_areas ---

var practiceAreaKeywords = map[string][]string{
	models.AreaCriminalLaw:       {"felony", "misdemeanor", "offense", "crime", "penalty", "convicted"},
	models.AreaFamilyLaw:         {"marriage", "divorce", "custody", "child support", "adoption"},
	models.AreaPropertyLaw:       {"property", "deed", "title", "easement", "lease"},
	models.AreaBusinessLaw:       {"corporation", "partnership", "business", "securities", "commerce"},
	models.AreaTaxLaw:            {"tax", "taxation", "revenue", "levy"},
	models.AreaEmploymentLaw:     {"employer", "employee", "wages", "workers' compensation"},
	models.AreaAdministrativeLaw: {"agency", "rule", "regulation", "administrative"},
	models.AreaCivilProcedure:    {"motion", "pleading", "discovery", "summons", "complaint"},
	models.AreaConstitutionalLaw: {"constitution", "amendment", "due process", "equal protection"},
	models.AreaTortLaw:           {"negligence", "liability", "damages", "tort"},
}

func practiceAreas(in Input) []string {
	lower := strings.ToLower(in.FullText)
	var areas []string
	for area, keywords := range practiceAreaKeywords {
		hits := 0
		for _, kw := range keywords {
			if wordContains(lower, kw) {
				hits++
			}
		}
		if hits >= 2 {
			areas = append(areas, area)
		}
	}

	if in.Corpus == corpus.Statute {
		if ch, ok := chapterRange(in.ID); ok && ch >= 2900 && ch <= 2999 {
			areas = appendUnique(areas, models.AreaCriminalLaw)
		}
	}
	sort.Strings(areas) // map iteration order is random; keep output stable

	if len(areas) == 0 {
		areas = append(areas, models.AreaGeneral)
	}
	return areas
}

func chapterRange(id string) (int, bool) {
	i := strings.IndexByte(id, '.')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(id[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// --- complexity ---

func complexity(in Input) int {
	score := 5

	switch {
	case in.WordCount > 1000:
		score += 2
	case in.WordCount > 500:
		score += 1
	case in.WordCount < 100:
		score -= 1
	}

	switch {
	case in.ParagraphCount > 15:
		score += 2
	case in.ParagraphCount > 10:
		score += 1
	}

	switch {
	case in.ForwardCitationCount > 10:
		score += 2
	case in.ForwardCitationCount > 5:
		score += 1
	case in.ForwardCitationCount == 0:
		score -= 1
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

// --- key_terms ---

var stopWords = map[string]bool{"the": true, "and": true, "for": true, "with": true, "from": true, "this": true, "that": true}

var (
	titleSplitRe    = regexp.MustCompile(`[,;.\-\s]+`)
	quotedPhraseRe  = regexp.MustCompile(`"([^"]+)"`)
	properPhraseRe  = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
)

func keyTerms(in Input) []string {
	var ordered []string
	seen := map[string]bool{}
	add := func(term string) {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" || seen[t] || len(ordered) >= 10 {
			return
		}
		seen[t] = true
		ordered = append(ordered, t)
	}

	for _, tok := range titleSplitRe.Split(in.Title, -1) {
		if len(tok) > 3 && !stopWords[strings.ToLower(tok)] {
			add(tok)
		}
	}

	head := in.FullText
	if len(head) > 500 {
		head = head[:500]
	}
	for _, m := range quotedPhraseRe.FindAllStringSubmatch(head, -1) {
		add(m[1])
	}
	for _, m := range properPhraseRe.FindAllStringSubmatch(head, -1) {
		if len(m[1]) > 5 {
			add(m[1])
		}
	}

	if len(ordered) > 10 {
		ordered = ordered[:10]
	}
	return ordered
}

// --- offense fields (statute and case law) ---

var offenseLevelRe = regexp.MustCompile(`(?i)\b(felony|misdemeanor|minor misdemeanor)\b`)
var offenseDegreeRe = regexp.MustCompile(`(?i)\b(felony|misdemeanor)\s+of\s+the\s+(first|second|third|fourth|fifth)\s+degree\b`)

var ordinalFelony = map[string]string{"first": "F1", "second": "F2", "third": "F3", "fourth": "F4", "fifth": "F5"}
var ordinalMisdemeanor = map[string]string{"first": "M1", "second": "M2", "third": "M3", "fourth": "M4"}

func offenseLevel(text string) string {
	m := offenseLevelRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func offenseDegree(text string) string {
	m := offenseDegreeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	kind, ord := strings.ToLower(m[1]), strings.ToLower(m[2])
	if kind == "felony" {
		return ordinalFelony[ord]
	}
	return ordinalMisdemeanor[ord]
}

// --- constitution-only fields ---

var romanArticleNames = map[string]struct{ Name, Type string }{
	"I":    {"Bill of Rights", "rights"},
	"II":   {"Legislative", "legislative"},
	"III":  {"Executive", "executive"},
	"IV":   {"Judicial", "judicial"},
	"V":    {"Elective Franchise", "elections"},
	"VI":   {"Education", "education"},
	"VII":  {"Public Institutions", "administrative"},
	"VIII": {"Public Debt and Public Works", "finance"},
	"IX":   {"Militia", "administrative"},
	"X":    {"County and Township Organizations", "local_government"},
}

var rightsCategoryBySection = map[string]string{
	"1": "inalienable_rights",
	"9": "bail_and_punishment",
	"10": "criminal_procedure",
	"16": "due_process_and_remedy",
}

func applyConstitutionFields(e *models.Enrichment, in Input) {
	roman := romanFromID(in.ID)
	if info, ok := romanArticleNames[roman]; ok {
		e.ArticleName = info.Name
		e.ArticleType = info.Type
		e.GovernmentBranch = governmentBranch(info.Type)
	}
	if roman == "I" {
		section := sectionFromID(in.ID)
		if cat, ok := rightsCategoryBySection[section]; ok {
			e.RightsCategory = cat
		} else {
			e.RightsCategory = rightsCategoryFallback(in.FullText)
		}
	}
}

func governmentBranch(articleType string) string {
	switch articleType {
	case "legislative":
		return "legislative"
	case "executive":
		return "executive"
	case "judicial":
		return "judicial"
	default:
		return ""
	}
}

func rightsCategoryFallback(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "speech") || strings.Contains(lower, "religion"):
		return "expression_and_religion"
	case strings.Contains(lower, "search") || strings.Contains(lower, "seizure"):
		return "search_and_seizure"
	case strings.Contains(lower, "jury"):
		return "trial_rights"
	default:
		return "general_rights"
	}
}

func romanFromID(id string) string {
	const prefix = "Article "
	if !strings.HasPrefix(id, prefix) {
		return ""
	}
	rest := id[len(prefix):]
	if i := strings.IndexByte(rest, ','); i >= 0 {
		return rest[:i]
	}
	return rest
}

func sectionFromID(id string) string {
	const marker = "Section "
	i := strings.Index(id, marker)
	if i < 0 {
		return ""
	}
	return id[i+len(marker):]
}
