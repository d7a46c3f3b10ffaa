// Package corpus defines the closed set of legal corpora this engine
// ingests and the tag each one contributes to canonical section ids.
package corpus

import "fmt"

// Corpus identifies which of the four source collections a section
// belongs to. The zero value is intentionally invalid so a
// zero-valued Section can never be mistaken for a Statute section.
type Corpus string

const (
	Statute      Corpus = "STATUTE"
	Admin        Corpus = "ADMIN"
	Constitution Corpus = "CONSTITUTION"
	Caselaw      Corpus = "CASELAW"
)

// Tag is the short prefix used to namespace a canonical id in the KV
// store, e.g. "orc:2903.01" for a statute section.
func (c Corpus) Tag() string {
	switch c {
	case Statute:
		return "orc"
	case Admin:
		return "oac"
	case Constitution:
		return "const"
	case Caselaw:
		return "case"
	default:
		return "unk"
	}
}

// Valid reports whether c is one of the four known corpora.
func (c Corpus) Valid() bool {
	switch c {
	case Statute, Admin, Constitution, Caselaw:
		return true
	default:
		return false
	}
}

// Parse maps a scraper-provided corpus name to a Corpus value. Matching
// is case-insensitive and accepts a handful of aliases seen across the
// four source scrapers (e.g. "revised_code" for Statute).
func Parse(name string) (Corpus, error) {
	switch normalize(name) {
	case "statute", "revised_code", "orc":
		return Statute, nil
	case "admin", "administrative", "oac", "rule":
		return Admin, nil
	case "constitution", "const":
		return Constitution, nil
	case "caselaw", "case_law", "case":
		return Caselaw, nil
	default:
		return "", fmt.Errorf("corpus: unrecognized corpus %q", name)
	}
}

func normalize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// WithTag prefixes a bare canonical id with this corpus's tag, e.g.
// Statute.WithTag("2903.01") -> "orc:2903.01".
func (c Corpus) WithTag(id string) string {
	return c.Tag() + ":" + id
}
