package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Corpus
		wantErr bool
	}{
		{name: "statute", in: "statute", want: Statute},
		{name: "statute alias", in: "Revised_Code", want: Statute},
		{name: "admin", in: "ADMIN", want: Admin},
		{name: "admin alias", in: "rule", want: Admin},
		{name: "constitution", in: "constitution", want: Constitution},
		{name: "caselaw", in: "case_law", want: Caselaw},
		{name: "unknown", in: "tax_court", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagAndWithTag(t *testing.T) {
	tests := []struct {
		c    Corpus
		tag  string
		id   string
		want string
	}{
		{Statute, "orc", "2903.01", "orc:2903.01"},
		{Admin, "oac", "4501-1-01", "oac:4501-1-01"},
		{Constitution, "const", "Article I, Section 1", "const:Article I, Section 1"},
		{Caselaw, "case", "12345", "case:12345"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tag, tt.c.Tag())
		assert.Equal(t, tt.want, tt.c.WithTag(tt.id))
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Statute.Valid())
	assert.False(t, Corpus("bogus").Valid())
	assert.False(t, Corpus("").Valid())
}
