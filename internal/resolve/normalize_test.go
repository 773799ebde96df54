package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeName(""))
	assert.Equal(t, "", NormalizeName("   "))
	assert.Equal(t, "", NormalizeName("\t\n"))
}

func TestNormalizeName_Lowercase(t *testing.T) {
	assert.Equal(t, "acme advisors", NormalizeName("ACME Advisors"))
}

func TestNormalizeName_EquivalentSpellings(t *testing.T) {
	want := NormalizeName("Example Corp.")
	assert.Equal(t, "example", want)
	assert.Equal(t, want, NormalizeName("example corp"))
	assert.Equal(t, want, NormalizeName("EXAMPLE CORP"))
}

func TestNormalizeName_AcmeVariants(t *testing.T) {
	assert.Equal(t, "acme", NormalizeName("Acme Inc"))
	assert.Equal(t, "acme", NormalizeName("ACME INC."))
	assert.Equal(t, "acme", NormalizeName("Acme Corporation"))
}

func TestNormalizeName_Suffixes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Acme LLC", "acme"},
		{"Acme Ltd", "acme"},
		{"Acme Ltd.", "acme"},
		{"Acme Company", "acme"},
		{"Acme Co", "acme"},
		{"Acme Co.", "acme"},
		{"Acme Group", "acme"},
		{"Acme plc", "acme"},
		{"Acme PLC", "acme"},
		{"Siemens AG", "siemens"},
		{"Heidelberg Materials GmbH", "heidelberg materials"},
		{"Airbus SE", "airbus"},
		{"Carrefour SA", "carrefour"},
		{"Philips NV", "philips"},
		{"Acme BV", "acme"},
		{"Volvo AB", "volvo"},
		{"Orkla AS", "orkla"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeName_OnlyTrailingSuffixStripped(t *testing.T) {
	// Suffix tokens in the middle of a name are content.
	assert.Equal(t, "group 4 securicor", NormalizeName("Group 4 Securicor"))
	assert.Equal(t, "acme holdings", NormalizeName("Acme Holdings Inc"))
}

func TestNormalizeName_ChainedSuffixes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Elbit Systems Group Ltd", "elbit systems"},
		{"Foo Co Ltd", "foo"},
		{"Acme Corp. LLC", "acme"},
		{"Siemens Group AG", "siemens"},
		// Each pattern runs once in a fixed order, so a suffix whose pattern
		// ran before it was exposed stays.
		{"Acme Inc Ltd", "acme inc"},
		{"Acme Ltd Ltd", "acme ltd"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
	assert.Equal(t, NormalizeName("Elbit Systems"), NormalizeName("Elbit Systems Group Ltd"))
}

func TestNormalizeName_SuffixMustBeWholeWord(t *testing.T) {
	assert.Equal(t, "elbit systems", NormalizeName("Elbit Systems"))
	assert.Equal(t, "tesco", NormalizeName("Tesco"))
	assert.Equal(t, "disco", NormalizeName("Disco"))
}

func TestNormalizeName_OnlySuffix(t *testing.T) {
	// A bare suffix has no preceding whitespace and is kept.
	assert.Equal(t, "llc", NormalizeName("LLC"))
}

func TestNormalizeName_Punctuation(t *testing.T) {
	assert.Equal(t, "smith jones", NormalizeName("Smith & Jones"))
	assert.Equal(t, "joes advisors", NormalizeName("Joe's Advisors"))
	assert.Equal(t, "hewlettpackard", NormalizeName("Hewlett-Packard"))
	assert.Equal(t, "hp_enterprise", NormalizeName("HP_Enterprise"))
}

func TestNormalizeName_CollapseSpaces(t *testing.T) {
	assert.Equal(t, "acme advisors", NormalizeName("  Acme   Advisors  "))
	assert.Equal(t, "acme advisors", NormalizeName("Acme\tAdvisors"))
}

func TestNormalizeName_CompatibilityForms(t *testing.T) {
	// Fullwidth letters fold to their ASCII forms.
	assert.Equal(t, "acme", NormalizeName("ＡＣＭＥ"))
	// Decomposed and precomposed accents normalize identically.
	assert.Equal(t, NormalizeName("Caf\u00e9"), NormalizeName("Cafe\u0301"))
}

func TestNormalizeName_Deterministic(t *testing.T) {
	for range 3 {
		assert.Equal(t, "raymond james associates", NormalizeName("Raymond James & Associates, Inc."))
	}
}
