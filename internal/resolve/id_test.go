package resolve

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID_Format(t *testing.T) {
	assert.Equal(t, "comp_acme_53bce4f1", GenerateID("Acme Inc"))
	assert.Equal(t, "comp_international_busine_fdcbcb60", GenerateID("International Business Machines Corp"))
}

func TestGenerateID_ChainedSuffixesAndUnderscore(t *testing.T) {
	assert.Equal(t, "comp_elbit_systems_be6a7e30", GenerateID("Elbit Systems Group Ltd"))
	assert.Equal(t, "comp_elbit_systems_be6a7e30", GenerateID("Elbit Systems"))
	assert.Equal(t, "comp_foo_acbd18db", GenerateID("Foo Co Ltd"))
	assert.Equal(t, "comp_hp_enterprise_3c1b85ba", GenerateID("HP_Enterprise"))
}

func TestGenerateID_Empty(t *testing.T) {
	assert.Equal(t, "comp__d41d8cd9", GenerateID(""))
	assert.Equal(t, GenerateID(""), GenerateID("   "))
}

func TestGenerateID_Deterministic(t *testing.T) {
	assert.Equal(t, GenerateID("Elbit Systems Ltd"), GenerateID("Elbit Systems Ltd"))
}

func TestGenerateID_NormalizedSpellingsShareID(t *testing.T) {
	id := GenerateID("Acme Inc")
	assert.Equal(t, id, GenerateID("ACME INC."))
	assert.Equal(t, id, GenerateID("Acme Corporation"))
}

func TestGenerateID_NonASCIIBecomesUnderscore(t *testing.T) {
	id := GenerateID("Café Noir")
	assert.True(t, strings.HasPrefix(id, "comp_caf__noir_"), id)
}

func TestGenerateID_SharedPrefixDistinctIDs(t *testing.T) {
	// Both names truncate to the same 20-character prefix.
	a := GenerateID("International Business Machines")
	b := GenerateID("International Business Services")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a[:len("comp_international_busine")], b[:len("comp_international_busine")])
}

func TestGenerateID_NoCollisionsAcrossCorpus(t *testing.T) {
	names := []string{
		"Caterpillar", "Hewlett Packard Enterprise", "Motorola Solutions", "Elbit Systems",
		"Booking Holdings", "Airbnb", "Expedia Group", "TripAdvisor", "JCB", "Volvo",
		"Hyundai Heavy Industries", "Heidelberg Materials", "Cemex", "Siemens", "Alstom",
		"General Mills", "Puma", "Carrefour", "AXA", "Barclays", "Hikvision", "Cisco",
		"Microsoft", "Google", "Amazon", "Intel", "Palantir", "Lockheed Martin", "Boeing",
		"Raytheon", "General Dynamics", "Northrop Grumman", "Leonardo", "Thales",
	}
	for i := range 200 {
		names = append(names, fmt.Sprintf("Settlement Supplier %d", i))
	}

	seen := make(map[string]string, len(names))
	for _, n := range names {
		id := GenerateID(n)
		prev, dup := seen[id]
		require.False(t, dup, "collision between %q and %q", prev, n)
		seen[id] = n
	}
}
