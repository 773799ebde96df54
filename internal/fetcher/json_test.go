package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnvelope struct {
	Brands []struct {
		Name string `json:"name"`
	} `json:"sample_enhanced_brands"`
}

func TestDecodeJSONObject(t *testing.T) {
	input := `{"sample_enhanced_brands":[{"name":"Acme"},{"name":"Globex"}]}`

	obj, err := DecodeJSONObject[testEnvelope](strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, obj.Brands, 2)
	assert.Equal(t, "Acme", obj.Brands[0].Name)
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testEnvelope](strings.NewReader(`{"sample_enhanced_brands":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}
