package seo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaObject = `{
	"organization": {"@context": "https://schema.org", "@type": "Organization", "name": "Studio"},
	"note": "not an object",
	"list": [{"@type": "Thing"}],
	"empty": null,
	"website": {"@type": "WebSite", "url": "https://studio.example.com"}
}`

func TestExtractJSONLD_ObjectAndStringAgree(t *testing.T) {
	encoded, err := json.Marshal(schemaObject)
	require.NoError(t, err)

	fromObject := ExtractJSONLD(json.RawMessage(schemaObject))
	fromString := ExtractJSONLD(json.RawMessage(encoded))

	require.Len(t, fromObject, 2)
	assert.Equal(t, fromObject, fromString)
	assert.Equal(t, "Organization", fromObject[0]["@type"])
	assert.Equal(t, "WebSite", fromObject[1]["@type"])
}

func TestExtractJSONLD_BrowserEnumerationOrder(t *testing.T) {
	raw := `{
		"website": {"@type": "WebSite"},
		"10": {"@type": "Ten"},
		"organization": {"@type": "Stale"},
		"2": {"@type": "Two"},
		"02": {"@type": "LeadingZero"},
		"organization": {"@type": "Organization"},
		"-1": {"@type": "Negative"}
	}`

	var types []any
	for _, obj := range ExtractJSONLD(json.RawMessage(raw)) {
		types = append(types, obj["@type"])
	}
	assert.Equal(t, []any{"Two", "Ten", "WebSite", "Organization", "LeadingZero", "Negative"}, types)
}

func TestExtractJSONLD_DuplicateKeyLastValueWins(t *testing.T) {
	raw := `{"schema": {"@type": "Organization"}, "schema": "replaced"}`
	assert.Empty(t, ExtractJSONLD(json.RawMessage(raw)))
}

func TestExtractJSONLD_Rejects(t *testing.T) {
	for _, raw := range []string{``, `null`, `""`, `"not json"`, `[{"@type":"Thing"}]`, `42`, `"[1,2]"`} {
		assert.Empty(t, ExtractJSONLD(json.RawMessage(raw)), raw)
	}
}
