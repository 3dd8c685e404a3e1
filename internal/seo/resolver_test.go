package seo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	records map[string]*PageRecord
	err     error
	calls   int
}

func (s *staticSource) FindByRoute(_ context.Context, route string) (*PageRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records[route], nil
}

type lookupRecorder struct {
	results []string
}

func (l *lookupRecorder) ObserveLookup(result string) {
	l.results = append(l.results, result)
}

func newTestResolver(source RecordSource) *Resolver {
	return NewResolver(source, Options{
		SiteURL:     "https://studio.example.com/",
		FileBaseURL: "https://pb.example.com",
	}, nil)
}

func TestResolve_NoRecordReturnsDefaults(t *testing.T) {
	observer := &lookupRecorder{}
	r := newTestResolver(&staticSource{}).WithObserver(observer)

	got := r.Resolve(context.Background(), "about")

	assert.Equal(t, r.DefaultBundle("/about"), got)
	assert.Equal(t, DefaultTitle, got.Title)
	assert.Equal(t, DefaultDescription, got.Description)
	assert.Equal(t, "https://studio.example.com/about", got.Canonical)
	assert.Equal(t, Robots{Index: true, Follow: true}, got.Robots)
	assert.Equal(t, []string{"https://studio.example.com/hero_vva.png"}, got.OpenGraph.Images)
	assert.Equal(t, "website", got.OpenGraph.Type)
	assert.Equal(t, "summary_large_image", got.Twitter.Card)
	assert.Empty(t, got.JSONLD)
	assert.Equal(t, []string{"default"}, observer.results)
}

func TestResolve_LookupErrorFallsBackToDefaults(t *testing.T) {
	observer := &lookupRecorder{}
	r := newTestResolver(&staticSource{err: errors.New("boom")}).WithObserver(observer)

	got := r.Resolve(context.Background(), "/")

	assert.Equal(t, DefaultTitle, got.Title)
	assert.Equal(t, "https://studio.example.com/", got.Canonical)
	assert.Equal(t, []string{"error"}, observer.results)
}

func TestResolve_ExplicitValuesWin(t *testing.T) {
	rec := &PageRecord{
		ID:             "rec1",
		CollectionID:   "col1",
		Route:          "/design",
		SEOTitle:       "  Design | Studio ",
		SEODescription: "Selected work.",
		RobotsIndex:    OptionalBool{Set: true, Value: false},
		OGTitle:        "Our design work",
		OGImage:        "cover image.jpg",
		CanonicalURL:   "/design/",
		Title:          "ignored",
		Summary:        "ignored",
	}
	r := newTestResolver(&staticSource{records: map[string]*PageRecord{"/design": rec}})

	got := r.Resolve(context.Background(), "/design")

	assert.Equal(t, "Design | Studio", got.Title)
	assert.Equal(t, "Selected work.", got.Description)
	assert.Equal(t, "https://studio.example.com/design/", got.Canonical)
	assert.Equal(t, Robots{Index: false, Follow: true}, got.Robots)
	assert.Equal(t, "Our design work", got.OpenGraph.Title)
	assert.Equal(t, "Selected work.", got.OpenGraph.Description)
	assert.Equal(t, got.Canonical, got.OpenGraph.URL)
	assert.Equal(t, []string{"https://pb.example.com/api/files/col1/rec1/cover%20image.jpg"}, got.OpenGraph.Images)
	assert.Equal(t, got.OpenGraph.Images, got.Twitter.Images)
	assert.Equal(t, "Our design work", got.Twitter.Title)
}

func TestResolve_ComputedDefaults(t *testing.T) {
	summary := "<p>" + strings.Repeat("A calm brick house around a shaded courtyard. ", 6) + "</p>"
	rec := &PageRecord{Title: "Courtyard House", Summary: summary}
	r := newTestResolver(&staticSource{records: map[string]*PageRecord{"/blog/courtyard": rec}})

	got := r.Resolve(context.Background(), "/blog/courtyard")

	assert.Equal(t, "Courtyard House", got.Title)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Description), MaxDescriptionLength)
	assert.True(t, strings.HasPrefix(got.Description, "A calm brick house"))
	assert.True(t, strings.HasSuffix(got.Description, "…"))
	assert.NotContains(t, got.Description, "<p>")
	assert.Equal(t, "Courtyard House", got.OpenGraph.Title)
	assert.Equal(t, got.Description, got.Twitter.Description)
}

func TestResolve_DescriptionFallsBackToBody(t *testing.T) {
	rec := &PageRecord{Summary: "<p> </p>", Body: "<h2>Process</h2><p>Sketch, model, build.</p>"}
	r := newTestResolver(&staticSource{records: map[string]*PageRecord{"/about": rec}})

	got := r.Resolve(context.Background(), "/about")
	assert.Equal(t, "Process Sketch, model, build.", got.Description)
	assert.Equal(t, DefaultTitle, got.Title)
}

func TestResolve_ImageVariants(t *testing.T) {
	tests := []struct {
		name  string
		rec   PageRecord
		image string
	}{
		{"absolute", PageRecord{OGImage: "https://cdn.example.com/a.png"}, "https://cdn.example.com/a.png"},
		{"site path", PageRecord{OGImage: "/images/a.png"}, "https://studio.example.com/images/a.png"},
		{"stored file without ids", PageRecord{OGImage: "a.png"}, "https://studio.example.com/hero_vva.png"},
		{"stored file", PageRecord{ID: "r", CollectionID: "c", OGImage: "a.png"}, "https://pb.example.com/api/files/c/r/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			r := newTestResolver(&staticSource{records: map[string]*PageRecord{"/": &rec}})
			assert.Equal(t, []string{tt.image}, r.Resolve(context.Background(), "/").OpenGraph.Images)
		})
	}
}

func TestResolve_AbsoluteCanonicalKept(t *testing.T) {
	rec := &PageRecord{CanonicalURL: " https://other.example.com/page "}
	r := newTestResolver(&staticSource{records: map[string]*PageRecord{"/page": rec}})
	assert.Equal(t, "https://other.example.com/page", r.Resolve(context.Background(), "/page").Canonical)
}

func TestResolve_JSONLD(t *testing.T) {
	rec := &PageRecord{SchemaJSONLD: json.RawMessage(schemaObject)}
	r := newTestResolver(&staticSource{records: map[string]*PageRecord{"/": rec}})
	assert.Len(t, r.Resolve(context.Background(), "/").JSONLD, 2)
}

func TestPageRecord_DecodesContentStoreItem(t *testing.T) {
	item := `{
		"id": "rec1", "collectionId": "col1", "route": "/about",
		"seo_title": "About", "seo_robots_index": false, "seo_robots_follow": "",
		"schema_jsonld": "{\"org\":{\"@type\":\"Organization\"}}"
	}`
	var rec PageRecord
	require.NoError(t, json.Unmarshal([]byte(item), &rec))
	assert.Equal(t, OptionalBool{Set: true, Value: false}, rec.RobotsIndex)
	assert.False(t, rec.RobotsFollow.Set)
	assert.Len(t, ExtractJSONLD(rec.SchemaJSONLD), 1)

	encoded, err := json.Marshal(rec)
	require.NoError(t, err)
	var back PageRecord
	require.NoError(t, json.Unmarshal(encoded, &back))
	assert.Equal(t, rec.RobotsIndex, back.RobotsIndex)
	assert.False(t, back.RobotsFollow.Set)
}
