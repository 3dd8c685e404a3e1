package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	collections map[string][]string
	failing     map[string]bool
	filters     map[string]string
}

func (f *fakeLister) ListAll(_ context.Context, collection, filter string) ([]json.RawMessage, error) {
	if f.filters == nil {
		f.filters = map[string]string{}
	}
	f.filters[collection] = filter
	if f.failing[collection] {
		return nil, errors.New("unavailable")
	}
	var out []json.RawMessage
	for _, item := range f.collections[collection] {
		out = append(out, json.RawMessage(item))
	}
	return out, nil
}

func entryByLoc(entries []SitemapEntry, loc string) (SitemapEntry, bool) {
	for _, e := range entries {
		if e.Loc == loc {
			return e, true
		}
	}
	return SitemapEntry{}, false
}

func TestSitemapBuilder_Build(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	lister := &fakeLister{collections: map[string][]string{
		"project": {
			`{"Name":"Courtyard House, Jaipur","slug":"ignored","updated":"2026-05-20 10:00:00.000Z","featured":true}`,
			`{"Name":"","slug":"old-office","updated":"2025-01-01 10:00:00.000Z"}`,
			`{"Name":"   ","slug":""}`,
		},
		"blog": {
			`{"slug":"on-brick","featured":true,"updated":"2026-01-02 08:00:00.000Z"}`,
			`{"slug":"notes","publish_date":"2025-12-01"}`,
			`{"slug":" "}`,
		},
	}}
	builder := NewSitemapBuilder(lister, "https://studio.example.com/", nil)
	builder.now = func() time.Time { return now }

	entries := builder.Build(context.Background())

	require.Len(t, entries, 5+2+2)
	assert.Equal(t, "published=true", lister.filters["blog"])
	assert.Equal(t, "", lister.filters["project"])

	home, ok := entryByLoc(entries, "https://studio.example.com/")
	require.True(t, ok)
	assert.Equal(t, 1.0, home.Priority)

	featured, ok := entryByLoc(entries, "https://studio.example.com/design/courtyard-house-jaipur")
	require.True(t, ok)
	assert.Equal(t, 0.8, featured.Priority)
	assert.Equal(t, "weekly", featured.ChangeFrequency)
	assert.Equal(t, time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC), featured.LastModified)

	old, ok := entryByLoc(entries, "https://studio.example.com/design/old-office")
	require.True(t, ok)
	assert.Equal(t, 0.6, old.Priority)
	assert.Equal(t, "monthly", old.ChangeFrequency)

	post, ok := entryByLoc(entries, "https://studio.example.com/blog/on-brick")
	require.True(t, ok)
	assert.Equal(t, "weekly", post.ChangeFrequency)
	assert.Equal(t, 0.8, post.Priority)

	notes, ok := entryByLoc(entries, "https://studio.example.com/blog/notes")
	require.True(t, ok)
	assert.Equal(t, "monthly", notes.ChangeFrequency)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), notes.LastModified)
}

func TestSitemapBuilder_FailedCollectionIsSkipped(t *testing.T) {
	lister := &fakeLister{
		collections: map[string][]string{"blog": {`{"slug":"kept"}`}},
		failing:     map[string]bool{"project": true},
	}
	entries := NewSitemapBuilder(lister, "https://studio.example.com", nil).Build(context.Background())

	require.Len(t, entries, 6)
	_, ok := entryByLoc(entries, "https://studio.example.com/blog/kept")
	assert.True(t, ok)
}

func TestWriteSitemapXML(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSitemapXML(&buf, []SitemapEntry{
		{Loc: "https://studio.example.com/", ChangeFrequency: "weekly", Priority: 1},
		{Loc: "https://studio.example.com/blog/a&b", LastModified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ChangeFrequency: "monthly", Priority: 0.6},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, out, "<loc>https://studio.example.com/blog/a&amp;b</loc>")
	assert.Contains(t, out, "<lastmod>2026-01-02T03:04:05Z</lastmod>")
	assert.Contains(t, out, "<priority>1.0</priority>")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("<lastmod>")))
}

func TestKebab(t *testing.T) {
	assert.Equal(t, "courtyard-house-jaipur", Kebab("Courtyard House, Jaipur"))
	assert.Equal(t, "a-1", Kebab("--A  1!!"))
	assert.Equal(t, "", Kebab("  ***  "))
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{"2026-01-02 03:04:05.000Z", "2026-01-02T03:04:05Z", "2026-01-02 03:04:05"} {
		got, ok := ParseTimestamp(value)
		require.True(t, ok, value)
		assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got, value)
	}
	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
}

func TestRobotsTxt(t *testing.T) {
	assert.Equal(t, "User-agent: *\nDisallow: /\n", RobotsTxt("https://studio.example.com", false))
	assert.Equal(t,
		"User-agent: *\nAllow: /\n\nSitemap: https://studio.example.com/sitemap.xml\n",
		RobotsTxt("https://studio.example.com/", true))
}
