// Package seo resolves per-route page metadata from the content store and
// serves the site's robots.txt and sitemap.xml.
package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// Collection holds one SEO record per site route.
const Collection = "SEO_pages"

// Site-wide defaults used when a route has no record or a field is empty.
const (
	DefaultTitle       = "Vivek Verma Architects"
	DefaultDescription = "Portfolio and projects of Vivek Verma Architects."
	DefaultOGImage     = "/hero_vva.png"
)

// RecordSource finds the SEO record for a route. A nil record with a nil
// error means the route has no record.
type RecordSource interface {
	FindByRoute(ctx context.Context, route string) (*PageRecord, error)
}

// PageRecord is a row of the SEO_pages collection. Every field is optional.
type PageRecord struct {
	ID           string `json:"id,omitempty"`
	CollectionID string `json:"collectionId,omitempty"`
	Route        string `json:"route,omitempty"`

	SEOTitle       string       `json:"seo_title,omitempty"`
	SEODescription string       `json:"seo_description,omitempty"`
	RobotsIndex    OptionalBool `json:"seo_robots_index"`
	RobotsFollow   OptionalBool `json:"seo_robots_follow"`
	OGTitle        string       `json:"seo_og_title,omitempty"`
	OGDescription  string       `json:"seo_og_description,omitempty"`
	OGImage        string       `json:"seo_og_image,omitempty"`
	CanonicalURL   string       `json:"seo_canonical_url,omitempty"`

	// SchemaJSONLD is either an object or a JSON-encoded string of one.
	SchemaJSONLD json.RawMessage `json:"schema_jsonld,omitempty"`

	// Content fields used to compute defaults.
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
	Body    string `json:"body,omitempty"`
}

// OptionalBool is a boolean that may be absent. Non-boolean JSON values
// read as absent.
type OptionalBool struct {
	Set   bool
	Value bool
}

// Or returns the value when set, otherwise fallback.
func (b OptionalBool) Or(fallback bool) bool {
	if b.Set {
		return b.Value
	}
	return fallback
}

func (b *OptionalBool) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*b = OptionalBool{}
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		*b = OptionalBool{}
		return nil
	}
	*b = OptionalBool{Set: true, Value: v}
	return nil
}

func (b OptionalBool) MarshalJSON() ([]byte, error) {
	if !b.Set {
		return []byte("null"), nil
	}
	return json.Marshal(b.Value)
}

// NormalizeRoute ensures a leading slash.
func NormalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if strings.HasPrefix(route, "/") {
		return route
	}
	return "/" + route
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
