package seo

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/studio-site/internal/pocketbase"
	"github.com/wolfman30/studio-site/pkg/logging"
)

// recentWindow is how long after an update a project counts as fresh.
const recentWindow = 90 * 24 * time.Hour

// SitemapEntry is one <url> of the sitemap.
type SitemapEntry struct {
	Loc             string
	LastModified    time.Time
	ChangeFrequency string
	Priority        float64
}

var staticRoutes = []SitemapEntry{
	{Loc: "/", ChangeFrequency: "weekly", Priority: 1},
	{Loc: "/about", ChangeFrequency: "monthly", Priority: 0.7},
	{Loc: "/contact-us", ChangeFrequency: "monthly", Priority: 0.7},
	{Loc: "/design", ChangeFrequency: "weekly", Priority: 0.8},
	{Loc: "/blog", ChangeFrequency: "weekly", Priority: 0.8},
}

type projectRecord struct {
	Slug     string `json:"slug"`
	Name     string `json:"Name"`
	Updated  string `json:"updated"`
	Created  string `json:"created"`
	Featured bool   `json:"featured"`
}

type blogRecord struct {
	Slug        string `json:"slug"`
	Updated     string `json:"updated"`
	Created     string `json:"created"`
	PublishDate string `json:"publish_date"`
	Featured    bool   `json:"featured"`
}

// RecordLister pages through a whole collection.
type RecordLister interface {
	ListAll(ctx context.Context, collection, filter string) ([]json.RawMessage, error)
}

// SitemapBuilder lists static routes plus project and published blog pages.
type SitemapBuilder struct {
	lister  RecordLister
	siteURL string
	logger  *logging.Logger
	now     func() time.Time
}

// NewSitemapBuilder creates a builder; lister is typically a pocketbase.Client.
func NewSitemapBuilder(lister RecordLister, siteURL string, logger *logging.Logger) *SitemapBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &SitemapBuilder{
		lister:  lister,
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger.WithComponent("sitemap"),
		now:     time.Now,
	}
}

// Build returns every sitemap entry. A collection that fails to load is
// left out rather than failing the sitemap.
func (b *SitemapBuilder) Build(ctx context.Context) []SitemapEntry {
	ctx, span := tracer.Start(ctx, "seo.sitemap")
	defer span.End()

	entries := make([]SitemapEntry, 0, len(staticRoutes))
	for _, route := range staticRoutes {
		route.Loc = b.siteURL + route.Loc
		entries = append(entries, route)
	}

	projects, err := loadRecords[projectRecord](ctx, b.lister, "project", "")
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("sitemap: project records unavailable", "error", err)
	}
	for _, p := range projects {
		slug := Kebab(strings.TrimSpace(p.Name))
		if slug == "" {
			slug = strings.TrimSpace(p.Slug)
		}
		if slug == "" {
			continue
		}
		modified, _ := ParseTimestamp(firstNonEmpty(p.Updated, p.Created))
		entry := SitemapEntry{
			Loc:             b.siteURL + "/design/" + url.PathEscape(slug),
			LastModified:    modified,
			ChangeFrequency: "monthly",
			Priority:        0.6,
		}
		if !modified.IsZero() && b.now().Sub(modified) <= recentWindow {
			entry.ChangeFrequency = "weekly"
		}
		if p.Featured {
			entry.Priority = 0.8
		}
		entries = append(entries, entry)
	}

	posts, err := loadRecords[blogRecord](ctx, b.lister, "blog", "published=true")
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("sitemap: blog records unavailable", "error", err)
	}
	for _, p := range posts {
		slug := strings.TrimSpace(p.Slug)
		if slug == "" {
			continue
		}
		modified, _ := ParseTimestamp(firstNonEmpty(p.Updated, p.PublishDate, p.Created))
		entry := SitemapEntry{
			Loc:             b.siteURL + "/blog/" + url.PathEscape(slug),
			LastModified:    modified,
			ChangeFrequency: "monthly",
			Priority:        0.6,
		}
		if p.Featured {
			entry.ChangeFrequency = "weekly"
			entry.Priority = 0.8
		}
		entries = append(entries, entry)
	}
	return entries
}

func loadRecords[T any](ctx context.Context, lister RecordLister, collection, filter string) ([]T, error) {
	if lister == nil {
		return nil, pocketbase.ErrBaseURLMissing
	}
	items, err := lister.ListAll(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var rec T
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("seo: decode %s record: %w", collection, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Kebab lowercases s and joins its alphanumeric runs with hyphens.
func Kebab(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// ParseTimestamp reads content store timestamps ("2024-05-01 10:00:00.000Z")
// as well as RFC 3339 and plain dates.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if !strings.Contains(value, "T") {
		value = strings.Replace(value, " ", "T", 1)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// WriteSitemapXML renders entries in the sitemaps.org format.
func WriteSitemapXML(w io.Writer, entries []SitemapEntry) error {
	set := xmlURLSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, e := range entries {
		u := xmlURL{
			Loc:        e.Loc,
			ChangeFreq: e.ChangeFrequency,
			Priority:   strconv.FormatFloat(e.Priority, 'f', 1, 64),
		}
		if !e.LastModified.IsZero() {
			u.LastMod = e.LastModified.UTC().Format(time.RFC3339)
		}
		set.URLs = append(set.URLs, u)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return err
	}
	return enc.Flush()
}

// RobotsTxt allows crawling only in production.
func RobotsTxt(siteURL string, production bool) string {
	if !production {
		return "User-agent: *\nDisallow: /\n"
	}
	return fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", strings.TrimRight(siteURL, "/"))
}
