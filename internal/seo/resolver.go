package seo

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/studio-site/internal/pocketbase"
	"github.com/wolfman30/studio-site/pkg/logging"
)

var tracer = otel.Tracer("studio.internal.seo")

// Bundle is the complete metadata for one page.
type Bundle struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Canonical   string           `json:"canonical"`
	Robots      Robots           `json:"robots"`
	OpenGraph   OpenGraph        `json:"openGraph"`
	Twitter     Twitter          `json:"twitter"`
	JSONLD      []map[string]any `json:"jsonLd"`
}

type Robots struct {
	Index  bool `json:"index"`
	Follow bool `json:"follow"`
}

type OpenGraph struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	Images      []string `json:"images"`
}

type Twitter struct {
	Card        string   `json:"card"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

// LookupObserver counts resolutions by result: found, default or error.
type LookupObserver interface {
	ObserveLookup(result string)
}

// fieldResolver yields a value for one field, or "" to defer to the next.
type fieldResolver func(rec *PageRecord) string

// firstOf runs resolvers in order and returns the first non-empty value.
func firstOf(rec *PageRecord, resolvers ...fieldResolver) string {
	for _, resolve := range resolvers {
		if v := strings.TrimSpace(resolve(rec)); v != "" {
			return v
		}
	}
	return ""
}

func constant(value string) fieldResolver {
	return func(*PageRecord) string { return value }
}

// Options configures absolute URL construction.
type Options struct {
	// SiteURL is the public origin of the site.
	SiteURL string
	// FileBaseURL is the public content store URL files are served from.
	FileBaseURL string
}

// Resolver builds metadata bundles from SEO records.
type Resolver struct {
	source   RecordSource
	siteURL  string
	fileBase string
	logger   *logging.Logger
	observer LookupObserver
}

// NewResolver creates a resolver over the given record source.
func NewResolver(source RecordSource, opts Options, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	siteURL := strings.TrimRight(strings.TrimSpace(opts.SiteURL), "/")
	if siteURL == "" {
		siteURL = "http://localhost:3000"
	}
	return &Resolver{
		source:   source,
		siteURL:  siteURL,
		fileBase: pocketbase.NormalizeBaseURL(opts.FileBaseURL),
		logger:   logger.WithComponent("seo"),
	}
}

// WithObserver attaches a lookup observer (metrics).
func (r *Resolver) WithObserver(observer LookupObserver) *Resolver {
	r.observer = observer
	return r
}

// SiteURL returns the normalized site origin.
func (r *Resolver) SiteURL() string {
	return r.siteURL
}

// Resolve returns the bundle for a route. Lookup failures fall back to
// the site defaults.
func (r *Resolver) Resolve(ctx context.Context, route string) Bundle {
	route = NormalizeRoute(route)
	ctx, span := tracer.Start(ctx, "seo.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("seo.route", route))

	var rec *PageRecord
	if r.source != nil {
		found, err := r.source.FindByRoute(ctx, route)
		if err != nil {
			span.RecordError(err)
			r.logger.Warn("seo lookup failed, using defaults", "route", route, "error", err)
			r.observe("error")
			return r.DefaultBundle(route)
		}
		rec = found
	}
	if rec == nil {
		r.observe("default")
		return r.DefaultBundle(route)
	}

	r.observe("found")
	span.SetAttributes(attribute.String("seo.record_id", rec.ID))
	return r.build(route, rec)
}

// DefaultBundle is the bundle for a route without a record.
func (r *Resolver) DefaultBundle(route string) Bundle {
	return r.build(NormalizeRoute(route), &PageRecord{})
}

func (r *Resolver) build(route string, rec *PageRecord) Bundle {
	title := firstOf(rec,
		func(p *PageRecord) string { return p.SEOTitle },
		func(p *PageRecord) string { return p.Title },
		constant(DefaultTitle),
	)
	description := firstOf(rec,
		func(p *PageRecord) string { return p.SEODescription },
		func(p *PageRecord) string { return Describe(p.Summary) },
		func(p *PageRecord) string { return Describe(p.Body) },
		constant(DefaultDescription),
	)
	canonical := firstOf(rec,
		func(p *PageRecord) string { return r.canonicalOverride(p.CanonicalURL) },
		constant(r.absolute(route)),
	)
	ogTitle := firstOf(rec,
		func(p *PageRecord) string { return p.OGTitle },
		constant(title),
	)
	ogDescription := firstOf(rec,
		func(p *PageRecord) string { return p.OGDescription },
		constant(description),
	)
	ogImage := firstOf(rec,
		r.recordImage,
		constant(r.absolute(DefaultOGImage)),
	)

	jsonLD := ExtractJSONLD(rec.SchemaJSONLD)
	if jsonLD == nil {
		jsonLD = []map[string]any{}
	}

	return Bundle{
		Title:       title,
		Description: description,
		Canonical:   canonical,
		Robots: Robots{
			Index:  rec.RobotsIndex.Or(true),
			Follow: rec.RobotsFollow.Or(true),
		},
		OpenGraph: OpenGraph{
			Title:       ogTitle,
			Description: ogDescription,
			URL:         canonical,
			Type:        "website",
			Images:      []string{ogImage},
		},
		Twitter: Twitter{
			Card:        "summary_large_image",
			Title:       ogTitle,
			Description: ogDescription,
			Images:      []string{ogImage},
		},
		JSONLD: jsonLD,
	}
}

// canonicalOverride joins site-relative overrides onto the site URL and
// keeps anything else as written.
func (r *Resolver) canonicalOverride(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "/") {
		return r.absolute(value)
	}
	return value
}

// recordImage resolves seo_og_image: absolute URLs are kept, site paths are
// joined to the site URL and bare names point at the record's stored file.
func (r *Resolver) recordImage(rec *PageRecord) string {
	value := strings.TrimSpace(rec.OGImage)
	switch {
	case value == "":
		return ""
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return value
	case strings.HasPrefix(value, "/"):
		return r.absolute(value)
	case rec.CollectionID == "" || rec.ID == "" || r.fileBase == "":
		return ""
	default:
		return pocketbase.FileURL(r.fileBase, rec.CollectionID, rec.ID, value)
	}
}

// absolute resolves a site path against the site URL.
func (r *Resolver) absolute(path string) string {
	base, err := url.Parse(r.siteURL + "/")
	if err != nil {
		return r.siteURL + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return r.siteURL + path
	}
	return base.ResolveReference(ref).String()
}

func (r *Resolver) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveLookup(result)
	}
}
