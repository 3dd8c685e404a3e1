package seo

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/wolfman30/studio-site/pkg/logging"
)

// Handler serves page metadata, robots.txt and sitemap.xml.
type Handler struct {
	resolver   *Resolver
	sitemap    *SitemapBuilder
	production bool
	logger     *logging.Logger
}

// NewHandler creates the SEO HTTP handler.
func NewHandler(resolver *Resolver, sitemap *SitemapBuilder, production bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		resolver:   resolver,
		sitemap:    sitemap,
		production: production,
		logger:     logger.WithComponent("seo_handler"),
	}
}

// GetMetadata handles GET /api/seo?route=/about. A missing route means "/".
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")
	if route == "" {
		route = "/"
	}
	bundle := h.resolver.Resolve(r.Context(), route)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_ = json.NewEncoder(w).Encode(bundle)
}

// Robots handles GET /robots.txt.
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(RobotsTxt(h.resolver.SiteURL(), h.production)))
}

// Sitemap handles GET /sitemap.xml.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := WriteSitemapXML(&buf, h.sitemap.Build(r.Context())); err != nil {
		h.logger.Error("failed to render sitemap", "error", err)
		http.Error(w, "failed to render sitemap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(buf.Bytes())
}
