// Package bootstrap wires configuration into the HTTP handler shared by the
// long-running server and the Lambda entry point.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/studio-site/internal/api/router"
	appconfig "github.com/wolfman30/studio-site/internal/config"
	httpmiddleware "github.com/wolfman30/studio-site/internal/http/middleware"
	"github.com/wolfman30/studio-site/internal/leads"
	"github.com/wolfman30/studio-site/internal/notify"
	"github.com/wolfman30/studio-site/internal/observability/metrics"
	"github.com/wolfman30/studio-site/internal/pocketbase"
	"github.com/wolfman30/studio-site/internal/seo"
	"github.com/wolfman30/studio-site/pkg/logging"
)

// Deps carries clients built outside the package.
type Deps struct {
	// SES backs the ses email provider; nil disables it.
	SES *sesv2.Client
	// Registry receives the service metrics; a fresh registry when nil.
	Registry *prometheus.Registry
	// Redis overrides BuildRedisClient, mainly for tests.
	Redis *redis.Client
}

// Server is the fully wired HTTP surface.
type Server struct {
	Handler       http.Handler
	EmailProvider string
	redis         *redis.Client
}

// Close releases the Redis connection pool, if any.
func (s *Server) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

// BuildServer assembles the router. Background work (the in-memory rate
// limit janitor) stops when ctx is done.
func BuildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	leadMetrics := metrics.NewLeadMetrics(reg)
	seoMetrics := metrics.NewSEOMetrics(reg)

	redisClient := deps.Redis
	if redisClient == nil {
		redisClient = BuildRedisClient(ctx, cfg, logger, true)
	}

	client := pocketbase.NewClient(pocketbase.Config{
		BaseURL: cfg.PocketBaseURL,
		Timeout: cfg.HTTPClientTimeout,
	}, logger)
	tokens := pocketbase.NewTokenProvider(client, pocketbase.ServiceAccount{
		Collection: cfg.PBAuthCollection,
		Identity:   cfg.PBServerEmail,
		Password:   cfg.PBServerPassword,
	}, logger).WithObserver(leadMetrics)

	notifier, provider := BuildLeadNotifier(cfg, deps.SES, logger)
	leadsHandler := leads.NewHandler(BuildLeadRepository(cfg, client, tokens, leadMetrics, logger), notifier, logger).
		WithObserver(leadMetrics)

	var source seo.RecordSource = seo.NewPocketBaseSource(client, logger)
	if redisClient != nil {
		source = seo.NewRedisCachedSource(source, redisClient, cfg.SEOCacheTTL, logger).WithObserver(seoMetrics)
	} else {
		source = seo.NewMemoryCachedSource(source, cfg.SEOCacheTTL, logger).WithObserver(seoMetrics)
	}
	resolver := seo.NewResolver(source, seo.Options{
		SiteURL:     cfg.SiteURL,
		FileBaseURL: cfg.PocketBasePublicURL,
	}, logger).WithObserver(seoMetrics)
	seoHandler := seo.NewHandler(resolver, seo.NewSitemapBuilder(client, resolver.SiteURL(), logger), cfg.IsProduction(), logger)

	trusted := append([]string{cfg.SiteURL}, cfg.CORSAllowedOrigins...)
	handler := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		SEOHandler:         seoHandler,
		OriginGuard:        httpmiddleware.NewOriginGuard(trusted, cfg.IsDevelopment(), logger),
		RateLimiter:        BuildLimiter(ctx, cfg, redisClient, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	logger.Info("server wired",
		"env", cfg.Env,
		"site_url", cfg.SiteURL,
		"pocketbase", client.BaseURL() != "",
		"email_provider", provider,
		"redis", redisClient != nil,
	)
	return &Server{Handler: handler, EmailProvider: provider, redis: redisClient}, nil
}

// BuildLeadRepository stores leads in the content store. In development
// without a content store URL, leads are kept in memory instead.
func BuildLeadRepository(cfg *appconfig.Config, client *pocketbase.Client, tokens pocketbase.TokenSource, observer leads.UpstreamObserver, logger *logging.Logger) leads.Repository {
	if client.BaseURL() == "" && cfg.IsDevelopment() {
		logger.Warn("POCKETBASE_URL not set; leads are kept in memory")
		return leads.NewInMemoryRepository()
	}
	return leads.NewPocketBaseRepository(client, tokens, logger).WithObserver(observer)
}

// BuildLeadNotifier selects the email provider for lead notifications.
// Development falls back to the stub sender when no provider is usable.
func BuildLeadNotifier(cfg *appconfig.Config, ses *sesv2.Client, logger *logging.Logger) (*notify.LeadNotifier, string) {
	sender, provider := notify.NewSender(notify.SenderConfig{
		Provider:       cfg.EmailProvider,
		FromEmail:      cfg.LeadsFromEmail,
		FromName:       cfg.LeadsFromName,
		ResendAPIKey:   cfg.ResendAPIKey,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SES:            ses,
	}, logger)
	if sender == nil {
		if cfg.IsDevelopment() {
			logger.Warn("no email provider configured; lead emails are logged only")
			sender, provider = notify.NewStubEmailSender(logger), notify.ProviderStub
		} else {
			logger.Warn("no email provider configured; lead submissions will fail", "provider", cfg.EmailProvider)
		}
	}
	return notify.NewLeadNotifier(sender, cfg.LeadsToEmail, logger), provider
}
