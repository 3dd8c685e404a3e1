package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/studio-site/internal/pocketbase"
	"github.com/wolfman30/studio-site/pkg/logging"
)

var tracer = otel.Tracer("studio.internal.leads")

// Collection is the content store collection that receives leads.
const Collection = "leads"

// UpstreamObserver records the latency of content store calls.
type UpstreamObserver interface {
	ObserveUpstream(operation, result string, seconds float64)
}

// credentialedTokenSource is satisfied by token sources that can report
// whether their credentials are present.
type credentialedTokenSource interface {
	pocketbase.TokenSource
	Configured() bool
}

// PocketBaseRepository writes leads to the content store with the service
// account token.
type PocketBaseRepository struct {
	client   *pocketbase.Client
	tokens   pocketbase.TokenSource
	logger   *logging.Logger
	observer UpstreamObserver
}

// NewPocketBaseRepository creates a repository backed by the content store.
func NewPocketBaseRepository(client *pocketbase.Client, tokens pocketbase.TokenSource, logger *logging.Logger) *PocketBaseRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &PocketBaseRepository{
		client: client,
		tokens: tokens,
		logger: logger.WithComponent("leads_repository"),
	}
}

// WithObserver attaches an upstream latency observer (metrics).
func (r *PocketBaseRepository) WithObserver(observer UpstreamObserver) *PocketBaseRepository {
	r.observer = observer
	return r
}

// CheckConfig reports missing content store settings.
func (r *PocketBaseRepository) CheckConfig() error {
	if r.client == nil || r.client.BaseURL() == "" {
		return pocketbase.ErrBaseURLMissing
	}
	if src, ok := r.tokens.(credentialedTokenSource); ok && !src.Configured() {
		return pocketbase.ErrCredentialsMissing
	}
	return nil
}

// Create posts the lead. A 401 triggers exactly one forced token refresh
// and one retry; every other failure is final.
func (r *PocketBaseRepository) Create(ctx context.Context, sub *Submission) error {
	ctx, span := tracer.Start(ctx, "leads.create_record")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", sub.ID))

	token, err := r.tokens.Token(ctx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: token: %w", ErrSaveFailed, err)
	}

	err = r.create(ctx, token, sub)
	if errors.Is(err, pocketbase.ErrUnauthorized) {
		r.logger.Warn("lead write unauthorized, refreshing token", "lead_id", sub.ID)
		span.SetAttributes(attribute.Bool("lead.retried", true))

		token, err = r.tokens.Token(ctx, true)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: token refresh: %w", ErrSaveFailed, err)
		}
		err = r.create(ctx, token, sub)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

func (r *PocketBaseRepository) create(ctx context.Context, token string, sub *Submission) error {
	start := time.Now()
	err := r.client.CreateRecord(ctx, Collection, token, sub.Record())
	if r.observer != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		r.observer.ObserveUpstream("create_lead", result, time.Since(start).Seconds())
	}
	return err
}

var _ Repository = (*PocketBaseRepository)(nil)
