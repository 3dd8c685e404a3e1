package seo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/studio-site/internal/pocketbase"
	"github.com/wolfman30/studio-site/pkg/logging"
)

// PocketBaseSource looks records up in the SEO_pages collection.
type PocketBaseSource struct {
	client *pocketbase.Client
	logger *logging.Logger
}

// NewPocketBaseSource creates a source backed by the content store.
func NewPocketBaseSource(client *pocketbase.Client, logger *logging.Logger) *PocketBaseSource {
	if logger == nil {
		logger = logging.Default()
	}
	return &PocketBaseSource{client: client, logger: logger.WithComponent("seo_source")}
}

// FindByRoute fetches the first record whose route matches exactly. An
// unconfigured content store has no records.
func (s *PocketBaseSource) FindByRoute(ctx context.Context, route string) (*PageRecord, error) {
	filter := fmt.Sprintf("(route=%s)", pocketbase.QuoteFilterValue(NormalizeRoute(route)))
	result, err := s.client.List(ctx, Collection, pocketbase.ListOptions{
		Filter:  filter,
		PerPage: 1,
	})
	if errors.Is(err, pocketbase.ErrBaseURLMissing) {
		s.logger.Debug("content store not configured, no seo record", "route", route)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seo: lookup %s: %w", route, err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var rec PageRecord
	if err := json.Unmarshal(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("seo: decode record for %s: %w", route, err)
	}
	return &rec, nil
}

var _ RecordSource = (*PocketBaseSource)(nil)
