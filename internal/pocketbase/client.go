// Package pocketbase talks to the PocketBase content store over its REST API:
// paginated record lists, authenticated record creation and password auth
// for the server's service account.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/studio-site/pkg/logging"
)

var tracer = otel.Tracer("studio.internal.pocketbase")

// MaxPerPage is the largest page size PocketBase serves for list requests.
const MaxPerPage = 200

var (
	// ErrBaseURLMissing is returned when no content store URL is configured.
	ErrBaseURLMissing = errors.New("pocketbase: base URL not configured")
	// ErrUnauthorized marks a 401 response, typically an expired token.
	ErrUnauthorized = errors.New("pocketbase: unauthorized")
)

// APIError carries a non-success status and body from the content store.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pocketbase: API error (status %d): %s", e.Status, e.Body)
}

// Unwrap lets callers match 401s with errors.Is(err, ErrUnauthorized).
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// ListResult is the PocketBase paginated list envelope.
type ListResult struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalItems int               `json:"totalItems"`
	TotalPages int               `json:"totalPages"`
	Items      []json.RawMessage `json:"items"`
}

// ListOptions narrows a list request.
type ListOptions struct {
	Filter  string
	Sort    string
	Page    int
	PerPage int
}

// Client is a thin HTTP client for one PocketBase instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// Config holds configuration for the PocketBase client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a client. An empty BaseURL is allowed; every call then
// fails with ErrBaseURLMissing so callers can degrade gracefully.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    NormalizeBaseURL(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("pocketbase"),
	}
}

// BaseURL returns the normalized base URL, without trailing slashes.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// QuoteFilterValue escapes single quotes for use inside a filter literal.
func QuoteFilterValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// FileURL builds the public URL of a file stored on a record.
func FileURL(baseURL, collectionID, recordID, filename string) string {
	return fmt.Sprintf("%s/api/files/%s/%s/%s",
		NormalizeBaseURL(baseURL), collectionID, recordID, encodeComponent(filename))
}

// List fetches one page of records from a collection.
func (c *Client) List(ctx context.Context, collection string, opts ListOptions) (*ListResult, error) {
	if c.baseURL == "" {
		return nil, ErrBaseURLMissing
	}

	ctx, span := tracer.Start(ctx, "pocketbase.list", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("pocketbase.collection", collection))

	params := url.Values{}
	if opts.Filter != "" {
		params.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		params.Set("perPage", strconv.Itoa(opts.PerPage))
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/records", c.baseURL, url.PathEscape(collection))
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pocketbase: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pocketbase: list %s failed: %w", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}

	var result ListResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pocketbase: failed to decode list response: %w", err)
	}
	return &result, nil
}

// ListAll pages through a collection until totalPages is reached.
func (c *Client) ListAll(ctx context.Context, collection, filter string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for page := 1; ; page++ {
		result, err := c.List(ctx, collection, ListOptions{
			Filter:  filter,
			Page:    page,
			PerPage: MaxPerPage,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if page >= result.TotalPages {
			c.logger.Debug("listed collection", "collection", collection, "pages", page, "items", len(items))
			return items, nil
		}
	}
}

// CreateRecord posts a record to a collection with a bearer token.
func (c *Client) CreateRecord(ctx context.Context, collection, token string, record any) error {
	if c.baseURL == "" {
		return ErrBaseURLMissing
	}

	ctx, span := tracer.Start(ctx, "pocketbase.create_record", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("pocketbase.collection", collection))

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("pocketbase: failed to marshal record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/records", c.baseURL, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pocketbase: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("pocketbase: create %s failed: %w", collection, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// authWithPassword exchanges identity/password for a record auth token.
func (c *Client) authWithPassword(ctx context.Context, collection, identity, password string) (string, error) {
	if c.baseURL == "" {
		return "", ErrBaseURLMissing
	}

	body, err := json.Marshal(map[string]string{
		"identity": identity,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("pocketbase: failed to marshal credentials: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/auth-with-password", c.baseURL, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("pocketbase: failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pocketbase: auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", readAPIError(resp)
	}

	var authResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("pocketbase: failed to decode auth response: %w", err)
	}
	if authResp.Token == "" {
		return "", errors.New("pocketbase: auth response missing token")
	}
	return authResp.Token, nil
}

// encodeComponent percent-encodes a single path segment, leaving the same
// characters unescaped as encodeURIComponent.
func encodeComponent(value string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if componentUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func componentUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Status: resp.StatusCode, Body: string(body)}
}
