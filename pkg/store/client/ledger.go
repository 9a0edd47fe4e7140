package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetryMax = 2
	maxErrorBody    = 512
)

// Config carries everything a Client needs. Nothing is read from package state.
type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	RetryMax int
	Logger   zerolog.Logger
}

// Client talks to the remote ledger service.
type Client struct {
	baseURL *url.URL
	token   string
	http    *retryablehttp.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("ledger service base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger service base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ledger service base url %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryMax := cfg.RetryMax
	if retryMax < 0 {
		retryMax = defaultRetryMax
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = retryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = timeout
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = leveledLogger{logger: cfg.Logger.With().Str("component", "ledger-client").Logger()}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    httpClient,
	}, nil
}

// ListInvoices returns invoices owned by any of the given ids, or all invoices when ids is empty.
func (c *Client) ListInvoices(ctx context.Context, entityIDs []string) ([]store.InvoiceRecord, error) {
	return getList[store.InvoiceRecord](ctx, c, "invoices", scopeQuery(entityIDs))
}

// ListBillingItems returns every billing item; the service offers no owner filter.
func (c *Client) ListBillingItems(ctx context.Context) ([]store.BillingItemRecord, error) {
	return getList[store.BillingItemRecord](ctx, c, "billing-items", nil)
}

// ListTransactions returns the generic transaction feed, expense vouchers included.
func (c *Client) ListTransactions(ctx context.Context, entityIDs []string) ([]store.TransactionRecord, error) {
	return getList[store.TransactionRecord](ctx, c, "transactions", scopeQuery(entityIDs))
}

func (c *Client) ListCollections(ctx context.Context, entityIDs []string) ([]store.CollectionRecord, error) {
	return getList[store.CollectionRecord](ctx, c, "collections", scopeQuery(entityIDs))
}

func (c *Client) GetQuotation(ctx context.Context, id string) (*store.QuotationRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("quotation id is required")
	}

	body, err := c.get(ctx, "quotations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	payload, err := unwrapEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode quotation %s: %w", id, err)
	}

	var q store.QuotationRecord
	if err := json.Unmarshal(payload, &q); err != nil {
		return nil, fmt.Errorf("failed to decode quotation %s: %w", id, err)
	}
	return &q, nil
}

func scopeQuery(entityIDs []string) url.Values {
	ids := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return url.Values{"entity_ids": []string{strings.Join(ids, ",")}}
}

// getList fetches a collection resource. Records that cannot be decoded are
// skipped and logged so one bad entry does not drop the whole ledger.
func getList[T any](ctx context.Context, c *Client, resource string, query url.Values) ([]T, error) {
	logger := zerolog.Ctx(ctx)

	body, err := c.get(ctx, resource, query)
	if err != nil {
		return nil, err
	}

	payload, err := unwrapEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", resource, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", resource, err)
	}

	records := make([]T, 0, len(raw))
	for i, r := range raw {
		var record T
		if err := json.Unmarshal(r, &record); err != nil {
			logger.Warn().
				Err(err).
				Str("resource", resource).
				Int("index", i).
				Msg("skipping malformed ledger record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// unwrapEnvelope accepts both a bare payload and {"data": payload}.
func unwrapEnvelope(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return trimmed, nil
	}
	return envelope.Data, nil
}

func (c *Client) get(ctx context.Context, resource string, query url.Values) ([]byte, error) {
	logger := zerolog.Ctx(ctx)

	endpoint := c.baseURL.JoinPath(resource)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close response body")
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", resource, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Resource: resource, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// leveledLogger routes retryablehttp logs into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
