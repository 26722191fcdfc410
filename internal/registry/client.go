package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"orgsync/internal/config"
	"orgsync/internal/queue"
	"orgsync/internal/services"
)

// Client fetches authoritative entity state from the registry.
type Client interface {
	Fetch(ctx context.Context, kind queue.EntityKind, code string) (*Record, error)
}

// HTTPClient implements Client against the SIORG HTTP API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client

	maxTries        uint
	initialInterval time.Duration
}

// NewClient builds an HTTPClient from configuration.
func NewClient(cfg *config.Config) *HTTPClient {
	timeout := time.Duration(cfg.Registry.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:         strings.TrimRight(cfg.Registry.BaseURL, "/"),
		token:           cfg.Registry.Token,
		httpClient:      &http.Client{Timeout: timeout},
		maxTries:        3,
		initialInterval: 500 * time.Millisecond,
	}
}

var kindPaths = map[queue.EntityKind]string{
	queue.KindOrganization: "orgao",
	queue.KindUnit:         "unidade",
	queue.KindCategory:     "categoria-unidade",
	queue.KindType:         "tipo-unidade",
}

// Fetch retrieves the current record for an entity. Transient failures are
// retried with exponential backoff inside the call; the returned error is
// already classified.
func (c *HTTPClient) Fetch(ctx context.Context, kind queue.EntityKind, code string) (*Record, error) {
	segment, ok := kindPaths[kind]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "registry", "fetch", fmt.Sprintf("unknown entity kind %q", kind), nil)
	}
	if strings.TrimSpace(code) == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "fetch", "external code is required", nil)
	}

	endpoint := c.baseURL + "/" + segment + "/" + url.PathEscape(code)

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialInterval

	record, err := backoff.Retry(ctx, func() (*Record, error) {
		record, err := c.fetchOnce(ctx, endpoint)
		if err != nil && !services.Retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return record, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return nil, err
	}

	record.Kind = kind
	if record.Code == "" {
		record.Code = code
	}
	return record, nil
}

func (c *HTTPClient) fetchOnce(ctx context.Context, endpoint string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "registry", "fetch", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "registry", "fetch", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "registry", "fetch", endpoint, nil)
	case resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "registry", "fetch",
			fmt.Sprintf("%s: status %d", endpoint, resp.StatusCode), nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrValidation, "registry", "fetch",
			fmt.Sprintf("%s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, services.Wrap(services.ErrValidation, "registry", "fetch", "decode response", err)
	}
	return &record, nil
}
