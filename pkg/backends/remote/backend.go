// Package remote implements a search backend backed by another meld
// instance's HTTP API. It lets a deployment blend a local index with a
// remote one, and supports native batch retrieval through the API's
// multi-id record endpoint.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/meld/pkg/api"
	"github.com/rubiojr/meld/pkg/core"
)

func init() {
	core.RegisterBackendPrototype("remote", &Backend{})
}

const defaultTimeoutSeconds = 10

type Config struct {
	BaseURL string `toml:"base_url"`
	Timeout int    `toml:"timeout"`
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	return nil
}

type Backend struct {
	config       *Config
	client       *http.Client
	baseURL      string
	instanceName string
}

func NewBackend(instanceName string, config interface{}) (core.Backend, error) {
	var cfg *Config
	if config == nil {
		cfg = &Config{}
	} else {
		var ok bool
		cfg, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for remote backend")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	return &Backend{
		config:       cfg,
		client:       &http.Client{Timeout: time.Duration(timeout) * time.Second},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		instanceName: instanceName,
	}, nil
}

func (b *Backend) Type() string {
	return "remote"
}

func (b *Backend) Name() string {
	return b.instanceName
}

func (b *Backend) ConfigType() interface{} {
	return &Config{}
}

func (b *Backend) SetConfig(config interface{}) error {
	if cfg, ok := config.(*Config); ok {
		if err := cfg.Validate(); err != nil {
			return err
		}
		b.config = cfg
		return nil
	}
	return fmt.Errorf("invalid config type for remote backend")
}

func (b *Backend) Factory(instanceName string, config interface{}) (core.Backend, error) {
	return NewBackend(instanceName, config)
}

func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *Backend) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	params := url.Values{}
	params.Set("q", query.Terms)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))

	var response api.SearchResponse
	if err := b.getJSON(ctx, "/api/search?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("searching remote backend: %w", err)
	}

	records := make([]core.Record, 0, len(response.Records))
	for _, r := range response.Records {
		records = append(records, b.toRecord(r))
	}
	return core.NewCollection(records, response.TotalCount), nil
}

func (b *Backend) Retrieve(ctx context.Context, id string) (*core.Collection, error) {
	var response api.RecordResponse
	err := b.getJSON(ctx, "/api/records/"+escapeID(id), &response)
	if err != nil {
		if isNotFound(err) {
			return core.EmptyCollection(), nil
		}
		return nil, fmt.Errorf("retrieving record %s: %w", id, err)
	}
	return core.NewCollection([]core.Record{b.toRecord(response)}, 1), nil
}

// RetrieveBatch resolves all ids through the API's multi-id endpoint in
// one round trip.
func (b *Backend) RetrieveBatch(ctx context.Context, ids []string) (*core.Collection, error) {
	if len(ids) == 0 {
		return core.EmptyCollection(), nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))

	var response api.ListRecordsResponse
	if err := b.getJSON(ctx, "/api/records?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("batch retrieving records: %w", err)
	}

	records := make([]core.Record, 0, len(response.Records))
	for _, r := range response.Records {
		records = append(records, b.toRecord(r))
	}
	return core.NewCollection(records, len(records)), nil
}

// statusError carries a non-2xx API response.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.status, e.message)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (b *Backend) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		message := resp.Status
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &statusError{status: resp.StatusCode, message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (b *Backend) toRecord(r api.RecordResponse) core.Record {
	return core.NewGenericRecord(r.ID, r.Title, r.Text, b.instanceName, r.Metadata)
}

// escapeID keeps slashes intact so ids like owner/repo hit the wildcard
// route unmangled.
func escapeID(id string) string {
	parts := strings.Split(id, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
