package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// REST talks to the hosted record store over its JSON dialect: GET
// {base}/{path}.json reads a subtree, PATCH {base}/.json applies a
// multi-path update atomically, PUT {base}/{path}.json replaces one
// path. An optional auth token rides as a query parameter.
type REST struct {
	base   string
	token  string
	client *http.Client
	logger *slog.Logger
}

// RESTConfig configures the REST store client.
type RESTConfig struct {
	BaseURL   string        `yaml:"base_url"`
	AuthToken string        `yaml:"auth_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

// NewREST creates a REST store client. A nil httpClient gets a default
// with the configured timeout.
func NewREST(cfg RESTConfig, httpClient *http.Client, logger *slog.Logger) (*REST, error) {
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid record store base url: %w", err)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &REST{
		base:   strings.TrimRight(u.String(), "/"),
		token:  cfg.AuthToken,
		client: httpClient,
		logger: logger,
	}, nil
}

func (s *REST) url(path string) string {
	u := s.base + "/" + strings.Trim(path, "/") + ".json"
	if s.token != "" {
		u += "?auth=" + url.QueryEscape(s.token)
	}
	return u
}

func (s *REST) do(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &StoreError{Op: op, Path: path, Err: err}
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url(path), reader)
	if err != nil {
		return nil, &StoreError{Op: op, Path: path, Err: err}
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &StoreError{Op: op, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreError{Op: op, Path: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("record store call failed",
			slog.String("op", op),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &StoreError{Op: op, Path: path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}
	return data, nil
}

// Read fetches the subtree at path. The store answers "null" for
// absent paths, which reads back as (nil, nil).
func (s *REST) Read(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := s.do(ctx, "read", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}
	return data, nil
}

// WriteMany applies the update map as one atomic multi-path patch
// against the store root.
func (s *REST) WriteMany(ctx context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	_, err := s.do(ctx, "write_many", http.MethodPatch, "", updates)
	return err
}

// WriteOne replaces the value at a single path. nil deletes it.
func (s *REST) WriteOne(ctx context.Context, path string, value any) error {
	if value == nil {
		_, err := s.do(ctx, "write_one", http.MethodDelete, path, nil)
		return err
	}
	_, err := s.do(ctx, "write_one", http.MethodPut, path, value)
	return err
}

var _ Store = (*REST)(nil)
