// Package configstore fetches an application's schema and current values from
// the two key/JSON collaborator services.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/apps"
)

// DefaultTimeout bounds each collaborator lookup.
const DefaultTimeout = 10 * time.Second

// ErrorKind classifies a failed lookup.
type ErrorKind int

const (
	// NotFound means a collaborator answered with a non-success status.
	NotFound ErrorKind = iota + 1
	// Unavailable means a collaborator could not be reached or sent garbage.
	Unavailable
)

// Error describes a failed lookup.
type Error struct {
	Kind     ErrorKind
	Resource string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("App not found (%s returned %d)", e.Resource, e.Status)
	default:
		return fmt.Sprintf("Service connection error (%s): %v", e.Resource, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Bundle is the raw schema and values documents of one application.
type Bundle struct {
	App    apps.ID
	Schema json.RawMessage
	Values json.RawMessage
}

// Config holds collaborator locations.
type Config struct {
	SchemaURL string
	ValuesURL string
	Timeout   time.Duration
}

// Client is the gateway to the schema and values collaborators.
type Client struct {
	schemaURL  string
	valuesURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.SchemaURL == "" || cfg.ValuesURL == "" {
		return nil, fmt.Errorf("schema and values URLs are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		schemaURL:  strings.TrimRight(cfg.SchemaURL, "/"),
		valuesURL:  strings.TrimRight(cfg.ValuesURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Fetch retrieves schema and values for id. Both lookups run to completion
// before an error is chosen; unreachable collaborators take precedence over
// missing documents.
func (c *Client) Fetch(ctx context.Context, id apps.ID) (*Bundle, error) {
	var (
		g                   errgroup.Group
		schema, values      json.RawMessage
		schemaErr, valueErr error
	)
	g.Go(func() error {
		schema, schemaErr = c.get(ctx, "schema", c.schemaURL, id)
		return schemaErr
	})
	g.Go(func() error {
		values, valueErr = c.get(ctx, "values", c.valuesURL, id)
		return valueErr
	})
	// The group has no derived context, so a failed lookup does not cancel the
	// other one. Wait reports the first failure in time; pickError ranks them.
	if err := g.Wait(); err != nil {
		err = pickError(schemaErr, valueErr)
		c.logger.Warn("Config store lookup failed", "app", id, "error", err)
		return nil, err
	}
	return &Bundle{App: id, Schema: schema, Values: values}, nil
}

func pickError(errs ...error) error {
	for _, err := range errs {
		var se *Error
		if errors.As(err, &se) && se.Kind == Unavailable {
			return err
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, resource, base string, id apps.ID) (json.RawMessage, error) {
	endpoint := base + "/" + url.PathEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: Unavailable, Resource: resource, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: Unavailable, Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: NotFound, Resource: resource, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: Unavailable, Resource: resource, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if !json.Valid(body) {
		return nil, &Error{Kind: Unavailable, Resource: resource, Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}
