// Package sync talks to the remote registry store over HTTP.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

var (
	// ErrGatewayStatus is returned for any non-2xx response.
	ErrGatewayStatus = errors.New("unexpected gateway status")
	// ErrInvalidSnapshot is returned when a fetched snapshot fails schema validation.
	ErrInvalidSnapshot = errors.New("invalid registry snapshot")
)

// StatusError carries the status code of a rejected request.
type StatusError struct {
	Method string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d: %s", ErrGatewayStatus, e.Method, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrGatewayStatus }

type Options struct {
	// Retries is the number of retries after the first attempt.
	Retries int
	// Timeout bounds each attempt.
	Timeout time.Duration
	Logger  *logrus.Logger
}

// HTTPGateway reads the baseline with GET and writes snapshots with POST to one URL.
type HTTPGateway struct {
	url    string
	client *retryablehttp.Client
	logger *logrus.Logger
}

var _ interfaces.SyncGateway = (*HTTPGateway)(nil)

func NewHTTPGateway(url string, opts Options) *HTTPGateway {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &HTTPGateway{url: url, client: retryClient, logger: logger}
}

// Fetch returns the persisted snapshot after validating it against the schema.
func (g *HTTPGateway) Fetch(ctx context.Context) (*entities.RegistrySnapshot, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := g.do(req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &entities.RegistrySnapshot{}, nil
	}
	if err := ValidateSnapshot(body); err != nil {
		return nil, err
	}

	raw := string(body)
	g.logger.WithFields(logrus.Fields{
		"version":  gjson.Get(raw, "version").String(),
		"elements": gjson.Get(raw, "runtimeElements.#").Int(),
		"pages":    len(gjson.Get(raw, "pageContexts").Map()),
	}).Debug("Fetched registry baseline")

	var snapshot entities.RegistrySnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Push posts the snapshot as JSON.
func (g *HTTPGateway) Push(ctx context.Context, snapshot *entities.RegistrySnapshot) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.url, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := g.do(req)
	if err != nil {
		return err
	}

	fields := logrus.Fields{"version": snapshot.Version, "elements": len(snapshot.RuntimeElements)}
	if ack := gjson.GetBytes(body, "version"); ack.Exists() {
		fields["ack"] = ack.String()
	}
	g.logger.WithFields(fields).Debug("Pushed registry snapshot")
	return nil
}

func (g *HTTPGateway) do(req *retryablehttp.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, g.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: req.Method, Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
