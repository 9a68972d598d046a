// Package client talks to a running converter over its HTTP control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dgnsrekt/ttsconverter-go/internal/api"
	"github.com/dgnsrekt/ttsconverter-go/internal/app"
)

var (
	// ErrRequestFailed is returned when the API answers with a non-2xx status.
	ErrRequestFailed = errors.New("control API request failed")
	// ErrUnauthorized is returned when the bearer token is missing or wrong.
	ErrUnauthorized = errors.New("control API rejected the bearer token")
)

// Client calls the control API.
type Client struct {
	cfg        *Config
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a client.
func New(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/v1/healthz", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: health status %q", ErrRequestFailed, resp.Status)
	}
	return nil
}

// Status returns the session snapshot.
func (c *Client) Status(ctx context.Context) (*app.Status, error) {
	var status app.Status
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Speak replaces the text and plays it. Zero speed or pitch keeps the current setting.
func (c *Client) Speak(ctx context.Context, text string, speed, pitch float64) (*app.Status, error) {
	req := api.SpeakRequest{Text: text, Speed: speed, Pitch: pitch}
	var status app.Status
	if err := c.do(ctx, http.MethodPost, "/v1/speak", req, &status); err != nil {
		return nil, err
	}
	c.logger.Debug("speak accepted", "text_length", len(text), "state", status.State)
	return &status, nil
}

// Pause toggles pause and returns the resulting player state.
func (c *Client) Pause(ctx context.Context) (string, error) {
	var resp api.StateResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pause", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

// Stop stops playback and returns the resulting player state.
func (c *Client) Stop(ctx context.Context) (string, error) {
	var resp api.StateResponse
	if err := c.do(ctx, http.MethodPost, "/v1/stop", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

// Save asks the converter to copy its last rendering to path. The path is
// resolved on the converter's machine.
func (c *Client) Save(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodPost, "/v1/save", api.SaveRequest{Path: path}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	url := strings.TrimSuffix(c.cfg.APIURL, "/") + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	c.logger.Debug("calling control API", "method", method, "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError turns a non-2xx response into an error carrying the API's message.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	msg := strings.TrimSpace(string(raw))
	var errResp api.ErrorResponse
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
}
