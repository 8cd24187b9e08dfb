package gizwits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mlindstad/spa-bridge/internal/log"
	"github.com/mlindstad/spa-bridge/internal/spa"
	"golang.org/x/time/rate"
)

const (
	// Paths
	DeviceDataPath = "/app/devdata/%s/latest"
	ControlPath    = "/app/control/%s"
	BindingsPath   = "/app/bindings"
)

// Client is a Gizwits cloud API client. Credentials are supplied per
// call because every device carries its own token and base URL; the
// client itself is stateless apart from rate limiting and is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Gizwits client.
func NewClient() *Client {
	// Rate limiter: 2 requests per second with burst of 5, shared
	// across all devices to stay polite to the vendor API.
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
	}
}

// FetchLatest retrieves the most recent telemetry snapshot for a device.
// A response without an attr field is reported as ErrMalformedResponse.
func (c *Client) FetchLatest(ctx context.Context, deviceID string, creds Credentials) (spa.RawTelemetry, error) {
	if !creds.Complete() {
		return nil, ErrNoCredentials
	}

	url := creds.BaseURL + fmt.Sprintf(DeviceDataPath, deviceID)
	body, err := c.get(ctx, url, creds)
	if err != nil {
		return nil, err
	}

	var data deviceDataResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse device data: %w", err)
	}
	if data.Attr == nil {
		return nil, ErrMalformedResponse
	}

	return spa.RawTelemetry(data.Attr), nil
}

// SendControl writes a control payload to the device. Payloads are sent
// verbatim under the attrs key.
func (c *Client) SendControl(ctx context.Context, deviceID string, payload spa.Payload, creds Credentials) error {
	if !creds.Complete() {
		return ErrNoCredentials
	}

	jsonData, err := json.Marshal(controlRequest{Attrs: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal control request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	url := creds.BaseURL + fmt.Sprintf(ControlPath, deviceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create control request: %w", err)
	}
	c.setHeaders(req, creds)

	log.Debug("Control payload for %s: %s", deviceID, string(jsonData))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit control: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("control request failed: %d - %s", resp.StatusCode, truncateForLog(string(respBody), 200))
	}

	return nil
}

// FetchPresence looks the device up in the account bindings and returns
// its online flag.
func (c *Client) FetchPresence(ctx context.Context, deviceID string, creds Credentials) (bool, error) {
	bindings, err := c.ListBindings(ctx, creds)
	if err != nil {
		return false, err
	}
	for _, b := range bindings {
		if b.DID == deviceID {
			return b.IsOnline, nil
		}
	}
	return false, ErrDeviceNotBound
}

// ListBindings retrieves the devices bound to the credential set's
// account.
func (c *Client) ListBindings(ctx context.Context, creds Credentials) ([]Binding, error) {
	if !creds.Complete() {
		return nil, ErrNoCredentials
	}

	body, err := c.get(ctx, creds.BaseURL+BindingsPath, creds)
	if err != nil {
		return nil, err
	}

	var data bindingsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse bindings: %w", err)
	}

	return data.Devices, nil
}

// VerifyCredentials checks that the credential set is accepted by the
// cloud and actually covers the device. Used when provisioning.
func (c *Client) VerifyCredentials(ctx context.Context, deviceID string, creds Credentials) error {
	bindings, err := c.ListBindings(ctx, creds)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if b.DID == deviceID {
			return nil
		}
	}
	return ErrDeviceNotBound
}

// get performs a rate-limited GET and returns the response body.
func (c *Client) get(ctx context.Context, url string, creds Credentials) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, creds)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug("HTTP GET %s (status %d): %s", url, resp.StatusCode, truncateForLog(string(body), 300))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateForLog(string(body), 200))
	}

	return body, nil
}

// setHeaders sets the Gizwits auth headers. Application-Id is required
// on every call.
func (c *Client) setHeaders(req *http.Request, creds Credentials) {
	req.Header.Set("X-Gizwits-Application-Id", creds.AppID)
	req.Header.Set("X-Gizwits-User-token", creds.Token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
