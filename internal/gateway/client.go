package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/errors"
)

// Sender delivers outbound messages through the messaging gateway.
type Sender interface {
	SendText(ctx context.Context, instance, phone, text string) error
	SendTyping(ctx context.Context, instance, phone string, durationMs int) error
}

// Client is an HTTP client for an Evolution-compatible messaging gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: config.GatewayTimeout,
		},
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendPresenceRequest struct {
	Number   string `json:"number"`
	Presence string `json:"presence"`
	Delay    int    `json:"delay"`
}

func (c *Client) SendText(ctx context.Context, instance, phone, text string) error {
	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, instance)
	return c.post(ctx, url, sendTextRequest{Number: phone, Text: text})
}

// SendTyping shows a composing indicator on the conversation for the
// given duration. Failures are ignored by callers; the indicator is
// cosmetic.
func (c *Client) SendTyping(ctx context.Context, instance, phone string, durationMs int) error {
	url := fmt.Sprintf("%s/chat/sendPresence/%s", c.baseURL, instance)
	return c.post(ctx, url, sendPresenceRequest{Number: phone, Presence: "composing", Delay: durationMs})
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.UpstreamUnavailable("gateway", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.UpstreamUnavailable("gateway",
			fmt.Errorf("gateway returned %d: %s", resp.StatusCode, respBody))
	}
	return nil
}
