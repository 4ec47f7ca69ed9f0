// Package vapi integrates with the Vapi call-automation provider: an
// outbound client for initiating intake calls, and normalization of the
// provider's webhook payloads into one canonical event type.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const DefaultBaseURL = "https://api.vapi.ai"

// CallInfo is the provider's response to a call-initiation request.
type CallInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ClientConfig carries the provider credentials and assistant wiring.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	AssistantID   string
	PhoneNumberID string
	Timeout       time.Duration
}

// Client initiates outbound calls through the provider API.
type Client struct {
	baseURL       string
	apiKey        string
	assistantID   string
	phoneNumberID string
	http          *http.Client
	logger        zerolog.Logger
}

func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		assistantID:   cfg.AssistantID,
		phoneNumberID: cfg.PhoneNumberID,
		http:          &http.Client{Timeout: cfg.Timeout},
		logger:        logger.With().Str("component", "vapi").Logger(),
	}
}

// InitiateCall asks the provider to place an outbound intake call. Failure
// here is fatal for the caller: the session that triggered the call is
// expected to transition to failed.
func (c *Client) InitiateCall(ctx context.Context, phoneNumber string) (*CallInfo, error) {
	payload := map[string]interface{}{
		"assistantId":   c.assistantID,
		"phoneNumberId": c.phoneNumberID,
		"customer": map[string]string{
			"number": phoneNumber,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("call initiation rejected")
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var info CallInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	c.logger.Info().Str("call_id", info.ID).Str("status", info.Status).Msg("call initiated")
	return &info, nil
}
