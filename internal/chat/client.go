// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package chat relays portfolio chatbot messages to an OpenAI-compatible
// chat-completions endpoint. The upstream provider is a black box: the relay
// forwards the conversation, returns the assistant's reply, and maps non-2xx
// answers to a typed error.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mbaxter/vitals/internal/config"
)

// Message is one turn of the conversation, in the chat-completions wire shape.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// RelayError is returned when the upstream chat endpoint answers non-2xx.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chat completion failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chat completion failed with status %d", e.StatusCode)
}

// completionRequest is the upstream request payload.
type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// completionResponse is the subset of the upstream response the relay reads.
type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client relays conversations to the configured provider.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a chat relay client from configuration.
func NewClient(cfg *config.ChatConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the relay has an API key to forward with.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete forwards the conversation and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	var completion completionResponse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		relayErr := &RelayError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, &completion) == nil && completion.Error != nil {
			relayErr.Message = completion.Error.Message
		}
		return "", relayErr
	}

	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
