// Package greeter produces the greeting header for published announcements
// from an external text-generation API. The API is treated as unreliable:
// callers substitute a static header on any error.
package greeter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const prompt = "Write a 3-5 sentence greeting introducing a message full of " +
	"current community announcements. You are addressing about 200 young " +
	"people as @everyone; put a line break after the greeting. Emoji are " +
	"welcome. Answer with an original message every time."

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls a generateContent-style text API.
type Client struct {
	client  HTTPClient
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
}

// New creates a greeting client. An empty apiKey is allowed; requests will
// simply be rejected by the API and callers fall back.
func New(client HTTPClient, baseURL, model, apiKey string) *Client {
	return &Client{
		client:  client,
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		timeout: 15 * time.Second,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Greeting requests a fresh greeting from the API.
func (c *Client) Greeting(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("empty greeting")
	}
	return text, nil
}
