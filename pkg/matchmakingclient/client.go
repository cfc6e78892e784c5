/**
 * @description
 * Client for communicating with the matchmaking service's internal API.
 */
package matchmakingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client provides methods to interact with the matchmaking service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new matchmaking service client.
func NewClient(baseURL, apiKey string) *Client {
	normalizedURL := strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL:    normalizedURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type expireResponse struct {
	Expired int `json:"expired"`
}

// ExpireStaleMatches asks matchmaking to expire pending matches older than
// maxAgeHours. Returns the number of matches expired.
func (c *Client) ExpireStaleMatches(ctx context.Context, maxAgeHours int) (int, error) {
	body, err := c.post(ctx, "/internal/matches/expire", map[string]int{"max_age_hours": maxAgeHours})
	if err != nil {
		return 0, err
	}

	var out expireResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode expire response: %w", err)
	}
	return out.Expired, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("matchmaking service base URL is not configured")
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("matchmaking service returned status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return buf.Bytes(), nil
}
