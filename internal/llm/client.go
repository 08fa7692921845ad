package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Completer is the text-completion service consumed by the pipeline. It is
// stateless request/response text generation; callers must tolerate both
// structured and free-form text in the reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// checkResp reads the response body and returns an error if the status is not 2xx.
// On error it includes the upstream body for debugging.
func checkResp(resp *http.Response, service, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s %s returned %d: %s", service, path, resp.StatusCode, string(body))
}

// Client calls the completion service over HTTP.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

// Complete calls POST /api/complete and returns the raw generated text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"model": c.model, "prompt": prompt,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/complete", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm-service /api/complete: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm-service /api/complete: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp, "llm-service", "/api/complete"); err != nil {
		return "", err
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("llm-service /api/complete: decode: %w", err)
	}
	return result.Text, nil
}
