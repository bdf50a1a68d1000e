// Package generation wraps the external text-generation collaborator. The
// pipeline is vendor-agnostic: prompt and parameters in, text or a uniform
// failure out.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/contentforge-backend/internal/platform/envutil"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
)

// ErrUnavailable covers every failure mode of the external service: timeout,
// non-2xx, malformed response. The orchestrator's retry policy keys on it.
var ErrUnavailable = errors.New("generation unavailable")

type Params struct {
	Engine         string  `json:"engine,omitempty"`
	Temperature    float64 `json:"temperature"`
	MaxOutputChars int     `json:"max_output_chars,omitempty"`
}

type Client interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

type httpClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient builds a client from GENERATION_URL / GENERATION_API_KEY /
// GENERATION_TIMEOUT_SECONDS. Returns nil (no client) when no URL is
// configured; the pipeline then skips the refinement stage.
func NewHTTPClient(log *logger.Logger) Client {
	baseURL := strings.TrimRight(strings.TrimSpace(envutil.GetEnv("GENERATION_URL", "", log)), "/")
	if baseURL == "" {
		return nil
	}
	timeoutSec := envutil.GetEnvAsInt("GENERATION_TIMEOUT_SECONDS", 30, log)
	return &httpClient{
		log:     log.With("service", "GenerationClient"),
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(envutil.GetEnv("GENERATION_API_KEY", "", log)),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Params Params `json:"params"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (c *httpClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt, Params: params})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(string(raw), 200))
	}
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("%w: empty text in response", ErrUnavailable)
	}
	return out.Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
