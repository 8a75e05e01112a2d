package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/metrics"
)

// OllamaConfig holds Ollama client configuration
type OllamaConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
	NumCtx  int
}

// OllamaClient talks to the Ollama /api/generate endpoint
type OllamaClient struct {
	baseURL    string
	model      string
	numCtx     int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(cfg *OllamaConfig, logger *slog.Logger) (*OllamaClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ollama URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	numCtx := cfg.NumCtx
	if numCtx <= 0 {
		numCtx = DefaultNumCtx
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		numCtx:  numCtx,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
	NumPredict  int     `json:"num_predict"`
}

// generateResponse represents an Ollama API response
type generateResponse struct {
	Model     string  `json:"model"`
	Response  *string `json:"response"`
	Done      bool    `json:"done"`
	EvalCount int     `json:"eval_count"`
	Error     string  `json:"error"`
}

// Generate sends one non-streaming generation request. Every failure,
// including an empty reply, comes back as ErrNoResponse.
func (c *OllamaClient) Generate(ctx context.Context, prompt, system string) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, prompt, system)
	metrics.OracleLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleCalls.WithLabelValues("no_response").Inc()
		c.logger.Warn("Ollama call failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	metrics.OracleCalls.WithLabelValues("ok").Inc()
	return text, nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt, system string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
		Stream: false,
		Options: generateOptions{
			Temperature: 0,
			NumCtx:      c.numCtx,
			NumPredict:  -1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}
	if out.Response == nil {
		return "", fmt.Errorf("response field missing")
	}

	text := strings.TrimSpace(*out.Response)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	c.logger.Debug("Ollama call complete", "model", c.model, "eval_count", out.EvalCount)
	return text, nil
}

// Health checks if Ollama is reachable
func (c *OllamaClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/tags", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}
