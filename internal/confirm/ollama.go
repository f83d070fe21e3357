package confirm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ollamaConfirmer implements Confirmer against an Ollama /api/generate
// endpoint running a vision-language model such as moondream.
type ollamaConfirmer struct {
	baseURL          string
	model            string
	client           *http.Client
	maxResponseBytes int64
}

// NewOllama creates a Confirmer for an Ollama server.
func NewOllama(baseURL, model string, timeout time.Duration, maxResponseBytes int64) Confirmer {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "moondream"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = 1 * 1024 * 1024
	}

	return &ollamaConfirmer{
		baseURL:          strings.TrimRight(baseURL, "/"),
		model:            model,
		maxResponseBytes: maxResponseBytes,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Images  []string      `json:"images,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	// Low temperature keeps yes/no answers consistent across calls.
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *ollamaConfirmer) Confirm(ctx context.Context, content any, prompt string) (*Result, error) {
	image, err := encodeContent(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	payload := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{image},
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  50,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/generate",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)

	limited := io.LimitReader(resp.Body, c.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return nil, fmt.Errorf("%w: response exceeded limit (%d bytes)", ErrUnavailable, c.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}

	var gen ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return &Result{
		Text:    strings.ToLower(strings.TrimSpace(gen.Response)),
		Latency: elapsed,
	}, nil
}

// Available probes /api/tags with a short deadline.
func (c *ollamaConfirmer) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return resp.StatusCode == http.StatusOK
}

// encodeContent turns the opaque content handle into a base64 JPEG/PNG
// payload. Raw bytes are passed through; strings are treated as file paths.
func encodeContent(content any) (string, error) {
	switch v := content.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case string:
		data, err := os.ReadFile(v)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", v, err)
		}
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("unsupported content type %T", content)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
