package llm

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

// GeminiClient talks to the generateContent endpoint of a Gemini-compatible
// completion service.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: config.CompletionTimeout,
		},
	}
}

type generateRequest struct {
	Contents         []Content        `json:"contents"`
	Tools            []toolSet        `json:"tools,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type toolSet struct {
	FunctionDeclarations []map[string]any `json:"function_declarations"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) Complete(ctx context.Context, contents []Content) (*Result, error) {
	payload := generateRequest{
		Contents: contents,
		Tools:    []toolSet{{FunctionDeclarations: ToolDeclarations()}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1024,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode completion request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.UpstreamUnavailable("completion", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.UpstreamUnavailable("completion", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.UpstreamUnavailable("completion",
			fmt.Errorf("completion service returned %d: %s", resp.StatusCode, truncate(respBody, 512)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.UpstreamUnavailable("completion", err)
	}
	if parsed.Error != nil {
		return nil, errors.UpstreamUnavailable("completion",
			fmt.Errorf("completion error %d: %s", parsed.Error.Code, parsed.Error.Message))
	}
	if len(parsed.Candidates) == 0 {
		return nil, errors.MalformedModelOutput("completion returned no candidates")
	}

	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			return &Result{ToolCall: part.FunctionCall}, nil
		}
	}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			return &Result{Text: part.Text}, nil
		}
	}
	return nil, errors.MalformedModelOutput("completion candidate had no usable parts")
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max])
}
