package ai

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

	"github.com/sethvargo/go-retry"

	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
)

// PromptVersion is recorded on every audit row so classification behavior can
// be traced back to the prompt that produced it.
const PromptVersion = "classify-v1"

const systemPrompt = "You are a support ticket triage assistant. " +
	"Given a ticket title and description, respond with a JSON object " +
	`{"priority": "low|medium|high|urgent", "category": "billing|technical|account|other"}. ` +
	"Respond with the JSON object only."

// Classification is the model's triage decision plus the raw exchange for
// auditing.
type Classification struct {
	Priority         string
	Category         string
	Model            string
	RequestJSON      []byte
	ResponseJSON     []byte
	PromptTokens     *int
	CompletionTokens *int
}

// Client produces a triage decision for a ticket.
type Client interface {
	Classify(ctx context.Context, title, description string) (*Classification, error)
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
// Transient failures (5xx, 429, transport errors) are retried with
// exponential backoff; 4xx responses fail immediately.
type HTTPClient struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

func NewHTTPClient(cfg config.AIConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai api key is required")
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type triageDecision struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
}

func (c *HTTPClient) Classify(ctx context.Context, title, description string) (*Classification, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\nDescription: %s", title, description)},
		},
		ResponseFormat: &formatSpec{Type: "json_object"},
	}
	requestJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode classification request")
	}

	var responseJSON []byte
	backoff := retry.WithMaxRetries(uint64(maxAttempts(c.cfg.MaxAttempts)-1), retry.NewExponential(initialDelay(c.cfg.InitialDelay)))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, callErr := c.call(ctx, requestJSON)
		if callErr != nil {
			return callErr
		}
		responseJSON = body
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ai classification failed")
	}

	var parsed chatResponse
	if err := json.Unmarshal(responseJSON, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode classification response")
	}
	if len(parsed.Choices) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "classification response has no choices")
	}

	var decision triageDecision
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &decision); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode triage decision")
	}

	model := parsed.Model
	if model == "" {
		model = c.cfg.Model
	}
	result := &Classification{
		Priority:     decision.Priority,
		Category:     decision.Category,
		Model:        model,
		RequestJSON:  requestJSON,
		ResponseJSON: responseJSON,
	}
	if parsed.Usage.PromptTokens > 0 {
		result.PromptTokens = &parsed.Usage.PromptTokens
	}
	if parsed.Usage.CompletionTokens > 0 {
		result.CompletionTokens = &parsed.Usage.CompletionTokens
	}
	return result, nil
}

func (c *HTTPClient) call(ctx context.Context, requestJSON []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(requestJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, retry.RetryableError(fmt.Errorf("ai endpoint returned %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("ai endpoint returned %d: %s", resp.StatusCode, truncate(body, 256))
	}
}

func maxAttempts(value int) int {
	if value <= 0 {
		return 3
	}
	return value
}

func initialDelay(value time.Duration) time.Duration {
	if value <= 0 {
		return 200 * time.Millisecond
	}
	return value
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
