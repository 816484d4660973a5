// Package openai provides a ports.Classifier backed by an OpenAI-compatible
// chat completions endpoint. The model is asked for a structured, deduplicated
// inventory of sensitive items (surface strings plus category codes), never
// for offsets: locating occurrences is the redaction engine's job.
package openai

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

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/corey/silencio/internal/ports"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("classifier unavailable")

// Options configures a Classifier.
type Options struct {
	BaseURL   string        // e.g. https://api.openai.com/v1
	APIKey    string        // sent as a bearer token
	Model     string        // e.g. gpt-5-mini
	Timeout   time.Duration // per request
	RateLimit float64       // requests per second; <= 0 disables pacing
	Logger    *zap.Logger
	HTTP      *http.Client // optional, for tests
}

// Classifier calls a remote model to enumerate the sensitive items of a document.
// It is safe for concurrent use.
type Classifier struct {
	url     string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]ports.ClassifiedItem]
	log     *zap.Logger
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	c := &Classifier{
		url:    strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey: opts.APIKey,
		model:  opts.Model,
		http:   hc,
		log:    log.Named("classifier"),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]ports.ClassifiedItem](gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations and bad model output say nothing about endpoint health.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrBadOutput)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// Model returns the configured model name.
func (c *Classifier) Model() string {
	return c.model
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type inventoryPayload struct {
	Items []ports.ClassifiedItem `json:"items"`
}

// Classify sends text to the model and returns the items it found.
func (c *Classifier) Classify(ctx context.Context, text string) ([]ports.ClassifiedItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("classifier: rate limit: %w", err)
		}
	}
	items, err := c.breaker.Execute(func() ([]ports.ClassifiedItem, error) {
		return c.call(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return items, err
}

func (c *Classifier) call(ctx context.Context, text string) ([]ports.ClassifiedItem, error) {
	reqID := uuid.NewString()
	log := c.log.With(zap.String("request_id", reqID), zap.String("model", c.model))
	log.Debug("classifying", zap.Int("text_len", len(text)))

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "redaction_inventory",
				Strict: true,
				Schema: inventorySchema,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classifier: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Client-Request-Id", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := raw
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		log.Warn("unexpected status", zap.Int("code", resp.StatusCode), zap.ByteString("body", snippet))
		return nil, fmt.Errorf("classifier: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	items, err := parseResponse(raw)
	if err != nil {
		log.Warn("could not parse model output", zap.Error(err))
		return nil, err
	}
	log.Info("classified",
		zap.Int("items", len(items)),
		zap.Duration("elapsed", time.Since(start)))
	return items, nil
}

// ErrBadOutput is wrapped by every error caused by unusable model output.
var ErrBadOutput = errors.New("unusable model output")

func parseResponse(raw []byte) ([]ports.ClassifiedItem, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBadOutput, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrBadOutput)
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", ErrBadOutput, choice.Message.Refusal)
	}
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("%w: response truncated by token limit", ErrBadOutput)
	}

	content := stripCodeFence(stripThinkBlock(strings.TrimSpace(choice.Message.Content)))
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrBadOutput)
	}

	// Strict schema output is an object; some compatible servers return the bare list.
	if strings.HasPrefix(content, "[") {
		var items []ports.ClassifiedItem
		if err := json.Unmarshal([]byte(content), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
		}
		return items, nil
	}
	var payload inventoryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	return payload.Items, nil
}

// stripThinkBlock removes a <think>...</think> block that reasoning models
// served through compatible APIs may emit before the answer.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		// Unclosed block - drop everything from <think> onwards.
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
