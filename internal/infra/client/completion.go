// Package client holds HTTP clients for external APIs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wanderplan/wanderplan-go/internal/domain"
	"github.com/wanderplan/wanderplan-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// CompletionClient calls a Perplexity-style chat completions API. The
// engine answers with free-form text plus a top-level citations list;
// turning that text into options is the extractor's job, not ours.
type CompletionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
}

// NewCompletionClient creates a new CompletionClient.
func NewCompletionClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *CompletionClient {
	return &CompletionClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one prompt through the completion engine.
func (c *CompletionClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "CompletionClient.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("completion.model", c.model))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "completion bulkhead acquire"}
	}
	defer c.bulkhead.Release()

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var chatResp chatResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/chat/completions", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("completion API returned status %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return resilience.Permanent(err)
				}
				return err
			}

			return json.NewDecoder(resp.Body).Decode(&chatResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &chatResp, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "completion", Err: err}
	}

	parsed := result.(*chatResponse)
	if len(parsed.Choices) == 0 {
		return nil, &domain.ErrExternalService{
			Service: "completion",
			Err:     fmt.Errorf("completion API returned no choices"),
		}
	}

	out := &domain.CompletionResponse{
		Text: parsed.Choices[0].Message.Content,
		TokensUsed: domain.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
	for _, cite := range parsed.Citations {
		out.Sources = append(out.Sources, domain.SearchSource{URL: cite})
	}
	return out, nil
}
