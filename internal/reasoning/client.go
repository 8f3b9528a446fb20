package reasoning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wboerner/archivar/pkg/formatting"
)

// Anthropic API limit for document attachments.
const maxPDFBytes = 32 * 1024 * 1024

// Client sends documents to the Anthropic Messages API and parses the
// structured proposal out of the response.
type Client struct {
	api       anthropic.Client
	maxTokens int64
	maxBytes  int64
	logger    *slog.Logger
}

// NewClient creates a reasoning client with the given API key. maxBytes caps
// attachment size; zero or anything above the API limit falls back to the
// API limit.
func NewClient(apiKey string, maxTokens, maxBytes int64, logger *slog.Logger) *Client {
	if maxBytes <= 0 || maxBytes > maxPDFBytes {
		maxBytes = maxPDFBytes
	}
	return &Client{
		api:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		maxTokens: maxTokens,
		maxBytes:  maxBytes,
		logger:    logger.With("system", "reasoning"),
	}
}

// Classify sends the PDF and system prompt to the given model and returns the
// parsed proposal with token accounting. Rate-limit and overload responses
// surface as OverloadError; an unparseable response surfaces as ErrMalformed.
func (c *Client) Classify(ctx context.Context, pdf []byte, model, system string) (*Response, error) {
	if int64(len(pdf)) > c.maxBytes {
		return nil, fmt.Errorf("document too large: %d bytes (limit %d)", len(pdf), c.maxBytes)
	}

	start := time.Now()

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{{
			Text:         system,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
					Data: base64.StdEncoding.EncodeToString(pdf),
				}),
				anthropic.NewTextBlock("Classify this document. Respond with the JSON object only."),
			),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && (apierr.StatusCode == 429 || apierr.StatusCode == 529) {
			return nil, &OverloadError{Status: apierr.StatusCode}
		}
		return nil, fmt.Errorf("reasoning request: %w", err)
	}

	var raw string
	for _, block := range msg.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	proposal, err := formatting.Parse[Proposal](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	usage := TokenUsage{
		InputTokens:      msg.Usage.InputTokens,
		OutputTokens:     msg.Usage.OutputTokens,
		CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
	}

	response := &Response{
		Proposal: proposal,
		Usage:    usage,
		Model:    model,
		CostUSD:  Cost(model, usage),
		Raw:      raw,
		Duration: time.Since(start),
	}

	c.logger.Info("classification received",
		"model", model,
		"title", proposal.Title,
		"confidence", proposal.Confidence,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", response.CostUSD,
		"duration", response.Duration,
	)
	return response, nil
}
