package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Client represents a Gemini LLM client
type Client struct {
	apiKey      string
	modelName   string
	timeout     time.Duration
	logger      zerolog.Logger
	genaiClient *genai.Client
	mu          sync.Mutex
}

// NewClient creates a new Gemini LLM client
func NewClient(apiKey, modelName string, timeout int, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:      apiKey,
		modelName:   modelName,
		timeout:     time.Duration(timeout) * time.Second,
		logger:      logger.With().Str("component", "llm").Logger(),
		genaiClient: nil, // Will be created on first use
	}
}

// getClient returns or creates a genai client (thread-safe)
func (c *Client) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		return c.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c.genaiClient = client
	c.logger.Info().Msg("Gemini client created and cached")
	return c.genaiClient, nil
}

// Close closes the LLM client and releases resources
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		err := c.genaiClient.Close()
		c.genaiClient = nil
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		c.logger.Info().Msg("Gemini client closed")
	}
	return nil
}

// Complete sends one prompt pair to the model and returns the generated text.
// Capacity-class failures (rate limit, quota, timeout) come back wrapped in
// models.ErrCapacity; everything else is a hard error. Transient non-capacity
// failures are retried with exponential backoff; capacity failures are not,
// since retrying against an exhausted quota only burns time the caller could
// spend degrading gracefully.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int32, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxRetries := 2
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying LLM request")

			select {
			case <-ctx.Done():
				return "", classify(ctx.Err())
			case <-time.After(backoff):
			}
		}

		text, err := c.complete(ctx, systemPrompt, userPrompt, maxTokens, temperature)
		if err == nil {
			return text, nil
		}

		lastErr = err
		c.logger.Error().
			Err(err).
			Int("attempt", attempt+1).
			Str("model", c.modelName).
			Msg("LLM request failed")

		if isCapacityErr(err) {
			break
		}
	}

	return "", classify(lastErr)
}

// complete makes the actual API call to Gemini
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int32, temperature float32) (string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get genai client: %w", err)
	}

	model := client.GenerativeModel(c.modelName)
	model.SetTemperature(temperature)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(maxTokens)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	c.logger.Debug().
		Str("model", c.modelName).
		Int("prompt_length", len(userPrompt)).
		Int32("max_tokens", maxTokens).
		Msg("Sending request to LLM")

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	// Extract text from response
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from LLM")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in response")
	}

	var responseText strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(responseText.String())

	c.logger.Debug().
		Str("model", c.modelName).
		Int("response_length", len(text)).
		Msg("Received LLM response")

	return text, nil
}
