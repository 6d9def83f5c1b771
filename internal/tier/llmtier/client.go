package llmtier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/transport"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config carries the settings shared by the text and vision extractors.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Temperature float32
	Timeout     time.Duration
}

func NewConfig(cfg *common.Config) Config {
	base := cfg.LLM.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     base,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}
}

// Client is a thin chat-completions client constrained to JSON-schema output.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Available() bool {
	return c != nil && c.cfg.APIKey != ""
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multimodal user message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat request and returns the first choice's content.
// A missing API key or an auth/endpoint-level failure is reported as
// tier.ErrUnavailable so the cascade can skip rather than fail the page.
func (c *Client) Complete(ctx context.Context, model string, messages []chatMessage) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("llm api key not configured: %w", tier.ErrUnavailable)
	}

	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   "invoice_extraction",
				Strict: true,
				Schema: json.RawMessage(InvoiceJSONSchema),
			},
		},
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}

	raw, status, err := transport.SendJSON(ctx, c.httpClient, url, req, headers, c.logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("llm request timed out: %w", err)
		}
		switch status {
		case 0:
			// transport-level failure, endpoint never answered
			return "", fmt.Errorf("llm endpoint unreachable: %v: %w", err, tier.ErrUnavailable)
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return "", fmt.Errorf("llm endpoint rejected credentials (status %d): %w", status, tier.ErrUnavailable)
		default:
			return "", fmt.Errorf("llm request failed (status %d): %s", status, truncateBody(raw))
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncateBody(raw []byte) string {
	const max = 512
	s := string(raw)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
