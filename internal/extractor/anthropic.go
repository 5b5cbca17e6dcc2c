package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicClient implements Extractor and Composer against the Anthropic
// Messages API.
type AnthropicClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// AnthropicOption configures an AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicBaseURL sets a custom API base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *AnthropicClient) { c.baseURL = url }
}

// WithAnthropicModel sets the model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *AnthropicClient) { c.model = model }
}

// NewAnthropic creates a new Anthropic Messages API client.
func NewAnthropic(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: "https://api.anthropic.com",
		apiKey:  apiKey,
		model:   "claude-sonnet-4-20250514",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract runs the extraction prompt over an email and parses the JSON
// answer into an Extraction.
func (c *AnthropicClient) Extract(ctx context.Context, subject, body string) (Extraction, error) {
	text, err := c.complete(ctx, extractionPrompt(subject, body))
	if err != nil {
		return Extraction{}, err
	}

	var raw struct {
		CustomerName  string `json:"customer_name"`
		CustomerEmail string `json:"customer_email"`
		LaptopModel   string `json:"laptop_model"`
		RAM           string `json:"ram"`
		Storage       string `json:"storage"`
		ScreenSize    string `json:"screen_size"`
		Warranty      string `json:"warranty"`
		Quantity      string `json:"quantity"`
		DeliveryLoc   string `json:"delivery_location"`
		DeliveryTime  string `json:"delivery_timeline"`
		Budget        string `json:"budget"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return Extraction{}, fmt.Errorf("extractor: parse extraction: %w", err)
	}

	return Extraction{
		CustomerName:  raw.CustomerName,
		CustomerEmail: raw.CustomerEmail,
		Fields: protocol.FieldSet{
			LaptopModel:      raw.LaptopModel,
			RAM:              raw.RAM,
			Storage:          raw.Storage,
			ScreenSize:       raw.ScreenSize,
			Warranty:         raw.Warranty,
			Quantity:         raw.Quantity,
			DeliveryLocation: raw.DeliveryLoc,
			DeliveryTimeline: raw.DeliveryTime,
			Budget:           raw.Budget,
		},
	}, nil
}

// Followup generates a follow-up subject and body asking for the missing
// fields.
func (c *AnthropicClient) Followup(ctx context.Context, customerName string, missing []protocol.FieldKey, fields protocol.FieldSet) (string, string, error) {
	text, err := c.complete(ctx, followupPrompt(customerName, missing, fields))
	if err != nil {
		return "", "", err
	}

	var raw struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return "", "", fmt.Errorf("extractor: parse followup: %w", err)
	}
	if raw.Subject == "" || raw.Body == "" {
		return "", "", fmt.Errorf("extractor: followup response missing subject or body")
	}
	return raw.Subject, raw.Body, nil
}

// complete sends a single-turn prompt and returns the text answer.
func (c *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("extractor: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("extractor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extractor: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("extractor: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extractor: api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var ar anthropicResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return "", fmt.Errorf("extractor: unmarshal response: %w", err)
	}

	var text string
	for _, block := range ar.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extractor: empty response")
	}
	return text, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// "json" language tag. Models add them despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// --- wire format ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
