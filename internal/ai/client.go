// Package ai generates structured brand strategy and category tree proposals with Gemini.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"brand-catalog-service/internal/config"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/metrics"
)

var (
	// ErrNotConfigured is returned by every call when no API key is set.
	ErrNotConfigured = errors.New("ai: generator is not configured")
	// ErrInvalidResponse is returned when the model output does not match the expected shape.
	ErrInvalidResponse = errors.New("ai: invalid model response")
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a wizard conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// Client streams JSON responses from a Gemini model.
type Client struct {
	stream  streamFunc
	model   string
	timeout time.Duration
	retry   RetryConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Client. Without an API key the client is returned anyway and every
// call fails with ErrNotConfigured.
func New(ctx context.Context, cfg config.AIConfig, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.APIKey == "" {
		return newClient(nil, cfg, logger, m), nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}
	return newClient(client.Models.GenerateContentStream, cfg, logger, m), nil
}

func newClient(stream streamFunc, cfg config.AIConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := DefaultRetryConfig()
	rc.MaxAttempts = cfg.MaxRetries + 1
	return &Client{
		stream:  stream,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retry:   rc,
		logger:  logger.Named("ai"),
		metrics: m,
	}
}

// Configured reports whether the client can reach a model.
func (c *Client) Configured() bool { return c.stream != nil }

// GenerateBrandPhase asks for the payload of a brand wizard phase (1-5) given the
// conversation so far. Phases 1-4 return {"options": [...]}, phase 5 {"strategy": {...}}.
func (c *Client) GenerateBrandPhase(ctx context.Context, phase int, transcript []Message) (json.RawMessage, error) {
	schema, ok := phaseSchemas[phase]
	if !ok {
		return nil, fmt.Errorf("ai: unknown brand phase %d", phase)
	}
	contents := make([]*genai.Content, 0, len(transcript))
	for _, m := range transcript {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("ai: brand phase %d: empty transcript", phase)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(phaseInstruction(phase), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
		Temperature:       domain.Ptr(float32(0.9)),
	}
	raw, err := c.generateJSON(ctx, fmt.Sprintf("brand_phase%d", phase), contents, cfg, func(raw []byte) error {
		return checkPhasePayload(phase, raw)
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func checkPhasePayload(phase int, raw []byte) error {
	if phase == 5 {
		var out struct {
			Strategy map[string]any `json:"strategy"`
		}
		if err := json.Unmarshal(raw, &out); err != nil || len(out.Strategy) == 0 {
			return fmt.Errorf("%w: phase 5 has no strategy", ErrInvalidResponse)
		}
		return nil
	}
	var out struct {
		Options []json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || len(out.Options) == 0 {
		return fmt.Errorf("%w: phase %d has no options", ErrInvalidResponse, phase)
	}
	return nil
}

// GenerateCategoryTree proposes a two level category tree for a catalog.
func (c *Client) GenerateCategoryTree(ctx context.Context, req CategoryTreeRequest) ([]domain.CategoryNode, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(categorySystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    categoryTreeSchema,
		Temperature:       domain.Ptr(float32(0.7)),
	}
	contents := []*genai.Content{genai.NewContentFromText(req.prompt(), genai.RoleUser)}

	var tree []domain.CategoryNode
	_, err := c.generateJSON(ctx, "category_tree", contents, cfg, func(raw []byte) error {
		var out struct {
			Categories []domain.CategoryNode `json:"categories"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		out.Categories = cleanTree(out.Categories)
		if len(out.Categories) == 0 {
			return fmt.Errorf("%w: no categories", ErrInvalidResponse)
		}
		tree = out.Categories
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// cleanTree trims names and drops unnamed nodes.
func cleanTree(nodes []domain.CategoryNode) []domain.CategoryNode {
	out := make([]domain.CategoryNode, 0, len(nodes))
	for _, n := range nodes {
		n.Name = strings.TrimSpace(n.Name)
		if n.Name == "" {
			continue
		}
		n.Description = strings.TrimSpace(n.Description)
		n.Subcategories = cleanTree(n.Subcategories)
		out = append(out, n)
	}
	return out
}

func (c *Client) generateJSON(ctx context.Context, kind string, contents []*genai.Content, cfg *genai.GenerateContentConfig, check func([]byte) error) ([]byte, error) {
	if c.stream == nil {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	raw, err := retry(ctx, c.retry, c.logger, kind, func(ctx context.Context) ([]byte, error) {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		raw, err := c.collect(ctx, contents, cfg)
		if err != nil {
			return nil, err
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: output is not JSON", ErrInvalidResponse)
		}
		if check != nil {
			if err := check(raw); err != nil {
				return nil, err
			}
		}
		return raw, nil
	})
	elapsed := time.Since(start)
	c.metrics.ObserveGeneration(kind, err, elapsed)
	if err != nil {
		c.logger.Error("generation failed", zap.String("kind", kind), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("generation finished", zap.String("kind", kind), zap.Duration("elapsed", elapsed), zap.Int("bytes", len(raw)))
	return raw, nil
}

// collect drains the stream and concatenates the text parts of the first candidate.
func (c *Client) collect(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) ([]byte, error) {
	var buf bytes.Buffer
	for resp, err := range c.stream(ctx, c.model, contents, cfg) {
		if err != nil {
			return nil, err
		}
		buf.WriteString(chunkText(resp))
	}
	out := bytes.TrimSpace(buf.Bytes())
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidResponse)
	}
	return out, nil
}

func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
