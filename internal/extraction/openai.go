package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/credo-ai/credo/internal/domain"
	"github.com/google/uuid"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"
)

type OpenAIClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) ExtractBeliefs(ctx context.Context, content string, agentID uuid.UUID, categoryHint string) ([]domain.ExtractedBelief, error) {
	result, err := c.complete(ctx, fmt.Sprintf(extractPrompt, categoryHint, content), 0.2)
	if err != nil {
		return nil, fmt.Errorf("extract beliefs: %w", err)
	}

	result = stripCodeFences(result)
	var extracted []domain.ExtractedBelief
	if err := json.Unmarshal([]byte(result), &extracted); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	for i := range extracted {
		extracted[i].Confidence = domain.ClampConfidence(extracted[i].Confidence)
	}
	return extracted, nil
}

func (c *OpenAIClient) AreConflicting(ctx context.Context, stmtA, stmtB, categoryA, categoryB string) (bool, error) {
	result, err := c.complete(ctx, fmt.Sprintf(conflictPrompt, categoryA, stmtA, categoryB, stmtB), 0.0)
	if err != nil {
		return false, fmt.Errorf("conflict check: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(result), "true"), nil
}

func (c *OpenAIClient) CalculateSimilarity(ctx context.Context, stmtA, stmtB string) (float32, error) {
	result, err := c.complete(ctx, fmt.Sprintf(similarityPrompt, stmtA, stmtB), 0.0)
	if err != nil {
		return 0, fmt.Errorf("similarity check: %w", err)
	}
	return parseScore(result)
}

func (c *OpenAIClient) CalculateConfidence(ctx context.Context, content, statement, extra string) (float32, error) {
	result, err := c.complete(ctx, fmt.Sprintf(confidencePrompt, content, statement, extra), 0.0)
	if err != nil {
		return 0, fmt.Errorf("confidence check: %w", err)
	}
	return parseScore(result)
}

func parseScore(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", s, err)
	}
	return domain.ClampConfidence(float32(v)), nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
