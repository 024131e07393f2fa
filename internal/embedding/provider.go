package embedding

import (
	"fmt"

	"github.com/credo-ai/credo/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
	ProviderNone   = "none"
)

// NewClient creates an embedding client based on the provider name. The
// "none" provider returns a nil client; callers fall back to text similarity.
// An empty model keeps the OpenAI client default.
func NewClient(provider, apiKey, model string) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		var opts []OpenAIOption
		if model != "" {
			opts = append(opts, WithModel(model))
		}
		return NewOpenAIClient(apiKey, opts...), nil

	case ProviderMock:
		return NewMockClient(), nil

	case ProviderNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock, none)", provider)
	}
}
