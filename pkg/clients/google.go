package clients

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms/googleai"
	"google.golang.org/genai"
)

// ModelType is an enum for the available Google AI models.
type ModelType string

const (
	// FastModel handles the high-volume synthesis calls.
	FastModel ModelType = "gemini-3-flash-preview"
	// ReasoningModel handles structured query analysis.
	ReasoningModel ModelType = "gemini-3-pro-preview"
)

// GoogleAi returns a langchaingo model for plain chat-style generation.
func GoogleAi(model ModelType) (*googleai.GoogleAI, error) {
	_ = godotenv.Load()
	ctx := context.Background()
	apiKey := os.Getenv("GOOGLE_API_KEY")

	switch model {
	case FastModel, ReasoningModel:
	default:
		return nil, fmt.Errorf("invalid model type: %s", model)
	}

	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to init Google AI client: %w", err)
	}
	return llm, nil
}

// Genai returns the raw Gemini client used for schema-constrained
// generation and embeddings.
func Genai(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		_ = godotenv.Load()
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}
