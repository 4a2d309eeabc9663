package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/noksha/internal/auth"
	"github.com/fpang/noksha/internal/chat"
)

// InitGeminiClient creates a Gemini client and validates the key against
// textModel. Exits fatally on failure.
func InitGeminiClient(ctx context.Context, textModel string) *genai.Client {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		HandleValidationError(err)
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	log.Info().Msg("connection successful - Gemini client initialized")

	if err := auth.ValidateAPIKey(ctx, client, textModel); err != nil {
		HandleValidationError(err)
	}

	log.Info().Msg("API key validation complete - ready for operations")
	return client
}
