package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"profile-matcher/internal/config"
)

// NewEmbedder elige la implementación según EMBEDDING_PROVIDER.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.Model, logger), nil
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
