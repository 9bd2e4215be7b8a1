package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"profile-matcher/internal/domain"
	"profile-matcher/internal/llm"
)

const defaultEmbeddingTimeout = 10 * time.Second

// EmbeddingService convierte texto de categorías en vectores usando el modelo externo.
// No memoiza: cachear es responsabilidad del llamador (VectorResolver, BoltEmbeddingMemo).
type EmbeddingService struct {
	embedder llm.Embedder
	timeout  time.Duration
	logger   *zap.Logger
}

func NewEmbeddingService(embedder llm.Embedder, timeout time.Duration, logger *zap.Logger) *EmbeddingService {
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingService{
		embedder: embedder,
		timeout:  timeout,
		logger:   logger,
	}
}

// Embed devuelve el vector del texto, o ok=false si el modelo falló, expiró o respondió vacío.
// Un fallo aquí inutiliza solo esa categoría, nunca el perfil entero.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		s.logger.Warn("embedding failed", zap.Int("text_len", len(text)), zap.Error(err))
		return nil, false
	}
	if len(vec) == 0 {
		s.logger.Warn("embedding returned empty vector", zap.Int("text_len", len(text)))
		return nil, false
	}
	for _, x := range vec {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			s.logger.Warn("embedding returned non-finite component", zap.Int("text_len", len(text)))
			return nil, false
		}
	}
	return vec, true
}

// Vectorize embebe cada categoría con texto y devuelve solo las que tuvieron éxito.
// Un perfil sin texto produce un VectorSet vacío, no un error.
func (s *EmbeddingService) Vectorize(ctx context.Context, profile domain.Profile) domain.VectorSet {
	slots := make([][]float32, len(domain.Categories))

	var g errgroup.Group
	for i, c := range domain.Categories {
		text := profile.Text(c)
		if text == "" {
			continue
		}
		g.Go(func() error {
			if vec, ok := s.Embed(ctx, text); ok {
				slots[i] = vec
			} else {
				s.logger.Debug("category skipped", zap.String("user_id", profile.UserID), zap.String("category", string(c)))
			}
			return nil
		})
	}
	_ = g.Wait()

	vectors := make(domain.VectorSet, len(domain.Categories))
	for i, c := range domain.Categories {
		if len(slots[i]) > 0 {
			vectors[c] = slots[i]
		}
	}
	return vectors
}
