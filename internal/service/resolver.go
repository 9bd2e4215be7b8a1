package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"profile-matcher/internal/domain"
	"profile-matcher/internal/repository"
)

// sharedResolveTimeout acota un cálculo compartido que ya no depende de ningún llamador.
const sharedResolveTimeout = 2 * time.Minute

// Vectorizer produce el VectorSet de un perfil.
type Vectorizer interface {
	Vectorize(ctx context.Context, profile domain.Profile) domain.VectorSet
}

// VectorResolver aplica la política calcular-una-vez: primero la caché, y ante un fallo
// lee el perfil, lo vectoriza y persiste el resultado. El store durable no expira; Refresh
// es la única forma de reemplazar un VectorSet viejo.
type VectorResolver struct {
	cache      repository.VectorCache
	profiles   repository.ProfileRepository
	vectorizer Vectorizer
	logger     *zap.Logger
	inflight   singleflight.Group
}

func NewVectorResolver(
	cache repository.VectorCache,
	profiles repository.ProfileRepository,
	vectorizer Vectorizer,
	logger *zap.Logger,
) *VectorResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorResolver{
		cache:      cache,
		profiles:   profiles,
		vectorizer: vectorizer,
		logger:     logger,
	}
}

// Resolve devuelve el VectorSet de la entidad. Errores: ErrProfileNotFound,
// ErrEmbeddingUnavailable o ErrBackendUnavailable, siempre envueltos.
func (r *VectorResolver) Resolve(ctx context.Context, userID string) (domain.VectorSet, error) {
	vectors, err := r.cache.Get(ctx, userID)
	switch {
	case err == nil && len(vectors) > 0:
		return vectors, nil
	case err != nil && !errors.Is(err, repository.ErrCacheMiss):
		r.logger.Warn("vector cache read failed, recomputing", zap.String("user_id", userID), zap.Error(err))
	}

	// Llamadas concurrentes para el mismo id comparten un solo cálculo. El cálculo compartido
	// no hereda la cancelación de quien lo inició: cada llamador espera con su propio ctx.
	ch := r.inflight.DoChan(userID, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedResolveTimeout)
		defer cancel()

		vectors, err := r.compute(shared, userID)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Upsert(shared, userID, vectors); err != nil {
			r.logger.Warn("vector persist failed", zap.String("user_id", userID), zap.Error(err))
		}
		return vectors, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resolve %s: %w", userID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(domain.VectorSet).Clone(), nil
	}
}

// Refresh recalcula desde el perfil actual ignorando la caché y persiste el resultado.
// A diferencia de Resolve, un fallo al persistir es un error.
func (r *VectorResolver) Refresh(ctx context.Context, userID string) (domain.VectorSet, error) {
	vectors, err := r.compute(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Upsert(ctx, userID, vectors); err != nil {
		return nil, fmt.Errorf("persist vectors for %s: %w: %w", userID, ErrBackendUnavailable, err)
	}
	r.logger.Info("vectors refreshed", zap.String("user_id", userID), zap.Int("categories", len(vectors)))
	return vectors, nil
}

func (r *VectorResolver) compute(ctx context.Context, userID string) (domain.VectorSet, error) {
	profile, err := r.profiles.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	case errors.Is(err, domain.ErrInvalidDescription):
		r.logger.Warn("profile description unreadable", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("user %s: %w", userID, ErrEmbeddingUnavailable)
	case err != nil:
		return nil, fmt.Errorf("get profile %s: %w: %w", userID, ErrBackendUnavailable, err)
	}

	vectors := r.vectorizer.Vectorize(ctx, profile)
	if len(vectors) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, ErrEmbeddingUnavailable)
	}
	return vectors, nil
}
