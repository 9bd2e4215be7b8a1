package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"profile-matcher/internal/domain"
)

// ProfileRepository lee el texto por categoría de un perfil. Devuelve pgx.ErrNoRows si no existe.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.Profile, error)
}

type PgProfileRepository struct {
	pool pgxQuerier
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) GetByUserID(ctx context.Context, userID string) (domain.Profile, error) {
	const query = `
		SELECT generated_description
		FROM profiles
		WHERE user_id = $1
	`
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		return domain.Profile{}, err
	}

	fields, err := domain.ParseProfileFields(raw)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", userID, err)
	}
	return domain.Profile{UserID: userID, Fields: fields}, nil
}
