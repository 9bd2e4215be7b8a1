package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"profile-matcher/internal/domain"
)

// ErrCacheMiss indica que no hay vectores guardados para la entidad.
var ErrCacheMiss = errors.New("vectors not cached")

// VectorCache guarda los VectorSet ya calculados. Get nunca calcula nada: ante ausencia devuelve ErrCacheMiss.
type VectorCache interface {
	Get(ctx context.Context, userID string) (domain.VectorSet, error)
	Upsert(ctx context.Context, userID string, vectors domain.VectorSet) error
}

// PgVectorRepository persiste un VectorSet por usuario en user_embeds, una columna vector por categoría.
type PgVectorRepository struct {
	pool pgxQuerier
	now  func() time.Time
}

func NewPgVectorRepository(pool *pgxpool.Pool) *PgVectorRepository {
	return &PgVectorRepository{pool: pool, now: time.Now}
}

var (
	selectVectorsQuery = buildSelectVectorsQuery()
	upsertVectorsQuery = buildUpsertVectorsQuery()
)

func buildSelectVectorsQuery() string {
	cols := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		cols = append(cols, c.EmbeddingColumn())
	}
	return fmt.Sprintf("SELECT %s FROM user_embeds WHERE user_id = $1", strings.Join(cols, ", "))
}

// buildUpsertVectorsQuery arma un único INSERT ... ON CONFLICT; las categorías ausentes quedan en NULL.
func buildUpsertVectorsQuery() string {
	cols := []string{"user_id"}
	params := []string{"$1"}
	updates := make([]string, 0, len(domain.Categories)+1)
	for i, c := range domain.Categories {
		col := c.EmbeddingColumn()
		cols = append(cols, col)
		params = append(params, fmt.Sprintf("$%d", i+2))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	cols = append(cols, "updated_at")
	params = append(params, fmt.Sprintf("$%d", len(domain.Categories)+2))
	updates = append(updates, "updated_at = EXCLUDED.updated_at")

	return fmt.Sprintf(
		"INSERT INTO user_embeds (%s) VALUES (%s) ON CONFLICT (user_id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
		strings.Join(updates, ", "),
	)
}

func (r *PgVectorRepository) Get(ctx context.Context, userID string) (domain.VectorSet, error) {
	scanned := make([]*pgvector.Vector, len(domain.Categories))
	dest := make([]any, len(scanned))
	for i := range scanned {
		dest[i] = &scanned[i]
	}

	err := r.pool.QueryRow(ctx, selectVectorsQuery, userID).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	vectors := make(domain.VectorSet, len(domain.Categories))
	for i, c := range domain.Categories {
		if scanned[i] == nil {
			continue
		}
		if vec := scanned[i].Slice(); len(vec) > 0 {
			vectors[c] = vec
		}
	}
	return vectors, nil
}

func (r *PgVectorRepository) Upsert(ctx context.Context, userID string, vectors domain.VectorSet) error {
	args := make([]any, 0, len(domain.Categories)+2)
	args = append(args, userID)
	for _, c := range domain.Categories {
		if vectors.Has(c) {
			args = append(args, pgvector.NewVector(vectors[c]))
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, r.now().UTC())

	_, err := r.pool.Exec(ctx, upsertVectorsQuery, args...)
	return err
}
