package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"profile-matcher/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
// El ranking en paralelo abre hasta RankWorkers consultas a la vez, por eso el tope se ajusta a ese valor.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	maxConns := int32(10)
	if w := int32(cfg.RankWorkers) + 2; w > maxConns {
		maxConns = w
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}
