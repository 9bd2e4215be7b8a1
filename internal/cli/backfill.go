package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"profile-matcher/internal/config"
	"profile-matcher/internal/db"
	"profile-matcher/internal/domain"
	"profile-matcher/internal/llm"
	"profile-matcher/internal/repository"
	"profile-matcher/internal/service"
)

var (
	backfillWorkers int
	backfillForce   bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill [user_id...]",
	Short: "Compute and cache category vectors for a list of users",
	Long: `Resolve every given user through the same compute-once path as the API,
so later matching requests hit the cache. Ids come from the arguments or,
when there are none, from stdin (one per line).

With --force the cached vectors are ignored and recomputed from the current
profile text.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().IntVarP(&backfillWorkers, "workers", "w", 4, "concurrent resolutions")
	backfillCmd.Flags().BoolVar(&backfillForce, "force", false, "recompute even when vectors are cached")
	rootCmd.AddCommand(backfillCmd)
}

type vectorSource interface {
	Resolve(ctx context.Context, userID string) (domain.VectorSet, error)
	Refresh(ctx context.Context, userID string) (domain.VectorSet, error)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ids := args
	if len(ids) == 0 {
		var err error
		ids, err = readIDs(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read ids: %w", err)
		}
	}
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return errors.New("no user ids given")
	}

	ctx := cmd.Context()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	var cache repository.VectorCache = repository.NewPgVectorRepository(pool)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		cache = repository.NewRedisVectorCache(client, cache, cfg.VectorCacheTTL, log)
	}

	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding, log)
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}
	embeddings := service.NewEmbeddingService(embedder, cfg.Embedding.Timeout, log)
	resolver := service.NewVectorResolver(cache, repository.NewPgProfileRepository(pool), embeddings, log)

	fmt.Fprintf(cmd.OutOrStdout(), "Backfilling %d users...\n", len(ids))

	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Resolving[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	start := time.Now()
	summary := backfill(ctx, resolver, ids, backfillWorkers, backfillForce, log, func() { _ = bar.Add(1) })

	fmt.Fprintf(cmd.OutOrStdout(), "Resolved %d/%d users in %s\n", summary.ok, len(ids), time.Since(start).Round(time.Millisecond))
	if len(summary.failed) == 0 {
		return nil
	}

	kinds := make([]string, 0, len(summary.failed))
	for kind := range summary.failed {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		failed := summary.failed[kind]
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %d  %s\n", kind, len(failed), previewIDs(failed, 5))
	}
	return fmt.Errorf("%d users could not be resolved", len(ids)-summary.ok)
}

type backfillSummary struct {
	ok     int
	failed map[string][]string
}

// backfill resuelve ids con concurrencia acotada. Un fallo nunca detiene a los demás.
func backfill(ctx context.Context, src vectorSource, ids []string, workers int, force bool, logger *zap.Logger, step func()) backfillSummary {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var mu sync.Mutex
	summary := backfillSummary{failed: make(map[string][]string)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			var err error
			if force {
				_, err = src.Refresh(gctx, id)
			} else {
				_, err = src.Resolve(gctx, id)
			}

			mu.Lock()
			if err != nil {
				kind := failureKind(err)
				summary.failed[kind] = append(summary.failed[kind], id)
				logger.Debug("backfill failed", zap.String("user_id", id), zap.String("kind", kind), zap.Error(err))
			} else {
				summary.ok++
			}
			mu.Unlock()

			if step != nil {
				step()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, failed := range summary.failed {
		sort.Strings(failed)
	}
	return summary
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return "profile_not_found"
	case errors.Is(err, service.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, service.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func previewIDs(ids []string, n int) string {
	if len(ids) <= n {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:n], ", ") + fmt.Sprintf(" (+%d more)", len(ids)-n)
}
