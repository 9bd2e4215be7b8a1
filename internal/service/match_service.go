package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"profile-matcher/internal/domain"
)

const defaultRankWorkers = 8

type vectorResolver interface {
	Resolve(ctx context.Context, userID string) (domain.VectorSet, error)
}

// MatchService expone el ranking por lotes y la comparación ad hoc de perfiles.
type MatchService struct {
	resolver   vectorResolver
	vectorizer Vectorizer
	workers    int
	logger     *zap.Logger
}

func NewMatchService(resolver vectorResolver, vectorizer Vectorizer, workers int, logger *zap.Logger) *MatchService {
	if workers <= 0 {
		workers = defaultRankWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{
		resolver:   resolver,
		vectorizer: vectorizer,
		workers:    workers,
		logger:     logger,
	}
}

type candidateOutcome struct {
	skipped  bool
	userID   string
	result   domain.MatchResult
	resolved bool
}

// RankCandidates puntúa cada candidato contra la referencia y ordena por puntaje descendente.
// Solo el fallo de la referencia aborta la llamada; un candidato que falla va a Unresolved.
// Los empates conservan el orden de entrada.
func (s *MatchService) RankCandidates(ctx context.Context, referenceID string, candidateIDs []string) (domain.RankResult, error) {
	reference, err := s.resolver.Resolve(ctx, referenceID)
	if err != nil {
		return domain.RankResult{}, fmt.Errorf("%w: %s: %w", ErrReferenceUnresolved, referenceID, err)
	}

	outcomes := make([]candidateOutcome, len(candidateIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range candidateIDs {
		outcomes[i].userID = id
		if id == referenceID {
			outcomes[i].skipped = true
			continue
		}
		g.Go(func() error {
			vectors, err := s.resolver.Resolve(gctx, id)
			if err != nil {
				s.logger.Debug("candidate unresolved", zap.String("user_id", id), zap.Error(err))
				return nil
			}
			outcomes[i].result = NewMatchResult(id, Aggregate(reference, vectors))
			outcomes[i].resolved = true
			return nil
		})
	}
	_ = g.Wait()

	result := domain.RankResult{
		Matches:    make([]domain.MatchResult, 0, len(candidateIDs)),
		Unresolved: make([]string, 0),
	}
	for _, o := range outcomes {
		switch {
		case o.skipped:
		case o.resolved:
			result.Matches = append(result.Matches, o.result)
		default:
			result.Unresolved = append(result.Unresolved, o.userID)
		}
	}
	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Similarity > result.Matches[j].Similarity
	})

	if len(result.Unresolved) > 0 {
		preview := result.Unresolved
		if len(preview) > 5 {
			preview = preview[:5]
		}
		s.logger.Warn("missing embeddings for candidates",
			zap.String("reference_id", referenceID),
			zap.Int("count", len(result.Unresolved)),
			zap.Strings("sample", preview),
		)
	}
	return result, nil
}

// ScorePair compara dos perfiles ad hoc, sin leer ni escribir ningún store.
func (s *MatchService) ScorePair(ctx context.Context, a, b map[domain.Category]string) (domain.PairScore, error) {
	va := s.vectorizer.Vectorize(ctx, domain.Profile{Fields: a})
	vb := s.vectorizer.Vectorize(ctx, domain.Profile{Fields: b})
	if len(va) == 0 || len(vb) == 0 {
		return domain.PairScore{}, fmt.Errorf("score pair: %w", ErrEmbeddingUnavailable)
	}

	bd := ScoreVectorSets(va, vb)
	return domain.PairScore{
		Similarity:       bd.Score,
		MatchProbability: bd.Score * 100,
		Interpretation:   Interpret(bd.Score),
		CategoryScores:   bd.CategoryScores,
		Conflicts:        bd.Conflicts,
	}, nil
}
