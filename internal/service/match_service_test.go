package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"profile-matcher/internal/domain"
	"profile-matcher/internal/llm"
)

type mockResolver struct {
	sets map[string]domain.VectorSet
	errs map[string]error
}

func (m *mockResolver) Resolve(_ context.Context, userID string) (domain.VectorSet, error) {
	if err, ok := m.errs[userID]; ok {
		return nil, err
	}
	set, ok := m.sets[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return set, nil
}

func likesAt(cos float64) domain.VectorSet {
	return domain.VectorSet{
		domain.CategoryLikes: {float32(cos), float32(math.Sqrt(1 - cos*cos))},
	}
}

func TestRankCandidatesOrdersDescending(t *testing.T) {
	resolver := &mockResolver{sets: map[string]domain.VectorSet{
		"ref": likesAt(1),
		"low": likesAt(0.3),
		"top": likesAt(0.9),
		"mid": likesAt(0.7),
	}}
	svc := NewMatchService(resolver, nil, 2, zap.NewNop())

	got, err := svc.RankCandidates(context.Background(), "ref", []string{"low", "top", "mid"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got.Matches))
	}

	wantIDs := []string{"top", "mid", "low"}
	wantScores := []float64{0.9, 0.7, 0.3}
	for i, m := range got.Matches {
		if m.UserID != wantIDs[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantIDs[i], m.UserID)
		}
		if math.Abs(m.Similarity-wantScores[i]) > 1e-5 {
			t.Fatalf("position %d: expected %.2f, got %f", i, wantScores[i], m.Similarity)
		}
		if math.Abs(m.MatchProbability-m.Similarity*100) > 1e-9 {
			t.Fatalf("match probability must be similarity*100")
		}
	}
	if got.Matches[0].Interpretation != domain.InterpretationHigh ||
		got.Matches[1].Interpretation != domain.InterpretationModerate ||
		got.Matches[2].Interpretation != domain.InterpretationLow {
		t.Fatalf("unexpected interpretations: %+v", got.Matches)
	}
	if got.Unresolved == nil || len(got.Unresolved) != 0 {
		t.Fatalf("expected empty non-nil unresolved, got %v", got.Unresolved)
	}
}

func TestRankCandidatesExcludesReference(t *testing.T) {
	resolver := &mockResolver{sets: map[string]domain.VectorSet{
		"ref": likesAt(1),
		"a":   likesAt(0.5),
	}}
	svc := NewMatchService(resolver, nil, 0, nil)

	got, err := svc.RankCandidates(context.Background(), "ref", []string{"ref", "a", "ref"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got.Matches) != 1 || got.Matches[0].UserID != "a" {
		t.Fatalf("expected only candidate a, got %+v", got.Matches)
	}
	if len(got.Unresolved) != 0 {
		t.Fatalf("reference must not be reported unresolved, got %v", got.Unresolved)
	}
}

func TestRankCandidatesCollectsUnresolved(t *testing.T) {
	resolver := &mockResolver{
		sets: map[string]domain.VectorSet{
			"ref": likesAt(1),
			"ok":  likesAt(0.8),
		},
		errs: map[string]error{
			"empty": ErrEmbeddingUnavailable,
			"down":  ErrBackendUnavailable,
		},
	}
	svc := NewMatchService(resolver, nil, 4, zap.NewNop())

	got, err := svc.RankCandidates(context.Background(), "ref", []string{"ghost", "ok", "empty", "down"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got.Matches) != 1 || got.Matches[0].UserID != "ok" {
		t.Fatalf("expected only ok to match, got %+v", got.Matches)
	}
	want := []string{"ghost", "empty", "down"}
	if len(got.Unresolved) != len(want) {
		t.Fatalf("expected %v unresolved, got %v", want, got.Unresolved)
	}
	for i := range want {
		if got.Unresolved[i] != want[i] {
			t.Fatalf("expected unresolved in input order %v, got %v", want, got.Unresolved)
		}
	}
}

func TestRankCandidatesEmptyInput(t *testing.T) {
	resolver := &mockResolver{sets: map[string]domain.VectorSet{"ref": likesAt(1)}}
	svc := NewMatchService(resolver, nil, 1, nil)

	got, err := svc.RankCandidates(context.Background(), "ref", nil)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if got.Matches == nil || len(got.Matches) != 0 {
		t.Fatalf("expected empty matches, got %v", got.Matches)
	}
}

func TestRankCandidatesReferenceFailure(t *testing.T) {
	resolver := &mockResolver{
		sets: map[string]domain.VectorSet{"a": likesAt(0.5)},
		errs: map[string]error{"ref": ErrEmbeddingUnavailable},
	}
	svc := NewMatchService(resolver, nil, 1, nil)

	_, err := svc.RankCandidates(context.Background(), "ref", []string{"a"})
	if !errors.Is(err, ErrReferenceUnresolved) {
		t.Fatalf("expected ErrReferenceUnresolved, got %v", err)
	}
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestRankCandidatesEqualScoresKeepInputOrder(t *testing.T) {
	resolver := &mockResolver{sets: map[string]domain.VectorSet{
		"ref": likesAt(1),
		"b":   likesAt(0.5),
		"a":   likesAt(0.5),
		"c":   likesAt(0.5),
	}}
	svc := NewMatchService(resolver, nil, 3, nil)

	got, err := svc.RankCandidates(context.Background(), "ref", []string{"b", "a", "c"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	for i, id := range []string{"b", "a", "c"} {
		if got.Matches[i].UserID != id {
			t.Fatalf("expected stable order b,a,c, got %+v", got.Matches)
		}
	}
}

func TestRankCandidatesThroughResolver(t *testing.T) {
	mock := &llm.MockClient{Vectors: map[string][]float32{
		"hiking":    {1, 0},
		"swimming":  {0, 1},
		"mountains": {1, 0},
	}}
	resolver, cache := newTestResolver(map[string]domain.Profile{
		"ref": {UserID: "ref", Fields: map[domain.Category]string{domain.CategoryHobbies: "hiking"}},
		"a":   {UserID: "a", Fields: map[domain.Category]string{domain.CategoryHobbies: "mountains"}},
		"b":   {UserID: "b", Fields: map[domain.Category]string{domain.CategoryHobbies: "swimming"}},
		"c":   {UserID: "c"},
	}, mock)
	svc := NewMatchService(resolver, nil, 2, zap.NewNop())

	got, err := svc.RankCandidates(context.Background(), "ref", []string{"b", "c", "a"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got.Matches) != 2 || got.Matches[0].UserID != "a" || got.Matches[1].UserID != "b" {
		t.Fatalf("unexpected ranking %+v", got.Matches)
	}
	if len(got.Unresolved) != 1 || got.Unresolved[0] != "c" {
		t.Fatalf("expected c unresolved, got %v", got.Unresolved)
	}
	if _, ok := cache.items["a"]; !ok {
		t.Fatalf("expected candidate vectors persisted")
	}
}

func TestScorePairAppliesConflictPenalty(t *testing.T) {
	mock := &llm.MockClient{Vectors: map[string][]float32{
		"hiking, coffee": {1, 1, 0},
		"coffee, hiking": {1, 0.9, 0.1},
		"hiking":         {1, 0, 0},
	}}
	svc := NewMatchService(nil, NewEmbeddingService(mock, time.Second, nil), 1, nil)

	a := map[domain.Category]string{domain.CategoryLikes: "hiking, coffee"}
	b := map[domain.Category]string{
		domain.CategoryLikes:    "coffee, hiking",
		domain.CategoryDislikes: "hiking",
	}

	got, err := svc.ScorePair(context.Background(), a, b)
	if err != nil {
		t.Fatalf("score pair: %v", err)
	}
	likes := got.CategoryScores[domain.CategoryLikes]
	if likes < 0.99 {
		t.Fatalf("expected near-identical likes, got %f", likes)
	}
	conflict, ok := got.Conflicts[domain.ConflictLikesVsDislikes]
	if !ok || math.Abs(conflict-1/math.Sqrt2) > 1e-6 {
		t.Fatalf("expected likes_vs_dislikes ~0.707, got %v", got.Conflicts)
	}
	if _, ok := got.Conflicts[domain.ConflictDislikesVsLikes]; ok {
		t.Fatalf("a has no dislikes, reverse conflict must be absent")
	}
	if got.Similarity >= likes {
		t.Fatalf("expected penalty to lower score below %f, got %f", likes, got.Similarity)
	}
	want := likes - conflict*domain.ConflictPenaltyWeight
	if math.Abs(got.Similarity-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, got.Similarity)
	}
}

func TestScorePairNoVectors(t *testing.T) {
	mock := &llm.MockClient{Default: []float32{1}}
	svc := NewMatchService(nil, NewEmbeddingService(mock, time.Second, nil), 1, nil)

	_, err := svc.ScorePair(context.Background(),
		map[domain.Category]string{domain.CategoryLikes: "tea"},
		map[domain.Category]string{},
	)
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}
