package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"profile-matcher/internal/domain"
	"profile-matcher/internal/service"
)

func TestParseProfileDocumentYAML(t *testing.T) {
	doc := []byte(`
likes:
  - hiking
  - " coffee "
dislikes: crowds
mood: ignored
traits: 42
`)
	fields, err := parseProfileDocument(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields[domain.CategoryLikes] != "hiking, coffee" {
		t.Fatalf("unexpected likes %q", fields[domain.CategoryLikes])
	}
	if fields[domain.CategoryDislikes] != "crowds" {
		t.Fatalf("unexpected dislikes %q", fields[domain.CategoryDislikes])
	}
	if _, ok := fields[domain.CategoryTraits]; ok {
		t.Fatalf("non-text values must be ignored")
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 categories, got %v", fields)
	}
}

func TestParseProfileDocumentJSON(t *testing.T) {
	fields, err := parseProfileDocument([]byte(`{"hobbies": "chess", "personality": ["calm"]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields[domain.CategoryHobbies] != "chess" || fields[domain.CategoryPersonality] != "calm" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestParseProfileDocumentInvalid(t *testing.T) {
	for _, doc := range []string{"", "- just\n- a list\n"} {
		if _, err := parseProfileDocument([]byte(doc)); !errors.Is(err, domain.ErrInvalidDescription) {
			t.Fatalf("doc %q: expected ErrInvalidDescription, got %v", doc, err)
		}
	}
}

func TestReadIDsSkipsBlankAndComments(t *testing.T) {
	ids, err := readIDs(strings.NewReader("u1\n\n# comment\n  u2  \nu1\n"))
	if err != nil {
		t.Fatalf("read ids: %v", err)
	}
	ids = dedupeIDs(ids)
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

type fakeVectorSource struct {
	errs      map[string]error
	resolves  atomic.Int32
	refreshes atomic.Int32
}

func (f *fakeVectorSource) Resolve(_ context.Context, userID string) (domain.VectorSet, error) {
	f.resolves.Add(1)
	return f.result(userID)
}

func (f *fakeVectorSource) Refresh(_ context.Context, userID string) (domain.VectorSet, error) {
	f.refreshes.Add(1)
	return f.result(userID)
}

func (f *fakeVectorSource) result(userID string) (domain.VectorSet, error) {
	if err, ok := f.errs[userID]; ok {
		return nil, err
	}
	return domain.VectorSet{domain.CategoryLikes: {1}}, nil
}

func TestBackfillGroupsFailuresByKind(t *testing.T) {
	src := &fakeVectorSource{errs: map[string]error{
		"ghost": fmt.Errorf("user ghost: %w", service.ErrProfileNotFound),
		"blank": fmt.Errorf("user blank: %w", service.ErrEmbeddingUnavailable),
		"down":  fmt.Errorf("get profile: %w: boom", service.ErrBackendUnavailable),
		"weird": errors.New("unexpected"),
	}}

	var steps atomic.Int32
	ids := []string{"u1", "ghost", "u2", "blank", "down", "weird"}
	summary := backfill(context.Background(), src, ids, 3, false, nil, func() { steps.Add(1) })

	if summary.ok != 2 {
		t.Fatalf("expected 2 resolved, got %d", summary.ok)
	}
	if int(steps.Load()) != len(ids) {
		t.Fatalf("expected one progress step per id, got %d", steps.Load())
	}
	for kind, id := range map[string]string{
		"profile_not_found":     "ghost",
		"embedding_unavailable": "blank",
		"backend_unavailable":   "down",
		"other":                 "weird",
	} {
		if got := summary.failed[kind]; len(got) != 1 || got[0] != id {
			t.Fatalf("kind %s: expected [%s], got %v", kind, id, got)
		}
	}
	if src.refreshes.Load() != 0 {
		t.Fatalf("expected resolve path without --force")
	}
}

func TestBackfillForceRefreshes(t *testing.T) {
	src := &fakeVectorSource{}
	summary := backfill(context.Background(), src, []string{"u1", "u2"}, 0, true, nil, nil)
	if summary.ok != 2 || src.refreshes.Load() != 2 || src.resolves.Load() != 0 {
		t.Fatalf("expected two refreshes, got ok=%d refreshes=%d resolves=%d",
			summary.ok, src.refreshes.Load(), src.resolves.Load())
	}
}

func TestPrintPairScore(t *testing.T) {
	var buf bytes.Buffer
	printPairScore(&buf, domain.PairScore{
		Similarity:       0.72,
		MatchProbability: 72,
		Interpretation:   domain.InterpretationModerate,
		CategoryScores:   map[domain.Category]float64{domain.CategoryLikes: 0.9, domain.CategoryHobbies: 0.5},
		Conflicts:        map[string]float64{domain.ConflictLikesVsDislikes: 0.3},
	})

	out := buf.String()
	if !strings.Contains(out, "moderately similar") || !strings.Contains(out, "likes_vs_dislikes") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Index(out, "hobbies") > strings.Index(out, "likes ") {
		t.Fatalf("categories must print in canonical order:\n%s", out)
	}
}
