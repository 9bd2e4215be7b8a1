package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"profile-matcher/internal/config"
	"profile-matcher/internal/domain"
	"profile-matcher/internal/llm"
	"profile-matcher/internal/repository"
	"profile-matcher/internal/service"
)

var (
	scoreMemo string
	scoreJSON bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <profile-a> <profile-b>",
	Short: "Compare two profile files without touching any store",
	Long: `Read two profiles (YAML or JSON objects keyed by category) and print their
match score, per-category similarity and likes/dislikes conflicts.

Only the EMBEDDING_* environment is needed. With --memo, text embeddings are
kept in a local bbolt file so repeated runs do not call the provider again.

Example profile:
  likes: [hiking, coffee]
  dislikes: crowds
  personality: calm, curious`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreMemo, "memo", "", "bbolt file used to memoize text embeddings")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := loadProfileFile(args[0])
	if err != nil {
		return err
	}
	b, err := loadProfileFile(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := config.LoadEmbeddingConfig()
	if err != nil {
		return fmt.Errorf("failed to load embedding config: %w", err)
	}

	embedder, err := llm.NewEmbedder(ctx, *cfg, log)
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}
	if scoreMemo != "" {
		memo, err := repository.NewBoltEmbeddingMemo(scoreMemo, cfg.Provider+"/"+cfg.Model, embedder)
		if err != nil {
			return err
		}
		defer memo.Close()
		embedder = memo
	}

	embeddings := service.NewEmbeddingService(embedder, cfg.Timeout, log)
	matches := service.NewMatchService(nil, embeddings, 1, log)

	score, err := matches.ScorePair(ctx, a, b)
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}

	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(score)
	}
	printPairScore(cmd.OutOrStdout(), score)
	return nil
}

// loadProfileFile lee un perfil YAML o JSON y lo normaliza igual que generated_description.
func loadProfileFile(path string) (map[domain.Category]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return parseProfileDocument(data)
}

func parseProfileDocument(data []byte) (map[domain.Category]string, error) {
	// YAML es superset de JSON, así que un solo decoder cubre ambos formatos.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDescription, err)
	}
	if doc == nil {
		return nil, domain.ErrInvalidDescription
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDescription, err)
	}
	return domain.ParseProfileFields(raw)
}

func printPairScore(w io.Writer, score domain.PairScore) {
	fmt.Fprintf(w, "Similarity:     %.4f\n", score.Similarity)
	fmt.Fprintf(w, "Probability:    %.1f%%\n", score.MatchProbability)
	fmt.Fprintf(w, "Interpretation: %s\n", score.Interpretation)

	if len(score.CategoryScores) > 0 {
		fmt.Fprintln(w, "\nCategories:")
		for _, c := range domain.Categories {
			if sim, ok := score.CategoryScores[c]; ok {
				fmt.Fprintf(w, "  %-12s %.4f\n", c, sim)
			}
		}
	}

	if len(score.Conflicts) > 0 {
		names := make([]string, 0, len(score.Conflicts))
		for name := range score.Conflicts {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "\nConflicts:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-18s %.4f\n", name, score.Conflicts[name])
		}
	}
}
