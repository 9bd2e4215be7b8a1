package domain

// Interpretaciones visibles al usuario; los umbrales están en service.Interpret.
const (
	InterpretationHigh     = "highly similar"
	InterpretationModerate = "moderately similar"
	InterpretationLow      = "likely different"
)

// Nombres de las dos direcciones de conflicto.
const (
	ConflictLikesVsDislikes = "likes_vs_dislikes"
	ConflictDislikesVsLikes = "dislikes_vs_likes"
)

// MatchResult es efímero: se calcula por request y nunca se persiste.
type MatchResult struct {
	UserID           string  `json:"user_id"`
	Similarity       float64 `json:"similarity"`
	MatchProbability float64 `json:"match_probability"`
	Interpretation   string  `json:"interpretation"`
}

// RankResult es la salida del ranking por lotes.
type RankResult struct {
	Matches    []MatchResult `json:"matches"`
	Unresolved []string      `json:"missing_embeddings"`
}

// PairScore detalla la comparación ad hoc entre dos perfiles sin persistencia.
type PairScore struct {
	Similarity       float64              `json:"similarity"`
	MatchProbability float64              `json:"match_probability"`
	Interpretation   string               `json:"interpretation"`
	CategoryScores   map[Category]float64 `json:"category_scores"`
	Conflicts        map[string]float64   `json:"conflicts"`
}
