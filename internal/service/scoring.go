package service

import (
	"math"

	"profile-matcher/internal/domain"
)

// CosineSimilarity devuelve el coseno entre a y b en [-1, 1].
// Vectores ausentes, de distinta longitud, de norma cero o con componentes NaN/Inf devuelven 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 || !isFinite(dot) || !isFinite(normA) || !isFinite(normB) {
		return 0
	}
	// El redondeo puede dejar vectores idénticos apenas por encima de 1.
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ConflictScores devuelve la similitud cruda de cada dirección presente:
// likes de a contra dislikes de b, y dislikes de a contra likes de b.
func ConflictScores(a, b domain.VectorSet) map[string]float64 {
	conflicts := make(map[string]float64, 2)
	if a.Has(domain.CategoryLikes) && b.Has(domain.CategoryDislikes) {
		conflicts[domain.ConflictLikesVsDislikes] = CosineSimilarity(a[domain.CategoryLikes], b[domain.CategoryDislikes])
	}
	if a.Has(domain.CategoryDislikes) && b.Has(domain.CategoryLikes) {
		conflicts[domain.ConflictDislikesVsLikes] = CosineSimilarity(a[domain.CategoryDislikes], b[domain.CategoryLikes])
	}
	return conflicts
}

// ConflictPenalty suma similitud * ConflictPenaltyWeight por cada dirección presente. Máximo 0.30.
// Una similitud negativa no descuenta penalización: el conflicto nunca suma puntaje.
func ConflictPenalty(a, b domain.VectorSet) float64 {
	return penaltyFrom(ConflictScores(a, b))
}

func penaltyFrom(conflicts map[string]float64) float64 {
	var penalty float64
	for _, sim := range conflicts {
		penalty += math.Max(0, sim) * domain.ConflictPenaltyWeight
	}
	return penalty
}

// Breakdown es el detalle de una comparación entre dos VectorSet.
type Breakdown struct {
	Score          float64
	Base           float64
	Penalty        float64
	CategoryScores map[domain.Category]float64
	Conflicts      map[string]float64
}

// ScoreVectorSets compara solo las categorías presentes en ambos sets y renormaliza por el peso
// realmente aplicado, así que una categoría ausente no penaliza. Score = max(0, base - penalty).
func ScoreVectorSets(a, b domain.VectorSet) Breakdown {
	scores := make(map[domain.Category]float64, len(domain.Categories))
	var weightedSum, weightApplied float64
	for _, c := range domain.Categories {
		if !a.Has(c) || !b.Has(c) {
			continue
		}
		sim := CosineSimilarity(a[c], b[c])
		scores[c] = sim
		weightedSum += sim * c.Weight()
		weightApplied += c.Weight()
	}

	var base float64
	if weightApplied > 0 {
		base = weightedSum / weightApplied
	}

	conflicts := ConflictScores(a, b)
	penalty := penaltyFrom(conflicts)

	return Breakdown{
		Score:          math.Max(0, base-penalty),
		Base:           base,
		Penalty:        penalty,
		CategoryScores: scores,
		Conflicts:      conflicts,
	}
}

// Aggregate devuelve solo el puntaje final de ScoreVectorSets.
func Aggregate(a, b domain.VectorSet) float64 {
	return ScoreVectorSets(a, b).Score
}

// Interpret traduce el puntaje a una etiqueta. Los cortes son estrictos: 0.8 es moderado y 0.6 es bajo.
func Interpret(score float64) string {
	switch {
	case score > 0.8:
		return domain.InterpretationHigh
	case score > 0.6:
		return domain.InterpretationModerate
	default:
		return domain.InterpretationLow
	}
}

// NewMatchResult arma el resultado presentable de un candidato.
func NewMatchResult(userID string, score float64) domain.MatchResult {
	return domain.MatchResult{
		UserID:           userID,
		Similarity:       score,
		MatchProbability: score * 100,
		Interpretation:   Interpret(score),
	}
}
