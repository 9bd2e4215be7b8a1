package domain

// Category es una de las seis ranuras semánticas fijas con que se describe un perfil.
type Category string

const (
	CategoryHobbies     Category = "hobbies"
	CategoryInterests   Category = "interests"
	CategoryTraits      Category = "traits"
	CategoryPersonality Category = "personality"
	CategoryLikes       Category = "likes"
	CategoryDislikes    Category = "dislikes"
)

// Categories mantiene el orden canónico; todo recorrido de categorías lo respeta.
var Categories = []Category{
	CategoryHobbies,
	CategoryInterests,
	CategoryTraits,
	CategoryPersonality,
	CategoryLikes,
	CategoryDislikes,
}

// CategoryWeights no suma 1: el agregador renormaliza sobre las categorías presentes.
var CategoryWeights = map[Category]float64{
	CategoryHobbies:     0.15,
	CategoryInterests:   0.15,
	CategoryTraits:      0.125,
	CategoryPersonality: 0.125,
	CategoryLikes:       0.25,
	CategoryDislikes:    0.20,
}

// ConflictPenaltyWeight se aplica a cada dirección likes/dislikes por separado.
const ConflictPenaltyWeight = 0.15

// Weight devuelve el peso de la categoría, 0 si no es una categoría conocida.
func (c Category) Weight() float64 {
	return CategoryWeights[c]
}

// Valid indica si c es una de las seis categorías.
func (c Category) Valid() bool {
	_, ok := CategoryWeights[c]
	return ok
}

// EmbeddingColumn es el nombre de la columna de user_embeds que guarda la categoría.
func (c Category) EmbeddingColumn() string {
	return "embedding_" + string(c)
}
