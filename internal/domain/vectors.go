package domain

// VectorSet es disperso: solo contiene categorías con texto y embedding exitoso, nunca vectores cero de relleno.
type VectorSet map[Category][]float32

// Has indica si la categoría tiene vector.
func (v VectorSet) Has(c Category) bool {
	vec, ok := v[c]
	return ok && len(vec) > 0
}

// PresentCategories devuelve las categorías presentes en orden canónico.
func (v VectorSet) PresentCategories() []Category {
	out := make([]Category, 0, len(v))
	for _, c := range Categories {
		if v.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Dimension devuelve la longitud del primer vector presente, 0 si está vacío.
func (v VectorSet) Dimension() int {
	for _, c := range Categories {
		if v.Has(c) {
			return len(v[c])
		}
	}
	return 0
}

// Clone copia el set para que el llamador no comparta slices con quien lo produjo.
func (v VectorSet) Clone() VectorSet {
	if v == nil {
		return nil
	}
	out := make(VectorSet, len(v))
	for c, vec := range v {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		out[c] = cp
	}
	return out
}
