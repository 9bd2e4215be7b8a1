package repository

import (
	"errors"
	"math"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"
)

// ErrInvalidVector indica un texto que no cumple la gramática de vectores.
var ErrInvalidVector = errors.New("invalid vector text")

// ParseVector interpreta floats finitos separados por comas, opcionalmente entre corchetes.
// Se admiten espacios alrededor de cada elemento; NaN e Inf se rechazan. No hay casos especiales para prefijos de otros lenguajes.
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") != strings.HasSuffix(s, "]") {
		return nil, ErrInvalidVector
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")

	parts := strings.Split(s, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, ErrInvalidVector
		}
		parts[i] = p
	}

	var v pgvector.Vector
	if err := v.Parse("[" + strings.Join(parts, ",") + "]"); err != nil {
		return nil, errors.Join(ErrInvalidVector, err)
	}
	vec := v.Slice()
	for _, x := range vec {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, ErrInvalidVector
		}
	}
	return vec, nil
}

// FormatVector produce la forma canónica "[f1,f2,...]", la misma que usa pgvector.
func FormatVector(vec []float32) string {
	return pgvector.NewVector(vec).String()
}
