package service

import "errors"

var (
	// ErrProfileNotFound: la entidad no tiene perfil guardado. No se reintenta.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrEmbeddingUnavailable: el perfil existe pero ninguna categoría produjo un vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrReferenceUnresolved: el perfil de referencia del ranking no se pudo resolver.
	ErrReferenceUnresolved = errors.New("reference unresolved")

	// ErrBackendUnavailable: fallo transitorio de store o modelo.
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrRateLimited = errors.New("rate limited")
)
