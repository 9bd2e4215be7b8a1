package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.etcd.io/bbolt"

	"profile-matcher/internal/llm"
)

var bucketEmbeddings = []byte("embeddings")

// BoltEmbeddingMemo memoiza embeddings de texto en un archivo bbolt local.
// La clave depende del modelo, así que cambiar de modelo no reutiliza vectores viejos.
type BoltEmbeddingMemo struct {
	db    *bbolt.DB
	next  llm.Embedder
	model string
}

func NewBoltEmbeddingMemo(path, model string, next llm.Embedder) (*BoltEmbeddingMemo, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt memo: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create embeddings bucket: %w", err)
	}
	return &BoltEmbeddingMemo{db: db, next: next, model: model}, nil
}

func (m *BoltEmbeddingMemo) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := m.key(text)

	var cached []float32
	_ = m.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketEmbeddings).Get(key)
		if raw == nil {
			return nil
		}
		vec, err := ParseVector(string(raw))
		if err != nil {
			return nil
		}
		cached = vec
		return nil
	})
	if cached != nil {
		return cached, nil
	}

	vec, err := m.next.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	err = m.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(key, []byte(FormatVector(vec)))
	})
	if err != nil {
		return nil, fmt.Errorf("store memo: %w", err)
	}
	return vec, nil
}

func (m *BoltEmbeddingMemo) Close() error {
	return m.db.Close()
}

func (m *BoltEmbeddingMemo) key(text string) []byte {
	sum := sha256.Sum256([]byte(m.model + "\x00" + text))
	return []byte(hex.EncodeToString(sum[:]))
}
