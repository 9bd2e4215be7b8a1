package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un proveedor real.
// Devuelve Vectors[text] si existe, si no Default; Errs[text] fuerza un error para ese texto.
type MockClient struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Default []float32
	Errs    map[string]error
	Err     error
	Calls   []string
}

func (m *MockClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[text]; ok {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if vec, ok := m.Vectors[text]; ok {
		return vec, nil
	}
	if m.Default == nil {
		return nil, ErrEmptyEmbedding
	}
	return m.Default, nil
}

// CallCount devuelve cuántas veces se invocó CreateEmbedding.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
