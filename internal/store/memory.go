// Package store provides model bundle persistence: in-memory for tests and
// Community tier, Redis for Pro tier, and a repository-backed store that
// keeps bundles in the main database.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Memory is an in-process bundle store. Bundles are held serialized so a
// caller can never mutate a stored bundle through a retained pointer.
type Memory struct {
	mu      sync.RWMutex
	bundles map[string][]byte
}

// NewMemory creates an empty in-memory bundle store.
func NewMemory() *Memory {
	return &Memory{bundles: make(map[string][]byte)}
}

func memKey(tenantID, key string) string {
	return tenantID + ":" + key
}

// Put stores a bundle under the tenant-scoped key.
func (m *Memory) Put(ctx context.Context, tenantID, key string, bundle *domain.ModelBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	m.mu.Lock()
	m.bundles[memKey(tenantID, key)] = data
	m.mu.Unlock()
	return nil
}

// Get returns the bundle stored under the key, or ErrNotFound.
func (m *Memory) Get(ctx context.Context, tenantID, key string) (*domain.ModelBundle, error) {
	m.mu.RLock()
	data, ok := m.bundles[memKey(tenantID, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: bundle %s", domain.ErrNotFound, key)
	}
	var bundle domain.ModelBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &bundle, nil
}

// Exists reports whether a bundle is stored under the key.
func (m *Memory) Exists(ctx context.Context, tenantID, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.bundles[memKey(tenantID, key)]
	m.mu.RUnlock()
	return ok, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
