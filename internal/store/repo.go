package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Repo keeps bundles in the main repository (Community tier), so a saved
// model survives restarts alongside the transaction data.
type Repo struct {
	repo domain.Repository
}

// NewRepo wraps a repository as a bundle store.
func NewRepo(repo domain.Repository) *Repo {
	return &Repo{repo: repo}
}

// Put stores the serialized bundle in the model_bundles table.
func (s *Repo) Put(ctx context.Context, tenantID, key string, bundle *domain.ModelBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return s.repo.SaveModelBundle(ctx, tenantID, key, data)
}

// Get loads and decodes the bundle, or returns ErrNotFound.
func (s *Repo) Get(ctx context.Context, tenantID, key string) (*domain.ModelBundle, error) {
	data, err := s.repo.GetModelBundle(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	var bundle domain.ModelBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &bundle, nil
}

// Exists checks the table without loading the payload.
func (s *Repo) Exists(ctx context.Context, tenantID, key string) (bool, error) {
	return s.repo.ModelBundleExists(ctx, tenantID, key)
}

// Close is a no-op; the repository owns the connection.
func (s *Repo) Close() error {
	return nil
}
