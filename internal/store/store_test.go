package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/repository"
)

func testBundle(tenantID string) *domain.ModelBundle {
	return &domain.ModelBundle{
		ID:        "bundle-001",
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Report: &domain.TrainingReport{
			Selected:  "random_forest",
			TrainRows: 280,
			TestRows:  120,
		},
		FeatureNames: []string{"amount", "hour", "cross_border"},
		ScalerMeans:  []float64{1200.5, 12.3, 0.4},
		ScalerStds:   []float64{900.1, 5.2, 0.49},
		Classifier: domain.ClassifierBundle{
			Kind: "random_forest",
			Forest: &domain.ForestParams{
				Trees: []domain.TreeParams{
					{Nodes: []domain.TreeNode{{Leaf: true, Value: 0.8}}},
				},
			},
		},
	}
}

func verifyStore(t *testing.T, s domain.BundleStore) {
	t.Helper()
	ctx := context.Background()
	tenantID := "tenant-001"

	exists, err := s.Exists(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected empty store")
	}

	if _, err := s.Get(ctx, tenantID, "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing bundle, got %v", err)
	}

	bundle := testBundle(tenantID)
	if err := s.Put(ctx, tenantID, "default", bundle); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err = s.Exists(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected bundle to exist after Put")
	}

	got, err := s.Get(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Classifier.Kind != "random_forest" {
		t.Errorf("expected classifier kind 'random_forest', got %s", got.Classifier.Kind)
	}
	if len(got.FeatureNames) != 3 {
		t.Errorf("expected 3 feature names, got %d", len(got.FeatureNames))
	}
	if got.Report == nil || got.Report.TrainRows != 280 {
		t.Error("training report did not survive the round trip")
	}

	// Same key under another tenant stays invisible
	if _, err := s.Get(ctx, "tenant-002", "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other tenant, got %v", err)
	}

	// Overwrite replaces the stored bundle
	bundle.Classifier.Kind = "gradient_boosting"
	if err := s.Put(ctx, tenantID, "default", bundle); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	got, err = s.Get(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if got.Classifier.Kind != "gradient_boosting" {
		t.Errorf("expected overwritten kind 'gradient_boosting', got %s", got.Classifier.Kind)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	verifyStore(t, s)
}

func TestRepoStore(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "harrier-store-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	s := NewRepo(repo)
	defer s.Close()
	verifyStore(t, s)
}
