package domain

import (
	"context"
	"time"
)

// ModelMetrics holds held-out evaluation metrics for one candidate classifier.
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// TrainingReport summarizes one training run across all candidates.
type TrainingReport struct {
	Candidates map[string]ModelMetrics `json:"candidates"`
	Selected   string                  `json:"selected"`
	TrainRows  int                     `json:"trainRows"`
	TestRows   int                     `json:"testRows"`
	TrainedAt  time.Time               `json:"trainedAt"`
}

// ModelBundle is the opaque, versioned artifact a training run produces.
// It carries everything the prediction path needs: the fitted classifier,
// the fitted feature scaler, the fitted categorical encoders, the ordered
// feature-name list, and run metadata. A bundle is superseded wholesale by
// any subsequent training run.
type ModelBundle struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	CreatedAt time.Time       `json:"createdAt"`
	Report    *TrainingReport `json:"report"`

	// Ordered feature names the classifier was fitted on.
	FeatureNames []string `json:"featureNames"`

	// Fitted category -> code mappings, one per categorical feature.
	// Code 0 is reserved for values unseen at fit time.
	Encoders map[string]map[string]int `json:"encoders"`

	// Fitted standard scaler parameters, aligned with FeatureNames.
	ScalerMeans []float64 `json:"scalerMeans"`
	ScalerStds  []float64 `json:"scalerStds"`

	// Serialized classifier. Kind selects which payload is populated.
	Classifier ClassifierBundle `json:"classifier"`
}

// Classifier kinds carried in a bundle.
const (
	ClassifierRandomForest     = "random_forest"
	ClassifierGradientBoosting = "gradient_boosting"
)

// ClassifierBundle is the serialized form of the active classifier.
type ClassifierBundle struct {
	Kind     string          `json:"kind"`
	Forest   *ForestParams   `json:"forest,omitempty"`
	Boosting *BoostingParams `json:"boosting,omitempty"`
}

// TreeNode is one node of a serialized decision tree. Leaf nodes carry
// Value; internal nodes carry the split and child indexes into the
// tree's node slice.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// TreeParams is one serialized tree as a flat node slice rooted at index 0.
type TreeParams struct {
	Nodes []TreeNode `json:"nodes"`
}

// ForestParams serializes a bagged tree ensemble.
type ForestParams struct {
	Trees []TreeParams `json:"trees"`
}

// BoostingParams serializes a gradient-boosted ensemble.
type BoostingParams struct {
	InitScore    float64      `json:"initScore"`
	LearningRate float64      `json:"learningRate"`
	Trees        []TreeParams `json:"trees"`
}

// BundleStore is the opaque key -> bundle persistence collaborator.
// The predictor's save/restore operations are defined purely in its terms.
type BundleStore interface {
	Put(ctx context.Context, tenantID string, key string, bundle *ModelBundle) error

	// Get returns nil, ErrNotFound when the key is absent.
	Get(ctx context.Context, tenantID string, key string) (*ModelBundle, error)

	Exists(ctx context.Context, tenantID string, key string) (bool, error)

	Close() error
}
