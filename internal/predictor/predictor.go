// Package predictor trains supervised laundering classifiers and serves
// predictions from the active model bundle. Training fits a random forest
// and a gradient-boosted ensemble on labeled transactions, evaluates both
// on a stratified held-out split, and keeps the better F1. The active
// bundle is an immutable snapshot; a new training run swaps it wholesale.
package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Prediction is the risk verdict for one transaction.
type Prediction struct {
	TxID         string  `json:"txId"`
	Suspicious   bool    `json:"suspicious"`
	Probability  float64 `json:"probability"`
	RiskScore    float64 `json:"riskScore"`    // probability on [0,100]
	RiskCategory string  `json:"riskCategory"` // LOW/MEDIUM/HIGH via the scoring thresholds
}

// Predictor owns the active model and the training pipeline.
type Predictor struct {
	cfg     domain.TrainingConfig
	scoring domain.ScoringConfig
	store   domain.BundleStore
	logger  *slog.Logger

	mu     sync.RWMutex
	active *domain.ModelBundle
}

// New creates a Predictor backed by the given bundle store.
func New(cfg domain.TrainingConfig, scoring domain.ScoringConfig, store domain.BundleStore, logger *slog.Logger) *Predictor {
	return &Predictor{cfg: cfg, scoring: scoring, store: store, logger: logger}
}

// Trained reports whether an active model is available.
func (p *Predictor) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active != nil
}

// ActiveReport returns the training report of the active model, or nil.
func (p *Predictor) ActiveReport() *domain.TrainingReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.active == nil {
		return nil
	}
	return p.active.Report
}

// Train fits both candidate classifiers on the labeled subset of txs and
// activates the better one. A failed run leaves any previous model intact.
func (p *Predictor) Train(ctx context.Context, tenantID string, txs []*domain.Transaction) (*domain.TrainingReport, error) {
	labeled := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Labeled() {
			labeled = append(labeled, tx)
		}
	}
	if len(labeled) < p.cfg.MinRows {
		return nil, fmt.Errorf("%w: %d labeled rows, need %d", domain.ErrInsufficientData, len(labeled), p.cfg.MinRows)
	}

	y := make([]int, len(labeled))
	pos := 0
	for i, tx := range labeled {
		y[i] = *tx.Label
		pos += y[i]
	}
	if pos == 0 || pos == len(labeled) {
		return nil, fmt.Errorf("%w: training set is single-class", domain.ErrInsufficientData)
	}

	encoders := fitEncoders(labeled)
	senderFreq, receiverFreq := accountFrequencies(labeled)
	X := make([][]float64, len(labeled))
	for i, tx := range labeled {
		X[i] = featureRow(tx, senderFreq[tx.SenderAccount], receiverFreq[tx.ReceiverAccount],
			encoders, p.scoring.StructuringMin, p.scoring.StructuringMax)
	}

	rng := rand.New(rand.NewSource(p.cfg.Seed))
	trainIdx, testIdx := stratifiedSplit(y, p.cfg.TestSize, rng)
	if len(testIdx) == 0 || !bothClasses(y, trainIdx) {
		return nil, fmt.Errorf("%w: split left a single-class training set", domain.ErrInsufficientData)
	}

	scaler := fitScaler(rows(X, trainIdx))
	Xs := scaler.transformAll(X)
	trainX, trainY := rows(Xs, trainIdx), labels(y, trainIdx)
	testX, testY := rows(Xs, testIdx), labels(y, testIdx)

	forest := trainForest(trainX, trainY, p.cfg, rng)
	boost := trainBoosting(trainX, trainY, p.cfg, rng)

	report := &domain.TrainingReport{
		Candidates: map[string]domain.ModelMetrics{
			domain.ClassifierRandomForest: evaluate(testX, testY, func(x []float64) float64 {
				return forestProbability(forest, x)
			}),
			domain.ClassifierGradientBoosting: evaluate(testX, testY, func(x []float64) float64 {
				return boostingProbability(boost, x)
			}),
		},
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
		TrainedAt: time.Now().UTC(),
	}

	classifier := domain.ClassifierBundle{Kind: domain.ClassifierRandomForest, Forest: forest}
	if report.Candidates[domain.ClassifierGradientBoosting].F1 > report.Candidates[domain.ClassifierRandomForest].F1 {
		classifier = domain.ClassifierBundle{Kind: domain.ClassifierGradientBoosting, Boosting: boost}
	}
	report.Selected = classifier.Kind

	bundle := &domain.ModelBundle{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		CreatedAt:    report.TrainedAt,
		Report:       report,
		FeatureNames: featureNames(),
		Encoders:     encoders,
		ScalerMeans:  scaler.means,
		ScalerStds:   scaler.stds,
		Classifier:   classifier,
	}

	p.mu.Lock()
	p.active = bundle
	p.mu.Unlock()

	p.logger.Info("model training completed",
		"tenant_id", tenantID,
		"selected", report.Selected,
		"f1", report.Candidates[report.Selected].F1,
		"train_rows", report.TrainRows,
		"test_rows", report.TestRows)

	return report, nil
}

// Predict scores one transaction against the active model. Unseen category
// values map to the reserved unknown bucket.
func (p *Predictor) Predict(ctx context.Context, tenantID string, tx *domain.Transaction) (*Prediction, error) {
	p.mu.RLock()
	bundle := p.active
	p.mu.RUnlock()
	if bundle == nil {
		return nil, domain.ErrModelNotTrained
	}

	// A standalone transaction has no dataset context, so both account
	// frequencies are 1.
	raw := featureRow(tx, 1, 1, bundle.Encoders, p.scoring.StructuringMin, p.scoring.StructuringMax)
	scaler := &standardScaler{means: bundle.ScalerMeans, stds: bundle.ScalerStds}
	x := scaler.transform(raw)

	var prob float64
	switch bundle.Classifier.Kind {
	case domain.ClassifierRandomForest:
		prob = forestProbability(bundle.Classifier.Forest, x)
	case domain.ClassifierGradientBoosting:
		prob = boostingProbability(bundle.Classifier.Boosting, x)
	default:
		return nil, fmt.Errorf("%w: unknown classifier kind %q", domain.ErrModelNotTrained, bundle.Classifier.Kind)
	}

	score := prob * 100
	return &Prediction{
		TxID:         tx.ID,
		Suspicious:   prob >= 0.5,
		Probability:  prob,
		RiskScore:    score,
		RiskCategory: domain.CategoryForScore(score, p.scoring.HighRiskThreshold, p.scoring.MediumRiskThreshold),
	}, nil
}

// Save persists the active bundle under the given key.
func (p *Predictor) Save(ctx context.Context, tenantID, key string) error {
	p.mu.RLock()
	bundle := p.active
	p.mu.RUnlock()
	if bundle == nil {
		return domain.ErrModelNotTrained
	}
	if err := p.store.Put(ctx, tenantID, key, bundle); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	p.logger.Info("model bundle saved", "tenant_id", tenantID, "key", key, "bundle_id", bundle.ID)
	return nil
}

// Restore loads a bundle and makes it the active model after validating
// that its feature list matches what feature engineering produces now.
func (p *Predictor) Restore(ctx context.Context, tenantID, key string) (*domain.TrainingReport, error) {
	bundle, err := p.store.Get(ctx, tenantID, key)
	if err != nil {
		return nil, fmt.Errorf("restore bundle: %w", err)
	}
	if err := validateFeatures(bundle.FeatureNames); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.active = bundle
	p.mu.Unlock()

	p.logger.Info("model bundle restored", "tenant_id", tenantID, "key", key, "bundle_id", bundle.ID)
	return bundle.Report, nil
}

// Exists reports whether a bundle is stored under the key, without loading it.
func (p *Predictor) Exists(ctx context.Context, tenantID, key string) (bool, error) {
	return p.store.Exists(ctx, tenantID, key)
}

func validateFeatures(names []string) error {
	current := featureNames()
	if len(names) != len(current) {
		return fmt.Errorf("%w: bundle has %d features, expected %d", domain.ErrFeatureMismatch, len(names), len(current))
	}
	for i := range names {
		if names[i] != current[i] {
			return fmt.Errorf("%w: feature %d is %q, expected %q", domain.ErrFeatureMismatch, i, names[i], current[i])
		}
	}
	return nil
}

// stratifiedSplit holds out testSize of each class, shuffled by rng.
func stratifiedSplit(y []int, testSize float64, rng *rand.Rand) (train, test []int) {
	var byClass [2][]int
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	for _, class := range byClass {
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		cut := int(float64(len(class)) * testSize)
		test = append(test, class[:cut]...)
		train = append(train, class[cut:]...)
	}
	return train, test
}

func bothClasses(y []int, idx []int) bool {
	seen := [2]bool{}
	for _, i := range idx {
		seen[y[i]] = true
	}
	return seen[0] && seen[1]
}

// evaluate computes binary classification metrics at the 0.5 threshold.
func evaluate(X [][]float64, y []int, prob func([]float64) float64) domain.ModelMetrics {
	var tp, tn, fp, fn float64
	for i, x := range X {
		pred := 0
		if prob(x) >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && y[i] == 1:
			tp++
		case pred == 0 && y[i] == 0:
			tn++
		case pred == 1 && y[i] == 0:
			fp++
		default:
			fn++
		}
	}

	m := domain.ModelMetrics{}
	total := tp + tn + fp + fn
	if total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func labels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
