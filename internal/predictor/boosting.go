package predictor

import (
	"math"
	"math/rand"

	"github.com/opensource-finance/harrier/internal/domain"
)

// trainBoosting fits a gradient-boosted ensemble with logistic loss.
// Each round fits a shallow regression tree to the residuals y - p and
// applies a shrunken Newton step.
func trainBoosting(X [][]float64, y []int, cfg domain.TrainingConfig, rng *rand.Rand) *domain.BoostingParams {
	n := len(X)
	pos := 0
	for _, v := range y {
		pos += v
	}
	// log-odds prior; both classes are guaranteed present by the caller
	p0 := float64(pos) / float64(n)
	boost := &domain.BoostingParams{
		InitScore:    math.Log(p0 / (1 - p0)),
		LearningRate: cfg.LearningRate,
		Trees:        make([]domain.TreeParams, 0, cfg.BoostingRounds),
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = boost.InitScore
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	for round := 0; round < cfg.BoostingRounds; round++ {
		for i := range scores {
			p := sigmoid(scores[i])
			grad[i] = float64(y[i]) - p
			hess[i] = p * (1 - p)
		}

		builder := &treeBuilder{
			maxDepth: cfg.BoostingMaxDepth,
			minLeaf:  1,
			rng:      rng,
		}
		tree := builder.buildRegression(X, grad, hess, idx)
		boost.Trees = append(boost.Trees, tree)

		for i := range scores {
			scores[i] += cfg.LearningRate * evalTree(tree.Nodes, X[i])
		}
	}
	return boost
}

// boostingProbability runs the additive model and squashes to [0,1].
func boostingProbability(boost *domain.BoostingParams, x []float64) float64 {
	score := boost.InitScore
	for _, tree := range boost.Trees {
		score += boost.LearningRate * evalTree(tree.Nodes, x)
	}
	return sigmoid(score)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
