package predictor

import (
	"math"
	"math/rand"

	"github.com/opensource-finance/harrier/internal/domain"
)

// trainForest fits a bagged ensemble of gini trees. Each tree sees a
// bootstrap sample and considers sqrt(features) per split.
func trainForest(X [][]float64, y []int, cfg domain.TrainingConfig, rng *rand.Rand) *domain.ForestParams {
	n := len(X)
	mtry := int(math.Sqrt(float64(len(X[0]))))
	if mtry < 1 {
		mtry = 1
	}

	forest := &domain.ForestParams{Trees: make([]domain.TreeParams, 0, cfg.ForestTrees)}
	for t := 0; t < cfg.ForestTrees; t++ {
		builder := &treeBuilder{
			maxDepth: cfg.ForestMaxDepth,
			minLeaf:  1,
			mtry:     mtry,
			rng:      rng,
		}
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		forest.Trees = append(forest.Trees, builder.buildClassification(X, y, sample))
	}
	return forest
}

// forestProbability averages the leaf positive-class fractions.
func forestProbability(forest *domain.ForestParams, x []float64) float64 {
	if len(forest.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, tree := range forest.Trees {
		sum += evalTree(tree.Nodes, x)
	}
	return sum / float64(len(forest.Trees))
}
