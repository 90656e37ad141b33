package predictor

import (
	"math/rand"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// treeBuilder grows CART trees into the flat serialized node form that
// model bundles carry.
type treeBuilder struct {
	maxDepth int
	minLeaf  int
	mtry     int // features considered per split; 0 means all
	rng      *rand.Rand
}

// buildClassification grows a gini-split tree over the index set. Leaves
// carry the positive-class fraction.
func (b *treeBuilder) buildClassification(X [][]float64, y []int, idx []int) domain.TreeParams {
	t := domain.TreeParams{}
	b.growClass(&t, X, y, idx, 0)
	return t
}

func (b *treeBuilder) growClass(t *domain.TreeParams, X [][]float64, y []int, idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	leafValue := float64(pos) / float64(len(idx))

	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf || pos == 0 || pos == len(idx) {
		return appendLeaf(t, leafValue)
	}

	feature, threshold, ok := b.bestClassSplit(X, y, idx)
	if !ok {
		return appendLeaf(t, leafValue)
	}

	left, right := partition(X, idx, feature, threshold)
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		return appendLeaf(t, leafValue)
	}

	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, domain.TreeNode{Feature: feature, Threshold: threshold})
	t.Nodes[node].Left = b.growClass(t, X, y, left, depth+1)
	t.Nodes[node].Right = b.growClass(t, X, y, right, depth+1)
	return node
}

// bestClassSplit scans candidate features for the split with the lowest
// weighted gini impurity.
func (b *treeBuilder) bestClassSplit(X [][]float64, y []int, idx []int) (int, float64, bool) {
	bestFeature, bestThreshold, bestScore := -1, 0.0, -1.0

	for _, j := range b.candidateFeatures(len(X[0])) {
		sorted := append([]int(nil), idx...)
		sort.Slice(sorted, func(a, c int) bool { return X[sorted[a]][j] < X[sorted[c]][j] })

		totalPos := 0
		for _, i := range sorted {
			totalPos += y[i]
		}
		n := len(sorted)

		leftPos := 0
		for k := 1; k < n; k++ {
			leftPos += y[sorted[k-1]]
			if X[sorted[k]][j] == X[sorted[k-1]][j] {
				continue
			}
			score := giniGain(k, leftPos, n, totalPos)
			if score > bestScore {
				bestScore = score
				bestFeature = j
				bestThreshold = (X[sorted[k]][j] + X[sorted[k-1]][j]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// giniGain scores a split of n rows (totalPos positive) into a left block
// of nl rows (leftPos positive). Higher is better.
func giniGain(nl, leftPos, n, totalPos int) float64 {
	nr := n - nl
	rightPos := totalPos - leftPos

	gini := func(count, pos int) float64 {
		p := float64(pos) / float64(count)
		return 1 - p*p - (1-p)*(1-p)
	}
	parent := gini(n, totalPos)
	children := float64(nl)/float64(n)*gini(nl, leftPos) +
		float64(nr)/float64(n)*gini(nr, rightPos)
	return parent - children
}

// buildRegression grows a squared-error tree over gradients. Leaves carry
// the Newton step sum(grad)/sum(hess).
func (b *treeBuilder) buildRegression(X [][]float64, grad, hess []float64, idx []int) domain.TreeParams {
	t := domain.TreeParams{}
	b.growReg(&t, X, grad, hess, idx, 0)
	return t
}

func (b *treeBuilder) growReg(t *domain.TreeParams, X [][]float64, grad, hess []float64, idx []int, depth int) int {
	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf {
		return appendLeaf(t, newtonStep(grad, hess, idx))
	}

	feature, threshold, ok := b.bestRegSplit(X, grad, idx)
	if !ok {
		return appendLeaf(t, newtonStep(grad, hess, idx))
	}

	left, right := partition(X, idx, feature, threshold)
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		return appendLeaf(t, newtonStep(grad, hess, idx))
	}

	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, domain.TreeNode{Feature: feature, Threshold: threshold})
	t.Nodes[node].Left = b.growReg(t, X, grad, hess, left, depth+1)
	t.Nodes[node].Right = b.growReg(t, X, grad, hess, right, depth+1)
	return node
}

// bestRegSplit maximizes the between-block sum-of-gradients score, which
// is equivalent to minimizing squared error of the fitted residuals.
func (b *treeBuilder) bestRegSplit(X [][]float64, grad []float64, idx []int) (int, float64, bool) {
	bestFeature, bestThreshold, bestScore := -1, 0.0, 0.0

	total := 0.0
	for _, i := range idx {
		total += grad[i]
	}
	n := len(idx)
	parent := total * total / float64(n)

	for _, j := range b.candidateFeatures(len(X[0])) {
		sorted := append([]int(nil), idx...)
		sort.Slice(sorted, func(a, c int) bool { return X[sorted[a]][j] < X[sorted[c]][j] })

		leftSum := 0.0
		for k := 1; k < n; k++ {
			leftSum += grad[sorted[k-1]]
			if X[sorted[k]][j] == X[sorted[k-1]][j] {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k) - parent
			if score > bestScore {
				bestScore = score
				bestFeature = j
				bestThreshold = (X[sorted[k]][j] + X[sorted[k-1]][j]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func newtonStep(grad, hess []float64, idx []int) float64 {
	g, h := 0.0, 0.0
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	if h < 1e-12 {
		return 0
	}
	return g / h
}

// candidateFeatures returns the feature subset considered for one split.
func (b *treeBuilder) candidateFeatures(dims int) []int {
	if b.mtry <= 0 || b.mtry >= dims {
		all := make([]int, dims)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(dims)[:b.mtry]
}

func partition(X [][]float64, idx []int, feature int, threshold float64) (left, right []int) {
	for _, i := range idx {
		if X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func appendLeaf(t *domain.TreeParams, value float64) int {
	t.Nodes = append(t.Nodes, domain.TreeNode{Leaf: true, Value: value})
	return len(t.Nodes) - 1
}

// evalTree walks a flat tree from the root for one feature row.
func evalTree(nodes []domain.TreeNode, x []float64) float64 {
	i := 0
	for !nodes[i].Leaf {
		if x[nodes[i].Feature] < nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return nodes[i].Value
}
