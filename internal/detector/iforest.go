package detector

import (
	"math"
	"math/rand"
)

// isolationForest is an unsupervised outlier scorer (Liu et al.). Each tree
// isolates points by random axis-aligned splits; points that isolate in few
// splits score close to 1, dense inliers score close to 0.5 or below.
type isolationForest struct {
	trees     []*isoNode
	psi       int // subsample size per tree
	heightCap int
	rng       *rand.Rand
}

type isoNode struct {
	feature   int
	threshold float64
	left      *isoNode
	right     *isoNode
	size      int // external node: points that ended here at fit time
}

func newIsolationForest(treeCount, sampleSize int, seed int64) *isolationForest {
	return &isolationForest{
		trees: make([]*isoNode, 0, treeCount),
		psi:   sampleSize,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// fit grows the ensemble over X. Each tree sees a random subsample of at
// most psi rows and is height-limited to ceil(log2(psi)).
func (f *isolationForest) fit(X [][]float64, treeCount int) {
	n := len(X)
	if f.psi > n {
		f.psi = n
	}
	f.heightCap = int(math.Ceil(math.Log2(float64(f.psi))))
	if f.heightCap < 1 {
		f.heightCap = 1
	}

	for t := 0; t < treeCount; t++ {
		idx := f.rng.Perm(n)[:f.psi]
		sample := make([][]float64, f.psi)
		for i, j := range idx {
			sample[i] = X[j]
		}
		f.trees = append(f.trees, f.grow(sample, 0))
	}
}

func (f *isolationForest) grow(sample [][]float64, depth int) *isoNode {
	if depth >= f.heightCap || len(sample) <= 1 {
		return &isoNode{size: len(sample)}
	}

	dims := len(sample[0])
	feature, lo, hi := -1, 0.0, 0.0
	// pick a random feature with spread; give up after a few draws
	for attempt := 0; attempt < dims; attempt++ {
		j := f.rng.Intn(dims)
		jLo, jHi := sample[0][j], sample[0][j]
		for _, row := range sample[1:] {
			if row[j] < jLo {
				jLo = row[j]
			}
			if row[j] > jHi {
				jHi = row[j]
			}
		}
		if jHi > jLo {
			feature, lo, hi = j, jLo, jHi
			break
		}
	}
	if feature < 0 {
		return &isoNode{size: len(sample)}
	}

	threshold := lo + f.rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < threshold {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(sample)}
	}

	return &isoNode{
		feature:   feature,
		threshold: threshold,
		left:      f.grow(left, depth+1),
		right:     f.grow(right, depth+1),
	}
}

// score returns the anomaly score s(x) = 2^(-E(h(x))/c(psi)) in (0,1).
func (f *isolationForest) score(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	total := 0.0
	for _, root := range f.trees {
		total += pathLength(root, x, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/avgPathLength(f.psi))
}

func pathLength(node *isoNode, x []float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if x[node.feature] < node.threshold {
		return pathLength(node.left, x, depth+1)
	}
	return pathLength(node.right, x, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + 0.5772156649
		return 2*h - 2*float64(n-1)/float64(n)
	}
}
