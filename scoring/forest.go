package scoring

import (
	"math/rand"
	"sort"

	"github.com/poiesic/prodmatch/storage"
)

const (
	defaultTreeCount = 100

	// Growth limits. Depth is capped to keep persisted trees bounded;
	// with the small per-node sample counts reached at this depth the
	// cap has no measurable effect on accuracy.
	maxTreeDepth    = 16
	minSamplesSplit = 2
)

// forest is a random-forest regressor over fixed-length feature vectors.
// Trees are grown on bootstrap resamples of the training matrix and
// predictions are averaged.
type forest struct {
	trees        []tree
	featureCount int
}

// tree is a regression tree in flattened array form; node 0 is the root.
type tree struct {
	nodes []treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// fitForest grows treeCount trees on bootstrap resamples of the samples.
// The rng drives bootstrap sampling only; tree growth itself is
// deterministic, so a fixed seed makes training reproducible.
func fitForest(samples [][]float64, labels []float64, featureCount, treeCount int, rng *rand.Rand) *forest {
	if treeCount <= 0 {
		treeCount = defaultTreeCount
	}

	f := &forest{
		trees:        make([]tree, 0, treeCount),
		featureCount: featureCount,
	}

	n := len(samples)
	for t := 0; t < treeCount; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, growTree(samples, labels, indices))
	}

	return f
}

// predict averages the per-tree predictions for a scaled feature vector.
func (f *forest) predict(features []float64) float64 {
	if len(f.trees) == 0 {
		return 0.0
	}
	sum := 0.0
	for i := range f.trees {
		sum += f.trees[i].predict(features)
	}
	return sum / float64(len(f.trees))
}

// score returns the coefficient of determination (R squared) of the
// forest's predictions against the given labels. A label set with zero
// variance scores 0.
func (f *forest) score(samples [][]float64, labels []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	mean := 0.0
	for _, y := range labels {
		mean += y
	}
	mean /= float64(len(labels))

	var ssRes, ssTot float64
	for i, sample := range samples {
		pred := f.predict(sample)
		ssRes += (labels[i] - pred) * (labels[i] - pred)
		ssTot += (labels[i] - mean) * (labels[i] - mean)
	}
	if ssTot == 0 {
		return 0.0
	}
	return 1.0 - ssRes/ssTot
}

func (t *tree) predict(features []float64) float64 {
	idx := 0
	for {
		node := &t.nodes[idx]
		if node.leaf {
			return node.value
		}
		if features[node.feature] <= node.threshold {
			idx = node.left
		} else {
			idx = node.right
		}
	}
}

// growTree builds a regression tree over the bootstrap sample referenced
// by indices, splitting greedily on the variance-minimizing (feature,
// threshold) pair.
func growTree(samples [][]float64, labels []float64, indices []int) tree {
	t := tree{}
	t.grow(samples, labels, indices, 0)
	return t
}

func (t *tree) grow(samples [][]float64, labels []float64, indices []int, depth int) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{})

	mean := meanLabel(labels, indices)

	if depth >= maxTreeDepth || len(indices) < minSamplesSplit || isPure(labels, indices) {
		t.nodes[idx] = treeNode{value: mean, leaf: true}
		return idx
	}

	feature, threshold, ok := bestSplit(samples, labels, indices)
	if !ok {
		t.nodes[idx] = treeNode{value: mean, leaf: true}
		return idx
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if samples[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	left := t.grow(samples, labels, leftIdx, depth+1)
	right := t.grow(samples, labels, rightIdx, depth+1)
	t.nodes[idx] = treeNode{
		feature:   feature,
		threshold: threshold,
		left:      left,
		right:     right,
	}
	return idx
}

// bestSplit scans every feature for the threshold minimizing the weighted
// sum of child label variances. Thresholds are midpoints between adjacent
// distinct feature values. Returns ok=false when no split separates the
// sample.
func bestSplit(samples [][]float64, labels []float64, indices []int) (int, float64, bool) {
	featureCount := len(samples[indices[0]])
	n := len(indices)

	bestFeature, bestThreshold := -1, 0.0
	bestCost := -1.0

	order := make([]int, n)
	for feature := 0; feature < featureCount; feature++ {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool {
			return samples[order[a]][feature] < samples[order[b]][feature]
		})

		// Incremental left/right sums over the sorted order.
		var leftSum, leftSq float64
		rightSum, rightSq := 0.0, 0.0
		for _, i := range order {
			rightSum += labels[i]
			rightSq += labels[i] * labels[i]
		}

		for pos := 0; pos < n-1; pos++ {
			y := labels[order[pos]]
			leftSum += y
			leftSq += y * y
			rightSum -= y
			rightSq -= y * y

			cur := samples[order[pos]][feature]
			next := samples[order[pos+1]][feature]
			if cur == next {
				continue
			}

			nl := float64(pos + 1)
			nr := float64(n - pos - 1)
			cost := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if bestCost < 0 || cost < bestCost {
				bestCost = cost
				bestFeature = feature
				bestThreshold = (cur + next) / 2.0
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func meanLabel(labels []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, i := range indices {
		sum += labels[i]
	}
	return sum / float64(len(indices))
}

func isPure(labels []float64, indices []int) bool {
	first := labels[indices[0]]
	for _, i := range indices[1:] {
		if labels[i] != first {
			return false
		}
	}
	return true
}

// toModel converts the forest to its persisted form.
func (f *forest) toModel() storage.ForestModel {
	model := storage.ForestModel{
		Trees:        make([]storage.TreeModel, len(f.trees)),
		FeatureCount: f.featureCount,
	}
	for i := range f.trees {
		nodes := make([]storage.TreeNode, len(f.trees[i].nodes))
		for j, n := range f.trees[i].nodes {
			nodes[j] = storage.TreeNode{
				Feature:   n.feature,
				Threshold: n.threshold,
				Left:      n.left,
				Right:     n.right,
				Value:     n.value,
				Leaf:      n.leaf,
			}
		}
		model.Trees[i] = storage.TreeModel{Nodes: nodes}
	}
	return model
}

// forestFromModel restores a forest from its persisted form.
func forestFromModel(model storage.ForestModel) *forest {
	f := &forest{
		trees:        make([]tree, len(model.Trees)),
		featureCount: model.FeatureCount,
	}
	for i, tm := range model.Trees {
		nodes := make([]treeNode, len(tm.Nodes))
		for j, n := range tm.Nodes {
			nodes[j] = treeNode{
				feature:   n.Feature,
				threshold: n.Threshold,
				left:      n.Left,
				right:     n.Right,
				value:     n.Value,
				leaf:      n.Leaf,
			}
		}
		f.trees[i] = tree{nodes: nodes}
	}
	return f
}
