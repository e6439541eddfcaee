package ensemble

import (
	"math/rand"
	"sort"
)

const leaf = -1

// Node is one entry of a flattened regression tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree split on squared error.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type TreeParams struct {
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures > 0 samples that many candidate features per split.
	MaxFeatures int
}

func (t *Tree) Predict(x []float64) float64 {
	if t == nil || len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x      [][]float64
	y      []float64
	params TreeParams
	rng    *rand.Rand
	nodes  []Node
}

func fitTree(x [][]float64, y []float64, idx []int, params TreeParams, rng *rand.Rand) *Tree {
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	b := &treeBuilder{x: x, y: y, params: params, rng: rng}
	b.grow(append([]int(nil), idx...), 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: leaf, Right: leaf, Value: b.mean(idx)})

	if depth >= b.params.MaxDepth || len(idx) < 2*b.params.MinSamplesLeaf {
		return id
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	s := 0.0
	for _, i := range idx {
		s += b.y[i]
	}
	return s / float64(len(idx))
}

func (b *treeBuilder) candidates() []int {
	p := len(b.x[0])
	if b.params.MaxFeatures <= 0 || b.params.MaxFeatures >= p {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(p)[:b.params.MaxFeatures]
}

// bestSplit scans every midpoint between distinct sorted values and keeps the
// largest reduction in summed squared error that leaves MinSamplesLeaf on each side.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf

	total := 0.0
	for _, i := range idx {
		total += b.y[i]
	}
	parentScore := total * total / float64(n)

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0
	order := make([]int, n)

	for _, f := range b.candidates() {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })

		leftSum := 0.0
		for k := 0; k < n-1; k++ {
			leftSum += b.y[order[k]]
			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := b.x[order[k]][f], b.x[order[k+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if gain := score - parentScore; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
