package mls

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

//NoChild is the child index stored in both links of a leaf.
const NoChild = -1

//TreeNode is a node of a tree. Tree is stored in an array and node 0 is the root.
//Left and Right are equal to NoChild when the node is a leaf, otherwise they contain
//array indices of children. Value is only meaningful for leaves.
type TreeNode struct {
	Feature         int
	Threshold       float64
	Left, Right     int
	IsLeaf          bool
	Value           float64
	NumberOfObjects int
	Impurity        float64
}

//GraphDescription returns the description of a tree node for tree rendering as a graph
func (node TreeNode) GraphDescription() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("#", node.NumberOfObjects))
	sb.WriteString(fmt.Sprintf("impurity: %.4g\n", node.Impurity))
	if node.IsLeaf {
		sb.WriteString(fmt.Sprintf("value: %.4g", node.Value))
	} else {
		sb.WriteString(fmt.Sprintf("f_%d <= %6.5f", node.Feature, node.Threshold))
	}
	return sb.String()
}

func newTreeNode() TreeNode {
	return TreeNode{Feature: -1, Left: NoChild, Right: NoChild}
}

//TreeParams collect arguments required to construct a decision tree.
type TreeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	Classification  bool
}

//DefaultTreeParams returns the defaults of a standalone tree.
func DefaultTreeParams() TreeParams {
	return TreeParams{MaxDepth: 10, MinSamplesSplit: 2}
}

func (params TreeParams) validate() error {
	if params.MaxDepth <= 0 {
		return invalidArgument("maxDepth must be > 0, got %d", params.MaxDepth)
	}
	if params.MinSamplesSplit < 2 {
		return invalidArgument("minSamplesSplit must be >= 2, got %d", params.MinSamplesSplit)
	}
	return nil
}

//A FeatureSampler chooses the candidate features of one split search.
//It must return distinct indices in [0, nFeatures).
type FeatureSampler interface {
	SampleFeatures(nFeatures int) []int
}

//DecisionTree is a CART tree grown by impurity-minimizing binary splits.
type DecisionTree struct {
	params    TreeParams
	sampler   FeatureSampler
	nodes     []TreeNode
	nFeatures int
	fitted    bool
}

//NewDecisionTree creates an unfitted tree.
func NewDecisionTree(params TreeParams) (*DecisionTree, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &DecisionTree{params: params}, nil
}

//SetFeatureSampler restricts every split search to the features the sampler returns.
//A nil sampler means all features.
func (tree *DecisionTree) SetFeatureSampler(sampler FeatureSampler) {
	tree.sampler = sampler
}

//Params returns the hyperparameters of the tree.
func (tree *DecisionTree) Params() TreeParams {
	return tree.params
}

//Name implements Model.
func (tree *DecisionTree) Name() string {
	return "Decision Tree"
}

//Fitted reports whether FitRows has succeeded.
func (tree *DecisionTree) Fitted() bool {
	return tree.fitted
}

//NFeatures is the feature width seen by the last fit.
func (tree *DecisionTree) NFeatures() int {
	return tree.nFeatures
}

//Nodes returns a copy of the node arena.
func (tree *DecisionTree) Nodes() []TreeNode {
	return append([]TreeNode(nil), tree.nodes...)
}

//NodeCount is the number of allocated nodes.
func (tree *DecisionTree) NodeCount() int {
	return len(tree.nodes)
}

//Depth is the number of edges on the longest root-to-leaf path.
func (tree *DecisionTree) Depth() int {
	if len(tree.nodes) == 0 {
		return 0
	}
	var walk func(ind int) int
	walk = func(ind int) int {
		node := tree.nodes[ind]
		if node.IsLeaf {
			return 0
		}
		l, r := walk(node.Left), walk(node.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

//FitRows grows the tree from scratch. On error the previous state is kept.
func (tree *DecisionTree) FitRows(X [][]float64, Y []float64) error {
	w, err := validateRows(X, Y)
	if err != nil {
		return err
	}

	builder := newTreeBuilder(X, Y, w, tree.params, tree.sampler)
	root := builder.newNode()
	indices := make([]int, len(X))
	for p := range indices {
		indices[p] = p
	}
	builder.buildTree(indices, 0, root)

	tree.nodes = builder.nodes
	tree.nFeatures = w
	tree.fitted = true
	return nil
}

//Fit implements Model.
func (tree *DecisionTree) Fit(values []float64, columns []string, targets []float64) error {
	return fitTable(tree, values, columns, targets)
}

//Predict implements Model.
func (tree *DecisionTree) Predict(values []float64, columns []string) ([]float64, error) {
	return predictTable(tree, tree.nFeatures, values, columns)
}

//PredictRow traverses the tree from the root down to a leaf.
func (tree *DecisionTree) PredictRow(x []float64) (float64, error) {
	if !tree.fitted {
		return 0, ErrNotFitted
	}
	if len(x) != tree.nFeatures {
		return 0, dimensionMismatch(len(x), tree.nFeatures)
	}
	return tree.predict(x), nil
}

//predict assumes a fitted tree and a row of the right width.
func (tree *DecisionTree) predict(x []float64) float64 {
	ind := 0
	for !tree.nodes[ind].IsLeaf {
		node := tree.nodes[ind]
		if x[node.Feature] <= node.Threshold {
			ind = node.Left
		} else {
			ind = node.Right
		}
		if ind < 0 || ind >= len(tree.nodes) {
			return tree.nodes[0].Value
		}
	}
	return tree.nodes[ind].Value
}

//treeBuilder holds the state of one fit call.
type treeBuilder struct {
	X        [][]float64
	Y        []float64
	w        int
	params   TreeParams
	sampler  FeatureSampler
	labels   []int     // dense label index per sample, classification only
	classes  []float64 // label values in ascending order
	nodes    []TreeNode
	features []int
}

func newTreeBuilder(X [][]float64, Y []float64, w int, params TreeParams, sampler FeatureSampler) *treeBuilder {
	b := &treeBuilder{X: X, Y: Y, w: w, params: params, sampler: sampler}
	if params.Classification {
		b.labels, b.classes = encodeLabels(Y)
	}
	b.features = make([]int, w)
	for q := range b.features {
		b.features[q] = q
	}
	return b
}

//encodeLabels rounds targets to integer labels and maps them to dense indices
//ordered by label value.
func encodeLabels(Y []float64) (labels []int, classes []float64) {
	seen := make(map[float64]bool)
	for _, y := range Y {
		label := math.Round(y)
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Float64s(classes)
	index := make(map[float64]int, len(classes))
	for ind, label := range classes {
		index[label] = ind
	}
	labels = make([]int, len(Y))
	for p, y := range Y {
		labels[p] = index[math.Round(y)]
	}
	return labels, classes
}

//newNode creates an empty node and returns its index.
func (b *treeBuilder) newNode() int {
	b.nodes = append(b.nodes, newTreeNode())
	return len(b.nodes) - 1
}

//buildTree recurrently builds the node nodeIndex from the samples in indices.
func (b *treeBuilder) buildTree(indices []int, depth, nodeIndex int) {
	b.nodes[nodeIndex].NumberOfObjects = len(indices)
	if depth >= b.params.MaxDepth || len(indices) < b.params.MinSamplesSplit {
		b.makeLeaf(nodeIndex, indices)
		return
	}

	split := b.theBestSplit(indices)
	b.nodes[nodeIndex].Impurity = split.parentImpurity
	if !split.validSplit {
		b.makeLeaf(nodeIndex, indices)
		return
	}

	leftIndices, rightIndices := b.partition(indices, split.featureIndex, split.threshold)

	left := b.newNode()
	right := b.newNode()
	node := &b.nodes[nodeIndex]
	node.Feature = split.featureIndex
	node.Threshold = split.threshold
	node.Left = left
	node.Right = right
	node.IsLeaf = false

	b.buildTree(leftIndices, depth+1, left)
	b.buildTree(rightIndices, depth+1, right)
}

//partition keeps the relative order of indices on both sides.
func (b *treeBuilder) partition(indices []int, feature int, threshold float64) (left, right []int) {
	left = make([]int, 0, len(indices))
	right = make([]int, 0, len(indices))
	for _, p := range indices {
		if b.X[p][feature] <= threshold {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	return left, right
}

func (b *treeBuilder) makeLeaf(nodeIndex int, indices []int) {
	node := &b.nodes[nodeIndex]
	node.IsLeaf = true
	node.Feature = -1
	node.Threshold = 0
	node.Left, node.Right = NoChild, NoChild
	node.Value = b.leafValue(indices)
}

//leafValue is the majority label (ties go to the smallest label) for classification
//and the mean target for regression. An empty leaf predicts 0.
func (b *treeBuilder) leafValue(indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	if b.params.Classification {
		counts := make([]int, len(b.classes))
		for _, p := range indices {
			counts[b.labels[p]]++
		}
		return b.classes[argmaxInt(counts)]
	}
	s := 0.0
	for _, p := range indices {
		s += b.Y[p]
	}
	return s / float64(len(indices))
}

//argmaxInt returns the first index holding the maximum.
func argmaxInt(values []int) int {
	best := 0
	for ind, v := range values {
		if v > values[best] {
			best = ind
		}
	}
	return best
}
