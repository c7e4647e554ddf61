package mls

import (
	"math"
	"sort"
)

//BestSplit contains results of the split selection algorithm.
type BestSplit struct {
	bestValue       float64 // impurity decrease of the chosen split
	parentImpurity  float64
	featureIndex    int
	threshold       float64
	validSplit      bool
	numberOfObjects int
}

//splitCriterion tracks the impurity of both sides of a split while samples are
//moved one by one from the right side to the left side.
type splitCriterion interface {
	reset(indices []int)
	moveLeft(p int)
	parentImpurity() float64
	pure() bool
	children() (left, right float64)
}

//varianceCriterion measures impurity as E[y^2] - E[y]^2 using running sums.
type varianceCriterion struct {
	y                 []float64
	n, nLeft          int
	sum, sum2         float64
	sumLeft, sumLeft2 float64
	min, max          float64
	parent            float64
}

func variance(n int, sum, sum2 float64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	v := sum2/float64(n) - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

func (c *varianceCriterion) reset(indices []int) {
	c.n, c.nLeft = len(indices), 0
	c.sum, c.sum2, c.sumLeft, c.sumLeft2 = 0, 0, 0, 0
	if len(indices) > 0 {
		c.min, c.max = c.y[indices[0]], c.y[indices[0]]
	}
	for _, p := range indices {
		c.sum += c.y[p]
		c.sum2 += c.y[p] * c.y[p]
		c.min = math.Min(c.min, c.y[p])
		c.max = math.Max(c.max, c.y[p])
	}
	c.parent = variance(c.n, c.sum, c.sum2)
}

func (c *varianceCriterion) moveLeft(p int) {
	c.nLeft++
	c.sumLeft += c.y[p]
	c.sumLeft2 += c.y[p] * c.y[p]
}

func (c *varianceCriterion) parentImpurity() float64 {
	return c.parent
}

//pure holds only when every target of the node is the same value.
func (c *varianceCriterion) pure() bool {
	return c.n == 0 || c.min == c.max
}

func (c *varianceCriterion) children() (left, right float64) {
	left = variance(c.nLeft, c.sumLeft, c.sumLeft2)
	right = variance(c.n-c.nLeft, c.sum-c.sumLeft, c.sum2-c.sumLeft2)
	return
}

//giniCriterion keeps per-label counts of both sides together with the sums of
//squared counts, so every move updates the Gini index in constant time.
type giniCriterion struct {
	labels                  []int
	countsLeft, countsRight []int
	n, nLeft                int
	sqLeft, sqRight         int
	parent                  float64
}

func newGiniCriterion(labels []int, classes int) *giniCriterion {
	return &giniCriterion{
		labels:      labels,
		countsLeft:  make([]int, classes),
		countsRight: make([]int, classes),
	}
}

func gini(n, sq int) float64 {
	if n == 0 {
		return 0
	}
	return 1 - float64(sq)/(float64(n)*float64(n))
}

func (c *giniCriterion) reset(indices []int) {
	for k := range c.countsLeft {
		c.countsLeft[k] = 0
		c.countsRight[k] = 0
	}
	for _, p := range indices {
		c.countsRight[c.labels[p]]++
	}
	c.n, c.nLeft = len(indices), 0
	c.sqLeft, c.sqRight = 0, 0
	for _, cnt := range c.countsRight {
		c.sqRight += cnt * cnt
	}
	c.parent = gini(c.n, c.sqRight)
}

func (c *giniCriterion) moveLeft(p int) {
	k := c.labels[p]
	c.sqRight -= 2*c.countsRight[k] - 1
	c.countsRight[k]--
	c.sqLeft += 2*c.countsLeft[k] + 1
	c.countsLeft[k]++
	c.nLeft++
}

func (c *giniCriterion) parentImpurity() float64 {
	return c.parent
}

func (c *giniCriterion) pure() bool {
	return c.sqRight == c.n*c.n
}

func (c *giniCriterion) children() (left, right float64) {
	return gini(c.nLeft, c.sqLeft), gini(c.n-c.nLeft, c.sqRight)
}

func (b *treeBuilder) criterion() splitCriterion {
	if b.params.Classification {
		return newGiniCriterion(b.labels, len(b.classes))
	}
	return &varianceCriterion{y: b.Y}
}

//candidateFeatures returns the features scanned at one node in ascending order.
func (b *treeBuilder) candidateFeatures() []int {
	if b.sampler == nil {
		return b.features
	}
	sampled := append([]int(nil), b.sampler.SampleFeatures(b.w)...)
	sort.Ints(sampled)
	return sampled
}

//columnArgsort orders indices by the value of feature q. Equal values keep
//their relative order.
func columnArgsort(X [][]float64, q int, indices []int) {
	sort.SliceStable(indices, func(i, j int) bool {
		return X[indices[i]][q] < X[indices[j]][q]
	})
}

//theBestSplit scans every candidate feature and returns the split with the largest
//impurity decrease. Only strictly positive decreases are accepted and the first
//feature wins a tie.
func (b *treeBuilder) theBestSplit(indices []int) BestSplit {
	n := len(indices)
	crit := b.criterion()
	crit.reset(indices)

	bestSplit := BestSplit{
		featureIndex:    -1,
		parentImpurity:  crit.parentImpurity(),
		numberOfObjects: n,
	}
	if n < 2 || crit.pure() {
		return bestSplit
	}

	sorted := make([]int, n)
	for _, q := range b.candidateFeatures() {
		copy(sorted, indices)
		columnArgsort(b.X, q, sorted)
		crit.reset(indices)

		for hInd := 0; hInd < n-1; hInd++ {
			crit.moveLeft(sorted[hInd])
			current, next := b.X[sorted[hInd]][q], b.X[sorted[hInd+1]][q]
			if current == next {
				continue
			}
			left, right := crit.children()
			nLeft := float64(hInd + 1)
			nRight := float64(n - hInd - 1)
			gain := bestSplit.parentImpurity - (nLeft*left+nRight*right)/float64(n)
			if gain > bestSplit.bestValue {
				bestSplit.bestValue = gain
				bestSplit.featureIndex = q
				bestSplit.threshold = midpoint(current, next)
				bestSplit.validSplit = true
			}
		}
	}
	return bestSplit
}

//midpoint separates two distinct neighbouring values. For adjacent floats the
//mean can round up to next, in that case the lower value is used.
func midpoint(current, next float64) float64 {
	thr := (current + next) / 2
	if thr >= next {
		return current
	}
	return thr
}
