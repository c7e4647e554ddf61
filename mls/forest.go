package mls

import (
	"math"
	"math/rand"
)

//ForestParams collect arguments required to construct a random forest.
//MaxFeatures == 0 selects floor(sqrt(p)) features per split.
type ForestParams struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Bootstrap       bool
	Seed            int64
	Classification  bool
}

//DefaultForestParams returns the defaults of a forest.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:     100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		Bootstrap:       true,
	}
}

func (params ForestParams) treeParams() TreeParams {
	return TreeParams{
		MaxDepth:        params.MaxDepth,
		MinSamplesSplit: params.MinSamplesSplit,
		Classification:  params.Classification,
	}
}

func (params ForestParams) validate() error {
	if params.NEstimators <= 0 {
		return invalidArgument("nEstimators must be > 0, got %d", params.NEstimators)
	}
	if params.MaxFeatures < 0 {
		return invalidArgument("maxFeatures must be >= 0, got %d", params.MaxFeatures)
	}
	return params.treeParams().validate()
}

//RandomForest is a bagged ensemble of decision trees.
type RandomForest struct {
	params      ForestParams
	rng         *rand.Rand
	trees       []*DecisionTree
	nFeatures   int
	maxFeatures int
	fitted      bool
}

//NewRandomForest creates an unfitted forest.
func NewRandomForest(params ForestParams) (*RandomForest, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &RandomForest{
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}, nil
}

//Params returns the hyperparameters of the forest.
func (forest *RandomForest) Params() ForestParams {
	return forest.params
}

//Name implements Model.
func (forest *RandomForest) Name() string {
	return "Random Forest"
}

//Fitted reports whether FitRows has succeeded.
func (forest *RandomForest) Fitted() bool {
	return forest.fitted
}

//Trees returns the fitted trees in build order.
func (forest *RandomForest) Trees() []*DecisionTree {
	return forest.trees
}

//ResolvedMaxFeatures is the number of features scanned per split in the last fit.
func (forest *RandomForest) ResolvedMaxFeatures() int {
	return forest.maxFeatures
}

//resolveMaxFeatures maps 0 to floor(sqrt(p)) and clamps the result to [1, p].
func resolveMaxFeatures(maxFeatures, p int) int {
	k := maxFeatures
	if k == 0 {
		k = int(math.Floor(math.Sqrt(float64(p))))
	}
	if k < 1 {
		k = 1
	}
	if k > p {
		k = p
	}
	return k
}

//randomSubspace draws k distinct features for every split search.
type randomSubspace struct {
	rng *rand.Rand
	k   int
}

func (s randomSubspace) SampleFeatures(nFeatures int) []int {
	if s.k >= nFeatures {
		all := make([]int, nFeatures)
		for q := range all {
			all[q] = q
		}
		return all
	}
	return s.rng.Perm(nFeatures)[:s.k]
}

//FitRows builds NEstimators trees, each on a bootstrap resample or on the full data.
func (forest *RandomForest) FitRows(X [][]float64, Y []float64) error {
	w, err := validateRows(X, Y)
	if err != nil {
		return err
	}

	forest.rng = rand.New(rand.NewSource(forest.params.Seed))
	maxFeatures := resolveMaxFeatures(forest.params.MaxFeatures, w)
	sampler := randomSubspace{rng: forest.rng, k: maxFeatures}

	n := len(X)
	trees := make([]*DecisionTree, 0, forest.params.NEstimators)
	for stage := 0; stage < forest.params.NEstimators; stage++ {
		sampleX, sampleY := X, Y
		if forest.params.Bootstrap {
			sampleX = make([][]float64, n)
			sampleY = make([]float64, n)
			for p := 0; p < n; p++ {
				ind := forest.rng.Intn(n)
				sampleX[p] = X[ind]
				sampleY[p] = Y[ind]
			}
		}

		tree, err := NewDecisionTree(forest.params.treeParams())
		if err != nil {
			return err
		}
		tree.SetFeatureSampler(sampler)
		if err = tree.FitRows(sampleX, sampleY); err != nil {
			return err
		}
		trees = append(trees, tree)
	}

	forest.trees = trees
	forest.nFeatures = w
	forest.maxFeatures = maxFeatures
	forest.fitted = true
	return nil
}

//Fit implements Model.
func (forest *RandomForest) Fit(values []float64, columns []string, targets []float64) error {
	return fitTable(forest, values, columns, targets)
}

//Predict implements Model.
func (forest *RandomForest) Predict(values []float64, columns []string) ([]float64, error) {
	return predictTable(forest, forest.nFeatures, values, columns)
}

//PredictRow averages the trees for regression and takes a majority vote over rounded
//tree outputs for classification. Vote ties go to the smallest label.
func (forest *RandomForest) PredictRow(x []float64) (float64, error) {
	if !forest.fitted {
		return 0, ErrNotFitted
	}
	if len(x) != forest.nFeatures {
		return 0, dimensionMismatch(len(x), forest.nFeatures)
	}

	if !forest.params.Classification {
		s := 0.0
		for _, tree := range forest.trees {
			s += tree.predict(x)
		}
		return s / float64(len(forest.trees)), nil
	}

	votes := make(map[float64]int)
	for _, tree := range forest.trees {
		votes[math.Round(tree.predict(x))]++
	}
	return majority(votes), nil
}

//majority returns the label with the most votes, the smallest label on a tie.
func majority(votes map[float64]int) float64 {
	first := true
	var best float64
	for label, count := range votes {
		if first || count > votes[best] || (count == votes[best] && label < best) {
			best = label
			first = false
		}
	}
	return best
}
