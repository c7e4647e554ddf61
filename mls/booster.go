package mls

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const probabilityClamp = 1e-6

//EvalSet is a monitored dataset. After every boosting round the ensemble is scored on it
//and the value is appended to the learning curve.
type EvalSet struct {
	Description string
	X           [][]float64
	Y           []float64
}

//BoosterParams collect arguments required to construct a booster.
//Gamma and Regularization are stored and reported but do not change training.
type BoosterParams struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	SubsampleRatio float64
	Gamma          float64
	Regularization string
	Classification bool
	Seed           int64
	EvalSets       []EvalSet
}

//DefaultBoosterParams returns the defaults of a booster.
func DefaultBoosterParams() BoosterParams {
	return BoosterParams{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		SubsampleRatio: 1.0,
		Regularization: "L2",
		Seed:           42,
	}
}

func (params BoosterParams) validate() error {
	if params.SubsampleRatio <= 0 || params.SubsampleRatio > 1 {
		return invalidArgument("subsampleRatio must be in (0, 1], got %g", params.SubsampleRatio)
	}
	if params.NEstimators <= 0 {
		return invalidArgument("nEstimators must be > 0, got %d", params.NEstimators)
	}
	if params.MaxDepth <= 0 {
		return invalidArgument("maxDepth must be > 0, got %d", params.MaxDepth)
	}
	if params.LearningRate <= 0 {
		return invalidArgument("learningRate must be > 0, got %g", params.LearningRate)
	}
	return nil
}

//Booster is a gradient boosted ensemble of regression trees. Every tree is fitted to the
//residuals of the running prediction and added with the learning rate as a weight.
type Booster struct {
	params              BoosterParams
	rng                 *rand.Rand
	trees               []*DecisionTree
	bias                float64
	nFeatures           int
	fitted              bool
	learningCurves      [][]float64
	learningCurveTitles []string
}

//NewBooster creates an unfitted booster.
func NewBooster(params BoosterParams) (*Booster, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Booster{
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}, nil
}

//Params returns the hyperparameters of the booster.
func (booster *Booster) Params() BoosterParams {
	return booster.params
}

//Gamma is accepted for configuration compatibility only.
func (booster *Booster) Gamma() float64 {
	return booster.params.Gamma
}

//Regularization is accepted for configuration compatibility only.
func (booster *Booster) Regularization() string {
	return booster.params.Regularization
}

//Name implements Model.
func (booster *Booster) Name() string {
	return "XGBoost"
}

//Fitted reports whether FitRows has succeeded.
func (booster *Booster) Fitted() bool {
	return booster.fitted
}

//Trees returns the fitted trees in round order.
func (booster *Booster) Trees() []*DecisionTree {
	return booster.trees
}

//Bias is the initial score every prediction starts from.
func (booster *Booster) Bias() float64 {
	return booster.bias
}

//LearningCurves has one row per round and one column per eval set: RMSE for
//regression, log-loss for classification.
func (booster *Booster) LearningCurves() [][]float64 {
	return booster.learningCurves
}

//LearningCurveTitles are the descriptions of the eval sets.
func (booster *Booster) LearningCurveTitles() []string {
	return booster.learningCurveTitles
}

//LearningCurvesDense packs the learning curves into a rounds x eval sets matrix.
func (booster *Booster) LearningCurvesDense() (*mat.Dense, error) {
	if len(booster.learningCurves) == 0 || len(booster.learningCurveTitles) == 0 {
		return nil, invalidArgument("no learning curves were recorded")
	}
	curves := mat.NewDense(len(booster.learningCurves), len(booster.learningCurveTitles), nil)
	for p, row := range booster.learningCurves {
		curves.SetRow(p, row)
	}
	return curves, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampProbability(p, eps float64) float64 {
	return math.Max(eps, math.Min(1-eps, p))
}

//initialBias is the target mean for regression and the log-odds of the positive
//rate (y > 0.5) for classification.
func initialBias(Y []float64, classification bool) float64 {
	if !classification {
		return stat.Mean(Y, nil)
	}
	positive := 0
	for _, y := range Y {
		if y > 0.5 {
			positive++
		}
	}
	p := clampProbability(float64(positive)/float64(len(Y)), probabilityClamp)
	return math.Log(p / (1 - p))
}

//subsampleSize is ceil(ratio*n) clamped to [1, n].
func subsampleSize(ratio float64, n int) int {
	m := int(math.Ceil(ratio * float64(n)))
	if m < 1 {
		m = 1
	}
	if m > n {
		m = n
	}
	return m
}

func (booster *Booster) validateEvalSets(w int) error {
	for ind, evalSet := range booster.params.EvalSets {
		ew, err := validateRows(evalSet.X, evalSet.Y)
		if err != nil {
			return errors.Wrapf(err, "eval set %d (%s)", ind, evalSet.Description)
		}
		if ew != w {
			return errors.Wrapf(dimensionMismatch(ew, w), "eval set %d (%s)", ind, evalSet.Description)
		}
	}
	return nil
}

//FitRows runs NEstimators boosting rounds from scratch.
func (booster *Booster) FitRows(X [][]float64, Y []float64) error {
	w, err := validateRows(X, Y)
	if err != nil {
		return err
	}
	if err = booster.validateEvalSets(w); err != nil {
		return err
	}

	params := booster.params
	booster.rng = rand.New(rand.NewSource(params.Seed))
	n := len(X)
	bias := initialBias(Y, params.Classification)

	prediction := make([]float64, n)
	for p := range prediction {
		prediction[p] = bias
	}
	residuals := make([]float64, n)

	var titles []string
	evalScores := make([][]float64, len(params.EvalSets))
	for ind, evalSet := range params.EvalSets {
		titles = append(titles, evalSet.Description)
		evalScores[ind] = make([]float64, len(evalSet.Y))
		for p := range evalScores[ind] {
			evalScores[ind][p] = bias
		}
	}

	treeParams := TreeParams{MaxDepth: params.MaxDepth, MinSamplesSplit: 2}
	m := subsampleSize(params.SubsampleRatio, n)
	subX := make([][]float64, m)
	subY := make([]float64, m)

	trees := make([]*DecisionTree, 0, params.NEstimators)
	var learningCurves [][]float64
	for stage := 0; stage < params.NEstimators; stage++ {
		for p := range residuals {
			if params.Classification {
				residuals[p] = Y[p] - sigmoid(prediction[p])
			} else {
				residuals[p] = Y[p] - prediction[p]
			}
		}

		order := booster.rng.Perm(n)
		for p := 0; p < m; p++ {
			subX[p] = X[order[p]]
			subY[p] = residuals[order[p]]
		}

		tree, err := NewDecisionTree(treeParams)
		if err != nil {
			return err
		}
		if err = tree.FitRows(subX, subY); err != nil {
			return err
		}
		trees = append(trees, tree)

		for p, x := range X {
			prediction[p] += params.LearningRate * tree.predict(x)
		}

		if len(params.EvalSets) > 0 {
			learningCurveRow := make([]float64, len(params.EvalSets))
			for ind, evalSet := range params.EvalSets {
				for p, x := range evalSet.X {
					evalScores[ind][p] += params.LearningRate * tree.predict(x)
				}
				learningCurveRow[ind] = curveValue(evalScores[ind], evalSet.Y, params.Classification)
			}
			learningCurves = append(learningCurves, learningCurveRow)
		}
	}

	booster.trees = trees
	booster.bias = bias
	booster.nFeatures = w
	booster.learningCurves = learningCurves
	booster.learningCurveTitles = titles
	booster.fitted = true
	return nil
}

func curveValue(scores, targets []float64, classification bool) float64 {
	if classification {
		return logLoss(scores, targets)
	}
	return rmse(scores, targets)
}

func rmse(prediction, targets []float64) float64 {
	return floats.Distance(prediction, targets, 2) / math.Sqrt(float64(len(targets)))
}

//logLoss scores raw ensemble outputs against 0/1 targets.
func logLoss(scores, targets []float64) float64 {
	loss := 0.0
	for p, score := range scores {
		prob := clampProbability(sigmoid(score), 1e-15)
		if targets[p] > 0.5 {
			loss -= math.Log(prob)
		} else {
			loss -= math.Log(1 - prob)
		}
	}
	return loss / float64(len(scores))
}

//Fit implements Model.
func (booster *Booster) Fit(values []float64, columns []string, targets []float64) error {
	return fitTable(booster, values, columns, targets)
}

//Predict implements Model.
func (booster *Booster) Predict(values []float64, columns []string) ([]float64, error) {
	return predictTable(booster, booster.nFeatures, values, columns)
}

func (booster *Booster) score(x []float64) (float64, error) {
	if !booster.fitted {
		return 0, ErrNotFitted
	}
	if len(x) != booster.nFeatures {
		return 0, dimensionMismatch(len(x), booster.nFeatures)
	}
	s := booster.bias
	for _, tree := range booster.trees {
		s += booster.params.LearningRate * tree.predict(x)
	}
	return s, nil
}

//PredictRow returns the raw score for regression and a 0/1 label for classification.
func (booster *Booster) PredictRow(x []float64) (float64, error) {
	s, err := booster.score(x)
	if err != nil {
		return 0, err
	}
	if !booster.params.Classification {
		return s, nil
	}
	if sigmoid(s) >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

//PredictProba is the probability of the positive class. Only classification boosters have one.
func (booster *Booster) PredictProba(x []float64) (float64, error) {
	if !booster.params.Classification {
		return 0, errors.Wrap(ErrUnsupported, "probabilities of a regression booster")
	}
	s, err := booster.score(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(s), nil
}
