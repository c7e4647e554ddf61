package mls

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

//KFold shuffles 0..n-1 and cuts the permutation into k folds of n/k indices; the last
//fold also takes the remainder.
func KFold(n, k int, rng *rand.Rand) ([][]int, error) {
	if k < 2 {
		return nil, invalidArgument("at least 2 folds are required, got %d", k)
	}
	if n < k {
		return nil, invalidArgument("%d samples can not be split into %d folds", n, k)
	}
	order := rng.Perm(n)
	foldSize := n / k
	folds := make([][]int, k)
	for fold := 0; fold < k; fold++ {
		start := fold * foldSize
		end := start + foldSize
		if fold == k-1 {
			end = n
		}
		folds[fold] = order[start:end:end]
	}
	return folds, nil
}

//SearchParams control the random search.
type SearchParams struct {
	Iterations     int
	Folds          int
	Seed           int64
	Classification bool
}

//DefaultSearchParams returns 20 iterations of 5-fold CV seeded with 42.
func DefaultSearchParams() SearchParams {
	return SearchParams{Iterations: 20, Folds: 5, Seed: 42}
}

//SearchResult is the outcome of a random search. Scores holds the validation score of
//every (iteration, fold) pair; lower is better.
type SearchResult struct {
	Model      Learner
	BestScore  float64
	BestParams ModelConfig
	Candidates []ModelConfig
	Scores     *tensor.Dense
}

//MeanScores averages the fold scores of every iteration.
func (sr SearchResult) MeanScores() ([]float64, error) {
	shape := sr.Scores.Shape()
	means := make([]float64, shape[0])
	for it := range means {
		for fold := 0; fold < shape[1]; fold++ {
			v, err := sr.Scores.At(it, fold)
			if err != nil {
				return nil, err
			}
			means[it] += v.(float64)
		}
		means[it] /= float64(shape[1])
	}
	return means, nil
}

func logf(logger *log.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

//gridPicker draws one value per hyperparameter list.
type gridPicker struct {
	rng  *rand.Rand
	grid [][]string
}

func (gp gridPicker) pick(list int) string {
	values := gp.grid[list]
	return values[gp.rng.Intn(len(values))]
}

func (gp gridPicker) pickInt(list int, name string) (int, error) {
	raw := gp.pick(list)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidArgument("%s: %q is not an integer", name, raw)
	}
	return v, nil
}

func (gp gridPicker) pickFloat(list int, name string) (float64, error) {
	raw := gp.pick(list)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalidArgument("%s: %q is not a number", name, raw)
	}
	return v, nil
}

//searchGrids lists the hyperparameters each searchable kind expects, in grid order.
var searchGrids = map[string][]string{
	KindRandomForest: {"n_estimators", "max_depth", "min_samples_split"},
	KindBooster:      {"n_estimators", "learning_rate", "max_depth", "subsample_ratio", "gamma", "regularization"},
}

//candidate draws one configuration. Values the model constructors would reject are
//errors here, since a zero in ModelConfig would silently select a default.
func (gp gridPicker) candidate(kind string, classification bool) (cfg ModelConfig, err error) {
	cfg.Classification = classification
	if cfg.NEstimators, err = gp.pickInt(0, "n_estimators"); err != nil {
		return
	}
	if cfg.NEstimators <= 0 {
		return cfg, invalidArgument("n_estimators must be > 0, got %d", cfg.NEstimators)
	}
	if kind == KindRandomForest {
		if cfg.MaxDepth, err = gp.pickInt(1, "max_depth"); err != nil {
			return
		}
		if cfg.MinSamplesSplit, err = gp.pickInt(2, "min_samples_split"); err != nil {
			return
		}
		if cfg.MaxDepth <= 0 {
			return cfg, invalidArgument("max_depth must be > 0, got %d", cfg.MaxDepth)
		}
		if cfg.MinSamplesSplit < 2 {
			return cfg, invalidArgument("min_samples_split must be >= 2, got %d", cfg.MinSamplesSplit)
		}
		return cfg, nil
	}
	if cfg.LearningRate, err = gp.pickFloat(1, "learning_rate"); err != nil {
		return
	}
	if cfg.MaxDepth, err = gp.pickInt(2, "max_depth"); err != nil {
		return
	}
	if cfg.SubsampleRatio, err = gp.pickFloat(3, "subsample_ratio"); err != nil {
		return
	}
	if cfg.Gamma, err = gp.pickFloat(4, "gamma"); err != nil {
		return
	}
	cfg.Regularization = gp.pick(5)
	if cfg.LearningRate <= 0 {
		return cfg, invalidArgument("learning_rate must be > 0, got %g", cfg.LearningRate)
	}
	if cfg.MaxDepth <= 0 {
		return cfg, invalidArgument("max_depth must be > 0, got %d", cfg.MaxDepth)
	}
	if cfg.SubsampleRatio <= 0 || cfg.SubsampleRatio > 1 {
		return cfg, invalidArgument("subsample_ratio must be in (0, 1], got %g", cfg.SubsampleRatio)
	}
	return cfg, nil
}

func describe(kind string, cfg ModelConfig) string {
	if kind == KindRandomForest {
		return fmt.Sprintf("n_estimators=%d, max_depth=%d, min_samples_split=%d",
			cfg.NEstimators, cfg.MaxDepth, cfg.MinSamplesSplit)
	}
	return fmt.Sprintf("n_estimators=%d, learning_rate=%g, max_depth=%d, subsample_ratio=%g, gamma=%g, regularization=%s",
		cfg.NEstimators, cfg.LearningRate, cfg.MaxDepth, cfg.SubsampleRatio, cfg.Gamma, cfg.Regularization)
}

func gather(X [][]float64, y []float64, indices []int) ([][]float64, []float64) {
	gx := make([][]float64, len(indices))
	gy := make([]float64, len(indices))
	for p, ind := range indices {
		gx[p] = X[ind]
		gy[p] = y[ind]
	}
	return gx, gy
}

//crossValidate scores one candidate on every fold.
func crossValidate(kind string, cfg ModelConfig, X [][]float64, y []float64, folds [][]int, strategy Strategy) ([]float64, error) {
	scores := make([]float64, len(folds))
	for k, valIndices := range folds {
		var trainIndices []int
		for other, fold := range folds {
			if other != k {
				trainIndices = append(trainIndices, fold...)
			}
		}
		trainX, trainY := gather(X, y, trainIndices)
		valX, valY := gather(X, y, valIndices)

		model, err := NewModel(kind, cfg)
		if err != nil {
			return nil, err
		}
		if err = model.FitRows(trainX, trainY); err != nil {
			return nil, errors.Wrapf(err, "fold %d", k)
		}
		valTable, err := NewTableFromRows(valX)
		if err != nil {
			return nil, err
		}
		if scores[k], err = strategy.Evaluate(model, valTable, valY); err != nil {
			return nil, errors.Wrapf(err, "fold %d", k)
		}
	}
	return scores, nil
}

//RandomSearch samples params.Iterations configurations from grid, scores each with
//k-fold cross-validation through strategy.Evaluate and refits the best one on all of X.
//
//For "RandomForest" grid holds the candidate lists of n_estimators, max_depth and
//min_samples_split. For "XGBoost" it holds n_estimators, learning_rate, max_depth,
//subsample_ratio, gamma and regularization. Extra lists are ignored.
func RandomSearch(kind string, grid [][]string, X [][]float64, y []float64, strategy Strategy, params SearchParams, logger *log.Logger) (*SearchResult, error) {
	if len(X) == 0 || len(y) == 0 || len(X) != len(y) {
		return nil, invalidArgument("X and y must be non-empty and of equal length, got %d and %d", len(X), len(y))
	}
	canonical, ok := canonicalKind(kind)
	names, searchable := searchGrids[canonical]
	if !ok || !searchable {
		return nil, invalidArgument("random search supports RandomForest and XGBoost, got %q", kind)
	}
	if len(grid) < len(names) {
		return nil, invalidArgument("%s search expects %d hyperparameter lists %v, got %d", canonical, len(names), names, len(grid))
	}
	for list := range names {
		if len(grid[list]) == 0 {
			return nil, invalidArgument("hyperparameter list %s is empty", names[list])
		}
	}
	if params.Iterations <= 0 {
		return nil, invalidArgument("iterations must be > 0, got %d", params.Iterations)
	}
	if strategy == nil {
		return nil, invalidArgument("an evaluation strategy is required")
	}

	rng := rand.New(rand.NewSource(params.Seed))
	folds, err := KFold(len(X), params.Folds, rng)
	if err != nil {
		return nil, err
	}
	picker := gridPicker{rng: rng, grid: grid}

	logf(logger, "Starting random search for %s with %d iterations and %d-fold CV.", canonical, params.Iterations, params.Folds)

	result := &SearchResult{
		BestScore: math.Inf(1),
		Scores:    tensor.New(tensor.WithShape(params.Iterations, params.Folds), tensor.Of(tensor.Float64)),
	}
	found := false
	for it := 0; it < params.Iterations; it++ {
		cfg, err := picker.candidate(canonical, params.Classification)
		if err != nil {
			return nil, err
		}
		result.Candidates = append(result.Candidates, cfg)
		logf(logger, "  [%d/%d] Testing params: %s", it+1, params.Iterations, describe(canonical, cfg))

		scores, err := crossValidate(canonical, cfg, X, y, folds, strategy)
		if err != nil {
			return nil, errors.Wrapf(err, "iteration %d (%s)", it+1, describe(canonical, cfg))
		}
		total := 0.0
		for fold, score := range scores {
			if err = result.Scores.SetAt(score, it, fold); err != nil {
				return nil, err
			}
			total += score
		}
		avgScore := total / float64(params.Folds)
		logf(logger, "    -> CV score: %g", avgScore)

		if avgScore < result.BestScore {
			logf(logger, "    Found new best score: %g", avgScore)
			result.BestScore = avgScore
			result.BestParams = cfg
			found = true
		}
	}
	logf(logger, "Random search finished. Best score: %g", result.BestScore)
	if !found {
		return result, errors.Errorf("no candidate of %s produced a finite score", canonical)
	}

	logf(logger, "Best parameters found: %s", describe(canonical, result.BestParams))
	logf(logger, "Retraining best model on the full dataset...")
	model, err := NewModel(canonical, result.BestParams)
	if err != nil {
		return nil, err
	}
	if err = model.FitRows(X, y); err != nil {
		return nil, err
	}
	result.Model = model
	return result, nil
}
