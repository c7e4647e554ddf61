package mls

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func stepData() ([][]float64, []float64) {
	X := make([][]float64, 8)
	Y := make([]float64, 8)
	for p := range X {
		X[p] = []float64{float64(p)}
		Y[p] = 2 * float64(p)
	}
	return X, Y
}

func fitBooster(t *testing.T, params BoosterParams, X [][]float64, Y []float64) *Booster {
	t.Helper()
	booster, err := NewBooster(params)
	if err != nil {
		t.Fatalf("NewBooster: %v", err)
	}
	if err = booster.FitRows(X, Y); err != nil {
		t.Fatalf("FitRows: %v", err)
	}
	return booster
}

func TestBoosterRegression(t *testing.T) {
	X, Y := stepData()
	params := DefaultBoosterParams()
	params.NEstimators = 50
	params.LearningRate = 0.3
	booster := fitBooster(t, params, X, Y)

	if math.Abs(booster.Bias()-7) > 1e-12 {
		t.Fatalf("expected the target mean 7 as bias, got %v", booster.Bias())
	}
	if len(booster.Trees()) != 50 {
		t.Fatalf("expected 50 trees, got %d", len(booster.Trees()))
	}
	for p, x := range X {
		if v := predictOne(t, booster, x...); math.Abs(v-Y[p]) > 1e-3 {
			t.Fatalf("row %d: expected %v, got %v", p, Y[p], v)
		}
	}
}

func TestBoosterFitsLine(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	Y := []float64{0, 2, 4, 6}
	params := DefaultBoosterParams()
	params.NEstimators = 10
	params.LearningRate = 0.3
	booster := fitBooster(t, params, X, Y)

	for p, x := range X {
		if v := predictOne(t, booster, x...); math.Abs(v-Y[p]) > 0.5 {
			t.Fatalf("row %d: expected %v within 0.5, got %v", p, Y[p], v)
		}
	}
}

func TestBoosterClassification(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	Y := []float64{0, 0, 0, 1, 1, 1}
	params := DefaultBoosterParams()
	params.NEstimators = 10
	params.LearningRate = 0.5
	params.MaxDepth = 2
	params.Classification = true
	booster := fitBooster(t, params, X, Y)

	if booster.Bias() != 0 {
		t.Fatalf("balanced classes must start from zero log-odds, got %v", booster.Bias())
	}
	for p, x := range X {
		if v := predictOne(t, booster, x...); v != Y[p] {
			t.Fatalf("row %d: expected %v, got %v", p, Y[p], v)
		}
		prob, err := booster.PredictProba(x)
		if err != nil {
			t.Fatal(err)
		}
		if (prob >= 0.5) != (Y[p] == 1) {
			t.Fatalf("row %d: probability %v disagrees with label %v", p, prob, Y[p])
		}
	}
}

func TestInitialBias(t *testing.T) {
	if b := initialBias([]float64{1, 1, 1, 0}, true); math.Abs(b-math.Log(3)) > 1e-12 {
		t.Fatalf("expected log(3), got %v", b)
	}
	if b := initialBias([]float64{1, 1}, true); math.Abs(b-math.Log((1-probabilityClamp)/probabilityClamp)) > 1e-9 {
		t.Fatalf("an all positive bias must be clamped, got %v", b)
	}
	if b := initialBias([]float64{1, 2, 6}, false); b != 3 {
		t.Fatalf("expected 3, got %v", b)
	}
}

func TestBoosterPredictIsRepeatable(t *testing.T) {
	X, Y := lineData(30)
	params := DefaultBoosterParams()
	params.NEstimators = 20
	params.SubsampleRatio = 0.5
	booster := fitBooster(t, params, X, Y)

	first, err := PredictRows(booster, X)
	if err != nil {
		t.Fatal(err)
	}
	second, err := PredictRows(booster, X)
	if err != nil {
		t.Fatal(err)
	}
	other := fitBooster(t, params, X, Y)
	third, err := PredictRows(other, X)
	if err != nil {
		t.Fatal(err)
	}
	for p := range first {
		if first[p] != second[p] || first[p] != third[p] {
			t.Fatalf("row %d: %v, %v and %v differ", p, first[p], second[p], third[p])
		}
	}
}

func TestBoosterLearningCurve(t *testing.T) {
	X, Y := stepData()
	params := DefaultBoosterParams()
	params.NEstimators = 15
	params.LearningRate = 0.3
	params.EvalSets = []EvalSet{{Description: "train", X: X, Y: Y}}
	booster := fitBooster(t, params, X, Y)

	curves := booster.LearningCurves()
	if len(curves) != 15 {
		t.Fatalf("expected a row per round, got %d", len(curves))
	}
	for stage := 1; stage < len(curves); stage++ {
		if curves[stage][0] > curves[stage-1][0] {
			t.Fatalf("training RMSE grew at round %d: %v > %v", stage, curves[stage][0], curves[stage-1][0])
		}
	}
	if titles := booster.LearningCurveTitles(); len(titles) != 1 || titles[0] != "train" {
		t.Fatalf("unexpected titles %v", titles)
	}

	dense, err := booster.LearningCurvesDense()
	if err != nil {
		t.Fatal(err)
	}
	if r, c := dense.Dims(); r != 15 || c != 1 {
		t.Fatalf("unexpected learning curve shape %dx%d", r, c)
	}
	if dense.At(14, 0) != curves[14][0] {
		t.Fatalf("dense learning curve disagrees with the rows")
	}
}

func TestSubsampleSize(t *testing.T) {
	cases := []struct {
		ratio    float64
		n        int
		expected int
	}{
		{0.1, 3, 1},
		{0.5, 5, 3},
		{1, 4, 4},
		{0.25, 8, 2},
	}
	for _, c := range cases {
		if got := subsampleSize(c.ratio, c.n); got != c.expected {
			t.Fatalf("subsampleSize(%v, %d) = %d, expected %d", c.ratio, c.n, got, c.expected)
		}
	}
}

func TestBoosterErrors(t *testing.T) {
	for _, mutate := range []func(*BoosterParams){
		func(p *BoosterParams) { p.SubsampleRatio = 0 },
		func(p *BoosterParams) { p.SubsampleRatio = 1.5 },
		func(p *BoosterParams) { p.NEstimators = 0 },
		func(p *BoosterParams) { p.MaxDepth = 0 },
		func(p *BoosterParams) { p.LearningRate = 0 },
	} {
		params := DefaultBoosterParams()
		mutate(&params)
		if _, err := NewBooster(params); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for %+v, got %v", params, err)
		}
	}

	X, Y := stepData()
	params := DefaultBoosterParams()
	params.NEstimators = 3
	booster, _ := NewBooster(params)
	if _, err := booster.PredictRow([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected not fitted, got %v", err)
	}
	if _, err := booster.LearningCurvesDense(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument without learning curves, got %v", err)
	}
	if err := booster.FitRows(X, Y); err != nil {
		t.Fatal(err)
	}
	if _, err := booster.PredictRow([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if _, err := booster.PredictProba([]float64{1}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}

	params.EvalSets = []EvalSet{{Description: "wide", X: [][]float64{{1, 2}}, Y: []float64{1}}}
	booster, _ = NewBooster(params)
	if err := booster.FitRows(X, Y); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch for the eval set, got %v", err)
	}
}

func TestBoosterHandlesConstantFeatures(t *testing.T) {
	rows := 64
	X := make([][]float64, rows)
	Y := make([]float64, rows)
	for p := range X {
		tVal := float64(p) / float64(rows-1)
		X[p] = []float64{0, 1, 0}
		Y[p] = 0.3 + 0.5*tVal + 0.2*math.Sin(50*tVal)
	}
	params := DefaultBoosterParams()
	params.NEstimators = 2
	params.LearningRate = 1
	booster := fitBooster(t, params, X, Y)

	for stage, tree := range booster.Trees() {
		if tree.NodeCount() != 1 || !tree.Nodes()[0].IsLeaf {
			t.Fatalf("tree %d: constant features must not split, got %d nodes", stage, tree.NodeCount())
		}
	}
	if v := predictOne(t, booster, 0, 1, 0); math.Abs(v-booster.Bias()) > 1e-9 {
		t.Fatalf("expected the bias %v, got %v", booster.Bias(), v)
	}
}
