package mls

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func lineData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	Y := make([]float64, n)
	for p := 0; p < n; p++ {
		X[p] = []float64{float64(p), float64((p * 7) % 5)}
		Y[p] = 3*float64(p) + 1
	}
	return X, Y
}

func fitForest(t *testing.T, params ForestParams, X [][]float64, Y []float64) *RandomForest {
	t.Helper()
	forest, err := NewRandomForest(params)
	if err != nil {
		t.Fatalf("NewRandomForest: %v", err)
	}
	if err = forest.FitRows(X, Y); err != nil {
		t.Fatalf("FitRows: %v", err)
	}
	return forest
}

func TestRandomForestBuildsAllTrees(t *testing.T) {
	X, Y := lineData(30)
	params := DefaultForestParams()
	params.NEstimators = 5
	forest := fitForest(t, params, X, Y)

	if len(forest.Trees()) != 5 {
		t.Fatalf("expected 5 trees, got %d", len(forest.Trees()))
	}
	if forest.Name() != "Random Forest" {
		t.Fatalf("unexpected name %q", forest.Name())
	}
}

func TestRandomForestWithoutSplitsPredictsTheMean(t *testing.T) {
	X, Y := lineData(10)
	params := DefaultForestParams()
	params.NEstimators = 4
	params.Bootstrap = false
	params.MinSamplesSplit = 100
	forest := fitForest(t, params, X, Y)

	mean := 0.0
	for _, y := range Y {
		mean += y
	}
	mean /= float64(len(Y))
	if v := predictOne(t, forest, 3, 1); math.Abs(v-mean) > 1e-9 {
		t.Fatalf("expected %v, got %v", mean, v)
	}
}

func TestRandomForestIsReproducible(t *testing.T) {
	X, Y := lineData(40)
	params := DefaultForestParams()
	params.NEstimators = 10
	params.MaxDepth = 4
	params.Seed = 17

	first := fitForest(t, params, X, Y)
	second := fitForest(t, params, X, Y)
	firstPrediction, err := PredictRows(first, X)
	if err != nil {
		t.Fatal(err)
	}
	secondPrediction, err := PredictRows(second, X)
	if err != nil {
		t.Fatal(err)
	}
	if err = first.FitRows(X, Y); err != nil {
		t.Fatal(err)
	}
	refitPrediction, err := PredictRows(first, X)
	if err != nil {
		t.Fatal(err)
	}
	for p := range X {
		if firstPrediction[p] != secondPrediction[p] || firstPrediction[p] != refitPrediction[p] {
			t.Fatalf("row %d: %v, %v and %v differ", p, firstPrediction[p], secondPrediction[p], refitPrediction[p])
		}
	}
}

func TestRandomForestBootstrapStaysInTargetRange(t *testing.T) {
	X, Y := lineData(25)
	params := DefaultForestParams()
	params.NEstimators = 15
	forest := fitForest(t, params, X, Y)

	for _, x := range [][]float64{{-5, 0}, {0, 0}, {12.5, 2}, {100, 4}} {
		v := predictOne(t, forest, x...)
		if v < Y[0] || v > Y[len(Y)-1] {
			t.Fatalf("prediction %v at %v is outside [%v, %v]", v, x, Y[0], Y[len(Y)-1])
		}
	}
}

func TestRandomForestClassificationVote(t *testing.T) {
	params := DefaultForestParams()
	params.NEstimators = 7
	params.Bootstrap = false
	params.Classification = true
	forest := fitForest(t, params, [][]float64{{1}, {2}, {10}, {11}}, []float64{0, 0, 1, 1})

	if v := predictOne(t, forest, 1.5); v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
	if v := predictOne(t, forest, 10.5); v != 1 {
		t.Fatalf("expected 1, got %v", v)
	}
}

func TestMajorityTieGoesToSmallestLabel(t *testing.T) {
	if v := majority(map[float64]int{1: 2, 0: 2, 3: 1}); v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
	if v := majority(map[float64]int{2: 1, 5: 3}); v != 5 {
		t.Fatalf("expected 5, got %v", v)
	}
}

func TestResolveMaxFeatures(t *testing.T) {
	cases := []struct{ maxFeatures, p, expected int }{
		{0, 9, 3},
		{0, 2, 1},
		{0, 1, 1},
		{20, 9, 9},
		{4, 9, 4},
	}
	for _, c := range cases {
		if got := resolveMaxFeatures(c.maxFeatures, c.p); got != c.expected {
			t.Fatalf("resolveMaxFeatures(%d, %d) = %d, expected %d", c.maxFeatures, c.p, got, c.expected)
		}
	}

	X, Y := lineData(10)
	forest := fitForest(t, ForestParams{NEstimators: 1, MaxDepth: 2, MinSamplesSplit: 2}, X, Y)
	if forest.ResolvedMaxFeatures() != 1 {
		t.Fatalf("expected floor(sqrt(2)) = 1, got %d", forest.ResolvedMaxFeatures())
	}
}

func TestRandomForestSamplesFeaturesPerSplit(t *testing.T) {
	X := make([][]float64, 20)
	Y := make([]float64, 20)
	for p := range X {
		X[p] = []float64{float64(p), 1}
		Y[p] = float64(p)
	}
	params := ForestParams{NEstimators: 20, MaxDepth: 3, MinSamplesSplit: 2, MaxFeatures: 1, Seed: 1}
	forest := fitForest(t, params, X, Y)

	leafRoots := 0
	for _, tree := range forest.Trees() {
		if tree.Nodes()[0].IsLeaf {
			leafRoots++
		}
	}
	if leafRoots == 0 {
		t.Fatalf("with one feature per split some roots must see only the constant feature")
	}
	if leafRoots == len(forest.Trees()) {
		t.Fatalf("with one feature per split some roots must see the informative feature")
	}
}

func TestRandomForestErrors(t *testing.T) {
	for _, params := range []ForestParams{
		{NEstimators: 0, MaxDepth: 3, MinSamplesSplit: 2},
		{NEstimators: 3, MaxDepth: 3, MinSamplesSplit: 1},
		{NEstimators: 3, MaxDepth: 0, MinSamplesSplit: 2},
		{NEstimators: 3, MaxDepth: 3, MinSamplesSplit: 2, MaxFeatures: -1},
	} {
		if _, err := NewRandomForest(params); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for %+v, got %v", params, err)
		}
	}

	forest, _ := NewRandomForest(DefaultForestParams())
	if _, err := forest.PredictRow([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected not fitted, got %v", err)
	}
	if err := forest.FitRows([][]float64{{1}, {2, 3}}, []float64{1, 2}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	if err := forest.FitRows([][]float64{{1}, {2}, {3}}, []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := forest.PredictRow([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if _, err := forest.Predict([]float64{1, 2}, []string{"a", "b"}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch for a table, got %v", err)
	}
}
