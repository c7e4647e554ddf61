package mls

import (
	"log"
	"math"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//Task types reported in a Result.
const (
	TaskRegression     = "regression"
	TaskClassification = "classification"
)

//Result collects timings and quality metrics of one benchmark run. Metrics that do not
//apply to the task type stay NaN.
type Result struct {
	ModelName       string
	TaskType        string
	NumSamples      int
	FitDuration     time.Duration
	PredictDuration time.Duration
	MemoryBytes     uint64

	MSE  float64
	RMSE float64
	R2   float64

	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

func newResult(model Model, taskType string, numSamples int, fitDuration time.Duration) Result {
	nan := math.NaN()
	return Result{
		ModelName:   model.Name(),
		TaskType:    taskType,
		NumSamples:  numSamples,
		FitDuration: fitDuration,
		MSE:         nan,
		RMSE:        nan,
		R2:          nan,
		Accuracy:    nan,
		Precision:   nan,
		Recall:      nan,
		F1:          nan,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

//Report prints the result through logger. A nil logger prints nothing.
func (r Result) Report(logger *log.Logger) {
	if logger == nil {
		return
	}
	logger.Printf("--- %s benchmark: %s ---", r.TaskType, r.ModelName)
	logger.Printf("samples: %d", r.NumSamples)
	logger.Printf("fit time (ms): %.3f", millis(r.FitDuration))
	logger.Printf("predict time (ms): %.3f", millis(r.PredictDuration))
	logger.Printf("memory (bytes): %d", r.MemoryBytes)
	if r.TaskType == TaskClassification {
		logger.Printf("accuracy: %.6g", r.Accuracy)
		logger.Printf("precision: %.6g", r.Precision)
		logger.Printf("recall: %.6g", r.Recall)
		logger.Printf("F1: %.6g", r.F1)
		return
	}
	logger.Printf("MSE: %.6g", r.MSE)
	logger.Printf("RMSE: %.6g", r.RMSE)
	logger.Printf("R-squared: %.6g", r.R2)
}

//Strategy scores a fitted model on held-out data.
//Evaluate is lower-is-better: MSE for regression and 1 - accuracy for classification.
type Strategy interface {
	Execute(model Model, features Table, targets []float64, fitDuration time.Duration) (Result, error)
	Evaluate(model Model, features Table, targets []float64) (float64, error)
}

//TrainAndExecute fits the model on the train table, timing the fit, and runs the
//strategy on the test table.
func TrainAndExecute(strategy Strategy, model Model, train Table, trainTargets []float64, test Table, testTargets []float64) (Result, error) {
	start := time.Now()
	if err := model.Fit(train.Values, train.Columns, trainTargets); err != nil {
		return Result{}, errors.Wrapf(err, "fit %s", model.Name())
	}
	return strategy.Execute(model, test, testTargets, time.Since(start))
}

//heapInUse is the current Go heap allocation.
func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

func predictChecked(model Model, features Table, targets []float64) ([]float64, time.Duration, error) {
	start := time.Now()
	prediction, err := model.Predict(features.Values, features.Columns)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, errors.Wrapf(err, "predict %s", model.Name())
	}
	if len(prediction) != len(targets) {
		return nil, elapsed, errors.Wrapf(ErrDimensionMismatch, "%d predictions for %d targets", len(prediction), len(targets))
	}
	if len(targets) == 0 {
		return nil, elapsed, invalidArgument("no targets to score against")
	}
	return prediction, elapsed, nil
}

//RegressionBenchmark reports MSE, RMSE and R².
type RegressionBenchmark struct{}

//MeanSquaredError is the average squared difference.
func MeanSquaredError(actual, predicted []float64) float64 {
	d := floats.Distance(actual, predicted, 2)
	return d * d / float64(len(actual))
}

//RSquared is 1 - SSres/SStot. When the targets are constant it is 1 for a perfect
//prediction and 0 otherwise.
func RSquared(actual, predicted []float64) float64 {
	mean := stat.Mean(actual, nil)
	ssTotal := 0.0
	for _, y := range actual {
		ssTotal += (y - mean) * (y - mean)
	}
	if ssTotal == 0 {
		if floats.Equal(actual, predicted) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

//Execute implements Strategy.
func (RegressionBenchmark) Execute(model Model, features Table, targets []float64, fitDuration time.Duration) (Result, error) {
	result := newResult(model, TaskRegression, len(targets), fitDuration)
	prediction, elapsed, err := predictChecked(model, features, targets)
	result.PredictDuration = elapsed
	result.MemoryBytes = heapInUse()
	if err != nil {
		return result, err
	}
	result.MSE = MeanSquaredError(targets, prediction)
	result.RMSE = math.Sqrt(result.MSE)
	result.R2 = RSquared(targets, prediction)
	return result, nil
}

//Evaluate implements Strategy.
func (RegressionBenchmark) Evaluate(model Model, features Table, targets []float64) (float64, error) {
	prediction, _, err := predictChecked(model, features, targets)
	if err != nil {
		return math.Inf(1), err
	}
	return MeanSquaredError(targets, prediction), nil
}

//ClassificationBenchmark rounds predictions and targets to integer labels and reports
//accuracy together with precision, recall and F1 of the label 1.
type ClassificationBenchmark struct{}

type confusionCounts struct {
	tp, fp, fn, tn float64
}

func binaryConfusion(actual, predicted []float64, positiveLabel float64) (c confusionCounts) {
	for p := range actual {
		isPos := math.Round(actual[p]) == positiveLabel
		predPos := math.Round(predicted[p]) == positiveLabel
		switch {
		case isPos && predPos:
			c.tp++
		case !isPos && predPos:
			c.fp++
		case isPos && !predPos:
			c.fn++
		default:
			c.tn++
		}
	}
	return
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

//Accuracy is the share of rows whose rounded labels agree.
func Accuracy(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	correct := 0
	for p := range actual {
		if math.Round(actual[p]) == math.Round(predicted[p]) {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}

//Execute implements Strategy.
func (ClassificationBenchmark) Execute(model Model, features Table, targets []float64, fitDuration time.Duration) (Result, error) {
	result := newResult(model, TaskClassification, len(targets), fitDuration)
	prediction, elapsed, err := predictChecked(model, features, targets)
	result.PredictDuration = elapsed
	result.MemoryBytes = heapInUse()
	if err != nil {
		return result, err
	}

	result.Accuracy = Accuracy(targets, prediction)
	c := binaryConfusion(targets, prediction, 1)
	result.Precision = safeDiv(c.tp, c.tp+c.fp)
	result.Recall = safeDiv(c.tp, c.tp+c.fn)
	denom := result.Precision + result.Recall
	if !math.IsNaN(denom) && denom != 0 {
		result.F1 = 2 * result.Precision * result.Recall / denom
	}
	return result, nil
}

//Evaluate implements Strategy.
func (ClassificationBenchmark) Evaluate(model Model, features Table, targets []float64) (float64, error) {
	prediction, _, err := predictChecked(model, features, targets)
	if err != nil {
		return math.Inf(1), err
	}
	return 1 - Accuracy(targets, prediction), nil
}
