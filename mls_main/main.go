package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/mlsuite/mlsuite/mls"
	"github.com/sbinet/npyio"
)

//HandleError stops the program on any error.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	HandleError(err)
	defer func() { HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	HandleError(decoder.Decode(out))
}

// DataConfig names the feature and target files of a train/test split.
// Files ending in .npy are read with npyio, anything else as CSV with a header.
type DataConfig struct {
	FileNameTrainFeatures string `json:"filename_train_features"`
	FileNameTrainTargets  string `json:"filename_train_targets"`
	FileNameTestFeatures  string `json:"filename_test_features"`
	FileNameTestTargets   string `json:"filename_test_targets"`
}

type dataSplit struct {
	train, test               mls.Table
	trainTargets, testTargets []float64
}

func (dc DataConfig) load(withTest bool) (split dataSplit) {
	var err error
	log.Println("load train")
	split.train, err = mls.ReadTable(dc.FileNameTrainFeatures)
	HandleError(err)
	trainTargets, err := mls.ReadTable(dc.FileNameTrainTargets)
	HandleError(err)
	split.trainTargets = trainTargets.Values

	if withTest {
		log.Println("load test")
		split.test, err = mls.ReadTable(dc.FileNameTestFeatures)
		HandleError(err)
		testTargets, err := mls.ReadTable(dc.FileNameTestTargets)
		HandleError(err)
		split.testTargets = testTargets.Values
	}
	return
}

func strategyFor(classification bool) mls.Strategy {
	if classification {
		return mls.ClassificationBenchmark{}
	}
	return mls.RegressionBenchmark{}
}

func logger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

type BenchmarkConfig struct {
	DataConfig
	Model              string          `json:"model"`
	Params             mls.ModelConfig `json:"params"`
	FileNamePrediction string          `json:"filename_prediction"`
}

func benchmark(srcConfig string) {
	var benchmarkConfig BenchmarkConfig
	decodeConfig(srcConfig, &benchmarkConfig)

	split := benchmarkConfig.load(true)
	model, err := mls.NewModel(benchmarkConfig.Model, benchmarkConfig.Params)
	HandleError(err)

	result, err := mls.TrainAndExecute(strategyFor(benchmarkConfig.Params.Classification), model,
		split.train, split.trainTargets, split.test, split.testTargets)
	HandleError(err)
	result.Report(logger())

	if benchmarkConfig.FileNamePrediction != "" {
		prediction, err := model.Predict(split.test.Values, split.test.Columns)
		HandleError(err)
		HandleError(mls.WriteCSVColumn(benchmarkConfig.FileNamePrediction, "prediction", prediction))
	}
}

type SearchConfig struct {
	DataConfig
	Model          string     `json:"model"`
	Grid           [][]string `json:"grid"`
	Iterations     int        `json:"iterations"`
	Folds          int        `json:"folds"`
	Seed           *int64     `json:"seed"`
	Classification bool       `json:"classification"`
}

func search(srcConfig string) {
	var searchConfig SearchConfig
	decodeConfig(srcConfig, &searchConfig)

	split := searchConfig.load(searchConfig.FileNameTestFeatures != "")
	X, err := mls.Reshape(split.train.Values, split.train.Columns)
	HandleError(err)
	y, err := mls.CollapseTargets(split.trainTargets, len(X))
	HandleError(err)

	params := mls.DefaultSearchParams()
	if searchConfig.Iterations != 0 {
		params.Iterations = searchConfig.Iterations
	}
	if searchConfig.Folds != 0 {
		params.Folds = searchConfig.Folds
	}
	if searchConfig.Seed != nil {
		params.Seed = *searchConfig.Seed
	}
	params.Classification = searchConfig.Classification

	strategy := strategyFor(searchConfig.Classification)
	result, err := mls.RandomSearch(searchConfig.Model, searchConfig.Grid, X, y, strategy, params, logger())
	HandleError(err)

	means, err := result.MeanScores()
	HandleError(err)
	for it, score := range means {
		log.Printf("iteration %d: mean CV score %g", it+1, score)
	}

	if searchConfig.FileNameTestFeatures != "" {
		res, err := strategy.Execute(result.Model, split.test, split.testTargets, 0)
		HandleError(err)
		res.Report(logger())
	}
}

type GraphConfig struct {
	DataConfig
	Model             string          `json:"model"`
	Params            mls.ModelConfig `json:"params"`
	FigureType        string          `json:"figure_type"`
	PicturesDirectory string          `json:"pictures_directory"`
	DumpPrefix        string          `json:"dump_prefix"`
}

func graph(srcConfig string) {
	var graphConfig GraphConfig
	decodeConfig(srcConfig, &graphConfig)

	split := graphConfig.load(false)
	model, err := mls.NewModel(graphConfig.Model, graphConfig.Params)
	HandleError(err)
	HandleError(model.Fit(split.train.Values, split.train.Columns, split.trainTargets))

	var trees []*mls.DecisionTree
	switch m := model.(type) {
	case *mls.DecisionTree:
		trees = []*mls.DecisionTree{m}
	case mls.Renderable:
		trees = m.Trees()
	default:
		log.Panicf("%s has no trees to draw", model.Name())
	}

	written, err := mls.RenderTrees(trees, graphConfig.DumpPrefix, graphConfig.FigureType, graphConfig.PicturesDirectory)
	HandleError(err)
	log.Printf("%d trees rendered", len(written))
}

type LcurveConfig struct {
	DataConfig
	Params                mls.ModelConfig `json:"params"`
	LearningCurveFileName string          `json:"filename_learning_curve"`
}

func rowsOf(table mls.Table, targets []float64) ([][]float64, []float64) {
	X, err := mls.Reshape(table.Values, table.Columns)
	HandleError(err)
	y, err := mls.CollapseTargets(targets, len(X))
	HandleError(err)
	return X, y
}

func lcurve(srcConfig string) {
	var lcurveConfig LcurveConfig
	decodeConfig(srcConfig, &lcurveConfig)

	split := lcurveConfig.load(true)
	trainX, trainY := rowsOf(split.train, split.trainTargets)
	testX, testY := rowsOf(split.test, split.testTargets)

	params := lcurveConfig.Params.BoosterParams()
	params.EvalSets = []mls.EvalSet{
		{Description: "train", X: trainX, Y: trainY},
		{Description: "test", X: testX, Y: testY},
	}
	clf, err := mls.NewBooster(params)
	HandleError(err)
	HandleError(clf.FitRows(trainX, trainY))

	learningCurve, err := clf.LearningCurvesDense()
	HandleError(err)

	dst, err := os.Create(lcurveConfig.LearningCurveFileName)
	HandleError(err)
	defer func() { HandleError(dst.Close()) }()
	HandleError(npyio.Write(dst, learningCurve))
}

func main() {
	runMode := flag.String("mode", "benchmark", "you can select either 'benchmark', 'search', 'graph' or 'lcurve' modes")
	config := flag.String("config", "mls_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	handler, ok := map[string]func(string){
		"benchmark": benchmark,
		"search":    search,
		"graph":     graph,
		"lcurve":    lcurve,
	}[*runMode]
	if !ok {
		log.Fatalf("unknown mode %q", *runMode)
	}
	handler(*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		HandleError(err)
		defer func() { HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
