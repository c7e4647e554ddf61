package mls

import (
	"strings"
)

//Model kinds accepted by NewModel.
const (
	KindDecisionTree       = "DecisionTree"
	KindRandomForest       = "RandomForest"
	KindBooster            = "XGBoost"
	KindLinearRegression   = "LinearRegression"
	KindLogisticRegression = "LogisticRegression"
)

//Learner is a model usable both through the flat table contract and row by row.
type Learner interface {
	Model
	RowModel
}

//ModelConfig is the JSON form of the hyperparameters of every model kind. Zero fields
//take the defaults of the kind; Bootstrap and Seed are pointers since their zero
//values are meaningful.
type ModelConfig struct {
	Classification  bool    `json:"classification"`
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MaxFeatures     int     `json:"max_features"`
	Bootstrap       *bool   `json:"bootstrap"`
	Seed            *int64  `json:"seed"`
	LearningRate    float64 `json:"learning_rate"`
	SubsampleRatio  float64 `json:"subsample_ratio"`
	Gamma           float64 `json:"gamma"`
	Regularization  string  `json:"regularization"`
	Lambda          float64 `json:"lambda"`
	Iterations      int     `json:"iterations"`
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

//TreeParams resolves the decision tree hyperparameters.
func (cfg ModelConfig) TreeParams() TreeParams {
	def := DefaultTreeParams()
	return TreeParams{
		MaxDepth:        orInt(cfg.MaxDepth, def.MaxDepth),
		MinSamplesSplit: orInt(cfg.MinSamplesSplit, def.MinSamplesSplit),
		Classification:  cfg.Classification,
	}
}

//ForestParams resolves the random forest hyperparameters.
func (cfg ModelConfig) ForestParams() ForestParams {
	params := DefaultForestParams()
	params.NEstimators = orInt(cfg.NEstimators, params.NEstimators)
	params.MaxDepth = orInt(cfg.MaxDepth, params.MaxDepth)
	params.MinSamplesSplit = orInt(cfg.MinSamplesSplit, params.MinSamplesSplit)
	params.MaxFeatures = cfg.MaxFeatures
	if cfg.Bootstrap != nil {
		params.Bootstrap = *cfg.Bootstrap
	}
	if cfg.Seed != nil {
		params.Seed = *cfg.Seed
	}
	params.Classification = cfg.Classification
	return params
}

//BoosterParams resolves the booster hyperparameters.
func (cfg ModelConfig) BoosterParams() BoosterParams {
	params := DefaultBoosterParams()
	params.NEstimators = orInt(cfg.NEstimators, params.NEstimators)
	params.LearningRate = orFloat(cfg.LearningRate, params.LearningRate)
	params.MaxDepth = orInt(cfg.MaxDepth, params.MaxDepth)
	params.SubsampleRatio = orFloat(cfg.SubsampleRatio, params.SubsampleRatio)
	params.Gamma = cfg.Gamma
	params.Regularization = orString(cfg.Regularization, params.Regularization)
	if cfg.Seed != nil {
		params.Seed = *cfg.Seed
	}
	params.Classification = cfg.Classification
	return params
}

//LinearParams resolves the least squares hyperparameters.
func (cfg ModelConfig) LinearParams() LinearParams {
	params := DefaultLinearParams()
	params.Regularization = orString(cfg.Regularization, params.Regularization)
	params.Lambda = cfg.Lambda
	return params
}

//LogisticParams resolves the logistic regression hyperparameters.
func (cfg ModelConfig) LogisticParams() LogisticParams {
	params := DefaultLogisticParams()
	params.Regularization = orString(cfg.Regularization, params.Regularization)
	params.Lambda = cfg.Lambda
	params.LearningRate = orFloat(cfg.LearningRate, params.LearningRate)
	params.Iterations = orInt(cfg.Iterations, params.Iterations)
	return params
}

//canonicalKind accepts the kinds case-insensitively and "Booster" as another name of
//the boosted ensemble.
func canonicalKind(kind string) (string, bool) {
	for _, known := range []string{KindDecisionTree, KindRandomForest, KindBooster, KindLinearRegression, KindLogisticRegression} {
		if strings.EqualFold(kind, known) {
			return known, true
		}
	}
	if strings.EqualFold(kind, "Booster") {
		return KindBooster, true
	}
	return "", false
}

//NewModel builds an unfitted model of the given kind.
func NewModel(kind string, cfg ModelConfig) (Learner, error) {
	canonical, ok := canonicalKind(kind)
	if !ok {
		return nil, invalidArgument("unknown model kind %q", kind)
	}
	switch canonical {
	case KindDecisionTree:
		tree, err := NewDecisionTree(cfg.TreeParams())
		if err != nil {
			return nil, err
		}
		return tree, nil
	case KindRandomForest:
		forest, err := NewRandomForest(cfg.ForestParams())
		if err != nil {
			return nil, err
		}
		return forest, nil
	case KindBooster:
		booster, err := NewBooster(cfg.BoosterParams())
		if err != nil {
			return nil, err
		}
		return booster, nil
	case KindLinearRegression:
		linear, err := NewLinearRegression(cfg.LinearParams())
		if err != nil {
			return nil, err
		}
		return linear, nil
	}
	logistic, err := NewLogisticRegression(cfg.LogisticParams())
	if err != nil {
		return nil, err
	}
	return logistic, nil
}
