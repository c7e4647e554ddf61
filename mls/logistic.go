package mls

import (
	"gonum.org/v1/gonum/mat"
)

//LogisticParams collect arguments of the gradient descent solver.
type LogisticParams struct {
	Regularization string
	Lambda         float64
	LearningRate   float64
	Iterations     int
}

//DefaultLogisticParams returns the defaults of the logistic model.
func DefaultLogisticParams() LogisticParams {
	return LogisticParams{
		Regularization: RegularizationNone,
		LearningRate:   0.01,
		Iterations:     1000,
	}
}

func (params LogisticParams) validate() error {
	if err := checkRegularization(params.Regularization); err != nil {
		return err
	}
	if params.LearningRate <= 0 {
		return invalidArgument("learning rate must be > 0, got %g", params.LearningRate)
	}
	if params.Iterations <= 0 {
		return invalidArgument("iterations must be > 0, got %d", params.Iterations)
	}
	if params.Lambda < 0 {
		return invalidArgument("lambda must be >= 0, got %g", params.Lambda)
	}
	return nil
}

//LogisticRegression is a binary classifier trained by batch gradient descent on the
//log-loss, starting from zero weights.
type LogisticRegression struct {
	params LogisticParams
	theta  *mat.VecDense
}

//NewLogisticRegression returns an unfitted model.
func NewLogisticRegression(params LogisticParams) (*LogisticRegression, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &LogisticRegression{params: params}, nil
}

//Name implements Model.
func (lr *LogisticRegression) Name() string {
	return "Logistic Regression"
}

//Fitted reports whether FitRows has succeeded.
func (lr *LogisticRegression) Fitted() bool {
	return lr.theta != nil
}

//Theta returns the intercept followed by one weight per feature.
func (lr *LogisticRegression) Theta() []float64 {
	if lr.theta == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.theta)
}

//FitRows runs Iterations steps of θ -= lr·(Aᵀ(σ(Aθ) - y)/n + λ/n·θ'), where θ' is θ
//with the intercept zeroed and the penalty applies only with L2.
func (lr *LogisticRegression) FitRows(X [][]float64, Y []float64) error {
	w, err := validateRows(X, Y)
	if err != nil {
		return err
	}

	n := float64(len(X))
	design := designMatrix(X, w)
	target := mat.NewVecDense(len(Y), append([]float64(nil), Y...))
	theta := mat.NewVecDense(w+1, nil)

	var z, residual, gradient mat.VecDense
	penalty := mat.NewVecDense(w+1, nil)
	for iteration := 0; iteration < lr.params.Iterations; iteration++ {
		z.MulVec(design, theta)
		for p := 0; p < z.Len(); p++ {
			z.SetVec(p, sigmoid(z.AtVec(p)))
		}
		residual.SubVec(&z, target)
		gradient.MulVec(design.T(), &residual)
		gradient.ScaleVec(1/n, &gradient)

		if lr.params.Regularization == RegularizationL2 {
			penalty.CopyVec(theta)
			penalty.SetVec(0, 0)
			gradient.AddScaledVec(&gradient, lr.params.Lambda/n, penalty)
		}
		theta.AddScaledVec(theta, -lr.params.LearningRate, &gradient)
	}
	lr.theta = theta
	return nil
}

//Fit implements Model.
func (lr *LogisticRegression) Fit(values []float64, columns []string, targets []float64) error {
	return fitTable(lr, values, columns, targets)
}

//Predict implements Model.
func (lr *LogisticRegression) Predict(values []float64, columns []string) ([]float64, error) {
	width := 0
	if lr.theta != nil {
		width = lr.theta.Len() - 1
	}
	return predictTable(lr, width, values, columns)
}

//PredictProba returns σ(θ0 + Σ θq·x[q]).
func (lr *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if lr.theta == nil {
		return 0, ErrNotFitted
	}
	s, err := linearScore(lr.theta, x)
	if err != nil {
		return 0, err
	}
	return sigmoid(s), nil
}

//PredictRow thresholds the probability at 0.5.
func (lr *LogisticRegression) PredictRow(x []float64) (float64, error) {
	prob, err := lr.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if prob >= 0.5 {
		return 1, nil
	}
	return 0, nil
}
