package mls

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//Regularization labels understood by the linear models.
const (
	RegularizationNone = "None"
	RegularizationL1   = "L1"
	RegularizationL2   = "L2"
)

func checkRegularization(regularization string) error {
	switch regularization {
	case RegularizationNone, RegularizationL2:
		return nil
	case RegularizationL1:
		return errors.Wrap(ErrUnsupported, "L1 regularization needs an iterative solver")
	}
	return invalidArgument("unknown regularization %q, expected None, L1 or L2", regularization)
}

//designMatrix prepends a column of ones to the rows of X.
func designMatrix(X [][]float64, w int) *mat.Dense {
	design := mat.NewDense(len(X), w+1, nil)
	for p, row := range X {
		design.Set(p, 0, 1)
		for q, v := range row {
			design.Set(p, q+1, v)
		}
	}
	return design
}

//LinearParams collect arguments of the least squares model.
type LinearParams struct {
	Regularization string
	Lambda         float64
}

//DefaultLinearParams is plain least squares.
func DefaultLinearParams() LinearParams {
	return LinearParams{Regularization: RegularizationNone}
}

//LinearRegression is ordinary or ridge least squares with an intercept, solved in
//closed form through the normal equations.
type LinearRegression struct {
	params LinearParams
	theta  *mat.VecDense
}

//NewLinearRegression validates the regularization label and returns an unfitted model.
func NewLinearRegression(params LinearParams) (*LinearRegression, error) {
	if err := checkRegularization(params.Regularization); err != nil {
		return nil, err
	}
	if params.Lambda < 0 {
		return nil, invalidArgument("lambda must be >= 0, got %g", params.Lambda)
	}
	return &LinearRegression{params: params}, nil
}

//Name implements Model.
func (lr *LinearRegression) Name() string {
	return "Linear Regression"
}

//Fitted reports whether FitRows has succeeded.
func (lr *LinearRegression) Fitted() bool {
	return lr.theta != nil
}

//Theta returns the intercept followed by one weight per feature.
func (lr *LinearRegression) Theta() []float64 {
	if lr.theta == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.theta)
}

//FitRows solves (AᵀA + λI')θ = Aᵀy where A is X with a leading column of ones and
//I' is the identity with a zero in the intercept position.
func (lr *LinearRegression) FitRows(X [][]float64, Y []float64) error {
	w, err := validateRows(X, Y)
	if err != nil {
		return err
	}

	design := designMatrix(X, w)
	target := mat.NewVecDense(len(Y), append([]float64(nil), Y...))

	var gram mat.Dense
	gram.Mul(design.T(), design)
	if lr.params.Regularization == RegularizationL2 {
		for q := 1; q <= w; q++ {
			gram.Set(q, q, gram.At(q, q)+lr.params.Lambda)
		}
	}
	var moment mat.VecDense
	moment.MulVec(design.T(), target)

	theta := mat.NewVecDense(w+1, nil)
	if err = theta.SolveVec(&gram, &moment); err != nil {
		cond, ok := err.(mat.Condition)
		if !ok || math.IsInf(float64(cond), 1) {
			return errors.Wrap(ErrInvalidArgument, "normal equations are singular")
		}
	}
	lr.theta = theta
	return nil
}

//Fit implements Model.
func (lr *LinearRegression) Fit(values []float64, columns []string, targets []float64) error {
	return fitTable(lr, values, columns, targets)
}

//Predict implements Model.
func (lr *LinearRegression) Predict(values []float64, columns []string) ([]float64, error) {
	return predictTable(lr, lr.width(), values, columns)
}

func (lr *LinearRegression) width() int {
	if lr.theta == nil {
		return 0
	}
	return lr.theta.Len() - 1
}

//PredictRow returns θ0 + Σ θq·x[q].
func (lr *LinearRegression) PredictRow(x []float64) (float64, error) {
	if lr.theta == nil {
		return 0, ErrNotFitted
	}
	return linearScore(lr.theta, x)
}

func linearScore(theta *mat.VecDense, x []float64) (float64, error) {
	if len(x)+1 != theta.Len() {
		return 0, dimensionMismatch(len(x), theta.Len()-1)
	}
	s := theta.AtVec(0)
	for q, v := range x {
		s += theta.AtVec(q+1) * v
	}
	return s, nil
}
