package mls

// Model is the uniform table-level contract used by the benchmark harness.
type Model interface {
	Fit(values []float64, columns []string, targets []float64) error
	Predict(values []float64, columns []string) ([]float64, error)
	Name() string
}

// RowModel is the row-vector contract every learner implements internally.
type RowModel interface {
	FitRows(X [][]float64, Y []float64) error
	PredictRow(x []float64) (float64, error)
	Fitted() bool
}

// fitTable reshapes the flat table and hands it to the row-level fit.
func fitTable(m RowModel, values []float64, columns []string, targets []float64) error {
	if len(values) == 0 || len(targets) == 0 || len(columns) == 0 {
		return invalidArgument("features, columns and targets must be non-empty")
	}
	X, err := Reshape(values, columns)
	if err != nil {
		return err
	}
	Y, err := CollapseTargets(targets, len(X))
	if err != nil {
		return err
	}
	return m.FitRows(X, Y)
}

// predictTable predicts every row of the flat table, in order.
func predictTable(m RowModel, width int, values []float64, columns []string) ([]float64, error) {
	if !m.Fitted() {
		return nil, ErrNotFitted
	}
	if len(values) == 0 {
		return []float64{}, nil
	}
	X, err := Reshape(values, columns)
	if err != nil {
		return nil, err
	}
	if len(columns) != width {
		return nil, dimensionMismatch(len(columns), width)
	}
	return PredictRows(m, X)
}

// PredictRows applies a fitted row model to every row.
func PredictRows(m RowModel, X [][]float64) ([]float64, error) {
	prediction := make([]float64, len(X))
	for p, x := range X {
		var err error
		if prediction[p], err = m.PredictRow(x); err != nil {
			return nil, err
		}
	}
	return prediction, nil
}

// validateRows checks the shared fit preconditions and returns the feature width.
func validateRows(X [][]float64, Y []float64) (int, error) {
	if len(X) == 0 || len(Y) == 0 {
		return 0, invalidArgument("X and Y must be non-empty")
	}
	if len(X) != len(Y) {
		return 0, invalidArgument("X has %d rows but Y has %d values", len(X), len(Y))
	}
	w := len(X[0])
	if w == 0 {
		return 0, invalidArgument("X must have at least one feature")
	}
	for p, row := range X {
		if len(row) != w {
			return 0, invalidArgument("row %d has %d features, expected %d", p, len(row), w)
		}
	}
	return w, nil
}
