package mls

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//Table is a dense row-major numeric table. Column names only define the width.
type Table struct {
	Columns []string
	Values  []float64
}

//NewTableFromRows flattens rows into a Table with generated column names "0", "1", ...
func NewTableFromRows(rows [][]float64) (Table, error) {
	if len(rows) == 0 {
		return Table{}, nil
	}
	w := len(rows[0])
	if w == 0 {
		return Table{}, invalidArgument("rows must contain at least one feature")
	}
	t := Table{Columns: ColumnNames(w), Values: make([]float64, 0, len(rows)*w)}
	for p, row := range rows {
		if len(row) != w {
			return Table{}, invalidArgument("row %d has %d features, expected %d", p, len(row), w)
		}
		t.Values = append(t.Values, row...)
	}
	return t, nil
}

//ColumnNames generates positional column names.
func ColumnNames(w int) []string {
	names := make([]string, w)
	for q := range names {
		names[q] = strconv.Itoa(q)
	}
	return names
}

//Width is the number of columns.
func (t Table) Width() int {
	return len(t.Columns)
}

//Rows derives the row count from the flat values and the column count.
func (t Table) Rows() (int, error) {
	return rowCount(len(t.Values), len(t.Columns))
}

func rowCount(values, columns int) (int, error) {
	if columns == 0 {
		return 0, invalidArgument("table has no columns")
	}
	if values%columns != 0 {
		return 0, invalidArgument("%d values is not a multiple of %d columns", values, columns)
	}
	return values / columns, nil
}

//Row returns a copy of row p.
func (t Table) Row(p int) []float64 {
	w := t.Width()
	row := make([]float64, w)
	copy(row, t.Values[p*w:(p+1)*w])
	return row
}

//Subset builds a new table from the listed rows, in the listed order.
func (t Table) Subset(rows []int) Table {
	w := t.Width()
	out := Table{Columns: t.Columns, Values: make([]float64, 0, len(rows)*w)}
	for _, p := range rows {
		out.Values = append(out.Values, t.Values[p*w:(p+1)*w]...)
	}
	return out
}

//Dense copies the table into a gonum matrix.
func (t Table) Dense() (*mat.Dense, error) {
	h, err := t.Rows()
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, invalidArgument("table is empty")
	}
	data := make([]float64, len(t.Values))
	copy(data, t.Values)
	return mat.NewDense(h, t.Width(), data), nil
}

//Reshape converts flat row-major values into row vectors.
func Reshape(values []float64, columns []string) ([][]float64, error) {
	h, err := rowCount(len(values), len(columns))
	if err != nil {
		return nil, err
	}
	w := len(columns)
	rows := make([][]float64, h)
	for p := range rows {
		rows[p] = values[p*w : (p+1)*w : (p+1)*w]
	}
	return rows, nil
}

//CollapseTargets turns the target sequence into one scalar per row. A sequence that is a
//clean multiple of the row count is read as one-hot rows and decoded with argmax.
func CollapseTargets(targets []float64, rows int) ([]float64, error) {
	switch {
	case rows == 0 || len(targets) == 0:
		return nil, invalidArgument("targets and features must be non-empty")
	case len(targets) == rows:
		out := make([]float64, rows)
		copy(out, targets)
		return out, nil
	case len(targets) > rows && len(targets)%rows == 0:
		k := len(targets) / rows
		out := make([]float64, rows)
		for p := 0; p < rows; p++ {
			out[p] = float64(argmax(targets[p*k : (p+1)*k]))
		}
		return out, nil
	}
	return nil, invalidArgument("%d targets do not match %d feature rows", len(targets), rows)
}

func argmax(values []float64) int {
	best := 0
	for q, v := range values {
		if v > values[best] {
			best = q
		}
	}
	return best
}

//TableFromDense copies a gonum matrix into a table with positional column names.
func TableFromDense(m mat.Matrix) Table {
	h, w := m.Dims()
	t := Table{Columns: ColumnNames(w), Values: make([]float64, 0, h*w)}
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			t.Values = append(t.Values, m.At(p, q))
		}
	}
	return t
}

//ReadNpyTable reads a 1-D or 2-D float array stored in the npy format.
func ReadNpyTable(fileName string) (table Table, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return Table{}, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	r, err := npyio.NewReader(f)
	if err != nil {
		return Table{}, errors.Wrapf(err, "read npy header of %s", fileName)
	}
	switch len(r.Header.Descr.Shape) {
	case 1:
		var values []float64
		if err = r.Read(&values); err != nil {
			return Table{}, errors.Wrapf(err, "read %s", fileName)
		}
		return Table{Columns: ColumnNames(1), Values: values}, nil
	case 2:
		denseMat := &mat.Dense{}
		if err = r.Read(denseMat); err != nil {
			return Table{}, errors.Wrapf(err, "read %s", fileName)
		}
		return TableFromDense(denseMat), nil
	}
	return Table{}, invalidArgument("%s: unsupported npy shape %v", fileName, r.Header.Descr.Shape)
}

//WriteNpy stores values as an npy matrix with the given number of columns.
func WriteNpy(fileName string, values []float64, columns int) (err error) {
	h, err := rowCount(len(values), columns)
	if err != nil {
		return err
	}
	if h == 0 {
		return invalidArgument("nothing to write to %s", fileName)
	}
	dst, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
	}()
	data := make([]float64, len(values))
	copy(data, values)
	return npyio.Write(dst, mat.NewDense(h, columns, data))
}
