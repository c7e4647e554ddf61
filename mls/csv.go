package mls

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

//ReadCSVTable reads a CSV file whose first line holds the column names and whose
//cells are all numeric. Missing or non-numeric cells are rejected.
func ReadCSVTable(fileName string) (Table, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return Table{}, errors.Wrapf(df.Err, "parse %s", fileName)
	}

	h, w := df.Dims()
	columns := df.Names()
	if w == 0 {
		return Table{}, invalidArgument("%s has no columns", fileName)
	}

	table := Table{Columns: columns, Values: make([]float64, h*w)}
	for q, name := range columns {
		col := df.Col(name)
		floats := col.Float()
		for p, v := range floats {
			if math.IsNaN(v) {
				return Table{}, invalidArgument("%s: row %d column %q holds %q, not a number",
					fileName, p+1, name, col.Elem(p).String())
			}
			table.Values[p*w+q] = v
		}
	}
	return table, nil
}

//WriteCSVColumn writes a single named column of values as CSV.
func WriteCSVColumn(fileName, name string, values []float64) (err error) {
	dst, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
	}()
	df := dataframe.New(series.New(values, series.Float, name))
	return df.WriteCSV(dst)
}

//ReadTable dispatches on the file extension: ".npy" files go through npyio, anything
//else is parsed as CSV.
func ReadTable(fileName string) (Table, error) {
	if strings.EqualFold(filepath.Ext(fileName), ".npy") {
		return ReadNpyTable(fileName)
	}
	return ReadCSVTable(fileName)
}
