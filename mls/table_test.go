package mls

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func TestReshape(t *testing.T) {
	rows, err := Reshape([]float64{1, 2, 3, 4, 5, 6}, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != 4 || rows[1][2] != 6 {
		t.Fatalf("unexpected rows %v", rows)
	}
	if _, err = Reshape([]float64{1, 2, 3}, []string{"a", "b"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err = Reshape([]float64{1}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument without columns, got %v", err)
	}
}

func TestCollapseTargets(t *testing.T) {
	plain, err := CollapseTargets([]float64{3, 1}, 2)
	if err != nil || plain[0] != 3 || plain[1] != 1 {
		t.Fatalf("unexpected targets %v, %v", plain, err)
	}

	oneHot, err := CollapseTargets([]float64{0, 1, 0, 1, 0, 0, 0, 0, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{1, 0, 2}
	for p := range expected {
		if oneHot[p] != expected[p] {
			t.Fatalf("expected %v, got %v", expected, oneHot)
		}
	}

	if _, err = CollapseTargets([]float64{1, 2, 3}, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestTableHelpers(t *testing.T) {
	table, err := NewTableFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if h, err := table.Rows(); err != nil || h != 3 || table.Width() != 2 {
		t.Fatalf("unexpected shape %d x %d, %v", h, table.Width(), err)
	}
	if table.Columns[1] != "1" {
		t.Fatalf("unexpected column names %v", table.Columns)
	}
	if row := table.Row(2); row[0] != 5 || row[1] != 6 {
		t.Fatalf("unexpected row %v", row)
	}
	subset := table.Subset([]int{2, 0})
	if subset.Values[0] != 5 || subset.Values[3] != 2 {
		t.Fatalf("unexpected subset %v", subset.Values)
	}

	dense, err := table.Dense()
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(dense, mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})) {
		t.Fatalf("unexpected matrix %v", mat.Formatted(dense))
	}
	back := TableFromDense(dense)
	for p := range table.Values {
		if back.Values[p] != table.Values[p] {
			t.Fatalf("expected %v, got %v", table.Values, back.Values)
		}
	}

	if _, err = NewTableFromRows([][]float64{{1}, {2, 3}}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for ragged rows, got %v", err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fileName, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return fileName
}

func TestReadCSVTable(t *testing.T) {
	fileName := writeFile(t, "features.csv", "a,b\n1,2.5\n-3,4e1\n")
	table, err := ReadTable(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Columns) != 2 || table.Columns[0] != "a" || table.Columns[1] != "b" {
		t.Fatalf("unexpected columns %v", table.Columns)
	}
	expected := []float64{1, 2.5, -3, 40}
	for p := range expected {
		if table.Values[p] != expected[p] {
			t.Fatalf("expected %v, got %v", expected, table.Values)
		}
	}

	fileName = writeFile(t, "broken.csv", "a,b\n1,x\n")
	if _, err = ReadCSVTable(fileName); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for a non-numeric cell, got %v", err)
	}
}

func TestWriteCSVColumn(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "prediction.csv")
	if err := WriteCSVColumn(fileName, "prediction", []float64{1.5, 2, -3}); err != nil {
		t.Fatal(err)
	}
	table, err := ReadCSVTable(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Columns) != 1 || table.Columns[0] != "prediction" {
		t.Fatalf("unexpected columns %v", table.Columns)
	}
	expected := []float64{1.5, 2, -3}
	for p := range expected {
		if table.Values[p] != expected[p] {
			t.Fatalf("expected %v, got %v", expected, table.Values)
		}
	}
}

func TestNpyRoundTrip(t *testing.T) {
	dir := t.TempDir()

	matrixName := filepath.Join(dir, "matrix.npy")
	if err := WriteNpy(matrixName, []float64{1, 2, 3, 4, 5, 6}, 3); err != nil {
		t.Fatal(err)
	}
	table, err := ReadTable(matrixName)
	if err != nil {
		t.Fatal(err)
	}
	if table.Width() != 3 || len(table.Values) != 6 || table.Values[4] != 5 {
		t.Fatalf("unexpected table %+v", table)
	}

	if err = WriteNpy(filepath.Join(dir, "bad.npy"), []float64{1, 2, 3}, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestReadNpyVector(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "vector.npy")
	f, err := os.Create(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if err = npyio.Write(f, []float64{7, 8, 9}); err != nil {
		t.Fatal(err)
	}
	if err = f.Close(); err != nil {
		t.Fatal(err)
	}

	table, err := ReadNpyTable(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if table.Width() != 1 || len(table.Values) != 3 || table.Values[2] != 9 {
		t.Fatalf("unexpected table %+v", table)
	}
}
