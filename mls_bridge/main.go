// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"unsafe"

	"github.com/mlsuite/mlsuite/mls"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	models            = make(map[uint64]mls.Learner)

	monitorMu       sync.Mutex
	pendingMonitors []mls.EvalSet

	lastErrorMu sync.Mutex
	lastError   string
)

// report records err for GetLastError and passes code through, so every exported
// function can end a failing step with a single return.
func report(err error, code C.int) C.int {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	lastError = ""
	if err != nil {
		lastError = err.Error()
	}
	return code
}

func storeModel(m mls.Learner) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	models[handle] = m
	nextHandle++
	return handle
}

func fetchModel(handle uint64) (mls.Learner, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	m, ok := models[handle]
	if !ok {
		return nil, errors.New("invalid model handle")
	}
	return m, nil
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(models, uint64(handle))
}

// doubles views a C buffer of n doubles without copying it.
func doubles(ptr *C.double, n int) ([]float64, error) {
	switch {
	case n < 0:
		return nil, errors.New("negative length")
	case n == 0:
		return nil, nil
	case ptr == nil:
		return nil, errors.New("null pointer for non-empty buffer")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), n), nil
}

// targets copies the target buffer of a dataset with the given number of rows.
func targets(ptr *C.double, rows C.int) ([]float64, error) {
	view, err := doubles(ptr, int(rows))
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), view...), nil
}

// buildRows copies a row-major rows x cols buffer into row vectors.
func buildRows(ptr *C.double, rows, cols C.int) ([][]float64, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	view, err := doubles(ptr, int(rows)*int(cols))
	if err != nil {
		return nil, err
	}
	return mls.Reshape(append([]float64(nil), view...), mls.ColumnNames(int(cols)))
}

//export RegisterLearningCurveDataset
func RegisterLearningCurveDataset(featuresPtr *C.double, rows, cols C.int, targetPtr *C.double, desc *C.char) C.int {
	X, err := buildRows(featuresPtr, rows, cols)
	if err != nil {
		return report(err, 1)
	}
	y, err := targets(targetPtr, rows)
	if err != nil {
		return report(err, 2)
	}

	evalSet := mls.EvalSet{X: X, Y: y}
	if desc != nil {
		evalSet.Description = C.GoString(desc)
	}

	monitorMu.Lock()
	pendingMonitors = append(pendingMonitors, evalSet)
	monitorMu.Unlock()
	return report(nil, 0)
}

// takeMonitors hands the queued learning curve datasets to one booster.
func takeMonitors() []mls.EvalSet {
	monitorMu.Lock()
	defer monitorMu.Unlock()
	evalSets := pendingMonitors
	pendingMonitors = nil
	return evalSets
}

func newLearner(kind string, cfg mls.ModelConfig) (mls.Learner, error) {
	if !strings.EqualFold(kind, mls.KindBooster) && !strings.EqualFold(kind, "Booster") {
		return mls.NewModel(kind, cfg)
	}
	params := cfg.BoosterParams()
	params.EvalSets = takeMonitors()
	booster, err := mls.NewBooster(params)
	if err != nil {
		return nil, err
	}
	return booster, nil
}

//export NewModel
func NewModel(kind, configJSON *C.char) C.ulonglong {
	// configJSON holds an mls.ModelConfig; queued learning curve datasets go to boosters only.
	var cfg mls.ModelConfig
	if configJSON != nil {
		if err := json.Unmarshal([]byte(C.GoString(configJSON)), &cfg); err != nil {
			report(err, 0)
			return 0
		}
	}
	model, err := newLearner(C.GoString(kind), cfg)
	if err != nil {
		report(err, 0)
		return 0
	}
	report(nil, 0)
	return C.ulonglong(storeModel(model))
}

//export Fit
func Fit(handle C.ulonglong, featuresPtr *C.double, rows, cols C.int, targetPtr *C.double) C.int {
	model, err := fetchModel(uint64(handle))
	if err != nil {
		return report(err, 1)
	}
	X, err := buildRows(featuresPtr, rows, cols)
	if err != nil {
		return report(err, 2)
	}
	y, err := targets(targetPtr, rows)
	if err != nil {
		return report(err, 3)
	}
	if err = model.FitRows(X, y); err != nil {
		return report(err, 4)
	}
	return report(nil, 0)
}

//export Predict
func Predict(handle C.ulonglong, featuresPtr *C.double, rows, cols C.int, outputPtr *C.double) C.int {
	model, err := fetchModel(uint64(handle))
	if err != nil {
		return report(err, 1)
	}
	X, err := buildRows(featuresPtr, rows, cols)
	if err != nil {
		return report(err, 2)
	}
	prediction, err := mls.PredictRows(model, X)
	if err != nil {
		return report(err, 3)
	}
	if outputPtr == nil {
		return report(errors.New("null output buffer"), 4)
	}
	copy(unsafe.Slice((*float64)(unsafe.Pointer(outputPtr)), len(prediction)), prediction)
	return report(nil, 0)
}

func orDefault(s *C.char, def string) string {
	if v := C.GoString(s); v != "" {
		return v
	}
	return def
}

//export RenderTrees
func RenderTrees(handle C.ulonglong, prefix, figureType, directory *C.char) C.int {
	model, err := fetchModel(uint64(handle))
	if err != nil {
		return report(err, 1)
	}
	var trees []*mls.DecisionTree
	switch m := model.(type) {
	case *mls.DecisionTree:
		trees = []*mls.DecisionTree{m}
	case mls.Renderable:
		trees = m.Trees()
	default:
		return report(errors.New(model.Name()+" has no trees"), 2)
	}

	_, err = mls.RenderTrees(trees, orDefault(prefix, "tree"), orDefault(figureType, "svg"), orDefault(directory, "."))
	if err != nil {
		return report(err, 3)
	}
	return report(nil, 0)
}

//export DumpLearningCurves
func DumpLearningCurves(handle C.ulonglong, path *C.char) C.int {
	model, err := fetchModel(uint64(handle))
	if err != nil {
		return report(err, 1)
	}
	booster, ok := model.(*mls.Booster)
	if !ok {
		return report(errors.New("learning curves are recorded by boosters only"), 2)
	}
	curves, err := booster.LearningCurvesDense()
	if err != nil {
		return report(err, 3)
	}
	_, w := curves.Dims()
	if err = mls.WriteNpy(C.GoString(path), curves.RawMatrix().Data, w); err != nil {
		return report(err, 4)
	}
	return report(nil, 0)
}

//export GetLastError
func GetLastError() *C.char {
	// The caller releases the copy with FreeCString.
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if lastError == "" {
		return nil
	}
	return C.CString(lastError)
}

//export FreeCString
func FreeCString(str *C.char) {
	C.free(unsafe.Pointer(str))
}

func main() {}
