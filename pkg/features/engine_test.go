package features

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/csc"
	"github.com/ajitpratap0/bolasso/pkg/errors"
	"github.com/ajitpratap0/bolasso/pkg/tabular"
	"github.com/ajitpratap0/bolasso/pkg/testutil"
)

type sink struct {
	bytes.Buffer
	closes int
}

func (s *sink) Close() error {
	s.closes++
	return nil
}

type harness struct {
	engine *Engine
	out    *sink
	logs   *observer.ObservedLogs
}

func readTable(t *testing.T, data string) *columnar.Table {
	t.Helper()
	tbl, err := tabular.ReadCSV(strings.NewReader(data), tabular.DefaultReadOptions())
	require.NoError(t, err)
	return tbl
}

func newHarness(t *testing.T, train, test string) *harness {
	t.Helper()
	log, logs := testutil.ObservedLogger()
	out := &sink{}
	engine, err := New(readTable(t, train), readTable(t, test), out, log)
	require.NoError(t, err)
	return &harness{engine: engine, out: out, logs: logs}
}

// matrix closes the engine and parses its output
func (h *harness) matrix(t *testing.T) ([]string, map[string][]float64) {
	t.Helper()
	require.NoError(t, h.engine.Close())

	r, err := csc.NewReader(bytes.NewReader(h.out.Bytes()))
	require.NoError(t, err)
	cols, err := r.ReadAll()
	require.NoError(t, err)

	names := make([]string, 0, len(cols))
	dense := make(map[string][]float64, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
		dense[col.Name] = col.Dense(r.Rows())
	}
	return names, dense
}

func TestNew(t *testing.T) {
	h := newHarness(t, "a,b\n1,x\n2,y\n", "a,b\n3,z\n")
	assert.Equal(t, 3, h.engine.Rows())
	assert.Equal(t, 2, h.engine.TrainingRows())
	assert.Equal(t, []bool{true, true, false}, h.engine.TrainingMask())
	assert.Equal(t, []string{"a", "b"}, h.engine.Outstanding())

	subset, err := h.engine.Table().Strings(SubsetColumn)
	require.NoError(t, err)
	assert.Equal(t, "TRAIN", subset.Text(1))
	assert.Equal(t, "TEST", subset.Text(2))
	assert.Equal(t, "#csc start nrow=3\n", h.out.String()[:len("#csc start nrow=3\n")])
}

func TestNewRejects(t *testing.T) {
	log := zap.NewNop()
	var out bytes.Buffer

	_, err := New(readTable(t, "subset,a\n1,2\n"), readTable(t, "subset,a\n1,2\n"), &out, log)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	_, err = New(readTable(t, "a,b\n1,2\n"), readTable(t, "b,a\n1,2\n"), &out, log)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = New(readTable(t, "a,b\n1,2\n"), readTable(t, "a\n1\n"), &out, log)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = New(readTable(t, "a\n"), readTable(t, "a\n1\n"), &out, log)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestCategorical(t *testing.T) {
	h := newHarness(t,
		"color\nred\nred\nred\nblue\nblue\ngreen\n?\n",
		"color\npurple\nblue\n")
	require.NoError(t, h.engine.Categorical("color"))

	assert.Equal(t, []string{"COLOR_BLUE", "COLOR_GREEN", "COLOR_MISSING"}, h.engine.FeatureMap().Derived("color"))
	assert.False(t, h.engine.Table().Has("color"))
	assert.Empty(t, h.engine.Outstanding())

	names, dense := h.matrix(t)
	// distinct training categories (red, blue, green, MISSING) minus the reference
	assert.Len(t, names, 3)
	assert.NotContains(t, names, "COLOR_RED")
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 0, 0, 0, 1}, dense["COLOR_BLUE"])
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 1, 0, 0, 0}, dense["COLOR_GREEN"])
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 1, 0, 0}, dense["COLOR_MISSING"])
	assert.Equal(t, 1, h.out.closes)
}

func TestCategoricalTieGoesToFirstSeen(t *testing.T) {
	h := newHarness(t, "g\nb\na\na\nb\n", "g\na\n")
	require.NoError(t, h.engine.Categorical("g"))
	assert.Equal(t, []string{"G_A"}, h.engine.FeatureMap().Derived("g"))
}

func TestCategoricalSingleLevel(t *testing.T) {
	h := newHarness(t, "g\na\na\n", "g\nb\n")
	require.NoError(t, h.engine.Categorical("g"))
	assert.Equal(t, 0, h.engine.FeatureMap().Len())
	names, _ := h.matrix(t)
	assert.Empty(t, names)
}

func TestCategoricalDuplicateNameIsFatal(t *testing.T) {
	h := newHarness(t, "g\nx\nx\nx\nb c\nb_c\n", "g\nx\n")
	err := h.engine.Categorical("g")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestContinuousStandardizes(t *testing.T) {
	h := newHarness(t, "x\n1\n2\n3\n4\n10\n", "x\n7\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{Squared: true, Cubed: true}))
	assert.Equal(t, []string{"X", "X_SQUARED", "X_CUBED"}, h.engine.FeatureMap().Derived("x"))

	names, dense := h.matrix(t)
	assert.Equal(t, []string{"X", "X_SQUARED", "X_CUBED"}, names)
	for _, name := range names {
		mean, sd := stat.MeanStdDev(dense[name][:5], nil)
		assert.InDelta(t, 0, mean, 1e-5, name)
		assert.InDelta(t, 1, sd, 1e-5, name)
	}

	rawMean, rawSD := stat.MeanStdDev([]float64{1, 2, 3, 4, 10}, nil)
	assert.InDelta(t, (7-rawMean)/rawSD, dense["X"][5], 1e-5)
	sqMean, sqSD := stat.MeanStdDev([]float64{1, 4, 9, 16, 100}, nil)
	assert.InDelta(t, (49-sqMean)/sqSD, dense["X_SQUARED"][5], 1e-4)
}

func TestContinuousMissingIndicator(t *testing.T) {
	h := newHarness(t, "x\n1\n2\n3\n4\n?\n", "x\n?\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{}))

	names, dense := h.matrix(t)
	assert.Equal(t, []string{"X_MISSING", "X"}, names)
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 1}, dense["X_MISSING"])
	// missing rows sit at the training mean after standardizing
	assert.Equal(t, 0.0, dense["X"][4])
	assert.Equal(t, 0.0, dense["X"][5])
	mean, sd := stat.MeanStdDev(dense["X"][:4], nil)
	assert.InDelta(t, 0, mean, 1e-5)
	assert.InDelta(t, 1, sd, 1e-5)
}

func TestContinuousMissingOnlyInTest(t *testing.T) {
	h := newHarness(t, "x\n1\n2\n", "x\n?\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{}))
	assert.Equal(t, []string{"X"}, h.engine.FeatureMap().Derived("x"))
}

func TestContinuousOmitMissingIndicator(t *testing.T) {
	h := newHarness(t, "x\n1\n?\n3\n", "x\n2\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{OmitMissingIndicator: true}))
	assert.Equal(t, []string{"X"}, h.engine.FeatureMap().Derived("x"))
}

func TestContinuousZeroVarianceEmitsUnscaled(t *testing.T) {
	h := newHarness(t, "x\n5\n5\n?\n", "x\n7\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{}))

	names, dense := h.matrix(t)
	assert.Contains(t, names, "X")
	assert.Equal(t, []float64{5, 5, 0, 7}, dense["X"])
	assert.Equal(t, []string{"X"}, testutil.Warnings(h.logs, "column has zero standard deviation, leaving unscaled"))
}

func TestContinuousConstantColumnDropped(t *testing.T) {
	h := newHarness(t, "x\n5\n5\n", "x\n7\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{}))

	names, _ := h.matrix(t)
	assert.Empty(t, names)
	assert.Equal(t, []string{"X"}, testutil.Warnings(h.logs, "dropping empty column"))
	// still registered so the family takes part in interactions
	assert.Equal(t, []string{"X"}, h.engine.FeatureMap().Derived("x"))
}

func TestContinuousTopCode(t *testing.T) {
	tests := []struct {
		name  string
		train string
		test  string
		q     float64
		// training values after clipping, then the clipped test value
		clipped []float64
	}{
		{"upper tail", "x\n1\n2\n3\n4\n100\n", "x\n200\n", 0.8, []float64{1, 2, 3, 4, 23.2, 23.2}},
		{"unsorted input", "x\n4\n1\n3\n2\n", "x\n0\n", 0.25, []float64{1.75, 1, 1.75, 1.75, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.train, tt.test)
			require.NoError(t, h.engine.Continuous("x", ContinuousOptions{TopCode: tt.q}))

			_, dense := h.matrix(t)
			n := len(tt.clipped) - 1
			mean, sd := stat.MeanStdDev(tt.clipped[:n], nil)
			want := make([]float64, len(tt.clipped))
			for i, v := range tt.clipped {
				want[i] = (v - mean) / sd
			}
			assert.InDeltaSlice(t, want, dense["X"], 1e-9)
		})
	}
}

func TestContinuousTopCodeLinearRank(t *testing.T) {
	h := newHarness(t, "x\n1\n2\n3\n4\n", "x\n9\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{TopCode: 0.5}))

	_, dense := h.matrix(t)
	s := math.Sqrt(0.5)
	assert.InDeltaSlice(t, []float64{-1 / s, 0, 0.5 / s, 0.5 / s, 0.5 / s}, dense["X"], 1e-9)
}

func TestContinuousTopCodeRange(t *testing.T) {
	h := newHarness(t, "x\n1\n2\n", "x\n3\n")
	err := h.engine.Continuous("x", ContinuousOptions{TopCode: 1.5})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestContinuousLog(t *testing.T) {
	e := math.E
	train := "x\n1\n" + csvFloat(e) + "\n" + csvFloat(e*e) + "\n"
	h := newHarness(t, train, "x\n"+csvFloat(e*e*e)+"\n")
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{Log: true}))

	_, dense := h.matrix(t)
	// log values 0, 1, 2 have mean 1 and sample sd 1
	assert.InDeltaSlice(t, []float64{-1, 0, 1, 2}, dense["X"], 1e-5)
}

func TestContinuousRejectsText(t *testing.T) {
	h := newHarness(t, "x\n1\nabc\n", "x\n2\n")
	err := h.engine.Continuous("x", ContinuousOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestContinuousAlreadyUpperCase(t *testing.T) {
	h := newHarness(t, "AGE\n1\n2\n", "AGE\n3\n")
	require.NoError(t, h.engine.Continuous("AGE", ContinuousOptions{}))
	assert.Equal(t, []string{"AGE"}, h.engine.FeatureMap().Derived("AGE"))
}

func TestContinuousNameCollisionIsFatal(t *testing.T) {
	h := newHarness(t, "age,AGE\n1,1\n2,3\n", "age,AGE\n3,2\n")
	require.NoError(t, h.engine.Continuous("AGE", ContinuousOptions{}))
	err := h.engine.Continuous("age", ContinuousOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestHurdle(t *testing.T) {
	h := newHarness(t, "x\n0\n0\n5\n10\n?\n", "x\n0\n20\n")
	require.NoError(t, h.engine.Hurdle("x", HurdleOptions{}))
	assert.Equal(t, []string{"X_MISSING", "X_NONZERO", "X"}, h.engine.FeatureMap().Derived("x"))

	names, dense := h.matrix(t)
	assert.Equal(t, []string{"X_MISSING", "X_NONZERO", "X"}, names)
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 0, 0}, dense["X_MISSING"])
	assert.Equal(t, []float64{0, 0, 1, 1, 0, 0, 1}, dense["X_NONZERO"])

	sd := math.Sqrt(12.5)
	want := []float64{0, 0, -2.5 / sd, 2.5 / sd, 0, 0, 12.5 / sd}
	assert.InDeltaSlice(t, want, dense["X"], 1e-5)
}

func TestHurdleThresholdAndLog(t *testing.T) {
	h := newHarness(t, "x\n1\n1\n"+csvFloat(math.E)+"\n"+csvFloat(math.E*math.E*math.E)+"\n", "x\n0.5\n")
	require.NoError(t, h.engine.Hurdle("x", HurdleOptions{Threshold: 1, Log: true}))

	_, dense := h.matrix(t)
	assert.Equal(t, []float64{0, 0, 1, 1, 0}, dense["X_NONZERO"])
	// log values 1 and 3 standardize to -1/sqrt(2) and 1/sqrt(2)
	assert.InDeltaSlice(t, []float64{0, 0, -math.Sqrt2 / 2, math.Sqrt2 / 2, 0}, dense["X"], 1e-5)
}

func TestHurdleSingleTrainingValueAboveThreshold(t *testing.T) {
	h := newHarness(t, "x\n0\n0\n5\n", "x\n7\n")
	require.NoError(t, h.engine.Hurdle("x", HurdleOptions{}))
	assert.Equal(t, []string{"X_NONZERO", "X"}, h.engine.FeatureMap().Derived("x"))

	names, dense := h.matrix(t)
	assert.Equal(t, []string{"X_NONZERO"}, names)
	assert.Equal(t, []float64{0, 0, 1, 1}, dense["X_NONZERO"])
	assert.Equal(t, []string{"X"}, testutil.Warnings(h.logs, "column has fewer than two training values, clearing it"))
	assert.Equal(t, []string{"X"}, testutil.Warnings(h.logs, "dropping empty column"))
	assert.Empty(t, testutil.Warnings(h.logs, "column has zero standard deviation, leaving unscaled"))
}

func TestHurdleNothingAboveThreshold(t *testing.T) {
	h := newHarness(t, "x\n0\n0\n", "x\n5\n")
	require.NoError(t, h.engine.Hurdle("x", HurdleOptions{}))
	assert.Equal(t, []string{"X"}, h.engine.FeatureMap().Derived("x"))
}

func TestAtOrBelowPartitionsRows(t *testing.T) {
	values := []float64{-1, 0, 0.5, 3, 0}
	below := atOrBelow(values, 0)
	above := where(values, func(v float64) bool { return v > 0 })
	for i := range values {
		assert.NotEqual(t, below[i], above[i], "row %d", i)
	}

	masked := append([]float64(nil), values...)
	assign(masked, below, math.NaN())
	for i, v := range masked {
		assert.Equal(t, below[i], math.IsNaN(v), "row %d", i)
	}
}

func TestDropAndKeep(t *testing.T) {
	h := newHarness(t, "a,b,c\n1,2,3\n4,5,6\n", "a,b,c\n7,8,9\n")
	require.NoError(t, h.engine.Drop("a"))
	require.NoError(t, h.engine.Keep("b"))
	assert.False(t, h.engine.Table().Has("a"))
	assert.True(t, h.engine.Table().Has("b"))
	assert.Equal(t, []string{"c"}, h.engine.Outstanding())

	for _, err := range []error{
		h.engine.Drop("a"),
		h.engine.Keep("b"),
		h.engine.Categorical("b"),
		h.engine.Continuous("missing", ContinuousOptions{}),
		h.engine.Drop(SubsetColumn),
	} {
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	}
}

func TestCloseWarnsAboutOutstanding(t *testing.T) {
	h := newHarness(t, "z,a\n1,2\n", "z,a\n3,4\n")
	require.NoError(t, h.engine.Close())
	require.NoError(t, h.engine.Close())

	entries := h.logs.FilterMessage("outstanding features that have not been processed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []interface{}{"a", "z"}, entries[0].ContextMap()["columns"])
	assert.Equal(t, "#csc start nrow=2\n#csc end ncol=0\n", h.out.String())
	assert.Equal(t, 1, h.out.closes)

	assert.Error(t, h.engine.Drop("a"))
	assert.Error(t, h.engine.Interactions())
}

func TestWriteAuxiliary(t *testing.T) {
	h := newHarness(t, "y,w,x\n1,0.5,3\n0,1.5,?\n", "y,w,x\n1,2,4\n")
	require.NoError(t, h.engine.Keep("y"))
	require.NoError(t, h.engine.Keep("w"))
	require.NoError(t, h.engine.Continuous("x", ContinuousOptions{}))
	require.NoError(t, h.engine.Close())

	var buf bytes.Buffer
	require.NoError(t, h.engine.WriteAuxiliary(&buf, tabular.FormatCSV, SubsetColumn, "y", "w"))
	assert.Equal(t, "subset,y,w\nTRAIN,1,0.5\nTRAIN,0,1.5\nTEST,1,2\n", buf.String())

	err := h.engine.WriteAuxiliary(&buf, tabular.FormatCSV, "x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
