package tabular

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

const adultSample = `age, workclass, fnlwgt, salary_50k
39, State-gov, 77516, 0
50, ?, 83311, 1
38, Private, , 0
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(adultSample), DefaultReadOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, []string{"age", "workclass", "fnlwgt", "salary_50k"}, tbl.Names())

	wc, err := tbl.Strings("workclass")
	require.NoError(t, err)
	assert.Equal(t, "State-gov", wc.Text(0))
	assert.True(t, wc.IsMissing(1))

	age, err := tbl.Floats("age")
	require.NoError(t, err)
	assert.Equal(t, []float64{39, 50, 38}, age)

	fnl, err := tbl.Strings("fnlwgt")
	require.NoError(t, err)
	assert.True(t, fnl.IsMissing(2))
}

func TestReadCSVWithoutTrimming(t *testing.T) {
	opts := DefaultReadOptions()
	opts.TrimSpace = false
	opts.MissingTokens = []string{" ?"}

	tbl, err := ReadCSV(strings.NewReader(adultSample), opts)
	require.NoError(t, err)
	assert.True(t, tbl.Has(" workclass"))

	wc, err := tbl.Strings(" workclass")
	require.NoError(t, err)
	assert.Equal(t, " State-gov", wc.Text(0))
	assert.True(t, wc.IsMissing(1))
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), DefaultReadOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"), DefaultReadOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	_, err = ReadCSV(strings.NewReader("a,b\n1,2\n3\n"), DefaultReadOptions())
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func auxTable(t *testing.T) *columnar.Table {
	t.Helper()
	tbl := columnar.NewTable(3)
	require.NoError(t, tbl.AddColumn("subset", columnar.StringColumnOf("TRAIN", "TRAIN", "TEST")))
	require.NoError(t, tbl.AddColumn("salary_50k", columnar.StringColumnOf("0", "1", "0")))
	weight := columnar.NewStringColumn(3)
	weight.Append("77516")
	weight.AppendMissing()
	weight.Append("215646")
	require.NoError(t, tbl.AddColumn("fnlwgt", weight))
	return tbl
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, auxTable(t), []string{"subset", "salary_50k", "fnlwgt"}))
	assert.Equal(t, "subset,salary_50k,fnlwgt\nTRAIN,0,77516\nTRAIN,1,\nTEST,0,215646\n", buf.String())

	err := WriteCSV(&buf, auxTable(t), []string{"outcome"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, auxTable(t), []string{"subset", "salary_50k", "fnlwgt"}))

	fr, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer fr.Close()
	assert.Equal(t, int64(3), fr.NumRows())

	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	require.NoError(t, err)
	tbl, err := ar.ReadTable(context.Background())
	require.NoError(t, err)
	defer tbl.Release()

	schema := tbl.Schema()
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, arrow.STRING, schema.Field(0).Type.ID())
	assert.Equal(t, arrow.FLOAT64, schema.Field(1).Type.ID())
	assert.Equal(t, arrow.FLOAT64, schema.Field(2).Type.ID())
	assert.Equal(t, 1, tbl.Column(2).Data().NullN())
}
