package tabular

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/bolasso/pkg/columnar"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// WriteParquet writes the named columns of t as a single row group. Float
// columns, and text columns whose present values all parse as numbers, become
// nullable float64 columns; other text columns become nullable strings.
func WriteParquet(w io.Writer, t *columnar.Table, columns []string) error {
	cols, err := lookup(t, columns)
	if err != nil {
		return err
	}

	fields := make([]arrow.Field, len(cols))
	numeric := make([][]float64, len(cols))
	for i, col := range cols {
		switch c := col.(type) {
		case *columnar.FloatColumn:
			numeric[i] = c.Values()
		case *columnar.StringColumn:
			if values, err := c.Floats(); err == nil {
				numeric[i] = values
			}
		}
		if numeric[i] != nil {
			fields[i] = arrow.Field{Name: columns[i], Type: arrow.PrimitiveTypes.Float64, Nullable: true}
		} else {
			fields[i] = arrow.Field{Name: columns[i], Type: arrow.BinaryTypes.String, Nullable: true}
		}
	}
	schema := arrow.NewSchema(fields, nil)

	pool := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	for i, col := range cols {
		switch b := builder.Field(i).(type) {
		case *array.Float64Builder:
			b.Reserve(t.Rows())
			for row, v := range numeric[i] {
				if col.IsMissing(row) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
		case *array.StringBuilder:
			b.Reserve(t.Rows())
			for row := 0; row < t.Rows(); row++ {
				if col.IsMissing(row) {
					b.AppendNull()
				} else {
					b.Append(col.Text(row))
				}
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(pool))

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create parquet writer")
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write parquet record batch")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close parquet writer")
	}
	return nil
}
