package model

import (
	"io"
	"time"

	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/floor"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/fraugster/parquet-go/parquetschema"
	"github.com/pkg/errors"
)

const parquetTestResultSchema = `message test_result {
	required binary id (STRING);
	required binary test_id (STRING);
	required int64 build_number;
	required binary plant (STRING);
	required binary branch (STRING);
	required binary revision (STRING);
	required double metric;
	required int64 timestamp;
	required binary description (STRING);
	required int64 seq;
}`

// ParquetTestResult is the flattened row written to Parquet exports.
// Timestamps are stored as Unix milliseconds.
type ParquetTestResult struct {
	ID          string  `parquet:"id"`
	TestID      string  `parquet:"test_id"`
	BuildNumber int64   `parquet:"build_number"`
	Plant       string  `parquet:"plant"`
	Branch      string  `parquet:"branch"`
	Revision    string  `parquet:"revision"`
	Metric      float64 `parquet:"metric"`
	Timestamp   int64   `parquet:"timestamp"`
	Description string  `parquet:"description"`
	Sequence    int64   `parquet:"seq"`
}

// ConvertToParquetTestResult flattens the result into its export row.
func (r TestResult) ConvertToParquetTestResult() ParquetTestResult {
	return ParquetTestResult{
		ID:          r.ID,
		TestID:      r.TestID,
		BuildNumber: int64(r.BuildNumber),
		Plant:       r.Plant,
		Branch:      r.Branch,
		Revision:    r.Revision,
		Metric:      r.Metric,
		Timestamp:   r.Timestamp.UnixMilli(),
		Description: r.Description,
		Sequence:    r.Sequence,
	}
}

// Export converts the export row back into a result.
func (r ParquetTestResult) Export() TestResult {
	return TestResult{
		ID:          r.ID,
		TestID:      r.TestID,
		BuildNumber: int(r.BuildNumber),
		Plant:       r.Plant,
		Branch:      r.Branch,
		Revision:    r.Revision,
		Metric:      r.Metric,
		Timestamp:   time.UnixMilli(r.Timestamp).UTC(),
		Description: r.Description,
		Sequence:    r.Sequence,
		populated:   true,
	}
}

// WriteResultsParquet writes the results to w as a Snappy compressed Parquet
// file, one row per result.
func WriteResultsParquet(w io.Writer, results []TestResult) error {
	schema, err := parquetschema.ParseSchemaDefinition(parquetTestResultSchema)
	if err != nil {
		return errors.Wrap(err, "parsing parquet schema")
	}

	fw := goparquet.NewFileWriter(w,
		goparquet.WithSchemaDefinition(schema),
		goparquet.WithCompressionCodec(parquet.CompressionCodec_SNAPPY),
		goparquet.WithCreator("perffarm"),
	)
	pw := floor.NewWriter(fw)

	for _, r := range results {
		if err = pw.Write(r.ConvertToParquetTestResult()); err != nil {
			_ = pw.Close()
			return errors.Wrapf(err, "writing result '%s'", r.ID)
		}
	}

	return errors.Wrap(pw.Close(), "closing parquet writer")
}

// ReadResultsParquet reads every result from a Parquet file produced by
// WriteResultsParquet.
func ReadResultsParquet(r io.ReadSeeker) ([]TestResult, error) {
	fr, err := goparquet.NewFileReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet file")
	}

	pr := floor.NewReader(fr)
	defer pr.Close()

	results := []TestResult{}
	for pr.Next() {
		row := ParquetTestResult{}
		if err = pr.Scan(&row); err != nil {
			return nil, errors.Wrap(err, "scanning parquet row")
		}
		results = append(results, row.Export())
	}

	return results, errors.Wrap(pr.Err(), "reading parquet rows")
}
