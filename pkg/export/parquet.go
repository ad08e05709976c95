// Package export persists per-generation run history as Parquet so runs can
// be compared offline with the usual dataframe tooling.
package export

import (
	"context"
	"os"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/XiaoConstantine/genetic-go/pkg/engine"
	"github.com/XiaoConstantine/genetic-go/pkg/errors"
)

var historySchema = arrow.NewSchema([]arrow.Field{
	{Name: "run_id", Type: arrow.BinaryTypes.String},
	{Name: "generation", Type: arrow.PrimitiveTypes.Int64},
	{Name: "mse", Type: arrow.PrimitiveTypes.Float64},
	{Name: "best_fitness", Type: arrow.PrimitiveTypes.Float64},
	{Name: "mean_fitness", Type: arrow.PrimitiveTypes.Float64},
	{Name: "size", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// WriteHistory writes one row per generation of the run to a Parquet file at
// path, overwriting any existing file.
func WriteHistory(path string, result *engine.RunResult) error {
	if len(result.History) == 0 {
		return errors.New(errors.ExportFailed, "run has no history to export")
	}

	builder := array.NewRecordBuilder(memory.DefaultAllocator, historySchema)
	defer builder.Release()

	for _, stats := range result.History {
		builder.Field(0).(*array.StringBuilder).Append(result.RunID)
		builder.Field(1).(*array.Int64Builder).Append(int64(stats.Generation))
		builder.Field(2).(*array.Float64Builder).Append(stats.MSE)
		builder.Field(3).(*array.Float64Builder).Append(stats.BestFitness)
		builder.Field(4).(*array.Float64Builder).Append(stats.MeanFitness)
		builder.Field(5).(*array.Int64Builder).Append(int64(stats.Size))
	}

	record := builder.NewRecord()
	defer record.Release()

	table := array.NewTableFromRecords(historySchema, []arrow.Record{record})
	defer table.Release()

	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ExportFailed, "failed to create export file")
	}
	defer out.Close()

	err = pqarrow.WriteTable(table, out, int64(len(result.History)),
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.ExportFailed, "failed to write history table"),
			errors.Fields{"path": path})
	}
	return nil
}

// ReadHistory loads a history file written by WriteHistory. The run ID is
// taken from the first row; history files hold a single run.
func ReadHistory(path string) (string, []engine.GenerationStats, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ExportFailed, "failed to open history file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ExportFailed, "failed to read history file")
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ExportFailed, "failed to read history table")
	}
	defer table.Release()

	schema := table.Schema()
	col := func(name string) int {
		indices := schema.FieldIndices(name)
		if len(indices) == 0 {
			return -1
		}
		return indices[0]
	}
	for _, name := range []string{"run_id", "generation", "mse", "best_fitness", "mean_fitness", "size"} {
		if col(name) < 0 {
			return "", nil, errors.WithFields(
				errors.New(errors.ExportFailed, "history file missing column"),
				errors.Fields{"column": name})
		}
	}

	runIDs := table.Column(col("run_id")).Data().Chunk(0).(*array.String)
	generations := table.Column(col("generation")).Data().Chunk(0).(*array.Int64)
	mses := table.Column(col("mse")).Data().Chunk(0).(*array.Float64)
	bests := table.Column(col("best_fitness")).Data().Chunk(0).(*array.Float64)
	means := table.Column(col("mean_fitness")).Data().Chunk(0).(*array.Float64)
	sizes := table.Column(col("size")).Data().Chunk(0).(*array.Int64)

	runID := ""
	history := make([]engine.GenerationStats, table.NumRows())
	for i := 0; i < int(table.NumRows()); i++ {
		if i == 0 {
			runID = runIDs.Value(i)
		}
		history[i] = engine.GenerationStats{
			Generation:  int(generations.Value(i)),
			MSE:         mses.Value(i),
			BestFitness: bests.Value(i),
			MeanFitness: means.Value(i),
			Size:        int(sizes.Value(i)),
		}
	}

	return runID, history, nil
}
