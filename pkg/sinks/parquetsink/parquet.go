// Package parquetsink writes the unmatched transaction set to a Parquet
// file, one file per batch run, overwriting any prior output.
package parquetsink

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/logging"
	"github.com/centrimetry/subrec/pkg/transactions"
)

// Schema holds the transaction fields of the unmatched set; the
// subscriber-side columns are absent by definition.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "timestamp", Type: arrow.BinaryTypes.String},
	{Name: "sub_id", Type: arrow.BinaryTypes.String},
	{Name: "amount", Type: arrow.BinaryTypes.String},
	{Name: "channel", Type: arrow.BinaryTypes.String},
}, nil)

// Writer is a Parquet-backed ColumnarSink.
type Writer struct {
	path  string
	alloc memory.Allocator
}

// New creates a Writer targeting the given output path.
func New(path string) *Writer {
	return &Writer{
		path:  path,
		alloc: memory.NewGoAllocator(),
	}
}

// PersistUnmatched implements sinks.ColumnarSink. The output file is
// truncated and rewritten, so re-running a batch replaces prior output
// entirely. An empty record set still produces a valid zero-row file.
func (w *Writer) PersistUnmatched(ctx context.Context, records []transactions.Record) error {
	log := logging.FromContext(ctx)

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}

	record := w.buildRecord(records)
	defer record.Release()

	f, err := os.Create(w.path)
	if err != nil {
		return errors.WrapIO("create", w.path, err)
	}

	writer, err := pqarrow.NewFileWriter(Schema, f, nil, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return errors.WrapSink("parquet", w.path, len(records), err)
	}

	// The writer owns the file from here: its Close also closes f.
	if err := writer.Write(record); err != nil {
		writer.Close()
		return errors.WrapSink("parquet", w.path, len(records), err)
	}

	if err := writer.Close(); err != nil {
		return errors.WrapSink("parquet", w.path, len(records), err)
	}

	log.Info().
		Str("path", w.path).
		Int("records", len(records)).
		Msg("Wrote unmatched set to Parquet")

	return nil
}

// buildRecord assembles the Arrow record batch for the unmatched set.
func (w *Writer) buildRecord(records []transactions.Record) arrow.Record {
	timestampBuilder := array.NewStringBuilder(w.alloc)
	subIDBuilder := array.NewStringBuilder(w.alloc)
	amountBuilder := array.NewStringBuilder(w.alloc)
	channelBuilder := array.NewStringBuilder(w.alloc)

	defer timestampBuilder.Release()
	defer subIDBuilder.Release()
	defer amountBuilder.Release()
	defer channelBuilder.Release()

	for _, r := range records {
		timestampBuilder.Append(r.FormatTimestamp())
		subIDBuilder.Append(r.SubscriberID)
		amountBuilder.Append(r.FormatAmount())
		channelBuilder.Append(r.Channel)
	}

	return array.NewRecord(Schema, []arrow.Array{
		timestampBuilder.NewArray(),
		subIDBuilder.NewArray(),
		amountBuilder.NewArray(),
		channelBuilder.NewArray(),
	}, int64(len(records)))
}
