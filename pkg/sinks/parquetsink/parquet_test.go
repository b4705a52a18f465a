package parquetsink_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centrimetry/subrec/pkg/sinks/parquetsink"
	"github.com/centrimetry/subrec/pkg/transactions"
)

func unmatched(ts, id, amount, channel string) transactions.Record {
	parsed, err := time.ParseInLocation(transactions.TimestampLayout, ts, time.UTC)
	if err != nil {
		panic(err)
	}
	return transactions.Record{
		Timestamp:    parsed,
		SubscriberID: id,
		Amount:       decimal.RequireFromString(amount),
		Channel:      channel,
	}
}

// parquetMagic is the 4-byte marker opening and closing every Parquet file.
const parquetMagic = "PAR1"

func assertParquetFile(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, parquetMagic, string(data[:4]))
	assert.Equal(t, parquetMagic, string(data[len(data)-4:]))
}

func TestPersistUnmatched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unmatched.parquet")
	writer := parquetsink.New(path)

	records := []transactions.Record{
		unmatched("2020-02-03 00:00:00", "B", "5.00", "SMS"),
		unmatched("2020-02-04 12:30:00", "C", "7.25", "Online"),
	}
	require.NoError(t, writer.PersistUnmatched(context.Background(), records))

	assertParquetFile(t, path)
}

func TestPersistUnmatchedOverwritesOnRerun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unmatched.parquet")
	writer := parquetsink.New(path)

	many := []transactions.Record{
		unmatched("2020-02-03 00:00:00", "B", "5.00", "SMS"),
		unmatched("2020-02-04 12:30:00", "C", "7.25", "Online"),
		unmatched("2020-02-05 09:00:00", "D", "1.00", "SMS"),
	}
	require.NoError(t, writer.PersistUnmatched(context.Background(), many))
	first, err := os.Stat(path)
	require.NoError(t, err)

	// A rerun with fewer records must replace, not append.
	few := many[:1]
	require.NoError(t, writer.PersistUnmatched(context.Background(), few))
	second, err := os.Stat(path)
	require.NoError(t, err)

	assert.LessOrEqual(t, second.Size(), first.Size())
	assertParquetFile(t, path)
}

func TestPersistUnmatchedEmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unmatched.parquet")
	writer := parquetsink.New(path)

	require.NoError(t, writer.PersistUnmatched(context.Background(), nil))
	assertParquetFile(t, path)
}

func TestPersistUnmatchedCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "batch", "unmatched.parquet")
	writer := parquetsink.New(path)

	require.NoError(t, writer.PersistUnmatched(context.Background(), nil))
	assertParquetFile(t, path)
}
