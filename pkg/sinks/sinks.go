// Package sinks defines the interfaces the pipeline persists through.
// Both sinks use replace semantics: re-running a batch replaces prior
// output entirely rather than appending to it.
package sinks

import (
	"context"

	"github.com/centrimetry/subrec/pkg/reconcile"
	"github.com/centrimetry/subrec/pkg/subscribers"
	"github.com/centrimetry/subrec/pkg/transactions"
)

// RelationalSink accepts the matched set and the normalized subscribers
// for relational storage.
type RelationalSink interface {
	// PersistMatched replaces the subscribers and transactions tables
	// with the given finalized datasets, atomically.
	PersistMatched(ctx context.Context, subs []subscribers.Record, matched []reconcile.MatchedRecord) error
}

// ColumnarSink accepts the unmatched set for columnar file storage.
type ColumnarSink interface {
	// PersistUnmatched overwrites the batch output file with the given
	// unmatched records.
	PersistUnmatched(ctx context.Context, records []transactions.Record) error
}
