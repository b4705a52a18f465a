// Package subrec reconciles a subscriber registry feed against a
// transaction log feed into a single validated, deduplicated dataset.
// Known data-quality defects are repaired on the way: misaligned fields,
// missing timestamps, corrupted amounts, and invalid channel codes.
//
// A batch either fully succeeds, with the matched set written to the
// relational sink and the unmatched set to the columnar sink, or fully
// fails with neither sink written.
package subrec

import (
	"context"
	"time"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/logging"
	"github.com/centrimetry/subrec/pkg/reconcile"
	"github.com/centrimetry/subrec/pkg/repair"
	"github.com/centrimetry/subrec/pkg/subscribers"
	"github.com/centrimetry/subrec/pkg/transactions"
)

// Pipeline wires the cleaning-and-reconciliation stages to the feed
// readers and sinks. It holds no state across batches; a Pipeline may be
// reused for independent runs.
type Pipeline struct {
	config *config
}

// New creates a Pipeline with options.
func New(opts ...Option) (*Pipeline, error) {
	c, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{config: c}, nil
}

// Run executes one batch: read feeds, normalize subscribers, repair
// transactions, select the latest record per subscriber, reconcile, then
// persist both sinks. No sink is written until every in-memory stage has
// succeeded.
func (p *Pipeline) Run(ctx context.Context) (*reconcile.Result, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	rawSubs, err := p.config.subscriberReader.ReadSubscribers()
	if err != nil {
		return nil, err
	}
	rawTxns, err := p.config.transactionReader.ReadTransactions()
	if err != nil {
		return nil, err
	}
	if len(rawSubs) == 0 {
		log.Warn().Msg("Subscriber feed is empty; all transactions will be unmatched")
	}
	if len(rawTxns) == 0 {
		log.Warn().Msg("Transaction feed is empty")
	}

	subs, err := subscribers.Normalize(ctx, rawSubs)
	if err != nil {
		return nil, err
	}

	repaired, err := repair.New(p.config.repair).Repair(ctx, rawTxns)
	if err != nil {
		return nil, err
	}

	latest, err := transactions.SelectLatest(ctx, repaired)
	if err != nil {
		return nil, err
	}

	result, err := reconcile.Reconcile(ctx, subs, latest)
	if err != nil {
		return nil, err
	}

	// All in-memory stages succeeded; only now touch the sinks. The two
	// writes are independent and either order would do.
	if err := p.config.relational.PersistMatched(ctx, subs, result.Matched); err != nil {
		return nil, err
	}
	if err := p.config.columnar.PersistUnmatched(ctx, result.Unmatched); err != nil {
		return nil, err
	}

	log.Info().
		Int("matched", len(result.Matched)).
		Int("unmatched", len(result.Unmatched)).
		Dur("duration", time.Since(start)).
		Msg("Batch completed")

	return result, nil
}

// validate checks that every collaborator is wired.
func (c *config) validate() error {
	if c.subscriberReader == nil {
		return errors.NewValidationError("subscriberReader", nil, "a subscriber reader is required")
	}
	if c.transactionReader == nil {
		return errors.NewValidationError("transactionReader", nil, "a transaction reader is required")
	}
	if c.relational == nil {
		return errors.NewValidationError("relationalSink", nil, "a relational sink is required")
	}
	if c.columnar == nil {
		return errors.NewValidationError("columnarSink", nil, "a columnar sink is required")
	}
	return nil
}
