// Package reconcile joins the de-duplicated transaction set against the
// normalized subscriber set, partitioning it into matched and unmatched
// records.
package reconcile

import (
	"context"
	"time"

	"github.com/centrimetry/subrec/pkg/logging"
	"github.com/centrimetry/subrec/pkg/subscribers"
	"github.com/centrimetry/subrec/pkg/transactions"
)

// MatchedRecord combines a transaction with the subscriber snapshot it
// resolved against. SubRowKey carries the subscriber's composite key into
// the reconciled output.
type MatchedRecord struct {
	transactions.Record
	ActivationDate time.Time
	SubRowKey      string
}

// Reconcile joins transactions against subscribers on subscriber ID.
//
// The join is a left join with an explicit null check on the subscriber
// side: every transaction appears in exactly one of the two output sets,
// and their union projected onto subscriber ID equals the input. An empty
// subscriber set yields an entirely unmatched result, which is valid.
func Reconcile(ctx context.Context, subs []subscribers.Record, txns []transactions.Record) (*Result, error) {
	log := logging.FromContext(ctx)
	result := NewResult()

	bySubscriber := make(map[string]subscribers.Record, len(subs))
	for _, sub := range subs {
		bySubscriber[sub.ID] = sub
	}

	for _, txn := range txns {
		sub, ok := bySubscriber[txn.SubscriberID]
		if !ok {
			// Subscriber side is null: the transaction goes to the
			// unmatched set with its subscriber columns dropped.
			result.Unmatched = append(result.Unmatched, txn)
			continue
		}
		result.Matched = append(result.Matched, MatchedRecord{
			Record:         txn,
			ActivationDate: sub.ActivationDate,
			SubRowKey:      sub.RowKey,
		})
	}

	result.Metadata.Subscribers = len(subs)
	result.Metadata.TransactionsIn = len(txns)
	result.Finalize()

	if err := result.Partitioned(txns); err != nil {
		return nil, err
	}

	log.Info().
		Int("matched", len(result.Matched)).
		Int("unmatched", len(result.Unmatched)).
		Dur("duration", result.Metadata.Duration).
		Msg("Reconciled transactions against subscribers")

	return result, nil
}
