package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centrimetry/subrec/pkg/reconcile"
	"github.com/centrimetry/subrec/pkg/subscribers"
	"github.com/centrimetry/subrec/pkg/transactions"
)

func subscriber(id, activation string) subscribers.Record {
	date, err := time.ParseInLocation(subscribers.DateLayout, activation, time.UTC)
	if err != nil {
		panic(err)
	}
	return subscribers.Record{
		RowKey:         subscribers.RowKey(id, date),
		ID:             id,
		ActivationDate: date,
	}
}

func transaction(ts, id, amount, channel string) transactions.Record {
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

func TestReconcilePartitionsMatchedAndUnmatched(t *testing.T) {
	subs := []subscribers.Record{
		subscriber("A", "2020-02-01"),
	}
	txns := []transactions.Record{
		transaction("2020-02-02 00:00:00", "A", "10.00", "SMS"),
		transaction("2020-02-03 00:00:00", "B", "5.00", "SMS"),
	}

	result, err := reconcile.Reconcile(context.Background(), subs, txns)
	require.NoError(t, err)

	require.Len(t, result.Matched, 1)
	assert.Equal(t, "A", result.Matched[0].SubscriberID)
	assert.Equal(t, "A_20200201", result.Matched[0].SubRowKey)
	assert.Equal(t, subscriber("A", "2020-02-01").ActivationDate, result.Matched[0].ActivationDate)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "B", result.Unmatched[0].SubscriberID)
}

func TestReconcileEmptySubscriberSetIsFullyUnmatched(t *testing.T) {
	txns := []transactions.Record{
		transaction("2020-02-02 00:00:00", "A", "10.00", "SMS"),
		transaction("2020-02-03 00:00:00", "B", "5.00", "SMS"),
	}

	result, err := reconcile.Reconcile(context.Background(), nil, txns)
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Len(t, result.Unmatched, 2)
}

func TestReconcileEmptyTransactionSet(t *testing.T) {
	subs := []subscribers.Record{subscriber("A", "2020-02-01")}

	result, err := reconcile.Reconcile(context.Background(), subs, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Empty(t, result.Unmatched)
	assert.Equal(t, 1, result.Metadata.Subscribers)
}

func TestReconcilePartitionInvariant(t *testing.T) {
	subs := []subscribers.Record{
		subscriber("A", "2020-02-01"),
		subscriber("C", "2021-01-01"),
	}
	txns := []transactions.Record{
		transaction("2020-02-02 00:00:00", "A", "10.00", "SMS"),
		transaction("2020-02-03 00:00:00", "B", "5.00", "SMS"),
		transaction("2020-02-04 00:00:00", "C", "7.50", "Online"),
		transaction("2020-02-05 00:00:00", "D", "1.00", "SMS"),
	}

	result, err := reconcile.Reconcile(context.Background(), subs, txns)
	require.NoError(t, err)

	// Union of the partitions covers the input exactly.
	assert.Equal(t, len(txns), len(result.Matched)+len(result.Unmatched))
	require.NoError(t, result.Partitioned(txns))
}

func TestResultPartitionedDetectsOverlap(t *testing.T) {
	txn := transaction("2020-02-02 00:00:00", "A", "10.00", "SMS")
	result := reconcile.NewResult()
	result.Matched = []reconcile.MatchedRecord{{Record: txn, SubRowKey: "A_20200201"}}
	result.Unmatched = []transactions.Record{txn}

	err := result.Partitioned([]transactions.Record{txn, txn})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestResultSummary(t *testing.T) {
	subs := []subscribers.Record{subscriber("A", "2020-02-01")}
	txns := []transactions.Record{
		transaction("2020-02-02 00:00:00", "A", "10.00", "SMS"),
	}

	result, err := reconcile.Reconcile(context.Background(), subs, txns)
	require.NoError(t, err)
	assert.Equal(t, "Reconciled 1 transactions against 1 subscribers: 1 matched, 0 unmatched", result.Summary())
}
