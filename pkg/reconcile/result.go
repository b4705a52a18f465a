package reconcile

import (
	"fmt"
	"time"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/transactions"
)

// Result represents the outcome of a reconciliation.
type Result struct {
	// Matched holds transactions whose subscriber resolved.
	Matched []MatchedRecord

	// Unmatched holds transactions with no subscriber, kept for
	// data-quality follow-up.
	Unmatched []transactions.Record

	// Metadata about the reconciliation run.
	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// Subscribers in the normalized set
	Subscribers int

	// TransactionsIn is the size of the de-duplicated transaction set
	TransactionsIn int
}

// NewResult creates a new result with defaults.
func NewResult() *Result {
	return &Result{
		Metadata: ResultMetadata{
			StartTime: time.Now(),
		},
	}
}

// Finalize stamps the end time and duration.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// Partitioned verifies the join invariant: matched and unmatched are
// disjoint and their union, projected onto subscriber ID, equals the
// input transaction set.
func (r *Result) Partitioned(input []transactions.Record) error {
	matchedIDs := make(map[string]bool, len(r.Matched))
	for _, m := range r.Matched {
		matchedIDs[m.SubscriberID] = true
	}

	var overlap []string
	unionIDs := make(map[string]bool, len(r.Matched)+len(r.Unmatched))
	for id := range matchedIDs {
		unionIDs[id] = true
	}
	for _, u := range r.Unmatched {
		if matchedIDs[u.SubscriberID] {
			overlap = append(overlap, u.SubscriberID)
		}
		unionIDs[u.SubscriberID] = true
	}
	if len(overlap) > 0 {
		return errors.NewInvariantError("reconcile",
			"matched and unmatched sets overlap", overlap...)
	}

	if len(r.Matched)+len(r.Unmatched) != len(input) {
		return errors.NewInvariantError("reconcile", fmt.Sprintf(
			"partition size mismatch: %d matched + %d unmatched != %d input",
			len(r.Matched), len(r.Unmatched), len(input)))
	}

	var missing []string
	for _, txn := range input {
		if !unionIDs[txn.SubscriberID] {
			missing = append(missing, txn.SubscriberID)
		}
	}
	if len(missing) > 0 {
		return errors.NewInvariantError("reconcile",
			"transactions absent from both partitions", missing...)
	}

	return nil
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	return fmt.Sprintf("Reconciled %d transactions against %d subscribers: %d matched, %d unmatched",
		r.Metadata.TransactionsIn, r.Metadata.Subscribers, len(r.Matched), len(r.Unmatched))
}
