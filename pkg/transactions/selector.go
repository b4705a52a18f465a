package transactions

import (
	"context"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/logging"
)

// SelectLatest keeps, per subscriber, the single record with the most
// recent timestamp. Equal timestamps keep the earliest input position so
// the operation is reproducible. The input may hold any number of records
// per subscriber; output order follows the first appearance of each
// subscriber ID.
//
// The at-most-one-per-subscriber post-condition is asserted before
// returning; a violation is a fatal InvariantError.
func SelectLatest(ctx context.Context, records []Record) ([]Record, error) {
	log := logging.FromContext(ctx)

	best := make(map[string]Record, len(records))
	order := make([]string, 0, len(records))

	for _, record := range records {
		current, seen := best[record.SubscriberID]
		if !seen {
			order = append(order, record.SubscriberID)
		}
		// Strictly-after comparison keeps the earlier row on ties.
		if !seen || record.Timestamp.After(current.Timestamp) {
			best[record.SubscriberID] = record
		}
	}

	selected := make([]Record, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] {
			return nil, errors.NewInvariantError("selector",
				"duplicate subscriber survived latest-record selection", id)
		}
		seen[id] = true
		selected = append(selected, best[id])
	}

	log.Info().
		Int("records_in", len(records)).
		Int("records_out", len(selected)).
		Msg("Selected latest record per subscriber")

	return selected, nil
}
