// Package subscribers normalizes the raw subscriber registry feed into a
// deduplicated set of subscriber snapshots, one per subscriber, each
// carrying a stable composite row key.
package subscribers

import (
	"context"
	"time"

	"github.com/centrimetry/subrec/pkg/feeds"
	"github.com/centrimetry/subrec/pkg/logging"
)

const (
	// DateLayout is the activation date layout in the raw feed.
	DateLayout = "2006-01-02"

	// KeyDateLayout is the compact date layout used in composite row keys.
	KeyDateLayout = "20060102"
)

// Record is a normalized subscriber snapshot. Exactly one Record exists
// per subscriber ID after normalization, holding the maximum activation
// date seen among that ID's raw rows.
type Record struct {
	RowKey         string
	ID             string
	ActivationDate time.Time
}

// RowKey derives the composite key linking reconciled transactions back to
// a specific subscriber snapshot: "<id>_<yyyyMMdd>".
func RowKey(id string, activationDate time.Time) string {
	return id + "_" + activationDate.Format(KeyDateLayout)
}

// Normalize dedups and canonicalizes raw subscriber rows.
//
// Rows with an unparsable activation date are excluded and logged; this is
// the only sanctioned row drop in the pipeline. Within each subscriber ID
// the row with the maximum activation date wins; ties keep the first
// occurrence in input order. Output order follows the first appearance of
// each subscriber ID, keeping the operation reproducible. Empty input
// yields empty output, not an error.
func Normalize(ctx context.Context, raw []feeds.RawSubscriber) ([]Record, error) {
	log := logging.FromContext(ctx)

	best := make(map[string]Record, len(raw))
	order := make([]string, 0, len(raw))
	dropped := 0

	for i, row := range raw {
		date, err := time.ParseInLocation(DateLayout, row.ActivationDateRaw, time.UTC)
		if err != nil {
			dropped++
			log.Warn().
				Str("subscriber_id", row.ID).
				Str("activation_date", row.ActivationDateRaw).
				Int("row", i+1).
				Msg("Excluding subscriber row with unparsable activation date")
			continue
		}

		current, seen := best[row.ID]
		if !seen {
			order = append(order, row.ID)
		}
		// Strictly-after comparison keeps the first occurrence on ties.
		if !seen || date.After(current.ActivationDate) {
			best[row.ID] = Record{
				RowKey:         RowKey(row.ID, date),
				ID:             row.ID,
				ActivationDate: date,
			}
		}
	}

	records := make([]Record, 0, len(order))
	for _, id := range order {
		records = append(records, best[id])
	}

	log.Info().
		Int("rows_in", len(raw)).
		Int("subscribers", len(records)).
		Int("rows_dropped", dropped).
		Msg("Normalized subscriber feed")

	return records, nil
}
