package repair

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/feeds"
	"github.com/centrimetry/subrec/pkg/logging"
	"github.com/centrimetry/subrec/pkg/transactions"
)

// dateOnlyLayout accepts timestamps that carry no time-of-day part.
const dateOnlyLayout = "2006-01-02"

// Repairer applies the sequenced repair rules to a raw transaction batch.
// Each rule runs over the full batch before the next, because later rules
// compute statistics over the state left by earlier ones.
type Repairer struct {
	cfg Config
}

// New creates a Repairer with the given rules.
func New(cfg Config) *Repairer {
	return &Repairer{cfg: cfg}
}

// Repair runs all rules and returns the fully typed record set.
//
// Rules, in order: misalignment fix by sentinel signature, timestamp mode
// imputation for configured subscribers, timestamp cast (fatal on any
// failure), amount mean imputation and scale-4 cast, channel mode
// imputation. Re-running Repair over already-repaired data is a no-op:
// no sentinel or marker values remain to trigger any rule.
func (r *Repairer) Repair(ctx context.Context, raw []feeds.RawTransaction) ([]transactions.Record, error) {
	log := logging.FromContext(ctx)

	// Work on a copy; the raw batch stays untouched.
	rows := make([]feeds.RawTransaction, len(raw))
	copy(rows, raw)

	misaligned := r.fixMisalignment(ctx, rows)
	imputed := r.imputeTimestamps(ctx, rows)

	timestamps, err := r.castTimestamps(rows)
	if err != nil {
		return nil, err
	}

	amounts, err := r.repairAmounts(ctx, rows, misaligned)
	if err != nil {
		return nil, err
	}

	channels := r.repairChannels(ctx, rows)

	records := make([]transactions.Record, len(rows))
	for i, row := range rows {
		records[i] = transactions.Record{
			Timestamp:    timestamps[i],
			SubscriberID: row.SubscriberID,
			Amount:       amounts[i],
			Channel:      channels[i],
		}
	}

	log.Info().
		Int("rows", len(records)).
		Int("misaligned_fixed", len(misaligned)).
		Int("timestamps_imputed", imputed).
		Msg("Repaired transaction batch")

	return records, nil
}

// fixMisalignment overwrites fields of rows identified by a sentinel
// timestamp and clears their timestamp for imputation. Returns the set of
// row indexes that were fixed.
func (r *Repairer) fixMisalignment(ctx context.Context, rows []feeds.RawTransaction) map[int]bool {
	log := logging.FromContext(ctx)
	fixed := make(map[int]bool)

	for _, sig := range r.cfg.Anomalies {
		if !sig.misaligned() {
			continue
		}
		for i := range rows {
			if rows[i].Timestamp != sig.SentinelTimestamp {
				continue
			}
			log.Debug().
				Str("sentinel", sig.SentinelTimestamp).
				Str("subscriber_id", sig.SubscriberID).
				Int("row", i+1).
				Msg("Fixing field-misaligned row")

			rows[i].SubscriberID = sig.SubscriberID
			rows[i].Amount = sig.Amount
			rows[i].Channel = sig.Channel
			rows[i].Timestamp = ""
			fixed[i] = true
		}
	}
	return fixed
}

// imputeTimestamps replaces missing timestamps of configured subscribers
// with the batch mode. Returns the number of imputed rows.
func (r *Repairer) imputeTimestamps(ctx context.Context, rows []feeds.RawTransaction) int {
	eligible := r.cfg.imputableIDs()
	if len(eligible) == 0 {
		return 0
	}

	var present []string
	for i := range rows {
		if rows[i].Timestamp != "" {
			present = append(present, rows[i].Timestamp)
		}
	}
	modeValue, ok := mode(present)
	if !ok {
		return 0
	}

	imputed := 0
	for i := range rows {
		if rows[i].Timestamp == "" && eligible[rows[i].SubscriberID] {
			rows[i].Timestamp = modeValue
			imputed++
		}
	}

	if imputed > 0 {
		logging.FromContext(ctx).Debug().
			Str("mode", modeValue).
			Int("rows", imputed).
			Msg("Imputed missing timestamps with batch mode")
	}
	return imputed
}

// castTimestamps parses every timestamp into a real datetime. The repair
// rules above must have resolved every null; a remaining null is an
// invariant violation and any parse failure fails the whole batch.
func (r *Repairer) castTimestamps(rows []feeds.RawTransaction) ([]time.Time, error) {
	var nullIDs []string
	for i := range rows {
		if rows[i].Timestamp == "" {
			nullIDs = append(nullIDs, rows[i].SubscriberID)
		}
	}
	if len(nullIDs) > 0 {
		return nil, errors.NewInvariantError("repair",
			"timestamp still null after imputation", nullIDs...)
	}

	timestamps := make([]time.Time, len(rows))
	for i := range rows {
		parsed, err := parseTimestamp(rows[i].Timestamp)
		if err != nil {
			return nil, &errors.ParseError{
				Format:  "timestamp",
				Row:     i + 1,
				Value:   rows[i].Timestamp,
				Message: "not a valid datetime",
				Err:     err,
			}
		}
		timestamps[i] = parsed
	}
	return timestamps, nil
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(transactions.TimestampLayout, value, time.UTC)
	if err == nil {
		return parsed, nil
	}
	return time.ParseInLocation(dateOnlyLayout, value, time.UTC)
}

// repairAmounts replaces marker amounts with the batch mean and casts all
// amounts to fixed-point scale 4. An unparsable non-marker amount fails
// the batch.
func (r *Repairer) repairAmounts(ctx context.Context, rows []feeds.RawTransaction, misaligned map[int]bool) ([]decimal.Decimal, error) {
	parsed := make([]decimal.Decimal, len(rows))
	markers := make([]bool, len(rows))

	sum := decimal.Zero
	count := 0
	for i := range rows {
		if rows[i].Amount == r.cfg.InvalidAmountMarker {
			markers[i] = true
			continue
		}
		value, err := decimal.NewFromString(rows[i].Amount)
		if err != nil {
			return nil, &errors.ParseError{
				Format:  "amount",
				Row:     i + 1,
				Value:   rows[i].Amount,
				Message: "not a valid decimal",
				Err:     err,
			}
		}
		parsed[i] = value

		if r.cfg.ExcludeRepairedFromMean && misaligned[i] {
			continue
		}
		sum = sum.Add(value)
		count++
	}

	mean := decimal.Zero
	if count > 0 {
		mean = sum.Div(decimal.NewFromInt(int64(count)))
	}

	repaired := 0
	amounts := make([]decimal.Decimal, len(rows))
	for i := range rows {
		if markers[i] {
			amounts[i] = mean.Round(transactions.AmountScale)
			repaired++
			continue
		}
		amounts[i] = parsed[i].Round(transactions.AmountScale)
	}

	if repaired > 0 {
		logging.FromContext(ctx).Debug().
			Str("mean", mean.StringFixed(transactions.AmountScale)).
			Int("rows", repaired).
			Msg("Replaced invalid amounts with batch mean")
	}
	return amounts, nil
}

// repairChannels replaces marker or missing channels with the mode of the
// valid channels, falling back to the configured default when the batch
// has no valid channel at all.
func (r *Repairer) repairChannels(ctx context.Context, rows []feeds.RawTransaction) []string {
	var valid []string
	for i := range rows {
		if rows[i].Channel != "" && rows[i].Channel != r.cfg.InvalidChannelMarker {
			valid = append(valid, rows[i].Channel)
		}
	}

	replacement, ok := mode(valid)
	if !ok {
		replacement = r.cfg.FallbackChannel
	}

	repaired := 0
	channels := make([]string, len(rows))
	for i := range rows {
		if rows[i].Channel == "" || rows[i].Channel == r.cfg.InvalidChannelMarker {
			channels[i] = replacement
			repaired++
			continue
		}
		channels[i] = rows[i].Channel
	}

	if repaired > 0 {
		logging.FromContext(ctx).Debug().
			Str("mode", replacement).
			Int("rows", repaired).
			Msg("Replaced invalid channels with batch mode")
	}
	return channels
}

// mode returns the most frequent value; equal frequencies resolve to the
// value seen first in input order, keeping runs reproducible.
func mode(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}

	counts := make(map[string]int, len(values))
	first := make(map[string]int, len(values))
	for i, v := range values {
		if _, seen := counts[v]; !seen {
			first[v] = i
		}
		counts[v]++
	}

	best := values[0]
	for v, n := range counts {
		if n > counts[best] || (n == counts[best] && first[v] < first[best]) {
			best = v
		}
	}
	return best, true
}
