// Package repair fixes the known data-quality defects of the transaction
// feed: a misaligned row detectable by a sentinel timestamp, missing
// timestamps, corrupted amounts, and invalid channel codes. Every rule is
// keyed by a configurable anomaly signature rather than a row position, so
// new defects are added as configuration, not code.
package repair

// AnomalySignature describes one known defect case.
//
// A signature with a SentinelTimestamp identifies a field-misaligned row:
// the row whose raw timestamp equals the sentinel has its subscriber ID,
// amount, and channel overwritten with the known-correct values below, and
// its timestamp cleared for imputation.
//
// A signature without a sentinel contributes only its SubscriberID: rows
// for that subscriber with a missing timestamp are eligible for mode
// imputation.
type AnomalySignature struct {
	SentinelTimestamp string `mapstructure:"sentinel_timestamp"`
	SubscriberID      string `mapstructure:"subscriber_id"`
	Amount            string `mapstructure:"amount"`
	Channel           string `mapstructure:"channel"`
}

// misaligned reports whether this signature identifies a shifted row.
func (s AnomalySignature) misaligned() bool {
	return s.SentinelTimestamp != ""
}

// Config holds the repair rules for a batch.
type Config struct {
	// Anomalies are the known defect cases, applied in order.
	Anomalies []AnomalySignature `mapstructure:"anomalies"`

	// InvalidAmountMarker is the raw value marking a corrupted amount.
	InvalidAmountMarker string `mapstructure:"invalid_amount_marker"`

	// InvalidChannelMarker is the raw value marking a corrupted channel.
	InvalidChannelMarker string `mapstructure:"invalid_channel_marker"`

	// FallbackChannel is used when no valid channel exists to take a mode from.
	FallbackChannel string `mapstructure:"fallback_channel"`

	// ExcludeRepairedFromMean excludes rows touched by the misalignment fix
	// from the amount-mean computation. Off by default, matching the
	// historical batch behavior where the mean saw the repaired rows.
	ExcludeRepairedFromMean bool `mapstructure:"exclude_repaired_from_mean"`
}

// DefaultConfig returns the repair rules observed in the historical batch:
// one misaligned row whose timestamp cell held the subscriber ID 654321,
// and a second subscriber (654322) with a missing timestamp.
func DefaultConfig() Config {
	return Config{
		Anomalies: []AnomalySignature{
			{
				SentinelTimestamp: "654321",
				SubscriberID:      "654321",
				Amount:            "0.00",
				Channel:           "Online",
			},
			{
				SubscriberID: "654322",
			},
		},
		InvalidAmountMarker:  "invalid",
		InvalidChannelMarker: "invalid",
		FallbackChannel:      "Unknown",
	}
}

// imputableIDs returns the subscriber IDs eligible for timestamp imputation.
func (c Config) imputableIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Anomalies))
	for _, sig := range c.Anomalies {
		if sig.SubscriberID != "" {
			ids[sig.SubscriberID] = true
		}
	}
	return ids
}
