// Package transactions defines the typed transaction record produced by
// the repairer and the latest-record selection that reduces the batch to
// at most one record per subscriber.
package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// TimestampLayout is the canonical transaction timestamp layout.
	TimestampLayout = "2006-01-02 15:04:05"

	// AmountScale is the fixed-point scale of transaction amounts.
	AmountScale = 4
)

// Record is a fully typed, repaired transaction. After repair no field
// holds a sentinel or null value.
type Record struct {
	Timestamp    time.Time
	SubscriberID string
	Amount       decimal.Decimal
	Channel      string
}

// FormatAmount renders the amount at the fixed scale, e.g. "10.0000".
func (r Record) FormatAmount() string {
	return r.Amount.StringFixed(AmountScale)
}

// FormatTimestamp renders the timestamp in the canonical layout.
func (r Record) FormatTimestamp() string {
	return r.Timestamp.Format(TimestampLayout)
}
