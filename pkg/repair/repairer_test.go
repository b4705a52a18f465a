package repair_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/feeds"
	"github.com/centrimetry/subrec/pkg/repair"
	"github.com/centrimetry/subrec/pkg/transactions"
)

func raw(ts, id, amount, channel string) feeds.RawTransaction {
	return feeds.RawTransaction{Timestamp: ts, SubscriberID: id, Amount: amount, Channel: channel}
}

func TestRepairMisalignedRow(t *testing.T) {
	// The misaligned row carries the subscriber ID in its timestamp cell.
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "SMS"),
		raw("654321", "garbage", "garbage", "garbage"),
		raw("2020-02-02 10:00:00", "100002", "30.00", "Online"),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, records, 3)

	fixed := records[1]
	assert.Equal(t, "654321", fixed.SubscriberID)
	assert.Equal(t, "0.0000", fixed.FormatAmount())
	assert.Equal(t, "Online", fixed.Channel)
	// Timestamp was cleared then imputed with the batch mode.
	assert.Equal(t, "2020-02-02 10:00:00", fixed.FormatTimestamp())
}

func TestRepairImputesSecondConfiguredSubscriber(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "SMS"),
		raw("2020-02-02 10:00:00", "100002", "20.00", "SMS"),
		raw("2020-02-03 09:00:00", "100003", "30.00", "SMS"),
		raw("", "654322", "40.00", "SMS"),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)

	// Mode is 10:00:00 (two occurrences against one).
	assert.Equal(t, "2020-02-02 10:00:00", records[3].FormatTimestamp())
}

func TestRepairTimestampModeTieBreakIsFirstInputOrder(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-05 12:00:00", "100001", "10.00", "SMS"),
		raw("2020-02-01 08:00:00", "100002", "10.00", "SMS"),
		raw("", "654322", "10.00", "SMS"),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)

	// Both candidates occur once; the one appearing first wins.
	assert.Equal(t, "2020-02-05 12:00:00", records[2].FormatTimestamp())
}

func TestRepairNullTimestampOutsideConfiguredCasesIsFatal(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "SMS"),
		raw("", "999999", "20.00", "SMS"),
	}

	_, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvariant(err))
	assert.Contains(t, err.Error(), "999999")
}

func TestRepairUnparsableTimestampIsFatal(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("yesterday", "100001", "10.00", "SMS"),
	}

	_, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParse(err))
}

func TestRepairDateOnlyTimestampAccepted(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02", "100001", "10.00", "SMS"),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, "2020-02-02 00:00:00", records[0].FormatTimestamp())
}

func TestRepairAmountMeanImputation(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "SMS"),
		raw("2020-02-02 10:00:00", "100002", "20.00", "SMS"),
		raw("2020-02-02 10:00:00", "100003", "invalid", "SMS"),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "10.0000", records[0].FormatAmount())
	assert.Equal(t, "15.0000", records[2].FormatAmount())
}

func TestRepairAmountUnparsableIsFatal(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "ten dollars", "SMS"),
	}

	_, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParse(err))
}

func TestRepairExcludeRepairedFromMean(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("654321", "garbage", "garbage", "garbage"), // fixed to amount 0.00
		raw("2020-02-02 10:00:00", "100001", "30.00", "SMS"),
		raw("2020-02-02 10:00:00", "100002", "invalid", "SMS"),
	}

	t.Run("included by default", func(t *testing.T) {
		records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
		require.NoError(t, err)
		// Mean over {0.00, 30.00} = 15.
		assert.Equal(t, "15.0000", records[2].FormatAmount())
	})

	t.Run("excluded when configured", func(t *testing.T) {
		cfg := repair.DefaultConfig()
		cfg.ExcludeRepairedFromMean = true
		records, err := repair.New(cfg).Repair(context.Background(), rows)
		require.NoError(t, err)
		// Mean over {30.00} only.
		assert.Equal(t, "30.0000", records[2].FormatAmount())
	})
}

func TestRepairChannelModeImputation(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "Online"),
		raw("2020-02-02 10:00:00", "100002", "10.00", "SMS"),
		raw("2020-02-02 10:00:00", "100003", "10.00", "Online"),
		raw("2020-02-02 10:00:00", "100004", "10.00", "invalid"),
		raw("2020-02-02 10:00:00", "100005", "10.00", ""),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "Online", records[3].Channel)
	assert.Equal(t, "Online", records[4].Channel)
}

func TestRepairChannelFallbackWhenNoValidMode(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "invalid"),
		raw("2020-02-02 10:00:00", "100002", "10.00", ""),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "Unknown", records[0].Channel)
	assert.Equal(t, "Unknown", records[1].Channel)
}

func TestRepairIdempotence(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.00", "SMS"),
		raw("654321", "garbage", "garbage", "garbage"),
		raw("", "654322", "invalid", "invalid"),
		raw("2020-02-02 10:00:00", "100002", "30.00", "Online"),
	}

	repairer := repair.New(repair.DefaultConfig())
	first, err := repairer.Repair(context.Background(), rows)
	require.NoError(t, err)

	// Feed the repaired batch back through as raw rows; nothing should
	// trigger a second time.
	rerun := make([]feeds.RawTransaction, len(first))
	for i, record := range first {
		rerun[i] = feeds.RawTransaction{
			Timestamp:    record.FormatTimestamp(),
			SubscriberID: record.SubscriberID,
			Amount:       record.FormatAmount(),
			Channel:      record.Channel,
		}
	}

	second, err := repairer.Repair(context.Background(), rerun)
	require.NoError(t, err)
	require.Len(t, second, len(first))

	for i := range first {
		assert.True(t, first[i].Timestamp.Equal(second[i].Timestamp), "timestamp row %d", i)
		assert.Equal(t, first[i].SubscriberID, second[i].SubscriberID, "subscriber row %d", i)
		assert.True(t, first[i].Amount.Equal(second[i].Amount), "amount row %d", i)
		assert.Equal(t, first[i].Channel, second[i].Channel, "channel row %d", i)
	}
}

func TestRepairEmptyBatch(t *testing.T) {
	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepairAmountScale(t *testing.T) {
	rows := []feeds.RawTransaction{
		raw("2020-02-02 10:00:00", "100001", "10.123456", "SMS"),
	}

	records, err := repair.New(repair.DefaultConfig()).Repair(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, "10.1235", records[0].FormatAmount())
	assert.Equal(t, int32(transactions.AmountScale), -records[0].Amount.Exponent())
}
