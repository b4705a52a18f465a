package subrec

import (
	"github.com/centrimetry/subrec/pkg/feeds"
	"github.com/centrimetry/subrec/pkg/repair"
	"github.com/centrimetry/subrec/pkg/sinks"
)

// config holds the wired collaborators of a Pipeline.
type config struct {
	subscriberReader  feeds.SubscriberReader
	transactionReader feeds.TransactionReader
	relational        sinks.RelationalSink
	columnar          sinks.ColumnarSink
	repair            repair.Config
}

// Option is a function that configures a Pipeline.
type Option func(*config) error

func newConfig(opts ...Option) (*config, error) {
	c := &config{
		repair: repair.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithSubscriberReader sets the subscriber feed source.
func WithSubscriberReader(reader feeds.SubscriberReader) Option {
	return func(c *config) error {
		c.subscriberReader = reader
		return nil
	}
}

// WithTransactionReader sets the transaction feed source.
func WithTransactionReader(reader feeds.TransactionReader) Option {
	return func(c *config) error {
		c.transactionReader = reader
		return nil
	}
}

// WithRelationalSink sets the sink for the matched set and subscribers.
func WithRelationalSink(sink sinks.RelationalSink) Option {
	return func(c *config) error {
		c.relational = sink
		return nil
	}
}

// WithColumnarSink sets the sink for the unmatched set.
func WithColumnarSink(sink sinks.ColumnarSink) Option {
	return func(c *config) error {
		c.columnar = sink
		return nil
	}
}

// WithRepairConfig overrides the default repair rules.
func WithRepairConfig(cfg repair.Config) Option {
	return func(c *config) error {
		c.repair = cfg
		return nil
	}
}
