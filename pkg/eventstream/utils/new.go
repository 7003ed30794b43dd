// Package eventstreamutils builds the configured eventstream publisher.
package eventstreamutils

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/chatzilla/pkg/eventstream"
	"github.com/papercomputeco/chatzilla/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatzilla/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	Provider string
	Brokers  string
	Topic    string
}

// NewPublisher returns a publisher for o.Provider. An empty provider or
// "nop" yields the no-op publisher.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(o.Brokers),
			Topic:   o.Topic,
		})
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.Provider)
	}
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
