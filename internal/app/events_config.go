package app

import (
	"strings"

	"github.com/wattrewards/wattrewards/internal/events"
)

// ConsumerConfig converts the RabbitMQ settings into the consumer parameters.
func (c EventsConfig) ConsumerConfig() events.Config {
	return events.Config{
		URL:         strings.TrimSpace(c.RabbitMQ.URL),
		Queue:       strings.TrimSpace(c.RabbitMQ.Queue),
		Prefetch:    c.RabbitMQ.Prefetch,
		RetryDelay:  c.RabbitMQ.RetryDelay,
		MaxAttempts: c.RabbitMQ.MaxAttempts,
	}
}
