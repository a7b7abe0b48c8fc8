package domain

import (
	"context"
)

// Broker is a pluggable destination for published change events (syslog,
// pub/sub channel, message queue, ...). Implementations own their topic
// filter configuration; the registry consults it before delivery, so a
// broker's Publish is only ever invoked for topics its filter allows.
//
// Topic convention: lowercase dot-delimited segments, e.g.
// "sentinel.create.dcim.device". Payloads must be JSON-serializable.
type Broker interface {
	// Name identifies the broker instance in logs, metrics, and config.
	Name() string
	// Topics returns the include/exclude filter set at construction.
	Topics() TopicFilter
	// Publish delivers a single event. Errors are transport failures.
	Publish(ctx context.Context, topic string, payload any) error
}
