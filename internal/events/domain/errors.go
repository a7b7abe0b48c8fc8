package domain

import "fmt"

// BrokerNotFoundError indicates a broker definition referenced a class that
// is not registered with the loader. Fatal at startup: silently dropping a
// configured sink is worse than refusing to start.
type BrokerNotFoundError struct {
	Class string
}

func (e BrokerNotFoundError) Error() string {
	return fmt.Sprintf("event broker class %q is not registered", e.Class)
}

// BrokerMisconfiguredError indicates a broker definition has the wrong shape
// (e.g. "topics" given as a sequence instead of a mapping). Fatal at startup.
type BrokerMisconfiguredError struct {
	Broker   string
	Key      string
	Expected string
	Actual   string
}

func (e BrokerMisconfiguredError) Error() string {
	return fmt.Sprintf("broker %q: %s must be a %s, got %s", e.Broker, e.Key, e.Expected, e.Actual)
}

// PublishError wraps a transport failure from a single broker's Publish.
type PublishError struct {
	Broker string
	Topic  string
	Err    error
}

func (e PublishError) Error() string {
	return fmt.Sprintf("broker %q: publish %q: %v", e.Broker, e.Topic, e.Err)
}

func (e PublishError) Unwrap() error { return e.Err }
