package sink

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/corvusHold/sentinel/internal/events/domain"
)

// Syslog writes events to the structured log at a configurable severity.
// The topic becomes the logger name, the payload is JSON-serialized.
type Syslog struct {
	name   string
	level  zerolog.Level
	filter domain.TopicFilter
	log    zerolog.Logger
}

// NewSyslog builds a syslog sink logging at the given level.
func NewSyslog(name string, level zerolog.Level, filter domain.TopicFilter, log zerolog.Logger) *Syslog {
	return &Syslog{name: name, level: level, filter: filter, log: log}
}

func (s *Syslog) Name() string { return s.name }
func (s *Syslog) Topics() domain.TopicFilter { return s.filter }

func (s *Syslog) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishError{Broker: s.name, Topic: topic, Err: err}
	}
	s.log.WithLevel(s.level).
		Str("logger", topic).
		RawJSON("data", data).
		Msg("event")
	return nil
}
