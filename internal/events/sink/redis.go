package sink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/corvusHold/sentinel/internal/events/domain"
)

// Redis publishes events to a Redis pub/sub channel named after the topic.
type Redis struct {
	name       string
	filter     domain.TopicFilter
	rc         *redis.Client
	ownsClient bool
}

// NewRedis builds a redis sink over an existing (shared) client.
func NewRedis(name string, rc *redis.Client, filter domain.TopicFilter) *Redis {
	return &Redis{name: name, rc: rc, filter: filter}
}

// NewRedisAddr builds a redis sink with its own client. Close releases it.
func NewRedisAddr(name, addr string, db int, filter domain.TopicFilter) *Redis {
	rc := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &Redis{name: name, rc: rc, filter: filter, ownsClient: true}
}

func (s *Redis) Name() string { return s.name }
func (s *Redis) Topics() domain.TopicFilter { return s.filter }

func (s *Redis) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishError{Broker: s.name, Topic: topic, Err: err}
	}
	if err := s.rc.Publish(ctx, topic, data).Err(); err != nil {
		return domain.PublishError{Broker: s.name, Topic: topic, Err: err}
	}
	return nil
}

func (s *Redis) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.rc.Close()
}
