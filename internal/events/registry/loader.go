package registry

import (
	"fmt"
	"os"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/corvusHold/sentinel/internal/events/domain"
	"github.com/corvusHold/sentinel/internal/events/sink"
)

// Deps carries shared resources a broker factory may need.
type Deps struct {
	Log zerolog.Logger
	// Redis is the process-wide client, used by the redis sink unless the
	// broker definition carries its own addr option.
	Redis *redis.Client
	// KafkaBrokers is the default bootstrap list for the kafka sink.
	KafkaBrokers []string
}

// Factory builds a broker from its definition. Options are the raw values of
// the definition's "options" mapping.
type Factory func(name string, options map[string]any, filter domain.TopicFilter, deps Deps) (domain.Broker, error)

// Loader turns broker definitions into registered brokers. Definitions have
// the shape:
//
//	brokers:
//	  audit-log:
//	    class: syslog
//	    options:
//	      level: info
//	    topics:
//	      include: ["sentinel.*"]
//	      exclude: ["*.no-publish*"]
//
// "topics" is optional and defaults to include-all/exclude-none.
type Loader struct {
	factories map[string]Factory
	log       zerolog.Logger
}

// NewLoader returns a loader with the built-in broker classes registered:
// "syslog", "redis", "kafka", and "recorder".
func NewLoader(log zerolog.Logger) *Loader {
	l := &Loader{factories: map[string]Factory{}, log: log}
	l.RegisterClass("syslog", syslogFactory)
	l.RegisterClass("redis", redisFactory)
	l.RegisterClass("kafka", kafkaFactory)
	l.RegisterClass("recorder", recorderFactory)
	return l
}

// RegisterClass makes a broker class available to definitions.
func (l *Loader) RegisterClass(class string, f Factory) {
	l.factories[class] = f
}

type fileSpec struct {
	Brokers map[string]map[string]any `yaml:"brokers"`
}

// LoadFile reads broker definitions from a YAML file and registers the
// resulting brokers. Definition errors are fatal: the caller should refuse
// to start rather than run without a configured sink.
func (l *Loader) LoadFile(path string, reg *Registry, deps Deps) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read brokers file: %w", err)
	}
	return l.Load(raw, reg, deps)
}

// Load parses YAML broker definitions and registers the resulting brokers
// in lexical name order.
func (l *Loader) Load(raw []byte, reg *Registry, deps Deps) error {
	var spec fileSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return fmt.Errorf("parse brokers file: %w", err)
	}

	names := make([]string, 0, len(spec.Brokers))
	for name := range spec.Brokers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := l.build(name, spec.Brokers[name], deps)
		if err != nil {
			return err
		}
		reg.Register(b)
		l.log.Info().
			Str("broker", name).
			Strs("include", b.Topics().Include).
			Strs("exclude", b.Topics().Exclude).
			Msg("loader:registered")
	}
	return nil
}

func (l *Loader) build(name string, def map[string]any, deps Deps) (domain.Broker, error) {
	class, ok := def["class"].(string)
	if !ok || class == "" {
		return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "class", Expected: "string", Actual: yamlTypeName(def["class"])}
	}
	factory, ok := l.factories[class]
	if !ok {
		return nil, domain.BrokerNotFoundError{Class: class}
	}

	options := map[string]any{}
	if raw, present := def["options"]; present && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options", Expected: "mapping", Actual: yamlTypeName(raw)}
		}
		options = m
	}

	filter, err := parseTopics(name, def["topics"])
	if err != nil {
		return nil, err
	}
	return factory(name, options, filter, deps)
}

// parseTopics validates the optional "topics" block and applies defaults.
func parseTopics(broker string, raw any) (domain.TopicFilter, error) {
	if raw == nil {
		return domain.DefaultFilter(), nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.TopicFilter{}, domain.BrokerMisconfiguredError{Broker: broker, Key: "topics", Expected: "mapping", Actual: yamlTypeName(raw)}
	}
	filter := domain.DefaultFilter()
	if inc, present := m["include"]; present {
		patterns, err := stringSeq(broker, "topics.include", inc)
		if err != nil {
			return domain.TopicFilter{}, err
		}
		filter.Include = patterns
	}
	if exc, present := m["exclude"]; present {
		patterns, err := stringSeq(broker, "topics.exclude", exc)
		if err != nil {
			return domain.TopicFilter{}, err
		}
		filter.Exclude = patterns
	}
	return filter, nil
}

func stringSeq(broker, key string, raw any) ([]string, error) {
	seq, ok := raw.([]any)
	if !ok {
		return nil, domain.BrokerMisconfiguredError{Broker: broker, Key: key, Expected: "sequence of strings", Actual: yamlTypeName(raw)}
	}
	out := make([]string, 0, len(seq))
	for _, v := range seq {
		s, ok := v.(string)
		if !ok {
			return nil, domain.BrokerMisconfiguredError{Broker: broker, Key: key, Expected: "sequence of strings", Actual: "sequence containing " + yamlTypeName(v)}
		}
		out = append(out, s)
	}
	return out, nil
}

func yamlTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, float64:
		return "number"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// --- built-in factories ---

func syslogFactory(name string, options map[string]any, filter domain.TopicFilter, deps Deps) (domain.Broker, error) {
	level := zerolog.InfoLevel
	if raw, present := options["level"]; present {
		s, ok := raw.(string)
		if !ok {
			return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options.level", Expected: "string", Actual: yamlTypeName(raw)}
		}
		parsed, err := zerolog.ParseLevel(s)
		if err != nil {
			return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options.level", Expected: "zerolog level name", Actual: fmt.Sprintf("%q", s)}
		}
		level = parsed
	}
	return sink.NewSyslog(name, level, filter, deps.Log), nil
}

func redisFactory(name string, options map[string]any, filter domain.TopicFilter, deps Deps) (domain.Broker, error) {
	if raw, present := options["addr"]; present {
		addr, ok := raw.(string)
		if !ok {
			return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options.addr", Expected: "string", Actual: yamlTypeName(raw)}
		}
		db := 0
		if rawDB, ok := options["db"]; ok {
			n, ok := rawDB.(int)
			if !ok {
				return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options.db", Expected: "number", Actual: yamlTypeName(rawDB)}
			}
			db = n
		}
		return sink.NewRedisAddr(name, addr, db, filter), nil
	}
	if deps.Redis == nil {
		return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options.addr", Expected: "string", Actual: "null"}
	}
	return sink.NewRedis(name, deps.Redis, filter), nil
}

func kafkaFactory(name string, options map[string]any, filter domain.TopicFilter, deps Deps) (domain.Broker, error) {
	brokers := deps.KafkaBrokers
	if raw, present := options["brokers"]; present {
		list, err := stringSeq(name, "options.brokers", raw)
		if err != nil {
			return nil, err
		}
		brokers = list
	}
	if len(brokers) == 0 {
		return nil, domain.BrokerMisconfiguredError{Broker: name, Key: "options.brokers", Expected: "sequence of strings", Actual: "null"}
	}
	return sink.NewKafka(name, brokers, filter), nil
}

func recorderFactory(name string, options map[string]any, filter domain.TopicFilter, deps Deps) (domain.Broker, error) {
	return sink.NewRecorder(name, filter), nil
}
