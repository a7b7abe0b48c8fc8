package events

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/corvusHold/sentinel/internal/config"
	ctrl "github.com/corvusHold/sentinel/internal/events/controller"
	"github.com/corvusHold/sentinel/internal/events/registry"
	"github.com/corvusHold/sentinel/internal/logger"
	rl "github.com/corvusHold/sentinel/internal/platform/ratelimit"
)

// NewRegistry builds the broker registry and, when cfg.BrokersFile is set,
// loads and registers the configured brokers. Definition errors are returned
// as-is so the caller can treat them as fatal.
func NewRegistry(cfg config.Config, rc *redis.Client) (*registry.Registry, error) {
	log := logger.New(cfg.AppEnv)
	reg := registry.New(log)
	reg.SetPublishTimeout(cfg.PublishTimeout)
	if cfg.BrokersFile == "" {
		return reg, nil
	}
	loader := registry.NewLoader(log)
	deps := registry.Deps{Log: log, Redis: rc, KafkaBrokers: cfg.KafkaBrokers}
	if err := loader.LoadFile(cfg.BrokersFile, reg, deps); err != nil {
		return nil, err
	}
	return reg, nil
}

// RegisterV1 wires the events module and registers HTTP routes under /api/v1.
func RegisterV1(g *echo.Group, reg *registry.Registry, cfg config.Config, store rl.Store, mw ...echo.MiddlewareFunc) {
	c := ctrl.New(reg)
	c.SetLogger(logger.New(cfg.AppEnv))

	limit := rl.Policy{
		Name:   "events:publish",
		Limit:  cfg.PublishRateLimit,
		Window: cfg.PublishRateWindow,
		Key:    rl.KeyIP("publish"),
	}
	var publishMW echo.MiddlewareFunc
	if store != nil {
		publishMW = rl.MiddlewareWithStore(limit, store)
	} else {
		publishMW = rl.Middleware(limit)
	}
	c.RegisterV1(g, append([]echo.MiddlewareFunc{publishMW}, mw...)...)
}
