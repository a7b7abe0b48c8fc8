package authz

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	ctrl "github.com/corvusHold/sentinel/internal/authz/controller"
	repo "github.com/corvusHold/sentinel/internal/authz/repository"
	svc "github.com/corvusHold/sentinel/internal/authz/service"
	"github.com/corvusHold/sentinel/internal/config"
	"github.com/corvusHold/sentinel/internal/logger"
)

// RegisterV1 wires the authz module over Postgres and registers HTTP routes
// under /api/v1.
func RegisterV1(g *echo.Group, pg *pgxpool.Pool, cfg config.Config) {
	r := repo.New(pg)
	store := repo.NewObjects(pg)
	eval := svc.New(r, store, cfg)
	eval.SetLogger(logger.New(cfg.AppEnv))

	c := ctrl.New(eval, r)
	c.SetLogger(logger.New(cfg.AppEnv))
	c.RegisterV1(g)
}
