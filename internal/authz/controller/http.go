package controller

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/corvusHold/sentinel/internal/authz/domain"
	"github.com/corvusHold/sentinel/internal/authz/service"
)

// Controller exposes the permission decision surface over HTTP.
type Controller struct {
	eval *service.Evaluator
	repo domain.Repository
	log  zerolog.Logger
}

func New(eval *service.Evaluator, repo domain.Repository) *Controller {
	return &Controller{eval: eval, repo: repo}
}

func (h *Controller) SetLogger(l zerolog.Logger) { h.log = l }

// RegisterV1 registers authorization routes on the given group.
func (h *Controller) RegisterV1(g *echo.Group) {
	g.GET("/authz/check", h.check)
	g.GET("/authz/permissions/:user_id", h.permissions)
}

// checkResp mirrors the decision surface: allowed plus a short reason.
type checkResp struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// check answers "can this user perform this permission [on this object]".
// Query params: user_id (optional; absent means anonymous), permission,
// and for object-level checks app_label, model, pk (all three together).
func (h *Controller) check(c echo.Context) error {
	ctx := c.Request().Context()

	key := c.QueryParam("permission")
	if key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "permission is required"})
	}

	user := domain.AnonymousUser()
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		}
		user, err = h.repo.GetUser(ctx, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		}
	}

	var obj *domain.ObjectRef
	app, model, pk := c.QueryParam("app_label"), c.QueryParam("model"), c.QueryParam("pk")
	if app != "" || model != "" || pk != "" {
		if app == "" || model == "" || pk == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "object checks require app_label, model, and pk"})
		}
		obj = &domain.ObjectRef{Type: domain.TypeID{AppLabel: app, Model: model}, PK: pk}
	}

	allowed, err := h.eval.HasPermission(ctx, user, key, obj, service.NewCache())
	if err != nil {
		var badFormat domain.InvalidPermissionFormatError
		var mismatch domain.PermissionTypeMismatchError
		if errors.As(err, &badFormat) || errors.As(err, &mismatch) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error().Err(err).Str("permission", key).Msg("check:error")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "decision failed"})
	}
	reason := "denied"
	if allowed {
		reason = "granted"
	}
	return c.JSON(http.StatusOK, checkResp{Allowed: allowed, Reason: reason})
}

// permissions returns the resolved permission map for a user: every granted
// permission key with its accumulated constraint sets in external form.
func (h *Controller) permissions(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
	}
	user, err := h.repo.GetUser(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}

	pm, err := h.eval.AllGrantedPermissions(ctx, user, service.NewCache())
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id.String()).Msg("permissions:error")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "resolve failed"})
	}
	return c.JSON(http.StatusOK, map[string]any{"permissions": pm})
}
