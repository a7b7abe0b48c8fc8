package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/corvusHold/sentinel/internal/events/registry"
	"github.com/corvusHold/sentinel/internal/platform/validation"
)

// Controller exposes the event fan-out surface over HTTP.
type Controller struct {
	reg *registry.Registry
	log zerolog.Logger
}

func New(reg *registry.Registry) *Controller {
	return &Controller{reg: reg}
}

func (h *Controller) SetLogger(l zerolog.Logger) { h.log = l }

// publishReq is the publish request body. Topic convention is lowercase
// dot-delimited segments: "<namespace>.<action>.<app>.<model>".
type publishReq struct {
	Topic   string `json:"topic" validate:"required,min=1"`
	Payload any    `json:"payload"`
}

// RegisterV1 registers event routes on the given group.
func (h *Controller) RegisterV1(g *echo.Group, extra ...echo.MiddlewareFunc) {
	g.POST("/events", h.publish, extra...)
	g.GET("/events/brokers", h.listBrokers)
}

func (h *Controller) publish(c echo.Context) error {
	var req publishReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	res := h.reg.Publish(c.Request().Context(), req.Topic, req.Payload)
	return c.JSON(http.StatusAccepted, res)
}

// brokerItem describes one registered broker in API responses.
type brokerItem struct {
	Name    string   `json:"name"`
	Include []string `json:"include_topics"`
	Exclude []string `json:"exclude_topics"`
}

func (h *Controller) listBrokers(c echo.Context) error {
	brokers := h.reg.Brokers()
	items := make([]brokerItem, 0, len(brokers))
	for _, b := range brokers {
		f := b.Topics()
		items = append(items, brokerItem{Name: b.Name(), Include: f.Include, Exclude: f.Exclude})
	}
	return c.JSON(http.StatusOK, map[string]any{"brokers": items})
}
