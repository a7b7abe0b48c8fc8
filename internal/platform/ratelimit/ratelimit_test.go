package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareFixedWindow(t *testing.T) {
	e := echo.New()
	mw := Middleware(Policy{Name: "test", Limit: 2, Window: time.Minute, Key: KeyIP("test")})
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
