package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvusHold/sentinel/internal/authz/domain"
	"github.com/corvusHold/sentinel/internal/authz/repository"
	"github.com/corvusHold/sentinel/internal/authz/service"
	"github.com/corvusHold/sentinel/internal/config"
)

type env struct {
	e    *echo.Echo
	mem  *repository.Memory
	user domain.User
}

func setup(t *testing.T, exempt ...string) *env {
	t.Helper()
	mem := repository.NewMemory()
	user := domain.User{ID: uuid.New(), Username: "alice", IsActive: true}
	mem.PutUser(user)

	eval := service.New(mem, mem, config.Config{ExemptViewPermissions: exempt})
	e := echo.New()
	New(eval, mem).RegisterV1(e.Group("/api/v1"))
	return &env{e: e, mem: mem, user: user}
}

func (v *env) grant(t *testing.T, key string, constraints domain.ConstraintSpec) {
	t.Helper()
	name, err := domain.ParsePermission(key)
	require.NoError(t, err)
	require.NoError(t, v.mem.CreateGrant(context.Background(), domain.Grant{
		ID:          uuid.New(),
		Name:        key,
		Enabled:     true,
		Actions:     []string{name.Action},
		ObjectTypes: []domain.TypeID{name.TypeID()},
		Users:       []uuid.UUID{v.user.ID},
		Constraints: constraints,
	}))
}

func (v *env) check(t *testing.T, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/check?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	v.e.ServeHTTP(w, req)
	return w
}

func TestCheckModelLevel(t *testing.T) {
	v := setup(t)
	v.grant(t, "dcim.view_device", nil)

	w := v.check(t, url.Values{
		"user_id":    {v.user.ID.String()},
		"permission": {"dcim.view_device"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed": true, "reason": "granted"}`, w.Body.String())

	w = v.check(t, url.Values{
		"user_id":    {v.user.ID.String()},
		"permission": {"dcim.delete_device"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed": false, "reason": "denied"}`, w.Body.String())
}

func TestCheckObjectLevel(t *testing.T) {
	v := setup(t)
	v.grant(t, "dcim.view_device", domain.ConstraintSpec{{"name": "edge-1"}})
	ref := domain.ObjectRef{Type: domain.TypeID{AppLabel: "dcim", Model: "device"}, PK: "1"}
	v.mem.PutObject(ref, map[string]any{"name": "edge-1"})

	w := v.check(t, url.Values{
		"user_id":    {v.user.ID.String()},
		"permission": {"dcim.view_device"},
		"app_label":  {"dcim"},
		"model":      {"device"},
		"pk":         {"1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed": true, "reason": "granted"}`, w.Body.String())

	w = v.check(t, url.Values{
		"user_id":    {v.user.ID.String()},
		"permission": {"dcim.view_device"},
		"app_label":  {"dcim"},
		"model":      {"device"},
		"pk":         {"2"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed": false, "reason": "denied"}`, w.Body.String())
}

func TestCheckAnonymousExempt(t *testing.T) {
	v := setup(t, "dcim.view_device")

	w := v.check(t, url.Values{"permission": {"dcim.view_device"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"allowed": true, "reason": "granted"}`, w.Body.String())
}

func TestCheckBadRequests(t *testing.T) {
	v := setup(t)

	// missing permission
	w := v.check(t, url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// malformed user id
	w = v.check(t, url.Values{"user_id": {"nope"}, "permission": {"dcim.view_device"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// malformed permission
	w = v.check(t, url.Values{"user_id": {v.user.ID.String()}, "permission": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// partial object triple
	w = v.check(t, url.Values{
		"user_id":    {v.user.ID.String()},
		"permission": {"dcim.view_device"},
		"pk":         {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckTypeMismatch(t *testing.T) {
	v := setup(t)
	v.grant(t, "dcim.view_device", nil)

	w := v.check(t, url.Values{
		"user_id":    {v.user.ID.String()},
		"permission": {"dcim.view_device"},
		"app_label":  {"ipam"},
		"model":      {"prefix"},
		"pk":         {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "mismatch")
}

func TestCheckUnknownUser(t *testing.T) {
	v := setup(t)
	w := v.check(t, url.Values{
		"user_id":    {uuid.NewString()},
		"permission": {"dcim.view_device"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPermissionsEndpoint(t *testing.T) {
	v := setup(t)
	v.grant(t, "dcim.view_device", domain.ConstraintSpec{{"site": "ams"}})
	v.grant(t, "ipam.view_prefix", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/permissions/"+v.user.ID.String(), nil)
	w := httptest.NewRecorder()
	v.e.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"permissions": {
		"dcim.view_device": [{"site": "ams"}],
		"ipam.view_prefix": [null]
	}}`, w.Body.String())
}

func TestPermissionsUnknownUser(t *testing.T) {
	v := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/authz/permissions/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	v.e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
