package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvusHold/sentinel/internal/authz/domain"
	"github.com/corvusHold/sentinel/internal/authz/repository"
	"github.com/corvusHold/sentinel/internal/config"
)

type fixture struct {
	mem  *repository.Memory
	eval *Evaluator
	user domain.User
}

func newFixture(t *testing.T, exempt ...string) *fixture {
	t.Helper()
	mem := repository.NewMemory()
	user := domain.User{ID: uuid.New(), Username: "alice", IsActive: true}
	mem.PutUser(user)
	return &fixture{
		mem:  mem,
		eval: New(mem, mem, config.Config{ExemptViewPermissions: exempt}),
		user: user,
	}
}

func (f *fixture) grant(key string, constraints domain.ConstraintSpec) {
	name, err := domain.ParsePermission(key)
	if err != nil {
		panic(err)
	}
	_ = f.mem.CreateGrant(context.Background(), domain.Grant{
		ID:          uuid.New(),
		Name:        key,
		Enabled:     true,
		Actions:     []string{name.Action},
		ObjectTypes: []domain.TypeID{name.TypeID()},
		Users:       []uuid.UUID{f.user.ID},
		Constraints: constraints,
	})
}

func TestHasPermissionSuperuserBypass(t *testing.T) {
	f := newFixture(t)
	su := domain.User{ID: uuid.New(), IsActive: true, IsSuperuser: true}

	ok, err := f.eval.HasPermission(context.Background(), su, "dcim.delete_device", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// the bypass requires an active account
	inactive := domain.User{ID: uuid.New(), IsSuperuser: true}
	ok, err = f.eval.HasPermission(context.Background(), inactive, "dcim.delete_device", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionInactiveAndAnonymous(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", nil)

	inactive := f.user
	inactive.IsActive = false
	ok, err := f.eval.HasPermission(context.Background(), inactive, "dcim.view_device", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.eval.HasPermission(context.Background(), domain.AnonymousUser(), "dcim.view_device", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionExempt(t *testing.T) {
	f := newFixture(t, "dcim.view_device")

	// exemption applies before the inactive/anonymous gate
	ok, err := f.eval.HasPermission(context.Background(), domain.AnonymousUser(), "dcim.view_device", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// only the view action can be exempted
	ok, err = f.eval.HasPermission(context.Background(), domain.AnonymousUser(), "dcim.delete_device", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	wildcard := newFixture(t, "*")
	ok, err = wildcard.eval.HasPermission(context.Background(), domain.AnonymousUser(), "ipam.view_prefix", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = wildcard.eval.HasPermission(context.Background(), domain.AnonymousUser(), "ipam.add_prefix", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionModelLevel(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", nil)

	ok, err := f.eval.HasPermission(context.Background(), f.user, "dcim.view_device", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.eval.HasPermission(context.Background(), f.user, "dcim.delete_device", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionInvalidKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.eval.HasPermission(context.Background(), f.user, "not-a-permission", nil, nil)
	var formatErr domain.InvalidPermissionFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestHasPermissionObjectLevel(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", domain.ConstraintSpec{{"name": "edge-1"}})

	ref1 := domain.ObjectRef{Type: domain.TypeID{AppLabel: "dcim", Model: "device"}, PK: "1"}
	ref2 := domain.ObjectRef{Type: domain.TypeID{AppLabel: "dcim", Model: "device"}, PK: "2"}
	f.mem.PutObject(ref1, map[string]any{"name": "edge-1"})
	f.mem.PutObject(ref2, map[string]any{"name": "edge-2"})

	ok, err := f.eval.HasPermission(context.Background(), f.user, "dcim.view_device", &ref1, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.eval.HasPermission(context.Background(), f.user, "dcim.view_device", &ref2, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionPKConstrainedGrant(t *testing.T) {
	f := newFixture(t)

	widget := domain.TypeID{AppLabel: "app", Model: "widget"}
	obj1 := domain.ObjectRef{Type: widget, PK: "1"}
	obj2 := domain.ObjectRef{Type: widget, PK: "2"}
	f.mem.PutObject(obj1, map[string]any{"name": "w1"})
	f.mem.PutObject(obj2, map[string]any{"name": "w2"})

	f.grant("app.view_widget", domain.ConstraintSpec{{"pk": obj1.PK}})

	ok, err := f.eval.HasPermission(context.Background(), f.user, "app.view_widget", &obj1, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.eval.HasPermission(context.Background(), f.user, "app.view_widget", &obj2, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionUnconstrainedOverridesConstrained(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", domain.ConstraintSpec{{"name": "edge-1"}})
	f.grant("dcim.view_device", nil)

	ref := domain.ObjectRef{Type: domain.TypeID{AppLabel: "dcim", Model: "device"}, PK: "9"}
	f.mem.PutObject(ref, map[string]any{"name": "something-else"})

	ok, err := f.eval.HasPermission(context.Background(), f.user, "dcim.view_device", &ref, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionUnconstrainedStillChecksExistence(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", nil)

	missing := domain.ObjectRef{Type: domain.TypeID{AppLabel: "dcim", Model: "device"}, PK: "ghost"}
	ok, err := f.eval.HasPermission(context.Background(), f.user, "dcim.view_device", &missing, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionTypeMismatch(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", nil)

	wrong := domain.ObjectRef{Type: domain.TypeID{AppLabel: "ipam", Model: "prefix"}, PK: "1"}
	_, err := f.eval.HasPermission(context.Background(), f.user, "dcim.view_device", &wrong, nil)
	var mismatch domain.PermissionTypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, domain.TypeID{AppLabel: "dcim", Model: "device"}, mismatch.Want)
	assert.Equal(t, domain.TypeID{AppLabel: "ipam", Model: "prefix"}, mismatch.Got)
}

func TestHasPermissionIsStaff(t *testing.T) {
	f := newFixture(t)

	staff := domain.User{ID: uuid.New(), IsActive: true, IsStaff: true}
	ok, err := f.eval.HasPermission(context.Background(), staff, "is_staff", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	su := domain.User{ID: uuid.New(), IsActive: true, IsSuperuser: true}
	ok, err = f.eval.HasPermission(context.Background(), su, "is_staff", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.eval.HasPermission(context.Background(), f.user, "is_staff", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	inactiveStaff := domain.User{ID: uuid.New(), IsStaff: true}
	ok, err = f.eval.HasPermission(context.Background(), inactiveStaff, "is_staff", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionAdminGroupRemap(t *testing.T) {
	f := newFixture(t)
	f.grant("auth.view_group", nil)

	ok, err := f.eval.HasPermission(context.Background(), f.user, "users.view_admingroup", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionViaGroup(t *testing.T) {
	f := newFixture(t)
	group := domain.Group{ID: uuid.New(), Name: "operators"}
	f.mem.PutGroup(group)
	require.NoError(t, f.mem.AddUserToGroups(context.Background(), f.user.ID, []uuid.UUID{group.ID}))

	name, err := domain.ParsePermission("dcim.change_device")
	require.NoError(t, err)
	require.NoError(t, f.mem.CreateGrant(context.Background(), domain.Grant{
		ID:          uuid.New(),
		Name:        "operators can change devices",
		Enabled:     true,
		Actions:     []string{name.Action},
		ObjectTypes: []domain.TypeID{name.TypeID()},
		Groups:      []uuid.UUID{group.ID},
	}))

	ok, err := f.eval.HasPermission(context.Background(), f.user, "dcim.change_device", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllGrantedPermissionsAggregation(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", domain.ConstraintSpec{{"site": "ams"}})
	f.grant("dcim.view_device", domain.ConstraintSpec{{"site": "fra"}})
	f.grant("ipam.view_prefix", nil)

	pm, err := f.eval.AllGrantedPermissions(context.Background(), f.user, nil)
	require.NoError(t, err)
	require.Len(t, pm, 2)
	assert.Equal(t, []domain.ConstraintSet{{"site": "ams"}, {"site": "fra"}}, pm["dcim.view_device"])
	// a nil spec contributes one unconstrained set
	assert.Equal(t, []domain.ConstraintSet{nil}, pm["ipam.view_prefix"])
}

func TestAllGrantedPermissionsSkipsDisabled(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mem.CreateGrant(context.Background(), domain.Grant{
		ID:          uuid.New(),
		Name:        "disabled",
		Enabled:     false,
		Actions:     []string{"view"},
		ObjectTypes: []domain.TypeID{{AppLabel: "dcim", Model: "device"}},
		Users:       []uuid.UUID{f.user.ID},
	}))

	pm, err := f.eval.AllGrantedPermissions(context.Background(), f.user, nil)
	require.NoError(t, err)
	assert.Empty(t, pm)
}

// countingRepo wraps the memory repository to observe grant lookups.
type countingRepo struct {
	domain.Repository
	calls int
}

func (c *countingRepo) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Grant, error) {
	c.calls++
	return c.Repository.ListGrantsForUser(ctx, userID)
}

func TestCacheMemoizesWithinRequest(t *testing.T) {
	f := newFixture(t)
	f.grant("dcim.view_device", nil)

	counting := &countingRepo{Repository: f.mem}
	eval := New(counting, f.mem, config.Config{})

	cache := NewCache()
	for i := 0; i < 3; i++ {
		ok, err := eval.HasPermission(context.Background(), f.user, "dcim.view_device", nil, cache)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, counting.calls)

	// a fresh cache reloads, so grant edits apply on the next request
	ok, err := eval.HasPermission(context.Background(), f.user, "dcim.view_device", nil, NewCache())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, counting.calls)
}
