package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/corvusHold/sentinel/internal/authz/domain"
	"github.com/corvusHold/sentinel/internal/config"
	"github.com/corvusHold/sentinel/internal/logger"
	"github.com/corvusHold/sentinel/internal/metrics"
)

// Evaluator answers "does principal P have permission <action> on content
// type <T>, optionally for this specific object". It is stateless: the
// per-principal grant memo lives in a request-scoped Cache, never on the
// principal and never at process level, so grant edits take effect on the
// next request.
type Evaluator struct {
	repo   domain.Repository
	store  domain.ObjectStore
	exempt []string
	log    zerolog.Logger
}

// New builds an evaluator. The exempt list comes from configuration and
// holds permission keys (or "*") whose view action bypasses enforcement.
func New(repo domain.Repository, store domain.ObjectStore, cfg config.Config) *Evaluator {
	return &Evaluator{repo: repo, store: store, exempt: cfg.ExemptViewPermissions, log: logger.Nop()}
}

// SetLogger injects the module logger.
func (e *Evaluator) SetLogger(l zerolog.Logger) { e.log = l }

// Cache memoizes grant aggregation for the duration of one request or
// session. Callers construct one per request and discard it afterwards;
// holding it longer serves stale authorization decisions.
type Cache struct {
	mu    sync.Mutex
	perms map[uuid.UUID]domain.PermissionMap
}

// NewCache returns an empty request-scoped cache.
func NewCache() *Cache {
	return &Cache{perms: map[uuid.UUID]domain.PermissionMap{}}
}

func (c *Cache) get(id uuid.UUID) (domain.PermissionMap, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pm, ok := c.perms[id]
	return pm, ok
}

func (c *Cache) put(id uuid.UUID, pm domain.PermissionMap) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perms[id] = pm
}

// AllGrantedPermissions aggregates every enabled grant naming the user
// (directly or via groups) into a map from permission key to accumulated
// constraint sets. Multiple grants for the same key concatenate their sets,
// forming a logical OR across grants. Cache may be nil.
func (e *Evaluator) AllGrantedPermissions(ctx context.Context, user domain.User, cache *Cache) (domain.PermissionMap, error) {
	if pm, ok := cache.get(user.ID); ok {
		return pm, nil
	}
	start := time.Now()
	grants, err := e.repo.ListGrantsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pm := domain.PermissionMap{}
	for _, g := range grants {
		if !g.Enabled {
			continue
		}
		sets := g.Constraints.Sets()
		for _, t := range g.ObjectTypes {
			for _, action := range g.Actions {
				key := domain.PermissionName{AppLabel: t.AppLabel, Action: action, ModelName: t.Model}.String()
				pm[key] = append(pm[key], sets...)
			}
		}
	}
	metrics.ObserveAuthzResolve(time.Since(start).Seconds())
	e.log.Debug().
		Str("user_id", user.ID.String()).
		Int("grants_count", len(grants)).
		Int("keys_count", len(pm)).
		Msg("resolve_permissions:done")
	cache.put(user.ID, pm)
	return pm, nil
}

// HasPermission checks whether the user holds the permission, optionally
// scoped to a specific object. With a nil object it answers the model-level
// question "does the user hold any grant for this key". With an object it
// re-checks the authoritative store by primary key, so the decision reflects
// persisted state at decision time. A false result is indistinguishable from
// "object does not exist" by design.
func (e *Evaluator) HasPermission(ctx context.Context, user domain.User, key string, obj *domain.ObjectRef, cache *Cache) (bool, error) {
	e.log.Debug().
		Str("user_id", user.ID.String()).
		Str("permission", key).
		Msg("has_permission:start")

	if key == "is_staff" {
		ok := user.IsActive && (user.IsStaff || user.IsSuperuser)
		e.decision(ok, "is_staff")
		return ok, nil
	}

	name, err := domain.ParsePermission(key)
	if err != nil {
		metrics.IncAuthzDecision("error", "invalid_format")
		return false, err
	}
	// Legacy rename shim: the admin-group model moved from the users app to
	// the auth app; stored grants may still carry the old key.
	if name.AppLabel == "users" && name.ModelName == "admingroup" {
		name.AppLabel, name.ModelName = "auth", "group"
	}

	if user.IsActive && user.IsSuperuser {
		e.decision(true, "superuser")
		return true, nil
	}
	if e.permissionIsExempt(name) {
		e.decision(true, "exempt")
		return true, nil
	}
	if !user.IsActive || user.IsAnonymous {
		e.decision(false, "inactive")
		return false, nil
	}

	pm, err := e.AllGrantedPermissions(ctx, user, cache)
	if err != nil {
		metrics.IncAuthzDecision("error", "error")
		return false, err
	}
	sets, ok := pm[name.String()]
	if !ok {
		e.decision(false, "no_grant")
		return false, nil
	}
	if obj == nil {
		e.decision(true, "model_level")
		return true, nil
	}
	if obj.Type != name.TypeID() {
		metrics.IncAuthzDecision("error", "type_mismatch")
		return false, domain.PermissionTypeMismatchError{Want: name.TypeID(), Got: obj.Type}
	}

	combined := domain.CombineSets(sets)
	matched, err := e.store.Matches(ctx, *obj, combined)
	if err != nil {
		metrics.IncAuthzDecision("error", "error")
		return false, err
	}
	if _, unconstrained := combined.(domain.Empty); unconstrained {
		e.decision(matched, "unconstrained")
	} else {
		e.decision(matched, "constraint")
	}
	return matched, nil
}

// permissionIsExempt reports whether the permission bypasses enforcement
// entirely. Only view actions can be exempted; the mechanism exists for
// anonymous read access.
func (e *Evaluator) permissionIsExempt(name domain.PermissionName) bool {
	if name.Action != "view" {
		return false
	}
	key := name.String()
	for _, x := range e.exempt {
		if x == "*" || x == key {
			return true
		}
	}
	return false
}

func (e *Evaluator) decision(allowed bool, reason string) {
	result := "denied"
	if allowed {
		result = "granted"
	}
	metrics.IncAuthzDecision(result, reason)
	e.log.Debug().Bool("allowed", allowed).Str("reason", reason).Msg("has_permission:decision")
}
