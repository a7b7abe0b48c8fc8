package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/corvusHold/sentinel/internal/authz/domain"
)

// Memory implements domain.Repository and domain.ObjectStore in memory.
// It backs tests and local development without a database.
type Memory struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]domain.User
	groups  map[string]domain.Group
	members map[uuid.UUID]map[uuid.UUID]bool // group id -> user ids
	grants  []domain.Grant
	objects map[string]map[string]any // ObjectRef.String() -> attrs
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:   map[uuid.UUID]domain.User{},
		groups:  map[string]domain.Group{},
		members: map[uuid.UUID]map[uuid.UUID]bool{},
		objects: map[string]map[string]any{},
	}
}

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

// PutUser stores a principal.
func (m *Memory) PutUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Grant
	for _, g := range m.grants {
		if !g.Enabled {
			continue
		}
		if m.grantNamesUser(g, userID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *Memory) grantNamesUser(g domain.Grant, userID uuid.UUID) bool {
	for _, uid := range g.Users {
		if uid == userID {
			return true
		}
	}
	for _, gid := range g.Groups {
		if m.members[gid][userID] {
			return true
		}
	}
	return false
}

func (m *Memory) ListGrants(ctx context.Context) ([]domain.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Grant, len(m.grants))
	copy(out, m.grants)
	return out, nil
}

func (m *Memory) CreateGrant(ctx context.Context, g domain.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, g)
	return nil
}

func (m *Memory) GetGroupByName(ctx context.Context, name string) (domain.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[name]
	if !ok {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	return g, nil
}

// PutGroup stores a group.
func (m *Memory) PutGroup(g domain.Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.Name] = g
}

func (m *Memory) AddUserToGroups(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, gid := range groupIDs {
		if m.members[gid] == nil {
			m.members[gid] = map[uuid.UUID]bool{}
		}
		m.members[gid][userID] = true
	}
	return nil
}

// GroupsForUser lists the ids of groups the user belongs to.
func (m *Memory) GroupsForUser(userID uuid.UUID) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []uuid.UUID
	for gid, users := range m.members {
		if users[userID] {
			out = append(out, gid)
		}
	}
	return out
}

// PutObject stores an object's attributes.
func (m *Memory) PutObject(ref domain.ObjectRef, attrs map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref.String()] = attrs
}

// RemoveObject deletes an object.
func (m *Memory) RemoveObject(ref domain.ObjectRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref.String())
}

func (m *Memory) Exists(ctx context.Context, ref domain.ObjectRef) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[ref.String()]
	return ok, nil
}

func (m *Memory) Matches(ctx context.Context, ref domain.ObjectRef, c domain.Constraint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attrs, ok := m.objects[ref.String()]
	if !ok {
		return false, nil
	}
	// The primary key is part of the object's identity, not its stored
	// attributes; expose it under "pk" so grants can constrain on it.
	view := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		view[k] = v
	}
	view["pk"] = ref.PK
	return c.Matches(view), nil
}
