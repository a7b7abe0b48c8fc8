package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TypeID identifies a content type: an application label plus a model name,
// both lowercase, e.g. {dcim device}.
type TypeID struct {
	AppLabel string
	Model    string
}

func (t TypeID) String() string { return t.AppLabel + "." + t.Model }

// PermissionName is the parsed form of the external permission string
// "<app_label>.<action>_<model_name>", e.g. "dcim.view_device".
type PermissionName struct {
	AppLabel  string
	Action    string
	ModelName string
}

// ParsePermission parses the external string form. The app label is
// everything before the first dot; the action is everything between the dot
// and the first underscore; the model name is the remainder.
func ParsePermission(s string) (PermissionName, error) {
	app, codename, ok := strings.Cut(s, ".")
	if !ok {
		return PermissionName{}, InvalidPermissionFormatError{Value: s}
	}
	action, model, ok := strings.Cut(codename, "_")
	if !ok || app == "" || action == "" || model == "" {
		return PermissionName{}, InvalidPermissionFormatError{Value: s}
	}
	return PermissionName{AppLabel: app, Action: action, ModelName: model}, nil
}

// String renders the exact external string form.
func (p PermissionName) String() string {
	return fmt.Sprintf("%s.%s_%s", p.AppLabel, p.Action, p.ModelName)
}

// TypeID returns the content type the permission targets.
func (p PermissionName) TypeID() TypeID {
	return TypeID{AppLabel: p.AppLabel, Model: p.ModelName}
}

// User is the principal whose permissions are evaluated. A zero User with
// IsAnonymous set represents an unauthenticated caller.
type User struct {
	ID          uuid.UUID
	Username    string
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
	IsAnonymous bool
}

// AnonymousUser returns the principal used for unauthenticated requests.
func AnonymousUser() User {
	return User{IsAnonymous: true}
}

// Group is a named collection of users referenced by grants.
type Group struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Grant is a stored rule granting a set of actions on a set of content
// types to a set of principals, optionally restricted by constraint sets.
// Grants are administered externally; the evaluator only reads them.
type Grant struct {
	ID          uuid.UUID
	Name        string
	Enabled     bool
	Actions     []string
	ObjectTypes []TypeID
	Users       []uuid.UUID
	Groups      []uuid.UUID
	// Constraints is nil (or empty) for an unrestricted grant. Multiple
	// sets are ORed together; fields within one set are ANDed.
	Constraints ConstraintSpec
}

// ObjectRef names a specific object instance for object-level checks.
type ObjectRef struct {
	Type TypeID
	PK   string
}

func (r ObjectRef) String() string { return r.Type.String() + ":" + r.PK }

// PermissionMap maps external permission strings to the constraint sets
// accumulated across all of a principal's matching grants. The sets keep
// their external mapping form here; the constraint algebra is applied when
// they are combined for a decision.
type PermissionMap map[string][]ConstraintSet

// Repository is the read/write surface over stored grants, groups, and users.
type Repository interface {
	// GetUser loads a principal by id.
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	// ListGrantsForUser returns all enabled grants naming the user directly
	// or through one of the user's groups.
	ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]Grant, error)
	// ListGrants returns all grants, for admin listing.
	ListGrants(ctx context.Context) ([]Grant, error)
	// CreateGrant persists a new grant with its type/principal associations.
	CreateGrant(ctx context.Context, g Grant) error
	// GetGroupByName resolves a group; ErrGroupNotFound when absent.
	GetGroupByName(ctx context.Context, name string) (Group, error)
	// AddUserToGroups adds the user to every listed group in one batch.
	AddUserToGroups(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) error
}

// ObjectStore answers object-level questions against the authoritative
// store. Decisions re-check the persisted state by primary key rather than
// trusting a possibly stale in-memory object.
type ObjectStore interface {
	// Exists reports whether the referenced object is currently stored.
	Exists(ctx context.Context, ref ObjectRef) (bool, error)
	// Matches reports whether the referenced object currently satisfies the
	// constraint. The field path "pk" resolves to the object's primary key;
	// all other paths address stored attributes. A missing object never
	// matches.
	Matches(ctx context.Context, ref ObjectRef, c Constraint) (bool, error)
}
