package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/corvusHold/sentinel/internal/authz/domain"
)

// AssignGroups adds the user to every named group in one batch. Unknown
// group names are logged and skipped so partially-valid bulk configuration
// still applies its valid entries.
func (e *Evaluator) AssignGroups(ctx context.Context, userID uuid.UUID, names []string) error {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		g, err := e.repo.GetGroupByName(ctx, name)
		if err != nil {
			e.log.Error().Err(err).Str("group", name).Msg("assign_groups:skip")
			continue
		}
		ids = append(ids, g.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	return e.repo.AddUserToGroups(ctx, userID, ids)
}

// AssignPermissions creates one enabled grant per entry, each scoped to
// exactly the parsed action and content type, granted to the user with the
// given constraints. Entries whose key does not parse, or that fail to
// persist, are logged and skipped; the batch never fails as a whole.
func (e *Evaluator) AssignPermissions(ctx context.Context, userID uuid.UUID, perms map[string]domain.ConstraintSpec) error {
	for key, constraints := range perms {
		name, err := domain.ParsePermission(key)
		if err != nil {
			e.log.Error().Err(err).Str("permission", key).Msg("assign_permissions:skip")
			continue
		}
		grant := domain.Grant{
			ID:          uuid.New(),
			Name:        fmt.Sprintf("%s (seeded)", key),
			Enabled:     true,
			Actions:     []string{name.Action},
			ObjectTypes: []domain.TypeID{name.TypeID()},
			Users:       []uuid.UUID{userID},
			Constraints: constraints,
		}
		if err := e.repo.CreateGrant(ctx, grant); err != nil {
			e.log.Error().Err(err).Str("permission", key).Msg("assign_permissions:create_failed")
			continue
		}
		e.log.Info().Str("permission", key).Str("user_id", userID.String()).Msg("assign_permissions:created")
	}
	return nil
}
