package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvusHold/sentinel/internal/authz/domain"
)

// PG implements domain.Repository over Postgres.
type PG struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) *PG { return &PG{pool: pool} }

func (r *PG) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `SELECT id, username, is_active, is_staff, is_superuser FROM users WHERE id = $1`
	var u domain.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.IsActive, &u.IsStaff, &u.IsSuperuser)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateUser persists a principal. Used by seeding, not by evaluation.
func (r *PG) CreateUser(ctx context.Context, u domain.User) error {
	const q = `INSERT INTO users (id, username, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username,
			is_active = EXCLUDED.is_active, is_staff = EXCLUDED.is_staff,
			is_superuser = EXCLUDED.is_superuser`
	_, err := r.pool.Exec(ctx, q, u.ID, u.Username, u.IsActive, u.IsStaff, u.IsSuperuser)
	return err
}

func (r *PG) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Grant, error) {
	const q = `SELECT p.id, p.name, p.enabled, p.actions, p.constraints
		FROM object_permissions p
		WHERE p.enabled
		  AND (EXISTS (SELECT 1 FROM object_permission_users pu
		               WHERE pu.permission_id = p.id AND pu.user_id = $1)
		       OR EXISTS (SELECT 1 FROM object_permission_groups pg
		                  JOIN group_members gm ON gm.group_id = pg.group_id
		                  WHERE pg.permission_id = p.id AND gm.user_id = $1))
		ORDER BY p.name`
	return r.queryGrants(ctx, q, userID)
}

func (r *PG) ListGrants(ctx context.Context) ([]domain.Grant, error) {
	const q = `SELECT p.id, p.name, p.enabled, p.actions, p.constraints
		FROM object_permissions p ORDER BY p.name`
	return r.queryGrants(ctx, q)
}

func (r *PG) queryGrants(ctx context.Context, q string, args ...any) ([]domain.Grant, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.Grant
	byID := map[uuid.UUID]int{}
	var ids []uuid.UUID
	for rows.Next() {
		var g domain.Grant
		var rawConstraints []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.Enabled, &g.Actions, &rawConstraints); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		if len(rawConstraints) > 0 {
			if err := json.Unmarshal(rawConstraints, &g.Constraints); err != nil {
				return nil, fmt.Errorf("grant %s: decode constraints: %w", g.ID, err)
			}
		}
		byID[g.ID] = len(grants)
		ids = append(ids, g.ID)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return grants, nil
	}

	const tq = `SELECT permission_id, app_label, model
		FROM object_permission_object_types WHERE permission_id = ANY($1)`
	trows, err := r.pool.Query(ctx, tq, ids)
	if err != nil {
		return nil, fmt.Errorf("list grant types: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var pid uuid.UUID
		var t domain.TypeID
		if err := trows.Scan(&pid, &t.AppLabel, &t.Model); err != nil {
			return nil, fmt.Errorf("scan grant type: %w", err)
		}
		if i, ok := byID[pid]; ok {
			grants[i].ObjectTypes = append(grants[i].ObjectTypes, t)
		}
	}
	return grants, trows.Err()
}

func (r *PG) CreateGrant(ctx context.Context, g domain.Grant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rawConstraints []byte
	if g.Constraints != nil {
		rawConstraints, err = json.Marshal(g.Constraints)
		if err != nil {
			return fmt.Errorf("encode constraints: %w", err)
		}
	}
	const q = `INSERT INTO object_permissions (id, name, enabled, actions, constraints)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, q, g.ID, g.Name, g.Enabled, g.Actions, rawConstraints); err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	for _, t := range g.ObjectTypes {
		const tq = `INSERT INTO object_permission_object_types (permission_id, app_label, model) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, tq, g.ID, t.AppLabel, t.Model); err != nil {
			return fmt.Errorf("insert grant type: %w", err)
		}
	}
	for _, uid := range g.Users {
		const uq = `INSERT INTO object_permission_users (permission_id, user_id) VALUES ($1, $2)`
		if _, err := tx.Exec(ctx, uq, g.ID, uid); err != nil {
			return fmt.Errorf("insert grant user: %w", err)
		}
	}
	for _, gid := range g.Groups {
		const gq = `INSERT INTO object_permission_groups (permission_id, group_id) VALUES ($1, $2)`
		if _, err := tx.Exec(ctx, gq, g.ID, gid); err != nil {
			return fmt.Errorf("insert grant group: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PG) GetGroupByName(ctx context.Context, name string) (domain.Group, error) {
	const q = `SELECT id, name, created_at FROM groups WHERE name = $1`
	var g domain.Group
	err := r.pool.QueryRow(ctx, q, name).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// CreateGroup persists a group. Used by seeding.
func (r *PG) CreateGroup(ctx context.Context, g domain.Group) error {
	const q = `INSERT INTO groups (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, g.ID, g.Name)
	return err
}

func (r *PG) AddUserToGroups(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) error {
	batch := &pgx.Batch{}
	const q = `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, gid := range groupIDs {
		batch.Queue(q, gid, userID)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range groupIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("add user to groups: %w", err)
		}
	}
	return nil
}
