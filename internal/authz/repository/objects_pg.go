package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvusHold/sentinel/internal/authz/domain"
)

// PGObjects implements domain.ObjectStore over the objects table. Object
// attributes live in a jsonb column; the constraint algebra is translated
// into parameterized jsonb comparisons.
type PGObjects struct{ pool *pgxpool.Pool }

func NewObjects(pool *pgxpool.Pool) *PGObjects { return &PGObjects{pool: pool} }

func (s *PGObjects) Exists(ctx context.Context, ref domain.ObjectRef) (bool, error) {
	return s.Matches(ctx, ref, domain.Empty{})
}

func (s *PGObjects) Matches(ctx context.Context, ref domain.ObjectRef, c domain.Constraint) (bool, error) {
	args := []any{ref.Type.AppLabel, ref.Type.Model, ref.PK}
	cond, err := constraintSQL(c, &args)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM objects
		WHERE app_label = $1 AND model = $2 AND pk = $3 AND (%s))`, cond)
	var matched bool
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&matched); err != nil {
		return false, fmt.Errorf("match object %s: %w", ref, err)
	}
	return matched, nil
}

// UpsertObject stores or replaces an object's attributes. Used by seeding.
func (s *PGObjects) UpsertObject(ctx context.Context, ref domain.ObjectRef, attrs map[string]any) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attrs: %w", err)
	}
	const q = `INSERT INTO objects (app_label, model, pk, attrs) VALUES ($1, $2, $3, $4)
		ON CONFLICT (app_label, model, pk) DO UPDATE SET attrs = EXCLUDED.attrs`
	_, err = s.pool.Exec(ctx, q, ref.Type.AppLabel, ref.Type.Model, ref.PK, raw)
	return err
}

// DeleteObject removes an object. Used by seeding.
func (s *PGObjects) DeleteObject(ctx context.Context, ref domain.ObjectRef) error {
	const q = `DELETE FROM objects WHERE app_label = $1 AND model = $2 AND pk = $3`
	_, err := s.pool.Exec(ctx, q, ref.Type.AppLabel, ref.Type.Model, ref.PK)
	return err
}

// constraintSQL renders a constraint as a SQL condition, appending parameters
// to args. The field path "pk" targets the primary key column; every other
// path addresses the attrs jsonb column, dot-separated for nesting.
func constraintSQL(c domain.Constraint, args *[]any) (string, error) {
	switch v := c.(type) {
	case domain.Empty:
		return "TRUE", nil
	case domain.FieldEquals:
		if v.Path == "pk" {
			*args = append(*args, pkText(v.Value))
			return fmt.Sprintf("pk = $%d", len(*args)), nil
		}
		value, err := json.Marshal(v.Value)
		if err != nil {
			return "", fmt.Errorf("encode constraint value for %q: %w", v.Path, err)
		}
		*args = append(*args, strings.Split(v.Path, "."))
		pathArg := len(*args)
		*args = append(*args, string(value))
		valueArg := len(*args)
		return fmt.Sprintf("attrs #> $%d::text[] = $%d::jsonb", pathArg, valueArg), nil
	case domain.And:
		return joinOperands(v.Operands, " AND ", "TRUE", args)
	case domain.Or:
		return joinOperands(v.Operands, " OR ", "FALSE", args)
	default:
		return "", fmt.Errorf("unsupported constraint type %T", c)
	}
}

// pkText renders a pk constraint value as text to match the pk column.
func pkText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func joinOperands(ops []domain.Constraint, sep, empty string, args *[]any) (string, error) {
	if len(ops) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		cond, err := constraintSQL(op, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+cond+")")
	}
	return strings.Join(parts, sep), nil
}
