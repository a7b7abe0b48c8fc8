package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvusHold/sentinel/internal/authz/domain"
)

func TestConstraintSQL(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		args := []any{}
		cond, err := constraintSQL(domain.Empty{}, &args)
		require.NoError(t, err)
		assert.Equal(t, "TRUE", cond)
		assert.Empty(t, args)
	})

	t.Run("field equals", func(t *testing.T) {
		args := []any{"dcim", "device", "1"}
		cond, err := constraintSQL(domain.FieldEquals{Path: "status.value", Value: "active"}, &args)
		require.NoError(t, err)
		assert.Equal(t, "attrs #> $4::text[] = $5::jsonb", cond)
		require.Len(t, args, 5)
		assert.Equal(t, []string{"status", "value"}, args[3])
		assert.Equal(t, `"active"`, args[4])
	})

	t.Run("and", func(t *testing.T) {
		args := []any{}
		cond, err := constraintSQL(domain.And{Operands: []domain.Constraint{
			domain.FieldEquals{Path: "site", Value: "ams"},
			domain.FieldEquals{Path: "vlan", Value: 100},
		}}, &args)
		require.NoError(t, err)
		assert.Equal(t, "(attrs #> $1::text[] = $2::jsonb) AND (attrs #> $3::text[] = $4::jsonb)", cond)
		assert.Equal(t, "100", args[3])
	})

	t.Run("or of ands", func(t *testing.T) {
		args := []any{}
		cond, err := constraintSQL(domain.Or{Operands: []domain.Constraint{
			domain.FieldEquals{Path: "site", Value: "ams"},
			domain.And{Operands: []domain.Constraint{
				domain.FieldEquals{Path: "site", Value: "fra"},
				domain.FieldEquals{Path: "status", Value: "active"},
			}},
		}}, &args)
		require.NoError(t, err)
		assert.Equal(t, "(attrs #> $1::text[] = $2::jsonb) OR ((attrs #> $3::text[] = $4::jsonb) AND (attrs #> $5::text[] = $6::jsonb))", cond)
		assert.Len(t, args, 6)
	})

	t.Run("pk targets the primary key column", func(t *testing.T) {
		args := []any{"app", "widget", "1"}
		cond, err := constraintSQL(domain.FieldEquals{Path: "pk", Value: "1"}, &args)
		require.NoError(t, err)
		assert.Equal(t, "pk = $4", cond)
		require.Len(t, args, 4)
		assert.Equal(t, "1", args[3])
	})

	t.Run("empty and is TRUE, empty or is FALSE", func(t *testing.T) {
		args := []any{}
		cond, err := constraintSQL(domain.And{}, &args)
		require.NoError(t, err)
		assert.Equal(t, "TRUE", cond)

		cond, err = constraintSQL(domain.Or{}, &args)
		require.NoError(t, err)
		assert.Equal(t, "FALSE", cond)
	})
}
