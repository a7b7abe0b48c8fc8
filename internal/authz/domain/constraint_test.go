package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintSetConstraint(t *testing.T) {
	assert.IsType(t, Empty{}, ConstraintSet(nil).Constraint())
	assert.IsType(t, Empty{}, ConstraintSet{}.Constraint())

	single := ConstraintSet{"name": "edge-1"}.Constraint()
	assert.Equal(t, FieldEquals{Path: "name", Value: "edge-1"}, single)

	multi := ConstraintSet{"site": "ams", "status": "active"}.Constraint()
	and, ok := multi.(And)
	require.True(t, ok)
	// keys are sorted for determinism
	assert.Equal(t, []Constraint{
		FieldEquals{Path: "site", Value: "ams"},
		FieldEquals{Path: "status", Value: "active"},
	}, and.Operands)
}

func TestConstraintMatches(t *testing.T) {
	attrs := map[string]any{
		"name":   "edge-1",
		"vlan":   float64(100),
		"status": map[string]any{"value": "active"},
	}

	assert.True(t, Empty{}.Matches(attrs))
	assert.True(t, FieldEquals{Path: "name", Value: "edge-1"}.Matches(attrs))
	assert.False(t, FieldEquals{Path: "name", Value: "edge-2"}.Matches(attrs))
	assert.False(t, FieldEquals{Path: "missing", Value: "x"}.Matches(attrs))

	// dot paths address nested attributes
	assert.True(t, FieldEquals{Path: "status.value", Value: "active"}.Matches(attrs))
	assert.False(t, FieldEquals{Path: "status.value.deeper", Value: "x"}.Matches(attrs))

	// JSON number semantics: int in the grant, float64 in the object
	assert.True(t, FieldEquals{Path: "vlan", Value: 100}.Matches(attrs))
	assert.False(t, FieldEquals{Path: "vlan", Value: 101}.Matches(attrs))
	assert.False(t, FieldEquals{Path: "vlan", Value: "100"}.Matches(attrs))

	and := And{Operands: []Constraint{
		FieldEquals{Path: "name", Value: "edge-1"},
		FieldEquals{Path: "vlan", Value: 100},
	}}
	assert.True(t, and.Matches(attrs))

	or := Or{Operands: []Constraint{
		FieldEquals{Path: "name", Value: "edge-2"},
		FieldEquals{Path: "vlan", Value: 100},
	}}
	assert.True(t, or.Matches(attrs))
	assert.False(t, Or{}.Matches(attrs))
}

func TestCombineSets(t *testing.T) {
	attrs := map[string]any{"name": "edge-1"}

	// no sets at all means unconstrained
	assert.IsType(t, Empty{}, CombineSets(nil))

	// one constrained set stays constrained
	c := CombineSets([]ConstraintSet{{"name": "edge-2"}})
	assert.False(t, c.Matches(attrs))

	// sets are ORed
	c = CombineSets([]ConstraintSet{{"name": "edge-2"}, {"name": "edge-1"}})
	assert.True(t, c.Matches(attrs))

	// any empty set overrides every constrained one
	c = CombineSets([]ConstraintSet{{"name": "edge-2"}, nil})
	assert.IsType(t, Empty{}, c)
	assert.True(t, c.Matches(attrs))
}

func TestConstraintSpecUnmarshal(t *testing.T) {
	var s ConstraintSpec
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Nil(t, s)
	assert.Equal(t, []ConstraintSet{nil}, s.Sets())

	require.NoError(t, json.Unmarshal([]byte(`{"name": "edge-1"}`), &s))
	assert.Equal(t, ConstraintSpec{{"name": "edge-1"}}, s)

	require.NoError(t, json.Unmarshal([]byte(`[{"site": "ams"}, {"site": "fra"}]`), &s))
	assert.Equal(t, ConstraintSpec{{"site": "ams"}, {"site": "fra"}}, s)
	assert.Equal(t, []ConstraintSet{{"site": "ams"}, {"site": "fra"}}, s.Sets())

	assert.Error(t, json.Unmarshal([]byte(`"name=edge-1"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`42`), &s))
}
