package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Constraint is a small filter expression evaluated against an object's
// attributes. The algebra keeps grant combination (union of grants,
// empty-overrides-all) testable independent of any storage engine; stores
// translate it into their own query language.
type Constraint interface {
	// Matches evaluates the constraint against in-memory attributes.
	// Nested attributes are addressed with dot-separated field paths.
	Matches(attrs map[string]any) bool
	isConstraint()
}

// Empty matches every object: the unconstrained grant.
type Empty struct{}

func (Empty) Matches(map[string]any) bool { return true }
func (Empty) isConstraint()               {}

// FieldEquals matches objects whose attribute at Path equals Value.
type FieldEquals struct {
	Path  string
	Value any
}

func (f FieldEquals) Matches(attrs map[string]any) bool {
	got, ok := lookupPath(attrs, f.Path)
	if !ok {
		return false
	}
	return looseEqual(got, f.Value)
}

func (FieldEquals) isConstraint() {}

// And matches when every operand matches.
type And struct {
	Operands []Constraint
}

func (a And) Matches(attrs map[string]any) bool {
	for _, op := range a.Operands {
		if !op.Matches(attrs) {
			return false
		}
	}
	return true
}

func (And) isConstraint() {}

// Or matches when at least one operand matches.
type Or struct {
	Operands []Constraint
}

func (o Or) Matches(attrs map[string]any) bool {
	for _, op := range o.Operands {
		if op.Matches(attrs) {
			return true
		}
	}
	return false
}

func (Or) isConstraint() {}

// ConstraintSet is the external form of one constraint mapping: field path
// to required value. A nil or empty set means "match all instances".
type ConstraintSet map[string]any

// Constraint builds the algebra form of the set. Keys are sorted so the
// result (and any SQL derived from it) is deterministic.
func (s ConstraintSet) Constraint() Constraint {
	if len(s) == 0 {
		return Empty{}
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 1 {
		return FieldEquals{Path: keys[0], Value: s[keys[0]]}
	}
	ops := make([]Constraint, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, FieldEquals{Path: k, Value: s[k]})
	}
	return And{Operands: ops}
}

// CombineSets builds the decision filter for one permission key: the OR of
// all accumulated sets. Any empty set short-circuits the whole filter to
// unconstrained, so one broad grant overrides narrower ones.
func CombineSets(sets []ConstraintSet) Constraint {
	if len(sets) == 0 {
		return Empty{}
	}
	ops := make([]Constraint, 0, len(sets))
	for _, s := range sets {
		if len(s) == 0 {
			return Empty{}
		}
		ops = append(ops, s.Constraint())
	}
	if len(ops) == 1 {
		return ops[0]
	}
	return Or{Operands: ops}
}

// ConstraintSpec is the persisted JSON form of a grant's constraints:
// null, a single mapping, or a sequence of mappings. It normalizes to a
// list; a sequence is the OR of its mappings.
type ConstraintSpec []ConstraintSet

func (s *ConstraintSpec) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	switch trimmed[0] {
	case '{':
		var one ConstraintSet
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*s = ConstraintSpec{one}
		return nil
	case '[':
		var many []ConstraintSet
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*s = ConstraintSpec(many)
		return nil
	default:
		return fmt.Errorf("constraints must be null, a mapping, or a sequence of mappings")
	}
}

// Sets normalizes to the accumulated-sets form used by the evaluator:
// a nil value contributes a single unconstrained set.
func (s ConstraintSpec) Sets() []ConstraintSet {
	if len(s) == 0 {
		return []ConstraintSet{nil}
	}
	return []ConstraintSet(s)
}

func lookupPath(attrs map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = attrs
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// looseEqual compares attribute values with JSON number semantics, since
// decoded payloads carry float64 where grants may carry int.
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
