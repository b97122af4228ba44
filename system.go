package mpc

import (
	"fmt"
	"strings"
)

// System defines named observation and control fields of a dynamical system.
// System is immutable once created.
type System struct {
	obs     []string
	ctrl    []string
	obsIdx  map[string]int
	ctrlIdx map[string]int
}

// NewSystem creates new System with the given observation and control field names and returns it.
// It returns error if either list is empty or if it contains empty or duplicate names.
func NewSystem(obs, ctrl []string) (*System, error) {
	if len(obs) == 0 || len(ctrl) == 0 {
		return nil, fmt.Errorf("%w: system needs at least one observation and one control: [%d x %d]",
			ErrShape, len(obs), len(ctrl))
	}

	obsIdx, err := indexFields(obs)
	if err != nil {
		return nil, fmt.Errorf("invalid observation fields: %w", err)
	}

	ctrlIdx, err := indexFields(ctrl)
	if err != nil {
		return nil, fmt.Errorf("invalid control fields: %w", err)
	}

	return &System{
		obs:     append([]string(nil), obs...),
		ctrl:    append([]string(nil), ctrl...),
		obsIdx:  obsIdx,
		ctrlIdx: ctrlIdx,
	}, nil
}

func indexFields(names []string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("empty field name at position %d", i)
		}
		if _, ok := idx[name]; ok {
			return nil, fmt.Errorf("duplicate field name %q", name)
		}
		idx[name] = i
	}

	return idx, nil
}

// ObsDim returns the number of observation fields.
func (s *System) ObsDim() int { return len(s.obs) }

// CtrlDim returns the number of control fields.
func (s *System) CtrlDim() int { return len(s.ctrl) }

// Observations returns observation field names in order.
func (s *System) Observations() []string {
	return append([]string(nil), s.obs...)
}

// Controls returns control field names in order.
func (s *System) Controls() []string {
	return append([]string(nil), s.ctrl...)
}

// ObsIndex returns position of observation field name.
func (s *System) ObsIndex(name string) (int, bool) {
	i, ok := s.obsIdx[name]
	return i, ok
}

// CtrlIndex returns position of control field name.
func (s *System) CtrlIndex(name string) (int, bool) {
	i, ok := s.ctrlIdx[name]
	return i, ok
}

// Equal returns true if s and o have the same observation and control fields in the same order.
func (s *System) Equal(o *System) bool {
	if s == o {
		return true
	}

	if s == nil || o == nil {
		return false
	}

	return sameFields(s.obs, o.obs) && sameFields(s.ctrl, o.ctrl)
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// String implements the Stringer interface.
func (s *System) String() string {
	return fmt.Sprintf("System{obs=[%s] ctrl=[%s]}", strings.Join(s.obs, ", "), strings.Join(s.ctrl, ", "))
}
