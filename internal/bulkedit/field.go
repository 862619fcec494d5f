// Package bulkedit models multi-record editing: the current value of an
// attribute across a selection is Unset, Mixed, or a single Value, and a
// change set applies only the attributes that carry a Value.
package bulkedit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type State uint8

const (
	StateUnset State = iota
	StateMixed
	StateValue
)

var stateNames = [...]string{
	StateUnset: "unset",
	StateMixed: "mixed",
	StateValue: "value",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Field is a tri-state attribute value. The zero value is Unset.
type Field[T comparable] struct {
	state State
	value T
}

// Of returns a Field holding v.
func Of[T comparable](v T) Field[T] {
	return Field[T]{state: StateValue, value: v}
}

// Mixed returns a Field marking disagreeing values.
func Mixed[T comparable]() Field[T] {
	return Field[T]{state: StateMixed}
}

func (f Field[T]) State() State  { return f.state }
func (f Field[T]) IsUnset() bool { return f.state == StateUnset }
func (f Field[T]) IsMixed() bool { return f.state == StateMixed }

// Get returns the value and whether the field holds one.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == StateValue
}

// Merge folds another observation into f. Unset is the identity; two
// different values, or anything merged with Mixed, become Mixed.
func Merge[T comparable](a, b Field[T]) Field[T] {
	switch {
	case a.state == StateUnset:
		return b
	case b.state == StateUnset:
		return a
	case a.state == StateMixed || b.state == StateMixed:
		return Mixed[T]()
	case a.value == b.value:
		return a
	default:
		return Mixed[T]()
	}
}

// Apply returns the field's value when it holds one, otherwise current.
func (f Field[T]) Apply(current T) T {
	if f.state == StateValue {
		return f.value
	}
	return current
}

type fieldJSON[T any] struct {
	Mixed bool `json:"mixed,omitempty"`
	Value *T   `json:"value,omitempty"`
}

// MarshalJSON encodes Unset as null, Mixed as {"mixed":true} and a value as
// {"value":v}.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	switch f.state {
	case StateMixed:
		return json.Marshal(fieldJSON[T]{Mixed: true})
	case StateValue:
		v := f.value
		return json.Marshal(fieldJSON[T]{Value: &v})
	default:
		return []byte("null"), nil
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field[T]{}
		return nil
	}

	var raw fieldJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Mixed && raw.Value != nil:
		return fmt.Errorf("field cannot be both mixed and valued")
	case raw.Mixed:
		*f = Mixed[T]()
	case raw.Value != nil:
		*f = Of(*raw.Value)
	default:
		*f = Field[T]{}
	}
	return nil
}
