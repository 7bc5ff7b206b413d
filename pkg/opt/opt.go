// Package opt provides optional values for settings where "unset" must stay
// distinguishable from the zero value.
package opt

import "fmt"

// Value holds a T that may or may not be set
type Value[T any] struct {
	v  T
	ok bool
}

// Bool is a tri-state boolean: unset, true or false
type Bool = Value[bool]

// Some returns a set value
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an unset value
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the value and whether it is set
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSet reports whether a value is present
func (o Value[T]) IsSet() bool {
	return o.ok
}

// Or returns the value when set, def otherwise
func (o Value[T]) Or(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

func (o Value[T]) String() string {
	if !o.ok {
		return "<unset>"
	}
	return fmt.Sprint(o.v)
}
