package breaker

import (
	"errors"
	"reflect"
)

// Category identifies a class of errors that, when raised by the wrapped
// operation, should propagate to the caller without incrementing or
// resetting a [Breaker]'s failure counter.
//
// Go has no exception class hierarchy to match against, but [errors.As]
// already performs the equivalent walk: it follows an error's Unwrap chain
// and succeeds if any error in that chain is assignable to the target type,
// including interface targets satisfied by a concrete error further down the
// chain. [ForType] builds a Category directly on top of that, which gives the
// same "matches this category or any refinement of it" semantics the
// specification calls for: an excluded interface type also excludes every
// concrete error implementing it.
//
// Category is a comparable value (it holds a reflect.Type or a sentinel error,
// never a closure) so categories round-trip through AddExcluded/RemoveExcluded
// and through equality-based tests undisturbed.
type Category struct {
	name   string
	typ    reflect.Type // set by ForType; nil for a sentinel category
	target error        // set by Is; nil for a type-based category
}

// Name identifies the category, used to match categories for removal via
// [Breaker.RemoveExcluded].
func (c Category) Name() string { return c.name }

// ForType returns a Category matching any error whose Unwrap chain contains a
// value assignable to T — a concrete error type, or an interface that a
// concrete error (or a wrapper of it) implements.
func ForType[T error]() Category {
	var sample T
	typ := reflect.TypeOf(&sample).Elem()
	return Category{name: typ.String(), typ: typ}
}

// Is returns a Category matching any error for which errors.Is(err, target)
// holds, i.e. target itself or any error that wraps it.
func Is(target error) Category {
	return Category{name: "is:" + target.Error(), target: target}
}

// Matches reports whether err belongs to the category.
func (c Category) Matches(err error) bool {
	if c.target != nil {
		return errors.Is(err, c.target)
	}
	if c.typ != nil {
		target := reflect.New(c.typ)
		return errors.As(err, target.Interface())
	}
	return false
}
