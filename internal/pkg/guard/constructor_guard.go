// Package guard protects value objects, entities and commands from being used
// as zero values instead of being built through their constructors.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is supplied.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard is embedded into types that may only be created through a
// constructor. Its zero value reports the object as not constructed.
//
// Example:
//
//	var ErrSampleNotConstructed = errors.New("Sample must be created via NewSample")
//
//	type Sample struct {
//	    lat   float64
//	    guard guard.ConstructorGuard
//	}
//
//	func (s Sample) Validate() error {
//	    return s.guard.Validate(ErrSampleNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard marked as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is nil)
// if the guard was not created through NewConstructorGuard.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
