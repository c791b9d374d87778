// Package errs provides the typed errors shared by the tracking relay.
//
// Each error type follows the same pattern:
//   - a sentinel error variable (e.g. ErrValueIsRequired) usable with errors.Is
//   - a struct carrying the offending parameter and an optional cause
//   - constructors with and without cause
//   - Unwrap returning the sentinel
//
// ValueIsRequiredError, ValueIsInvalidError and ValueIsOutOfRangeError together form
// the validation class of errors; IsValidation classifies them. Rejected location
// samples are dropped on these errors without tearing the connection down.
package errs
