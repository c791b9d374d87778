// Package tracking holds the facts the relay moves around: location samples
// reported by delivery agents and the events fanned out to the watchers of an
// order.
//
// Event is a closed tagged union of LocationEvent and StatusEvent; adapters
// switch on the concrete type when encoding frames.
package tracking
