// Package kernel provides the domain primitives shared by the tracking model.
//
// Location is an immutable, range-checked latitude/longitude pair. Both the
// location samples sent by delivery agents and the pickup/delivery points of an
// order are expressed with it, so a value that made it into a Location is always
// safe to persist and broadcast.
package kernel
