// Package order provides the order aggregate as seen by the tracking relay.
//
// The package includes:
//   - Order: identity, parties, pickup and delivery points, status and the
//     agent's last known position
//   - Status: the lifecycle state machine
//     pending -> assigned -> in_transit -> delivered, with cancelled reachable
//     from every non-terminal status
//
// Key business rules:
//   - A status may only move to one of its immediate successors
//   - Assigned, in transit and delivered orders always have a delivery partner
//   - The agent position only changes while the order is in transit
package order
