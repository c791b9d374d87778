// Package relay holds the live side of the tracking relay: connected sessions,
// their per-order subscriptions and the fan-out of events to them.
//
// A Registry owns every Session. Each session writes to its client through an
// Outbox, a bounded queue drained by one writer goroutine. A Fanout resolves the
// subscribers of an order at publish time and enqueues the event into each
// outbox, so a slow client only ever loses its own oldest frames.
//
//	registry := relay.NewRegistry(identities, relay.PermissivePolicy{}, relay.RegistryConfig{}, logger)
//	fanout := relay.NewFanout(registry, logger)
//
//	session, err := registry.Connect(ctx, transport, token)
//	if errors.Is(err, ports.ErrAuthentication) {
//		// refuse the connection
//	}
//	defer registry.Disconnect(session)
//
//	_ = registry.Subscribe(ctx, session, "O1")
//	fanout.Publish("O1", tracking.StatusEvent{OrderID: "O1", Status: order.InTransit})
package relay
