// Package jobs provides the background components of the relay.
//
// Scheduling uses github.com/robfig/cron/v3. Every long running component
// implements Job and is started and stopped through JobManager.
//
// # Simulated deliveries
//
// SimulationManager drives a delivery partner's position along a jittered
// straight line when the device cannot report one. Each simulation is a cron
// entry firing at the configured interval:
//
//	manager, _ := jobs.NewSimulationManager(nil, services.DefaultTrajectoryConfig(), nil, logger)
//	err := manager.Begin(ctx, jobs.SimulationRequest{
//		OrderID:  "O1",
//		AgentID:  "A1",
//		OwnerID:  sessionID,
//		Pickup:   pickup,
//		Delivery: delivery,
//		Emitter:  emitter,
//	})
//
// The pickup point is emitted immediately, then one step per tick. After the
// last step the entry is removed and Emitter.Arrive is called exactly once.
// A simulation also ends when its owner disconnects (CancelOwnedBy), when the
// order reaches a terminal status (StopTracking) or on Cancel.
//
// cron.Every does not support intervals below one second.
//
// # Lifecycle
//
//	jm := jobs.NewJobManager(logger, manager, listener)
//	if err := jm.StartAll(); err != nil {
//		log.Fatal(err)
//	}
//	defer jm.StopAll()
//
// A failed start stops the jobs already started, in reverse order.
package jobs
