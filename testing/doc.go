// Package testing provides an in-memory group service for deterministic
// testing of groupcast.
//
// # Overview
//
// [SimulatedGroupService] implements interfaces.GroupService without any
// network. It allocates handles, tracks group membership, and orders every
// multicast with a single global sequence number, so agreed ordering holds by
// construction. Messages are queued per member and can be drained with
// [SimulatedGroupService.Deliveries] for verification.
//
// # Simulation vs Real Implementation
//
//   - Simulation (this package): sessions, groups and deliveries live in
//     process memory. Used for unit and integration tests and demos.
//
//   - Real (real package): every session is a connection to a group daemon.
//
// Both satisfy interfaces.GroupService; the factory package switches between
// them.
//
// # Fault Injection
//
// Tests can force the next call of a primitive to fail:
//
//	sim := testing.NewSimulatedGroupService(nil)
//	sim.InjectFault(testing.CallConnect, interfaces.StatusErrAccess)
//	_, status := sim.Connect(interfaces.DefaultModel())
//	// status == interfaces.StatusErrAccess, no session was created
//
// [SimulatedGroupService.CallCount] reports how often each primitive was
// reached, which lets callers assert that local validation stopped a request
// before it touched the service.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package testing
