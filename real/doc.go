// Package real provides the daemon-backed group service for groupcast.
//
// DaemonGroupService implements interfaces.GroupService by talking to a
// group daemon over a unix socket or TCP. Every session gets its own
// connection: Connect dials, optionally runs a Noise NK handshake against
// the daemon's static key, and sends an initialize request carrying a random
// connection id. Join, Multicast and Finalize are single request/response
// exchanges on that connection, bounded by ServiceConfig.RequestTimeout.
//
//	config := &interfaces.ServiceConfig{
//	    Network:        "unix",
//	    Address:        "/run/groupd.sock",
//	    DialTimeout:    2000,
//	    RequestTimeout: 5000,
//	}
//	service, err := real.NewDaemonGroupService(config)
//
// # Failure Mapping
//
// Connection failures are reported as service statuses so callers handle
// daemon refusals and broken connections the same way:
//
//   - deadline exceeded: StatusErrTimeout
//   - request larger than one frame: StatusErrTooBig
//   - any other I/O or protocol failure: StatusErrLibrary
//
// After an I/O failure the session's connection is unusable and every later
// request returns StatusErrLibrary until the session is finalized.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Requests on different handles
// proceed in parallel; requests on one handle are serialized.
package real
