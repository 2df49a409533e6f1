// Package factory creates group service implementations for groupcast.
//
// The factory decouples code that opens sessions from the concrete backend:
// the in-process simulation from package testing, or the daemon-backed
// service from package real. Backends are chosen by configuration, so the
// same program can run against a simulated cluster in tests and a live
// daemon in production.
//
// # Configuration
//
// Configuration starts from DefaultConfig, is optionally overridden by a TOML
// file (see LoadConfigFile), and finally by environment variables:
//   - GROUPCAST_USE_SIMULATION: "true" or "false" to enable simulation mode
//   - GROUPCAST_NETWORK: "unix" or "tcp"
//   - GROUPCAST_ADDRESS: daemon socket path or host:port
//   - GROUPCAST_DIAL_TIMEOUT: integer milliseconds for connecting
//   - GROUPCAST_REQUEST_TIMEOUT: integer milliseconds per request
//   - GROUPCAST_DAEMON_KEY: hex daemon public key; enables encryption
//
// Invalid environment values are logged and ignored. Invalid file values
// are returned as errors.
//
// # Usage
//
//	factory, err := factory.NewServiceFactoryFromFile("/etc/groupcast.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	service, err := factory.CreateService()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := groupcast.New(service)
//
// # Testing Support
//
// CreateSimulationForTesting returns a simulated service with short timeouts
// and access to the simulator's inspection helpers:
//
//	func TestMyFeature(t *testing.T) {
//	    sim := factory.NewServiceFactory().CreateSimulationForTesting()
//	    client, _ := groupcast.New(sim)
//	    // ...
//	}
package factory
