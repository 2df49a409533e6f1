// Package interfaces defines the boundary between groupcast and the external
// group-communication service.
//
// The service tracks process-group membership and orders multicast delivery.
// groupcast consumes those guarantees through [GroupService]; it never
// computes membership or ordering itself. Two implementations ship with the
// module:
//
//   - testing.SimulatedGroupService, an in-process service for tests and demos
//   - real.DaemonGroupService, a client for a group daemon reachable over a
//     unix or tcp stream socket
//
// The factory package selects between them from a [ServiceConfig]:
//
//	svc, err := factory.NewServiceFactory().CreateService()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handle, status := svc.Connect(interfaces.DefaultModel())
//	if !status.IsOK() {
//	    log.Printf("connect failed: %s", svc.DescribeStatus(status))
//	}
//
// # Status Codes
//
// Every service call returns a [Status]. [StatusOK] is success; all other
// values are failures whose generic text is available from [DescribeStatus].
// Callers that need operation-specific wording translate statuses through
// groupcast.Translator instead of showing the generic text directly.
//
// # Ordering
//
// [OrderAgreed] is the only mode groupcast requests. [OrderFIFO] and
// [OrderSafe] are enumerated so backends can decode every mode a daemon
// reports.
package interfaces
