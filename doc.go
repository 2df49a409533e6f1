// Package groupcast implements the client-side session layer for a
// group-communication service.
//
// A process uses groupcast to join named process groups and to multicast
// messages that every member receives atomically and in the same agreed
// order. Membership tracking and ordering are provided by the external
// service behind interfaces.GroupService; this package manages the local
// sessions and turns service statuses into actionable errors.
//
// # Getting Started
//
//	svc, err := factory.NewServiceFactory().CreateService()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := groupcast.New(svc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	session, err := client.Create(nil)
//	if err != nil {
//	    log.Fatal(err) // e.g. "could not connect to group service: rc=11; Permission denied"
//	}
//
//	if err := session.Join([]byte("cluster-a")); err != nil {
//	    log.Fatal(err)
//	}
//
//	// One buffer, or several sent as one atomic unit.
//	err = session.SendMessage([]byte("hello"))
//	err = session.Send([]byte("header"), []byte("body"))
//
//	if err := client.Destroy(session); err != nil {
//	    log.Print(err)
//	}
//
// # Core Types
//
//   - [Client]: creates and destroys sessions against one service
//   - [Session]: one open connection, its joined groups and its owner value
//   - [Registry]: concurrent handle-to-session directory
//   - [Translator]: maps (operation, status) pairs to [Error] values
//   - [Error]: the domain error carrying a stable [Kind]
//
// # Error Handling
//
// Every operation returns nil or an *Error. Match categories with errors.Is
// against the exported sentinels:
//
//	err := session.Join(name)
//	switch {
//	case errors.Is(err, groupcast.ErrInvalidGroupName):
//	    // rejected locally, the service was never contacted
//	case errors.Is(err, groupcast.ErrJoinFailed):
//	    var gerr *groupcast.Error
//	    errors.As(err, &gerr)
//	    log.Printf("service status %s: %s", gerr.Status, gerr.Message)
//	}
//
// Input validation always happens before any service call. Service failures
// are never retried by this package.
//
// # Session Lifecycle
//
// Client.Create registers a session only after the service accepted the
// connection. Client.Destroy removes the session from the registry before
// finalizing its handle, so a concurrent lookup can never return a session
// that is being torn down. Destroying a session twice returns
// [ErrDoubleDestroy].
//
// # Thread Safety
//
// All types are safe for concurrent use. Registry lookups run in parallel;
// operations on one Session serialize on that Session's lock. Every call is
// synchronous and may block for a service round-trip.
//
// # Asynchronous Delivery
//
// Sessions are opened without delivery or configuration-change callbacks.
// [Registry.FindByHandle] lets a future dispatch loop that only receives
// raw handles recover the owning Session.
package groupcast
