package interfaces

import (
	"errors"
	"fmt"
)

// Handle is the opaque session identifier issued by a group service on
// Connect. It is unique among all currently open sessions of that service.
type Handle uint64

// String renders the handle the way the service logs it.
func (h Handle) String() string {
	return fmt.Sprintf("0x%016x", uint64(h))
}

// OrderingMode selects the delivery guarantee requested for a multicast.
type OrderingMode uint8

const (
	// OrderFIFO delivers messages from one sender in the order sent.
	OrderFIFO OrderingMode = iota
	// OrderAgreed delivers all messages to every member in the same total order.
	OrderAgreed
	// OrderSafe is agreed ordering plus delivery only once every member holds the message.
	OrderSafe
)

func (m OrderingMode) String() string {
	switch m {
	case OrderFIFO:
		return "fifo"
	case OrderAgreed:
		return "agreed"
	case OrderSafe:
		return "safe"
	default:
		return fmt.Sprintf("ordering(%d)", uint8(m))
	}
}

// ModelVersion identifies the session model negotiated on Connect.
type ModelVersion uint8

// ModelV1 is the only model the service currently understands.
const ModelV1 ModelVersion = 1

// ModelDescriptor is passed to Connect. Delivery and configuration-change
// callbacks are intentionally absent; sessions opened through this package
// never receive asynchronous notifications.
type ModelDescriptor struct {
	Version ModelVersion
}

// DefaultModel returns the descriptor used when the caller supplies none.
func DefaultModel() *ModelDescriptor {
	return &ModelDescriptor{Version: ModelV1}
}

// GroupService is the boundary to the external group-communication service.
// Implementations provide membership tracking and ordered delivery; callers
// in this module only manage the local view of each session.
//
// Every method is synchronous and may block for a network round-trip.
type GroupService interface {
	// Connect establishes a new session and returns its handle.
	Connect(model *ModelDescriptor) (Handle, Status)

	// Finalize releases a session. It must be called exactly once per
	// successful Connect.
	Finalize(handle Handle) Status

	// Join adds the session to the named process group.
	Join(handle Handle, group []byte) Status

	// Multicast sends buffers as one atomic message to every group the
	// session has joined.
	Multicast(handle Handle, mode OrderingMode, buffers [][]byte) Status

	// DescribeStatus returns the service's generic description of a status.
	DescribeStatus(status Status) string

	// IsSimulation returns true for in-process simulated services.
	IsSimulation() bool
}

var (
	// ErrInvalidTimeout indicates a non-positive timeout value.
	ErrInvalidTimeout = errors.New("timeout must be positive")
	// ErrMissingAddress indicates a real backend was requested without an address.
	ErrMissingAddress = errors.New("service address is required")
	// ErrUnsupportedNetwork indicates a network other than unix or tcp.
	ErrUnsupportedNetwork = errors.New("network must be unix or tcp")
	// ErrInvalidDaemonKey indicates the daemon public key is not 32 hex-encoded bytes.
	ErrInvalidDaemonKey = errors.New("daemon public key must be 64 hex characters")
)

// ServiceConfig holds configuration for group service implementations.
type ServiceConfig struct {
	// UseSimulation selects the in-process simulated service.
	UseSimulation bool

	// Network is the dial network for the daemon, "unix" or "tcp".
	Network string

	// Address is the daemon socket path or host:port.
	Address string

	// DialTimeout bounds Connect, in milliseconds.
	DialTimeout int

	// RequestTimeout bounds each request/response exchange, in milliseconds.
	RequestTimeout int

	// DaemonPublicKey is the hex-encoded static Noise key of the daemon.
	// When set, every connection is encrypted.
	DaemonPublicKey string
}

// Validate checks the configuration for values no backend can use.
func (c *ServiceConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout %d", ErrInvalidTimeout, c.DialTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout %d", ErrInvalidTimeout, c.RequestTimeout)
	}
	if c.UseSimulation {
		return nil
	}
	if c.Network != "unix" && c.Network != "tcp" {
		return fmt.Errorf("%w: got %q", ErrUnsupportedNetwork, c.Network)
	}
	if c.Address == "" {
		return ErrMissingAddress
	}
	if c.DaemonPublicKey != "" && !isHexKey(c.DaemonPublicKey) {
		return ErrInvalidDaemonKey
	}
	return nil
}

func isHexKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
