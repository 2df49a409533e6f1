package real

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/groupcast/interfaces"
	"github.com/opd-ai/groupcast/limits"
	gcnoise "github.com/opd-ai/groupcast/noise"
	"github.com/opd-ai/groupcast/transport"
	"github.com/sirupsen/logrus"
)

// DialFunc opens the stream connection to the daemon.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// daemonSession is one daemon connection. The connection carries exactly one
// session, so closing it releases the handle on the daemon side as well.
type daemonSession struct {
	mu     sync.Mutex
	id     uuid.UUID
	conn   transport.Conn
	broken error
}

// DaemonGroupService implements interfaces.GroupService against a group
// daemon reachable over a unix or tcp socket.
type DaemonGroupService struct {
	config    *interfaces.ServiceConfig
	daemonKey []byte
	dial      DialFunc

	mu       sync.RWMutex
	sessions map[interfaces.Handle]*daemonSession
}

// NewDaemonGroupService creates a daemon-backed group service. The
// configuration is validated up front; no connection is made until Connect.
func NewDaemonGroupService(config *interfaces.ServiceConfig) (*DaemonGroupService, error) {
	if config == nil {
		return nil, errors.New("service config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid daemon service config: %w", err)
	}

	var daemonKey []byte
	if config.DaemonPublicKey != "" {
		key, err := gcnoise.ParsePublicKey(config.DaemonPublicKey)
		if err != nil {
			return nil, fmt.Errorf("invalid daemon public key: %w", err)
		}
		daemonKey = key
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewDaemonGroupService",
		"network":         config.Network,
		"address":         config.Address,
		"dial_timeout":    config.DialTimeout,
		"request_timeout": config.RequestTimeout,
		"encrypted":       daemonKey != nil,
	}).Info("Creating daemon group service")

	return &DaemonGroupService{
		config:    config,
		daemonKey: daemonKey,
		dial:      net.DialTimeout,
		sessions:  make(map[interfaces.Handle]*daemonSession),
	}, nil
}

// SetDialer replaces the function used to reach the daemon (primarily for testing).
func (d *DaemonGroupService) SetDialer(dial DialFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dial = dial
}

func (d *DaemonGroupService) dialTimeout() time.Duration {
	return time.Duration(d.config.DialTimeout) * time.Millisecond
}

func (d *DaemonGroupService) requestTimeout() time.Duration {
	return time.Duration(d.config.RequestTimeout) * time.Millisecond
}

// Connect implements GroupService.Connect. It dials a fresh connection,
// optionally runs the Noise handshake, and opens one session on it.
func (d *DaemonGroupService) Connect(model *interfaces.ModelDescriptor) (interfaces.Handle, interfaces.Status) {
	if model == nil {
		return 0, interfaces.StatusErrInvalidParam
	}

	conn, err := d.open()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DaemonGroupService.Connect",
			"address":  d.config.Address,
			"error":    err.Error(),
		}).Error("Failed to reach group daemon")
		return 0, statusForError(err)
	}

	id := uuid.New()
	resp, err := d.initialize(conn, model, id)
	if err != nil {
		conn.Close()
		logrus.WithFields(logrus.Fields{
			"function":      "DaemonGroupService.Connect",
			"connection_id": id.String(),
			"error":         err.Error(),
		}).Error("Initialize exchange failed")
		return 0, statusForError(err)
	}
	if !resp.Status.IsOK() {
		conn.Close()
		logrus.WithFields(logrus.Fields{
			"function":      "DaemonGroupService.Connect",
			"connection_id": id.String(),
			"status":        resp.Status.String(),
		}).Warn("Group daemon refused session")
		return 0, resp.Status
	}

	d.mu.Lock()
	if _, exists := d.sessions[resp.Handle]; exists {
		d.mu.Unlock()
		conn.Close()
		logrus.WithFields(logrus.Fields{
			"function": "DaemonGroupService.Connect",
			"handle":   resp.Handle.String(),
		}).Error("Group daemon reissued a handle that is still open")
		return 0, interfaces.StatusErrLibrary
	}
	d.sessions[resp.Handle] = &daemonSession{id: id, conn: conn}
	open := len(d.sessions)
	d.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":      "DaemonGroupService.Connect",
		"handle":        resp.Handle.String(),
		"connection_id": id.String(),
		"sessions":      open,
	}).Info("Session opened on group daemon")

	return resp.Handle, interfaces.StatusOK
}

// open dials the daemon and, when a daemon key is configured, upgrades the
// connection to an encrypted one. The handshake shares the dial timeout.
func (d *DaemonGroupService) open() (transport.Conn, error) {
	d.mu.RLock()
	dial := d.dial
	d.mu.RUnlock()

	raw, err := dial(d.config.Network, d.config.Address, d.dialTimeout())
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", d.config.Network, d.config.Address, err)
	}
	if d.daemonKey == nil {
		return transport.NewStreamConn(raw), nil
	}

	if err := raw.SetDeadline(time.Now().Add(d.dialTimeout())); err != nil {
		raw.Close()
		return nil, err
	}
	secure, err := transport.ClientHandshake(raw, d.daemonKey)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("noise handshake with %s: %w", d.config.Address, err)
	}
	return secure, nil
}

func (d *DaemonGroupService) initialize(conn transport.Conn, model *interfaces.ModelDescriptor, id uuid.UUID) (transport.InitializeResponse, error) {
	reply, err := d.exchange(conn, transport.EncodeInitialize(transport.InitializeRequest{
		Version:      model.Version,
		ConnectionID: id,
	}))
	if err != nil {
		return transport.InitializeResponse{}, err
	}
	return transport.DecodeInitializeResponse(reply)
}

// exchange writes one request and reads its response under the request timeout.
func (d *DaemonGroupService) exchange(conn transport.Conn, request *transport.Packet) (*transport.Packet, error) {
	if err := conn.SetDeadline(time.Now().Add(d.requestTimeout())); err != nil {
		return nil, err
	}
	if err := conn.WritePacket(request); err != nil {
		return nil, err
	}
	return conn.ReadPacket()
}

func (d *DaemonGroupService) lookup(handle interfaces.Handle) (*daemonSession, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sess, ok := d.sessions[handle]
	return sess, ok
}

// request runs one status-returning exchange on the session's connection.
// A failure after bytes may have moved leaves the stream in an unknown
// position, so the session is marked broken and every later request fails
// with StatusErrLibrary. An oversized request is refused before writing.
func (d *DaemonGroupService) request(function string, handle interfaces.Handle, packet *transport.Packet) interfaces.Status {
	sess, ok := d.lookup(handle)
	if !ok {
		return interfaces.StatusErrBadHandle
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.broken != nil {
		return interfaces.StatusErrLibrary
	}

	status, err := d.roundTrip(sess.conn, packet)
	if err == nil {
		return status
	}

	var frameErr *frameSizeError
	if !errors.As(err, &frameErr) {
		sess.broken = err
	}
	logrus.WithFields(logrus.Fields{
		"function":      function,
		"handle":        handle.String(),
		"connection_id": sess.id.String(),
		"error":         err.Error(),
	}).Error("Request to group daemon failed")
	return statusForError(err)
}

// frameSizeError marks a request refused for size before anything was written.
type frameSizeError struct {
	err error
}

func (e *frameSizeError) Error() string { return e.err.Error() }
func (e *frameSizeError) Unwrap() error { return e.err }

func (d *DaemonGroupService) roundTrip(conn transport.Conn, packet *transport.Packet) (interfaces.Status, error) {
	if err := conn.SetDeadline(time.Now().Add(d.requestTimeout())); err != nil {
		return 0, err
	}
	if err := conn.WritePacket(packet); err != nil {
		if errors.Is(err, limits.ErrFrameTooLarge) {
			return 0, &frameSizeError{err: err}
		}
		return 0, err
	}
	reply, err := conn.ReadPacket()
	if err != nil {
		return 0, err
	}
	return transport.DecodeStatus(reply)
}

// Join implements GroupService.Join.
func (d *DaemonGroupService) Join(handle interfaces.Handle, group []byte) interfaces.Status {
	packet, err := transport.EncodeJoin(group)
	if err != nil {
		return statusForError(err)
	}
	return d.request("DaemonGroupService.Join", handle, packet)
}

// Multicast implements GroupService.Multicast.
func (d *DaemonGroupService) Multicast(handle interfaces.Handle, mode interfaces.OrderingMode, buffers [][]byte) interfaces.Status {
	packet, err := transport.EncodeMulticast(transport.MulticastRequest{Mode: mode, Buffers: buffers})
	if err != nil {
		return statusForError(err)
	}
	return d.request("DaemonGroupService.Multicast", handle, packet)
}

// Finalize implements GroupService.Finalize. The handle is forgotten and its
// connection closed whatever the daemon answers.
func (d *DaemonGroupService) Finalize(handle interfaces.Handle) interfaces.Status {
	d.mu.Lock()
	sess, ok := d.sessions[handle]
	delete(d.sessions, handle)
	d.mu.Unlock()

	if !ok {
		return interfaces.StatusErrBadHandle
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	status := interfaces.StatusOK
	if sess.broken != nil {
		status = interfaces.StatusErrLibrary
	} else if reply, err := d.exchange(sess.conn, transport.EncodeFinalize()); err != nil {
		status = statusForError(err)
	} else if status, err = transport.DecodeStatus(reply); err != nil {
		status = statusForError(err)
	}

	if err := sess.conn.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DaemonGroupService.Finalize",
			"handle":   handle.String(),
			"error":    err.Error(),
		}).Warn("Failed to close daemon connection")
	}
	sess.broken = net.ErrClosed

	logrus.WithFields(logrus.Fields{
		"function":      "DaemonGroupService.Finalize",
		"handle":        handle.String(),
		"connection_id": sess.id.String(),
		"status":        status.String(),
	}).Info("Session closed on group daemon")

	return status
}

// Close finalizes every open session. It is used when the factory swaps
// backends; callers holding groupcast sessions should destroy them instead.
func (d *DaemonGroupService) Close() error {
	d.mu.RLock()
	handles := make([]interfaces.Handle, 0, len(d.sessions))
	for h := range d.sessions {
		handles = append(handles, h)
	}
	d.mu.RUnlock()

	var errs []error
	for _, h := range handles {
		if status := d.Finalize(h); !status.IsOK() && status != interfaces.StatusErrBadHandle {
			errs = append(errs, fmt.Errorf("finalize %s: %s", h, status))
		}
	}
	return errors.Join(errs...)
}

// DescribeStatus implements GroupService.DescribeStatus.
func (d *DaemonGroupService) DescribeStatus(status interfaces.Status) string {
	return interfaces.DescribeStatus(status)
}

// IsSimulation implements GroupService.IsSimulation
func (d *DaemonGroupService) IsSimulation() bool {
	return false
}

// GetStats returns statistics about the daemon service.
func (d *DaemonGroupService) GetStats() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return map[string]interface{}{
		"sessions":        len(d.sessions),
		"is_simulation":   false,
		"network":         d.config.Network,
		"address":         d.config.Address,
		"encrypted":       d.daemonKey != nil,
		"request_timeout": d.requestTimeout(),
	}
}

// statusForError maps local and transport failures onto service statuses so
// callers see the same taxonomy whether the daemon or the connection failed.
func statusForError(err error) interfaces.Status {
	var netErr net.Error
	switch {
	case errors.Is(err, limits.ErrFrameTooLarge):
		return interfaces.StatusErrTooBig
	case errors.Is(err, limits.ErrGroupNameTooLong):
		return interfaces.StatusErrNameTooLong
	case errors.Is(err, limits.ErrGroupNameEmpty),
		errors.Is(err, limits.ErrMessageEmpty),
		errors.Is(err, limits.ErrTooManyBuffers):
		return interfaces.StatusErrInvalidParam
	case errors.Is(err, os.ErrDeadlineExceeded):
		return interfaces.StatusErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return interfaces.StatusErrTimeout
	default:
		return interfaces.StatusErrLibrary
	}
}
