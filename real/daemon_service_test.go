package real

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/flynn/noise"
	"github.com/opd-ai/groupcast"
	"github.com/opd-ai/groupcast/interfaces"
	"github.com/opd-ai/groupcast/limits"
	gcnoise "github.com/opd-ai/groupcast/noise"
	"github.com/opd-ai/groupcast/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon is a loopback group daemon speaking the transport protocol.
type fakeDaemon struct {
	ln     net.Listener
	static *noise.DHKey

	mu              sync.Mutex
	next            interfaces.Handle
	connectionIDs   [][transport.ConnectionIDSize]byte
	joins           []string
	sent            [][][]byte
	finalized       int
	initStatus      interfaces.Status
	joinStatus      interfaces.Status
	multicastStatus interfaces.Status
	stallMulticast  bool
}

func newFakeDaemon(t *testing.T, static *noise.DHKey) *fakeDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeDaemon{ln: ln, static: static, next: 0x1000}
	go f.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeDaemon) config() *interfaces.ServiceConfig {
	cfg := &interfaces.ServiceConfig{
		Network:        "tcp",
		Address:        f.ln.Addr().String(),
		DialTimeout:    1000,
		RequestTimeout: 1000,
	}
	if f.static != nil {
		cfg.DaemonPublicKey = hex.EncodeToString(f.static.Public)
	}
	return cfg
}

func (f *fakeDaemon) acceptLoop() {
	for {
		raw, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.serve(raw)
	}
}

func (f *fakeDaemon) serve(raw net.Conn) {
	defer raw.Close()

	var conn transport.Conn = transport.NewStreamConn(raw)
	if f.static != nil {
		secure, err := transport.ServerHandshake(raw, *f.static)
		if err != nil {
			return
		}
		conn = secure
	}

	for {
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		reply, done := f.handle(packet)
		if reply == nil {
			continue
		}
		if err := conn.WritePacket(reply); err != nil || done {
			return
		}
	}
}

func orOK(s interfaces.Status) interfaces.Status {
	if s == 0 {
		return interfaces.StatusOK
	}
	return s
}

func (f *fakeDaemon) handle(packet *transport.Packet) (*transport.Packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch packet.PacketType {
	case transport.PacketInitialize:
		req, err := transport.DecodeInitialize(packet)
		if err != nil {
			return transport.EncodeInitializeResponse(transport.InitializeResponse{Status: interfaces.StatusErrInvalidParam}), true
		}
		f.connectionIDs = append(f.connectionIDs, req.ConnectionID)
		if status := orOK(f.initStatus); !status.IsOK() {
			return transport.EncodeInitializeResponse(transport.InitializeResponse{Status: status}), true
		}
		f.next++
		return transport.EncodeInitializeResponse(transport.InitializeResponse{Status: interfaces.StatusOK, Handle: f.next}), false
	case transport.PacketJoin:
		group, err := transport.DecodeJoin(packet)
		if err != nil {
			return transport.EncodeStatus(interfaces.StatusErrInvalidParam), false
		}
		f.joins = append(f.joins, string(group))
		return transport.EncodeStatus(orOK(f.joinStatus)), false
	case transport.PacketMulticast:
		if f.stallMulticast {
			return nil, false
		}
		req, err := transport.DecodeMulticast(packet)
		if err != nil {
			return transport.EncodeStatus(interfaces.StatusErrMessageError), false
		}
		f.sent = append(f.sent, req.Buffers)
		return transport.EncodeStatus(orOK(f.multicastStatus)), false
	case transport.PacketFinalize:
		f.finalized++
		return transport.EncodeStatus(interfaces.StatusOK), true
	default:
		return transport.EncodeStatus(interfaces.StatusErrNotSupported), false
	}
}

func (f *fakeDaemon) snapshot() (ids int, joins []string, sent [][][]byte, finalized int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connectionIDs), append([]string(nil), f.joins...), append([][][]byte(nil), f.sent...), f.finalized
}

func TestNewDaemonGroupServiceValidation(t *testing.T) {
	_, err := NewDaemonGroupService(nil)
	assert.Error(t, err)

	_, err = NewDaemonGroupService(&interfaces.ServiceConfig{Network: "tcp", DialTimeout: 1, RequestTimeout: 1})
	assert.ErrorIs(t, err, interfaces.ErrMissingAddress)

	_, err = NewDaemonGroupService(&interfaces.ServiceConfig{
		Network: "tcp", Address: "127.0.0.1:1", DialTimeout: 1, RequestTimeout: 1,
		DaemonPublicKey: "not-a-key",
	})
	assert.ErrorIs(t, err, interfaces.ErrInvalidDaemonKey)
}

func TestDaemonSessionLifecycle(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)
	assert.False(t, svc.IsSimulation())

	handle, status := svc.Connect(interfaces.DefaultModel())
	require.Equal(t, interfaces.StatusOK, status)
	assert.Equal(t, interfaces.Handle(0x1001), handle)

	assert.Equal(t, interfaces.StatusOK, svc.Join(handle, []byte("cluster-a")))
	assert.Equal(t, interfaces.StatusOK, svc.Multicast(handle, interfaces.OrderAgreed, [][]byte{[]byte("hel"), []byte("lo")}))
	assert.Equal(t, 1, svc.GetStats()["sessions"])

	assert.Equal(t, interfaces.StatusOK, svc.Finalize(handle))
	assert.Equal(t, 0, svc.GetStats()["sessions"])

	ids, joins, sent, finalized := daemon.snapshot()
	assert.Equal(t, 1, ids)
	assert.Equal(t, []string{"cluster-a"}, joins)
	assert.Equal(t, [][][]byte{{[]byte("hel"), []byte("lo")}}, sent)
	assert.Equal(t, 1, finalized)

	assert.Equal(t, interfaces.StatusErrBadHandle, svc.Join(handle, []byte("cluster-a")))
	assert.Equal(t, interfaces.StatusErrBadHandle, svc.Finalize(handle))
}

func TestDaemonConnectionIDsAreUnique(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, status := svc.Connect(interfaces.DefaultModel())
		require.Equal(t, interfaces.StatusOK, status)
	}
	require.NoError(t, svc.Close())

	daemon.mu.Lock()
	defer daemon.mu.Unlock()
	seen := make(map[[transport.ConnectionIDSize]byte]bool)
	for _, id := range daemon.connectionIDs {
		assert.False(t, seen[id], "connection id %x reused", id)
		seen[id] = true
	}
	assert.Equal(t, 3, daemon.finalized)
}

func TestDaemonRefusesSession(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	daemon.initStatus = interfaces.StatusErrAccess
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)

	handle, status := svc.Connect(interfaces.DefaultModel())
	assert.Equal(t, interfaces.StatusErrAccess, status)
	assert.Zero(t, handle)
	assert.Equal(t, 0, svc.GetStats()["sessions"])
}

func TestDaemonUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	svc, err := NewDaemonGroupService(&interfaces.ServiceConfig{
		Network: "tcp", Address: addr, DialTimeout: 500, RequestTimeout: 500,
	})
	require.NoError(t, err)

	_, status := svc.Connect(interfaces.DefaultModel())
	assert.Equal(t, interfaces.StatusErrLibrary, status)
}

func TestDaemonDialerOverride(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)

	svc.SetDialer(func(network, address string, timeout time.Duration) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Net: network, Err: os.ErrDeadlineExceeded}
	})
	_, status := svc.Connect(interfaces.DefaultModel())
	assert.Equal(t, interfaces.StatusErrTimeout, status)
}

func TestDaemonRequestTimeoutBreaksSession(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	daemon.stallMulticast = true
	cfg := daemon.config()
	cfg.RequestTimeout = 50
	svc, err := NewDaemonGroupService(cfg)
	require.NoError(t, err)

	handle, status := svc.Connect(interfaces.DefaultModel())
	require.Equal(t, interfaces.StatusOK, status)
	require.Equal(t, interfaces.StatusOK, svc.Join(handle, []byte("g")))

	assert.Equal(t, interfaces.StatusErrTimeout, svc.Multicast(handle, interfaces.OrderAgreed, [][]byte{[]byte("x")}))
	assert.Equal(t, interfaces.StatusErrLibrary, svc.Join(handle, []byte("h")))
	assert.Equal(t, interfaces.StatusErrLibrary, svc.Finalize(handle))
	assert.Equal(t, 0, svc.GetStats()["sessions"])
}

func TestDaemonOversizedMulticast(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)

	handle, status := svc.Connect(interfaces.DefaultModel())
	require.Equal(t, interfaces.StatusOK, status)

	huge := make([]byte, limits.MaxFrameSize)
	assert.Equal(t, interfaces.StatusErrTooBig, svc.Multicast(handle, interfaces.OrderAgreed, [][]byte{huge}))

	// Nothing was written, so the connection is still usable.
	assert.Equal(t, interfaces.StatusOK, svc.Join(handle, []byte("g")))
	_, _, sent, _ := daemon.snapshot()
	assert.Empty(t, sent)
}

func TestDaemonForwardsStatuses(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	daemon.joinStatus = interfaces.StatusErrExist
	daemon.multicastStatus = interfaces.StatusErrTryAgain
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)

	handle, status := svc.Connect(interfaces.DefaultModel())
	require.Equal(t, interfaces.StatusOK, status)

	assert.Equal(t, interfaces.StatusErrExist, svc.Join(handle, []byte("g")))
	assert.Equal(t, interfaces.StatusErrTryAgain, svc.Multicast(handle, interfaces.OrderAgreed, [][]byte{[]byte("x")}))
	assert.Equal(t, interfaces.StatusErrNameTooLong, svc.Join(handle, make([]byte, limits.MaxGroupNameLen+1)))
	assert.Equal(t, interfaces.StatusErrInvalidParam, svc.Multicast(handle, interfaces.OrderAgreed, nil))
}

func TestDaemonEncryptedSession(t *testing.T) {
	static, err := gcnoise.GenerateKeypair()
	require.NoError(t, err)
	daemon := newFakeDaemon(t, &static)

	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)
	assert.Equal(t, true, svc.GetStats()["encrypted"])

	handle, status := svc.Connect(interfaces.DefaultModel())
	require.Equal(t, interfaces.StatusOK, status)
	assert.Equal(t, interfaces.StatusOK, svc.Join(handle, []byte("secure")))
	assert.Equal(t, interfaces.StatusOK, svc.Multicast(handle, interfaces.OrderAgreed, [][]byte{[]byte("sealed")}))
	assert.Equal(t, interfaces.StatusOK, svc.Finalize(handle))

	_, joins, sent, _ := daemon.snapshot()
	assert.Equal(t, []string{"secure"}, joins)
	assert.Equal(t, [][][]byte{{[]byte("sealed")}}, sent)
}

func TestDaemonWrongKeyFailsHandshake(t *testing.T) {
	static, err := gcnoise.GenerateKeypair()
	require.NoError(t, err)
	other, err := gcnoise.GenerateKeypair()
	require.NoError(t, err)
	daemon := newFakeDaemon(t, &static)

	cfg := daemon.config()
	cfg.DaemonPublicKey = hex.EncodeToString(other.Public)
	svc, err := NewDaemonGroupService(cfg)
	require.NoError(t, err)

	_, status := svc.Connect(interfaces.DefaultModel())
	assert.NotEqual(t, interfaces.StatusOK, status)
	assert.Equal(t, 0, svc.GetStats()["sessions"])
}

func TestDaemonWithClient(t *testing.T) {
	daemon := newFakeDaemon(t, nil)
	svc, err := NewDaemonGroupService(daemon.config())
	require.NoError(t, err)

	client, err := groupcast.New(svc)
	require.NoError(t, err)

	session, err := client.Create(nil)
	require.NoError(t, err)
	require.NoError(t, session.Join([]byte("cluster-a")))
	require.NoError(t, session.SendMessage([]byte("hello")))

	daemon.mu.Lock()
	daemon.joinStatus = interfaces.StatusErrExist
	daemon.mu.Unlock()
	err = session.Join([]byte("cluster-a"))
	assert.ErrorIs(t, err, groupcast.ErrJoinFailed)

	require.NoError(t, client.Close())
	_, _, _, finalized := daemon.snapshot()
	assert.Equal(t, 1, finalized)
}

func TestStatusForError(t *testing.T) {
	timeout := &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}

	tests := []struct {
		name string
		err  error
		want interfaces.Status
	}{
		{"frame too large", fmt.Errorf("write: %w", limits.ErrFrameTooLarge), interfaces.StatusErrTooBig},
		{"name too long", limits.ErrGroupNameTooLong, interfaces.StatusErrNameTooLong},
		{"empty name", limits.ErrGroupNameEmpty, interfaces.StatusErrInvalidParam},
		{"empty message", limits.ErrMessageEmpty, interfaces.StatusErrInvalidParam},
		{"deadline", fmt.Errorf("read frame header: %w", timeout), interfaces.StatusErrTimeout},
		{"eof", io.ErrUnexpectedEOF, interfaces.StatusErrLibrary},
		{"malformed", transport.ErrMalformedPacket, interfaces.StatusErrLibrary},
		{"other", errors.New("boom"), interfaces.StatusErrLibrary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}
