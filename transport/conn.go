package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/flynn/noise"
	"github.com/opd-ai/groupcast/limits"
	gcnoise "github.com/opd-ai/groupcast/noise"
)

// aeadTagSize is the ChaChaPoly authentication tag appended to every
// encrypted packet.
const aeadTagSize = 16

// ErrUnexpectedPacket indicates a packet type that is not valid at this point
// of the exchange.
var ErrUnexpectedPacket = errors.New("unexpected packet type")

// Conn exchanges framed packets over one stream connection. A Conn is not
// safe for concurrent use; callers serialize request/response exchanges.
type Conn interface {
	// WritePacket frames and writes one packet.
	WritePacket(packet *Packet) error

	// ReadPacket reads and parses one packet.
	ReadPacket() (*Packet, error)

	// SetDeadline bounds the next read and write.
	SetDeadline(t time.Time) error

	// RemoteAddr returns the daemon address.
	RemoteAddr() net.Addr

	// Close closes the underlying connection.
	Close() error
}

// StreamConn sends packets unencrypted. It is meant for unix sockets where
// the daemon authenticates peers through socket credentials.
type StreamConn struct {
	conn net.Conn
}

// NewStreamConn wraps an established stream connection.
func NewStreamConn(conn net.Conn) *StreamConn {
	return &StreamConn{conn: conn}
}

// WritePacket implements Conn.
func (c *StreamConn) WritePacket(packet *Packet) error {
	data, err := packet.Serialize()
	if err != nil {
		return err
	}
	return WriteFrame(c.conn, data)
}

// ReadPacket implements Conn.
func (c *StreamConn) ReadPacket() (*Packet, error) {
	data, err := ReadFrame(c.conn)
	if err != nil {
		return nil, err
	}
	return ParsePacket(data)
}

// SetDeadline implements Conn.
func (c *StreamConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// RemoteAddr implements Conn.
func (c *StreamConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close implements Conn.
func (c *StreamConn) Close() error {
	return c.conn.Close()
}

// SecureConn encrypts every packet with the cipher states of a completed
// Noise handshake. Each packet travels as a PacketNoiseMessage whose body is
// the encrypted serialized inner packet.
type SecureConn struct {
	conn       net.Conn
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
}

// ClientHandshake runs the initiator side of the NK handshake on conn and
// returns an encrypted Conn. daemonPub is the daemon's static public key.
func ClientHandshake(conn net.Conn, daemonPub []byte) (*SecureConn, error) {
	hs, err := gcnoise.NewInitiator(daemonPub)
	if err != nil {
		return nil, err
	}

	msg, err := hs.WriteMessage(nil)
	if err != nil {
		return nil, err
	}
	if err := writeHandshake(conn, msg); err != nil {
		return nil, err
	}

	reply, err := readHandshake(conn)
	if err != nil {
		return nil, err
	}
	if _, err := hs.ReadMessage(reply); err != nil {
		return nil, err
	}

	return secureConnFromHandshake(conn, hs)
}

// ServerHandshake runs the responder side of the NK handshake on conn.
func ServerHandshake(conn net.Conn, static noise.DHKey) (*SecureConn, error) {
	hs, err := gcnoise.NewResponder(static)
	if err != nil {
		return nil, err
	}

	msg, err := readHandshake(conn)
	if err != nil {
		return nil, err
	}
	if _, err := hs.ReadMessage(msg); err != nil {
		return nil, err
	}

	reply, err := hs.WriteMessage(nil)
	if err != nil {
		return nil, err
	}
	if err := writeHandshake(conn, reply); err != nil {
		return nil, err
	}

	return secureConnFromHandshake(conn, hs)
}

func secureConnFromHandshake(conn net.Conn, hs *gcnoise.NKHandshake) (*SecureConn, error) {
	send, recv, err := hs.GetCipherStates()
	if err != nil {
		return nil, err
	}
	return &SecureConn{conn: conn, sendCipher: send, recvCipher: recv}, nil
}

func writeHandshake(conn net.Conn, msg []byte) error {
	packet := &Packet{PacketType: PacketNoiseHandshake, Data: msg}
	data, err := packet.Serialize()
	if err != nil {
		return err
	}
	return WriteFrame(conn, data)
}

func readHandshake(conn net.Conn) ([]byte, error) {
	data, err := ReadFrame(conn)
	if err != nil {
		return nil, err
	}
	packet, err := ParsePacket(data)
	if err != nil {
		return nil, err
	}
	if packet.PacketType != PacketNoiseHandshake {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedPacket, PacketNoiseHandshake, packet.PacketType)
	}
	return packet.Data, nil
}

// WritePacket implements Conn.
func (c *SecureConn) WritePacket(packet *Packet) error {
	serialized, err := packet.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize packet: %w", err)
	}
	// Check the sealed size first; encrypting advances the nonce even if
	// the frame is then refused.
	if err := limits.ValidateFrameSize(1 + len(serialized) + aeadTagSize); err != nil {
		return err
	}

	encrypted, err := c.sendCipher.Encrypt(nil, nil, serialized)
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	outer := &Packet{PacketType: PacketNoiseMessage, Data: encrypted}
	data, err := outer.Serialize()
	if err != nil {
		return err
	}
	return WriteFrame(c.conn, data)
}

// ReadPacket implements Conn.
func (c *SecureConn) ReadPacket() (*Packet, error) {
	data, err := ReadFrame(c.conn)
	if err != nil {
		return nil, err
	}
	outer, err := ParsePacket(data)
	if err != nil {
		return nil, err
	}
	if outer.PacketType != PacketNoiseMessage {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedPacket, PacketNoiseMessage, outer.PacketType)
	}

	decrypted, err := c.recvCipher.Decrypt(nil, nil, outer.Data)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return ParsePacket(decrypted)
}

// SetDeadline implements Conn.
func (c *SecureConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// RemoteAddr implements Conn.
func (c *SecureConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close implements Conn.
func (c *SecureConn) Close() error {
	return c.conn.Close()
}
