package noise

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"golang.org/x/crypto/curve25519"
)

// KeySize is the length of Curve25519 public and private keys.
const KeySize = 32

// Prologue binds every handshake to this protocol.
var Prologue = []byte("groupcast/1")

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates handshake is already complete
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrWrongTurn indicates a write or read out of pattern order
	ErrWrongTurn = errors.New("handshake message out of order")
	// ErrInvalidKey indicates a key of the wrong length
	ErrInvalidKey = errors.New("invalid curve25519 key")
)

// HandshakeRole defines whether we're initiating or responding to handshake
type HandshakeRole uint8

const (
	// Initiator starts the handshake (knows peer's static key)
	Initiator HandshakeRole = iota
	// Responder holds the static key and answers
	Responder
)

func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// NKHandshake implements the two-message Noise NK pattern:
//
//	-> e, es
//	<- e, ee
type NKHandshake struct {
	role       HandshakeRole
	state      *noise.HandshakeState
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	step       int
	complete   bool
}

// NewInitiator creates the client side of an NK handshake.
// peerPubKey is the daemon's static public key (32 bytes).
func NewInitiator(peerPubKey []byte) (*NKHandshake, error) {
	if len(peerPubKey) != KeySize {
		return nil, fmt.Errorf("%w: initiator requires peer public key (%d bytes), got %d", ErrInvalidKey, KeySize, len(peerPubKey))
	}

	config := noise.Config{
		CipherSuite: cipherSuite,
		Random:      rand.Reader,
		Pattern:     noise.HandshakeNK,
		Initiator:   true,
		Prologue:    Prologue,
		PeerStatic:  append([]byte(nil), peerPubKey...),
	}
	return newHandshake(Initiator, config)
}

// NewResponder creates the daemon side of an NK handshake.
func NewResponder(static noise.DHKey) (*NKHandshake, error) {
	if len(static.Private) != KeySize || len(static.Public) != KeySize {
		return nil, fmt.Errorf("%w: responder static keypair must be %d bytes", ErrInvalidKey, KeySize)
	}

	config := noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeNK,
		Initiator:     false,
		Prologue:      Prologue,
		StaticKeypair: static,
	}
	return newHandshake(Responder, config)
}

func newHandshake(role HandshakeRole, config noise.Config) (*NKHandshake, error) {
	state, err := noise.NewHandshakeState(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake state: %w", err)
	}
	return &NKHandshake{role: role, state: state}, nil
}

// myTurnToWrite reports whether the pattern expects us to write next.
// Message 0 belongs to the initiator, message 1 to the responder.
func (h *NKHandshake) myTurnToWrite() bool {
	if h.role == Initiator {
		return h.step == 0
	}
	return h.step == 1
}

// WriteMessage produces the next handshake message carrying payload.
func (h *NKHandshake) WriteMessage(payload []byte) ([]byte, error) {
	if h.complete {
		return nil, ErrHandshakeComplete
	}
	if !h.myTurnToWrite() {
		return nil, ErrWrongTurn
	}

	message, cs1, cs2, err := h.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("%s write failed: %w", h.role, err)
	}
	h.step++
	h.finish(cs1, cs2)
	return message, nil
}

// ReadMessage consumes the peer's next handshake message and returns its payload.
func (h *NKHandshake) ReadMessage(message []byte) ([]byte, error) {
	if h.complete {
		return nil, ErrHandshakeComplete
	}
	if h.myTurnToWrite() {
		return nil, ErrWrongTurn
	}

	payload, cs1, cs2, err := h.state.ReadMessage(nil, message)
	if err != nil {
		return nil, fmt.Errorf("%s read failed: %w", h.role, err)
	}
	h.step++
	h.finish(cs1, cs2)
	return payload, nil
}

// finish records the split cipher states once the pattern is exhausted.
// cs1 always encrypts initiator-to-responder traffic.
func (h *NKHandshake) finish(cs1, cs2 *noise.CipherState) {
	if cs1 == nil || cs2 == nil {
		return
	}
	if h.role == Initiator {
		h.sendCipher, h.recvCipher = cs1, cs2
	} else {
		h.sendCipher, h.recvCipher = cs2, cs1
	}
	h.complete = true
}

// IsComplete returns true if handshake is finished and cipher states are available.
func (h *NKHandshake) IsComplete() bool {
	return h.complete
}

// GetCipherStates returns the send and receive cipher states after successful handshake.
func (h *NKHandshake) GetCipherStates() (*noise.CipherState, *noise.CipherState, error) {
	if !h.complete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return h.sendCipher, h.recvCipher, nil
}

// GenerateKeypair creates a static Curve25519 keypair for a daemon.
func GenerateKeypair() (noise.DHKey, error) {
	return noise.DH25519.GenerateKeypair(rand.Reader)
}

// PublicKeyFromPrivate derives the Curve25519 public key for priv.
func PublicKeyFromPrivate(priv []byte) ([]byte, error) {
	if len(priv) != KeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, KeySize, len(priv))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	return pub, nil
}

// KeypairFromPrivate rebuilds a static keypair from a stored private key.
func KeypairFromPrivate(priv []byte) (noise.DHKey, error) {
	pub, err := PublicKeyFromPrivate(priv)
	if err != nil {
		return noise.DHKey{}, err
	}
	return noise.DHKey{Private: append([]byte(nil), priv...), Public: pub}, nil
}

// ParsePublicKey decodes a hex-encoded 32-byte public key.
func ParsePublicKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}
