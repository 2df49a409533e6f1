package noise

import (
	"encoding/hex"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeHandshake runs both sides of an NK handshake to completion.
func completeHandshake(t *testing.T) (*NKHandshake, *NKHandshake) {
	t.Helper()

	static, err := GenerateKeypair()
	require.NoError(t, err)

	initiator, err := NewInitiator(static.Public)
	require.NoError(t, err)
	responder, err := NewResponder(static)
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage([]byte("hello"))
	require.NoError(t, err)
	assert.False(t, initiator.IsComplete())

	payload, err := responder.ReadMessage(msg1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), payload)
	assert.False(t, responder.IsComplete())

	msg2, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	assert.True(t, responder.IsComplete())

	_, err = initiator.ReadMessage(msg2)
	require.NoError(t, err)
	assert.True(t, initiator.IsComplete())

	return initiator, responder
}

func TestNKHandshakeRoundTrip(t *testing.T) {
	initiator, responder := completeHandshake(t)

	iSend, iRecv, err := initiator.GetCipherStates()
	require.NoError(t, err)
	rSend, rRecv, err := responder.GetCipherStates()
	require.NoError(t, err)

	ct, err := iSend.Encrypt(nil, nil, []byte("client to daemon"))
	require.NoError(t, err)
	pt, err := rRecv.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, "client to daemon", string(pt))

	ct, err = rSend.Encrypt(nil, nil, []byte("daemon to client"))
	require.NoError(t, err)
	pt, err = iRecv.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, "daemon to client", string(pt))
}

func TestNKHandshakeWrongDaemonKey(t *testing.T) {
	static, err := GenerateKeypair()
	require.NoError(t, err)
	other, err := GenerateKeypair()
	require.NoError(t, err)

	initiator, err := NewInitiator(other.Public)
	require.NoError(t, err)
	responder, err := NewResponder(static)
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage(nil)
	require.NoError(t, err)

	// es is computed against the wrong static key, so the payload MAC fails.
	_, err = responder.ReadMessage(msg1)
	assert.Error(t, err)
}

func TestNKHandshakeTurnOrder(t *testing.T) {
	static, err := GenerateKeypair()
	require.NoError(t, err)

	initiator, err := NewInitiator(static.Public)
	require.NoError(t, err)
	_, err = initiator.ReadMessage([]byte("early"))
	assert.ErrorIs(t, err, ErrWrongTurn)

	responder, err := NewResponder(static)
	require.NoError(t, err)
	_, err = responder.WriteMessage(nil)
	assert.ErrorIs(t, err, ErrWrongTurn)
}

func TestNKHandshakeAfterComplete(t *testing.T) {
	initiator, responder := completeHandshake(t)

	_, err := initiator.WriteMessage(nil)
	assert.ErrorIs(t, err, ErrHandshakeComplete)
	_, err = responder.ReadMessage([]byte{1})
	assert.ErrorIs(t, err, ErrHandshakeComplete)
}

func TestCipherStatesBeforeComplete(t *testing.T) {
	static, err := GenerateKeypair()
	require.NoError(t, err)
	initiator, err := NewInitiator(static.Public)
	require.NoError(t, err)

	_, _, err = initiator.GetCipherStates()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
}

func TestInvalidKeys(t *testing.T) {
	_, err := NewInitiator(make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = PublicKeyFromPrivate(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = ParsePublicKey("not-hex")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = ParsePublicKey(strings.Repeat("ab", 16))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeypairFromPrivate(t *testing.T) {
	static, err := GenerateKeypair()
	require.NoError(t, err)

	rebuilt, err := KeypairFromPrivate(static.Private)
	require.NoError(t, err)
	assert.Equal(t, static.Public, rebuilt.Public)

	parsed, err := ParsePublicKey(hex.EncodeToString(static.Public))
	require.NoError(t, err)
	assert.Equal(t, static.Public, parsed)
}

// TestConcurrentHandshakes tests multiple independent handshakes in parallel
func TestConcurrentHandshakes(t *testing.T) {
	const numHandshakes = 20

	var wg sync.WaitGroup
	for i := 0; i < numHandshakes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			completeHandshake(t)
		}()
	}
	wg.Wait()
}
