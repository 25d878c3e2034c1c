package auth

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessageSigner struct {
	err    error
	signed [][]byte
}

func (f *fakeMessageSigner) SignMessage(msg []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.signed = append(f.signed, msg)
	return []byte("sig"), nil
}

const testAddress = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func TestGate_StartsAtConnect(t *testing.T) {
	g := NewGate(GateConfig{})
	assert.Equal(t, StepConnect, g.Step())
	assert.Empty(t, g.Err())
}

func TestGate_ConnectAdvancesToSign(t *testing.T) {
	g := NewGate(GateConfig{})
	g.HandleConnect(testAddress, &fakeMessageSigner{})
	assert.Equal(t, StepSign, g.Step())

	// A second connect while already past connect is ignored
	g.HandleConnect("other", &fakeMessageSigner{})
	assert.Equal(t, StepSign, g.Step())
}

func TestGate_SignInCompletesAfterDelay(t *testing.T) {
	var completed int32
	g := NewGate(GateConfig{
		OnComplete:      func() { atomic.AddInt32(&completed, 1) },
		CompletionDelay: 20 * time.Millisecond,
	})

	signer := &fakeMessageSigner{}
	g.HandleConnect(testAddress, signer)
	require.NoError(t, g.SignIn())
	assert.Equal(t, StepComplete, g.Step())

	// Completion fires only after the delay
	assert.Equal(t, int32(0), atomic.LoadInt32(&completed))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&completed) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestGate_MessageContainsAddressAndTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(GateConfig{
		CompletionDelay: time.Millisecond,
		Now:             func() time.Time { return now },
	})

	signer := &fakeMessageSigner{}
	g.HandleConnect(testAddress, signer)
	require.NoError(t, g.SignIn())

	require.Len(t, signer.signed, 1)
	msg := string(signer.signed[0])
	assert.Contains(t, msg, "Sign this message to authenticate")
	assert.Contains(t, msg, "Wallet: "+testAddress)
	assert.Contains(t, msg, fmt.Sprintf("Timestamp: %d", now.UnixMilli()))
}

func TestGate_SignFailureIsRetryable(t *testing.T) {
	g := NewGate(GateConfig{CompletionDelay: time.Millisecond})

	signer := &fakeMessageSigner{err: errors.New("user rejected")}
	g.HandleConnect(testAddress, signer)

	err := g.SignIn()
	require.Error(t, err)
	assert.Equal(t, StepSign, g.Step()) // stays at sign
	assert.Equal(t, "Failed to sign message. Please try again.", g.Err())

	// The user may retry without reconnecting
	signer.err = nil
	require.NoError(t, g.SignIn())
	assert.Equal(t, StepComplete, g.Step())
	assert.Empty(t, g.Err())
}

func TestGate_SignInRequiresSignStep(t *testing.T) {
	g := NewGate(GateConfig{})
	err := g.SignIn()
	assert.Error(t, err) // still at connect
}

func TestGate_DisconnectResetsFromAnyStep(t *testing.T) {
	// From sign
	g := NewGate(GateConfig{CompletionDelay: time.Millisecond})
	g.HandleConnect(testAddress, &fakeMessageSigner{})
	g.HandleDisconnect()
	assert.Equal(t, StepConnect, g.Step())

	// From complete
	g = NewGate(GateConfig{CompletionDelay: time.Millisecond})
	g.HandleConnect(testAddress, &fakeMessageSigner{})
	require.NoError(t, g.SignIn())
	g.HandleDisconnect()
	assert.Equal(t, StepConnect, g.Step())

	// The full handshake is required again after disconnect
	err := g.SignIn()
	assert.Error(t, err)
}

func TestGate_DisconnectCancelsPendingCompletion(t *testing.T) {
	var completed int32
	g := NewGate(GateConfig{
		OnComplete:      func() { atomic.AddInt32(&completed, 1) },
		CompletionDelay: 50 * time.Millisecond,
	})

	g.HandleConnect(testAddress, &fakeMessageSigner{})
	require.NoError(t, g.SignIn())

	// Disconnect during the completion delay stops the callback
	g.HandleDisconnect()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&completed))
}

func TestBuildMessage(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	msg := string(BuildMessage("addr123", ts))
	assert.Equal(t,
		"Sign this message to authenticate with SwapLab.\n\nWallet: addr123\nTimestamp: 1700000000000",
		msg)
}
