package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapsimplify/swaplab/internal/swapengine"
)

func dialSession(t *testing.T) *websocket.Conn {
	t.Helper()

	e := testEcho(t, &Handlers{
		Prices:        &fakePriceSrc{},
		QuoteDebounce: 10 * time.Millisecond,
	}, ServerConfig{})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/session"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil drains pushes until one satisfies the predicate.
func readUntil(t *testing.T, conn *websocket.Conn, pred func(sessionMessage) bool) sessionMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg sessionMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if pred(msg) {
			return msg
		}
	}
}

func TestSessionSocket_OpensReady(t *testing.T) {
	conn := dialSession(t)

	msg := readUntil(t, conn, func(m sessionMessage) bool { return m.Type == "state" })
	require.NotNil(t, msg.State)
	assert.Equal(t, swapengine.ModeSimulated, msg.State.Mode)
	assert.Equal(t, swapengine.StateReady, msg.State.State)
	assert.Equal(t, "SOL", msg.State.FromToken)
	assert.Equal(t, "USDC", msg.State.ToToken)
	assert.Equal(t, 114.23, msg.State.Prices["SOL"])
}

func TestSessionSocket_AmountDrivesOutput(t *testing.T) {
	conn := dialSession(t)

	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "set_amount", Value: "2"}))

	msg := readUntil(t, conn, func(m sessionMessage) bool {
		return m.Type == "state" && m.State.Amount == "2" && m.State.OutputAmount != "0"
	})
	assert.Equal(t, "227.317700", msg.State.OutputAmount)
}

func TestSessionSocket_FlipAndSubmit(t *testing.T) {
	conn := dialSession(t)

	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "flip"}))
	msg := readUntil(t, conn, func(m sessionMessage) bool {
		return m.Type == "state" && m.State.FromToken == "USDC"
	})
	assert.Equal(t, "SOL", msg.State.ToToken)
	assert.Empty(t, msg.State.Amount)

	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "set_amount", Value: "100"}))
	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "submit"}))

	msg = readUntil(t, conn, func(m sessionMessage) bool { return m.Type == "result" })
	require.NotNil(t, msg.Result)
	assert.True(t, msg.Result.Success)
	assert.Contains(t, msg.Result.Message, "Mock swap completed")
}

func TestSessionSocket_BadEventsSurfaceErrors(t *testing.T) {
	conn := dialSession(t)

	// Submitting with no amount is rejected, not fatal
	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "submit"}))
	msg := readUntil(t, conn, func(m sessionMessage) bool { return m.Type == "error" })
	assert.NotEmpty(t, msg.Error)

	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "select_from", Symbol: "NOPE"}))
	msg = readUntil(t, conn, func(m sessionMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "unknown token")

	require.NoError(t, conn.WriteJSON(sessionEvent{Type: "bogus"}))
	msg = readUntil(t, conn, func(m sessionMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "unknown event type")
}
