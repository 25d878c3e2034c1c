package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/swapsimplify/swaplab/internal/swapengine"
)

// sessionEvent is one client command on the session socket
type sessionEvent struct {
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// sessionMessage is one server push on the session socket
type sessionMessage struct {
	Type   string                   `json:"type"` // "state", "result" or "error"
	State  *swapengine.Snapshot     `json:"state,omitempty"`
	Result *swapengine.SubmitResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session upgrades the connection and drives one simulated swap session
// over it. The server never holds keys, so the socket only exposes the
// practice screen; live swaps go through the CLI with a local wallet.
func (h *Handlers) Session(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Logger.WithError(err).Warn("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	// Gorilla connections allow one concurrent writer; state pushes come
	// from debounce timers as well as the read loop.
	var writeMu sync.Mutex
	send := func(msg sessionMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			h.Logger.WithError(err).Debug("websocket write failed")
		}
	}

	sess, err := swapengine.NewSession(swapengine.SessionConfig{
		Mode:        swapengine.ModeSimulated,
		Prices:      h.Prices,
		Debounce:    h.QuoteDebounce,
		SlippageBps: h.SlippageBps,
		Logger:      h.Logger,
		OnChange: func(snap swapengine.Snapshot) {
			send(sessionMessage{Type: "state", State: &snap})
		},
	})
	if err != nil {
		send(sessionMessage{Type: "error", Error: err.Error()})
		return nil
	}
	defer sess.Close()

	sess.Start(c.Request().Context())

	for {
		var ev sessionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.WithError(err).Debug("websocket closed unexpectedly")
			}
			return nil
		}

		switch ev.Type {
		case "set_amount":
			sess.SetAmount(ev.Value)
		case "select_from":
			if err := sess.SetFromToken(ev.Symbol); err != nil {
				send(sessionMessage{Type: "error", Error: err.Error()})
			}
		case "select_to":
			if err := sess.SetToToken(ev.Symbol); err != nil {
				send(sessionMessage{Type: "error", Error: err.Error()})
			}
		case "flip":
			sess.Flip()
		case "refresh_prices":
			sess.RefreshPrices(c.Request().Context())
		case "submit":
			res, err := sess.Submit(c.Request().Context())
			if err != nil {
				send(sessionMessage{Type: "error", Error: err.Error()})
				continue
			}
			send(sessionMessage{Type: "result", Result: res})
		default:
			send(sessionMessage{Type: "error", Error: "unknown event type: " + ev.Type})
		}
	}
}
