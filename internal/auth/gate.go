package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Step is the gate's position in the connect → sign → complete handshake.
type Step string

const (
	StepConnect  Step = "connect"
	StepSign     Step = "sign"
	StepComplete Step = "complete"
)

// ErrRetryableSign is surfaced when signing fails; the user may retry
// without limit.
const signFailedMessage = "Failed to sign message. Please try again."

// completionDelay is how long the gate lingers on the complete step before
// unlocking its consumer, so the transition is observable.
const completionDelay = 1500 * time.Millisecond

// MessageSigner proves wallet ownership by signing an arbitrary message.
type MessageSigner interface {
	SignMessage(msg []byte) ([]byte, error)
}

// Gate is the three-state handshake guarding the live swap session. It
// holds no persisted credential: authentication is scoped to the session
// and must be redone after teardown. All transitions are strictly forward
// except disconnect, which returns to connect from any step.
type Gate struct {
	mu sync.Mutex

	step    Step
	address string
	signer  MessageSigner
	lastErr string

	onComplete func()
	delay      time.Duration
	timer      *time.Timer

	now    func() time.Time
	logger *logrus.Logger
}

// GateConfig configures a Gate. OnComplete fires once, after the completion
// delay, when the handshake finishes.
type GateConfig struct {
	OnComplete      func()
	CompletionDelay time.Duration
	Now             func() time.Time
	Logger          *logrus.Logger
}

func NewGate(cfg GateConfig) *Gate {
	if cfg.CompletionDelay <= 0 {
		cfg.CompletionDelay = completionDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Gate{
		step:       StepConnect,
		onComplete: cfg.OnComplete,
		delay:      cfg.CompletionDelay,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
}

// Step returns the current handshake step.
func (g *Gate) Step() Step {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step
}

// Err returns the last signing error message, empty when none.
func (g *Gate) Err() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// HandleConnect reacts to an observed wallet connection. The gate does not
// initiate connections; it only advances connect → sign when one appears.
func (g *Gate) HandleConnect(address string, signer MessageSigner) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.step != StepConnect {
		return
	}
	g.address = address
	g.signer = signer
	g.step = StepSign
	g.lastErr = ""
	g.logger.WithField("address", address).Debug("wallet connected, awaiting signature")
}

// HandleDisconnect returns the gate to connect from any step, cancelling a
// pending completion callback.
func (g *Gate) HandleDisconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.step = StepConnect
	g.address = ""
	g.signer = nil
	g.lastErr = ""
}

// SignIn asks the wallet to sign the ownership message. Success advances to
// complete and schedules the completion callback; failure keeps the gate at
// sign with a retryable error.
func (g *Gate) SignIn() error {
	g.mu.Lock()

	if g.step != StepSign {
		step := g.step
		g.mu.Unlock()
		return fmt.Errorf("cannot sign in from step %q", step)
	}
	if g.signer == nil {
		g.lastErr = "Wallet not properly connected"
		g.mu.Unlock()
		return fmt.Errorf("wallet not properly connected")
	}

	signer := g.signer
	msg := BuildMessage(g.address, g.now())
	g.mu.Unlock()

	// Signing can block on user interaction; do not hold the lock.
	if _, err := signer.SignMessage(msg); err != nil {
		g.mu.Lock()
		g.lastErr = signFailedMessage
		g.mu.Unlock()
		g.logger.WithError(err).Warn("sign in failed")
		return fmt.Errorf("%s", signFailedMessage)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// The wallet may have disconnected while the signature was pending.
	if g.step != StepSign {
		return fmt.Errorf("cannot sign in from step %q", g.step)
	}

	g.step = StepComplete
	g.lastErr = ""
	if g.onComplete != nil {
		g.timer = time.AfterFunc(g.delay, g.onComplete)
	}
	return nil
}

// BuildMessage constructs the ownership message. The timestamp keeps a
// signature from being replayed across sessions.
func BuildMessage(address string, ts time.Time) []byte {
	return []byte(fmt.Sprintf(
		"Sign this message to authenticate with SwapLab.\n\nWallet: %s\nTimestamp: %d",
		address, ts.UnixMilli(),
	))
}
