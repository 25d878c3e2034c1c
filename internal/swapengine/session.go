package swapengine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swapsimplify/swaplab/internal/auth"
	"github.com/swapsimplify/swaplab/internal/jupiter"
	"github.com/swapsimplify/swaplab/internal/prices"
	"github.com/swapsimplify/swaplab/internal/rpc"
	"github.com/swapsimplify/swaplab/internal/token"
)

const (
	defaultDebounce = 500 * time.Millisecond
	fetchTimeout    = 15 * time.Second
)

// SessionConfig wires a Session to its capabilities. Everything the session
// touches comes in through here; nothing is resolved from package globals.
type SessionConfig struct {
	Mode Mode

	Quotes   QuoteService
	Executor SwapExecutor
	Balances BalanceSource
	Prices   PriceSource

	// Live-mode signing and chain access, handed straight to the executor.
	Signer jupiter.TransactionSigner
	Chain  jupiter.ChainConnection

	// Debounce is the quiet period before an amount change triggers a quote
	// fetch. Zero means the 500ms default.
	Debounce    time.Duration
	SlippageBps int

	// AuthDelay overrides the gate's completion delay, for tests.
	AuthDelay time.Duration

	Logger   *logrus.Logger
	OnChange func(Snapshot)
}

// Session is the orchestrator behind one swap screen. It owns the selected
// pair, the typed amount, the held quote and the derived output, and it
// sequences quote refresh, balance refresh, inversion and submission.
//
// OnChange fires after every observable change, outside the session lock.
// The callback must not call back into the session synchronously.
type Session struct {
	cfg  SessionConfig
	gate *auth.Gate

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	authenticated bool
	connected     bool
	address       string

	fromToken token.Token
	toToken   token.Token
	amount    string

	quote        *jupiter.Quote
	quoteLoading bool
	priceMap     map[string]float64
	balance      float64
	submitting   bool

	// quoteGen stamps every quote fetch; a response whose stamp no longer
	// matches is discarded rather than applied.
	quoteGen   uint64
	balanceGen uint64

	debounce *time.Timer
	closed   bool
}

// NewSession builds a session in the pageLoading state. Call Start to load
// prices and open the screen.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulated
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.SlippageBps <= 0 {
		cfg.SlippageBps = jupiter.DefaultSlippageBps
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Mode == ModeSimulated && cfg.Prices == nil {
		return nil, fmt.Errorf("swapengine: simulated mode requires a price source")
	}
	if cfg.Mode == ModeLive && (cfg.Quotes == nil || cfg.Executor == nil) {
		return nil, fmt.Errorf("swapengine: live mode requires a quote service and an executor")
	}

	from, _ := token.BySymbol("SOL")
	to, _ := token.BySymbol("USDC")

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		state:     StatePageLoading,
		fromToken: from,
		toToken:   to,
	}
	if cfg.Mode == ModeLive {
		s.gate = auth.NewGate(auth.GateConfig{
			OnComplete:      s.completeAuth,
			CompletionDelay: cfg.AuthDelay,
			Logger:          cfg.Logger,
		})
	}
	return s, nil
}

// Start opens the screen. The simulated screen loads the price map and is
// immediately ready; the live screen waits behind the auth gate.
func (s *Session) Start(ctx context.Context) {
	if s.cfg.Mode == ModeSimulated {
		data := s.cfg.Prices.FetchTokenPrices(ctx, token.CoingeckoIDs(token.Supported))
		pm := prices.BuildPriceMap(data, token.Supported)

		s.mu.Lock()
		s.priceMap = pm
		s.state = StateReady
		s.balance = mockBalances[s.fromToken.Symbol]
		s.mu.Unlock()
		s.notify()
		return
	}

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.mu.Unlock()
	s.notify()
}

// Gate exposes the live session's auth gate, nil in simulated mode.
func (s *Session) Gate() *auth.Gate { return s.gate }

// Connect records an observed wallet connection and advances the gate.
func (s *Session) Connect(address string, signer auth.MessageSigner) {
	if s.gate == nil {
		return
	}
	s.mu.Lock()
	s.connected = true
	s.address = address
	s.mu.Unlock()

	s.gate.HandleConnect(address, signer)
	s.notify()
}

// SignIn runs the ownership-proof step of the gate. The session unlocks
// only when the gate's completion callback fires.
func (s *Session) SignIn() error {
	if s.gate == nil {
		return fmt.Errorf("swapengine: no auth gate in simulated mode")
	}
	err := s.gate.SignIn()
	s.notify()
	return err
}

// Disconnect tears the live session back down to unauthenticated. The next
// use requires a full re-handshake.
func (s *Session) Disconnect() {
	if s.gate == nil {
		return
	}
	s.gate.HandleDisconnect()

	s.mu.Lock()
	s.connected = false
	s.address = ""
	s.authenticated = false
	s.state = StateUnauthenticated
	s.balance = 0
	s.clearQuoteLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Session) completeAuth() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.authenticated = true
	s.state = StateReady
	s.mu.Unlock()
	s.notify()

	s.refreshBalance()
	s.scheduleQuoteRefresh()
}

// SetAmount records the typed input amount and schedules a quote refresh.
// Any value is accepted; unparseable or non-positive input clears the quote
// instead of fetching.
func (s *Session) SetAmount(v string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.amount = v
	s.mu.Unlock()
	s.notify()

	s.scheduleQuoteRefresh()
}

// SetFromToken switches the input token. The held quote is for the old pair
// and is dropped immediately; the balance follows the new input token.
func (s *Session) SetFromToken(symbol string) error {
	t, ok := token.BySymbol(symbol)
	if !ok {
		return fmt.Errorf("unknown token %q", symbol)
	}

	s.mu.Lock()
	if s.closed || t.Symbol == s.toToken.Symbol {
		s.mu.Unlock()
		return nil
	}
	s.fromToken = t
	s.clearQuoteLocked()
	s.mu.Unlock()
	s.notify()

	s.refreshBalance()
	s.scheduleQuoteRefresh()
	return nil
}

// SetToToken switches the output token, dropping the now-stale quote.
func (s *Session) SetToToken(symbol string) error {
	t, ok := token.BySymbol(symbol)
	if !ok {
		return fmt.Errorf("unknown token %q", symbol)
	}

	s.mu.Lock()
	if s.closed || t.Symbol == s.fromToken.Symbol {
		s.mu.Unlock()
		return nil
	}
	s.toToken = t
	s.clearQuoteLocked()
	s.mu.Unlock()
	s.notify()

	s.scheduleQuoteRefresh()
	return nil
}

// Flip inverts the pair. The amount and quote belonged to the old direction
// and are cleared rather than re-priced.
func (s *Session) Flip() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.fromToken, s.toToken = s.toToken, s.fromToken
	s.amount = ""
	s.clearQuoteLocked()
	s.mu.Unlock()
	s.notify()

	s.refreshBalance()
}

// clearQuoteLocked drops the held quote and invalidates any in-flight fetch.
// Callers hold s.mu.
func (s *Session) clearQuoteLocked() {
	s.quote = nil
	s.quoteLoading = false
	s.quoteGen++
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

// scheduleQuoteRefresh re-arms the debounce timer. Rapid edits keep pushing
// the fetch out, so a burst of changes costs a single request priced at the
// final values.
func (s *Session) scheduleQuoteRefresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}

	amt, err := strconv.ParseFloat(strings.TrimSpace(s.amount), 64)
	ready := err == nil && amt > 0 &&
		s.fromToken.Symbol != "" && s.toToken.Symbol != "" &&
		(s.cfg.Mode == ModeSimulated || s.authenticated)
	if !ready {
		s.quote = nil
		s.quoteLoading = false
		s.quoteGen++
		s.mu.Unlock()
		s.notify()
		return
	}

	if s.cfg.Mode == ModeSimulated {
		// The simulated output derives synchronously from the price map.
		s.mu.Unlock()
		s.notify()
		return
	}

	in, out := s.fromToken, s.toToken
	lamports := toSmallestUnit(amt, in.Decimals)
	s.debounce = time.AfterFunc(s.cfg.Debounce, func() {
		s.fetchQuote(in, out, lamports)
	})
	s.mu.Unlock()
}

func (s *Session) fetchQuote(in, out token.Token, amount uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.quoteGen++
	gen := s.quoteGen
	s.quoteLoading = true
	s.mu.Unlock()
	s.notify()

	ctx, cancel := context.WithTimeout(s.ctx, fetchTimeout)
	defer cancel()
	q, err := s.cfg.Quotes.GetQuote(ctx, in.Mint, out.Mint, amount, s.cfg.SlippageBps)

	s.mu.Lock()
	if s.closed || gen != s.quoteGen {
		s.mu.Unlock()
		s.cfg.Logger.Debug("dropping quote response for superseded request")
		return
	}
	s.quoteLoading = false
	if err != nil {
		s.quote = nil
		s.cfg.Logger.WithError(err).Error("quote refresh failed")
	} else {
		s.quote = q
	}
	s.mu.Unlock()
	s.notify()
}

// refreshBalance re-reads the input token balance. On chain it is fetched
// for native SOL only; other inputs read as zero. The simulated screen uses
// the static table.
func (s *Session) refreshBalance() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.balanceGen++
	gen := s.balanceGen

	if s.cfg.Mode == ModeSimulated {
		s.balance = mockBalances[s.fromToken.Symbol]
		s.mu.Unlock()
		s.notify()
		return
	}

	if !s.connected || !s.authenticated || s.address == "" ||
		s.fromToken.Symbol != "SOL" || s.cfg.Balances == nil {
		s.balance = 0
		s.mu.Unlock()
		s.notify()
		return
	}
	addr := s.address
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, fetchTimeout)
		defer cancel()

		var bal float64
		lamports, err := s.cfg.Balances.GetBalance(ctx, addr)
		if err != nil {
			s.cfg.Logger.WithError(err).Warn("balance unavailable after retries, showing zero")
		} else {
			bal = float64(lamports) / rpc.LamportsPerSOL
		}

		s.mu.Lock()
		if s.closed || gen != s.balanceGen {
			s.mu.Unlock()
			return
		}
		s.balance = bal
		s.mu.Unlock()
		s.notify()
	}()
}

// RefreshPrices rebuilds the simulated price map from the index. The map is
// replaced whole; it never mixes entries from two fetches.
func (s *Session) RefreshPrices(ctx context.Context) {
	if s.cfg.Prices == nil {
		return
	}
	data := s.cfg.Prices.FetchTokenPrices(ctx, token.CoingeckoIDs(token.Supported))
	pm := prices.BuildPriceMap(data, token.Supported)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.priceMap = pm
	s.mu.Unlock()
	s.notify()
}

// Submit runs one swap. In live mode it hands the held quote to the
// executor; in simulated mode it settles instantly at the derived output.
// A second submission while one is in flight is rejected.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("session closed")
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, fmt.Errorf("swap already in progress")
	}
	amt, err := strconv.ParseFloat(strings.TrimSpace(s.amount), 64)
	if err != nil || amt <= 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("enter a valid amount")
	}

	if s.cfg.Mode == ModeSimulated {
		output := s.outputAmountLocked()
		toSym := s.toToken.Symbol
		s.amount = ""
		s.quote = nil
		s.mu.Unlock()
		s.notify()
		return &SubmitResult{
			Success: true,
			Message: fmt.Sprintf("Mock swap completed! You would receive %s %s", output, toSym),
		}, nil
	}

	if !s.authenticated {
		s.mu.Unlock()
		return nil, fmt.Errorf("sign in before swapping")
	}
	if s.quote == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no quote available")
	}
	quote := s.quote
	addr := s.address
	s.submitting = true
	s.mu.Unlock()
	s.notify()

	res := s.cfg.Executor.ExecuteSwap(ctx, quote, addr, s.cfg.Signer, s.cfg.Chain)

	s.mu.Lock()
	s.submitting = false
	if res.Success {
		// Clean slate for the next swap; a failure keeps the inputs so the
		// user can retry explicitly.
		s.amount = ""
		s.clearQuoteLocked()
	}
	s.mu.Unlock()
	s.notify()

	if res.Success {
		s.refreshBalance()
	}
	return &SubmitResult{Success: res.Success, Signature: res.Signature, Error: res.Error}, nil
}

// Snapshot returns a point-in-time view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Mode:         s.cfg.Mode,
		State:        s.state,
		FromToken:    s.fromToken.Symbol,
		ToToken:      s.toToken.Symbol,
		Amount:       s.amount,
		OutputAmount: s.outputAmountLocked(),
		Balance:      s.balance,
		QuoteLoading: s.quoteLoading,
		Submitting:   s.submitting,
	}
	if s.gate != nil {
		snap.AuthStep = s.gate.Step()
	}
	if s.priceMap != nil {
		snap.Prices = make(map[string]float64, len(s.priceMap))
		for k, v := range s.priceMap {
			snap.Prices[k] = v
		}
	}
	if s.quote != nil {
		snap.PriceImpactPct = s.quote.PriceImpactPct
		snap.RouteSteps = len(s.quote.RoutePlan)
	}
	return snap
}

// outputAmountLocked derives the displayed output: the quote's out amount in
// live mode, the flat-rate formula in simulated mode. Callers hold s.mu.
func (s *Session) outputAmountLocked() string {
	amt, err := strconv.ParseFloat(strings.TrimSpace(s.amount), 64)
	if err != nil || amt <= 0 {
		return "0"
	}

	if s.cfg.Mode == ModeSimulated {
		fp, ok := s.priceMap[s.fromToken.Symbol]
		if !ok || fp == 0 {
			fp = 1
		}
		tp, ok := s.priceMap[s.toToken.Symbol]
		if !ok || tp == 0 {
			tp = 1
		}
		out := prices.CalculateSwapAmount(amt, fp, tp, prices.DefaultSlippagePct)
		return strconv.FormatFloat(out, 'f', 6, 64)
	}

	if s.quote == nil {
		return "0"
	}
	raw, err := strconv.ParseUint(s.quote.OutAmount, 10, 64)
	if err != nil {
		return "0"
	}
	return strconv.FormatFloat(float64(raw)/math.Pow(10, float64(s.toToken.Decimals)), 'f', 6, 64)
}

// Quote returns the currently held quote, nil when none.
func (s *Session) Quote() *jupiter.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote
}

// Balance returns the displayed input-token balance.
func (s *Session) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Close stops timers and invalidates in-flight work. The session must not
// be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) notify() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(s.Snapshot())
	}
}

// toSmallestUnit converts a decimal token amount into base units, truncating
// sub-unit dust rather than rounding it up.
func toSmallestUnit(amount float64, decimals uint8) uint64 {
	return uint64(math.Trunc(amount * math.Pow(10, float64(decimals))))
}
