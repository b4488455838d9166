package netguard

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/provider"
	"github.com/pvzzle/seismicbot/internal/seismic"

	"github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("wallet not connected")

type State int

const (
	Disconnected State = iota
	Checking
	OnTarget
	OffTarget
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case OnTarget:
		return "on-target"
	case OffTarget:
		return "off-target"
	default:
		return "disconnected"
	}
}

// NetworkState is replaced as a whole on every check.
type NetworkState struct {
	ChainID *int64
	Name    string
}

func (n NetworkState) IsCorrect() bool {
	return n.ChainID != nil && *n.ChainID == seismic.ChainID
}

// Chain is the part of the wallet the guard drives.
type Chain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	AddChain(ctx context.Context, params seismic.ChainParams) error
	Subscribe() (<-chan provider.Event, func())
}

type Notifier interface {
	Push(message string, kind notify.Kind) notify.Notification
}

type Config struct {
	AutoSwitchDelay time.Duration
	// provider state is re-read this long after a successful switch / add
	SwitchRecheckDelay time.Duration
	AddRecheckDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		AutoSwitchDelay:    time.Second,
		SwitchRecheckDelay: 1500 * time.Millisecond,
		AddRecheckDelay:    2 * time.Second,
	}
}

type Snapshot struct {
	State           State
	Network         *NetworkState
	SwitchAttempted bool
}

// Guard keeps the connected wallet on the target chain.
// Each Connect starts a session; delayed work never outlives it.
type Guard struct {
	mu  sync.Mutex
	cfg Config

	chain       Chain
	session     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	timers      []*time.Timer
	loopDone    chan struct{}

	state           State
	network         *NetworkState
	switchAttempted bool
	autoScheduled   bool

	onAccounts func(ctx context.Context)
	notifier   Notifier
	log        *logrus.Entry
}

func New(cfg Config, notifier Notifier, log *logrus.Entry) *Guard {
	return &Guard{cfg: cfg, notifier: notifier, log: log}
}

// OnAccountsChanged registers fn to run on every accountsChanged event.
func (g *Guard) OnAccountsChanged(fn func(ctx context.Context)) {
	g.mu.Lock()
	g.onAccounts = fn
	g.mu.Unlock()
}

// Connect starts a session for chain: subscribes to its events and runs the first check.
func (g *Guard) Connect(ctx context.Context, chain Chain) bool {
	g.Disconnect()

	session, cancel := context.WithCancel(ctx)
	events, unsubscribe := chain.Subscribe()
	done := make(chan struct{})

	g.mu.Lock()
	g.chain = chain
	g.session = session
	g.cancel = cancel
	g.unsubscribe = unsubscribe
	g.loopDone = done
	g.state = Checking
	g.mu.Unlock()

	go g.listen(session, events, done)

	return g.CheckNetwork(session)
}

// Disconnect ends the session and resets the guard to its initial state.
func (g *Guard) Disconnect() {
	g.mu.Lock()
	cancel, unsubscribe, done := g.cancel, g.unsubscribe, g.loopDone
	for _, t := range g.timers {
		t.Stop()
	}
	g.timers = nil
	g.chain = nil
	g.session = nil
	g.cancel = nil
	g.unsubscribe = nil
	g.loopDone = nil
	g.state = Disconnected
	g.network = nil
	g.switchAttempted = false
	g.autoScheduled = false
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if done != nil {
		<-done
	}
}

func (g *Guard) listen(ctx context.Context, events <-chan provider.Event, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case provider.EventChainChanged:
				g.log.Info("network changed, rechecking")
				g.CheckNetwork(ctx)
			case provider.EventAccountsChanged:
				g.log.Info("accounts changed, updating balance")
				g.mu.Lock()
				fn := g.onAccounts
				g.mu.Unlock()
				if fn != nil {
					fn(ctx)
				}
			}
		}
	}
}

// CheckNetwork re-reads the active chain and reports whether it is the target.
// Off target, it schedules a single automatic switch per session.
func (g *Guard) CheckNetwork(ctx context.Context) bool {
	g.mu.Lock()
	chain, session := g.chain, g.session
	g.mu.Unlock()
	if chain == nil {
		return false
	}

	id, err := chain.ChainID(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != session {
		// disconnected or reconnected while the call was in flight
		return false
	}

	if err != nil {
		g.log.WithError(err).Error("check network")
		g.network = &NetworkState{Name: "Unknown Network"}
		g.state = OffTarget
		return false
	}

	chainID := id.Int64()
	name := seismic.ChainName(chainID)
	g.network = &NetworkState{ChainID: &chainID, Name: name}
	g.log.WithField("chain_id", chainID).Infof("current network: %s", name)

	if g.network.IsCorrect() {
		g.state = OnTarget
		return true
	}

	g.state = OffTarget
	if !g.switchAttempted && !g.autoScheduled {
		g.autoScheduled = true
		g.log.Info("auto-switching to Seismic network")
		g.afterLocked(session, g.cfg.AutoSwitchDelay, func() {
			_ = g.SwitchToTarget(session, true)
		})
	}
	return false
}

// SwitchToTarget asks the wallet to switch to the target chain, adding it first
// when the wallet does not know it. Success is confirmed by a delayed re-check.
func (g *Guard) SwitchToTarget(ctx context.Context, automatic bool) error {
	g.mu.Lock()
	chain, session := g.chain, g.session
	if chain == nil {
		g.mu.Unlock()
		return ErrNotConnected
	}
	g.switchAttempted = true
	g.autoScheduled = false
	g.state = Checking
	g.mu.Unlock()

	mode := "manual"
	if automatic {
		mode = "auto"
	}
	log := g.log.WithFields(logrus.Fields{"mode": mode, "chain_id": seismic.ChainID})
	log.Info("switching to Seismic network")

	err := chain.SwitchChain(ctx, seismic.Target.BigID())
	if err == nil {
		log.Info("switched to existing Seismic network")
		g.recheck(session, g.cfg.SwitchRecheckDelay)
		return nil
	}

	log.WithError(err).Info("network not found, attempting to add")
	if !provider.IsUnrecognizedChain(err) {
		return g.switchFailed(session, automatic, err)
	}

	if addErr := chain.AddChain(ctx, seismic.Target); addErr != nil {
		log.WithError(addErr).Error("add network")
		return g.switchFailed(session, automatic, fmt.Errorf("failed to add Seismic network: %w", addErr))
	}

	log.Info("added and switched to Seismic network")
	g.recheck(session, g.cfg.AddRecheckDelay)
	return nil
}

func (g *Guard) switchFailed(session context.Context, automatic bool, err error) error {
	g.log.WithError(err).Error("switch to Seismic")

	g.mu.Lock()
	if g.session == session && g.state == Checking {
		g.state = OffTarget
		if g.network != nil && g.network.IsCorrect() {
			g.state = OnTarget
		}
	}
	g.mu.Unlock()

	if !automatic && g.notifier != nil {
		g.notifier.Push(fmt.Sprintf("Failed to switch to Seismic network: %s. Please try manually adding Seismic network to your wallet.", err), notify.KindError)
	}
	return err
}

// ShowManualSetup pushes the manual network setup walkthrough.
func (g *Guard) ShowManualSetup() {
	if g.notifier != nil {
		g.notifier.Push(seismic.ManualSetupInstructions(), notify.KindInfo)
	}
}

func (g *Guard) recheck(session context.Context, delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.afterLocked(session, delay, func() { g.CheckNetwork(session) })
}

// afterLocked runs fn after d unless the session has ended by then.
func (g *Guard) afterLocked(session context.Context, d time.Duration, fn func()) {
	if session == nil || session.Err() != nil {
		return
	}
	t := time.AfterFunc(d, func() {
		if session.Err() != nil {
			return
		}
		fn()
	})
	g.timers = append(g.timers, t)
}

func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{State: g.state, SwitchAttempted: g.switchAttempted}
	if g.network != nil {
		n := *g.network
		s.Network = &n
	}
	return s
}

func (g *Guard) IsCorrectNetwork() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.network != nil && g.network.IsCorrect()
}

func (g *Guard) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chain != nil
}
