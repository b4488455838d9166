package client

import (
	"context"
	"errors"
	"sync"

	"github.com/pvzzle/seismicbot/internal/ethwatch"
	"github.com/pvzzle/seismicbot/internal/history"
	"github.com/pvzzle/seismicbot/internal/netguard"
	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/provider"
	"github.com/pvzzle/seismicbot/internal/txflow"

	"github.com/sirupsen/logrus"
)

var ErrAlreadyConnected = errors.New("wallet already connected")

type Mode string

const (
	ModeDisconnected Mode = "Disconnected"
	ModeConnected    Mode = "Connected"
	ModeDemo         Mode = "Demo Mode"
)

type Config struct {
	RPCURL string
	Keys   provider.KeySource
	Dial   provider.DialFunc
}

// Status is what the wallet tab shows.
type Status struct {
	Mode            Mode
	Address         string
	Balance         string
	Provider        string
	Network         *netguard.NetworkState
	NetworkState    netguard.State
	SwitchAttempted bool
	AccountIndex    uint32
	CanSwitchIndex  bool
}

// Client ties the wallet session to the guard, the orchestrator and the watcher.
type Client struct {
	cfg      Config
	Guard    *netguard.Guard
	Flow     *txflow.Orchestrator
	Watcher  *ethwatch.Watcher
	History  *history.Store
	notifier txflow.Notifier
	log      *logrus.Entry

	mu         sync.Mutex
	root       context.Context
	wallet     *provider.Local
	connecting bool
}

func New(cfg Config, guard *netguard.Guard, flow *txflow.Orchestrator, watcher *ethwatch.Watcher, hist *history.Store, notifier txflow.Notifier, log *logrus.Entry) *Client {
	c := &Client{
		cfg:      cfg,
		Guard:    guard,
		Flow:     flow,
		Watcher:  watcher,
		History:  hist,
		notifier: notifier,
		log:      log,
	}

	flow.SetKicker(watcher)
	guard.OnAccountsChanged(func(ctx context.Context) { flow.RefreshBalance(ctx) })
	watcher.OnSuccess(func(ctx context.Context) { flow.RefreshBalance(ctx) })
	return c
}

// Start binds background work to ctx. Call it once before Connect.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.root = ctx
	c.mu.Unlock()

	c.Watcher.Start(ctx)
}

func (c *Client) rootCtx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root == nil {
		return context.Background()
	}
	return c.root
}

// Connect dials the wallet and starts a network guard session.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.wallet != nil || c.connecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.connecting = true
	c.mu.Unlock()

	w, err := provider.Connect(ctx, c.cfg.RPCURL, c.cfg.Keys, c.cfg.Dial, c.log.WithField("component", "wallet"))

	c.mu.Lock()
	c.connecting = false
	if err == nil {
		c.wallet = w
	}
	c.mu.Unlock()

	if err != nil {
		c.log.WithError(err).Error("initialize wallet")
		return err
	}

	c.attach(ctx, w)
	return nil
}

// attach hands a freshly connected wallet to every component that uses it.
func (c *Client) attach(ctx context.Context, w provider.Provider) {
	c.Flow.SetWallet(w)
	c.Watcher.SetReader(w)
	c.Guard.Connect(c.rootCtx(), w)
	c.Flow.RefreshBalance(ctx)
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	w := c.wallet
	c.wallet = nil
	c.mu.Unlock()

	if w == nil {
		return
	}

	c.Guard.Disconnect()
	c.Watcher.SetReader(nil)
	c.Flow.SetWallet(nil)
	w.Close()
	c.log.Info("wallet disconnected")
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallet != nil
}

func (c *Client) EnterDemo() {
	c.Flow.SetDemo(true)
	c.notifier.Push("Demo mode activated! All features work exactly the same, but in demonstration mode.", notify.KindInfo)
}

func (c *Client) ExitDemo() {
	c.Flow.SetDemo(false)
	c.notifier.Push("Demo mode deactivated.", notify.KindInfo)
}

// NextAccount moves a mnemonic wallet to the following derivation index.
// The balance refresh happens through the accountsChanged event.
func (c *Client) NextAccount() error {
	c.mu.Lock()
	w := c.wallet
	c.mu.Unlock()

	if w == nil {
		return txflow.ErrNotConnected
	}
	return w.SelectAccount(w.AccountIndex() + 1)
}

func (c *Client) SwitchNetwork(ctx context.Context) error {
	return c.Guard.SwitchToTarget(ctx, false)
}

func (c *Client) Status() Status {
	snap := c.Guard.Snapshot()
	s := Status{
		Mode:            ModeDisconnected,
		Address:         c.Flow.Address(),
		Balance:         c.Flow.Balance(),
		Network:         snap.Network,
		NetworkState:    snap.State,
		SwitchAttempted: snap.SwitchAttempted,
	}

	c.mu.Lock()
	w := c.wallet
	c.mu.Unlock()

	switch {
	case c.Flow.Demo():
		s.Mode = ModeDemo
		s.Provider = "Demo Provider"
	case w != nil:
		s.Mode = ModeConnected
		s.Provider = "Local signer"
		s.AccountIndex = w.AccountIndex()
		s.CanSwitchIndex = c.cfg.Keys.HasMnemonic()
	}
	return s
}

// Close tears the session down for shutdown.
func (c *Client) Close() {
	c.Disconnect()
	c.Watcher.Stop()
}
