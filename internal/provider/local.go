package provider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/pvzzle/seismicbot/internal/seismic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Backend is the subset of *ethclient.Client the wallet needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

type DialFunc func(ctx context.Context, rawURL string) (Backend, error)

func DialEth(ctx context.Context, rawURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type endpoint struct {
	params  seismic.ChainParams
	backend Backend
}

// Local is a single-account wallet that signs locally and talks to
// whichever registered chain is active, like an injected browser wallet.
var _ Provider = (*Local)(nil)

type Local struct {
	mu     sync.RWMutex
	keys   KeySource
	index  uint32
	key    *ecdsa.PrivateKey
	addr   common.Address
	chains map[int64]*endpoint
	active int64
	subs   map[uuid.UUID]chan Event
	dial   DialFunc
	log    *logrus.Entry
	closed bool
}

// Connect dials rpcURL and makes the chain it serves the active one.
func Connect(ctx context.Context, rpcURL string, keys KeySource, dial DialFunc, log *logrus.Entry) (*Local, error) {
	key, err := keys.Key()
	if err != nil {
		return nil, err
	}
	if dial == nil {
		dial = DialEth
	}

	backend, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	id, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}

	params := seismic.Target
	if id.Int64() != seismic.Target.ID {
		params = seismic.ChainParams{
			ID:      id.Int64(),
			Name:    seismic.ChainName(id.Int64()),
			RPCURLs: []string{rpcURL},
		}
	}

	w := &Local{
		keys:   keys,
		index:  keys.Index,
		key:    key,
		addr:   crypto.PubkeyToAddress(key.PublicKey),
		chains: map[int64]*endpoint{id.Int64(): {params: params, backend: backend}},
		active: id.Int64(),
		subs:   make(map[uuid.UUID]chan Event),
		dial:   dial,
		log:    log,
	}
	log.WithFields(logrus.Fields{"chain_id": id.String(), "address": w.addr.Hex()}).Info("wallet connected")
	return w, nil
}

func (w *Local) current() (*endpoint, int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return nil, 0, &Error{Code: CodeUnauthorized, Message: "wallet disconnected"}
	}
	ep, ok := w.chains[w.active]
	if !ok {
		return nil, 0, &Error{Code: CodeUnauthorized, Message: "no active chain"}
	}
	return ep, w.active, nil
}

func (w *Local) ChainID(ctx context.Context) (*big.Int, error) {
	ep, _, err := w.current()
	if err != nil {
		return nil, err
	}
	return ep.backend.ChainID(ctx)
}

func (w *Local) SwitchChain(ctx context.Context, chainID *big.Int) error {
	w.mu.Lock()
	if _, ok := w.chains[chainID.Int64()]; !ok {
		w.mu.Unlock()
		return &Error{
			Code:    CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID \"0x%x\". Try adding the chain using wallet_addEthereumChain first.", chainID),
		}
	}
	changed := w.active != chainID.Int64()
	w.active = chainID.Int64()
	w.mu.Unlock()

	if changed {
		w.broadcast(Event{Kind: EventChainChanged, ChainID: new(big.Int).Set(chainID)})
	}
	return nil
}

// AddChain registers params after checking the RPC serves the advertised chain, then activates it.
func (w *Local) AddChain(ctx context.Context, params seismic.ChainParams) error {
	if params.ID <= 0 || params.RPCURL() == "" {
		return &Error{Code: CodeInvalidParams, Message: "chain id and rpc url are required"}
	}

	w.mu.RLock()
	_, known := w.chains[params.ID]
	w.mu.RUnlock()
	if known {
		return w.SwitchChain(ctx, params.BigID())
	}

	backend, err := w.dial(ctx, params.RPCURL())
	if err != nil {
		return fmt.Errorf("dial %s: %w", params.RPCURL(), err)
	}
	remote, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return fmt.Errorf("chain id: %w", err)
	}
	if remote.Int64() != params.ID {
		backend.Close()
		return &Error{
			Code:    CodeInvalidParams,
			Message: fmt.Sprintf("chainId %s returned by RPC does not match %s", remote, params.HexID()),
		}
	}

	w.mu.Lock()
	w.chains[params.ID] = &endpoint{params: params, backend: backend}
	w.mu.Unlock()

	w.log.WithField("chain_id", params.ID).Info("chain added")
	return w.SwitchChain(ctx, params.BigID())
}

func (w *Local) Address() common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.addr
}

// SelectAccount moves a mnemonic wallet to another derivation index.
func (w *Local) SelectAccount(index uint32) error {
	if !w.keys.HasMnemonic() {
		return &Error{Code: CodeUnauthorized, Message: "account selection requires a mnemonic"}
	}
	key, err := w.keys.KeyAt(index)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.index = index
	w.key = key
	w.addr = crypto.PubkeyToAddress(key.PublicKey)
	addr := w.addr
	w.mu.Unlock()

	w.broadcast(Event{Kind: EventAccountsChanged, Accounts: []common.Address{addr}})
	return nil
}

func (w *Local) AccountIndex() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.index
}

func (w *Local) BalanceAt(ctx context.Context) (*big.Int, error) {
	ep, _, err := w.current()
	if err != nil {
		return nil, err
	}
	return ep.backend.BalanceAt(ctx, w.Address(), nil)
}

func (w *Local) EstimateGas(ctx context.Context, req TxRequest) (uint64, error) {
	ep, _, err := w.current()
	if err != nil {
		return 0, err
	}
	to := req.To
	return ep.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.Address(),
		To:    &to,
		Value: req.Value,
		Data:  req.Data,
	})
}

func (w *Local) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	ep, chainID, err := w.current()
	if err != nil {
		return common.Hash{}, err
	}

	w.mu.RLock()
	key, from := w.key, w.addr
	w.mu.RUnlock()

	nonce, err := ep.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := ep.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	gas := req.GasLimit
	if gas == 0 {
		gas, err = w.EstimateGas(ctx, req)
		if err != nil {
			return common.Hash{}, err
		}
	}

	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := ep.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func (w *Local) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ep, _, err := w.current()
	if err != nil {
		return nil, err
	}
	return ep.backend.TransactionReceipt(ctx, hash)
}

func (w *Local) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	id := uuid.New()

	w.mu.Lock()
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			if _, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(ch)
			}
			w.mu.Unlock()
		})
	}
}

func (w *Local) broadcast(ev Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for id, ch := range w.subs {
		select {
		case ch <- ev:
		default:
			w.log.WithField("subscription", id.String()).Warn("event subscriber is slow, dropping event")
		}
	}
}

// Close releases every endpoint and ends all subscriptions.
func (w *Local) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	for _, ep := range w.chains {
		ep.backend.Close()
	}
	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
}
