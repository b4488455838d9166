package provider

import (
	"context"
	"math/big"

	"github.com/pvzzle/seismicbot/internal/seismic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type EventKind string

const (
	EventChainChanged    EventKind = "chainChanged"
	EventAccountsChanged EventKind = "accountsChanged"
)

type Event struct {
	Kind     EventKind
	ChainID  *big.Int
	Accounts []common.Address
}

type TxRequest struct {
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64 // 0 = estimate
}

// Provider is the wallet boundary: chain management, signing and chain reads.
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	AddChain(ctx context.Context, params seismic.ChainParams) error

	Address() common.Address
	BalanceAt(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, req TxRequest) (uint64, error)
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// Subscribe returns a channel of chain/account changes and its cancel func.
	Subscribe() (<-chan Event, func())
	Close()
}
