package txflow

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/pvzzle/seismicbot/internal/ethwatch"
	"github.com/pvzzle/seismicbot/internal/history"
	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/provider"
	"github.com/pvzzle/seismicbot/internal/sealed"
	"github.com/pvzzle/seismicbot/internal/seismic"
	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// EncryptedGasLimit is the fixed gas limit of transfers carrying a mock payload.
	EncryptedGasLimit = 100000
	// FixedValue is what typed-value and message transactions transfer.
	FixedValue = "0.001"
	// DemoBalance is shown instead of a real balance in demo mode.
	DemoBalance = "1000.0"

	networkName     = "Seismic"
	demoNetworkName = "Seismic (Demo)"
)

// gasReserve is kept aside for fees when checking a transfer amount.
var gasReserve = decimal.RequireFromString("0.001")

type Wallet interface {
	Address() common.Address
	BalanceAt(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, req provider.TxRequest) (uint64, error)
	SendTransaction(ctx context.Context, req provider.TxRequest) (common.Hash, error)
}

type NetworkChecker interface {
	IsCorrectNetwork() bool
}

type Notifier interface {
	Push(message string, kind notify.Kind) notify.Notification
}

// Kicker (re)starts receipt reconciliation after a pending record is added.
type Kicker interface {
	Ensure()
}

type Config struct {
	DemoDelay time.Duration
}

func DefaultConfig() Config {
	return Config{DemoDelay: 2 * time.Second}
}

type TransferRequest struct {
	To      string // empty sends to the connected wallet itself
	Amount  string // decimal SETH
	Encrypt bool
}

// Orchestrator validates, submits and records every kind of transaction.
type Orchestrator struct {
	mu      sync.RWMutex
	cfg     Config
	wallet  Wallet
	demo    bool
	balance string

	network  NetworkChecker
	history  *history.Store
	notifier Notifier
	kicker   Kicker
	log      *logrus.Entry
	now      func() time.Time
}

func New(cfg Config, network NetworkChecker, hist *history.Store, notifier Notifier, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		balance:  "0.0",
		network:  network,
		history:  hist,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// SetKicker wires the reconciler; it is created after the orchestrator.
func (o *Orchestrator) SetKicker(k Kicker) {
	o.mu.Lock()
	o.kicker = k
	o.mu.Unlock()
}

// SetWallet attaches w, or detaches the current wallet when w is nil.
func (o *Orchestrator) SetWallet(w Wallet) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.wallet = w
	if w == nil {
		o.balance = "0.0"
	}
}

func (o *Orchestrator) SetDemo(on bool) {
	o.mu.Lock()
	o.demo = on
	o.mu.Unlock()
}

func (o *Orchestrator) Demo() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.demo
}

func (o *Orchestrator) Connected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.wallet != nil
}

// Address is the sender shown to the user, the demo placeholder in demo mode.
func (o *Orchestrator) Address() string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	switch {
	case o.demo:
		return seismic.DemoAddress
	case o.wallet != nil:
		return o.wallet.Address().Hex()
	default:
		return ""
	}
}

// Balance returns the cached balance with 4 decimals.
func (o *Orchestrator) Balance() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.demo {
		return DemoBalance
	}
	return o.balance
}

// RefreshBalance reloads the wallet balance into the cache. Errors reset it to "0.0".
func (o *Orchestrator) RefreshBalance(ctx context.Context) string {
	o.mu.RLock()
	w, demo := o.wallet, o.demo
	o.mu.RUnlock()

	if demo {
		o.push("Demo mode: Balance refreshed (simulated)", notify.KindInfo)
		return DemoBalance
	}
	if w == nil {
		return o.Balance()
	}

	value := "0.0"
	wei, err := w.BalanceAt(ctx)
	if err != nil {
		o.log.WithError(err).Error("get balance")
	} else {
		value = ethwatch.FormatBalance(wei)
	}

	o.mu.Lock()
	o.balance = value
	o.mu.Unlock()
	return value
}

// SendTransfer sends req.Amount SETH, with a random payload when req.Encrypt is set.
func (o *Orchestrator) SendTransfer(ctx context.Context, req TransferRequest) (*storage.TxRecord, error) {
	o.mu.RLock()
	w, demo := o.wallet, o.demo
	o.mu.RUnlock()

	amount := strings.TrimSpace(req.Amount)
	if (w == nil && !demo) || amount == "" {
		o.push("Please fill in amount and connect wallet", notify.KindWarning)
		if amount == "" {
			return nil, &ValidationError{Field: "amount", Message: "amount is required"}
		}
		return nil, ErrNotConnected
	}

	status := "TRANSPARENT"
	if req.Encrypt {
		status = "ENCRYPTED"
	}

	if demo {
		to := strings.TrimSpace(req.To)
		if to == "" {
			to = seismic.DemoAddress
		}
		rec := storage.TxRecord{
			To:             to,
			Value:          amount,
			Status:         storage.StatusSuccess,
			Encrypted:      req.Encrypt,
			EncryptionType: "None (Demo)",
			Network:        demoNetworkName,
			GasUsed:        "Demo",
			DataSize:       "0 bytes (Demo)",
			Source:         storage.SourceTransactions,
		}
		if req.Encrypt {
			rec.EncryptionType = "Seismic TDX Encryption (Demo)"
			rec.DataSize = "256 bytes (Demo)"
		}
		if err := o.simulate(ctx, &rec); err != nil {
			o.push("Demo: Transaction simulation failed", notify.KindError)
			return nil, err
		}
		o.push(fmt.Sprintf("Demo: %s transaction simulated successfully! Hash: %s", status, rec.Hash), notify.KindSuccess)
		return &rec, nil
	}

	if !o.network.IsCorrectNetwork() {
		o.push("Please switch to Seismic network before sending transactions!", notify.KindWarning)
		return nil, ErrWrongNetwork
	}

	own := w.Address().Hex()
	to := strings.TrimSpace(req.To)
	if to == "" {
		to = own
	}
	if !sealed.IsAddress(to) {
		o.push("Invalid recipient address format", notify.KindError)
		return nil, &ValidationError{Field: "recipient", Message: "Invalid recipient address format"}
	}

	value, err := parseAmount(amount)
	if err != nil {
		o.push(err.Error(), notify.KindError)
		return nil, err
	}
	if err := o.checkBalance(value); err != nil {
		return nil, err
	}

	txReq := provider.TxRequest{
		To:    common.HexToAddress(to),
		Value: value.Shift(18).BigInt(),
	}
	rec := storage.TxRecord{
		To:             to,
		Value:          amount,
		Encrypted:      req.Encrypt,
		EncryptionType: "None",
		Network:        networkName,
		GasUsed:        "auto",
		DataSize:       "0 bytes",
		Source:         storage.SourceTransactions,
	}
	if req.Encrypt {
		data, err := randomPayload()
		if err != nil {
			return nil, err
		}
		txReq.Data = data
		txReq.GasLimit = EncryptedGasLimit
		rec.EncryptionType = "Seismic TDX Encryption"
		rec.GasUsed = fmt.Sprint(EncryptedGasLimit)
		rec.DataSize = fmt.Sprintf("%d bytes", len(data))
		o.log.Info("preparing encrypted transaction")
		o.push("Preparing encrypted transaction with Seismic TDX privacy features...", notify.KindInfo)
	} else {
		o.log.Info("preparing standard transaction")
		o.push("Preparing standard transparent transaction...", notify.KindInfo)
	}

	if err := o.submit(ctx, w, txReq, &rec, "Transaction failed: "); err != nil {
		return nil, err
	}

	o.push(fmt.Sprintf("%s transaction sent successfully on Seismic%s! Hash: %s", status, ownSuffix(to, own), rec.Hash), notify.KindSuccess)
	return &rec, nil
}

// EncryptValue validates value for t and produces its mock ciphertext.
// An empty contract means the connected wallet (or the demo address).
func (o *Orchestrator) EncryptValue(t sealed.Type, value, contract string) (*sealed.EncryptedValue, error) {
	value = strings.TrimSpace(value)
	if t == "" || value == "" {
		o.push("Please select encrypted type and provide input value", notify.KindWarning)
		return nil, &ValidationError{Field: "value", Message: "encrypted type and value are required"}
	}
	if err := sealed.Validate(t, value); err != nil {
		o.push("Validation Error: "+err.Error(), notify.KindError)
		return nil, err
	}

	demo := o.Demo()
	own := o.Address()
	target := strings.TrimSpace(contract)
	if target == "" {
		target = own
	}

	ev, err := sealed.EncryptValue(t, value, target, demo)
	if err != nil {
		o.log.WithError(err).Error("encrypt value")
		o.push("Encryption failed: "+err.Error(), notify.KindError)
		return nil, err
	}

	o.push(fmt.Sprintf("%s%s value %q encrypted successfully on Seismic%s!", demoPrefix(demo), t, value, ownSuffix(target, own)), notify.KindSuccess)
	return ev, nil
}

// SendEncryptedValue sends FixedValue SETH with a random payload tagged with ev's type.
func (o *Orchestrator) SendEncryptedValue(ctx context.Context, ev *sealed.EncryptedValue) (*storage.TxRecord, error) {
	o.mu.RLock()
	w, demo := o.wallet, o.demo
	o.mu.RUnlock()

	if (w == nil && !demo) || ev == nil {
		o.push("Please complete encryption first and connect wallet", notify.KindWarning)
		if ev == nil {
			return nil, ErrNothingEncrypted
		}
		return nil, ErrNotConnected
	}

	if demo {
		to := ev.ContractAddress
		if to == "" {
			to = seismic.DemoAddress
		}
		rec := storage.TxRecord{
			To:            to,
			Value:         FixedValue,
			Status:        storage.StatusSuccess,
			Encrypted:     true,
			EncryptedType: string(ev.Type) + " (Demo)",
			Network:       demoNetworkName,
			Source:        storage.SourceTransactions,
		}
		if err := o.simulate(ctx, &rec); err != nil {
			o.push("Demo: Encrypted transaction simulation failed", notify.KindError)
			return nil, err
		}
		o.push(fmt.Sprintf("Demo: Encrypted transaction simulated successfully on Seismic%s! Hash: %s, Type: %s", ownSuffix(to, seismic.DemoAddress), rec.Hash, ev.Type), notify.KindSuccess)
		return &rec, nil
	}

	if !o.network.IsCorrectNetwork() {
		o.push("Please switch to Seismic network before sending encrypted transactions!", notify.KindWarning)
		return nil, ErrWrongNetwork
	}

	own := w.Address().Hex()
	to := ev.ContractAddress
	if to == "" {
		to = own
	}
	if !sealed.IsAddress(to) {
		o.push("Invalid contract address format", notify.KindError)
		return nil, &ValidationError{Field: "contract", Message: "Invalid contract address format"}
	}

	rec := storage.TxRecord{
		To:            to,
		Value:         FixedValue,
		Encrypted:     true,
		EncryptedType: string(ev.Type),
		Network:       networkName,
		Source:        storage.SourceTransactions,
	}
	if err := o.sendFixed(ctx, w, to, nil, &rec, "Encrypted transaction failed: "); err != nil {
		return nil, err
	}

	o.push(fmt.Sprintf("Encrypted transaction sent successfully on Seismic%s! Hash: %s, Type: %s", ownSuffix(to, own), rec.Hash, ev.Type), notify.KindSuccess)
	return &rec, nil
}

func (o *Orchestrator) EncryptMessage(msg string) (*sealed.EncryptedMessage, error) {
	if strings.TrimSpace(msg) == "" {
		o.push("Please enter a message to encrypt", notify.KindWarning)
		return nil, &ValidationError{Field: "message", Message: "Please enter a message to encrypt"}
	}

	demo := o.Demo()
	em, err := sealed.EncryptMessage(msg, demo)
	if err != nil {
		o.log.WithError(err).Error("encrypt message")
		o.push("Message encryption failed: "+err.Error(), notify.KindError)
		return nil, err
	}

	o.push(demoPrefix(demo)+"Message encrypted successfully using Seismic TDX encryption!", notify.KindSuccess)
	return em, nil
}

// SendEncryptedMessage stores em's ciphertext as the data of a FixedValue transfer to target.
func (o *Orchestrator) SendEncryptedMessage(ctx context.Context, em *sealed.EncryptedMessage, target string) (*storage.TxRecord, error) {
	o.mu.RLock()
	w, demo := o.wallet, o.demo
	o.mu.RUnlock()

	if (w == nil && !demo) || em == nil {
		o.push("Please encrypt a message first", notify.KindWarning)
		if em == nil {
			return nil, ErrNothingEncrypted
		}
		return nil, ErrNotConnected
	}

	to := strings.TrimSpace(target)
	rec := storage.TxRecord{
		Value:          FixedValue,
		Encrypted:      true,
		EncryptedType:  storage.MessageType,
		MessagePreview: sealed.Preview(em.OriginalMessage),
		Source:         storage.SourceMessages,
	}

	if demo {
		if to == "" {
			to = seismic.DemoAddress
		}
		rec.To = to
		rec.Status = storage.StatusSuccess
		rec.Network = demoNetworkName
		if err := o.simulate(ctx, &rec); err != nil {
			o.push("Demo: Encrypted message simulation failed", notify.KindError)
			return nil, err
		}
		o.push(fmt.Sprintf("Demo: Encrypted message simulated successfully on Seismic%s! Hash: %s", ownSuffix(to, seismic.DemoAddress), rec.Hash), notify.KindSuccess)
		return &rec, nil
	}

	if !o.network.IsCorrectNetwork() {
		o.push("Please switch to Seismic network before sending encrypted messages!", notify.KindWarning)
		return nil, ErrWrongNetwork
	}

	own := w.Address().Hex()
	if to == "" {
		to = own
	}
	if !sealed.IsAddress(to) {
		o.push("Invalid contract address format", notify.KindError)
		return nil, &ValidationError{Field: "contract", Message: "Invalid contract address format"}
	}

	data, err := hexutil.Decode(em.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted message: %w", err)
	}

	rec.To = to
	rec.Network = networkName
	if err := o.sendFixed(ctx, w, to, data, &rec, "Encrypted message transaction failed: "); err != nil {
		return nil, err
	}

	o.push(fmt.Sprintf("Encrypted message sent successfully on Seismic%s! Hash: %s", ownSuffix(to, own), rec.Hash), notify.KindSuccess)
	return &rec, nil
}

func (o *Orchestrator) ClearTransactions(ctx context.Context) int {
	n := o.history.ClearTransactions(ctx)
	o.push("Transaction history cleared successfully", notify.KindSuccess)
	return n
}

func (o *Orchestrator) ClearMessages(ctx context.Context) int {
	n := o.history.ClearMessages(ctx)
	o.push("Message history cleared successfully", notify.KindSuccess)
	return n
}

func (o *Orchestrator) ClearAll(ctx context.Context) int {
	n := o.history.ClearAll(ctx)
	o.push("Transaction history cleared successfully", notify.KindSuccess)
	return n
}

// sendFixed sends FixedValue SETH to `to`; a nil payload is replaced by random bytes.
func (o *Orchestrator) sendFixed(ctx context.Context, w Wallet, to string, data []byte, rec *storage.TxRecord, prefix string) error {
	value := decimal.RequireFromString(FixedValue)
	if err := o.checkBalance(value); err != nil {
		return err
	}
	if data == nil {
		var err error
		if data, err = randomPayload(); err != nil {
			return err
		}
	}
	req := provider.TxRequest{
		To:    common.HexToAddress(to),
		Value: value.Shift(18).BigInt(),
		Data:  data,
	}
	return o.submit(ctx, w, req, rec, prefix)
}

// submit estimates gas, sends req and records rec as pending.
func (o *Orchestrator) submit(ctx context.Context, w Wallet, req provider.TxRequest, rec *storage.TxRecord, prefix string) error {
	gas, err := w.EstimateGas(ctx, req)
	if err != nil {
		o.log.WithError(err).Error("gas estimation failed")
		if Classify(err) == FailureInsufficientFunds {
			o.push(fmt.Sprintf("Insufficient funds for transaction! You need more %s tokens. Use the faucet to get free test tokens.", seismic.Symbol), notify.KindError)
			return fmt.Errorf("estimate gas: %w", err)
		}
		o.push(failureMessage(err, prefix), notify.KindError)
		return fmt.Errorf("estimate gas: %w", err)
	}
	o.log.WithField("gas", gas).Debug("gas estimate")

	hash, err := w.SendTransaction(ctx, req)
	if err != nil {
		o.log.WithError(err).Error("send transaction")
		o.push(failureMessage(err, prefix), notify.KindError)
		return fmt.Errorf("send transaction: %w", err)
	}

	rec.Hash = hash.Hex()
	rec.Status = storage.StatusPending
	rec.Timestamp = storage.Stamp(o.now())
	o.history.Add(ctx, *rec)

	o.mu.RLock()
	k := o.kicker
	o.mu.RUnlock()
	if k != nil {
		k.Ensure()
	}

	o.log.WithFields(logrus.Fields{"hash": rec.Hash, "to": rec.To, "value": rec.Value}).Info("transaction sent")
	return nil
}

// checkBalance compares amount with the cached balance, leaving gasReserve for fees.
func (o *Orchestrator) checkBalance(amount decimal.Decimal) error {
	balance, err := decimal.NewFromString(o.Balance())
	if err != nil {
		balance = decimal.Zero
	}

	if balance.IsZero() {
		o.push(fmt.Sprintf("Balance is 0 %s. You need test tokens to send transactions. Use the faucet to get free tokens.", seismic.Symbol), notify.KindWarning)
		return ErrInsufficientBalance
	}
	if amount.GreaterThan(balance) {
		o.push(fmt.Sprintf("Insufficient balance! You're trying to send: %s %s, but your current balance is: %s %s. Please reduce the amount or get more tokens from the faucet.",
			amount, seismic.Symbol, balance, seismic.Symbol), notify.KindError)
		return ErrInsufficientBalance
	}
	if amount.Add(gasReserve).GreaterThan(balance) {
		o.push(fmt.Sprintf("Please leave some %s for gas fees! Recommended max amount: %s %s (%s %s reserved for gas)",
			seismic.Symbol, balance.Sub(gasReserve).StringFixed(6), seismic.Symbol, gasReserve, seismic.Symbol), notify.KindWarning)
		return ErrInsufficientBalance
	}
	return nil
}

// simulate waits out the demo delay, then fills in a fake hash and records rec.
func (o *Orchestrator) simulate(ctx context.Context, rec *storage.TxRecord) error {
	t := time.NewTimer(o.cfg.DemoDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	hash, err := sealed.RandomHex(32)
	if err != nil {
		return err
	}
	rec.Hash = hash
	rec.Timestamp = storage.Stamp(o.now())
	o.history.Add(ctx, *rec)
	return nil
}

func (o *Orchestrator) push(msg string, kind notify.Kind) {
	if o.notifier != nil {
		o.notifier.Push(msg, kind)
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "Invalid amount"}
	}
	if !d.Truncate(18).Equal(d) {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "Amount has more than 18 decimal places"}
	}
	return d, nil
}

func randomPayload() ([]byte, error) {
	s, err := sealed.RandomHex(sealed.PayloadCipherSize)
	if err != nil {
		return nil, err
	}
	return hexutil.Decode(s)
}

func ownSuffix(target, own string) string {
	if own != "" && strings.EqualFold(target, own) {
		return " (to your own wallet)"
	}
	return ""
}

func demoPrefix(demo bool) string {
	if demo {
		return "Demo: "
	}
	return ""
}
