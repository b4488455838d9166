package ethwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pvzzle/seismicbot/internal/history"
	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type Notifier interface {
	Push(message string, kind notify.Kind) notify.Notification
}

type WatcherConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	// receipt lookups per second across all workers
	RPS     float64
	Workers int
}

// Watcher reconciles pending history records with their receipts.
// The poll loop only runs while there is a pending record and a reader.
type Watcher struct {
	store    *history.Store
	notifier Notifier
	cfg      WatcherConfig
	limiter  *rate.Limiter
	log      *logrus.Entry
	now      func() time.Time

	mu        sync.Mutex
	base      context.Context
	reader    ReceiptReader
	onSuccess func(ctx context.Context)
	cancel    context.CancelFunc
	running   bool
	done      chan struct{}
}

func NewWatcher(store *history.Store, notifier Notifier, log *logrus.Entry, cfg WatcherConfig) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Watcher{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Workers),
		log:      log,
		now:      time.Now,
	}
}

// OnSuccess registers fn to run after a pass that confirmed at least one record.
func (w *Watcher) OnSuccess(fn func(ctx context.Context)) {
	w.mu.Lock()
	w.onSuccess = fn
	w.mu.Unlock()
}

// Start binds the watcher to ctx and begins polling if there is work.
// Polling stops for good once ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.base = ctx
	w.mu.Unlock()

	w.Ensure()
}

// SetReader swaps the receipt source. A nil reader stops polling.
func (w *Watcher) SetReader(reader ReceiptReader) {
	w.Stop()

	w.mu.Lock()
	w.reader = reader
	w.mu.Unlock()

	w.Ensure()
}

// Ensure starts the poll loop unless it is already running or has nothing to do.
func (w *Watcher) Ensure() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || w.base == nil || w.base.Err() != nil || w.reader == nil {
		return
	}
	if !w.store.HasPending() {
		return
	}

	ctx, cancel := context.WithCancel(w.base)
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})

	go w.loop(ctx, cancel, w.reader, w.done)
}

// Stop cancels the poll loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, cancel context.CancelFunc, reader ReceiptReader, done chan struct{}) {
	defer close(done)
	defer func() {
		cancel()
		w.mu.Lock()
		// Ensure may already have started the next loop
		if w.done == done {
			w.running = false
			w.cancel = nil
		}
		w.mu.Unlock()
	}()

	w.log.Info("receipt polling started")

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		w.checkPending(ctx, reader)
		if w.idle() {
			w.log.Info("no pending transactions, receipt polling stopped")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// idle reports whether the loop may exit. It holds mu so a concurrent
// Ensure either sees the loop running or finds it gone.
func (w *Watcher) idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.store.HasPending() {
		return false
	}
	w.running = false
	return true
}

// CheckPending runs a single reconciliation pass with the current reader.
func (w *Watcher) CheckPending(ctx context.Context) {
	w.mu.Lock()
	reader := w.reader
	w.mu.Unlock()

	if reader == nil {
		return
	}
	w.checkPending(ctx, reader)
}

func (w *Watcher) checkPending(ctx context.Context, reader ReceiptReader) {
	pending := w.store.Pending()
	if len(pending) == 0 {
		return
	}

	var (
		mu        sync.Mutex
		confirmed bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Workers)

	for _, rec := range pending {
		g.Go(func() error {
			if err := w.limiter.Wait(gctx); err != nil {
				return err
			}
			if w.checkOne(gctx, reader, rec) {
				mu.Lock()
				confirmed = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if confirmed {
		w.mu.Lock()
		fn := w.onSuccess
		w.mu.Unlock()
		if fn != nil {
			fn(ctx)
		}
	}
}

// checkOne reconciles rec and reports whether it was confirmed successful.
func (w *Watcher) checkOne(ctx context.Context, reader ReceiptReader, rec storage.TxRecord) bool {
	log := w.log.WithField("hash", rec.Hash)

	receipt, err := reader.TransactionReceipt(ctx, common.HexToHash(rec.Hash))
	switch {
	case err == nil && receipt != nil:
		status := storage.StatusFailed
		if receipt.Status == types.ReceiptStatusSuccessful {
			status = storage.StatusSuccess
		}
		var block *uint64
		if receipt.BlockNumber != nil {
			bn := receipt.BlockNumber.Uint64()
			block = &bn
		}
		w.store.SetStatus(ctx, rec.Hash, status, block)
		log.WithField("status", status).Info("transaction settled")
		w.push(FormatSettled(rec.Hash, status, block), status)
		return status == storage.StatusSuccess

	case err == nil || errors.Is(err, ethereum.NotFound):
		if w.stale(rec) {
			w.store.SetStatus(ctx, rec.Hash, storage.StatusFailed, nil)
			log.Warn("no receipt after timeout, marking failed")
			w.push(FormatSettled(rec.Hash, storage.StatusFailed, nil), storage.StatusFailed)
		}
		return false

	default:
		if ctx.Err() == nil {
			log.WithError(err).Error("check transaction")
		}
		return false
	}
}

// stale reports whether rec has waited longer than StaleAfter. Unparsable timestamps never expire.
func (w *Watcher) stale(rec storage.TxRecord) bool {
	sent, ok := rec.Time()
	if !ok {
		return false
	}
	return w.now().Sub(sent) > w.cfg.StaleAfter
}

func (w *Watcher) push(msg string, status storage.Status) {
	if w.notifier == nil {
		return
	}
	kind := notify.KindSuccess
	if status == storage.StatusFailed {
		kind = notify.KindError
	}
	w.notifier.Push(msg, kind)
}
