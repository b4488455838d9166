package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pvzzle/seismicbot/internal/bus"
	"github.com/pvzzle/seismicbot/internal/client"
	"github.com/pvzzle/seismicbot/internal/ethwatch"
	"github.com/pvzzle/seismicbot/internal/history"
	"github.com/pvzzle/seismicbot/internal/netguard"
	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/storage"
	"github.com/pvzzle/seismicbot/internal/tg"
	"github.com/pvzzle/seismicbot/internal/txflow"

	tgbot "github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Core is the wallet client without a user interface.
type Core struct {
	Log           *logrus.Logger
	History       *history.Store
	Queue         *notify.Queue
	Client        *client.Client
	Notifications chan bus.Notification

	release func()
}

// NewCore opens storage, restores the history and wires every component.
func NewCore(ctx context.Context, cfg Config, log *logrus.Logger) (*Core, error) {
	kv, release, err := OpenKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	component := func(name string) *logrus.Entry { return log.WithField("component", name) }

	notifications := make(chan bus.Notification, cfg.NotifyBuffer)
	queue := notify.New(notify.DefaultConfig(), notifications, component("notify"))

	adapter := storage.NewAdapter(kv, component("storage"))
	hist := history.NewStore(adapter)
	hist.Restore(adapter.Load(ctx))

	guard := netguard.New(netguard.DefaultConfig(), queue, component("netguard"))
	flow := txflow.New(txflow.Config{DemoDelay: cfg.DemoDelay}, guard, hist, queue, component("txflow"))
	watcher := ethwatch.NewWatcher(hist, queue, component("watcher"), ethwatch.WatcherConfig{
		Interval:   cfg.PollInterval,
		StaleAfter: cfg.StaleAfter,
		RPS:        cfg.ReceiptRPS,
		Workers:    cfg.WatcherWorkers,
	})

	cl := client.New(client.Config{
		RPCURL: cfg.RPCURL,
		Keys:   cfg.Keys(),
	}, guard, flow, watcher, hist, queue, component("client"))

	log.WithFields(logrus.Fields{
		"storage": cfg.StorageDriver,
		"records": len(hist.All()),
		"pending": len(hist.Pending()),
	}).Info("history restored")

	return &Core{
		Log:           log,
		History:       hist,
		Queue:         queue,
		Client:        cl,
		Notifications: notifications,
		release:       release,
	}, nil
}

func (c *Core) Close() {
	c.Client.Close()
	c.Queue.Close()
	c.release()
}

// Run serves the Telegram UI until ctx is done.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(cfg)

	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}

	core, err := NewCore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer core.Close()

	tgLog := log.WithField("component", "tg")
	b, err := tgbot.New(cfg.TelegramToken,
		tgbot.WithWorkers(4),
		tgbot.WithMiddlewares(tg.OwnerOnly(cfg.TelegramChatID, tgLog)),
		tgbot.WithErrorsHandler(func(err error) {
			tgLog.WithError(err).Warn("telegram")
		}),
	)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}

	svc := tg.NewService(b, core.Client, core.Queue, core.Notifications, cfg.TelegramChatID, tgLog)

	core.Client.Start(ctx)
	if cfg.HasWallet() {
		if err := core.Client.Connect(ctx); err != nil {
			log.WithError(err).Warn("wallet not connected at startup")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svc.StartNotifyLoop(gctx)
		return nil
	})
	g.Go(func() error {
		b.Start(gctx)
		return nil
	})

	log.WithFields(logrus.Fields{
		"rpc":     cfg.RPCURL,
		"chat_id": cfg.TelegramChatID,
	}).Info("started")

	return g.Wait()
}
