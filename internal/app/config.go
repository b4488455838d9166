package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pvzzle/seismicbot/internal/provider"
	"github.com/pvzzle/seismicbot/internal/seismic"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	RPCURL       string `env:"RPC_URL"`
	PrivateKey   string `env:"WALLET_PRIVATE_KEY"`
	Mnemonic     string `env:"WALLET_MNEMONIC"`
	AccountIndex uint32 `env:"WALLET_ACCOUNT_INDEX"`

	StorageDriver string `env:"STORAGE_DRIVER"`
	SQLitePath    string `env:"SQLITE_PATH"`
	PostgresURL   string `env:"POSTGRES_URL"`

	PollInterval   time.Duration `env:"POLL_INTERVAL"`
	StaleAfter     time.Duration `env:"STALE_AFTER"`
	ReceiptRPS     float64       `env:"RECEIPT_RPS"`
	WatcherWorkers int           `env:"WATCHER_WORKERS"`
	DemoDelay      time.Duration `env:"DEMO_DELAY"`
	NotifyBuffer   int           `env:"NOTIFY_BUFFER"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, relying on environment variables")
	}

	config := Config{
		RPCURL:         seismic.Target.RPCURL(),
		StorageDriver:  "sqlite",
		SQLitePath:     "seismicbot.db",
		PollInterval:   15 * time.Second,
		StaleAfter:     10 * time.Minute,
		ReceiptRPS:     10,
		WatcherWorkers: 4,
		DemoDelay:      2 * time.Second,
		NotifyBuffer:   256,
		LogLevel:       "info",
		LogFormat:      "text",
	}

	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Keys() provider.KeySource {
	return provider.KeySource{
		PrivateKeyHex: c.PrivateKey,
		Mnemonic:      c.Mnemonic,
		Index:         c.AccountIndex,
	}
}

// HasWallet reports whether a signing key is configured.
func (c Config) HasWallet() bool {
	return strings.TrimSpace(c.PrivateKey) != "" || strings.TrimSpace(c.Mnemonic) != ""
}

func NewLogger(c Config) *logrus.Logger {
	log := logrus.New()
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
