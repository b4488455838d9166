package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/pvzzle/seismicbot/internal/client"
	"github.com/pvzzle/seismicbot/internal/seismic"
	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, seismic.Target.RPCURL(), cfg.RPCURL)
	require.Equal(t, "sqlite", cfg.StorageDriver)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Equal(t, 10*time.Minute, cfg.StaleAfter)
	require.Equal(t, int64(42), cfg.TelegramChatID)
	require.False(t, cfg.HasWallet())
}

func TestConfig_Keys(t *testing.T) {
	cfg := Config{Mnemonic: "test test", AccountIndex: 3}
	require.True(t, cfg.HasWallet())
	require.True(t, cfg.Keys().HasMnemonic())
	require.Equal(t, uint32(3), cfg.Keys().Index)
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(Config{LogLevel: "debug", LogFormat: "json"})
	require.Equal(t, logrus.DebugLevel, log.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLogger(Config{LogLevel: "loud"})
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestOpenKV_UnknownDriver(t *testing.T) {
	_, _, err := OpenKV(context.Background(), Config{StorageDriver: "redis"})
	require.Error(t, err)

	_, _, err = OpenKV(context.Background(), Config{StorageDriver: "postgres"})
	require.Error(t, err)
}

func TestNewCore_RestoresHistory(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		StorageDriver: "sqlite",
		SQLitePath:    filepath.Join(t.TempDir(), "core.db"),
		NotifyBuffer:  16,
	}

	kv, release, err := OpenKV(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, storage.TransactionsKey, []byte(`[
		{"hash":"0x01","to":"0xabc","value":"0.1","timestamp":"2024-01-01T00:00:00Z","status":"success","encrypted":false,"network":"Seismic"}
	]`)))
	release()

	log := logrus.New()
	log.SetOutput(io.Discard)

	core, err := NewCore(ctx, cfg, log)
	require.NoError(t, err)
	defer core.Close()

	all := core.History.All()
	require.Len(t, all, 1)
	require.Equal(t, storage.SourceTransactions, all[0].Source)
	require.Equal(t, client.ModeDisconnected, core.Client.Status().Mode)
}
