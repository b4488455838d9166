package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pvzzle/seismicbot/internal/bus"
	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/stretchr/testify/require"
)

func TestPrintNotifications_FlushesBufferedOnCancel(t *testing.T) {
	ch := make(chan bus.Notification, 4)
	ch <- bus.Notification{Op: bus.OpShow, ID: 1, Kind: "success", Text: "Cleared 3 record(s)"}
	ch <- bus.Notification{Op: bus.OpHide, ID: 1}
	ch <- bus.Notification{Op: bus.OpShow, ID: 2, Kind: "error", Text: "boom"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	printNotifications(ctx, &out, ch)

	require.Equal(t, "[success] Cleared 3 record(s)\n[error] boom\n", out.String())
	require.Empty(t, ch)
}

func TestPrintNotifications_StreamsUntilCancel(t *testing.T) {
	ch := make(chan bus.Notification)
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		printNotifications(ctx, &out, ch)
	}()

	ch <- bus.Notification{Op: bus.OpShow, Kind: "info", Text: "hello"}
	cancel()
	<-done

	require.Equal(t, "[info] hello\n", out.String())
}

func TestParseSource(t *testing.T) {
	_, all, err := parseSource("all")
	require.NoError(t, err)
	require.True(t, all)

	src, all, err := parseSource("messages")
	require.NoError(t, err)
	require.False(t, all)
	require.Equal(t, storage.SourceMessages, src)

	_, _, err = parseSource("blocks")
	require.Error(t, err)
}
