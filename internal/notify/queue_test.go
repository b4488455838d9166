package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/pvzzle/seismicbot/internal/bus"

	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		ErrorTTL:   200 * time.Millisecond,
		DefaultTTL: 80 * time.Millisecond,
	}
}

func TestDefaultConfig_TTLs(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 10*time.Second, cfg.ErrorTTL)
	require.Equal(t, 5*time.Second, cfg.DefaultTTL)
	require.Equal(t, 300*time.Millisecond, cfg.CloseDelay)
}

func TestQueue_CapKeepsFiveNewestFirst(t *testing.T) {
	q := New(Config{ErrorTTL: time.Hour, DefaultTTL: time.Hour}, nil, nil)
	defer q.Close()

	for i := 1; i <= 6; i++ {
		q.Push(fmt.Sprintf("msg-%d", i), KindInfo)
	}

	items := q.List()
	require.Len(t, items, 5)
	for i, n := range items {
		require.Equal(t, fmt.Sprintf("msg-%d", 6-i), n.Message)
	}
}

func TestQueue_IDsAreUnique(t *testing.T) {
	q := New(Config{ErrorTTL: time.Hour, DefaultTTL: time.Hour}, nil, nil)
	defer q.Close()

	fixed := time.UnixMilli(1_700_000_000_000)
	q.now = func() time.Time { return fixed }

	a := q.Push("a", KindInfo)
	b := q.Push("b", KindInfo)
	require.Equal(t, fixed.UnixMilli(), a.ID)
	require.Equal(t, a.ID+1, b.ID)
}

func TestQueue_AutoDismissByKind(t *testing.T) {
	q := New(fastConfig(), nil, nil)
	defer q.Close()

	errN := q.Push("boom", KindError)
	infoN := q.Push("fyi", KindInfo)

	require.Eventually(t, func() bool {
		_, ok := q.Get(infoN.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, stillThere := q.Get(errN.ID)
	require.True(t, stillThere, "error notification must outlive info")

	require.Eventually(t, func() bool {
		_, ok := q.Get(errN.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_PauseAndResume(t *testing.T) {
	q := New(fastConfig(), nil, nil)
	defer q.Close()

	n := q.Push("hold me", KindSuccess)
	q.Pause(n.ID)
	require.True(t, q.Paused(n.ID))

	time.Sleep(150 * time.Millisecond)
	_, ok := q.Get(n.ID)
	require.True(t, ok, "paused notification must not be dismissed")

	q.Resume(n.ID, n.Kind)
	require.False(t, q.Paused(n.ID))
	require.Eventually(t, func() bool {
		_, ok := q.Get(n.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_RemoveWithCloseDelay(t *testing.T) {
	cfg := Config{ErrorTTL: time.Hour, DefaultTTL: time.Hour, CloseDelay: 50 * time.Millisecond}
	q := New(cfg, nil, nil)
	defer q.Close()

	n := q.Push("bye", KindWarning)
	q.Remove(n.ID)

	_, ok := q.Get(n.ID)
	require.True(t, ok, "removal waits for the close delay")

	require.Eventually(t, func() bool {
		_, ok := q.Get(n.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_EmitsShowAndHide(t *testing.T) {
	out := make(chan bus.Notification, 16)
	q := New(Config{ErrorTTL: time.Hour, DefaultTTL: time.Hour}, out, nil)
	defer q.Close()

	n := q.Push("hello", KindInfo)
	ev := <-out
	require.Equal(t, bus.OpShow, ev.Op)
	require.Equal(t, n.ID, ev.ID)
	require.Equal(t, "hello", ev.Text)
	require.Equal(t, "info", ev.Kind)

	q.Remove(n.ID)
	ev = <-out
	require.Equal(t, bus.OpHide, ev.Op)
	require.Equal(t, n.ID, ev.ID)
}

func TestQueue_OverflowHidesOldest(t *testing.T) {
	out := make(chan bus.Notification, 32)
	q := New(Config{ErrorTTL: time.Hour, DefaultTTL: time.Hour}, out, nil)
	defer q.Close()

	var first Notification
	for i := 0; i < 6; i++ {
		n := q.Push(fmt.Sprintf("m%d", i), KindInfo)
		if i == 0 {
			first = n
		}
	}

	var hidden []int64
	for len(out) > 0 {
		ev := <-out
		if ev.Op == bus.OpHide {
			hidden = append(hidden, ev.ID)
		}
	}
	require.Equal(t, []int64{first.ID}, hidden)
}
