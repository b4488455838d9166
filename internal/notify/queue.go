package notify

import (
	"sync"
	"time"

	"github.com/pvzzle/seismicbot/internal/bus"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// MaxVisible is how many notifications the queue keeps.
const MaxVisible = 5

type Notification struct {
	ID        int64
	Message   string
	Kind      Kind
	Timestamp time.Time
}

type Config struct {
	ErrorTTL   time.Duration
	DefaultTTL time.Duration
	// CloseDelay defers the actual removal after Remove, for exit transitions.
	CloseDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		ErrorTTL:   10 * time.Second,
		DefaultTTL: 5 * time.Second,
		CloseDelay: 300 * time.Millisecond,
	}
}

// Queue is a bounded, newest-first list of notifications with auto-dismiss timers.
type Queue struct {
	mu     sync.Mutex
	cfg    Config
	items  []Notification
	timers map[int64]*time.Timer
	lastID int64
	closed bool

	out chan<- bus.Notification
	log *logrus.Entry
	now func() time.Time
}

// New creates a queue. out may be nil when nobody renders notifications.
func New(cfg Config, out chan<- bus.Notification, log *logrus.Entry) *Queue {
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = 10 * time.Second
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Second
	}
	return &Queue{
		cfg:    cfg,
		timers: make(map[int64]*time.Timer),
		out:    out,
		log:    log,
		now:    time.Now,
	}
}

func (q *Queue) ttl(kind Kind) time.Duration {
	if kind == KindError {
		return q.cfg.ErrorTTL
	}
	return q.cfg.DefaultTTL
}

// Push adds a notification at the head and schedules its removal.
func (q *Queue) Push(message string, kind Kind) Notification {
	q.mu.Lock()

	now := q.now()
	id := now.UnixMilli()
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id

	n := Notification{ID: id, Message: message, Kind: kind, Timestamp: now}

	q.items = append([]Notification{n}, q.items...)
	var dropped []Notification
	if len(q.items) > MaxVisible {
		dropped = append(dropped, q.items[MaxVisible:]...)
		q.items = q.items[:MaxVisible:MaxVisible]
	}
	for _, d := range dropped {
		q.stopTimer(d.ID)
	}
	if !q.closed {
		q.schedule(id, kind)
	}
	q.mu.Unlock()

	q.emit(bus.Notification{Op: bus.OpShow, ID: n.ID, Kind: string(n.Kind), Text: n.Message, Timestamp: n.Timestamp})
	for _, d := range dropped {
		q.emit(bus.Notification{Op: bus.OpHide, ID: d.ID})
	}
	return n
}

// Remove cancels the timer of id and drops it, after CloseDelay when configured.
func (q *Queue) Remove(id int64) {
	q.mu.Lock()
	q.stopTimer(id)
	delay := q.cfg.CloseDelay
	q.mu.Unlock()

	if delay <= 0 {
		q.drop(id)
		return
	}
	time.AfterFunc(delay, func() { q.drop(id) })
}

// Pause cancels the pending auto-dismiss of id.
func (q *Queue) Pause(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopTimer(id)
}

// Resume restarts a full-length timer for id, not the remaining time.
func (q *Queue) Resume(id int64, kind Kind) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.index(id) < 0 {
		return
	}
	q.stopTimer(id)
	q.schedule(id, kind)
}

func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Get(id int64) (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.index(id); i >= 0 {
		return q.items[i], true
	}
	return Notification{}, false
}

// Paused reports whether id is listed without a running timer.
func (q *Queue) Paused(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, running := q.timers[id]
	return q.index(id) >= 0 && !running
}

// Close stops every timer. Listed notifications stay in place.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for id := range q.timers {
		q.stopTimer(id)
	}
}

func (q *Queue) drop(id int64) {
	q.mu.Lock()
	i := q.index(id)
	if i < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:i:i], q.items[i+1:]...)
	delete(q.timers, id)
	q.mu.Unlock()

	q.emit(bus.Notification{Op: bus.OpHide, ID: id})
}

func (q *Queue) schedule(id int64, kind Kind) {
	var t *time.Timer
	t = time.AfterFunc(q.ttl(kind), func() {
		q.mu.Lock()
		// a newer timer may have replaced this one
		current, ok := q.timers[id]
		q.mu.Unlock()
		if !ok || current != t {
			return
		}
		q.drop(id)
	})
	q.timers[id] = t
}

func (q *Queue) stopTimer(id int64) {
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
}

func (q *Queue) index(id int64) int {
	for i, n := range q.items {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) emit(n bus.Notification) {
	if q.out == nil {
		return
	}
	select {
	case q.out <- n:
	default:
		if q.log != nil {
			q.log.WithField("id", n.ID).Warn("notification channel full, dropping event")
		}
	}
}
