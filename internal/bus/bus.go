package bus

import "time"

type Op int

const (
	OpShow Op = iota
	OpHide
)

// Notification carries a notification lifecycle change to the view.
type Notification struct {
	Op        Op
	ID        int64
	Kind      string
	Text      string
	Timestamp time.Time
}
