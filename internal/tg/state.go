package tg

import (
	"sync"

	"github.com/pvzzle/seismicbot/internal/sealed"
)

type Tab string

const (
	TabTransactions Tab = "transactions"
	TabMessages     Tab = "messages"
	TabWallet       Tab = "wallet"
)

// ChatState tells the text handler what the next plain message means.
type ChatState int

const (
	StateIdle ChatState = iota
	StateAwaitRecipient
	StateAwaitAmount
	StateAwaitValue
	StateAwaitContract
	StateAwaitMessage
	StateAwaitMessageTarget
	StateAwaitTxHash
)

type TransferForm struct {
	Recipient string
	Amount    string
	Encrypt   bool
}

type ValueForm struct {
	Type            sealed.Type
	Value           string
	Contract        string
	ValidationError string
	Result          *sealed.EncryptedValue
}

type MessageForm struct {
	Text   string
	Target string
	Result *sealed.EncryptedMessage
}

// Session is the per-chat application state. It only changes through the
// transition methods below, applied via StateStore.Do.
type Session struct {
	Tab      Tab
	State    ChatState
	Transfer TransferForm
	Value    ValueForm
	Message  MessageForm
	Busy     bool
}

func (s *Session) Open(tab Tab) {
	s.Tab = tab
	s.State = StateIdle
}

func (s *Session) Await(st ChatState) { s.State = st }

func (s *Session) SetRecipient(addr string) {
	s.Transfer.Recipient = addr
	s.State = StateIdle
}

func (s *Session) SetAmount(amount string) {
	s.Transfer.Amount = amount
	s.State = StateIdle
}

func (s *Session) ToggleEncrypt() { s.Transfer.Encrypt = !s.Transfer.Encrypt }

func (s *Session) TransferSent() { s.Transfer = TransferForm{} }

// SelectType switches the encrypted type; everything typed for the old one is dropped.
func (s *Session) SelectType(t sealed.Type) {
	s.Value = ValueForm{Type: t, Contract: s.Value.Contract}
	s.State = StateIdle
}

func (s *Session) SetValue(v string) {
	s.Value.Value = v
	s.Value.ValidationError = ""
	s.Value.Result = nil
	s.State = StateIdle
}

func (s *Session) SetContract(addr string) {
	s.Value.Contract = addr
	s.State = StateIdle
}

func (s *Session) ValueRejected(msg string) {
	s.Value.ValidationError = msg
	s.Value.Result = nil
}

func (s *Session) ValueEncrypted(ev *sealed.EncryptedValue) {
	s.Value.ValidationError = ""
	s.Value.Result = ev
}

func (s *Session) ValueSent() { s.Value = ValueForm{} }

func (s *Session) SetMessage(text string) {
	s.Message.Text = text
	s.Message.Result = nil
	s.State = StateIdle
}

func (s *Session) SetMessageTarget(addr string) {
	s.Message.Target = addr
	s.State = StateIdle
}

func (s *Session) MessageEncrypted(em *sealed.EncryptedMessage) { s.Message.Result = em }

func (s *Session) MessageSent() { s.Message = MessageForm{} }

// Begin marks a submission in flight. It returns false if one already is.
func (s *Session) Begin() bool {
	if s.Busy {
		return false
	}
	s.Busy = true
	return true
}

func (s *Session) End() { s.Busy = false }

type StateStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStateStore() *StateStore {
	return &StateStore{sessions: make(map[int64]*Session)}
}

// Do applies fn to the session of chatID under the store lock.
func (s *StateStore) Do(chatID int64, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &Session{Tab: TabTransactions}
		s.sessions[chatID] = sess
	}
	fn(sess)
	return *sess
}

// Get returns a copy of the session of chatID.
func (s *StateStore) Get(chatID int64) Session {
	return s.Do(chatID, func(*Session) {})
}

// Begin reserves chatID for one submission; see Session.Begin.
func (s *StateStore) Begin(chatID int64) bool {
	var ok bool
	s.Do(chatID, func(sess *Session) { ok = sess.Begin() })
	return ok
}

func (s *StateStore) End(chatID int64) {
	s.Do(chatID, (*Session).End)
}
