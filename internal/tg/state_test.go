package tg

import (
	"testing"

	"github.com/pvzzle/seismicbot/internal/sealed"

	"github.com/stretchr/testify/require"
)

func TestSession_TransferForm(t *testing.T) {
	st := NewStateStore()
	const chat = int64(7)

	st.Do(chat, func(s *Session) { s.Await(StateAwaitAmount) })
	require.Equal(t, StateAwaitAmount, st.Get(chat).State)

	st.Do(chat, func(s *Session) { s.SetAmount("0.01") })
	st.Do(chat, (*Session).ToggleEncrypt)

	got := st.Get(chat)
	require.Equal(t, StateIdle, got.State)
	require.Equal(t, "0.01", got.Transfer.Amount)
	require.True(t, got.Transfer.Encrypt)

	st.Do(chat, (*Session).TransferSent)
	require.Equal(t, TransferForm{}, st.Get(chat).Transfer)
}

func TestSession_SelectTypeResetsValue(t *testing.T) {
	st := NewStateStore()
	const chat = int64(7)

	st.Do(chat, func(s *Session) {
		s.SelectType(sealed.SUint8)
		s.SetContract("0x" + repeat("a", 40))
		s.SetValue("256")
		s.ValueRejected("suint8 must be an integer between 0 and 255")
	})

	st.Do(chat, func(s *Session) { s.SelectType(sealed.SBool) })

	v := st.Get(chat).Value
	require.Equal(t, sealed.SBool, v.Type)
	require.Empty(t, v.Value)
	require.Empty(t, v.ValidationError)
	require.Equal(t, "0x"+repeat("a", 40), v.Contract)
}

func TestSession_MessageForm(t *testing.T) {
	st := NewStateStore()
	const chat = int64(1)

	em := &sealed.EncryptedMessage{OriginalMessage: "hi"}
	st.Do(chat, func(s *Session) {
		s.SetMessage("hi")
		s.MessageEncrypted(em)
	})
	require.Same(t, em, st.Get(chat).Message.Result)

	// editing the text drops the stale ciphertext
	st.Do(chat, func(s *Session) { s.SetMessage("hello") })
	require.Nil(t, st.Get(chat).Message.Result)
}

func TestStateStore_BeginIsExclusive(t *testing.T) {
	st := NewStateStore()

	require.True(t, st.Begin(1))
	require.False(t, st.Begin(1))
	require.True(t, st.Begin(2))

	st.End(1)
	require.True(t, st.Begin(1))
}

func TestSession_Open(t *testing.T) {
	st := NewStateStore()
	require.Equal(t, TabTransactions, st.Get(3).Tab)

	st.Do(3, func(s *Session) {
		s.Await(StateAwaitMessage)
		s.Open(TabWallet)
	})
	got := st.Get(3)
	require.Equal(t, TabWallet, got.Tab)
	require.Equal(t, StateIdle, got.State)
}
