package tg

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/pvzzle/seismicbot/internal/bus"
	"github.com/pvzzle/seismicbot/internal/client"
	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/sealed"
	"github.com/pvzzle/seismicbot/internal/txflow"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

const (
	cbTabTx     = "tab_tx"
	cbTabMsg    = "tab_msg"
	cbTabWallet = "tab_wallet"

	cbTxRecipient = "tx_recipient"
	cbTxAmount    = "tx_amount"
	cbTxEncrypt   = "tx_encrypt"
	cbTxSend      = "tx_send"
	cbTxHistory   = "tx_history"
	cbTxClear     = "tx_clear"
	cbTxInfo      = "tx_info"
	cbClearAll    = "clear_all"

	cbTypes       = "types"
	cbTypePrefix  = "type:"
	cbValValue    = "val_value"
	cbValContract = "val_contract"
	cbValBool     = "val_bool:"
	cbValEncrypt  = "val_encrypt"
	cbValSend     = "val_send"

	cbMsgWrite   = "msg_write"
	cbTplPrefix  = "tpl:"
	cbMsgTarget  = "msg_target"
	cbMsgEncrypt = "msg_encrypt"
	cbMsgSend    = "msg_send"
	cbMsgHistory = "msg_history"
	cbMsgClear   = "msg_clear"

	cbWConnect    = "w_connect"
	cbWDisconnect = "w_disconnect"
	cbWDemo       = "w_demo"
	cbWExitDemo   = "w_exit_demo"
	cbWRefresh    = "w_refresh"
	cbWSwitch     = "w_switch"
	cbWManual     = "w_manual"
	cbWNext       = "w_next"

	cbNtfHold    = "ntf:hold:"
	cbNtfRelease = "ntf:release:"
	cbNtfClose   = "ntf:close:"
)

// keepOwn is typed instead of an address to fall back to the connected wallet.
const keepOwn = "-"

type shownMessage struct {
	chatID    int64
	messageID int
}

type Service struct {
	bot      *tgbot.Bot
	client   *client.Client
	queue    *notify.Queue
	notifyCh <-chan bus.Notification
	owner    int64

	state *StateStore
	log   *logrus.Entry

	mu       sync.Mutex
	lastChat int64
	shown    map[int64]shownMessage
}

// NewService registers the handlers on b. owner is the chat notifications go to;
// zero means the chat that talked to the bot last.
func NewService(
	b *tgbot.Bot,
	c *client.Client,
	queue *notify.Queue,
	notifyCh <-chan bus.Notification,
	owner int64,
	log *logrus.Entry,
) *Service {
	s := &Service{
		bot:      b,
		client:   c,
		queue:    queue,
		notifyCh: notifyCh,
		owner:    owner,
		state:    NewStateStore(),
		log:      log,
		shown:    make(map[int64]shownMessage),
	}
	s.registerHandlers()
	return s
}

// OwnerOnly drops updates from every chat but owner. A zero owner lets everyone in.
func OwnerOnly(owner int64, log *logrus.Entry) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
			if owner == 0 {
				next(ctx, b, upd)
				return
			}
			if chatID, ok := updateChat(upd); ok && chatID != owner {
				log.WithField("chat_id", chatID).Warn("ignored update from foreign chat")
				return
			}
			next(ctx, b, upd)
		}
	}
}

func updateChat(upd *models.Update) (int64, bool) {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message.Message != nil:
		return upd.CallbackQuery.Message.Message.Chat.ID, true
	}
	return 0, false
}

func (s *Service) registerHandlers() {
	exact := map[string]func(ctx context.Context, b *tgbot.Bot, chatID int64){
		cbTabTx:     s.showTransfer,
		cbTabMsg:    s.showMessages,
		cbTabWallet: s.showWallet,

		cbTxRecipient: s.prompt(StateAwaitRecipient, "Send the recipient address (0x...), or \"-\" for your own wallet:"),
		cbTxAmount:    s.prompt(StateAwaitAmount, "Send the amount in SETH, e.g. 0.01:"),
		cbTxEncrypt:   s.onToggleEncrypt,
		cbTxSend:      s.onSendTransfer,
		cbTxHistory:   s.showTxHistory,
		cbTxClear:     s.onClearTransactions,
		cbTxInfo:      s.prompt(StateAwaitTxHash, "Send the transaction hash (0x...):"),
		cbClearAll:    s.onClearAll,

		cbTypes:       s.showValue,
		cbValValue:    s.onAskValue,
		cbValContract: s.prompt(StateAwaitContract, "Send the contract address (0x...), or \"-\" for your own wallet:"),
		cbValEncrypt:  s.onEncryptValue,
		cbValSend:     s.onSendValue,

		cbMsgWrite:   s.prompt(StateAwaitMessage, "Send the message to encrypt:"),
		cbMsgTarget:  s.prompt(StateAwaitMessageTarget, "Send the target address (0x...), or \"-\" for your own wallet:"),
		cbMsgEncrypt: s.onEncryptMessage,
		cbMsgSend:    s.onSendMessage,
		cbMsgHistory: s.showMsgHistory,
		cbMsgClear:   s.onClearMessages,

		cbWConnect:    s.onConnect,
		cbWDisconnect: s.onDisconnect,
		cbWDemo:       s.onDemo,
		cbWExitDemo:   s.onExitDemo,
		cbWRefresh:    s.onRefresh,
		cbWSwitch:     s.onSwitch,
		cbWManual:     s.onManual,
		cbWNext:       s.onNextAccount,
	}
	for data, fn := range exact {
		s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, data, tgbot.MatchTypeExact, s.callback(func(ctx context.Context, b *tgbot.Bot, chatID int64, _ string) {
			fn(ctx, b, chatID)
		}))
	}

	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbTypePrefix, tgbot.MatchTypePrefix, s.callback(s.onSelectType))
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbValBool, tgbot.MatchTypePrefix, s.callback(s.onSelectBool))
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, cbTplPrefix, tgbot.MatchTypePrefix, s.callback(s.onTemplate))
	s.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "ntf:", tgbot.MatchTypePrefix, s.callback(s.onNotification))

	// Commands go through onAnyText too: handler lookup order is not defined.
	s.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypePrefix, s.onAnyText)
}

// callback unwraps a callback query into its chat and data.
func (s *Service) callback(fn func(ctx context.Context, b *tgbot.Bot, chatID int64, data string)) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
		cb := upd.CallbackQuery
		if cb == nil || cb.Message.Type == models.MaybeInaccessibleMessageTypeInaccessibleMessage {
			return
		}
		_ = s.answerCallback(ctx, b, cb.ID)

		chatID := cb.Message.Message.Chat.ID
		s.touch(chatID)
		fn(ctx, b, chatID, cb.Data)
	}
}

func (s *Service) prompt(st ChatState, text string) func(ctx context.Context, b *tgbot.Bot, chatID int64) {
	return func(ctx context.Context, b *tgbot.Bot, chatID int64) {
		s.state.Do(chatID, func(sess *Session) { sess.Await(st) })
		s.reply(ctx, b, chatID, text)
	}
}

func (s *Service) touch(chatID int64) {
	s.mu.Lock()
	s.lastChat = chatID
	s.mu.Unlock()
}

func (s *Service) notifyChat() int64 {
	if s.owner != 0 {
		return s.owner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChat
}

// StartNotifyLoop mirrors the notification queue into the chat until ctx ends.
func (s *Service) StartNotifyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.notifyCh:
			switch n.Op {
			case bus.OpShow:
				s.showNotification(ctx, n)
			case bus.OpHide:
				s.hideNotification(ctx, n.ID)
			}
		}
	}
}

func (s *Service) showNotification(ctx context.Context, n bus.Notification) {
	chatID := s.notifyChat()
	if chatID == 0 {
		s.log.WithField("notification", n.ID).Debug("no chat to notify yet")
		return
	}

	v := RenderNotification(n)
	msg, err := s.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        v.Text,
		ReplyMarkup: v.Markup,
	})
	if err != nil {
		s.log.WithError(err).Warn("send notification")
		return
	}

	s.mu.Lock()
	s.shown[n.ID] = shownMessage{chatID: chatID, messageID: msg.ID}
	s.mu.Unlock()
}

func (s *Service) hideNotification(ctx context.Context, id int64) {
	s.mu.Lock()
	m, ok := s.shown[id]
	delete(s.shown, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	if _, err := s.bot.DeleteMessage(ctx, &tgbot.DeleteMessageParams{
		ChatID:    m.chatID,
		MessageID: m.messageID,
	}); err != nil {
		s.log.WithError(err).Debug("delete notification")
	}
}

func (s *Service) onNotification(ctx context.Context, b *tgbot.Bot, chatID int64, data string) {
	var (
		action string
		raw    string
	)
	switch {
	case strings.HasPrefix(data, cbNtfHold):
		action, raw = "hold", strings.TrimPrefix(data, cbNtfHold)
	case strings.HasPrefix(data, cbNtfRelease):
		action, raw = "release", strings.TrimPrefix(data, cbNtfRelease)
	case strings.HasPrefix(data, cbNtfClose):
		action, raw = "close", strings.TrimPrefix(data, cbNtfClose)
	default:
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return
	}

	switch action {
	case "hold":
		s.queue.Pause(id)
	case "release":
		if n, ok := s.queue.Get(id); ok {
			s.queue.Resume(id, n.Kind)
		}
	case "close":
		s.queue.Remove(id)
	}
}

func (s *Service) onCommand(ctx context.Context, b *tgbot.Bot, chatID int64, text string) {
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	s.state.Do(chatID, func(sess *Session) { sess.Await(StateIdle) })

	switch cmd {
	case "/start":
		s.reply(ctx, b, chatID, "Seismic wallet: plain and encrypted transactions, encrypted types "+
			"and encrypted messages on the Seismic devnet.\n\nCommands: /tx /msg /wallet /history")
		s.showWallet(ctx, b, chatID)
	case "/tx":
		s.showTransfer(ctx, b, chatID)
	case "/msg":
		s.showMessages(ctx, b, chatID)
	case "/wallet":
		s.showWallet(ctx, b, chatID)
	case "/history":
		s.showTxHistory(ctx, b, chatID)
	default:
		s.reply(ctx, b, chatID, "Unknown command. Use /start to open the menu.")
	}
}

func (s *Service) onAnyText(ctx context.Context, b *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	s.touch(chatID)
	if strings.HasPrefix(text, "/") {
		s.onCommand(ctx, b, chatID, text)
		return
	}

	switch s.state.Get(chatID).State {
	case StateAwaitRecipient:
		addr, ok := s.readAddress(ctx, b, chatID, text)
		if !ok {
			return
		}
		s.state.Do(chatID, func(sess *Session) { sess.SetRecipient(addr) })
		s.showTransfer(ctx, b, chatID)

	case StateAwaitAmount:
		amount := NormalizeAmount(text)
		if _, err := ParseEthToWei(amount); err != nil {
			s.reply(ctx, b, chatID, "Please enter a positive SETH amount, e.g. 0.01.")
			return
		}
		s.state.Do(chatID, func(sess *Session) { sess.SetAmount(amount) })
		s.showTransfer(ctx, b, chatID)

	case StateAwaitValue:
		s.state.Do(chatID, func(sess *Session) {
			sess.SetValue(text)
			if err := sealed.Validate(sess.Value.Type, text); err != nil {
				sess.ValueRejected(err.Error())
			}
		})
		s.showValue(ctx, b, chatID)

	case StateAwaitContract:
		addr, ok := s.readAddress(ctx, b, chatID, text)
		if !ok {
			return
		}
		s.state.Do(chatID, func(sess *Session) { sess.SetContract(addr) })
		s.showValue(ctx, b, chatID)

	case StateAwaitMessage:
		s.state.Do(chatID, func(sess *Session) { sess.SetMessage(text) })
		s.showMessages(ctx, b, chatID)

	case StateAwaitMessageTarget:
		addr, ok := s.readAddress(ctx, b, chatID, text)
		if !ok {
			return
		}
		s.state.Do(chatID, func(sess *Session) { sess.SetMessageTarget(addr) })
		s.showMessages(ctx, b, chatID)

	case StateAwaitTxHash:
		if !IsTxHash(text) {
			s.reply(ctx, b, chatID, "That is not a transaction hash. Expected 0x and 64 hex characters.")
			return
		}
		s.state.Do(chatID, func(sess *Session) { sess.Await(StateIdle) })
		rec, ok := s.client.History.Get(text)
		if !ok {
			s.reply(ctx, b, chatID, "No such transaction in the local history.")
			return
		}
		s.reply(ctx, b, chatID, FormatDetails(rec))

	default:
		s.reply(ctx, b, chatID, "Use /start to open the menu.")
	}
}

// readAddress accepts an address or keepOwn, which maps to "".
func (s *Service) readAddress(ctx context.Context, b *tgbot.Bot, chatID int64, text string) (string, bool) {
	if text == keepOwn {
		return "", true
	}
	if !IsEthAddress(text) {
		s.reply(ctx, b, chatID, "That is not an address. Expected 0x and 40 hex characters, or \"-\".")
		return "", false
	}
	return text, true
}

func (s *Service) onToggleEncrypt(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.state.Do(chatID, (*Session).ToggleEncrypt)
	s.showTransfer(ctx, b, chatID)
}

func (s *Service) onSendTransfer(ctx context.Context, b *tgbot.Bot, chatID int64) {
	if !s.state.Begin(chatID) {
		return
	}
	defer s.state.End(chatID)

	f := s.state.Get(chatID).Transfer
	_, err := s.client.Flow.SendTransfer(ctx, txflow.TransferRequest{
		To:      f.Recipient,
		Amount:  f.Amount,
		Encrypt: f.Encrypt,
	})
	if err == nil {
		s.state.Do(chatID, (*Session).TransferSent)
	}
	s.showTransfer(ctx, b, chatID)
}

func (s *Service) onAskValue(ctx context.Context, b *tgbot.Bot, chatID int64) {
	info, ok := sealed.Lookup(s.state.Get(chatID).Value.Type)
	if !ok {
		s.reply(ctx, b, chatID, "Select an encrypted type first.")
		return
	}
	s.prompt(StateAwaitValue, info.HelpText+"\nSend the value ("+info.Placeholder+"):")(ctx, b, chatID)
}

func (s *Service) onSelectType(ctx context.Context, b *tgbot.Bot, chatID int64, data string) {
	t, err := sealed.ParseType(strings.TrimPrefix(data, cbTypePrefix))
	if err != nil {
		return
	}
	s.state.Do(chatID, func(sess *Session) { sess.SelectType(t) })
	s.showValue(ctx, b, chatID)
}

func (s *Service) onSelectBool(ctx context.Context, b *tgbot.Bot, chatID int64, data string) {
	v := strings.TrimPrefix(data, cbValBool)
	s.state.Do(chatID, func(sess *Session) { sess.SetValue(v) })
	s.showValue(ctx, b, chatID)
}

func (s *Service) onEncryptValue(ctx context.Context, b *tgbot.Bot, chatID int64) {
	f := s.state.Get(chatID).Value
	ev, err := s.client.Flow.EncryptValue(f.Type, f.Value, f.Contract)
	s.state.Do(chatID, func(sess *Session) {
		var ve *sealed.ValidationError
		switch {
		case err == nil:
			sess.ValueEncrypted(ev)
		case errors.As(err, &ve):
			sess.ValueRejected(ve.Message)
		}
	})
	s.showValue(ctx, b, chatID)
}

func (s *Service) onSendValue(ctx context.Context, b *tgbot.Bot, chatID int64) {
	if !s.state.Begin(chatID) {
		return
	}
	defer s.state.End(chatID)

	ev := s.state.Get(chatID).Value.Result
	if _, err := s.client.Flow.SendEncryptedValue(ctx, ev); err == nil {
		s.state.Do(chatID, (*Session).ValueSent)
	}
	s.showValue(ctx, b, chatID)
}

func (s *Service) onTemplate(ctx context.Context, b *tgbot.Bot, chatID int64, data string) {
	i, err := strconv.Atoi(strings.TrimPrefix(data, cbTplPrefix))
	if err != nil || i < 0 || i >= len(sealed.MessageTemplates) {
		return
	}
	s.state.Do(chatID, func(sess *Session) { sess.SetMessage(sealed.MessageTemplates[i]) })
	s.showMessages(ctx, b, chatID)
}

func (s *Service) onEncryptMessage(ctx context.Context, b *tgbot.Bot, chatID int64) {
	em, err := s.client.Flow.EncryptMessage(s.state.Get(chatID).Message.Text)
	if err != nil {
		return
	}
	s.state.Do(chatID, func(sess *Session) { sess.MessageEncrypted(em) })
	s.showMessages(ctx, b, chatID)
}

func (s *Service) onSendMessage(ctx context.Context, b *tgbot.Bot, chatID int64) {
	if !s.state.Begin(chatID) {
		return
	}
	defer s.state.End(chatID)

	f := s.state.Get(chatID).Message
	if _, err := s.client.Flow.SendEncryptedMessage(ctx, f.Result, f.Target); err == nil {
		s.state.Do(chatID, (*Session).MessageSent)
	}
	s.showMessages(ctx, b, chatID)
}

func (s *Service) onClearTransactions(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.Flow.ClearTransactions(ctx)
	s.showTxHistory(ctx, b, chatID)
}

func (s *Service) onClearMessages(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.Flow.ClearMessages(ctx)
	s.showMsgHistory(ctx, b, chatID)
}

func (s *Service) onClearAll(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.Flow.ClearAll(ctx)
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onConnect(ctx context.Context, b *tgbot.Bot, chatID int64) {
	if err := s.client.Connect(ctx); err != nil && !errors.Is(err, client.ErrAlreadyConnected) {
		s.reply(ctx, b, chatID, "Failed to connect wallet: "+err.Error())
	}
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onDisconnect(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.Disconnect()
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onDemo(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.EnterDemo()
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onExitDemo(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.ExitDemo()
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onRefresh(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.Flow.RefreshBalance(ctx)
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onSwitch(ctx context.Context, b *tgbot.Bot, chatID int64) {
	_ = s.client.SwitchNetwork(ctx)
	s.showWallet(ctx, b, chatID)
}

func (s *Service) onManual(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.client.Guard.ShowManualSetup()
}

func (s *Service) onNextAccount(ctx context.Context, b *tgbot.Bot, chatID int64) {
	if err := s.client.NextAccount(); err != nil {
		s.reply(ctx, b, chatID, "Cannot switch account: "+err.Error())
		return
	}
	s.showWallet(ctx, b, chatID)
}

func (s *Service) showTransfer(ctx context.Context, b *tgbot.Bot, chatID int64) {
	sess := s.state.Do(chatID, func(sess *Session) { sess.Open(TabTransactions) })
	s.send(ctx, b, chatID, RenderTransfer(sess, s.client.Status()))
}

func (s *Service) showValue(ctx context.Context, b *tgbot.Bot, chatID int64) {
	sess := s.state.Do(chatID, func(sess *Session) { sess.Tab = TabTransactions })
	s.send(ctx, b, chatID, RenderValue(sess, s.client.Status()))
}

func (s *Service) showMessages(ctx context.Context, b *tgbot.Bot, chatID int64) {
	sess := s.state.Do(chatID, func(sess *Session) { sess.Open(TabMessages) })
	s.send(ctx, b, chatID, RenderMessages(sess, s.client.Status()))
}

func (s *Service) showWallet(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.state.Do(chatID, func(sess *Session) { sess.Open(TabWallet) })
	s.send(ctx, b, chatID, RenderWallet(s.client.Status()))
}

func (s *Service) showTxHistory(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.send(ctx, b, chatID, View{
		Text: FormatTransactions(s.client.History.Transactions()),
		Markup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "🔎 Details", CallbackData: cbTxInfo},
					{Text: "🧹 Clear", CallbackData: cbTxClear},
				},
				tabsRow(TabTransactions),
			},
		},
	})
}

func (s *Service) showMsgHistory(ctx context.Context, b *tgbot.Bot, chatID int64) {
	s.send(ctx, b, chatID, View{
		Text: FormatMessages(s.client.History.Messages()),
		Markup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "🧹 Clear", CallbackData: cbMsgClear}},
				tabsRow(TabMessages),
			},
		},
	})
}

func (s *Service) send(ctx context.Context, b *tgbot.Bot, chatID int64, v View) {
	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        v.Text,
		ReplyMarkup: v.Markup,
	})
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("send view")
	}
}

func (s *Service) reply(ctx context.Context, b *tgbot.Bot, chatID int64, text string) {
	_, _ = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

func (s *Service) answerCallback(ctx context.Context, b *tgbot.Bot, callbackID string) error {
	_, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	return err
}
