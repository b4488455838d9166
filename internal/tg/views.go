package tg

import (
	"fmt"
	"strings"

	"github.com/pvzzle/seismicbot/internal/bus"
	"github.com/pvzzle/seismicbot/internal/client"
	"github.com/pvzzle/seismicbot/internal/netguard"
	"github.com/pvzzle/seismicbot/internal/notify"
	"github.com/pvzzle/seismicbot/internal/sealed"
	"github.com/pvzzle/seismicbot/internal/seismic"

	"github.com/go-telegram/bot/models"
)

// View is one rendered screen.
type View struct {
	Text   string
	Markup *models.InlineKeyboardMarkup
}

func tabsRow(active Tab) []models.InlineKeyboardButton {
	label := func(t Tab, text string) string {
		if t == active {
			return "• " + text
		}
		return text
	}
	return []models.InlineKeyboardButton{
		{Text: label(TabTransactions, "💸 Transactions"), CallbackData: cbTabTx},
		{Text: label(TabMessages, "🔐 Messages"), CallbackData: cbTabMsg},
		{Text: label(TabWallet, "👛 Wallet"), CallbackData: cbTabWallet},
	}
}

func orDash(s, dash string) string {
	if strings.TrimSpace(s) == "" {
		return dash
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

func modeLine(st client.Status) string {
	if st.Mode == client.ModeDisconnected {
		return "Wallet: not connected"
	}
	return fmt.Sprintf("Wallet: %s | %s %s", st.Address, st.Balance, seismic.Symbol)
}

// RenderTransfer is the Transactions tab.
func RenderTransfer(sess Session, st client.Status) View {
	f := sess.Transfer
	lines := []string{
		"💸 Send Transaction",
		modeLine(st),
		"",
		"Recipient: " + orDash(f.Recipient, "(your own wallet)"),
		fmt.Sprintf("Amount: %s %s", orDash(f.Amount, "-"), seismic.Symbol),
		"Encryption: " + onOff(f.Encrypt),
	}
	if f.Encrypt {
		lines = append(lines, "A random 64 byte payload is attached, gas limit 100000.")
	}

	send := "🚀 Send Transaction"
	if f.Encrypt {
		send = "🚀 Send Encrypted Transaction"
	}
	if sess.Busy {
		send = "⏳ Sending..."
	}

	return View{
		Text: strings.Join(lines, "\n"),
		Markup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "Set recipient", CallbackData: cbTxRecipient},
					{Text: "Set amount", CallbackData: cbTxAmount},
				},
				{{Text: "🔒 Encrypt: " + onOff(f.Encrypt), CallbackData: cbTxEncrypt}},
				{{Text: send, CallbackData: cbTxSend}},
				{{Text: "🔐 Encrypted types", CallbackData: cbTypes}},
				{
					{Text: "🕘 History", CallbackData: cbTxHistory},
					{Text: "🔎 Details", CallbackData: cbTxInfo},
					{Text: "🧹 Clear", CallbackData: cbTxClear},
				},
				tabsRow(TabTransactions),
			},
		},
	}
}

// RenderValue is the typed value form under the Transactions tab.
func RenderValue(sess Session, st client.Status) View {
	f := sess.Value

	lines := []string{"🔐 Encrypted Types", modeLine(st), ""}

	typeRow := make([]models.InlineKeyboardButton, 0, len(sealed.Types))
	for _, info := range sealed.Types {
		text := string(info.Type)
		if info.Type == f.Type {
			text = "• " + text
		}
		typeRow = append(typeRow, models.InlineKeyboardButton{Text: text, CallbackData: cbTypePrefix + string(info.Type)})
	}
	kb := [][]models.InlineKeyboardButton{typeRow[:3], typeRow[3:]}

	info, ok := sealed.Lookup(f.Type)
	if !ok {
		lines = append(lines, "Select an encrypted type.")
		kb = append(kb, []models.InlineKeyboardButton{{Text: "⬅ Back", CallbackData: cbTabTx}})
		return View{Text: strings.Join(lines, "\n"), Markup: &models.InlineKeyboardMarkup{InlineKeyboard: kb}}
	}

	lines = append(lines,
		"Type: "+info.Label,
		info.HelpText,
		"Value: "+orDash(f.Value, "("+info.Placeholder+")"),
		"Contract: "+orDash(f.Contract, "(your own wallet)"),
	)
	if f.ValidationError != "" {
		lines = append(lines, "", "⚠️ "+f.ValidationError)
	}
	if r := f.Result; r != nil {
		lines = append(lines,
			"",
			"Encrypted Result",
			"Original Value: "+r.OriginalValue,
			"Encoded Value: "+r.EncodedValue,
			"Encrypted Value: "+r.EncryptedValue,
			"Contract: "+r.ContractAddress,
			"Encryption: "+r.Encryption,
			"Network: "+r.Network,
		)
	}

	if info.Input == sealed.InputSelect {
		kb = append(kb, []models.InlineKeyboardButton{
			{Text: "true", CallbackData: cbValBool + "true"},
			{Text: "false", CallbackData: cbValBool + "false"},
		})
	} else {
		kb = append(kb, []models.InlineKeyboardButton{{Text: "Set value", CallbackData: cbValValue}})
	}
	kb = append(kb,
		[]models.InlineKeyboardButton{{Text: "Set contract", CallbackData: cbValContract}},
		[]models.InlineKeyboardButton{{Text: "🔐 Encrypt " + string(f.Type), CallbackData: cbValEncrypt}},
	)
	if f.Result != nil {
		send := "🚀 Send Encrypted Transaction"
		if sess.Busy {
			send = "⏳ Sending..."
		}
		kb = append(kb, []models.InlineKeyboardButton{{Text: send, CallbackData: cbValSend}})
	}
	kb = append(kb, []models.InlineKeyboardButton{{Text: "⬅ Back", CallbackData: cbTabTx}})

	return View{Text: strings.Join(lines, "\n"), Markup: &models.InlineKeyboardMarkup{InlineKeyboard: kb}}
}

// RenderMessages is the Encrypted Messages tab.
func RenderMessages(sess Session, st client.Status) View {
	f := sess.Message
	lines := []string{
		"🔐 Encrypted Messages",
		modeLine(st),
		"",
		"Message: " + orDash(sealed.Preview(f.Text), "-"),
		"Target: " + orDash(f.Target, "(your own wallet)"),
	}
	if r := f.Result; r != nil {
		lines = append(lines,
			"",
			"Encrypted Message",
			"Original: "+sealed.Preview(r.OriginalMessage),
			"Encrypted Data: "+r.EncryptedData,
			"Method: "+r.Method,
			"Encryption: "+r.Encryption,
			"Network: "+r.Network,
		)
	}

	tpl := make([]models.InlineKeyboardButton, 0, len(sealed.MessageTemplates))
	for i := range sealed.MessageTemplates {
		tpl = append(tpl, models.InlineKeyboardButton{Text: fmt.Sprintf("Template %d", i+1), CallbackData: fmt.Sprintf("%s%d", cbTplPrefix, i)})
	}

	kb := [][]models.InlineKeyboardButton{
		{
			{Text: "✍️ Write message", CallbackData: cbMsgWrite},
			{Text: "Set target", CallbackData: cbMsgTarget},
		},
		tpl,
		{{Text: "🔐 Encrypt message", CallbackData: cbMsgEncrypt}},
	}
	if f.Result != nil {
		send := "🚀 Send Encrypted Message"
		if sess.Busy {
			send = "⏳ Sending..."
		}
		kb = append(kb, []models.InlineKeyboardButton{{Text: send, CallbackData: cbMsgSend}})
	}
	kb = append(kb,
		[]models.InlineKeyboardButton{
			{Text: "🕘 History", CallbackData: cbMsgHistory},
			{Text: "🧹 Clear", CallbackData: cbMsgClear},
		},
		tabsRow(TabMessages),
	)

	return View{Text: strings.Join(lines, "\n"), Markup: &models.InlineKeyboardMarkup{InlineKeyboard: kb}}
}

func networkLine(st client.Status) string {
	switch st.NetworkState {
	case netguard.OnTarget:
		return "Network: ✅ " + seismic.Target.Name
	case netguard.OffTarget:
		name := "Unknown Network"
		if st.Network != nil {
			name = st.Network.Name
		}
		return fmt.Sprintf("Network: ⚠️ %s (switch to %s)", name, seismic.Target.Name)
	case netguard.Checking:
		return "Network: checking..."
	default:
		return "Network: -"
	}
}

// RenderWallet is the Wallet & Network tab.
func RenderWallet(st client.Status) View {
	lines := []string{
		"👛 Wallet & Network",
		"",
		"Status: " + string(st.Mode),
	}

	var kb [][]models.InlineKeyboardButton
	switch st.Mode {
	case client.ModeDisconnected:
		lines = append(lines, "Connect the configured wallet, or try the demo.")
		kb = append(kb, []models.InlineKeyboardButton{
			{Text: "🔌 Connect wallet", CallbackData: cbWConnect},
			{Text: "🎮 Demo mode", CallbackData: cbWDemo},
		})
	case client.ModeDemo:
		lines = append(lines,
			"Address: "+st.Address,
			fmt.Sprintf("Balance: %s %s", st.Balance, seismic.Symbol),
			"Provider: "+st.Provider,
		)
		kb = append(kb, []models.InlineKeyboardButton{
			{Text: "🔄 Refresh", CallbackData: cbWRefresh},
			{Text: "Exit demo", CallbackData: cbWExitDemo},
		})
	default:
		lines = append(lines,
			"Address: "+st.Address,
			fmt.Sprintf("Balance: %s %s", st.Balance, seismic.Symbol),
			"Provider: "+st.Provider,
			networkLine(st),
		)
		if st.CanSwitchIndex {
			lines = append(lines, fmt.Sprintf("Account index: %d", st.AccountIndex))
		}
		if st.NetworkState == netguard.OffTarget && st.SwitchAttempted {
			lines = append(lines, "Automatic switch did not complete. Switch manually or add the network yourself.")
		}

		row := []models.InlineKeyboardButton{
			{Text: "🔄 Refresh", CallbackData: cbWRefresh},
			{Text: "Disconnect", CallbackData: cbWDisconnect},
		}
		kb = append(kb, row)
		if st.NetworkState == netguard.OffTarget {
			kb = append(kb, []models.InlineKeyboardButton{
				{Text: "🔀 Switch to " + seismic.Target.Name, CallbackData: cbWSwitch},
				{Text: "Manual setup", CallbackData: cbWManual},
			})
		}
		if st.CanSwitchIndex {
			kb = append(kb, []models.InlineKeyboardButton{{Text: "Next account", CallbackData: cbWNext}})
		}
	}

	kb = append(kb,
		[]models.InlineKeyboardButton{
			{Text: "🚰 Get Test Tokens", URL: seismic.FaucetURL},
			{Text: "🔭 Explorer", URL: seismic.ExplorerURL},
		},
		[]models.InlineKeyboardButton{
			{Text: "📚 Docs", URL: seismic.DocsURL},
			{Text: "🧭 Guide", URL: seismic.DevnetDocsURL},
		},
		[]models.InlineKeyboardButton{{Text: "🗑 Clear all history", CallbackData: cbClearAll}},
		tabsRow(TabWallet),
	)

	return View{Text: strings.Join(lines, "\n"), Markup: &models.InlineKeyboardMarkup{InlineKeyboard: kb}}
}

func kindIcon(kind string) string {
	switch notify.Kind(kind) {
	case notify.KindSuccess:
		return "✅"
	case notify.KindError:
		return "❌"
	case notify.KindWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// RenderNotification renders a shown notification with its hold and close controls.
func RenderNotification(n bus.Notification) View {
	id := fmt.Sprint(n.ID)
	return View{
		Text: kindIcon(n.Kind) + " " + n.Text,
		Markup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "⏸ Hold", CallbackData: cbNtfHold + id},
					{Text: "▶ Release", CallbackData: cbNtfRelease + id},
					{Text: "✕", CallbackData: cbNtfClose + id},
				},
			},
		},
	}
}
