package tg

import (
	"fmt"
	"strings"

	"github.com/pvzzle/seismicbot/internal/ethwatch"
	"github.com/pvzzle/seismicbot/internal/seismic"
	"github.com/pvzzle/seismicbot/internal/storage"
)

// historyLimit keeps a history message well under Telegram's 4096 characters.
const historyLimit = 10

func statusLabel(st storage.Status) string {
	switch st {
	case storage.StatusPending:
		return "⏳ Pending"
	case storage.StatusSuccess:
		return "✅ Success"
	case storage.StatusFailed:
		return "❌ Failed"
	default:
		return string(st)
	}
}

func shortAddr(a string) string {
	if len(a) <= 10 {
		return a
	}
	return a[:10] + "..."
}

// FormatTransactions renders the transactions partition, newest first.
func FormatTransactions(items []storage.TxRecord) string {
	if len(items) == 0 {
		return "No transactions yet. Send your first transaction to see it here."
	}

	var sb strings.Builder
	sb.WriteString(historyHeader("🕘 Transaction History", len(items)))

	for _, it := range limit(items) {
		icon := "💸"
		if it.Encrypted {
			icon = "🔐"
		}
		badge := ""
		if it.EncryptedType != "" {
			badge = " [" + it.EncryptedType + "]"
		}
		sb.WriteString(fmt.Sprintf("%s %s%s %s\n", icon, ethwatch.ShortHash(it.Hash), badge, statusLabel(it.Status)))
		sb.WriteString(fmt.Sprintf("  To: %s  Amount: %s %s\n", shortAddr(it.To), it.Value, seismic.Symbol))
		sb.WriteString("  " + it.Timestamp)
		if it.BlockNumber != nil {
			sb.WriteString(fmt.Sprintf("  Block: %d", *it.BlockNumber))
		}
		sb.WriteString("\n")
		if it.Encrypted {
			enc := it.EncryptionType
			if enc == "" {
				enc = "Seismic TDX"
			}
			sb.WriteString("  Encryption: " + enc)
			if it.DataSize != "" {
				sb.WriteString("  Data: " + it.DataSize)
			}
			if it.GasUsed != "" {
				sb.WriteString("  Gas: " + it.GasUsed)
			}
			sb.WriteString("\n")
		} else {
			sb.WriteString("  Transparent Transaction\n")
		}
	}
	return sb.String()
}

// FormatMessages renders the message partition, newest first.
func FormatMessages(items []storage.TxRecord) string {
	if len(items) == 0 {
		return "No encrypted messages yet."
	}

	var sb strings.Builder
	sb.WriteString(historyHeader("📨 Message History", len(items)))

	for _, it := range limit(items) {
		sb.WriteString(fmt.Sprintf("🔐 %s %s\n", ethwatch.ShortHash(it.Hash), statusLabel(it.Status)))
		if it.MessagePreview != "" {
			sb.WriteString(fmt.Sprintf("  %q\n", it.MessagePreview))
		}
		sb.WriteString(fmt.Sprintf("  To: %s  %s\n", shortAddr(it.To), it.Timestamp))
	}
	return sb.String()
}

// FormatDetails is the full view of one record.
func FormatDetails(it storage.TxRecord) string {
	kind := "Regular"
	if it.Encrypted {
		kind = "Encrypted"
	}

	lines := []string{
		kind + " Transaction Details",
		"",
		"Transaction Hash: " + it.Hash,
		"Status: " + statusLabel(it.Status),
		"Timestamp: " + it.Timestamp,
		"To Address: " + it.To,
		fmt.Sprintf("Amount: %s %s", it.Value, seismic.Symbol),
	}
	if it.BlockNumber != nil {
		lines = append(lines, fmt.Sprintf("Block Number: %d", *it.BlockNumber))
	}
	if it.GasUsed != "" {
		lines = append(lines, "Gas Used: "+it.GasUsed)
	}
	if it.Encrypted {
		enc := it.EncryptionType
		if enc == "" {
			enc = "Seismic TDX"
		}
		lines = append(lines, "", "🔐 Encryption Information", "Encryption Type: "+enc)
		if it.EncryptedType != "" {
			lines = append(lines, "Data Type: "+it.EncryptedType)
		}
		if it.DataSize != "" {
			lines = append(lines, "Data Size: "+it.DataSize)
		}
		if it.MessagePreview != "" {
			lines = append(lines, "Message Preview: "+it.MessagePreview)
		}
	}
	lines = append(lines,
		"",
		"Network: "+it.Network,
		"Explorer: "+seismic.TxURL(it.Hash),
	)
	return strings.Join(lines, "\n")
}

func historyHeader(title string, total int) string {
	if total > historyLimit {
		return fmt.Sprintf("%s (latest %d of %d)\n\n", title, historyLimit, total)
	}
	return title + "\n\n"
}

func limit(items []storage.TxRecord) []storage.TxRecord {
	if len(items) > historyLimit {
		return items[:historyLimit]
	}
	return items
}
