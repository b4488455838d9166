package ethwatch

import (
	"fmt"
	"math/big"

	"github.com/pvzzle/seismicbot/internal/seismic"
	"github.com/pvzzle/seismicbot/internal/storage"

	"github.com/shopspring/decimal"
)

// WeiToEth converts a wei amount into whole SETH.
func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// FormatBalance renders a balance the way the wallet tab shows it.
func FormatBalance(wei *big.Int) string {
	return WeiToEth(wei).StringFixed(4)
}

// ShortHash turns a 0x hash into 0x12345678...abcdef12.
func ShortHash(h string) string {
	if len(h) <= 20 {
		return h
	}
	return h[:10] + "..." + h[len(h)-8:]
}

func FormatSettled(hash string, status storage.Status, block *uint64) string {
	if status == storage.StatusSuccess {
		return fmt.Sprintf("Transaction %s confirmed in block #%d on %s", ShortHash(hash), derefBlock(block), seismic.Target.Name)
	}
	if block != nil {
		return fmt.Sprintf("Transaction %s failed in block #%d", ShortHash(hash), *block)
	}
	return fmt.Sprintf("Transaction %s failed: no receipt after waiting", ShortHash(hash))
}

func derefBlock(b *uint64) uint64 {
	if b == nil {
		return 0
	}
	return *b
}
