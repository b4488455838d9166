package ethwatch

import (
	"math/big"
	"strings"
	"testing"

	"github.com/pvzzle/seismicbot/internal/storage"
)

func TestWeiToEth(t *testing.T) {
	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	if got := WeiToEth(oneEth).String(); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}

	half := new(big.Int).Div(oneEth, big.NewInt(2))
	if got := WeiToEth(half).String(); got != "0.5" {
		t.Fatalf("expected 0.5, got %q", got)
	}

	if !WeiToEth(nil).IsZero() {
		t.Fatalf("expected zero for nil")
	}
}

func TestFormatBalance(t *testing.T) {
	wei, _ := new(big.Int).SetString("1234567890000000000", 10)
	if got := FormatBalance(wei); got != "1.2346" {
		t.Fatalf("expected 1.2346, got %q", got)
	}
}

func TestShortHash(t *testing.T) {
	h := "0x" + strings.Repeat("12345678", 8)
	if got := ShortHash(h); got != "0x12345678...12345678" {
		t.Fatalf("unexpected short hash %q", got)
	}
	if got := ShortHash("0xabc"); got != "0xabc" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestFormatSettled(t *testing.T) {
	hash := "0x" + strings.Repeat("11", 32)
	block := uint64(123)

	txt := FormatSettled(hash, storage.StatusSuccess, &block)
	if !strings.Contains(txt, "#123") || !strings.Contains(txt, "confirmed") {
		t.Fatalf("unexpected text: %s", txt)
	}

	txt = FormatSettled(hash, storage.StatusFailed, nil)
	if !strings.Contains(txt, "no receipt") {
		t.Fatalf("unexpected text: %s", txt)
	}
}
