package txflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pvzzle/seismicbot/internal/provider"
	"github.com/pvzzle/seismicbot/internal/seismic"
)

var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrWrongNetwork        = errors.New("not on the Seismic network")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNothingEncrypted    = errors.New("nothing encrypted yet")
)

// ValidationError is raised before anything reaches the wallet.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type Failure int

const (
	FailureOther Failure = iota
	FailureInsufficientFunds
	FailureUserRejected
	FailureNetwork
)

func (f Failure) String() string {
	switch f {
	case FailureInsufficientFunds:
		return "insufficient funds"
	case FailureUserRejected:
		return "user rejected"
	case FailureNetwork:
		return "network"
	default:
		return "other"
	}
}

// Classify sorts a wallet or RPC error by its message.
func Classify(err error) Failure {
	if err == nil {
		return FailureOther
	}
	if provider.Code(err) == provider.CodeUserRejected {
		return FailureUserRejected
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return FailureInsufficientFunds
	case strings.Contains(msg, "user rejected"):
		return FailureUserRejected
	case strings.Contains(msg, "network"):
		return FailureNetwork
	default:
		return FailureOther
	}
}

// failureMessage renders err for the user. prefix is used when nothing more specific applies.
func failureMessage(err error, prefix string) string {
	switch Classify(err) {
	case FailureInsufficientFunds:
		return fmt.Sprintf(`Insufficient funds! You need more %s tokens to complete this transaction. Click the "Get Test Tokens" button to get free tokens from the faucet.`, seismic.Symbol)
	case FailureUserRejected:
		return "Transaction was cancelled by user."
	case FailureNetwork:
		return fmt.Sprintf("Network error: %s. Please check your connection to Seismic network.", err)
	default:
		return prefix + err.Error()
	}
}
