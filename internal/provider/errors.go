package provider

import (
	"errors"
	"fmt"
	"strings"
)

// EIP-1193 / EIP-3326 error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
)

// Error is a provider RPC error.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Code extracts the provider error code from err, or 0.
func Code(err error) int {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return 0
}

// IsUnrecognizedChain reports whether err asks the caller to add the chain first.
func IsUnrecognizedChain(err error) bool {
	if err == nil {
		return false
	}
	return Code(err) == CodeUnrecognizedChain || strings.Contains(err.Error(), "Unrecognized chain ID")
}
