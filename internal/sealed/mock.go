package sealed

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Sizes of the mock ciphertexts, in bytes.
const (
	ValueCipherSize   = 32
	PayloadCipherSize = 64
)

const previewLimit = 50

// EncryptedValue is the placeholder result of "encrypting" a typed value.
// Nothing here is real cryptography.
type EncryptedValue struct {
	Type            Type
	OriginalValue   string
	EncodedValue    string
	ContractAddress string
	EncryptedValue  string
	Timestamp       time.Time
	Network         string
	Encryption      string
}

type EncryptedMessage struct {
	OriginalMessage string
	MessageBytes    []byte
	EncryptedData   string
	Timestamp       time.Time
	Network         string
	Encryption      string
	Method          string
}

// RandomHex returns n random bytes as a 0x-prefixed hex string.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random bytes: %w", err)
	}
	return hexutil.Encode(buf), nil
}

func demoSuffix(s string, demo bool) string {
	if demo {
		return s + " (Demo)"
	}
	return s
}

// EncryptValue validates and encodes v, then attaches a random mock ciphertext.
func EncryptValue(t Type, v, contract string, demo bool) (*EncryptedValue, error) {
	encoded, err := Encode(t, v)
	if err != nil {
		return nil, err
	}
	cipher, err := RandomHex(ValueCipherSize)
	if err != nil {
		return nil, err
	}
	return &EncryptedValue{
		Type:            t,
		OriginalValue:   v,
		EncodedValue:    encoded,
		ContractAddress: contract,
		EncryptedValue:  cipher,
		Timestamp:       time.Now(),
		Network:         demoSuffix("Seismic", demo),
		Encryption:      demoSuffix("TDX Secure Enclave", demo),
	}, nil
}

func EncryptMessage(msg string, demo bool) (*EncryptedMessage, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, &ValidationError{Field: "message", Message: "Please enter a message to encrypt"}
	}
	cipher, err := RandomHex(PayloadCipherSize)
	if err != nil {
		return nil, err
	}
	return &EncryptedMessage{
		OriginalMessage: msg,
		MessageBytes:    []byte(msg),
		EncryptedData:   cipher,
		Timestamp:       time.Now(),
		Network:         demoSuffix("Seismic", demo),
		Encryption:      demoSuffix("TDX Secure Enclave", demo),
		Method:          demoSuffix("CSTORE (Encrypted Storage)", demo),
	}, nil
}

// Preview shortens a message to its first 50 characters.
func Preview(msg string) string {
	if utf8.RuneCountInString(msg) <= previewLimit {
		return msg
	}
	return string([]rune(msg)[:previewLimit]) + "..."
}

var MessageTemplates = []string{
	"This is a confidential business message encrypted on Seismic blockchain.",
	"Personal private note stored securely using TDX encryption on Seismic.",
	"Secret voting choice: Option A. This vote is encrypted and anonymous.",
	"API Key: sk_test_123abc. Stored securely with hardware-level encryption.",
}
