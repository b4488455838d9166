package sealed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Type string

const (
	SUint8   Type = "suint8"
	SUint16  Type = "suint16"
	SUint32  Type = "suint32"
	SAddress Type = "saddress"
	SBool    Type = "sbool"
)

// InputKind tells a form how to collect a value for a Type.
type InputKind string

const (
	InputNumber InputKind = "number"
	InputText   InputKind = "text"
	InputSelect InputKind = "select"
)

type TypeInfo struct {
	Type        Type
	Label       string
	Placeholder string
	HelpText    string
	Input       InputKind
}

// Types lists the supported encrypted types in display order.
var Types = []TypeInfo{
	{
		Type:        SUint8,
		Label:       "suint8 - Encrypted 8-bit Integer",
		Placeholder: "Enter number (0-255)",
		HelpText:    "suint8: Encrypted 8-bit unsigned integer (0 to 255)",
		Input:       InputNumber,
	},
	{
		Type:        SUint16,
		Label:       "suint16 - Encrypted 16-bit Integer",
		Placeholder: "Enter number (0-65535)",
		HelpText:    "suint16: Encrypted 16-bit unsigned integer (0 to 65,535)",
		Input:       InputNumber,
	},
	{
		Type:        SUint32,
		Label:       "suint32 - Encrypted 32-bit Integer",
		Placeholder: "Enter number (0-4294967295)",
		HelpText:    "suint32: Encrypted 32-bit unsigned integer (0 to 4,294,967,295)",
		Input:       InputNumber,
	},
	{
		Type:        SAddress,
		Label:       "saddress - Encrypted Address",
		Placeholder: "0x742d35Cc6634C0532925a3b8D0C9e67b6d7d4b4b",
		HelpText:    "saddress: Encrypted Ethereum address (42 characters starting with 0x)",
		Input:       InputText,
	},
	{
		Type:        SBool,
		Label:       "sbool - Encrypted Boolean",
		Placeholder: "true or false",
		HelpText:    "sbool: Encrypted boolean value (true or false)",
		Input:       InputSelect,
	},
}

func Lookup(t Type) (TypeInfo, bool) {
	for _, info := range Types {
		if info.Type == t {
			return info, true
		}
	}
	return TypeInfo{}, false
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Lookup(t); !ok {
		return "", &ValidationError{Field: "type", Message: "Unknown encrypted type"}
	}
	return t, nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var reAddress = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsAddress reports whether s is 0x followed by exactly 40 hex characters.
func IsAddress(s string) bool {
	return reAddress.MatchString(s)
}

var uintBits = map[Type]int{
	SUint8:  8,
	SUint16: 16,
	SUint32: 32,
}

var rangeMessages = map[Type]string{
	SUint8:  "suint8 must be an integer between 0 and 255",
	SUint16: "suint16 must be an integer between 0 and 65,535",
	SUint32: "suint32 must be an integer between 0 and 4,294,967,295",
}

// Validate returns a *ValidationError when v does not fit t.
func Validate(t Type, v string) error {
	switch t {
	case SUint8, SUint16, SUint32:
		if _, err := parseUint(t, v); err != nil {
			return err
		}
		return nil
	case SAddress:
		if !IsAddress(v) {
			return &ValidationError{Field: "value", Message: "saddress must be a valid Ethereum address (0x followed by 40 hex characters)"}
		}
		return nil
	case SBool:
		if v != "true" && v != "false" {
			return &ValidationError{Field: "value", Message: `sbool must be either "true" or "false"`}
		}
		return nil
	default:
		return &ValidationError{Field: "type", Message: "Unknown encrypted type"}
	}
}

// Encode renders an already valid value in its fixed-width form.
func Encode(t Type, v string) (string, error) {
	if err := Validate(t, v); err != nil {
		return "", err
	}
	switch t {
	case SUint8, SUint16, SUint32:
		n, _ := parseUint(t, v)
		width := uintBits[t] / 4
		return fmt.Sprintf("0x%0*x", width, n), nil
	case SAddress:
		return strings.ToLower(v), nil
	case SBool:
		if v == "true" {
			return "0x01", nil
		}
		return "0x00", nil
	}
	return "", &ValidationError{Field: "type", Message: "Unknown encrypted type"}
}

func parseUint(t Type, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, uintBits[t])
	if err != nil {
		return 0, &ValidationError{Field: "value", Message: rangeMessages[t]}
	}
	return n, nil
}
