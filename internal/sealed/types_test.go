package sealed

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		typ   Type
		value string
		ok    bool
	}{
		{SUint8, "0", true},
		{SUint8, "255", true},
		{SUint8, "256", false},
		{SUint8, "-1", false},
		{SUint8, "abc", false},
		{SUint8, "", false},
		{SUint16, "65535", true},
		{SUint16, "65536", false},
		{SUint32, "4294967295", true},
		{SUint32, "4294967296", false},
		{SAddress, "0x" + strings.Repeat("aB", 20), true},
		{SAddress, "0x" + strings.Repeat("a", 39), false},
		{SAddress, strings.Repeat("a", 42), false},
		{SBool, "true", true},
		{SBool, "false", true},
		{SBool, "True", false},
		{SBool, "1", false},
	}

	for _, tc := range cases {
		err := Validate(tc.typ, tc.value)
		if tc.ok {
			require.NoError(t, err, "%s=%q", tc.typ, tc.value)
		} else {
			require.Error(t, err, "%s=%q", tc.typ, tc.value)
		}
	}
}

func TestValidate_Messages(t *testing.T) {
	err := Validate(SUint8, "256")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "suint8 must be an integer between 0 and 255", vErr.Message)

	err = Validate(Type("suint64"), "1")
	require.EqualError(t, err, "Unknown encrypted type")
}

func TestEncode(t *testing.T) {
	cases := []struct {
		typ   Type
		value string
		want  string
	}{
		{SUint8, "0", "0x00"},
		{SUint8, "255", "0xff"},
		{SUint8, "10", "0x0a"},
		{SUint16, "255", "0x00ff"},
		{SUint16, "65535", "0xffff"},
		{SUint32, "1", "0x00000001"},
		{SUint32, "4294967295", "0xffffffff"},
		{SAddress, "0xABCDEFabcdef0123456789ABCDEFabcdef012345", "0xabcdefabcdef0123456789abcdefabcdef012345"},
		{SBool, "true", "0x01"},
		{SBool, "false", "0x00"},
	}

	for _, tc := range cases {
		got, err := Encode(tc.typ, tc.value)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s=%q", tc.typ, tc.value)

		again, err := Encode(tc.typ, tc.value)
		require.NoError(t, err)
		require.Equal(t, got, again)
	}

	_, err := Encode(SUint16, "70000")
	require.Error(t, err)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" SUINT8 ")
	require.NoError(t, err)
	require.Equal(t, SUint8, typ)

	_, err = ParseType("sint8")
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	info, ok := Lookup(SBool)
	require.True(t, ok)
	require.Equal(t, InputSelect, info.Input)
	require.Len(t, Types, 5)
}
