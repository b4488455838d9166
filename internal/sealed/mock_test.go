package sealed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptValue(t *testing.T) {
	res, err := EncryptValue(SBool, "true", "0x1234567890123456789012345678901234567890", false)
	require.NoError(t, err)
	require.Equal(t, "0x01", res.EncodedValue)
	require.Equal(t, "Seismic", res.Network)
	require.Equal(t, "TDX Secure Enclave", res.Encryption)
	require.Len(t, res.EncryptedValue, 2+2*ValueCipherSize)
	require.True(t, strings.HasPrefix(res.EncryptedValue, "0x"))
}

func TestEncryptValue_Demo(t *testing.T) {
	res, err := EncryptValue(SUint16, "255", "", true)
	require.NoError(t, err)
	require.Equal(t, "0x00ff", res.EncodedValue)
	require.Equal(t, "Seismic (Demo)", res.Network)
}

func TestEncryptValue_Invalid(t *testing.T) {
	res, err := EncryptValue(SUint8, "256", "", false)
	require.Error(t, err)
	require.Nil(t, res)
	require.Contains(t, err.Error(), "0 and 255")
}

func TestEncryptMessage(t *testing.T) {
	res, err := EncryptMessage("hello", false)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), res.MessageBytes)
	require.Len(t, res.EncryptedData, 2+2*PayloadCipherSize)
	require.Equal(t, "CSTORE (Encrypted Storage)", res.Method)

	_, err = EncryptMessage("   ", false)
	require.Error(t, err)
}

func TestRandomHex_Differs(t *testing.T) {
	a, err := RandomHex(32)
	require.NoError(t, err)
	b, err := RandomHex(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short", Preview("short"))

	long := strings.Repeat("x", 60)
	require.Equal(t, strings.Repeat("x", 50)+"...", Preview(long))

	exact := strings.Repeat("y", 50)
	require.Equal(t, exact, Preview(exact))
}
