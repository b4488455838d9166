package seismic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainName(t *testing.T) {
	require.Equal(t, "Seismic Devnet", ChainName(5124))
	require.Equal(t, "Ethereum Mainnet", ChainName(1))
	require.Equal(t, "Goerli Testnet", ChainName(5))
	require.Equal(t, "Sepolia Testnet", ChainName(11155111))
	require.Equal(t, "Unknown Network (42)", ChainName(42))
}

func TestTargetDescriptor(t *testing.T) {
	require.Equal(t, int64(5124), Target.ID)
	require.Equal(t, "0x1404", Target.HexID())
	require.Equal(t, "SETH", Target.NativeCurrency.Symbol)
	require.Equal(t, uint8(18), Target.NativeCurrency.Decimals)
	require.Equal(t, "https://node-2.seismicdev.net/rpc", Target.RPCURL())
	require.True(t, Target.Testnet)
}

func TestManualSetupInstructions(t *testing.T) {
	txt := ManualSetupInstructions()
	require.True(t, strings.Contains(txt, "Chain ID: 5124"))
	require.True(t, strings.Contains(txt, "RPC URL: https://node-2.seismicdev.net/rpc"))
}

func TestTxURL(t *testing.T) {
	require.Equal(t, "https://explorer-2.seismicdev.net/tx/0xabc", TxURL("0xabc"))
}
