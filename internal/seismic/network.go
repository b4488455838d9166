package seismic

import (
	"fmt"
	"math/big"
)

// ChainID of the Seismic devnet.
const ChainID int64 = 5124

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type Explorer struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ChainParams is the descriptor handed to wallet_addEthereumChain.
type ChainParams struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Network        string         `json:"network"`
	NativeCurrency NativeCurrency `json:"nativeCurrency"`
	RPCURLs        []string       `json:"rpcUrls"`
	Explorer       Explorer       `json:"blockExplorer"`
	Testnet        bool           `json:"testnet"`
}

func (p ChainParams) BigID() *big.Int { return big.NewInt(p.ID) }

// HexID returns the chain id in the 0x-prefixed form wallet RPCs expect.
func (p ChainParams) HexID() string { return fmt.Sprintf("0x%x", p.ID) }

func (p ChainParams) RPCURL() string {
	if len(p.RPCURLs) == 0 {
		return ""
	}
	return p.RPCURLs[0]
}

var Target = ChainParams{
	ID:      ChainID,
	Name:    "Seismic Devnet",
	Network: "seismic-devnet",
	NativeCurrency: NativeCurrency{
		Name:     "Seismic ETH",
		Symbol:   "SETH",
		Decimals: 18,
	},
	RPCURLs: []string{"https://node-2.seismicdev.net/rpc"},
	Explorer: Explorer{
		Name: "Seismic Explorer",
		URL:  "https://explorer-2.seismicdev.net/",
	},
	Testnet: true,
}

const (
	FaucetURL     = "https://faucet-2.seismicdev.net/"
	ExplorerURL   = "https://explorer-2.seismicdev.net/"
	DocsURL       = "https://docs.seismic.systems/"
	DevnetDocsURL = "https://docs.seismic.systems/appendix/devnet"
)

// Symbol is the native currency ticker used in user-facing text.
const Symbol = "SETH"

// DemoAddress stands in for the wallet address while demo mode is active.
const DemoAddress = "0x1234567890123456789012345678901234567890"

var knownChains = map[int64]string{
	ChainID:  "Seismic Devnet",
	1:        "Ethereum Mainnet",
	5:        "Goerli Testnet",
	11155111: "Sepolia Testnet",
}

// ChainName maps a chain id to a human readable network name.
func ChainName(id int64) string {
	if name, ok := knownChains[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Network (%d)", id)
}

func TxURL(hash string) string {
	return ExplorerURL + "tx/" + hash
}

func ManualSetupInstructions() string {
	return fmt.Sprintf(`Manual Network Setup Instructions:
1. Open your wallet (MetaMask, etc.)
2. Go to Settings > Networks > Add Network
3. Enter the following details:
Network Name: %s
Chain ID: %d
RPC URL: %s
Currency Symbol: %s
Block Explorer: %s
4. Save and switch to this network`,
		Target.Name, Target.ID, Target.RPCURL(), Target.NativeCurrency.Symbol, Target.Explorer.URL)
}
