package betflow

import (
	"strconv"
	"strings"
)

// Network is a supported chain identifier.
type Network uint64

const (
	NetworkArbitrumOne     Network = 42161
	NetworkArbitrumNova    Network = 42170
	NetworkArbitrumSepolia Network = 421614
)

// Currency is a display asset: ticker symbol plus logo asset path.
type Currency struct {
	Symbol   string
	LogoPath string
}

var (
	currencyETH        = Currency{Symbol: "ETH", LogoPath: "/assets/tokens/eth.svg"}
	currencyUSDC       = Currency{Symbol: "USDC", LogoPath: "/assets/tokens/usdc.svg"}
	currencyARB        = Currency{Symbol: "ARB", LogoPath: "/assets/tokens/arb.svg"}
	currencyNovaETH    = Currency{Symbol: "ETH", LogoPath: "/assets/tokens/eth-nova.svg"}
	currencySepoliaETH = Currency{Symbol: "ETH", LogoPath: "/assets/tokens/eth-sepolia.svg"}
)

// arbitrumOneAssets lists the symbols a session may select on the one
// multi-asset chain.
var arbitrumOneAssets = map[string]Currency{
	currencyETH.Symbol:  currencyETH,
	currencyUSDC.Symbol: currencyUSDC,
	currencyARB.Symbol:  currencyARB,
}

// Supported reports whether the network has a fixed currency mapping.
func (network Network) Supported() bool {
	switch network {
	case NetworkArbitrumOne, NetworkArbitrumNova, NetworkArbitrumSepolia:
		return true
	default:
		return false
	}
}

// String returns the decimal chain id.
func (network Network) String() string {
	return strconv.FormatUint(uint64(network), 10)
}

// SelectableCurrency reports whether the symbol may be chosen as a session
// override on the network. Only Arbitrum One carries more than one asset.
func SelectableCurrency(network Network, symbol string) bool {
	if network != NetworkArbitrumOne {
		return false
	}
	_, found := arbitrumOneAssets[normalizeSymbol(symbol)]
	return found
}

// ResolveCurrency maps a network to its display currency. The override is the
// session-scoped currency selection; it is honored only on Arbitrum One and
// only when it names an asset listed there. Unknown networks resolve to the
// ETH fallback rather than failing.
func ResolveCurrency(network Network, override string) Currency {
	switch network {
	case NetworkArbitrumOne:
		if selected, found := arbitrumOneAssets[normalizeSymbol(override)]; found {
			return selected
		}
		return currencyETH
	case NetworkArbitrumNova:
		return currencyNovaETH
	case NetworkArbitrumSepolia:
		return currencySepoliaETH
	default:
		return currencyETH
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
