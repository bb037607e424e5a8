package zkcrypto

import (
	"fmt"
	"strings"

	"xdao.co/zpass/zerr"
)

// Network selects the cryptographic parameter set. Values are stable and
// appear on the wire.
type Network uint8

const (
	Testnet Network = 0
	Mainnet Network = 1
)

func (n Network) String() string {
	switch n {
	case Testnet:
		return "testnet"
	case Mainnet:
		return "mainnet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// Valid reports whether n names a known parameter set.
func (n Network) Valid() bool {
	return n == Testnet || n == Mainnet
}

// ParseNetwork accepts "testnet", "mainnet" or their numeric values.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testnet", "0":
		return Testnet, nil
	case "mainnet", "1":
		return Mainnet, nil
	}
	return 0, zerr.Newf(zerr.KindInput, zerr.RuleInputNetwork, "unknown network %q", s)
}

// dst returns the domain separation tag for label under n.
func (n Network) dst(label string) []byte {
	return []byte("ZPASS-V1-" + strings.ToUpper(n.String()) + "-" + label)
}
