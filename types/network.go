package types

import "fmt"

// Network tags the Stacks network the service runs against.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

func (n Network) IsTestnet() bool {
	return n == NetworkTestnet
}

func (n Network) String() string {
	return string(n)
}

// CoreAPIURL returns the default Hiro API base for the network. The
// configured ledger URL overrides this.
func (n Network) CoreAPIURL() string {
	if n.IsTestnet() {
		return "https://api.testnet.hiro.so"
	}
	return "https://api.hiro.so"
}

// ExplorerTxURL builds the Hiro explorer link for a transaction id.
func (n Network) ExplorerTxURL(txid string) string {
	return fmt.Sprintf("https://explorer.hiro.so/txid/%s?chain=%s", txid, n)
}

// TransactionVersion is the wire version byte of a Stacks transaction
// on this network.
func (n Network) TransactionVersion() byte {
	if n.IsTestnet() {
		return 0x80
	}
	return 0x00
}

// ChainID is the 4-byte chain identifier embedded in transactions.
func (n Network) ChainID() uint32 {
	if n.IsTestnet() {
		return 0x80000000
	}
	return 0x00000001
}

// AddressVersion is the c32check version byte for single-sig addresses
// on this network ("SP…" on mainnet, "ST…" on testnet).
func (n Network) AddressVersion() byte {
	if n.IsTestnet() {
		return 26
	}
	return 22
}
