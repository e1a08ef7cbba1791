package stacks

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbtc21/bitcoinfaces/types"
)

func testTx(t *testing.T) *ContractCallTx {
	t.Helper()

	recipientCV, err := PrincipalCV(EncodeAddress(22, Hash160{0xaa}))
	require.NoError(t, err)
	uriCV, err := StringASCIICV("https://example.com/metadata/SP_A")
	require.NoError(t, err)

	return &ContractCallTx{
		Network:         types.NetworkMainnet,
		Signer:          Hash160{0x11, 0x22},
		Nonce:           7,
		Fee:             3000,
		ContractVersion: 22,
		ContractHash:    Hash160{0x33, 0x44},
		ContractName:    "bitcoin-faces-nft",
		Function:        "mint-with-uri",
		Args:            [][]byte{recipientCV, uriCV},
	}
}

func TestSerializeLayout(t *testing.T) {
	tx := testTx(t)

	raw, err := tx.Bytes()
	require.NoError(t, err)

	assert.Equal(t, byte(0x00), raw[0], "mainnet version byte")
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(raw[1:5]), "mainnet chain id")
	assert.Equal(t, byte(0x04), raw[5], "standard auth")
	assert.Equal(t, byte(0x00), raw[6], "p2pkh hash mode")
	assert.Equal(t, tx.Signer[:], raw[7:27])
	assert.Equal(t, uint64(7), binary.BigEndian.Uint64(raw[27:35]), "nonce")
	assert.Equal(t, uint64(3000), binary.BigEndian.Uint64(raw[35:43]), "fee")
	assert.Equal(t, byte(0x00), raw[43], "compressed key encoding")

	// 65-byte signature, then anchor mode, post conditions, payload
	rest := raw[44+65:]
	assert.Equal(t, byte(0x03), rest[0], "anchor mode any")
	assert.Equal(t, byte(0x01), rest[1], "allow post conditions")
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(rest[2:6]), "post condition count")
	assert.Equal(t, byte(0x02), rest[6], "contract call payload")
	assert.Equal(t, byte(22), rest[7], "contract address version")
	assert.Equal(t, tx.ContractHash[:], rest[8:28])
	assert.Equal(t, byte(len("bitcoin-faces-nft")), rest[28])
}

func TestSignFillsSignature(t *testing.T) {
	key, err := crypto.HexToECDSA(strings.Repeat("11", 32))
	require.NoError(t, err)

	tx := testTx(t)

	unsigned, err := tx.Bytes()
	require.NoError(t, err)

	require.NoError(t, tx.Sign(key))
	signed, err := tx.Bytes()
	require.NoError(t, err)

	require.Equal(t, len(unsigned), len(signed), "signing must not change the layout")
	assert.NotEqual(t, unsigned[44:44+65], signed[44:44+65], "signature bytes set")
	assert.Equal(t, unsigned[:44], signed[:44], "auth prefix unchanged")
	assert.Equal(t, unsigned[44+65:], signed[44+65:], "payload unchanged")
}

func TestSignDeterministic(t *testing.T) {
	key, err := crypto.HexToECDSA(strings.Repeat("22", 32))
	require.NoError(t, err)

	a := testTx(t)
	require.NoError(t, a.Sign(key))
	b := testTx(t)
	require.NoError(t, b.Sign(key))

	aID, err := a.TxID()
	require.NoError(t, err)
	bID, err := b.TxID()
	require.NoError(t, err)
	assert.Equal(t, aID, bID)
}

func TestTxID(t *testing.T) {
	key, err := crypto.HexToECDSA(strings.Repeat("33", 32))
	require.NoError(t, err)

	tx := testTx(t)
	require.NoError(t, tx.Sign(key))

	id, err := tx.TxID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "0x"))
	assert.Len(t, id, 2+64)

	// the id covers the fee and nonce
	tx.Nonce++
	require.NoError(t, tx.Sign(key))
	other, err := tx.TxID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}
