package stacks

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pbtc21/bitcoinfaces/types"
)

// Wire constants for a standard, unsponsored, single-signature
// contract-call transaction (SIP-005).
const (
	authTypeStandard      byte = 0x04
	hashModeP2PKH         byte = 0x00
	keyEncodingCompressed byte = 0x00
	anchorModeAny         byte = 0x03
	postConditionAllow    byte = 0x01
	payloadContractCall   byte = 0x02
)

// ContractCallTx is a single-signature contract-call transaction.
type ContractCallTx struct {
	Network types.Network

	// Signer is the hash160 of the sender's compressed public key.
	Signer Hash160
	Nonce  uint64
	Fee    uint64

	// Contract target.
	ContractVersion byte
	ContractHash    Hash160
	ContractName    string
	Function        string
	Args            [][]byte

	signature [65]byte
}

// serialize writes the full wire form. With clearAuth set, the fee,
// nonce and signature are zeroed, which is the form the initial
// sighash is computed over.
func (t *ContractCallTx) serialize(clearAuth bool) ([]byte, error) {
	out := make([]byte, 0, 256)

	out = append(out, t.Network.TransactionVersion())
	out = binary.BigEndian.AppendUint32(out, t.Network.ChainID())

	out = append(out, authTypeStandard)
	out = append(out, hashModeP2PKH)
	out = append(out, t.Signer[:]...)
	if clearAuth {
		out = binary.BigEndian.AppendUint64(out, 0)
		out = binary.BigEndian.AppendUint64(out, 0)
		out = append(out, keyEncodingCompressed)
		out = append(out, make([]byte, 65)...)
	} else {
		out = binary.BigEndian.AppendUint64(out, t.Nonce)
		out = binary.BigEndian.AppendUint64(out, t.Fee)
		out = append(out, keyEncodingCompressed)
		out = append(out, t.signature[:]...)
	}

	out = append(out, anchorModeAny)
	out = append(out, postConditionAllow)
	out = binary.BigEndian.AppendUint32(out, 0) // no post conditions

	out = append(out, payloadContractCall)
	out = append(out, t.ContractVersion)
	out = append(out, t.ContractHash[:]...)

	name, err := clarityName(t.ContractName)
	if err != nil {
		return nil, err
	}
	out = append(out, name...)

	fn, err := clarityName(t.Function)
	if err != nil {
		return nil, err
	}
	out = append(out, fn...)

	out = binary.BigEndian.AppendUint32(out, uint32(len(t.Args)))
	for _, arg := range t.Args {
		out = append(out, arg...)
	}

	return out, nil
}

// Sign computes the presign sighash and stores the recoverable
// signature in VRS order.
func (t *ContractCallTx) Sign(key *ecdsa.PrivateKey) error {
	cleared, err := t.serialize(true)
	if err != nil {
		return err
	}
	initial := sha512.Sum512_256(cleared)

	// presign sighash binds the auth type, fee and nonce to the
	// cleared-transaction hash
	buf := make([]byte, 0, 32+1+8+8)
	buf = append(buf, initial[:]...)
	buf = append(buf, authTypeStandard)
	buf = binary.BigEndian.AppendUint64(buf, t.Fee)
	buf = binary.BigEndian.AppendUint64(buf, t.Nonce)
	presign := sha512.Sum512_256(buf)

	sig, err := crypto.Sign(presign[:], key)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}

	// go-ethereum yields R||S||V; the wire format wants V||R||S
	t.signature[0] = sig[64]
	copy(t.signature[1:], sig[:64])
	return nil
}

// Bytes returns the signed wire form.
func (t *ContractCallTx) Bytes() ([]byte, error) {
	return t.serialize(false)
}

// TxID returns the canonical 0x-prefixed transaction id of the signed
// form.
func (t *ContractCallTx) TxID() (string, error) {
	raw, err := t.serialize(false)
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512_256(raw)
	return "0x" + hex.EncodeToString(sum[:]), nil
}
