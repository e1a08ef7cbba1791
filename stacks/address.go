// Package stacks implements the small slice of the Stacks wire
// protocol the minter needs: c32check addresses, Clarity value
// serialization, single-signature contract-call transactions and the
// broadcast call.
package stacks

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var c32Values = func() map[byte]int64 {
	m := make(map[byte]int64, len(c32Alphabet))
	for i := 0; i < len(c32Alphabet); i++ {
		m[c32Alphabet[i]] = int64(i)
	}
	return m
}()

// Hash160 is the 20-byte public key hash inside a Stacks address.
type Hash160 [20]byte

// DecodeAddress parses a c32check Stacks address ("SP…", "SM…", "ST…")
// into its version byte and public key hash, verifying the checksum.
func DecodeAddress(addr string) (byte, Hash160, error) {
	var hash Hash160

	addr = strings.ToUpper(strings.TrimSpace(addr))
	if len(addr) < 6 || addr[0] != 'S' {
		return 0, hash, fmt.Errorf("malformed stacks address %q", addr)
	}

	version, ok := c32Values[addr[1]]
	if !ok {
		return 0, hash, fmt.Errorf("invalid address version character %q", addr[1])
	}

	payload, err := c32Decode(addr[2:], 24)
	if err != nil {
		return 0, hash, fmt.Errorf("address %q: %w", addr, err)
	}

	copy(hash[:], payload[:20])
	sum := checksum(byte(version), hash)
	if string(payload[20:24]) != string(sum[:]) {
		return 0, hash, fmt.Errorf("address %q: checksum mismatch", addr)
	}
	return byte(version), hash, nil
}

// EncodeAddress renders a version byte and public key hash as a
// c32check address.
func EncodeAddress(version byte, hash Hash160) string {
	sum := checksum(version, hash)
	payload := make([]byte, 0, 24)
	payload = append(payload, hash[:]...)
	payload = append(payload, sum[:]...)

	var sb strings.Builder
	sb.WriteByte('S')
	sb.WriteByte(c32Alphabet[version])
	sb.WriteString(c32Encode(payload))
	return sb.String()
}

func checksum(version byte, hash Hash160) [4]byte {
	inner := sha256.Sum256(append([]byte{version}, hash[:]...))
	outer := sha256.Sum256(inner[:])
	var sum [4]byte
	copy(sum[:], outer[:4])
	return sum
}

// c32Decode interprets a c32 string as bytes: each leading '0' digit
// stands for one zero byte, the rest is a big-endian value. The total
// must come out to exactly size bytes.
func c32Decode(s string, size int) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	value := new(big.Int)
	base := big.NewInt(32)
	for i := zeros; i < len(s); i++ {
		digit, ok := c32Values[s[i]]
		if !ok {
			return nil, fmt.Errorf("invalid c32 character %q", s[i])
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(digit))
	}

	raw := value.Bytes()
	if zeros+len(raw) != size {
		return nil, fmt.Errorf("c32 payload is %d bytes, want %d", zeros+len(raw), size)
	}
	out := make([]byte, size)
	copy(out[zeros:], raw)
	return out, nil
}

// c32Encode renders bytes as c32 digits: one leading '0' per leading
// zero byte, then the remainder as a big-endian value.
func c32Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	value := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)

	digits := make([]byte, 0, len(data)*8/5+1)
	for value.Sign() > 0 {
		value.DivMod(value, base, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		digits = append(digits, '0')
	}

	// digits were produced least-significant first
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
