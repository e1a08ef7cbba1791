package stacks

import (
	"encoding/binary"
	"fmt"
)

// Clarity value type prefixes (SIP-005 wire format).
const (
	clarityTypePrincipal   byte = 0x05
	clarityTypeStringASCII byte = 0x0d
)

// maxStringASCII matches the string-ascii bound the NFT contract
// declares for token URIs.
const maxStringASCII = 256

// PrincipalCV serializes a standard principal Clarity value from a
// c32check address.
func PrincipalCV(addr string) ([]byte, error) {
	version, hash, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 22)
	out = append(out, clarityTypePrincipal, version)
	out = append(out, hash[:]...)
	return out, nil
}

// StringASCIICV serializes a string-ascii Clarity value.
func StringASCIICV(s string) ([]byte, error) {
	if len(s) > maxStringASCII {
		return nil, fmt.Errorf("string-ascii value exceeds %d bytes", maxStringASCII)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return nil, fmt.Errorf("string-ascii value contains non-ascii byte at %d", i)
		}
	}
	out := make([]byte, 0, 5+len(s))
	out = append(out, clarityTypeStringASCII)
	out = binary.BigEndian.AppendUint32(out, uint32(len(s)))
	out = append(out, s...)
	return out, nil
}

// clarityName serializes a contract or function name (1-byte length
// prefix).
func clarityName(name string) ([]byte, error) {
	if len(name) == 0 || len(name) > 128 {
		return nil, fmt.Errorf("invalid clarity name %q", name)
	}
	out := make([]byte, 0, 1+len(name))
	out = append(out, byte(len(name)))
	out = append(out, name...)
	return out, nil
}
