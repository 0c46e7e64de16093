package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ValidWallet checks a 0x-prefixed 20-byte hex address. All-lower and
// all-upper forms are accepted as is; mixed case must carry a valid EIP-55
// checksum.
func ValidWallet(addr string) error {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("wallet address %q: missing 0x prefix", addr)
	}
	body := addr[2:]
	if len(body) != 40 {
		return fmt.Errorf("wallet address %q: want 40 hex digits, got %d", addr, len(body))
	}
	if _, err := hex.DecodeString(body); err != nil {
		return fmt.Errorf("wallet address %q: not hex", addr)
	}
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if ChecksumWallet(addr) != "0x"+body {
		return fmt.Errorf("wallet address %q: bad checksum", addr)
	}
	return nil
}

// ChecksumWallet returns the EIP-55 mixed-case form of a hex address.
// The input must already be 0x + 40 hex digits.
func ChecksumWallet(addr string) string {
	lower := strings.ToLower(addr[2:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
