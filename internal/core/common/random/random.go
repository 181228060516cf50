package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// HumanAlphabet omits characters that are easy to confuse when read aloud
// or typed by hand (0/O, 1/I/l).
const HumanAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// CodeAlphabet is the upper-case subset used for link codes.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// String returns n characters drawn uniformly from alphabet.
func String(alphabet string, n int) (string, error) {
	if n <= 0 || alphabet == "" {
		return "", fmt.Errorf("invalid random string request: length=%d alphabet=%d", n, len(alphabet))
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
