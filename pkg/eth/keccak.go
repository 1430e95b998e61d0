package eth

import "golang.org/x/crypto/sha3"

// Keccak256 hashes the concatenation of the inputs with legacy Keccak-256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
