package eth

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/secp256k1/ecdsa"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// Ecrecover recovers the signing wallet from a 32-byte digest and an
// Ethereum-style (v, r, s) signature. v accepts both the legacy 27/28
// form and the raw recovery id 0/1.
func Ecrecover(digest [32]byte, v uint8, r, s *big.Int) (types.Address, error) {
	if r == nil || s == nil {
		return "", fmt.Errorf("signature components are required")
	}
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("invalid recovery id %d", v)
	}

	pk := new(ecdsa.PublicKey)
	if err := pk.RecoverFrom(digest[:], uint(v), r, s); err != nil {
		return "", fmt.Errorf("recovering public key: %w", err)
	}
	return PubkeyToAddress(pk)
}

// PubkeyToAddress derives the wallet address from an uncompressed
// secp256k1 public key: the low 20 bytes of keccak256(X || Y).
func PubkeyToAddress(pk *ecdsa.PublicKey) (types.Address, error) {
	if pk == nil {
		return "", fmt.Errorf("public key is required")
	}
	x := pk.A.X.Bytes()
	y := pk.A.Y.Bytes()
	hashed := Keccak256(x[:], y[:])
	return types.AddressFromBytes(hashed[12:])
}

// SignDigest signs a prehashed digest and returns the Ethereum-style
// (v, r, s) triple, determining v by recovery trial.
func SignDigest(priv *ecdsa.PrivateKey, digest [32]byte) (uint8, *big.Int, *big.Int, error) {
	if priv == nil {
		return 0, nil, nil, fmt.Errorf("private key is required")
	}
	sig, err := priv.Sign(digest[:], nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("signing digest: %w", err)
	}
	if len(sig) < 64 {
		return 0, nil, nil, fmt.Errorf("unexpected signature length %d", len(sig))
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])

	want, err := PubkeyToAddress(&priv.PublicKey)
	if err != nil {
		return 0, nil, nil, err
	}
	for v := uint8(0); v <= 1; v++ {
		got, recErr := Ecrecover(digest, v, r, s)
		if recErr == nil && got == want {
			return v + 27, r, s, nil
		}
	}
	return 0, nil, nil, fmt.Errorf("could not determine recovery id")
}
