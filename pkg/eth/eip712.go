package eth

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// Type hashes per EIP-712 and EIP-2612.
var (
	domainTypeHash = Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = Keccak256([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

// DomainSeparator computes the EIP-712 domain separator for a token
// contract identified by name, version, chain id and address.
func DomainSeparator(name, version string, chainID uint64, verifyingContract types.Address) ([32]byte, error) {
	var out [32]byte
	contractWord, err := addressWord(verifyingContract)
	if err != nil {
		return out, err
	}
	encoded := make([]byte, 0, 5*32)
	encoded = append(encoded, domainTypeHash...)
	encoded = append(encoded, Keccak256([]byte(name))...)
	encoded = append(encoded, Keccak256([]byte(version))...)
	encoded = append(encoded, uint64Word(chainID)...)
	encoded = append(encoded, contractWord...)
	copy(out[:], Keccak256(encoded))
	return out, nil
}

// PermitDigest computes the EIP-2612 signing digest for a permit over
// (owner, spender, value, nonce, deadline).
func PermitDigest(domainSeparator [32]byte, owner, spender types.Address, value *uint256.Int, nonce, deadline uint64) ([32]byte, error) {
	var out [32]byte
	ownerWord, err := addressWord(owner)
	if err != nil {
		return out, err
	}
	spenderWord, err := addressWord(spender)
	if err != nil {
		return out, err
	}
	if value == nil {
		return out, fmt.Errorf("permit value is required")
	}
	valueWord := value.Bytes32()

	encoded := make([]byte, 0, 6*32)
	encoded = append(encoded, permitTypeHash...)
	encoded = append(encoded, ownerWord...)
	encoded = append(encoded, spenderWord...)
	encoded = append(encoded, valueWord[:]...)
	encoded = append(encoded, uint64Word(nonce)...)
	encoded = append(encoded, uint64Word(deadline)...)
	structHash := Keccak256(encoded)

	copy(out[:], Keccak256([]byte{0x19, 0x01}, domainSeparator[:], structHash))
	return out, nil
}

// addressWord left-pads a 20-byte address into a 32-byte ABI word.
func addressWord(addr types.Address) ([]byte, error) {
	raw, err := addr.Bytes()
	if err != nil {
		return nil, err
	}
	word := make([]byte, 32)
	copy(word[12:], raw)
	return word, nil
}

// uint64Word encodes a uint64 into a 32-byte big-endian ABI word.
func uint64Word(v uint64) []byte {
	word := make([]byte, 32)
	binary.BigEndian.PutUint64(word[24:], v)
	return word
}
