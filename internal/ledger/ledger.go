// Package ledger is an in-process ERC-20 token ledger with EIP-2612 permit
// support. It stands in for the on-chain token contracts the payment flow
// settles against, so the full escrow lifecycle can run without an RPC node.
package ledger

import (
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/eth"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// Ledger holds the deployed tokens for a single chain id.
type Ledger struct {
	mu      sync.RWMutex
	chainID uint64
	tokens  map[types.Address]*Token
}

// New creates a ledger bound to the provided chain id.
func New(chainID uint64) *Ledger {
	return &Ledger{
		chainID: chainID,
		tokens:  make(map[types.Address]*Token),
	}
}

// ChainID returns the chain id the ledger signs domains for.
func (l *Ledger) ChainID() uint64 {
	return l.chainID
}

// DeployToken registers a token contract at the given address.
func (l *Ledger) DeployToken(address types.Address, name, symbol string, decimals int32) (*Token, error) {
	if address.IsZero() {
		return nil, errors.New(errors.CodeValidation, "token address is required")
	}
	if name == "" {
		return nil, errors.New(errors.CodeValidation, "token name is required")
	}

	separator, err := eth.DomainSeparator(name, permitVersion, l.chainID, address)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "computing domain separator")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[address]; ok {
		return nil, errors.New(errors.CodeConflict, "token already deployed at address")
	}

	token := &Token{
		address:         address,
		name:            name,
		symbol:          symbol,
		decimals:        decimals,
		domainSeparator: separator,
		balances:        make(map[types.Address]*uint256.Int),
		allowances:      make(map[types.Address]map[types.Address]*uint256.Int),
		nonces:          make(map[types.Address]uint64),
	}
	l.tokens[address] = token
	return token, nil
}

// Token resolves a deployed token by address.
func (l *Ledger) Token(address types.Address) (*Token, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	token, ok := l.tokens[address]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "no token deployed at address")
	}
	return token, nil
}

// BalanceOf reads the holder balance on the token at the given address.
func (l *Ledger) BalanceOf(token, holder types.Address) (types.Amount, error) {
	t, err := l.Token(token)
	if err != nil {
		return types.Amount{}, err
	}
	return t.BalanceOf(holder), nil
}

// Transfer moves value between holders on the token at the given address.
func (l *Ledger) Transfer(token, from, to types.Address, value types.Amount) error {
	t, err := l.Token(token)
	if err != nil {
		return err
	}
	return t.Transfer(from, to, value)
}

// TransferFrom spends an allowance on the token at the given address.
func (l *Ledger) TransferFrom(token, spender, from, to types.Address, value types.Amount) error {
	t, err := l.Token(token)
	if err != nil {
		return err
	}
	return t.TransferFrom(spender, from, to, value)
}

// Permit applies a signed EIP-2612 approval on the token at the given address.
func (l *Ledger) Permit(token types.Address, p PermitRequest, now time.Time) error {
	t, err := l.Token(token)
	if err != nil {
		return err
	}
	return t.Permit(p, now)
}

// PermitRequest carries the signed approval fields of an EIP-2612 permit.
type PermitRequest struct {
	Owner    types.Address
	Spender  types.Address
	Value    types.Amount
	Deadline uint64
	V        uint8
	R        *big.Int
	S        *big.Int
}
