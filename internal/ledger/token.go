package ledger

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/eth"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// permitVersion is the EIP-712 domain version every deployed token signs with.
const permitVersion = "1"

// Token is a single ERC-20 contract instance. All mutating calls take the
// token lock, so concurrent transfers against the same token serialize.
type Token struct {
	address         types.Address
	name            string
	symbol          string
	decimals        int32
	domainSeparator [32]byte

	mu         sync.Mutex
	balances   map[types.Address]*uint256.Int
	allowances map[types.Address]map[types.Address]*uint256.Int
	nonces     map[types.Address]uint64
}

// Address returns the deployment address.
func (t *Token) Address() types.Address {
	return t.address
}

// Name returns the ERC-20 name used in the permit domain.
func (t *Token) Name() string {
	return t.name
}

// Symbol returns the ERC-20 symbol.
func (t *Token) Symbol() string {
	return t.symbol
}

// Decimals returns the display decimals.
func (t *Token) Decimals() int32 {
	return t.decimals
}

// DomainSeparator returns the EIP-712 domain separator for permits.
func (t *Token) DomainSeparator() [32]byte {
	return t.domainSeparator
}

// BalanceOf returns the holder balance.
func (t *Token) BalanceOf(holder types.Address) types.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.NewAmount(t.balanceLocked(holder))
}

// Allowance returns what spender may move from owner.
func (t *Token) Allowance(owner, spender types.Address) types.Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.NewAmount(t.allowanceLocked(owner, spender))
}

// Nonce returns the next permit nonce for the owner.
func (t *Token) Nonce(owner types.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nonces[owner]
}

// Mint credits freshly created tokens to the holder.
func (t *Token) Mint(holder types.Address, value types.Amount) error {
	if holder.IsZero() {
		return errors.New(errors.CodeValidation, "mint to the zero address")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	balance := t.balanceLocked(holder)
	t.balances[holder] = new(uint256.Int).Add(balance, value.Int())
	return nil
}

// Approve sets the allowance from owner to spender.
func (t *Token) Approve(owner, spender types.Address, value types.Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return errors.New(errors.CodeValidation, "approve involving the zero address")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.setAllowanceLocked(owner, spender, value.Int())
	return nil
}

// Transfer moves value from one holder to another.
func (t *Token) Transfer(from, to types.Address, value types.Amount) error {
	if from.IsZero() || to.IsZero() {
		return errors.New(errors.CodeValidation, "transfer involving the zero address")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.moveLocked(from, to, value.Int())
}

// TransferFrom moves value from owner to recipient using the spender's
// allowance, decrementing it on success.
func (t *Token) TransferFrom(spender, from, to types.Address, value types.Amount) error {
	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return errors.New(errors.CodeValidation, "transfer involving the zero address")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowanceLocked(from, spender)
	if allowance.Cmp(value.Int()) < 0 {
		return errors.New(errors.CodeInsufficientFunds, "insufficient allowance")
	}
	if err := t.moveLocked(from, to, value.Int()); err != nil {
		return err
	}
	t.setAllowanceLocked(from, spender, new(uint256.Int).Sub(allowance, value.Int()))
	return nil
}

// Permit verifies the signed approval and, when valid, sets the allowance
// and consumes the owner's nonce. An invalid or expired permit mutates
// nothing.
func (t *Token) Permit(p PermitRequest, now time.Time) error {
	if p.Owner.IsZero() || p.Spender.IsZero() {
		return errors.New(errors.CodeValidation, "permit involving the zero address")
	}
	if p.R == nil || p.S == nil {
		return errors.New(errors.CodeInvalidSignature, "permit signature is incomplete")
	}
	if uint64(now.Unix()) > p.Deadline {
		return errors.New(errors.CodeExpiredSignature, "permit deadline has passed")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	nonce := t.nonces[p.Owner]
	digest, err := eth.PermitDigest(t.domainSeparator, p.Owner, p.Spender, p.Value.Int(), nonce, p.Deadline)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "computing permit digest")
	}

	signer, err := eth.Ecrecover(digest, p.V, p.R, p.S)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidSignature, err, "recovering permit signer")
	}
	if signer != p.Owner {
		return errors.New(errors.CodeInvalidSignature, "permit signer does not match owner")
	}

	t.nonces[p.Owner] = nonce + 1
	t.setAllowanceLocked(p.Owner, p.Spender, p.Value.Int())
	return nil
}

func (t *Token) balanceLocked(holder types.Address) *uint256.Int {
	if balance, ok := t.balances[holder]; ok {
		return balance
	}
	return uint256.NewInt(0)
}

func (t *Token) allowanceLocked(owner, spender types.Address) *uint256.Int {
	if bySpender, ok := t.allowances[owner]; ok {
		if allowance, ok := bySpender[spender]; ok {
			return allowance
		}
	}
	return uint256.NewInt(0)
}

func (t *Token) setAllowanceLocked(owner, spender types.Address, value *uint256.Int) {
	bySpender, ok := t.allowances[owner]
	if !ok {
		bySpender = make(map[types.Address]*uint256.Int)
		t.allowances[owner] = bySpender
	}
	bySpender[spender] = value
}

func (t *Token) moveLocked(from, to types.Address, value *uint256.Int) error {
	balance := t.balanceLocked(from)
	if balance.Cmp(value) < 0 {
		return errors.New(errors.CodeInsufficientFunds, "insufficient balance")
	}
	t.balances[from] = new(uint256.Int).Sub(balance, value)
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), value)
	return nil
}
