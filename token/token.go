// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/tomb"
)

var totalSupplyKey = tomb.Keccak256([]byte("token-total-supply"))

func accountKey(addr tomb.Address) tomb.Bytes32 {
	return tomb.BytesToBytes32(append([]byte("a"), addr.Bytes()...))
}

func allowanceKey(owner, spender tomb.Address) tomb.Bytes32 {
	return tomb.Keccak256(owner.Bytes(), spender.Bytes())
}

// Token is a fungible token ledger with standard mint/burn/transfer/
// allowance semantics. Balances live in the token's own contract
// storage.
type Token struct {
	symbol string
	addr   tomb.Address
	state  *state.State
}

// New create a token ledger instance.
func New(symbol string, addr tomb.Address, st *state.State) *Token {
	return &Token{symbol, addr, st}
}

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Address returns the ledger's contract address.
func (t *Token) Address() tomb.Address { return t.addr }

// TotalSupply returns the total minted supply.
func (t *Token) TotalSupply() (*big.Int, error) {
	return t.state.GetBigInt(t.addr, totalSupplyKey)
}

// BalanceOf returns the balance of an account.
func (t *Token) BalanceOf(addr tomb.Address) (*big.Int, error) {
	return t.state.GetBigInt(t.addr, accountKey(addr))
}

// Allowance returns the remaining amount spender may move out of owner.
func (t *Token) Allowance(owner, spender tomb.Address) (*big.Int, error) {
	return t.state.GetBigInt(t.addr, allowanceKey(owner, spender))
}

// Approve sets spender's allowance over owner's balance.
func (t *Token) Approve(owner, spender tomb.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.New(reverts.RangeViolation, "%s: negative approval", t.symbol)
	}
	return t.state.SetBigInt(t.addr, allowanceKey(owner, spender), amount)
}

// Mint creates amount new tokens on to's balance.
func (t *Token) Mint(to tomb.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.New(reverts.RangeViolation, "%s: negative mint", t.symbol)
	}
	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.state.SetBigInt(t.addr, accountKey(to), new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	return t.state.SetBigInt(t.addr, totalSupplyKey, new(big.Int).Add(supply, amount))
}

// Burn destroys amount tokens from from's balance.
func (t *Token) Burn(from tomb.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.New(reverts.RangeViolation, "%s: negative burn", t.symbol)
	}
	bal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.New(reverts.InsufficientFunds, "%s: burn %v exceeds balance %v", t.symbol, amount, bal)
	}
	if err := t.state.SetBigInt(t.addr, accountKey(from), new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	return t.state.SetBigInt(t.addr, totalSupplyKey, new(big.Int).Sub(supply, amount))
}

// BurnFrom destroys amount tokens from from's balance using spender's
// allowance.
func (t *Token) BurnFrom(spender, from tomb.Address, amount *big.Int) error {
	if err := t.spendAllowance(from, spender, amount); err != nil {
		return err
	}
	return t.Burn(from, amount)
}

// Transfer moves amount tokens between accounts.
func (t *Token) Transfer(from, to tomb.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.New(reverts.RangeViolation, "%s: negative transfer", t.symbol)
	}
	bal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.New(reverts.InsufficientFunds, "%s: transfer %v exceeds balance %v", t.symbol, amount, bal)
	}
	if err := t.state.SetBigInt(t.addr, accountKey(from), new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	toBal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	return t.state.SetBigInt(t.addr, accountKey(to), new(big.Int).Add(toBal, amount))
}

// TransferFrom moves amount tokens from from to to using spender's
// allowance.
func (t *Token) TransferFrom(spender, from, to tomb.Address, amount *big.Int) error {
	if err := t.spendAllowance(from, spender, amount); err != nil {
		return err
	}
	return t.Transfer(from, to, amount)
}

func (t *Token) spendAllowance(owner, spender tomb.Address, amount *big.Int) error {
	if owner == spender {
		return nil
	}
	allowance, err := t.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return reverts.New(reverts.InsufficientFunds, "%s: amount %v exceeds allowance %v", t.symbol, amount, allowance)
	}
	return t.state.SetBigInt(t.addr, allowanceKey(owner, spender), new(big.Int).Sub(allowance, amount))
}
