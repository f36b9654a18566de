// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bondtreasury holds the bond-rebate reserve. Deposits vest
// linearly per recipient; the treasury consults TotalVested to decide
// how much of a routed amount is already covered by unspent balance.
package bondtreasury

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/token"
	"github.com/tombchain/tombcore/tomb"
)

var (
	vestingPeriodKey = tomb.Keccak256([]byte("bond-vesting-period"))
	totalVestedKey   = tomb.Keccak256([]byte("bond-total-vested"))
)

func scheduleKey(addr tomb.Address) tomb.Bytes32 {
	return tomb.BytesToBytes32(append([]byte("v"), addr.Bytes()...))
}

type schedule struct {
	Amount      *big.Int
	Period      uint64
	End         uint64
	Claimed     *big.Int
	LastClaimed uint64
}

func (s *schedule) isEmpty() bool {
	return s.Amount.Sign() == 0 && s.Claimed.Sign() == 0 && s.End == 0
}

// BondTreasury is the vesting reserve.
type BondTreasury struct {
	addr  tomb.Address
	state *state.State
	guard *guard.Guard
	tomb  *token.Token
}

// New create a bond treasury instance.
func New(addr tomb.Address, st *state.State, g *guard.Guard, tombToken *token.Token) *BondTreasury {
	return &BondTreasury{addr, st, g, tombToken}
}

// Address returns the reserve's contract address.
func (b *BondTreasury) Address() tomb.Address { return b.addr }

// Initialize sets the operator and the vesting period.
func (b *BondTreasury) Initialize(sender tomb.Address, vestingPeriod uint64) error {
	if err := b.guard.InitOperator(sender); err != nil {
		return err
	}
	return b.state.SetUint64(b.addr, vestingPeriodKey, vestingPeriod)
}

func (b *BondTreasury) getSchedule(addr tomb.Address) (*schedule, error) {
	s := &schedule{Amount: new(big.Int), Claimed: new(big.Int)}
	if err := b.state.DecodeStorage(b.addr, scheduleKey(addr), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, s)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BondTreasury) setSchedule(addr tomb.Address, s *schedule) error {
	return b.state.EncodeStorage(b.addr, scheduleKey(addr), func() ([]byte, error) {
		if s.isEmpty() {
			return nil, nil
		}
		return rlp.EncodeToBytes(s)
	})
}

// VestingPeriod returns the vesting period applied to new deposits.
func (b *BondTreasury) VestingPeriod() (uint64, error) {
	return b.state.GetUint64(b.addr, vestingPeriodKey)
}

// SetVestingPeriod updates the vesting period, operator only.
func (b *BondTreasury) SetVestingPeriod(sender tomb.Address, period uint64) error {
	if err := b.guard.RequireOperator(sender); err != nil {
		return err
	}
	if period == 0 {
		return reverts.New(reverts.ZeroValue, "bond treasury: zero vesting period")
	}
	return b.state.SetUint64(b.addr, vestingPeriodKey, period)
}

// TotalVested returns the amount owed across all schedules but not yet
// claimed.
func (b *BondTreasury) TotalVested() (*big.Int, error) {
	return b.state.GetBigInt(b.addr, totalVestedKey)
}

// Deposit starts or extends a vesting schedule for recipient. The
// unclaimed remainder of a previous schedule rolls into the new one.
// Operator only.
func (b *BondTreasury) Deposit(sender, recipient tomb.Address, amount *big.Int, now uint64) error {
	if err := b.guard.RequireOperator(sender); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return reverts.New(reverts.ZeroValue, "bond treasury: zero deposit")
	}
	if err := b.Claim(recipient, now); err != nil {
		return err
	}
	s, err := b.getSchedule(recipient)
	if err != nil {
		return err
	}
	period, err := b.VestingPeriod()
	if err != nil {
		return err
	}
	s.Amount = new(big.Int).Add(new(big.Int).Sub(s.Amount, s.Claimed), amount)
	s.Period = period
	s.End = now + period
	s.Claimed = new(big.Int)
	s.LastClaimed = now
	if err := b.setSchedule(recipient, s); err != nil {
		return err
	}
	total, err := b.TotalVested()
	if err != nil {
		return err
	}
	return b.state.SetBigInt(b.addr, totalVestedKey, total.Add(total, amount))
}

// Claimable returns what recipient could claim at time now.
func (b *BondTreasury) Claimable(recipient tomb.Address, now uint64) (*big.Int, error) {
	s, err := b.getSchedule(recipient)
	if err != nil {
		return nil, err
	}
	return b.claimable(s, now), nil
}

func (b *BondTreasury) claimable(s *schedule, now uint64) *big.Int {
	if s.Amount.Sign() == 0 {
		return new(big.Int)
	}
	until := now
	if until > s.End {
		until = s.End
	}
	if until <= s.LastClaimed {
		return new(big.Int)
	}
	remaining := new(big.Int).Sub(s.Amount, s.Claimed)
	if s.Period == 0 {
		return remaining
	}
	out := new(big.Int).SetUint64(until - s.LastClaimed)
	out.Mul(out, s.Amount)
	out.Div(out, new(big.Int).SetUint64(s.Period))
	if out.Cmp(remaining) > 0 {
		out = remaining
	}
	return out
}

// Claim releases the vested part of recipient's schedule.
func (b *BondTreasury) Claim(recipient tomb.Address, now uint64) error {
	s, err := b.getSchedule(recipient)
	if err != nil {
		return err
	}
	out := b.claimable(s, now)
	if out.Sign() == 0 {
		return nil
	}
	if err := b.tomb.Transfer(b.addr, recipient, out); err != nil {
		return err
	}
	s.Claimed = new(big.Int).Add(s.Claimed, out)
	if now > s.End {
		s.LastClaimed = s.End
	} else {
		s.LastClaimed = now
	}
	if err := b.setSchedule(recipient, s); err != nil {
		return err
	}
	total, err := b.TotalVested()
	if err != nil {
		return err
	}
	return b.state.SetBigInt(b.addr, totalVestedKey, total.Sub(total, out))
}
