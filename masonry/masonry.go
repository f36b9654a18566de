// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package masonry implements the staking reward ledger. Stakers lock
// share tokens and accrue freshly minted tomb from treasury seigniorage
// allocations, tracked through an append-only snapshot history so that
// accrual costs O(1) per staker regardless of how many allocations
// happened in between.
package masonry

import (
	"math/big"

	"github.com/tombchain/tombcore/epoch"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/token"
	"github.com/tombchain/tombcore/tomb"
)

var (
	initializedKey    = tomb.Keccak256([]byte("masonry-initialized"))
	totalStakedKey    = tomb.Keccak256([]byte("masonry-total-staked"))
	snapshotCountKey  = tomb.Keccak256([]byte("masonry-snapshot-count"))
	withdrawLockupKey = tomb.Keccak256([]byte("masonry-withdraw-lockup"))
	rewardLockupKey   = tomb.Keccak256([]byte("masonry-reward-lockup"))
)

func snapshotKey(index uint64) tomb.Bytes32 {
	var b [9]byte
	b[0] = 's'
	for i := 0; i < 8; i++ {
		b[1+i] = byte(index >> (56 - 8*i))
	}
	return tomb.BytesToBytes32(b[:])
}

func balanceKey(member tomb.Address) tomb.Bytes32 {
	return tomb.BytesToBytes32(append([]byte("b"), member.Bytes()...))
}

func seatKey(member tomb.Address) tomb.Bytes32 {
	return tomb.BytesToBytes32(append([]byte("m"), member.Bytes()...))
}

// Masonry is the staking reward ledger component.
type Masonry struct {
	addr  tomb.Address
	state *state.State
	guard *guard.Guard
	clock *epoch.Clock
	tomb  *token.Token
	share *token.Token
}

// New create a masonry instance. The clock is shared with the treasury
// so both components agree on the current epoch.
func New(addr tomb.Address, st *state.State, clock *epoch.Clock, tombToken, shareToken *token.Token) *Masonry {
	return &Masonry{
		addr:  addr,
		state: st,
		guard: guard.New(addr, st),
		clock: clock,
		tomb:  tombToken,
		share: shareToken,
	}
}

// Address returns the masonry's contract address.
func (m *Masonry) Address() tomb.Address { return m.addr }

// Guard returns the masonry's access guard.
func (m *Masonry) Guard() *guard.Guard { return m.guard }

// Initialize sets up the ledger with the genesis snapshot and default
// lockups, and makes sender the operator.
func (m *Masonry) Initialize(sender tomb.Address) error {
	return m.state.Atomic(func() error {
		initialized, err := m.state.GetUint64(m.addr, initializedKey)
		if err != nil {
			return err
		}
		if initialized != 0 {
			return reverts.New(reverts.Lifecycle, "masonry: already initialized")
		}
		genesis := &Snapshot{
			Time:           0,
			RewardReceived: new(big.Int),
			RewardPerShare: new(big.Int),
		}
		if err := m.putSnapshot(0, genesis); err != nil {
			return err
		}
		if err := m.state.SetUint64(m.addr, snapshotCountKey, 1); err != nil {
			return err
		}
		if err := m.state.SetUint64(m.addr, withdrawLockupKey, tomb.DefaultWithdrawLockupEpochs); err != nil {
			return err
		}
		if err := m.state.SetUint64(m.addr, rewardLockupKey, tomb.DefaultRewardLockupEpochs); err != nil {
			return err
		}
		if err := m.guard.InitOperator(sender); err != nil {
			return err
		}
		return m.state.SetUint64(m.addr, initializedKey, 1)
	})
}

// TotalStaked returns the sum of all staked share balances.
func (m *Masonry) TotalStaked() (*big.Int, error) {
	return m.state.GetBigInt(m.addr, totalStakedKey)
}

// BalanceOf returns member's staked share balance.
func (m *Masonry) BalanceOf(member tomb.Address) (*big.Int, error) {
	return m.state.GetBigInt(m.addr, balanceKey(member))
}

// WithdrawLockupEpochs returns the withdraw lockup in epochs.
func (m *Masonry) WithdrawLockupEpochs() (uint64, error) {
	return m.state.GetUint64(m.addr, withdrawLockupKey)
}

// RewardLockupEpochs returns the claim lockup in epochs.
func (m *Masonry) RewardLockupEpochs() (uint64, error) {
	return m.state.GetUint64(m.addr, rewardLockupKey)
}

// Epoch returns the current epoch as seen by the shared clock.
func (m *Masonry) Epoch() (uint64, error) {
	return m.clock.Current()
}

func (m *Masonry) getSeat(member tomb.Address) (*Seat, error) {
	var seat Seat
	if err := m.state.DecodeStorage(m.addr, seatKey(member), seat.Decode); err != nil {
		return nil, err
	}
	return &seat, nil
}

func (m *Masonry) putSeat(member tomb.Address, seat *Seat) error {
	return m.state.EncodeStorage(m.addr, seatKey(member), seat.Encode)
}

func (m *Masonry) getSnapshot(index uint64) (*Snapshot, error) {
	var snap Snapshot
	if err := m.state.DecodeStorage(m.addr, snapshotKey(index), snap.Decode); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *Masonry) putSnapshot(index uint64, snap *Snapshot) error {
	return m.state.EncodeStorage(m.addr, snapshotKey(index), snap.Encode)
}

// SnapshotCount returns the length of the snapshot history, at least 1
// once initialized.
func (m *Masonry) SnapshotCount() (uint64, error) {
	return m.state.GetUint64(m.addr, snapshotCountKey)
}

// LatestSnapshotIndex returns the index of the newest snapshot.
func (m *Masonry) LatestSnapshotIndex() (uint64, error) {
	count, err := m.SnapshotCount()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, reverts.New(reverts.Lifecycle, "masonry: not initialized")
	}
	return count - 1, nil
}

func (m *Masonry) latestSnapshot() (*Snapshot, error) {
	index, err := m.LatestSnapshotIndex()
	if err != nil {
		return nil, err
	}
	return m.getSnapshot(index)
}

// RewardPerShare returns the cumulative reward per staked share, 1e18
// fixed point.
func (m *Masonry) RewardPerShare() (*big.Int, error) {
	snap, err := m.latestSnapshot()
	if err != nil {
		return nil, err
	}
	return snap.RewardPerShare, nil
}

// Earned returns member's pending reward: the stored accrual plus the
// delta against snapshots appended since the member's last touch.
func (m *Masonry) Earned(member tomb.Address) (*big.Int, error) {
	seat, err := m.getSeat(member)
	if err != nil {
		return nil, err
	}
	latestRPS, err := m.RewardPerShare()
	if err != nil {
		return nil, err
	}
	last, err := m.getSnapshot(seat.LastSnapshotIndex)
	if err != nil {
		return nil, err
	}
	balance, err := m.BalanceOf(member)
	if err != nil {
		return nil, err
	}
	delta := new(big.Int).Sub(latestRPS, last.RewardPerShare)
	earned := tomb.MulDiv(balance, delta, tomb.Ether)
	return earned.Add(earned, seat.RewardEarned), nil
}

// updateReward folds all pending accrual into the member's seat so the
// following balance change cannot dilute or inflate it.
func (m *Masonry) updateReward(member tomb.Address) (*Seat, error) {
	seat, err := m.getSeat(member)
	if err != nil {
		return nil, err
	}
	earned, err := m.Earned(member)
	if err != nil {
		return nil, err
	}
	latest, err := m.LatestSnapshotIndex()
	if err != nil {
		return nil, err
	}
	seat.RewardEarned = earned
	seat.LastSnapshotIndex = latest
	if err := m.putSeat(member, seat); err != nil {
		return nil, err
	}
	return seat, nil
}

// CanWithdraw reports whether member's withdraw lockup has elapsed.
func (m *Masonry) CanWithdraw(member tomb.Address) (bool, error) {
	seat, err := m.getSeat(member)
	if err != nil {
		return false, err
	}
	lockup, err := m.WithdrawLockupEpochs()
	if err != nil {
		return false, err
	}
	current, err := m.clock.Current()
	if err != nil {
		return false, err
	}
	return seat.EpochTimerStart+lockup <= current, nil
}

// CanClaimReward reports whether member's reward lockup has elapsed.
func (m *Masonry) CanClaimReward(member tomb.Address) (bool, error) {
	seat, err := m.getSeat(member)
	if err != nil {
		return false, err
	}
	lockup, err := m.RewardLockupEpochs()
	if err != nil {
		return false, err
	}
	current, err := m.clock.Current()
	if err != nil {
		return false, err
	}
	return seat.EpochTimerStart+lockup <= current, nil
}

// Stake locks amount share tokens for sender and restarts both lockup
// timers.
func (m *Masonry) Stake(now uint64, sender tomb.Address, amount *big.Int) error {
	return m.state.Atomic(func() error {
		current, err := m.clock.Current()
		if err != nil {
			return err
		}
		if err := m.guard.OncePerTick(now, sender); err != nil {
			return err
		}
		seat, err := m.updateReward(sender)
		if err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return reverts.New(reverts.ZeroValue, "masonry: cannot stake 0")
		}
		if err := m.share.TransferFrom(m.addr, sender, m.addr, amount); err != nil {
			return err
		}
		balance, err := m.BalanceOf(sender)
		if err != nil {
			return err
		}
		if err := m.state.SetBigInt(m.addr, balanceKey(sender), new(big.Int).Add(balance, amount)); err != nil {
			return err
		}
		total, err := m.TotalStaked()
		if err != nil {
			return err
		}
		if err := m.state.SetBigInt(m.addr, totalStakedKey, new(big.Int).Add(total, amount)); err != nil {
			return err
		}
		seat.EpochTimerStart = current
		return m.putSeat(sender, seat)
	})
}

// Withdraw unlocks amount share tokens back to sender, claiming any
// pending reward first.
func (m *Masonry) Withdraw(now uint64, sender tomb.Address, amount *big.Int) error {
	return m.state.Atomic(func() error {
		if err := m.guard.OncePerTick(now, sender); err != nil {
			return err
		}
		return m.withdraw(sender, amount)
	})
}

func (m *Masonry) withdraw(sender tomb.Address, amount *big.Int) error {
	balance, err := m.BalanceOf(sender)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return reverts.New(reverts.Lifecycle, "masonry: the mason does not exist")
	}
	if _, err := m.updateReward(sender); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return reverts.New(reverts.ZeroValue, "masonry: cannot withdraw 0")
	}
	ok, err := m.CanWithdraw(sender)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.New(reverts.LockupActive, "masonry: still in withdraw lockup")
	}
	if err := m.claimReward(sender); err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return reverts.New(reverts.InsufficientFunds, "masonry: withdraw %v exceeds staked %v", amount, balance)
	}
	if err := m.state.SetBigInt(m.addr, balanceKey(sender), new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	total, err := m.TotalStaked()
	if err != nil {
		return err
	}
	if err := m.state.SetBigInt(m.addr, totalStakedKey, new(big.Int).Sub(total, amount)); err != nil {
		return err
	}
	return m.share.Transfer(m.addr, sender, amount)
}

// Exit withdraws sender's entire stake.
func (m *Masonry) Exit(now uint64, sender tomb.Address) error {
	return m.state.Atomic(func() error {
		if err := m.guard.OncePerTick(now, sender); err != nil {
			return err
		}
		balance, err := m.BalanceOf(sender)
		if err != nil {
			return err
		}
		return m.withdraw(sender, balance)
	})
}

// ClaimReward pays out sender's accrued reward and restarts the lockup
// timers. A zero pending reward is a no-op, not an error.
func (m *Masonry) ClaimReward(sender tomb.Address) error {
	return m.state.Atomic(func() error {
		return m.claimReward(sender)
	})
}

func (m *Masonry) claimReward(sender tomb.Address) error {
	seat, err := m.updateReward(sender)
	if err != nil {
		return err
	}
	if seat.RewardEarned.Sign() <= 0 {
		return nil
	}
	ok, err := m.CanClaimReward(sender)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.New(reverts.LockupActive, "masonry: still in reward lockup")
	}
	current, err := m.clock.Current()
	if err != nil {
		return err
	}
	reward := seat.RewardEarned
	seat.EpochTimerStart = current
	seat.RewardEarned = new(big.Int)
	if err := m.putSeat(sender, seat); err != nil {
		return err
	}
	return m.tomb.Transfer(m.addr, sender, reward)
}

// AllocateSeigniorage pulls amount tomb from the sender and appends a
// snapshot distributing it pro rata over the current stakes. Operator
// only; the treasury is the operator in a deployed system.
func (m *Masonry) AllocateSeigniorage(now uint64, sender tomb.Address, amount *big.Int) error {
	return m.state.Atomic(func() error {
		if err := m.guard.RequireOperator(sender); err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return reverts.New(reverts.ZeroValue, "masonry: cannot allocate 0")
		}
		total, err := m.TotalStaked()
		if err != nil {
			return err
		}
		if total.Sign() == 0 {
			return reverts.New(reverts.ZeroValue, "masonry: cannot allocate when totalStaked is 0")
		}
		prev, err := m.latestSnapshot()
		if err != nil {
			return err
		}
		delta := tomb.MulDiv(amount, tomb.Ether, total)
		next := &Snapshot{
			Time:           now,
			RewardReceived: new(big.Int).Set(amount),
			RewardPerShare: new(big.Int).Add(prev.RewardPerShare, delta),
		}
		count, err := m.SnapshotCount()
		if err != nil {
			return err
		}
		if err := m.putSnapshot(count, next); err != nil {
			return err
		}
		if err := m.state.SetUint64(m.addr, snapshotCountKey, count+1); err != nil {
			return err
		}
		return m.tomb.TransferFrom(m.addr, sender, m.addr, amount)
	})
}

// SetLockup updates both lockups, operator only. The withdraw lockup
// must cover the reward lockup and stay within the global cap.
func (m *Masonry) SetLockup(sender tomb.Address, withdrawEpochs, rewardEpochs uint64) error {
	return m.state.Atomic(func() error {
		if err := m.guard.RequireOperator(sender); err != nil {
			return err
		}
		if withdrawEpochs < rewardEpochs || withdrawEpochs > tomb.MaxLockupEpochs {
			return reverts.New(reverts.RangeViolation, "masonry: lockup out of range: withdraw %d reward %d", withdrawEpochs, rewardEpochs)
		}
		if err := m.state.SetUint64(m.addr, withdrawLockupKey, withdrawEpochs); err != nil {
			return err
		}
		return m.state.SetUint64(m.addr, rewardLockupKey, rewardEpochs)
	})
}

// RecoverUnsupportedToken sweeps stray tokens out of the masonry,
// operator only. The core tomb and share tokens are protected.
func (m *Masonry) RecoverUnsupportedToken(sender tomb.Address, stray *token.Token, amount *big.Int, to tomb.Address) error {
	return m.state.Atomic(func() error {
		if err := m.guard.RequireOperator(sender); err != nil {
			return err
		}
		if stray.Address() == m.tomb.Address() {
			return reverts.New(reverts.InvalidToken, "masonry: cannot recover tomb")
		}
		if stray.Address() == m.share.Address() {
			return reverts.New(reverts.InvalidToken, "masonry: cannot recover share")
		}
		return stray.Transfer(m.addr, to, amount)
	})
}
