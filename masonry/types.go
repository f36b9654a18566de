// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package masonry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Snapshot is one entry of the append-only reward history. Index 0 is
// the genesis snapshot with reward-per-share 0; every later entry
// records the reward received in that allocation and the cumulative
// reward-per-share after it, 1e18 fixed point.
type Snapshot struct {
	Time           uint64
	RewardReceived *big.Int
	RewardPerShare *big.Int
}

// Encode encodes the snapshot for storage.
func (s *Snapshot) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(s)
}

// Decode restores a snapshot from storage, zero values if absent.
func (s *Snapshot) Decode(data []byte) error {
	if len(data) == 0 {
		*s = Snapshot{RewardReceived: new(big.Int), RewardPerShare: new(big.Int)}
		return nil
	}
	return rlp.DecodeBytes(data, s)
}

// Seat is the per-staker accrual record. Never deleted once created;
// the balance may return to zero.
type Seat struct {
	LastSnapshotIndex uint64
	RewardEarned      *big.Int
	EpochTimerStart   uint64
}

// Encode encodes the seat for storage.
func (s *Seat) Encode() ([]byte, error) {
	if s.LastSnapshotIndex == 0 && s.RewardEarned.Sign() == 0 && s.EpochTimerStart == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(s)
}

// Decode restores a seat from storage, zero values if absent.
func (s *Seat) Decode(data []byte) error {
	if len(data) == 0 {
		*s = Seat{RewardEarned: new(big.Int)}
		return nil
	}
	return rlp.DecodeBytes(data, s)
}
