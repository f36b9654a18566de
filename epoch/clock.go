// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/tomb"
)

var (
	periodKey        = tomb.Keccak256([]byte("epoch-period"))
	startTimeKey     = tomb.Keccak256([]byte("epoch-start-time"))
	lastEpochTimeKey = tomb.Keccak256([]byte("epoch-last-time"))
	epochKey         = tomb.Keccak256([]byte("epoch-counter"))
)

// Clock tracks elapsed fixed-duration policy epochs against a start
// time and period, and gates epoch-scoped operations.
type Clock struct {
	addr  tomb.Address
	state *state.State
	guard *guard.Guard
}

// New create a clock bound to a component address.
func New(addr tomb.Address, st *state.State, g *guard.Guard) *Clock {
	return &Clock{addr, st, g}
}

// Initialize sets up the clock. lastEpochTime starts one period before
// startTime so that the first epoch point is startTime itself.
func (c *Clock) Initialize(period, startTime, startEpoch uint64) error {
	if err := c.state.SetUint64(c.addr, periodKey, period); err != nil {
		return err
	}
	if err := c.state.SetUint64(c.addr, startTimeKey, startTime); err != nil {
		return err
	}
	if err := c.state.SetUint64(c.addr, lastEpochTimeKey, startTime-period); err != nil {
		return err
	}
	return c.state.SetUint64(c.addr, epochKey, startEpoch)
}

// Current returns the epoch counter.
func (c *Clock) Current() (uint64, error) {
	return c.state.GetUint64(c.addr, epochKey)
}

// Period returns the epoch period in seconds.
func (c *Clock) Period() (uint64, error) {
	return c.state.GetUint64(c.addr, periodKey)
}

// StartTime returns the protocol start time.
func (c *Clock) StartTime() (uint64, error) {
	return c.state.GetUint64(c.addr, startTimeKey)
}

// LastEpochTime returns the time of the last epoch boundary crossed.
func (c *Clock) LastEpochTime() (uint64, error) {
	return c.state.GetUint64(c.addr, lastEpochTimeKey)
}

// NextEpochPoint returns the time at which the next epoch opens.
func (c *Clock) NextEpochPoint() (uint64, error) {
	last, err := c.LastEpochTime()
	if err != nil {
		return 0, err
	}
	period, err := c.Period()
	if err != nil {
		return 0, err
	}
	return last + period, nil
}

// CheckStart rejects with a lifecycle error before the start time.
func (c *Clock) CheckStart(now uint64) error {
	start, err := c.StartTime()
	if err != nil {
		return err
	}
	if now < start {
		return reverts.New(reverts.Lifecycle, "not started yet")
	}
	return nil
}

// Advance crosses exactly one epoch boundary. It rejects with a
// lifecycle error while the boundary has not been reached; callers
// that missed several periods must call it repeatedly, or use CatchUp.
func (c *Clock) Advance(now uint64) error {
	next, err := c.NextEpochPoint()
	if err != nil {
		return err
	}
	if now < next {
		return reverts.New(reverts.Lifecycle, "epoch not opened yet")
	}
	epoch, err := c.Current()
	if err != nil {
		return err
	}
	if err := c.state.SetUint64(c.addr, lastEpochTimeKey, next); err != nil {
		return err
	}
	return c.state.SetUint64(c.addr, epochKey, epoch+1)
}

// CatchUp advances across every boundary passed up to now. It rejects
// if not even one boundary has been reached.
func (c *Clock) CatchUp(now uint64) error {
	if err := c.Advance(now); err != nil {
		return err
	}
	for {
		next, err := c.NextEpochPoint()
		if err != nil {
			return err
		}
		if now < next {
			return nil
		}
		if err := c.Advance(now); err != nil {
			return err
		}
	}
}

// SetPeriod updates the epoch period, operator only, within
// [1 hour, 48 hours].
func (c *Clock) SetPeriod(sender tomb.Address, period uint64) error {
	if err := c.guard.RequireOperator(sender); err != nil {
		return err
	}
	if period < tomb.MinEpochPeriod || period > tomb.MaxEpochPeriod {
		return reverts.New(reverts.RangeViolation, "period out of range: %d", period)
	}
	return c.state.SetUint64(c.addr, periodKey, period)
}

// SetEpoch overrides the epoch counter, operator only.
func (c *Clock) SetEpoch(sender tomb.Address, epoch uint64) error {
	if err := c.guard.RequireOperator(sender); err != nil {
		return err
	}
	return c.state.SetUint64(c.addr, epochKey, epoch)
}
