// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/lvldb"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/tomb"
)

const (
	testPeriod = uint64(21600)
	testStart  = uint64(1_000_000)
)

func newTestClock(t *testing.T) (*Clock, tomb.Address) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)

	addr := tomb.BytesToAddress([]byte("treasury"))
	operator := tomb.BytesToAddress([]byte("operator"))
	g := guard.New(addr, st)
	require.NoError(t, g.InitOperator(operator))

	c := New(addr, st, g)
	require.NoError(t, c.Initialize(testPeriod, testStart, 0))
	return c, operator
}

func TestInitialize(t *testing.T) {
	c, _ := newTestClock(t)

	epoch, err := c.Current()
	assert.NoError(t, err)
	assert.Zero(t, epoch)

	// the first epoch point is the start time itself
	next, err := c.NextEpochPoint()
	assert.NoError(t, err)
	assert.Equal(t, testStart, next)
}

func TestCheckStart(t *testing.T) {
	c, _ := newTestClock(t)

	err := c.CheckStart(testStart - 1)
	assert.True(t, reverts.Is(err, reverts.Lifecycle))
	assert.NoError(t, c.CheckStart(testStart))
}

func TestAdvance(t *testing.T) {
	c, _ := newTestClock(t)

	require.NoError(t, c.Advance(testStart))
	epoch, _ := c.Current()
	assert.Equal(t, uint64(1), epoch)

	// within the same period the next boundary is closed
	err := c.Advance(testStart + testPeriod - 1)
	assert.True(t, reverts.Is(err, reverts.Lifecycle))

	require.NoError(t, c.Advance(testStart+testPeriod))
	epoch, _ = c.Current()
	assert.Equal(t, uint64(2), epoch)

	// boundaries move by whole periods even when advanced late
	next, _ := c.NextEpochPoint()
	assert.Equal(t, testStart+2*testPeriod, next)
}

func TestCatchUp(t *testing.T) {
	c, _ := newTestClock(t)

	err := c.CatchUp(testStart - 1)
	assert.True(t, reverts.Is(err, reverts.Lifecycle))

	// 3 full periods after start covers boundaries 0..3
	require.NoError(t, c.CatchUp(testStart+3*testPeriod))
	epoch, _ := c.Current()
	assert.Equal(t, uint64(4), epoch)

	next, _ := c.NextEpochPoint()
	assert.Equal(t, testStart+4*testPeriod, next)
}

func TestSetPeriod(t *testing.T) {
	c, operator := newTestClock(t)
	stranger := tomb.BytesToAddress([]byte("stranger"))

	err := c.SetPeriod(stranger, tomb.MinEpochPeriod)
	assert.True(t, reverts.Is(err, reverts.Authorization))

	err = c.SetPeriod(operator, tomb.MinEpochPeriod-1)
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = c.SetPeriod(operator, tomb.MaxEpochPeriod+1)
	assert.True(t, reverts.Is(err, reverts.RangeViolation))

	require.NoError(t, c.SetPeriod(operator, tomb.MaxEpochPeriod))
	period, _ := c.Period()
	assert.Equal(t, uint64(tomb.MaxEpochPeriod), period)
}

func TestSetEpoch(t *testing.T) {
	c, operator := newTestClock(t)

	require.NoError(t, c.SetEpoch(operator, 17))
	epoch, _ := c.Current()
	assert.Equal(t, uint64(17), epoch)

	err := c.SetEpoch(tomb.BytesToAddress([]byte("stranger")), 0)
	assert.True(t, reverts.Is(err, reverts.Authorization))
}
