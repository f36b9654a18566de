// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bondtreasury

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/lvldb"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/token"
	"github.com/tombchain/tombcore/tomb"
)

const vestingPeriod = uint64(1000)

type fixture struct {
	bonds    *BondTreasury
	tomb     *token.Token
	operator tomb.Address
	holder   tomb.Address
}

func newFixture(t *testing.T) *fixture {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)

	addr := tomb.BytesToAddress([]byte("bond-treasury"))
	operator := tomb.BytesToAddress([]byte("operator"))
	tombToken := token.New("TOMB", tomb.BytesToAddress([]byte("tomb")), st)

	b := New(addr, st, guard.New(addr, st), tombToken)
	require.NoError(t, b.Initialize(operator, vestingPeriod))

	// fund the reserve so claims can pay out
	require.NoError(t, tombToken.Mint(addr, new(big.Int).Mul(big.NewInt(1_000_000), tomb.Ether)))

	return &fixture{
		bonds:    b,
		tomb:     tombToken,
		operator: operator,
		holder:   tomb.BytesToAddress([]byte("holder")),
	}
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)

	err := f.bonds.Deposit(f.holder, f.holder, big.NewInt(100), 0)
	assert.True(t, reverts.Is(err, reverts.Authorization))

	err = f.bonds.Deposit(f.operator, f.holder, new(big.Int), 0)
	assert.True(t, reverts.Is(err, reverts.ZeroValue))

	require.NoError(t, f.bonds.Deposit(f.operator, f.holder, big.NewInt(1000), 0))
	total, _ := f.bonds.TotalVested()
	assert.Equal(t, big.NewInt(1000), total)
}

func TestLinearVesting(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bonds.Deposit(f.operator, f.holder, big.NewInt(1000), 0))

	claimable, err := f.bonds.Claimable(f.holder, 0)
	require.NoError(t, err)
	assert.Zero(t, claimable.Sign())

	// a quarter of the period vests a quarter of the amount
	claimable, _ = f.bonds.Claimable(f.holder, vestingPeriod/4)
	assert.Equal(t, big.NewInt(250), claimable)

	claimable, _ = f.bonds.Claimable(f.holder, vestingPeriod)
	assert.Equal(t, big.NewInt(1000), claimable)

	// past the end nothing more accrues
	claimable, _ = f.bonds.Claimable(f.holder, vestingPeriod*10)
	assert.Equal(t, big.NewInt(1000), claimable)
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bonds.Deposit(f.operator, f.holder, big.NewInt(1000), 0))

	require.NoError(t, f.bonds.Claim(f.holder, vestingPeriod/2))
	bal, _ := f.tomb.BalanceOf(f.holder)
	assert.Equal(t, big.NewInt(500), bal)
	total, _ := f.bonds.TotalVested()
	assert.Equal(t, big.NewInt(500), total)

	// claiming again at the same time releases nothing
	require.NoError(t, f.bonds.Claim(f.holder, vestingPeriod/2))
	bal, _ = f.tomb.BalanceOf(f.holder)
	assert.Equal(t, big.NewInt(500), bal)

	require.NoError(t, f.bonds.Claim(f.holder, vestingPeriod+1))
	bal, _ = f.tomb.BalanceOf(f.holder)
	assert.Equal(t, big.NewInt(1000), bal)
	total, _ = f.bonds.TotalVested()
	assert.Zero(t, total.Sign())
}

func TestDepositRollsOverRemainder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bonds.Deposit(f.operator, f.holder, big.NewInt(1000), 0))

	// half way through, a new deposit claims the vested half and rolls
	// the unvested 500 into a fresh schedule
	require.NoError(t, f.bonds.Deposit(f.operator, f.holder, big.NewInt(300), vestingPeriod/2))
	bal, _ := f.tomb.BalanceOf(f.holder)
	assert.Equal(t, big.NewInt(500), bal)

	claimable, _ := f.bonds.Claimable(f.holder, vestingPeriod/2+vestingPeriod)
	assert.Equal(t, big.NewInt(800), claimable)

	total, _ := f.bonds.TotalVested()
	assert.Equal(t, big.NewInt(800), total)
}

func TestSetVestingPeriod(t *testing.T) {
	f := newFixture(t)

	err := f.bonds.SetVestingPeriod(f.holder, 500)
	assert.True(t, reverts.Is(err, reverts.Authorization))
	err = f.bonds.SetVestingPeriod(f.operator, 0)
	assert.True(t, reverts.Is(err, reverts.ZeroValue))

	require.NoError(t, f.bonds.SetVestingPeriod(f.operator, 500))
	period, _ := f.bonds.VestingPeriod()
	assert.Equal(t, uint64(500), period)
}
