// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package treasury

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombchain/tombcore/bondtreasury"
	"github.com/tombchain/tombcore/epoch"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/lvldb"
	"github.com/tombchain/tombcore/masonry"
	"github.com/tombchain/tombcore/oracle"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/token"
	"github.com/tombchain/tombcore/tomb"
)

const testStart = uint64(1_000_000)

var (
	alice = tomb.BytesToAddress([]byte("alice"))
	bob   = tomb.BytesToAddress([]byte("bob"))
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), tomb.Ether)
}

// epochClock builds a clock over the same storage slots the treasury's
// internal clock uses, so the masonry shares its epoch counter.
func epochClock(treasuryAddr tomb.Address, st *state.State) *epoch.Clock {
	return epoch.New(treasuryAddr, st, guard.New(treasuryAddr, st))
}

type fixture struct {
	st          *state.State
	price       *oracle.Fake
	tomb        *token.Token
	tbond       *token.Token
	tshare      *token.Token
	mas         *masonry.Masonry
	bonds       *bondtreasury.BondTreasury
	trs         *Treasury
	operator    tomb.Address
	genesisPool tomb.Address

	epochs uint64
	ticks  uint64
}

func newFixture(t *testing.T) *fixture {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)

	treasuryAddr := tomb.BytesToAddress([]byte("treasury"))
	masonryAddr := tomb.BytesToAddress([]byte("masonry"))
	bondsAddr := tomb.BytesToAddress([]byte("bond-treasury"))
	operator := tomb.BytesToAddress([]byte("operator"))
	genesisPool := tomb.BytesToAddress([]byte("genesis-pool"))

	tombToken := token.New("TOMB", tomb.BytesToAddress([]byte("tomb")), st)
	tbondToken := token.New("TBOND", tomb.BytesToAddress([]byte("tbond")), st)
	tshareToken := token.New("TSHARE", tomb.BytesToAddress([]byte("tshare")), st)

	fake := oracle.NewFake(tomb.Ether)
	clock := epochClock(treasuryAddr, st)
	bonds := bondtreasury.New(bondsAddr, st, guard.New(bondsAddr, st), tombToken)
	mas := masonry.New(masonryAddr, st, clock, tombToken, tshareToken)
	trs := New(treasuryAddr, st, fake, tombToken, tbondToken, tshareToken, mas, bonds)

	require.NoError(t, trs.Initialize(operator, genesisPool, testStart))
	require.NoError(t, mas.Initialize(treasuryAddr))
	require.NoError(t, bonds.Initialize(treasuryAddr, tomb.DefaultBondVestingPeriodSeconds))

	f := &fixture{
		st:          st,
		price:       fake,
		tomb:        tombToken,
		tbond:       tbondToken,
		tshare:      tshareToken,
		mas:         mas,
		bonds:       bonds,
		trs:         trs,
		operator:    operator,
		genesisPool: genesisPool,
	}

	// seed circulating supply and one staker so seigniorage has a
	// destination
	require.NoError(t, tombToken.Mint(alice, ether(10_000)))
	require.NoError(t, tshareToken.Mint(bob, big.NewInt(100)))
	require.NoError(t, tshareToken.Approve(bob, masonryAddr, big.NewInt(100)))
	require.NoError(t, mas.Stake(testStart, bob, big.NewInt(100)))

	return f
}

func (f *fixture) tick() uint64 {
	f.ticks++
	return testStart + f.ticks
}

// allocate moves the fake price and runs one allocation round at the
// next epoch boundary.
func (f *fixture) allocate(t *testing.T, price string) {
	f.price.SetPrice(fixedPoint(price))
	now := testStart + f.epochs*tomb.EpochPeriod
	require.NoError(t, f.trs.AllocateSeigniorage(now, f.operator))
	f.epochs++
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	epoch, err := f.trs.Epoch()
	assert.NoError(t, err)
	assert.Zero(t, epoch)

	next, _ := f.trs.NextEpochPoint()
	assert.Equal(t, testStart, next)

	reserve, _ := f.trs.Reserve()
	assert.Zero(t, reserve.Sign())

	err = f.trs.Initialize(f.operator, f.genesisPool, testStart)
	assert.True(t, reverts.Is(err, reverts.Lifecycle))
}

func TestCirculatingSupplyExcludesReserves(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tomb.Mint(f.genesisPool, ether(1_000)))
	require.NoError(t, f.tomb.Mint(f.bonds.Address(), ether(200)))

	circulating, err := f.trs.CirculatingSupply()
	require.NoError(t, err)
	assert.Equal(t, ether(10_000), circulating)
}

func TestBootstrapAllocation(t *testing.T) {
	f := newFixture(t)
	f.allocate(t, "900000000000000000")

	epoch, _ := f.trs.Epoch()
	assert.Equal(t, uint64(1), epoch)

	prev, _ := f.trs.PreviousEpochPrice()
	assert.Equal(t, fixedPoint("900000000000000000"), prev)

	// 3% of circulating becomes the bond budget below the ceiling
	left, _ := f.trs.EpochSupplyContractionLeft()
	assert.Equal(t, ether(300), left)

	// bootstrap mints 5% of supply straight to the masonry
	masonryBal, _ := f.tomb.BalanceOf(f.mas.Address())
	assert.Equal(t, ether(500), masonryBal)
	earned, _ := f.mas.Earned(bob)
	assert.Equal(t, ether(500), earned)

	supply, _ := f.tomb.TotalSupply()
	assert.Equal(t, ether(10_500), supply)
}

func TestAllocationGating(t *testing.T) {
	f := newFixture(t)

	err := f.trs.AllocateSeigniorage(testStart-1, f.operator)
	assert.True(t, reverts.Is(err, reverts.Lifecycle))

	f.allocate(t, "900000000000000000")

	// the next boundary has not been reached yet
	err = f.trs.AllocateSeigniorage(testStart+1, f.operator)
	assert.True(t, reverts.Is(err, reverts.Lifecycle))

	// losing the masonry operator role blocks allocation
	require.NoError(t, f.trs.MasonryTransferOperator(f.operator, alice))
	err = f.trs.AllocateSeigniorage(testStart+tomb.EpochPeriod, f.operator)
	assert.True(t, reverts.Is(err, reverts.Authorization))
}

func TestAllocationReplayGuard(t *testing.T) {
	f := newFixture(t)
	f.price.SetPrice(fixedPoint("1000000000000000000"))

	require.NoError(t, f.trs.AllocateSeigniorage(testStart, f.operator))
	err := f.trs.AllocateSeigniorage(testStart, f.operator)
	assert.True(t, reverts.Is(err, reverts.ReplayGuard))
}

func TestTierClampedExpansion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.trs.SetBootstrap(f.operator, new(big.Int), big.NewInt(500)))

	// price 1.05: the raw 5% expansion exceeds the lowest tier's 4.5%
	// cap and is clamped
	f.allocate(t, "1050000000000000000")

	masonryBal, _ := f.tomb.BalanceOf(f.mas.Address())
	assert.Equal(t, ether(450), masonryBal)

	// the chosen cap persists as the current expansion percent
	maxPct, err := f.trs.param(maxSupplyExpansionKey)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(450), maxPct)

	// above the ceiling no bond budget opens and nothing is reserved
	left, _ := f.trs.EpochSupplyContractionLeft()
	assert.Zero(t, left.Sign())
	reserve, _ := f.trs.Reserve()
	assert.Zero(t, reserve.Sign())
}

func TestBuyBonds(t *testing.T) {
	f := newFixture(t)
	f.allocate(t, "900000000000000000")

	below := fixedPoint("900000000000000000")

	err := f.trs.BuyBonds(f.tick(), alice, new(big.Int), below)
	assert.True(t, reverts.Is(err, reverts.ZeroValue))

	err = f.trs.BuyBonds(f.tick(), alice, ether(100), fixedPoint("950000000000000000"))
	assert.True(t, reverts.Is(err, reverts.StalePrice))

	f.price.SetPrice(tomb.Ether)
	err = f.trs.BuyBonds(f.tick(), alice, ether(100), tomb.Ether)
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	f.price.SetPrice(below)

	err = f.trs.BuyBonds(f.tick(), alice, ether(301), below)
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))

	require.NoError(t, f.tomb.Approve(alice, f.trs.Address(), ether(100)))
	require.NoError(t, f.trs.BuyBonds(f.tick(), alice, ether(100), below))

	tombBal, _ := f.tomb.BalanceOf(alice)
	bondBal, _ := f.tbond.BalanceOf(alice)
	assert.Equal(t, ether(9_900), tombBal)
	// with no discount slope configured bonds sell at par
	assert.Equal(t, ether(100), bondBal)

	left, _ := f.trs.EpochSupplyContractionLeft()
	assert.Equal(t, ether(200), left)

	// burned tomb shrinks total supply
	supply, _ := f.tomb.TotalSupply()
	assert.Equal(t, ether(10_400), supply)
}

func TestBuyBondsDebtRatioCap(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.trs.SetMaxSupplyContractionPercent(f.operator, big.NewInt(1_500)))
	require.NoError(t, f.trs.SetMaxDebtRatioPercent(f.operator, big.NewInt(1_000)))
	f.allocate(t, "900000000000000000")

	// budget is 15% (1500 tomb) but the debt ratio cap is 10% of the
	// 10500 circulating supply
	below := fixedPoint("900000000000000000")
	require.NoError(t, f.tomb.Approve(alice, f.trs.Address(), ether(1_100)))
	err := f.trs.BuyBonds(f.tick(), alice, ether(1_051), below)
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
}

func TestRedeemBonds(t *testing.T) {
	f := newFixture(t)

	// epoch 1: open a bond budget below peg and buy 100 bonds at par
	f.allocate(t, "900000000000000000")
	below := fixedPoint("900000000000000000")
	require.NoError(t, f.tomb.Approve(alice, f.trs.Address(), ether(100)))
	require.NoError(t, f.trs.BuyBonds(f.tick(), alice, ether(100), below))

	// epoch 2: expansion above the ceiling; with outstanding bond debt
	// and an empty reserve part of the seigniorage is reserved
	require.NoError(t, f.trs.SetBootstrap(f.operator, new(big.Int), big.NewInt(500)))
	f.allocate(t, "1050000000000000000")

	reserve, _ := f.trs.Reserve()
	assert.Equal(t, fixedPoint("304200000000000000000"), reserve)
	treasuryBal, _ := f.tomb.BalanceOf(f.trs.Address())
	assert.Equal(t, fixedPoint("304200000000000000000"), treasuryBal)

	above := fixedPoint("1050000000000000000")

	err := f.trs.RedeemBonds(f.tick(), alice, new(big.Int), above)
	assert.True(t, reverts.Is(err, reverts.ZeroValue))

	err = f.trs.RedeemBonds(f.tick(), alice, ether(50), tomb.Ether)
	assert.True(t, reverts.Is(err, reverts.StalePrice))

	f.price.SetPrice(tomb.Ether)
	err = f.trs.RedeemBonds(f.tick(), alice, ether(50), tomb.Ether)
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	f.price.SetPrice(above)

	// 1.05 sits between the ceiling and the 1.10 premium threshold, so
	// bonds redeem at par
	require.NoError(t, f.tbond.Approve(alice, f.trs.Address(), ether(50)))
	require.NoError(t, f.trs.RedeemBonds(f.tick(), alice, ether(50), above))

	tombBal, _ := f.tomb.BalanceOf(alice)
	assert.Equal(t, ether(9_950), tombBal)
	bondBal, _ := f.tbond.BalanceOf(alice)
	assert.Equal(t, ether(50), bondBal)

	reserve, _ = f.trs.Reserve()
	assert.Equal(t, fixedPoint("254200000000000000000"), reserve)

	// the payout cannot exceed the treasury balance
	err = f.trs.RedeemBonds(f.tick(), alice, ether(300), above)
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))
}

func TestDepletionFloorUnits(t *testing.T) {
	f := newFixture(t)

	// epoch 1: open a budget and create 100 outstanding bonds
	f.allocate(t, "900000000000000000")
	require.NoError(t, f.tomb.Approve(alice, f.trs.Address(), ether(100)))
	require.NoError(t, f.trs.BuyBonds(f.tick(), alice, ether(100), fixedPoint("900000000000000000")))
	require.NoError(t, f.trs.SetBootstrap(f.operator, new(big.Int), big.NewInt(500)))

	// the floor compares the tomb-denominated reserve against a percent
	// of the bond supply; at the default 100% floor a reserve equal to
	// the bond supply counts as saved enough
	require.NoError(t, f.st.SetBigInt(f.trs.Address(), reserveKey, ether(100)))

	f.allocate(t, "1050000000000000000")

	// saved-enough branch: the whole seigniorage goes to the masonry
	// and the reserve does not grow
	reserve, _ := f.trs.Reserve()
	assert.Equal(t, ether(100), reserve)

	// supply 10400 - reserve 100, clamped 4.5% expansion on top of the
	// 500 minted during bootstrap
	masonryBal, _ := f.tomb.BalanceOf(f.mas.Address())
	assert.Equal(t, fixedPoint("963500000000000000000"), masonryBal)
}

func TestExtraFundsRouting(t *testing.T) {
	f := newFixture(t)
	dao := tomb.BytesToAddress([]byte("dao-fund"))
	dev := tomb.BytesToAddress([]byte("dev-fund"))
	require.NoError(t, f.trs.SetExtraFunds(f.operator, dao, big.NewInt(1_000), dev, big.NewInt(500)))

	// bootstrap mints 500; 10% to dao, 5% to dev, rest to masonry
	f.allocate(t, "900000000000000000")

	daoBal, _ := f.tomb.BalanceOf(dao)
	devBal, _ := f.tomb.BalanceOf(dev)
	masonryBal, _ := f.tomb.BalanceOf(f.mas.Address())
	assert.Equal(t, ether(50), daoBal)
	assert.Equal(t, ether(25), devBal)
	assert.Equal(t, ether(425), masonryBal)
}

func TestBurnableTombLeft(t *testing.T) {
	f := newFixture(t)
	f.price.SetPrice(fixedPoint("900000000000000000"))

	// no budget before the first allocation
	left, err := f.trs.BurnableTombLeft()
	require.NoError(t, err)
	assert.Zero(t, left.Sign())

	f.allocate(t, "900000000000000000")
	left, _ = f.trs.BurnableTombLeft()
	assert.Equal(t, ether(300), left)

	// above peg there is no burn window
	f.price.SetPrice(fixedPoint("1050000000000000000"))
	left, _ = f.trs.BurnableTombLeft()
	assert.Zero(t, left.Sign())
}

func TestRedeemableBonds(t *testing.T) {
	f := newFixture(t)

	redeemable, err := f.trs.RedeemableBonds()
	require.NoError(t, err)
	assert.Zero(t, redeemable.Sign())

	require.NoError(t, f.tomb.Mint(f.trs.Address(), ether(100)))
	f.price.SetPrice(fixedPoint("1050000000000000000"))

	// at par the whole balance is redeemable
	redeemable, _ = f.trs.RedeemableBonds()
	assert.Equal(t, ether(100), redeemable)
}

func TestUpdatePrice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.trs.UpdatePrice(f.tick()))
	assert.Equal(t, 1, f.price.Updates)
}

func TestSetterBounds(t *testing.T) {
	f := newFixture(t)
	op := f.operator

	err := f.trs.SetPriceCeiling(alice, tomb.InitialPriceCeiling)
	assert.True(t, reverts.Is(err, reverts.Authorization))
	err = f.trs.SetPriceCeiling(op, fixedPoint("900000000000000000"))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetPriceCeiling(op, fixedPoint("1210000000000000000"))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetPriceCeiling(op, fixedPoint("1200000000000000000")))

	err = f.trs.SetMaxSupplyExpansionPercent(op, big.NewInt(9))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetMaxSupplyExpansionPercent(op, big.NewInt(1_001))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetMaxSupplyExpansionPercent(op, big.NewInt(1_000)))

	err = f.trs.SetBondDepletionFloorPercent(op, big.NewInt(499))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetMaxSupplyContractionPercent(op, big.NewInt(99))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetMaxDebtRatioPercent(op, big.NewInt(999))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))

	err = f.trs.SetBootstrap(op, big.NewInt(121), big.NewInt(500))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetBootstrap(op, big.NewInt(12), big.NewInt(99))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetBootstrap(op, big.NewInt(120), big.NewInt(1_000)))

	err = f.trs.SetExtraFunds(op, tomb.Address{}, big.NewInt(100), alice, big.NewInt(100))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetExtraFunds(op, alice, big.NewInt(3_001), bob, big.NewInt(100))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))

	err = f.trs.SetDiscountPercent(op, big.NewInt(20_001))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetPremiumPercent(op, big.NewInt(20_001))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))

	err = f.trs.SetMintingFactorForPayingDebt(op, big.NewInt(9_999))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetMintingFactorForPayingDebt(op, big.NewInt(20_001))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetMintingFactorForPayingDebt(op, big.NewInt(15_000)))
}

func TestSetPremiumThreshold(t *testing.T) {
	f := newFixture(t)

	// the ceiling is 1.01, so the threshold floor is 101
	err := f.trs.SetPremiumThreshold(f.operator, big.NewInt(100))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetPremiumThreshold(f.operator, big.NewInt(151))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetPremiumThreshold(f.operator, big.NewInt(120)))
}

func TestSetSupplyTiersEntry(t *testing.T) {
	f := newFixture(t)
	op := f.operator

	err := f.trs.SetSupplyTiersEntry(op, 0, ether(1))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetSupplyTiersEntry(op, 9, ether(1))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))

	// tier 1 must stay strictly between tier 0 (0) and tier 2 (1M)
	err = f.trs.SetSupplyTiersEntry(op, 1, new(big.Int))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetSupplyTiersEntry(op, 1, ether(1_000_000))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetSupplyTiersEntry(op, 1, ether(600_000)))

	// the topmost tier has no upper neighbour
	assert.NoError(t, f.trs.SetSupplyTiersEntry(op, 8, ether(90_000_000)))
}

func TestSetMaxExpansionTiersEntry(t *testing.T) {
	f := newFixture(t)

	err := f.trs.SetMaxExpansionTiersEntry(f.operator, 9, big.NewInt(100))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	err = f.trs.SetMaxExpansionTiersEntry(f.operator, 0, big.NewInt(9))
	assert.True(t, reverts.Is(err, reverts.RangeViolation))
	assert.NoError(t, f.trs.SetMaxExpansionTiersEntry(f.operator, 0, big.NewInt(500)))

	// the new cap drives the next expansion
	maxPct, err := f.trs.MaxSupplyExpansionPercent(ether(10_000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), maxPct)
}

func TestMasonryLockupPassthrough(t *testing.T) {
	f := newFixture(t)

	err := f.trs.MasonrySetLockup(alice, 10, 5)
	assert.True(t, reverts.Is(err, reverts.Authorization))

	require.NoError(t, f.trs.MasonrySetLockup(f.operator, 10, 5))
	withdrawLockup, _ := f.mas.WithdrawLockupEpochs()
	assert.Equal(t, uint64(10), withdrawLockup)
}

func TestRecoverUnsupportedToken(t *testing.T) {
	f := newFixture(t)
	out := tomb.BytesToAddress([]byte("out"))

	for _, core := range []*token.Token{f.tomb, f.tbond, f.tshare} {
		err := f.trs.RecoverUnsupportedToken(f.operator, core, big.NewInt(1), out)
		assert.True(t, reverts.Is(err, reverts.InvalidToken))
	}

	stray := token.New("STRAY", tomb.BytesToAddress([]byte("stray")), f.st)
	require.NoError(t, stray.Mint(f.trs.Address(), big.NewInt(9)))
	require.NoError(t, f.trs.RecoverUnsupportedToken(f.operator, stray, big.NewInt(9), out))
	bal, _ := stray.BalanceOf(out)
	assert.Equal(t, big.NewInt(9), bal)
}
