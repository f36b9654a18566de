// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tomb

import "math/big"

// Constants of the monetary policy. Prices are 18-decimal fixed point,
// percents are integers over a 10000 denominator.
var (
	// Ether is the 18-decimal fixed-point unit.
	Ether = big.NewInt(1e18)

	// PercentDenom is the denominator of all percentage parameters.
	PercentDenom = big.NewInt(10_000)

	// InitialPriceOne is the target peg, 1.0 fixed point.
	InitialPriceOne = new(big.Int).Set(Ether)

	// InitialPriceCeiling is peg * 1.01.
	InitialPriceCeiling = new(big.Int).Div(new(big.Int).Mul(Ether, big.NewInt(101)), big.NewInt(100))
)

// Default policy parameters, matching the genesis configuration of the
// protocol. All of them are operator-adjustable within bounds after
// initialization.
const (
	EpochPeriod = 21_600 // 6h, in seconds

	MinEpochPeriod = 3_600      // 1h
	MaxEpochPeriod = 48 * 3_600 // 48h

	DefaultMaxSupplyExpansionPercent    = 400
	DefaultBondDepletionFloorPercent    = 10_000
	DefaultSeigniorageExpansionFloorPct = 3_500
	DefaultMaxSupplyContractionPercent  = 300
	DefaultMaxDebtRatioPercent          = 3_500
	DefaultBondSupplyExpansionPercent   = 500

	DefaultPremiumThreshold = 110
	DefaultPremiumPercent   = 7_000

	// First 12 epochs expand 5% each regardless of price.
	DefaultBootstrapEpochs          = 12
	DefaultBootstrapExpansionPct    = 500
	MaxBootstrapEpochs              = 120
	MaxLockupEpochs                 = 56
	DefaultWithdrawLockupEpochs     = 6
	DefaultRewardLockupEpochs       = 3
	DefaultBondVestingPeriodSeconds = 3 * 24 * 3_600
)

// SupplyTierCount is the length of the expansion tier tables.
const SupplyTierCount = 9

// DefaultSupplyTiers returns the supply thresholds of the expansion
// tier table, in token wei. Strictly increasing.
func DefaultSupplyTiers() []*big.Int {
	tiers := make([]*big.Int, 0, SupplyTierCount)
	for _, m := range []int64{0, 500_000, 1_000_000, 1_500_000, 2_000_000, 5_000_000, 10_000_000, 20_000_000, 50_000_000} {
		tiers = append(tiers, new(big.Int).Mul(big.NewInt(m), Ether))
	}
	return tiers
}

// DefaultExpansionTiers returns the max expansion percent paired with
// each supply tier.
func DefaultExpansionTiers() []*big.Int {
	tiers := make([]*big.Int, 0, SupplyTierCount)
	for _, p := range []int64{450, 400, 350, 300, 250, 200, 150, 125, 100} {
		tiers = append(tiers, big.NewInt(p))
	}
	return tiers
}
