// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package treasury

import (
	"math/big"

	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/tomb"
)

// The setter family. Every setter is operator-only and enforces the
// documented bounds; a violation reverts with RangeViolation.

func (t *Treasury) setParam(sender tomb.Address, key tomb.Bytes32, v *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		return t.state.SetBigInt(t.addr, key, v)
	})
}

func (t *Treasury) setBoundedParam(sender tomb.Address, key tomb.Bytes32, v, min, max *big.Int, what string) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: %s out of range: %v", what, v)
		}
		return t.state.SetBigInt(t.addr, key, v)
	})
}

// SetOperator hands the operator role over.
func (t *Treasury) SetOperator(sender, operator tomb.Address) error {
	return t.state.Atomic(func() error {
		return t.guard.TransferOperator(sender, operator)
	})
}

// SetPriceCeiling bounds the ceiling to [one, 1.2*one].
func (t *Treasury) SetPriceCeiling(sender tomb.Address, ceiling *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		one, err := t.param(priceOneKey)
		if err != nil {
			return err
		}
		max := tomb.MulDiv(one, big.NewInt(120), big.NewInt(100))
		if ceiling.Cmp(one) < 0 || ceiling.Cmp(max) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: price ceiling out of range: %v", ceiling)
		}
		return t.state.SetBigInt(t.addr, priceCeilingKey, ceiling)
	})
}

// SetMaxSupplyExpansionPercent bounds the expansion cap to [0.1%, 10%].
func (t *Treasury) SetMaxSupplyExpansionPercent(sender tomb.Address, percent *big.Int) error {
	return t.setBoundedParam(sender, maxSupplyExpansionKey, percent,
		big.NewInt(10), big.NewInt(1000), "max supply expansion percent")
}

// SetSupplyTiersEntry replaces one supply-tier threshold. The genesis
// tier at index 0 is fixed; every new value must stay strictly between
// its neighbours.
func (t *Treasury) SetSupplyTiersEntry(sender tomb.Address, index int, value *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		if index < 1 || index >= tomb.SupplyTierCount {
			return reverts.New(reverts.RangeViolation, "treasury: tier index out of range: %d", index)
		}
		tiers, err := t.getTiers(supplyTiersKey)
		if err != nil {
			return err
		}
		if value.Cmp(tiers[index-1]) <= 0 {
			return reverts.New(reverts.RangeViolation, "treasury: tier value %v not above lower neighbour", value)
		}
		if index < tomb.SupplyTierCount-1 && value.Cmp(tiers[index+1]) >= 0 {
			return reverts.New(reverts.RangeViolation, "treasury: tier value %v not below upper neighbour", value)
		}
		tiers[index] = value
		return t.setTiers(supplyTiersKey, tiers)
	})
}

// SetMaxExpansionTiersEntry replaces one expansion-tier cap, bounded to
// [0.1%, 10%].
func (t *Treasury) SetMaxExpansionTiersEntry(sender tomb.Address, index int, value *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		if index < 0 || index >= tomb.SupplyTierCount {
			return reverts.New(reverts.RangeViolation, "treasury: tier index out of range: %d", index)
		}
		if value.Cmp(big.NewInt(10)) < 0 || value.Cmp(big.NewInt(1000)) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: expansion tier value out of range: %v", value)
		}
		tiers, err := t.getTiers(expansionTiersKey)
		if err != nil {
			return err
		}
		tiers[index] = value
		return t.setTiers(expansionTiersKey, tiers)
	})
}

// SetBondDepletionFloorPercent bounds the depletion floor to [5%, 100%].
func (t *Treasury) SetBondDepletionFloorPercent(sender tomb.Address, percent *big.Int) error {
	return t.setBoundedParam(sender, depletionFloorKey, percent,
		big.NewInt(500), big.NewInt(10_000), "bond depletion floor percent")
}

// SetMaxSupplyContractionPercent bounds the contraction cap to [1%, 15%].
func (t *Treasury) SetMaxSupplyContractionPercent(sender tomb.Address, percent *big.Int) error {
	return t.setBoundedParam(sender, maxContractionKey, percent,
		big.NewInt(100), big.NewInt(1_500), "max supply contraction percent")
}

// SetMaxDebtRatioPercent bounds the debt ratio cap to [10%, 100%].
func (t *Treasury) SetMaxDebtRatioPercent(sender tomb.Address, percent *big.Int) error {
	return t.setBoundedParam(sender, maxDebtRatioKey, percent,
		big.NewInt(1_000), big.NewInt(10_000), "max debt ratio percent")
}

// SetBootstrap reconfigures the bootstrap window: at most 120 epochs,
// expansion within [1%, 10%].
func (t *Treasury) SetBootstrap(sender tomb.Address, epochs, expansionPercent *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		if epochs.Cmp(big.NewInt(tomb.MaxBootstrapEpochs)) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: bootstrap epochs out of range: %v", epochs)
		}
		if expansionPercent.Cmp(big.NewInt(100)) < 0 || expansionPercent.Cmp(big.NewInt(1000)) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: bootstrap expansion percent out of range: %v", expansionPercent)
		}
		if err := t.state.SetBigInt(t.addr, bootstrapEpochsKey, epochs); err != nil {
			return err
		}
		return t.state.SetBigInt(t.addr, bootstrapExpansionKey, expansionPercent)
	})
}

// SetExtraFunds configures the dao and dev fund cuts, dao at most 30%,
// dev at most 10%. Zero addresses are rejected.
func (t *Treasury) SetExtraFunds(sender, daoFund tomb.Address, daoPercent *big.Int, devFund tomb.Address, devPercent *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		if daoFund.IsZero() || devFund.IsZero() {
			return reverts.New(reverts.RangeViolation, "treasury: zero fund address")
		}
		if daoPercent.Cmp(big.NewInt(3_000)) > 0 || devPercent.Cmp(big.NewInt(1_000)) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: fund shared percent out of range")
		}
		if err := t.state.SetAddress(t.addr, daoFundKey, daoFund); err != nil {
			return err
		}
		if err := t.state.SetBigInt(t.addr, daoPercentKey, daoPercent); err != nil {
			return err
		}
		if err := t.state.SetAddress(t.addr, devFundKey, devFund); err != nil {
			return err
		}
		return t.state.SetBigInt(t.addr, devPercentKey, devPercent)
	})
}

// SetMaxDiscountRate caps the discount curve; zero disables the cap.
func (t *Treasury) SetMaxDiscountRate(sender tomb.Address, rate *big.Int) error {
	return t.setParam(sender, maxDiscountRateKey, rate)
}

// SetMaxPremiumRate caps the premium curve; zero disables the cap.
func (t *Treasury) SetMaxPremiumRate(sender tomb.Address, rate *big.Int) error {
	return t.setParam(sender, maxPremiumRateKey, rate)
}

// SetDiscountPercent bounds the discount slope to at most 200%.
func (t *Treasury) SetDiscountPercent(sender tomb.Address, percent *big.Int) error {
	return t.setBoundedParam(sender, discountPercentKey, percent,
		new(big.Int), big.NewInt(20_000), "discount percent")
}

// SetPremiumPercent bounds the premium slope to at most 200%.
func (t *Treasury) SetPremiumPercent(sender tomb.Address, percent *big.Int) error {
	return t.setBoundedParam(sender, premiumPercentKey, percent,
		new(big.Int), big.NewInt(20_000), "premium percent")
}

// SetPremiumThreshold bounds the threshold, a price multiple over 100,
// to [ceiling/1e16, 150].
func (t *Treasury) SetPremiumThreshold(sender tomb.Address, threshold *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		ceiling, err := t.param(priceCeilingKey)
		if err != nil {
			return err
		}
		min := new(big.Int).Div(ceiling, big.NewInt(1e16))
		if threshold.Cmp(min) < 0 || threshold.Cmp(big.NewInt(150)) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: premium threshold out of range: %v", threshold)
		}
		return t.state.SetBigInt(t.addr, premiumThresholdKey, threshold)
	})
}

// SetMintingFactorForPayingDebt bounds the debt top-up factor to
// [100%, 200%].
func (t *Treasury) SetMintingFactorForPayingDebt(sender tomb.Address, factor *big.Int) error {
	return t.setBoundedParam(sender, mintingFactorKey, factor,
		big.NewInt(10_000), big.NewInt(20_000), "minting factor for paying debt")
}

// SetBondSupplyExpansionPercent sets the unconditional bond-treasury
// routing fraction.
func (t *Treasury) SetBondSupplyExpansionPercent(sender tomb.Address, percent *big.Int) error {
	return t.setParam(sender, bondExpansionKey, percent)
}

// MasonrySetLockup forwards a lockup change to the masonry through the
// treasury's operator role over it.
func (t *Treasury) MasonrySetLockup(sender tomb.Address, withdrawEpochs, rewardEpochs uint64) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		return t.masonry.SetLockup(t.addr, withdrawEpochs, rewardEpochs)
	})
}

// MasonryTransferOperator hands the masonry's operator role over.
func (t *Treasury) MasonryTransferOperator(sender, operator tomb.Address) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		return t.masonry.Guard().TransferOperator(t.addr, operator)
	})
}
