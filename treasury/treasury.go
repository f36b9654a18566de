// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package treasury implements the monetary-policy core: the epoch-gated
// seigniorage allocation that expands supply above the peg, and the
// bond market that contracts it below the peg.
package treasury

import (
	"math/big"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tombchain/tombcore/bondtreasury"
	"github.com/tombchain/tombcore/epoch"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/masonry"
	"github.com/tombchain/tombcore/metrics"
	"github.com/tombchain/tombcore/oracle"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/token"
	"github.com/tombchain/tombcore/tomb"
)

var logger = log.New("pkg", "treasury")

var (
	initializedKey        = tomb.Keccak256([]byte("treasury-initialized"))
	reserveKey            = tomb.Keccak256([]byte("seigniorage-saved"))
	prevEpochPriceKey     = tomb.Keccak256([]byte("previous-epoch-price"))
	contractionLeftKey    = tomb.Keccak256([]byte("epoch-supply-contraction-left"))
	priceOneKey           = tomb.Keccak256([]byte("price-one"))
	priceCeilingKey       = tomb.Keccak256([]byte("price-ceiling"))
	excludedKey           = tomb.Keccak256([]byte("excluded-from-total-supply"))
	supplyTiersKey        = tomb.Keccak256([]byte("supply-tiers"))
	expansionTiersKey     = tomb.Keccak256([]byte("max-expansion-tiers"))
	maxSupplyExpansionKey = tomb.Keccak256([]byte("max-supply-expansion-percent"))
	depletionFloorKey     = tomb.Keccak256([]byte("bond-depletion-floor-percent"))
	seigniorageFloorKey   = tomb.Keccak256([]byte("seigniorage-expansion-floor-percent"))
	maxContractionKey     = tomb.Keccak256([]byte("max-supply-contraction-percent"))
	maxDebtRatioKey       = tomb.Keccak256([]byte("max-debt-ratio-percent"))
	bondExpansionKey      = tomb.Keccak256([]byte("bond-supply-expansion-percent"))
	bootstrapEpochsKey    = tomb.Keccak256([]byte("bootstrap-epochs"))
	bootstrapExpansionKey = tomb.Keccak256([]byte("bootstrap-supply-expansion-percent"))
	maxDiscountRateKey    = tomb.Keccak256([]byte("max-discount-rate"))
	maxPremiumRateKey     = tomb.Keccak256([]byte("max-premium-rate"))
	discountPercentKey    = tomb.Keccak256([]byte("discount-percent"))
	premiumPercentKey     = tomb.Keccak256([]byte("premium-percent"))
	premiumThresholdKey   = tomb.Keccak256([]byte("premium-threshold"))
	mintingFactorKey      = tomb.Keccak256([]byte("minting-factor-for-paying-debt"))
	daoFundKey            = tomb.Keccak256([]byte("dao-fund"))
	daoPercentKey         = tomb.Keccak256([]byte("dao-fund-shared-percent"))
	devFundKey            = tomb.Keccak256([]byte("dev-fund"))
	devPercentKey         = tomb.Keccak256([]byte("dev-fund-shared-percent"))
)

// Treasury orchestrates the policy components around the three token
// ledgers. It owns the shared epoch clock; the masonry's operator must
// be the treasury address for seigniorage forwarding to work.
type Treasury struct {
	addr   tomb.Address
	state  *state.State
	guard  *guard.Guard
	clock  *epoch.Clock
	oracle oracle.Source

	tomb   *token.Token
	tbond  *token.Token
	tshare *token.Token

	masonry *masonry.Masonry
	bonds   *bondtreasury.BondTreasury
}

// New create a treasury instance wired to its collaborators.
func New(
	addr tomb.Address,
	st *state.State,
	src oracle.Source,
	tombToken, tbondToken, tshareToken *token.Token,
	mas *masonry.Masonry,
	bonds *bondtreasury.BondTreasury,
) *Treasury {
	g := guard.New(addr, st)
	return &Treasury{
		addr:    addr,
		state:   st,
		guard:   g,
		clock:   epoch.New(addr, st, g),
		oracle:  src,
		tomb:    tombToken,
		tbond:   tbondToken,
		tshare:  tshareToken,
		masonry: mas,
		bonds:   bonds,
	}
}

// Address returns the treasury's contract address.
func (t *Treasury) Address() tomb.Address { return t.addr }

// Guard returns the treasury's access guard.
func (t *Treasury) Guard() *guard.Guard { return t.guard }

// Clock returns the shared epoch clock.
func (t *Treasury) Clock() *epoch.Clock { return t.clock }

// Initialize sets up the full default parameter set, seeds the
// excluded-address list with the genesis pool and the bond treasury,
// seeds the reserve from the treasury's current tomb balance, and makes
// sender the operator.
func (t *Treasury) Initialize(sender, genesisPool tomb.Address, startTime uint64) error {
	return t.state.Atomic(func() error {
		initialized, err := t.state.GetUint64(t.addr, initializedKey)
		if err != nil {
			return err
		}
		if initialized != 0 {
			return reverts.New(reverts.Lifecycle, "treasury: already initialized")
		}
		if err := t.clock.Initialize(tomb.EpochPeriod, startTime, 0); err != nil {
			return err
		}
		if err := t.state.SetBigInt(t.addr, priceOneKey, tomb.InitialPriceOne); err != nil {
			return err
		}
		if err := t.state.SetBigInt(t.addr, priceCeilingKey, tomb.InitialPriceCeiling); err != nil {
			return err
		}
		if err := t.setExcluded([]tomb.Address{genesisPool, t.bonds.Address()}); err != nil {
			return err
		}
		if err := t.setTiers(supplyTiersKey, tomb.DefaultSupplyTiers()); err != nil {
			return err
		}
		if err := t.setTiers(expansionTiersKey, tomb.DefaultExpansionTiers()); err != nil {
			return err
		}
		defaults := map[tomb.Bytes32]int64{
			maxSupplyExpansionKey: tomb.DefaultMaxSupplyExpansionPercent,
			depletionFloorKey:     tomb.DefaultBondDepletionFloorPercent,
			seigniorageFloorKey:   tomb.DefaultSeigniorageExpansionFloorPct,
			maxContractionKey:     tomb.DefaultMaxSupplyContractionPercent,
			maxDebtRatioKey:       tomb.DefaultMaxDebtRatioPercent,
			bondExpansionKey:      tomb.DefaultBondSupplyExpansionPercent,
			premiumThresholdKey:   tomb.DefaultPremiumThreshold,
			premiumPercentKey:     tomb.DefaultPremiumPercent,
			bootstrapEpochsKey:    tomb.DefaultBootstrapEpochs,
			bootstrapExpansionKey: tomb.DefaultBootstrapExpansionPct,
		}
		for key, v := range defaults {
			if err := t.state.SetBigInt(t.addr, key, big.NewInt(v)); err != nil {
				return err
			}
		}
		balance, err := t.tomb.BalanceOf(t.addr)
		if err != nil {
			return err
		}
		if err := t.state.SetBigInt(t.addr, reserveKey, balance); err != nil {
			return err
		}
		if err := t.guard.InitOperator(sender); err != nil {
			return err
		}
		return t.state.SetUint64(t.addr, initializedKey, 1)
	})
}

func (t *Treasury) param(key tomb.Bytes32) (*big.Int, error) {
	return t.state.GetBigInt(t.addr, key)
}

func (t *Treasury) getTiers(key tomb.Bytes32) ([]*big.Int, error) {
	var tiers []*big.Int
	if err := t.state.DecodeStorage(t.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &tiers)
	}); err != nil {
		return nil, err
	}
	return tiers, nil
}

func (t *Treasury) setTiers(key tomb.Bytes32, tiers []*big.Int) error {
	return t.state.EncodeStorage(t.addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(tiers)
	})
}

func (t *Treasury) excluded() ([]tomb.Address, error) {
	var addrs []tomb.Address
	if err := t.state.DecodeStorage(t.addr, excludedKey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &addrs)
	}); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (t *Treasury) setExcluded(addrs []tomb.Address) error {
	return t.state.EncodeStorage(t.addr, excludedKey, func() ([]byte, error) {
		return rlp.EncodeToBytes(addrs)
	})
}

// requirePermissions verifies the treasury holds the operator role over
// the masonry, without which it cannot forward seigniorage.
func (t *Treasury) requirePermissions() error {
	operator, err := t.masonry.Guard().Operator()
	if err != nil {
		return err
	}
	if operator != t.addr {
		return reverts.New(reverts.Authorization, "treasury: needs operator permission over the masonry")
	}
	return nil
}

// Epoch returns the current epoch counter.
func (t *Treasury) Epoch() (uint64, error) {
	return t.clock.Current()
}

// NextEpochPoint returns the time the next epoch opens.
func (t *Treasury) NextEpochPoint() (uint64, error) {
	return t.clock.NextEpochPoint()
}

// Price returns the oracle consult price for one tomb, 1e18 fixed point.
func (t *Treasury) Price() (*big.Int, error) {
	return t.oracle.Consult(t.tomb.Address(), tomb.Ether)
}

// UpdatedPrice returns the oracle TWAP price for one tomb.
func (t *Treasury) UpdatedPrice() (*big.Int, error) {
	return t.oracle.TWAP(t.tomb.Address(), tomb.Ether)
}

// Reserve returns the seigniorage saved for bond redemption.
func (t *Treasury) Reserve() (*big.Int, error) {
	return t.param(reserveKey)
}

// PreviousEpochPrice returns the price recorded at the last allocation.
func (t *Treasury) PreviousEpochPrice() (*big.Int, error) {
	return t.param(prevEpochPriceKey)
}

// EpochSupplyContractionLeft returns the remaining bond-issuance budget
// of the current epoch.
func (t *Treasury) EpochSupplyContractionLeft() (*big.Int, error) {
	return t.param(contractionLeftKey)
}

// CirculatingSupply returns the tomb total supply minus the balances of
// the excluded addresses.
func (t *Treasury) CirculatingSupply() (*big.Int, error) {
	supply, err := t.tomb.TotalSupply()
	if err != nil {
		return nil, err
	}
	excluded, err := t.excluded()
	if err != nil {
		return nil, err
	}
	circulating := new(big.Int).Set(supply)
	for _, addr := range excluded {
		balance, err := t.tomb.BalanceOf(addr)
		if err != nil {
			return nil, err
		}
		circulating.Sub(circulating, balance)
	}
	return circulating, nil
}

// MaxSupplyExpansionPercent returns the expansion cap for the given
// circulating supply: the entry paired with the largest tier threshold
// not exceeding it, searched top down.
func (t *Treasury) MaxSupplyExpansionPercent(supply *big.Int) (*big.Int, error) {
	supplyTiers, err := t.getTiers(supplyTiersKey)
	if err != nil {
		return nil, err
	}
	expansionTiers, err := t.getTiers(expansionTiersKey)
	if err != nil {
		return nil, err
	}
	for i := len(supplyTiers) - 1; i >= 0; i-- {
		if supply.Cmp(supplyTiers[i]) >= 0 {
			return expansionTiers[i], nil
		}
	}
	return t.param(maxSupplyExpansionKey)
}

// BondDiscountRate returns the current tomb-to-bond rate.
func (t *Treasury) BondDiscountRate() (*big.Int, error) {
	price, err := t.Price()
	if err != nil {
		return nil, err
	}
	one, err := t.param(priceOneKey)
	if err != nil {
		return nil, err
	}
	discountPercent, err := t.param(discountPercentKey)
	if err != nil {
		return nil, err
	}
	maxRate, err := t.param(maxDiscountRateKey)
	if err != nil {
		return nil, err
	}
	return DiscountRate(price, one, discountPercent, maxRate), nil
}

// BondPremiumRate returns the current bond-to-tomb rate.
func (t *Treasury) BondPremiumRate() (*big.Int, error) {
	price, err := t.Price()
	if err != nil {
		return nil, err
	}
	one, err := t.param(priceOneKey)
	if err != nil {
		return nil, err
	}
	ceiling, err := t.param(priceCeilingKey)
	if err != nil {
		return nil, err
	}
	premiumThreshold, err := t.param(premiumThresholdKey)
	if err != nil {
		return nil, err
	}
	premiumPercent, err := t.param(premiumPercentKey)
	if err != nil {
		return nil, err
	}
	maxRate, err := t.param(maxPremiumRateKey)
	if err != nil {
		return nil, err
	}
	return PremiumRate(price, one, ceiling, premiumThreshold, premiumPercent, maxRate), nil
}

// BurnableTombLeft returns how much tomb can still be burned for bonds
// this epoch: the smaller of the contraction budget and the debt-ratio
// headroom, zero above peg.
func (t *Treasury) BurnableTombLeft() (*big.Int, error) {
	price, err := t.Price()
	if err != nil {
		return nil, err
	}
	one, err := t.param(priceOneKey)
	if err != nil {
		return nil, err
	}
	if price.Cmp(one) > 0 {
		return new(big.Int), nil
	}
	supply, err := t.CirculatingSupply()
	if err != nil {
		return nil, err
	}
	maxDebtRatio, err := t.param(maxDebtRatioKey)
	if err != nil {
		return nil, err
	}
	bondMaxSupply := tomb.Percent(supply, maxDebtRatio)
	bondSupply, err := t.tbond.TotalSupply()
	if err != nil {
		return nil, err
	}
	if bondMaxSupply.Cmp(bondSupply) <= 0 {
		return new(big.Int), nil
	}
	maxMintableBond := new(big.Int).Sub(bondMaxSupply, bondSupply)
	maxBurnable := tomb.MulDiv(maxMintableBond, price, tomb.Ether)
	left, err := t.param(contractionLeftKey)
	if err != nil {
		return nil, err
	}
	if left.Cmp(maxBurnable) > 0 {
		return maxBurnable, nil
	}
	return left, nil
}

// RedeemableBonds returns how many bonds the treasury balance can
// redeem at the current premium rate, zero at or below the ceiling.
func (t *Treasury) RedeemableBonds() (*big.Int, error) {
	price, err := t.Price()
	if err != nil {
		return nil, err
	}
	ceiling, err := t.param(priceCeilingKey)
	if err != nil {
		return nil, err
	}
	if price.Cmp(ceiling) <= 0 {
		return new(big.Int), nil
	}
	balance, err := t.tomb.BalanceOf(t.addr)
	if err != nil {
		return nil, err
	}
	rate, err := t.BondPremiumRate()
	if err != nil {
		return nil, err
	}
	if rate.Sign() == 0 {
		return new(big.Int), nil
	}
	return tomb.MulDiv(balance, tomb.Ether, rate), nil
}

// UpdatePrice refreshes the oracle's epoch window.
func (t *Treasury) UpdatePrice(now uint64) error {
	return t.state.Atomic(func() error {
		return t.oracle.Update(now)
	})
}

// BuyBonds burns tomb from the sender below the peg and mints bonds at
// the discount rate, consuming the epoch's contraction budget. The
// sender must have approved the treasury over the burned amount.
// targetPrice pins the quoted price; any movement aborts.
func (t *Treasury) BuyBonds(now uint64, sender tomb.Address, amount, targetPrice *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.clock.CheckStart(now); err != nil {
			return err
		}
		if err := t.requirePermissions(); err != nil {
			return err
		}
		if err := t.guard.OncePerTick(now, sender); err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return reverts.New(reverts.ZeroValue, "treasury: cannot purchase bonds with zero amount")
		}
		price, err := t.Price()
		if err != nil {
			return err
		}
		if price.Cmp(targetPrice) != 0 {
			return reverts.New(reverts.StalePrice, "treasury: price moved")
		}
		one, err := t.param(priceOneKey)
		if err != nil {
			return err
		}
		if price.Cmp(one) >= 0 {
			return reverts.New(reverts.RangeViolation, "treasury: price not eligible for bond purchase")
		}
		left, err := t.param(contractionLeftKey)
		if err != nil {
			return err
		}
		if amount.Cmp(left) > 0 {
			return reverts.New(reverts.InsufficientFunds, "treasury: not enough bond left to purchase")
		}
		rate, err := t.BondDiscountRate()
		if err != nil {
			return err
		}
		if rate.Sign() <= 0 {
			return reverts.New(reverts.RangeViolation, "treasury: invalid bond rate")
		}
		bondAmount := tomb.MulDiv(amount, rate, tomb.Ether)
		supply, err := t.CirculatingSupply()
		if err != nil {
			return err
		}
		bondSupply, err := t.tbond.TotalSupply()
		if err != nil {
			return err
		}
		maxDebtRatio, err := t.param(maxDebtRatioKey)
		if err != nil {
			return err
		}
		newBondSupply := new(big.Int).Add(bondSupply, bondAmount)
		if newBondSupply.Cmp(tomb.Percent(supply, maxDebtRatio)) > 0 {
			return reverts.New(reverts.RangeViolation, "treasury: over max debt ratio")
		}
		if err := t.tomb.BurnFrom(t.addr, sender, amount); err != nil {
			return err
		}
		if err := t.tbond.Mint(sender, bondAmount); err != nil {
			return err
		}
		if err := t.state.SetBigInt(t.addr, contractionLeftKey, new(big.Int).Sub(left, amount)); err != nil {
			return err
		}
		if err := t.oracle.Update(now); err != nil {
			return err
		}
		metrics.Counter("bonds_bought_count").Add(1)
		logger.Debug("bonds bought", "sender", sender, "tomb", amount, "bonds", bondAmount, "rate", rate)
		return nil
	})
}

// RedeemBonds burns bonds from the sender above the ceiling and pays
// out tomb at the premium rate, drawing down the reserve. The sender
// must have approved the treasury over the burned bonds.
func (t *Treasury) RedeemBonds(now uint64, sender tomb.Address, amount, targetPrice *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.clock.CheckStart(now); err != nil {
			return err
		}
		if err := t.requirePermissions(); err != nil {
			return err
		}
		if err := t.guard.OncePerTick(now, sender); err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return reverts.New(reverts.ZeroValue, "treasury: cannot redeem bonds with zero amount")
		}
		price, err := t.Price()
		if err != nil {
			return err
		}
		if price.Cmp(targetPrice) != 0 {
			return reverts.New(reverts.StalePrice, "treasury: price moved")
		}
		ceiling, err := t.param(priceCeilingKey)
		if err != nil {
			return err
		}
		if price.Cmp(ceiling) <= 0 {
			return reverts.New(reverts.RangeViolation, "treasury: price not eligible for bond redemption")
		}
		rate, err := t.BondPremiumRate()
		if err != nil {
			return err
		}
		if rate.Sign() <= 0 {
			return reverts.New(reverts.RangeViolation, "treasury: invalid bond rate")
		}
		tombAmount := tomb.MulDiv(amount, rate, tomb.Ether)
		balance, err := t.tomb.BalanceOf(t.addr)
		if err != nil {
			return err
		}
		if balance.Cmp(tombAmount) < 0 {
			return reverts.New(reverts.InsufficientFunds, "treasury: treasury has no more budget")
		}
		reserve, err := t.Reserve()
		if err != nil {
			return err
		}
		if reserve.Cmp(tombAmount) > 0 {
			reserve = new(big.Int).Sub(reserve, tombAmount)
		} else {
			reserve = new(big.Int)
		}
		if err := t.state.SetBigInt(t.addr, reserveKey, reserve); err != nil {
			return err
		}
		if err := t.tbond.BurnFrom(t.addr, sender, amount); err != nil {
			return err
		}
		if err := t.tomb.Transfer(t.addr, sender, tombAmount); err != nil {
			return err
		}
		if err := t.oracle.Update(now); err != nil {
			return err
		}
		metrics.Counter("bonds_redeemed_count").Add(1)
		logger.Debug("bonds redeemed", "sender", sender, "bonds", amount, "tomb", tombAmount, "rate", rate)
		return nil
	})
}

// AllocateSeigniorage advances the epoch and runs one allocation round:
// refresh the oracle, record the epoch price, reset the contraction
// budget, route the bond-treasury expansion, then either the bootstrap
// override or the tiered price-driven expansion.
func (t *Treasury) AllocateSeigniorage(now uint64, sender tomb.Address) error {
	return t.state.Atomic(func() error {
		if err := t.clock.CheckStart(now); err != nil {
			return err
		}
		if err := t.guard.OncePerTick(now, sender); err != nil {
			return err
		}
		if err := t.clock.Advance(now); err != nil {
			return err
		}
		if err := t.requirePermissions(); err != nil {
			return err
		}
		if err := t.oracle.Update(now); err != nil {
			return err
		}
		price, err := t.Price()
		if err != nil {
			return err
		}
		if err := t.state.SetBigInt(t.addr, prevEpochPriceKey, price); err != nil {
			return err
		}
		circulating, err := t.CirculatingSupply()
		if err != nil {
			return err
		}
		reserve, err := t.Reserve()
		if err != nil {
			return err
		}
		supply := new(big.Int).Sub(circulating, reserve)
		if supply.Sign() < 0 {
			supply = new(big.Int)
		}
		ceiling, err := t.param(priceCeilingKey)
		if err != nil {
			return err
		}
		if err := t.resetContractionBudget(price, ceiling, circulating); err != nil {
			return err
		}
		bondExpansion, err := t.param(bondExpansionKey)
		if err != nil {
			return err
		}
		if err := t.sendToBondTreasury(tomb.Percent(supply, bondExpansion)); err != nil {
			return err
		}
		current, err := t.clock.Current()
		if err != nil {
			return err
		}
		bootstrapEpochs, err := t.param(bootstrapEpochsKey)
		if err != nil {
			return err
		}
		if new(big.Int).SetUint64(current).Cmp(bootstrapEpochs) < 0 {
			bootstrapExpansion, err := t.param(bootstrapExpansionKey)
			if err != nil {
				return err
			}
			minted := tomb.Percent(supply, bootstrapExpansion)
			if err := t.sendToMasonry(now, minted); err != nil {
				return err
			}
			logger.Info("bootstrap expansion", "epoch", current, "minted", minted)
		} else if price.Cmp(ceiling) > 0 {
			if err := t.expand(now, current, price, supply, reserve); err != nil {
				return err
			}
		} else {
			logger.Info("no expansion", "epoch", current, "price", price)
		}
		metrics.Counter("epochs_advanced_count").Add(1)
		return nil
	})
}

// expand runs the tiered price-driven expansion of one epoch.
func (t *Treasury) expand(now, current uint64, price, supply, reserve *big.Int) error {
	one, err := t.param(priceOneKey)
	if err != nil {
		return err
	}
	bondSupply, err := t.tbond.TotalSupply()
	if err != nil {
		return err
	}
	maxPct, err := t.MaxSupplyExpansionPercent(supply)
	if err != nil {
		return err
	}
	// the chosen tier cap persists as the current expansion percent
	if err := t.state.SetBigInt(t.addr, maxSupplyExpansionKey, maxPct); err != nil {
		return err
	}
	// cap is over the 10000 denominator; scale to 1e18 fixed point
	capFixed := new(big.Int).Mul(maxPct, big.NewInt(1e14))
	percentage := new(big.Int).Sub(price, one)
	if percentage.Cmp(capFixed) > 0 {
		percentage = capFixed
	}
	depletionFloor, err := t.param(depletionFloorKey)
	if err != nil {
		return err
	}
	savedForBond := new(big.Int)
	var savedForMasonry *big.Int
	if reserve.Cmp(tomb.Percent(bondSupply, depletionFloor)) >= 0 {
		// saved enough to pay debt, mint at the usual rate
		savedForMasonry = tomb.MulDiv(supply, percentage, tomb.Ether)
	} else {
		// have not saved enough to pay debt, mint more
		seigniorage := tomb.MulDiv(supply, percentage, tomb.Ether)
		floor, err := t.param(seigniorageFloorKey)
		if err != nil {
			return err
		}
		savedForMasonry = tomb.Percent(seigniorage, floor)
		savedForBond = new(big.Int).Sub(seigniorage, savedForMasonry)
		mintingFactor, err := t.param(mintingFactorKey)
		if err != nil {
			return err
		}
		if mintingFactor.Sign() > 0 {
			savedForBond = tomb.Percent(savedForBond, mintingFactor)
		}
	}
	if savedForMasonry.Sign() > 0 {
		if err := t.sendToMasonry(now, savedForMasonry); err != nil {
			return err
		}
	}
	if savedForBond.Sign() > 0 {
		newReserve := new(big.Int).Add(reserve, savedForBond)
		if err := t.state.SetBigInt(t.addr, reserveKey, newReserve); err != nil {
			return err
		}
		if err := t.tomb.Mint(t.addr, savedForBond); err != nil {
			return err
		}
	}
	logger.Info("expansion", "epoch", current, "price", price,
		"toMasonry", savedForMasonry, "toReserve", savedForBond)
	return nil
}

// resetContractionBudget refreshes the per-epoch bond-issuance budget:
// zero above the ceiling, a fixed fraction of circulating supply below.
func (t *Treasury) resetContractionBudget(price, ceiling, circulating *big.Int) error {
	if price.Cmp(ceiling) > 0 {
		return t.state.SetBigInt(t.addr, contractionLeftKey, new(big.Int))
	}
	maxContraction, err := t.param(maxContractionKey)
	if err != nil {
		return err
	}
	return t.state.SetBigInt(t.addr, contractionLeftKey, tomb.Percent(circulating, maxContraction))
}

// sendToMasonry mints amount tomb, routes the dao/dev fund cuts and
// forwards the rest into the masonry ledger via its allowance pull.
func (t *Treasury) sendToMasonry(now uint64, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := t.tomb.Mint(t.addr, amount); err != nil {
		return err
	}
	rest := new(big.Int).Set(amount)
	daoPercent, err := t.param(daoPercentKey)
	if err != nil {
		return err
	}
	if daoPercent.Sign() > 0 {
		daoFund, err := t.state.GetAddress(t.addr, daoFundKey)
		if err != nil {
			return err
		}
		daoAmount := tomb.Percent(amount, daoPercent)
		if err := t.tomb.Transfer(t.addr, daoFund, daoAmount); err != nil {
			return err
		}
		rest.Sub(rest, daoAmount)
	}
	devPercent, err := t.param(devPercentKey)
	if err != nil {
		return err
	}
	if devPercent.Sign() > 0 {
		devFund, err := t.state.GetAddress(t.addr, devFundKey)
		if err != nil {
			return err
		}
		devAmount := tomb.Percent(amount, devPercent)
		if err := t.tomb.Transfer(t.addr, devFund, devAmount); err != nil {
			return err
		}
		rest.Sub(rest, devAmount)
	}
	if err := t.tomb.Approve(t.addr, t.masonry.Address(), rest); err != nil {
		return err
	}
	if err := t.masonry.AllocateSeigniorage(now, t.addr, rest); err != nil {
		return err
	}
	whole := new(big.Int).Div(rest, tomb.Ether)
	metrics.Counter("seigniorage_minted_tokens").Add(whole.Int64())
	return nil
}

// sendToBondTreasury mints only the shortfall between the requested
// amount and the bond treasury's unspent balance over its vested debt.
func (t *Treasury) sendToBondTreasury(amount *big.Int) error {
	balance, err := t.tomb.BalanceOf(t.bonds.Address())
	if err != nil {
		return err
	}
	vested, err := t.bonds.TotalVested()
	if err != nil {
		return err
	}
	if vested.Cmp(balance) >= 0 {
		return nil
	}
	unspent := new(big.Int).Sub(balance, vested)
	if amount.Cmp(unspent) <= 0 {
		return nil
	}
	return t.tomb.Mint(t.bonds.Address(), new(big.Int).Sub(amount, unspent))
}

// SendToMasonry mints and forwards seigniorage out of band, operator
// only.
func (t *Treasury) SendToMasonry(now uint64, sender tomb.Address, amount *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		return t.sendToMasonry(now, amount)
	})
}

// SendToBondTreasury tops up the bond treasury out of band, operator
// only.
func (t *Treasury) SendToBondTreasury(sender tomb.Address, amount *big.Int) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		return t.sendToBondTreasury(amount)
	})
}

// RecoverUnsupportedToken sweeps stray tokens out of the treasury,
// operator only. The three core tokens are protected.
func (t *Treasury) RecoverUnsupportedToken(sender tomb.Address, stray *token.Token, amount *big.Int, to tomb.Address) error {
	return t.state.Atomic(func() error {
		if err := t.guard.RequireOperator(sender); err != nil {
			return err
		}
		switch stray.Address() {
		case t.tomb.Address(), t.tbond.Address(), t.tshare.Address():
			return reverts.New(reverts.InvalidToken, "treasury: cannot recover a core token")
		}
		return stray.Transfer(t.addr, to, amount)
	})
}
