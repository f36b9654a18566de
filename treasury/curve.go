// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package treasury

import (
	"math/big"

	"github.com/tombchain/tombcore/tomb"
)

// DiscountRate returns the tomb-to-bond exchange rate when selling
// bonds below peg, 1e18 fixed point. Zero above peg (no sale window).
// With a zero discount percent, bonds sell at par. A nonzero maxRate
// caps the result.
func DiscountRate(price, one, discountPercent, maxRate *big.Int) *big.Int {
	if price.Cmp(one) > 0 {
		return new(big.Int)
	}
	if discountPercent.Sign() == 0 {
		return new(big.Int).Set(one)
	}
	// one^2/price grows as price falls below peg
	bondAmount := tomb.MulDiv(one, one, price)
	discount := tomb.MulDiv(new(big.Int).Sub(bondAmount, one), discountPercent, tomb.PercentDenom)
	rate := new(big.Int).Add(one, discount)
	if maxRate.Sign() > 0 && rate.Cmp(maxRate) > 0 {
		rate.Set(maxRate)
	}
	return rate
}

// PremiumRate returns the bond-to-tomb exchange rate when redeeming
// bonds above the ceiling, 1e18 fixed point. Zero at or below the
// ceiling (no redemption window). Between the ceiling and the premium
// threshold bonds redeem at par; beyond the threshold the rate grows
// with the price excess over peg, capped by a nonzero maxRate.
func PremiumRate(price, one, ceiling, premiumThreshold, premiumPercent, maxRate *big.Int) *big.Int {
	if price.Cmp(ceiling) <= 0 {
		return new(big.Int)
	}
	threshold := tomb.MulDiv(one, premiumThreshold, big.NewInt(100))
	if price.Cmp(threshold) < 0 {
		return new(big.Int).Set(one)
	}
	premium := tomb.MulDiv(new(big.Int).Sub(price, one), premiumPercent, tomb.PercentDenom)
	rate := new(big.Int).Add(one, premium)
	if maxRate.Sign() > 0 && rate.Cmp(maxRate) > 0 {
		rate.Set(maxRate)
	}
	return rate
}
