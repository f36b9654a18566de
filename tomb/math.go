// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tomb

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MulDiv returns a * b / den with the product computed in wide
// registers, truncating toward zero. Supplies and 18-decimal prices
// keep the product far below 2^256; should an overflow ever occur the
// computation falls back to arbitrary precision.
func MulDiv(a, b, den *big.Int) *big.Int {
	if den.Sign() == 0 {
		panic("tomb: division by zero")
	}
	x, overflowX := uint256.FromBig(a)
	y, overflowY := uint256.FromBig(b)
	d, overflowD := uint256.FromBig(den)
	if !overflowX && !overflowY && !overflowD {
		var product uint256.Int
		if _, overflow := product.MulOverflow(x, y); !overflow {
			return product.Div(&product, d).ToBig()
		}
	}
	out := new(big.Int).Mul(a, b)
	return out.Div(out, den)
}

// Percent returns a * pct / 10000.
func Percent(a, pct *big.Int) *big.Int {
	return MulDiv(a, pct, PercentDenom)
}
