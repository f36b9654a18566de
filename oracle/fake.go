// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"

	"github.com/tombchain/tombcore/tomb"
)

// Fake is a deterministic price source for tests and simulations.
// It quotes every pair token at the same settable fixed-point price.
type Fake struct {
	price   *big.Int
	Updates int
}

var _ Source = (*Fake)(nil)

// NewFake create a fake source quoting the given 18-decimal price.
func NewFake(price *big.Int) *Fake {
	return &Fake{price: new(big.Int).Set(price)}
}

// SetPrice moves the quoted price.
func (f *Fake) SetPrice(price *big.Int) {
	f.price = new(big.Int).Set(price)
}

// Consult implements Source.
func (f *Fake) Consult(_ tomb.Address, amountIn *big.Int) (*big.Int, error) {
	out := new(big.Int).Mul(amountIn, f.price)
	return out.Div(out, tomb.Ether), nil
}

// TWAP implements Source.
func (f *Fake) TWAP(token tomb.Address, amountIn *big.Int) (*big.Int, error) {
	return f.Consult(token, amountIn)
}

// Update implements Source.
func (f *Fake) Update(_ uint64) error {
	f.Updates++
	return nil
}
