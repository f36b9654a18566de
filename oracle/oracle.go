// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package oracle supplies the price feed for a trading pair. The
// treasury consumes it through the Source interface so tests can
// substitute a deterministic fake.
package oracle

import (
	"math/big"

	"github.com/tombchain/tombcore/epoch"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/tomb"
)

// Source is the boundary the treasury consults for prices.
// Consult quotes at the freshest known price, TWAP at the average over
// the last completed epoch window. Update is invoked on epoch
// boundaries and must be a no-op when the window has not elapsed.
type Source interface {
	Consult(token tomb.Address, amountIn *big.Int) (*big.Int, error)
	TWAP(token tomb.Address, amountIn *big.Int) (*big.Int, error)
	Update(now uint64) error
}

var (
	reserve0Key       = tomb.Keccak256([]byte("oracle-reserve0"))
	reserve1Key       = tomb.Keccak256([]byte("oracle-reserve1"))
	cumulativeKey     = tomb.Keccak256([]byte("oracle-price-cumulative"))
	lastCumulativeKey = tomb.Keccak256([]byte("oracle-price-cumulative-last"))
	accumTimeKey      = tomb.Keccak256([]byte("oracle-accum-time"))
	windowStartKey    = tomb.Keccak256([]byte("oracle-window-start"))
	averageKey        = tomb.Keccak256([]byte("oracle-average"))
)

// PairOracle derives the price of token0 denominated in token1 from
// pair reserves, and keeps a cumulative-price accumulator for the
// epoch-window TWAP.
type PairOracle struct {
	addr   tomb.Address
	state  *state.State
	guard  *guard.Guard
	clock  *epoch.Clock
	token0 tomb.Address
	token1 tomb.Address
}

var _ Source = (*PairOracle)(nil)

// NewPair create a pair oracle.
func NewPair(addr tomb.Address, st *state.State, g *guard.Guard, clock *epoch.Clock, token0, token1 tomb.Address) *PairOracle {
	return &PairOracle{addr, st, g, clock, token0, token1}
}

// SetReserves records fresh pair reserves, folding the elapsed time at
// the previous price into the accumulator first. Operator only.
func (o *PairOracle) SetReserves(sender tomb.Address, now uint64, reserve0, reserve1 *big.Int) error {
	if err := o.guard.RequireOperator(sender); err != nil {
		return err
	}
	if reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return reverts.New(reverts.ZeroValue, "oracle: empty reserves")
	}
	if err := o.accumulate(now); err != nil {
		return err
	}
	if err := o.state.SetBigInt(o.addr, reserve0Key, reserve0); err != nil {
		return err
	}
	return o.state.SetBigInt(o.addr, reserve1Key, reserve1)
}

func (o *PairOracle) spot() (*big.Int, error) {
	r0, err := o.state.GetBigInt(o.addr, reserve0Key)
	if err != nil {
		return nil, err
	}
	r1, err := o.state.GetBigInt(o.addr, reserve1Key)
	if err != nil {
		return nil, err
	}
	if r0.Sign() == 0 {
		return new(big.Int), nil
	}
	price := new(big.Int).Mul(r1, tomb.Ether)
	return price.Div(price, r0), nil
}

func (o *PairOracle) accumulate(now uint64) error {
	last, err := o.state.GetUint64(o.addr, accumTimeKey)
	if err != nil {
		return err
	}
	if now <= last {
		return nil
	}
	spot, err := o.spot()
	if err != nil {
		return err
	}
	cumulative, err := o.state.GetBigInt(o.addr, cumulativeKey)
	if err != nil {
		return err
	}
	elapsed := new(big.Int).SetUint64(now - last)
	cumulative = cumulative.Add(cumulative, elapsed.Mul(elapsed, spot))
	if err := o.state.SetBigInt(o.addr, cumulativeKey, cumulative); err != nil {
		return err
	}
	return o.state.SetUint64(o.addr, accumTimeKey, now)
}

// Update closes the current observation window and fixes the TWAP for
// it. A no-op while the epoch window has not elapsed; when several
// windows were missed it catches up in one call.
func (o *PairOracle) Update(now uint64) error {
	next, err := o.clock.NextEpochPoint()
	if err != nil {
		return err
	}
	if now < next {
		return nil
	}
	if err := o.clock.CatchUp(now); err != nil {
		return err
	}
	if err := o.accumulate(now); err != nil {
		return err
	}
	cumulative, err := o.state.GetBigInt(o.addr, cumulativeKey)
	if err != nil {
		return err
	}
	lastCumulative, err := o.state.GetBigInt(o.addr, lastCumulativeKey)
	if err != nil {
		return err
	}
	windowStart, err := o.state.GetUint64(o.addr, windowStartKey)
	if err != nil {
		return err
	}
	if now > windowStart {
		avg := new(big.Int).Sub(cumulative, lastCumulative)
		avg.Div(avg, new(big.Int).SetUint64(now-windowStart))
		if err := o.state.SetBigInt(o.addr, averageKey, avg); err != nil {
			return err
		}
	}
	if err := o.state.SetBigInt(o.addr, lastCumulativeKey, cumulative); err != nil {
		return err
	}
	return o.state.SetUint64(o.addr, windowStartKey, now)
}

// Consult quotes amountIn of token at the current spot price.
func (o *PairOracle) Consult(token tomb.Address, amountIn *big.Int) (*big.Int, error) {
	spot, err := o.spot()
	if err != nil {
		return nil, err
	}
	return o.quote(token, amountIn, spot)
}

// TWAP quotes amountIn of token at the last fixed window average,
// falling back to spot before the first completed window.
func (o *PairOracle) TWAP(token tomb.Address, amountIn *big.Int) (*big.Int, error) {
	avg, err := o.state.GetBigInt(o.addr, averageKey)
	if err != nil {
		return nil, err
	}
	if avg.Sign() == 0 {
		return o.Consult(token, amountIn)
	}
	return o.quote(token, amountIn, avg)
}

func (o *PairOracle) quote(token tomb.Address, amountIn, price *big.Int) (*big.Int, error) {
	switch token {
	case o.token0:
		out := new(big.Int).Mul(amountIn, price)
		return out.Div(out, tomb.Ether), nil
	case o.token1:
		if price.Sign() == 0 {
			return new(big.Int), nil
		}
		out := new(big.Int).Mul(amountIn, tomb.Ether)
		return out.Div(out, price), nil
	default:
		return nil, reverts.New(reverts.InvalidToken, "oracle: token %v not in pair", token)
	}
}
