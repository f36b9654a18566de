// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package guard

import (
	"github.com/tombchain/tombcore/reverts"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/tomb"
)

var operatorKey = tomb.Keccak256([]byte("operator"))

func lastTickKey(sender tomb.Address) tomb.Bytes32 {
	return tomb.BytesToBytes32(append([]byte("g"), sender.Bytes()...))
}

// Guard holds the access-control state of one component: its single
// designated operator and the one-tick replay records.
type Guard struct {
	addr  tomb.Address
	state *state.State
}

// New create a guard bound to a component address.
func New(addr tomb.Address, st *state.State) *Guard {
	return &Guard{addr, st}
}

// Operator returns the current operator.
func (g *Guard) Operator() (tomb.Address, error) {
	return g.state.GetAddress(g.addr, operatorKey)
}

// InitOperator sets the operator unconditionally. Only for component
// initialization.
func (g *Guard) InitOperator(operator tomb.Address) error {
	return g.state.SetAddress(g.addr, operatorKey, operator)
}

// RequireOperator rejects senders other than the operator.
func (g *Guard) RequireOperator(sender tomb.Address) error {
	operator, err := g.Operator()
	if err != nil {
		return err
	}
	if operator != sender {
		return reverts.New(reverts.Authorization, "unauthorized: sender %v is not the operator", sender)
	}
	return nil
}

// TransferOperator hands the operator role over. Only the current
// operator may call.
func (g *Guard) TransferOperator(sender, operator tomb.Address) error {
	if err := g.RequireOperator(sender); err != nil {
		return err
	}
	return g.state.SetAddress(g.addr, operatorKey, operator)
}

// OncePerTick permits one guarded entry per sender per clock tick.
// Ticks strictly increase, so recording only the last used tick both
// detects the replay and prunes older records.
func (g *Guard) OncePerTick(tick uint64, sender tomb.Address) error {
	key := lastTickKey(sender)
	// stored as tick+1 so tick 0 is distinguishable from "never seen"
	last, err := g.state.GetUint64(g.addr, key)
	if err != nil {
		return err
	}
	if last == tick+1 {
		return reverts.New(reverts.ReplayGuard, "one tick, one function: %v already acted at tick %d", sender, tick)
	}
	return g.state.SetUint64(g.addr, key, tick+1)
}
