// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/tombchain/tombcore/api/utils"
	"github.com/tombchain/tombcore/masonry"
	"github.com/tombchain/tombcore/tomb"
)

type masonryEndpoints struct {
	masonry *masonry.Masonry
}

func (e *masonryEndpoints) handleGetLedger(w http.ResponseWriter, _ *http.Request) error {
	total, err := e.masonry.TotalStaked()
	if err != nil {
		return err
	}
	rps, err := e.masonry.RewardPerShare()
	if err != nil {
		return utils.RevertError(err)
	}
	index, err := e.masonry.LatestSnapshotIndex()
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{
		"totalStaked":         total.String(),
		"rewardPerShare":      rps.String(),
		"latestSnapshotIndex": index,
	})
}

func (e *masonryEndpoints) handleGetMember(w http.ResponseWriter, req *http.Request) error {
	addr, err := tomb.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	balance, err := e.masonry.BalanceOf(addr)
	if err != nil {
		return err
	}
	earned, err := e.masonry.Earned(addr)
	if err != nil {
		return utils.RevertError(err)
	}
	canWithdraw, err := e.masonry.CanWithdraw(addr)
	if err != nil {
		return err
	}
	canClaim, err := e.masonry.CanClaimReward(addr)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{
		"balance":        balance.String(),
		"earned":         earned.String(),
		"canWithdraw":    canWithdraw,
		"canClaimReward": canClaim,
	})
}

func (e *masonryEndpoints) mount(router *mux.Router) {
	sub := router.PathPrefix("/masonry").Subrouter()
	sub.Path("/ledger").
		Methods(http.MethodGet).
		Name("GET /masonry/ledger").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetLedger))
	sub.Path("/members/{address}").
		Methods(http.MethodGet).
		Name("GET /masonry/members/{address}").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetMember))
}
