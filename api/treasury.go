// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tombchain/tombcore/api/utils"
	"github.com/tombchain/tombcore/treasury"
)

type treasuryEndpoints struct {
	treasury *treasury.Treasury
}

func (e *treasuryEndpoints) handleGetEpoch(w http.ResponseWriter, _ *http.Request) error {
	epoch, err := e.treasury.Epoch()
	if err != nil {
		return err
	}
	next, err := e.treasury.NextEpochPoint()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{
		"epoch":          epoch,
		"nextEpochPoint": next,
	})
}

func (e *treasuryEndpoints) handleGetPrice(w http.ResponseWriter, _ *http.Request) error {
	price, err := e.treasury.Price()
	if err != nil {
		return utils.RevertError(err)
	}
	updated, err := e.treasury.UpdatedPrice()
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{
		"price":        price.String(),
		"updatedPrice": updated.String(),
	})
}

func (e *treasuryEndpoints) handleGetReserve(w http.ResponseWriter, _ *http.Request) error {
	reserve, err := e.treasury.Reserve()
	if err != nil {
		return err
	}
	left, err := e.treasury.EpochSupplyContractionLeft()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{
		"reserve":                    reserve.String(),
		"epochSupplyContractionLeft": left.String(),
	})
}

func (e *treasuryEndpoints) handleGetSupply(w http.ResponseWriter, _ *http.Request) error {
	circulating, err := e.treasury.CirculatingSupply()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{
		"circulatingSupply": circulating.String(),
	})
}

func (e *treasuryEndpoints) handleGetRates(w http.ResponseWriter, _ *http.Request) error {
	discount, err := e.treasury.BondDiscountRate()
	if err != nil {
		return utils.RevertError(err)
	}
	premium, err := e.treasury.BondPremiumRate()
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{
		"bondDiscountRate": discount.String(),
		"bondPremiumRate":  premium.String(),
	})
}

func (e *treasuryEndpoints) handleGetBondHeadroom(w http.ResponseWriter, _ *http.Request) error {
	burnable, err := e.treasury.BurnableTombLeft()
	if err != nil {
		return utils.RevertError(err)
	}
	redeemable, err := e.treasury.RedeemableBonds()
	if err != nil {
		return utils.RevertError(err)
	}
	return utils.WriteJSON(w, utils.M{
		"burnableTombLeft": burnable.String(),
		"redeemableBonds":  redeemable.String(),
	})
}

func (e *treasuryEndpoints) mount(router *mux.Router) {
	sub := router.PathPrefix("/treasury").Subrouter()
	sub.Path("/epoch").
		Methods(http.MethodGet).
		Name("GET /treasury/epoch").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetEpoch))
	sub.Path("/price").
		Methods(http.MethodGet).
		Name("GET /treasury/price").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetPrice))
	sub.Path("/reserve").
		Methods(http.MethodGet).
		Name("GET /treasury/reserve").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetReserve))
	sub.Path("/supply").
		Methods(http.MethodGet).
		Name("GET /treasury/supply").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetSupply))
	sub.Path("/rates").
		Methods(http.MethodGet).
		Name("GET /treasury/rates").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetRates))
	sub.Path("/bond-headroom").
		Methods(http.MethodGet).
		Name("GET /treasury/bond-headroom").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetBondHeadroom))
}
