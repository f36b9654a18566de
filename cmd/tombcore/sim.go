// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/tombchain/tombcore/genesis"
	"github.com/tombchain/tombcore/lvldb"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/tomb"
)

func openSystem(ctx *cli.Context) (*genesis.Config, *genesis.System, func(), error) {
	genesisPath := ctx.String(genesisFlag.Name)
	if genesisPath == "" {
		return nil, nil, nil, errors.New("--genesis is required")
	}
	cfg, err := genesis.LoadConfig(genesisPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var store *lvldb.LevelDB
	if dataDir := ctx.String(dataDirFlag.Name); dataDir != "" {
		store, err = lvldb.New(dataDir, lvldb.Options{})
	} else {
		store, err = lvldb.NewMem()
	}
	if err != nil {
		return nil, nil, nil, errors.WithMessage(err, "open state database")
	}

	sys, err := genesis.Build(cfg, state.New(store))
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return cfg, sys, func() { store.Close() }, nil
}

// simAction replays N epochs of the configured price path against a
// fresh genesis state and logs every allocation decision.
func simAction(ctx *cli.Context) error {
	initLogger(ctx)

	cfg, sys, closeStore, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	prices := make([]*big.Int, 0, len(cfg.PricePath))
	for _, s := range cfg.PricePath {
		p, ok := new(big.Int).SetString(s, 10)
		if !ok || p.Sign() <= 0 {
			return errors.Errorf("bad price %q in pricePath", s)
		}
		prices = append(prices, p)
	}

	period, err := sys.Treasury.Clock().Period()
	if err != nil {
		return err
	}

	// every seeded share balance joins the masonry before the first
	// epoch so seigniorage has stakers to flow to
	now := cfg.StartTime
	for _, account := range cfg.Accounts {
		addr, err := tomb.ParseAddress(account.Address)
		if err != nil {
			return err
		}
		balance, err := sys.TShare.BalanceOf(addr)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			continue
		}
		if err := sys.TShare.Approve(addr, sys.Masonry.Address(), balance); err != nil {
			return err
		}
		if err := sys.Masonry.Stake(now, addr, balance); err != nil {
			return err
		}
		logger.Info("staked", "account", addr, "amount", balance)
	}
	if err := sys.State.Commit(); err != nil {
		return err
	}

	epochs := ctx.Uint64(epochsFlag.Name)
	for i := uint64(0); i < epochs; i++ {
		now = cfg.StartTime + i*period
		if len(prices) > 0 {
			sys.Oracle.SetPrice(prices[int(i)%len(prices)])
		}
		if err := sys.Treasury.AllocateSeigniorage(now, sys.Operator); err != nil {
			logger.Warn("allocation failed", "epoch", i, "err", err)
			continue
		}
		if err := sys.State.Commit(); err != nil {
			return err
		}
		epoch, err := sys.Treasury.Epoch()
		if err != nil {
			return err
		}
		price, err := sys.Treasury.Price()
		if err != nil {
			return err
		}
		reserve, err := sys.Treasury.Reserve()
		if err != nil {
			return err
		}
		supply, err := sys.Treasury.CirculatingSupply()
		if err != nil {
			return err
		}
		staked, err := sys.Masonry.TotalStaked()
		if err != nil {
			return err
		}
		logger.Info("epoch complete",
			"epoch", epoch,
			"price", price,
			"reserve", reserve,
			"circulating", supply,
			"totalStaked", staked,
		)
	}
	return nil
}
