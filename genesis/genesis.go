// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis loads a protocol configuration and wires the full
// component set over one state.
package genesis

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tombchain/tombcore/bondtreasury"
	"github.com/tombchain/tombcore/epoch"
	"github.com/tombchain/tombcore/guard"
	"github.com/tombchain/tombcore/masonry"
	"github.com/tombchain/tombcore/oracle"
	"github.com/tombchain/tombcore/state"
	"github.com/tombchain/tombcore/token"
	"github.com/tombchain/tombcore/tomb"
	"github.com/tombchain/tombcore/treasury"
)

// Well-known component addresses. Derived from names the way builtin
// contracts get fixed addresses.
var (
	TombAddress         = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-tomb")).Bytes()[12:])
	TBondAddress        = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-tbond")).Bytes()[12:])
	TShareAddress       = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-tshare")).Bytes()[12:])
	OracleAddress       = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-oracle")).Bytes()[12:])
	MasonryAddress      = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-masonry")).Bytes()[12:])
	BondTreasuryAddress = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-bond-treasury")).Bytes()[12:])
	TreasuryAddress     = tomb.BytesToAddress(tomb.Keccak256([]byte("tombcore-treasury")).Bytes()[12:])
)

// Account seeds one balance at genesis. Amounts are decimal strings in
// wei.
type Account struct {
	Address string `yaml:"address"`
	Tomb    string `yaml:"tomb"`
	TShare  string `yaml:"tshare"`
}

// Config is the YAML genesis file.
type Config struct {
	Operator     string    `yaml:"operator"`
	GenesisPool  string    `yaml:"genesisPool"`
	StartTime    uint64    `yaml:"startTime"`
	InitialPrice string    `yaml:"initialPrice"`
	PricePath    []string  `yaml:"pricePath"`
	Accounts     []Account `yaml:"accounts"`
}

// LoadConfig reads and parses a genesis file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read genesis file")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithMessage(err, "parse genesis file")
	}
	return &cfg, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("bad amount %q", s)
	}
	return v, nil
}

// System is the wired component set over one state.
type System struct {
	State    *state.State
	Tomb     *token.Token
	TBond    *token.Token
	TShare   *token.Token
	Oracle   *oracle.Fake
	Masonry  *masonry.Masonry
	Bonds    *bondtreasury.BondTreasury
	Treasury *treasury.Treasury
	Operator tomb.Address
}

// Build initializes every component from the config on top of st and
// commits the genesis state. The deterministic fake oracle starts at
// the configured initial price.
func Build(cfg *Config, st *state.State) (*System, error) {
	operator, err := tomb.ParseAddress(cfg.Operator)
	if err != nil {
		return nil, errors.WithMessage(err, "operator")
	}
	genesisPool, err := tomb.ParseAddress(cfg.GenesisPool)
	if err != nil {
		return nil, errors.WithMessage(err, "genesisPool")
	}
	initialPrice, err := parseAmount(cfg.InitialPrice)
	if err != nil {
		return nil, errors.WithMessage(err, "initialPrice")
	}
	if initialPrice.Sign() == 0 {
		initialPrice = new(big.Int).Set(tomb.InitialPriceOne)
	}

	tombToken := token.New("TOMB", TombAddress, st)
	tbond := token.New("TBOND", TBondAddress, st)
	tshare := token.New("TSHARE", TShareAddress, st)
	src := oracle.NewFake(initialPrice)

	// the epoch clock is bound to the treasury address; any instance
	// over the same state reads the same counters
	clock := epoch.New(TreasuryAddress, st, guard.New(TreasuryAddress, st))

	bonds := bondtreasury.New(BondTreasuryAddress, st, guard.New(BondTreasuryAddress, st), tombToken)
	mas := masonry.New(MasonryAddress, st, clock, tombToken, tshare)
	trs := treasury.New(TreasuryAddress, st, src, tombToken, tbond, tshare, mas, bonds)

	if err := trs.Initialize(operator, genesisPool, cfg.StartTime); err != nil {
		return nil, err
	}
	if err := mas.Initialize(TreasuryAddress); err != nil {
		return nil, err
	}
	if err := bonds.Initialize(TreasuryAddress, tomb.DefaultBondVestingPeriodSeconds); err != nil {
		return nil, err
	}

	for _, account := range cfg.Accounts {
		addr, err := tomb.ParseAddress(account.Address)
		if err != nil {
			return nil, errors.WithMessage(err, "account address")
		}
		tombAmount, err := parseAmount(account.Tomb)
		if err != nil {
			return nil, errors.WithMessage(err, "account tomb")
		}
		if tombAmount.Sign() > 0 {
			if err := tombToken.Mint(addr, tombAmount); err != nil {
				return nil, err
			}
		}
		shareAmount, err := parseAmount(account.TShare)
		if err != nil {
			return nil, errors.WithMessage(err, "account tshare")
		}
		if shareAmount.Sign() > 0 {
			if err := tshare.Mint(addr, shareAmount); err != nil {
				return nil, err
			}
		}
	}

	if err := st.Commit(); err != nil {
		return nil, err
	}
	return &System{
		State:    st,
		Tomb:     tombToken,
		TBond:    tbond,
		TShare:   tshare,
		Oracle:   src,
		Masonry:  mas,
		Bonds:    bonds,
		Treasury: trs,
		Operator: operator,
	}, nil
}
