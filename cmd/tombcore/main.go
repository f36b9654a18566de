// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.New("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "tombcore",
		Usage:     "Monetary-policy core of the TombChain protocol",
		Copyright: "2022 TombChain",
		Commands: []cli.Command{
			{
				Name:  "sim",
				Usage: "run a deterministic epoch simulation from a genesis file",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					epochsFlag,
					verbosityFlag,
				},
				Action: simAction,
			},
			{
				Name:  "api",
				Usage: "serve the query API over a genesis state",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					apiAddrFlag,
					enableMetricsFlag,
					verbosityFlag,
				},
				Action: apiAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(ctx *cli.Context) {
	level := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	useColor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	log.SetDefault(log.NewLogger(handler))
}
