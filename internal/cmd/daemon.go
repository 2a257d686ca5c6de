// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/dotandev/tzsubmit/internal/daemon"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/spf13/cobra"
)

var (
	daemonPort      int
	daemonHost      string
	daemonAuthToken string
	daemonNoJournal bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start JSON-RPC server for wallets and scripts",
	Long: `Start a JSON-RPC 2.0 server exposing estimation, submission and error
classification over HTTP.

Endpoints (POST /rpc):
  - Wallet.Estimate: Estimate an operation group
  - Wallet.Submit:   Estimate, sign, preapply and inject an operation group
  - Wallet.Classify: Classify a node error response

GET /health reports liveness and the configured network.

Example:
  tzsubmit daemon --port 8545 --network ghostnet
  tzsubmit daemon --port 8545 --auth-token secret123`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := appConfig

		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		var sub daemon.Submitter
		if s, err := a.signer(); err != nil {
			logger.Logger.Warn("No signer configured, Wallet.Submit is disabled", "error", err)
			sub = unavailableSubmitter{err: err}
		} else {
			sub = a.submitter(s)
		}

		var j daemon.Journal
		if !daemonNoJournal {
			store, _, err := a.openJournal()
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			j = store
		}

		port := cfg.DaemonPort
		if cmd.Flags().Changed("port") {
			port = daemonPort
		}
		token := cfg.DaemonToken
		if daemonAuthToken != "" {
			token = daemonAuthToken
		}

		dcfg := daemon.Config{
			Network:   string(cfg.Network),
			AuthToken: token,
		}
		if a.notifier.Enabled() {
			dcfg.Notifier = a.notifier
		}
		server := daemon.NewServer(a.estimator, sub, j, dcfg)

		addr := net.JoinHostPort(daemonHost, strconv.Itoa(port))
		fmt.Fprintf(cmd.OutOrStdout(), "Starting tzsubmit daemon on %s\n", addr)
		fmt.Fprintf(cmd.OutOrStdout(), "Network: %s\n", cfg.Network)
		if token != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Authentication: enabled")
		}

		return server.Start(ctx, addr)
	},
}

// unavailableSubmitter rejects every submission with the signer error.
type unavailableSubmitter struct {
	err error
}

func (u unavailableSubmitter) Submit(context.Context, string, []tezos.Operation) (*submitter.Result, error) {
	return &submitter.Result{Stage: submitter.StageBuilt}, u.err
}

func init() {
	daemonCmd.Flags().IntVarP(&daemonPort, "port", "p", 8545, "Port to listen on (default from daemon_port)")
	daemonCmd.Flags().StringVar(&daemonHost, "host", "127.0.0.1", "Interface to listen on")
	daemonCmd.Flags().StringVar(&daemonAuthToken, "auth-token", "", "Authentication token for API access (default from daemon_token)")
	daemonCmd.Flags().BoolVar(&daemonNoJournal, "no-journal", false, "Do not record submissions in the journal")

	rootCmd.AddCommand(daemonCmd)
}
