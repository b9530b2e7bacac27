// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-oauth1/callback"
	"github.com/stacklok/toolhive-oauth1/oauth"
)

const redacted = "********"

type authenticateOptions struct {
	outOfBand bool
	noBrowser bool
	timeout   time.Duration
}

func newAuthenticateCmd(g *globalOptions) *cobra.Command {
	o := &authenticateOptions{}
	cmd := &cobra.Command{
		Use:   "authenticate",
		Short: "Obtain an access token with the three-legged handshake",
		Long: `authenticate requests a temporary token, sends you to the service
provider to authorize it and exchanges it for an access token. The redirect
is received on a loopback server unless --oob is set, in which case the
verification code is read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.loadConfig()
			if err != nil {
				return err
			}
			authCtx, err := cfg.AuthContext()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if o.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, o.timeout)
				defer cancel()
			}

			d := &callback.BrowserDelegate{
				Output: cmd.ErrOrStderr(),
				Input:  cmd.InOrStdin(),
				Logger: logger,
			}
			if o.noBrowser {
				d.Open = func(string) error { return nil }
			}
			if !o.outOfBand {
				srv := callback.NewServer(
					callback.WithPort(cfg.CallbackPort),
					callback.WithServerLogger(logger),
				)
				if _, err := srv.Start(ctx); err != nil {
					return err
				}
				defer srv.Stop()
				d.Server = srv
			}

			m, err := oauth.NewThreeLegged(authCtx, g.transport(logger), d,
				oauth.WithContext(ctx),
				oauth.WithLogger(logger),
				oauth.WithRestartOnFail(true),
			)
			if err != nil {
				return err
			}
			defer m.Discard()

			if err := d.Await(ctx, m); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			renderTokens(cmd.OutOrStdout(), m.Tokens().Token(oauth.AccessToken), m.Tokens().Params(), g.showSecret)
			return nil
		},
	}

	cmd.Flags().BoolVar(&o.outOfBand, "oob", false, "use out-of-band authorization and read the verifier from stdin")
	cmd.Flags().BoolVar(&o.noBrowser, "no-browser", false, "print the authorization URL without opening a browser")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "time allowed for the whole handshake")
	cmd.Flags().BoolVar(&g.showSecret, "show-secret", false, "print the token secret")
	return cmd
}

// renderTokens prints the token and the remaining response parameters.
func renderTokens(w io.Writer, token *oauth.Token, params map[string]string, showSecret bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("KEY"), text.FgHiCyan.Sprint("VALUE")})

	if token != nil {
		secret := redacted
		if showSecret {
			secret = token.Secret
		}
		t.AppendRow(table.Row{oauth.ParamToken, token.Key})
		t.AppendRow(table.Row{oauth.ParamTokenSecret, secret})
	}
	for _, k := range slices.Sorted(maps.Keys(params)) {
		if k == oauth.ParamToken || k == oauth.ParamTokenSecret {
			continue
		}
		t.AppendRow(table.Row{k, params[k]})
	}
	t.Render()
}
