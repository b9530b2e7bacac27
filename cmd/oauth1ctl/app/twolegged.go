// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-oauth1/oauth"
)

// twoLeggedResult collects the terminal callbacks of a TwoLegged method.
type twoLeggedResult struct {
	done chan error
}

func (r *twoLeggedResult) AuthenticationDidSucceed() {
	select {
	case r.done <- nil:
	default:
	}
}

func (r *twoLeggedResult) AuthenticationDidFail(err error) {
	select {
	case r.done <- err:
	default:
	}
}

func newTwoLeggedCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "two-legged",
		Short: "Exchange consumer credentials for a token without user involvement",
		Args:  cobra.NoArgs,
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
			res := &twoLeggedResult{done: make(chan error, 1)}
			m, err := oauth.NewTwoLegged(authCtx, g.transport(logger), res,
				oauth.WithContext(ctx),
				oauth.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer m.Discard()

			m.Authenticate()
			select {
			case err := <-res.done:
				if err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
			renderTokens(cmd.OutOrStdout(), m.Tokens().Token(oauth.AccessToken), m.Tokens().Params(), g.showSecret)
			return nil
		},
	}
	cmd.Flags().BoolVar(&g.showSecret, "show-secret", false, "print the token secret")
	return cmd
}
