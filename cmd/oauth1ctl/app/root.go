// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app implements the oauth1ctl commands.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-oauth1/config"
	"github.com/stacklok/toolhive-oauth1/discovery"
	"github.com/stacklok/toolhive-oauth1/env"
	"github.com/stacklok/toolhive-oauth1/logging"
	"github.com/stacklok/toolhive-oauth1/oauth"
	"github.com/stacklok/toolhive-oauth1/transport"
)

// Exit codes.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeAuthFailed is returned when a handshake fails.
	ExitCodeAuthFailed = 3
	// ExitCodeNotFound is returned when discovery finds nothing.
	ExitCodeNotFound = 4
)

type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	showSecret bool

	version string
	env     env.Reader
	stderr  io.Writer
}

// logger builds the logger from flags, falling back to the configuration
// and then to the OAUTH1_LOG_* variables.
func (o *globalOptions) logger(cfg *config.Config) (*slog.Logger, error) {
	level, format := o.logLevel, o.logFormat
	if cfg != nil {
		if level == "" {
			level = cfg.Logging.Level
		}
		if format == "" {
			format = cfg.Logging.Format
		}
	}
	if level == "" {
		level = o.env.Getenv(config.EnvLogLevel)
	}
	if format == "" {
		format = o.env.Getenv(config.EnvLogFormat)
	}
	if format == "" {
		format = "text"
	}

	parsedLevel, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	parsedFormat, err := logging.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return logging.New(
		logging.WithLevel(parsedLevel),
		logging.WithFormat(parsedFormat),
		logging.WithOutput(o.stderr),
		logging.WithAttrs(slog.String("app", "oauth1ctl")),
	), nil
}

func (o *globalOptions) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath, o.env)
	if err != nil {
		return nil, nil, err
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (o *globalOptions) transport(logger *slog.Logger) transport.Transport {
	return transport.NewHTTPTransport(
		transport.WithLogger(logger),
		transport.WithUserAgent("oauth1ctl/"+o.version),
	)
}

// NewRootCmd returns the oauth1ctl command tree.
func NewRootCmd(version string, r env.Reader) *cobra.Command {
	opts := &globalOptions{version: version, env: r, stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "oauth1ctl",
		Short: "Run OAuth 1.0a handshakes and LRDD discovery",
		Long: `oauth1ctl obtains OAuth 1.0a access tokens with the three-legged
and two-legged handshakes, and locates resources through link elements,
Link headers and host-meta documents.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.stderr = cmd.ErrOrStderr()
		},
	}
	root.SetVersionTemplate(`{{printf "oauth1ctl version %s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is "+config.DefaultPath()+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newDiscoverCmd(opts))
	root.AddCommand(newAuthenticateCmd(opts))
	root.AddCommand(newTwoLeggedCmd(opts))
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd(version, &env.OSReader{}).ExecuteContext(ctx)
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var herr *oauth.HandshakeError
	if errors.As(err, &herr) || errors.Is(err, oauth.ErrAuthorizationDenied) {
		return ExitCodeAuthFailed
	}
	if errors.Is(err, discovery.ErrNotFound) {
		return ExitCodeNotFound
	}
	return ExitCodeError
}
