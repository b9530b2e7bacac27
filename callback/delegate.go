// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package callback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/stacklok/toolhive-oauth1/oauth"
)

// BrowserDelegate is an oauth.ThreeLeggedDelegate for terminal programs.
// With a Server it registers the server's callback URL; without one it
// uses out-of-band authorization and reads the verifier from Input.
type BrowserDelegate struct {
	Server *Server
	// Open opens the authorization URL. Defaults to OpenBrowser.
	Open func(string) error
	// Output receives the authorization URL and prompts. Defaults to io.Discard.
	Output io.Writer
	// Input supplies the verifier in out-of-band mode.
	Input  io.Reader
	Logger *slog.Logger

	once      sync.Once
	requested chan struct{}
	done      chan error
}

var (
	_ oauth.ThreeLeggedDelegate = (*BrowserDelegate)(nil)
	_ oauth.VerifierProvider    = (*BrowserDelegate)(nil)
	_ oauth.SuccessObserver     = (*BrowserDelegate)(nil)
	_ oauth.FailureObserver     = (*BrowserDelegate)(nil)
)

func (d *BrowserDelegate) init() {
	d.once.Do(func() {
		d.requested = make(chan struct{}, 1)
		d.done = make(chan error, 1)
		if d.Open == nil {
			d.Open = OpenBrowser
		}
		if d.Output == nil {
			d.Output = io.Discard
		}
		if d.Logger == nil {
			d.Logger = slog.Default()
		}
	})
}

// CallbackURLForCompletedUserAuthorization implements oauth.ThreeLeggedDelegate.
func (d *BrowserDelegate) CallbackURLForCompletedUserAuthorization() *url.URL {
	if d.Server == nil {
		return nil
	}
	return d.Server.CallbackURL()
}

// AutomaticallyRequestAuthentication prints authURL and tries to open it.
func (d *BrowserDelegate) AutomaticallyRequestAuthentication(authURL, _ *url.URL) bool {
	d.init()
	fmt.Fprintf(d.Output, "Open the following URL to authorize access:\n\n  %s\n\n", authURL)
	if err := d.Open(authURL.String()); err != nil {
		d.Logger.Warn("could not open browser", "error", err)
	}
	select {
	case d.requested <- struct{}{}:
	default:
	}
	return true
}

// VerifierForCompletedUserAuthorization reads one line from Input.
func (d *BrowserDelegate) VerifierForCompletedUserAuthorization() string {
	d.init()
	if d.Input == nil {
		return ""
	}
	fmt.Fprint(d.Output, "Enter the verification code: ")
	line, err := bufio.NewReader(d.Input).ReadString('\n')
	if err != nil && line == "" {
		d.Logger.Warn("failed to read verifier", "error", err)
		return ""
	}
	return strings.TrimSpace(line)
}

// AuthenticationDidSucceed implements oauth.SuccessObserver.
func (d *BrowserDelegate) AuthenticationDidSucceed() {
	d.init()
	d.finish(nil)
}

// AuthenticationDidFail implements oauth.FailureObserver.
func (d *BrowserDelegate) AuthenticationDidFail(err error) {
	d.init()
	d.finish(err)
}

func (d *BrowserDelegate) finish(err error) {
	select {
	case d.done <- err:
	default:
	}
}

// Await starts m and blocks until the handshake succeeds or fails, or ctx
// is done. The server, when set, must already be started.
func (d *BrowserDelegate) Await(ctx context.Context, m *oauth.ThreeLegged) error {
	d.init()
	m.Authenticate()

	select {
	case <-d.requested:
	case err := <-d.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	if d.Server != nil {
		res, err := d.Server.WaitForCallback(ctx)
		if err != nil {
			return err
		}
		if err := m.HandleCallback(res.URL); err != nil {
			return err
		}
	} else if err := m.CompleteAuthorization("", ""); err != nil {
		return err
	}

	select {
	case err := <-d.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
