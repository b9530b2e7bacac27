// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command oauth1ctl runs OAuth 1.0a handshakes and LRDD discovery from the
// command line.
package main

import (
	"os"

	"github.com/stacklok/toolhive-oauth1/cmd/oauth1ctl/app"
)

var version = "dev"

func main() {
	os.Exit(app.Execute(version))
}
