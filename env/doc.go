// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package env provides an interface-based abstraction for environment variable
access, so that configuration loading can be tested without touching the real
process environment.

# Basic Usage

Use OSReader to read environment variables via the standard os package:

	reader := &env.OSReader{}
	key, ok := reader.LookupEnv("OAUTH1_CONSUMER_KEY")

MapReader serves values from a plain map:

	reader := env.MapReader{"OAUTH1_LOG_LEVEL": "debug"}

# Testing

A generated mock is available in the mocks sub-package:

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockReader(ctrl)
	mock.EXPECT().LookupEnv("OAUTH1_CONSUMER_KEY").Return("key", true)
*/
package env
