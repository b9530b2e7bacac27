// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package config loads consumer credentials and service provider endpoints
for the oauth1ctl command.

A configuration file is YAML:

	consumer_key: my-app
	consumer_secret: s3cret
	signature_method: HMAC-SHA1
	request_token_url: https://api.example.com/oauth/request_token
	authorize_url: https://api.example.com/oauth/authorize
	access_token_url: https://api.example.com/oauth/access_token
	callback_port: 8765
	logging:
	  level: info
	  format: text

Every scalar can be overridden with an OAUTH1_ environment variable, for
example OAUTH1_CONSUMER_SECRET. Environment values win over the file.
*/
package config
