// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-oauth1/env"
	"github.com/stacklok/toolhive-oauth1/logging"
	"github.com/stacklok/toolhive-oauth1/oauth"
	"github.com/stacklok/toolhive-oauth1/signature"
	httpval "github.com/stacklok/toolhive-oauth1/validation/http"
)

// Environment variables that override file values.
const (
	EnvConsumerKey     = "OAUTH1_CONSUMER_KEY"
	EnvConsumerSecret  = "OAUTH1_CONSUMER_SECRET"
	EnvRequestTokenURL = "OAUTH1_REQUEST_TOKEN_URL"
	EnvAuthorizeURL    = "OAUTH1_AUTHORIZE_URL"
	EnvAccessTokenURL  = "OAUTH1_ACCESS_TOKEN_URL"
	EnvSignatureMethod = "OAUTH1_SIGNATURE_METHOD"
	EnvPrivateKeyFile  = "OAUTH1_PRIVATE_KEY_FILE"
	EnvCallbackPort    = "OAUTH1_CALLBACK_PORT"
	EnvLogLevel        = "OAUTH1_LOG_LEVEL"
	EnvLogFormat       = "OAUTH1_LOG_FORMAT"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the file and environment configuration.
type Config struct {
	ConsumerKey     string `yaml:"consumer_key"`
	ConsumerSecret  string `yaml:"consumer_secret"`
	SignatureMethod string `yaml:"signature_method"`
	// PrivateKeyFile is a PEM encoded RSA key used with RSA-SHA1.
	PrivateKeyFile string `yaml:"private_key_file"`

	RequestTokenURL string `yaml:"request_token_url"`
	AuthorizeURL    string `yaml:"authorize_url"`
	AccessTokenURL  string `yaml:"access_token_url"`

	// CallbackPort is the loopback port for the authorization redirect.
	// 0 selects a free port.
	CallbackPort int `yaml:"callback_port"`

	Logging Logging `yaml:"logging"`
}

// Logging selects the log handler.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultPath returns $XDG_CONFIG_HOME/oauth1ctl/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "oauth1ctl", "config.yaml")
}

// Load reads path, applies environment overrides from r and validates the
// result. A missing file is not an error when path is the default path, so
// a configuration can come from the environment alone.
func Load(path string, r env.Reader) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath():
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if r == nil {
		r = &env.OSReader{}
	}
	if err := cfg.applyEnv(r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(r env.Reader) error {
	for key, dst := range map[string]*string{
		EnvConsumerKey:     &c.ConsumerKey,
		EnvConsumerSecret:  &c.ConsumerSecret,
		EnvRequestTokenURL: &c.RequestTokenURL,
		EnvAuthorizeURL:    &c.AuthorizeURL,
		EnvAccessTokenURL:  &c.AccessTokenURL,
		EnvSignatureMethod: &c.SignatureMethod,
		EnvPrivateKeyFile:  &c.PrivateKeyFile,
		EnvLogLevel:        &c.Logging.Level,
		EnvLogFormat:       &c.Logging.Format,
	} {
		if v, ok := r.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := r.LookupEnv(EnvCallbackPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvCallbackPort, err)
		}
		c.CallbackPort = port
	}
	return nil
}

// Validate checks the values that do not depend on which handshake runs.
// Endpoints that are set must be absolute http(s) URLs.
func (c *Config) Validate() error {
	if c.ConsumerKey == "" {
		return fmt.Errorf("%w: consumer_key is required", ErrInvalidConfig)
	}
	if _, err := c.signatureMethod(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("%w: callback_port %d out of range", ErrInvalidConfig, c.CallbackPort)
	}
	for _, e := range []struct{ name, raw string }{
		{"request_token_url", c.RequestTokenURL},
		{"authorize_url", c.AuthorizeURL},
		{"access_token_url", c.AccessTokenURL},
	} {
		if e.raw == "" {
			continue
		}
		if _, err := httpval.ParseEndpointURL(e.raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, e.name, err)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// signatureMethod defaults to HMAC-SHA1.
func (c *Config) signatureMethod() (signature.Method, error) {
	return signature.ParseMethod(c.SignatureMethod)
}

// AuthContext builds the handshake configuration. The RSA key is read from
// PrivateKeyFile when the signature method is RSA-SHA1.
func (c *Config) AuthContext() (oauth.AuthContext, error) {
	method, err := c.signatureMethod()
	if err != nil {
		return oauth.AuthContext{}, err
	}
	ac := oauth.AuthContext{
		ConsumerKey:     c.ConsumerKey,
		ConsumerSecret:  c.ConsumerSecret,
		SignatureMethod: method,
	}
	for _, e := range []struct {
		raw string
		dst **url.URL
	}{
		{c.RequestTokenURL, &ac.RequestTokenURL},
		{c.AuthorizeURL, &ac.AuthorizeTokenURL},
		{c.AccessTokenURL, &ac.AccessTokenURL},
	} {
		if e.raw == "" {
			continue
		}
		u, err := httpval.ParseEndpointURL(e.raw)
		if err != nil {
			return oauth.AuthContext{}, err
		}
		*e.dst = u
	}
	if method == signature.RSASHA1 {
		if c.PrivateKeyFile == "" {
			return oauth.AuthContext{}, signature.ErrMissingPrivateKey
		}
		key, err := LoadPrivateKey(c.PrivateKeyFile)
		if err != nil {
			return oauth.AuthContext{}, err
		}
		ac.PrivateKey = key
	}
	return ac, nil
}

// LoadPrivateKey reads a PKCS#1 or PKCS#8 PEM encoded RSA private key.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes the first PEM block of data.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("private key: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key: %T is not an RSA key", parsed)
	}
	return key, nil
}
