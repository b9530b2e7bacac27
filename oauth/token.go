// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"maps"
	"sync"
)

// Token is a request or access token together with the extra parameters
// the service provider returned alongside it.
type Token struct {
	Key    string
	Secret string
	Extra  map[string]string
}

// Clone returns a deep copy of t.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	c.Extra = maps.Clone(t.Extra)
	return &c
}

// TokenKind selects a slot in a TokenStore.
type TokenKind int

const (
	// RequestToken is the short-lived temporary credential.
	RequestToken TokenKind = iota
	// AccessToken is the token credential obtained at the end of a handshake.
	AccessToken
)

func (k TokenKind) String() string {
	if k == RequestToken {
		return "request_token"
	}
	return "access_token"
}

// TokenStore holds at most one token of each kind and the parameters of the
// last successful token response. Tokens are replaced whole, never edited in
// place, so readers never observe a half-written token. The zero value is
// an empty store.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[TokenKind]*Token
	params map[string]string
}

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[TokenKind]*Token, 2)}
}

// Set replaces the token of the given kind. A nil token clears the slot.
func (s *TokenStore) Set(kind TokenKind, t *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		delete(s.tokens, kind)
		return
	}
	if s.tokens == nil {
		s.tokens = make(map[TokenKind]*Token, 2)
	}
	s.tokens[kind] = t.Clone()
}

// Token returns a copy of the token of the given kind, or nil.
func (s *TokenStore) Token(kind TokenKind) *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[kind].Clone()
}

// Clear removes the token of the given kind.
func (s *TokenStore) Clear(kind TokenKind) {
	s.Set(kind, nil)
}

// SetParams replaces the stored response parameters.
func (s *TokenStore) SetParams(params map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = maps.Clone(params)
}

// Params returns a copy of the last successful response's parameters.
func (s *TokenStore) Params() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.params)
}

// Reset drops every token and parameter.
func (s *TokenStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
	s.params = nil
}
