/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package oauth keeps PKCE code verifiers between an authorization redirect and its callback.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/trustbloc/edge-attest/pkg/cache"
)

var (
	// ErrUnknownState is returned when a callback state has no stored verifier, including replays.
	ErrUnknownState = errors.New("unknown oauth state")

	// ErrTooManyPending is returned when every slot holds an authorization still in flight.
	ErrTooManyPending = errors.New("too many pending authorizations")
)

// VerifierCache pairs each authorization request state with its code verifier.
type VerifierCache struct {
	config *oauth2.Config
	cache  *cache.Cache
	client *http.Client
}

// Option configures a VerifierCache.
type Option func(*VerifierCache)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(client *http.Client) Option {
	return func(v *VerifierCache) {
		v.client = client
	}
}

// NewVerifierCache returns a cache for up to capacity pending authorizations, each valid for ttl.
// Pending authorizations are never evicted to make room for new ones.
func NewVerifierCache(config *oauth2.Config, capacity int, ttl time.Duration, opts ...Option) *VerifierCache {
	v := &VerifierCache{config: config, cache: cache.New(capacity, ttl)}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// AuthCodeURL returns a fresh state and the authorization URL carrying its S256 code challenge.
func (v *VerifierCache) AuthCodeURL() (state, url string, err error) {
	state = uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	if err = v.cache.Add(state, verifier); err != nil {
		if errors.Is(err, cache.ErrFull) {
			return "", "", ErrTooManyPending
		}

		return "", "", fmt.Errorf("store code verifier: %w", err)
	}

	return state, v.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// Exchange redeems code using the verifier stored for state. Each state can be used once.
func (v *VerifierCache) Exchange(ctx context.Context, state, code string) (*oauth2.Token, error) {
	value, err := v.cache.Take(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, err.Error())
	}

	verifier, ok := value.(string)
	if !ok {
		return nil, ErrUnknownState
	}

	if v.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	}

	token, err := v.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	return token, nil
}
