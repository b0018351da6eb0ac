/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package session holds pending issuance state between a challenge and its signed response.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trustbloc/edge-attest/pkg/vc"
)

var (
	// ErrSessionNotFound is returned for unknown or already consumed sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session was found past its ttl.
	ErrSessionExpired = errors.New("session expired")

	// ErrStoreFull is returned when no more sessions can be held without dropping live ones.
	ErrStoreFull = errors.New("session store full")
)

const nonceBytes = 16

// Session binds a challenge nonce to the signer expected to answer it and the custom payload
// that will be issued. The payload is rendered into Message, so the signature covers it.
type Session struct {
	ID                string                 `json:"id"`
	ExpectedSigner    vc.Identifier          `json:"expectedSigner"`
	CredentialType    string                 `json:"credentialType,omitempty"`
	PendingAttributes map[string]interface{} `json:"pendingAttributes,omitempty"`
	Nonce             string                 `json:"nonce"`
	Message           string                 `json:"message"`
	CreatedAt         time.Time              `json:"createdAt"`
	TTL               time.Duration          `json:"ttl"`
	// Expiration is the expiration date of the credential to issue, if any.
	Expiration  *time.Time `json:"expiration,omitempty"`
	RedirectURL string     `json:"redirectURL,omitempty"`
}

// ExpiresAt returns the time after which the session can no longer be consumed.
func (s *Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(s.TTL)
}

// Store keeps sessions until they are consumed or expire. Take must be atomic: of any number of
// concurrent calls for one id, at most one returns the session.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Take(ctx context.Context, id string) (*Session, error)
	Exists(ctx context.Context, id string) bool
}

// Request describes a challenge to create.
type Request struct {
	Signer         vc.Identifier
	CredentialType string
	Expiration     *time.Time
	Custom         map[string]interface{}
	RedirectURL    string
}

// Builder creates sessions and their challenge messages.
type Builder struct {
	Domain string
	TTL    time.Duration
	Now    func() time.Time
}

// New creates a session with a fresh id and nonce.
func (b *Builder) New(req *Request) (*Session, error) {
	if err := req.Signer.Validate(); err != nil {
		return nil, fmt.Errorf("expected signer: %w", err)
	}

	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	s := &Session{
		ID:                uuid.New().String(),
		ExpectedSigner:    req.Signer,
		CredentialType:    req.CredentialType,
		PendingAttributes: req.Custom,
		Nonce:             nonce,
		CreatedAt:         now().UTC(),
		TTL:               b.TTL,
		Expiration:        req.Expiration,
		RedirectURL:       req.RedirectURL,
	}

	s.Message = Message(b.Domain, s)

	return s, nil
}

// NewNonce returns 128 random bits as lowercase hex.
func NewNonce() (string, error) {
	buf := make([]byte, nonceBytes)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// Message renders the human-readable text the signer is asked to sign. The pending payload is
// appended one leaf per line, as `custom.<path>: <value>` in key order, so the text is
// reproducible and names every value that will be issued.
func Message(domain string, s *Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s wants you to sign this message to receive a credential for\n", domain)
	fmt.Fprintf(&b, "%s\n\n", s.ExpectedSigner.String())

	if s.CredentialType != "" {
		fmt.Fprintf(&b, "Credential: %s\n", s.CredentialType)
	}

	fmt.Fprintf(&b, "Nonce: %s\n", s.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", s.CreatedAt.Format(time.RFC3339))

	if s.Expiration != nil {
		fmt.Fprintf(&b, "\nExpiration Time: %s", s.Expiration.UTC().Format(time.RFC3339))
	}

	if len(s.PendingAttributes) > 0 {
		writePayload(&b, vc.CustomAttribute, s.PendingAttributes)
	}

	return b.String()
}

func writePayload(b *strings.Builder, path string, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		if len(val) == 0 {
			fmt.Fprintf(b, "\n%s: {}", path)

			return
		}

		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			writePayload(b, path+"."+keyText(k), val[k])
		}
	case []interface{}:
		if len(val) == 0 {
			fmt.Fprintf(b, "\n%s: []", path)

			return
		}

		for i, item := range val {
			writePayload(b, path+"."+strconv.Itoa(i), item)
		}
	default:
		fmt.Fprintf(b, "\n%s: %s", path, leafText(v))
	}
}

// keyText quotes keys that would make a rendered path ambiguous.
func keyText(k string) string {
	if k == "" || strings.ContainsAny(k, ".:\"\r\n") || strings.TrimSpace(k) != k {
		return strconv.Quote(k)
	}

	return k
}

// leafText keeps plain strings readable. Strings that could break a line or read as a JSON
// literal are quoted, so "1" and 1 render differently.
func leafText(v interface{}) string {
	if str, ok := v.(string); ok {
		if str == "" || strings.ContainsAny(str, "\r\n") || strings.TrimSpace(str) != str || json.Valid([]byte(str)) {
			return strconv.Quote(str)
		}

		return str
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(raw)
}

// IsLifecycleError reports whether err means the session is gone and a new challenge is needed.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired)
}
