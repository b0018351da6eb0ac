/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuer runs the challenge-response issuance protocol: a challenge binds a nonce to the
// expected signer, and a matching signature turns the pending attributes into a credential.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/edge-attest/pkg/crypto"
	"github.com/trustbloc/edge-attest/pkg/identity"
	"github.com/trustbloc/edge-attest/pkg/schema"
	"github.com/trustbloc/edge-attest/pkg/session"
	"github.com/trustbloc/edge-attest/pkg/vc"
	vcissuer "github.com/trustbloc/edge-attest/pkg/vc/issuer"
	"github.com/trustbloc/edge-attest/pkg/zk"
)

var logger = log.New("edge-attest/issuer")

// MaxValidity bounds the credential validity window a challenge may request.
const MaxValidity = 100 * 366 * 24 * time.Hour

var (
	// ErrSignatureMismatch is returned when a challenge signature does not come from the expected
	// signer. The session is consumed regardless.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrInvalidRequest is returned for malformed challenge requests.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoProofs is returned when no configured suite has a schema for the credential.
	ErrNoProofs = errors.New("no proof suite applies")
)

// IsLifecycleError reports whether err means the session is gone and the client should request
// a new challenge.
func IsLifecycleError(err error) bool {
	return session.IsLifecycleError(err)
}

// IsClientError reports whether err was caused by the request rather than the service.
func IsClientError(err error) bool {
	return IsLifecycleError(err) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, identity.ErrUnsupportedIdentifier)
}

// Config holds the service collaborators.
type Config struct {
	Store          session.Store
	Builder        *session.Builder
	Identities     *identity.Registry
	Suites         *crypto.Registry
	Schemas        *schema.Provider
	ZK             *zk.Verifier
	CredentialType string
	IssuerMetadata map[string]interface{}
	Now            func() time.Time
}

// ChallengeRequest asks for a challenge for subject. Custom is rendered into the challenge
// message and, once signed, issued under the custom attribute.
type ChallengeRequest struct {
	Subject        vc.Identifier          `json:"subject"`
	CredentialType string                 `json:"credentialType,omitempty"`
	Validity       time.Duration          `json:"validity,omitempty"`
	Custom         map[string]interface{} `json:"custom,omitempty"`
	RedirectURL    string                 `json:"redirectURL,omitempty"`
}

// Challenge is the message the subject must sign.
type Challenge struct {
	SessionID   string    `json:"sessionId"`
	Message     string    `json:"message"`
	ExpiresAt   time.Time `json:"expiresAt"`
	RedirectURL string    `json:"redirectURL,omitempty"`
}

// Issued is the result of a successful issuance.
type Issued struct {
	Credential  *vc.Credential `json:"credential"`
	RedirectURL string         `json:"redirectURL,omitempty"`
}

// Service issues and verifies credentials.
type Service struct {
	store          session.Store
	builder        *session.Builder
	identities     *identity.Registry
	suites         *crypto.Registry
	schemas        *schema.Provider
	zk             *zk.Verifier
	credentialType string
	issuerMetadata map[string]interface{}
	now            func() time.Time
}

// New returns a service.
func New(config *Config) (*Service, error) {
	if config.Store == nil || config.Builder == nil || config.Identities == nil ||
		config.Suites == nil || config.Schemas == nil {
		return nil, errors.New("store, builder, identities, suites and schemas are mandatory")
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:          config.Store,
		builder:        config.Builder,
		identities:     config.Identities,
		suites:         config.Suites,
		schemas:        config.Schemas,
		zk:             config.ZK,
		credentialType: config.CredentialType,
		issuerMetadata: config.IssuerMetadata,
		now:            now,
	}, nil
}

// GetChallenge creates a session for req and returns the message to sign.
func (s *Service) GetChallenge(ctx context.Context, req *ChallengeRequest) (*Challenge, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}

	if err := s.identities.Validate(req.Subject); err != nil {
		if errors.Is(err, identity.ErrUnsupportedIdentifier) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	if req.Validity < 0 || req.Validity > MaxValidity {
		return nil, fmt.Errorf("%w: validity must be between 0 and %s", ErrInvalidRequest, MaxValidity)
	}

	credType := req.CredentialType
	if credType == "" {
		credType = s.credentialType
	}

	var expiration *time.Time

	if req.Validity > 0 {
		exp := s.now().Add(req.Validity).UTC().Truncate(time.Second)
		expiration = &exp
	}

	sess, err := s.builder.New(&session.Request{
		Signer:         req.Subject,
		CredentialType: credType,
		Expiration:     expiration,
		Custom:         req.Custom,
		RedirectURL:    req.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err = s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	logger.Debugf("challenge %s created for %s", sess.ID, req.Subject)

	return &Challenge{
		SessionID:   sess.ID,
		Message:     sess.Message,
		ExpiresAt:   sess.ExpiresAt(),
		RedirectURL: sess.RedirectURL,
	}, nil
}

// CanIssue reports whether the session exists and has not expired. It does not consume it.
func (s *Service) CanIssue(ctx context.Context, sessionID string) bool {
	return s.store.Exists(ctx, sessionID)
}

// Issue consumes the session, checks signature against its challenge message and returns the
// credential with a proof from every suite that has a schema for it. A failed signature check
// still consumes the session.
func (s *Service) Issue(ctx context.Context, sessionID, signature string) (*Issued, error) {
	sess, err := s.store.Take(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err = s.identities.Verify(sess.ExpectedSigner, []byte(sess.Message), signature); err != nil {
		logger.Infof("challenge %s: signature rejected: %s", sessionID, err)

		return nil, fmt.Errorf("%w: %s", ErrSignatureMismatch, err.Error())
	}

	attrs, err := vcissuer.CreateAttributes(&vcissuer.Claims{
		Subject:    sess.ExpectedSigner,
		Pending:    sess.PendingAttributes,
		Type:       sess.CredentialType,
		Issued:     s.now(),
		Expiration: sess.Expiration,
	})
	if err != nil {
		return nil, fmt.Errorf("create attributes: %w", err)
	}

	cred := vc.NewCredential(attrs, s.issuerMetadata)

	for _, suite := range s.suites.Signers() {
		sch, err := s.schemas.Get(schema.Key{
			CredentialType: sess.CredentialType,
			ProofType:      string(suite.Type()),
			IdentifierType: sess.ExpectedSigner.Type,
		})
		if errors.Is(err, schema.ErrSchemaNotFound) {
			logger.Debugf("no %s schema for %s credentials of %s", suite.Type(), sess.CredentialType,
				sess.ExpectedSigner.Type)

			continue
		}

		if err != nil {
			return nil, err
		}

		proof, err := suite.SignAttributes(attrs, sch)
		if err != nil {
			return nil, fmt.Errorf("sign credential: %w", err)
		}

		cred = cred.WithProof(string(suite.Type()), proof)
	}

	if len(cred.Proofs) == 0 {
		return nil, fmt.Errorf("%w: %s credentials for %s", ErrNoProofs, sess.CredentialType, sess.ExpectedSigner.Type)
	}

	logger.Infof("challenge %s: issued %s credential with %d proofs", sessionID, sess.CredentialType, len(cred.Proofs))

	return &Issued{Credential: cred, RedirectURL: sess.RedirectURL}, nil
}

// Verify checks the proof selected from cred.
func (s *Service) Verify(cred *vc.Credential, selector string) bool {
	return s.suites.Verify(cred, selector)
}

// VerifyProvingResult checks a zero-knowledge proof. It is false when no circuit verifier is
// configured.
func (s *Service) VerifyProvingResult(ctx context.Context, result *zk.ProvingResult) bool {
	if s.zk == nil {
		logger.Debugf("zk verification requested but no compiler is configured")

		return false
	}

	return s.zk.Verify(ctx, result)
}

// VerifyDerived checks a BBS+ selective-disclosure proof.
func (s *Service) VerifyDerived(d *crypto.DerivedProof) bool {
	suite, ok := s.suites.Get(crypto.BBSBls12381)
	if !ok {
		verifier, err := crypto.NewSuite(crypto.BBSBls12381, s.suites.Preparator(), nil)
		if err != nil {
			logger.Debugf("verify derived proof: %s", err)

			return false
		}

		suite = verifier
	}

	bbs, ok := suite.(*crypto.BBSSuite)
	if !ok {
		logger.Debugf("verify derived proof: %s suite cannot verify derived proofs", crypto.BBSBls12381)

		return false
	}

	return bbs.VerifyDerived(d)
}
