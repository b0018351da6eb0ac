/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"time"

	"github.com/trustbloc/edge-attest/pkg/vc"
)

// ChallengeRequest req for challenge creation.
type ChallengeRequest struct {
	Subject         vc.Identifier          `json:"subject"`
	CredentialType  string                 `json:"credentialType,omitempty"`
	ValiditySeconds int64                  `json:"validitySeconds,omitempty"`
	Custom          map[string]interface{} `json:"custom,omitempty"`
	RedirectURL     string                 `json:"redirectURL,omitempty"`
}

// CanIssueResponse tells whether a challenge can still be redeemed.
type CanIssueResponse struct {
	CanIssue bool `json:"canIssue"`
}

// IssueRequest redeems a challenge with the subject's signature.
type IssueRequest struct {
	SessionID string `json:"sessionId"`
	Signature string `json:"signature"`
}

// VerifyRequest selects a proof of a credential for verification.
type VerifyRequest struct {
	Credential    *vc.Credential `json:"credential"`
	ProofSelector string         `json:"proofSelector,omitempty"`
}

// VerifyResponse verification result.
type VerifyResponse struct {
	IsVerified bool `json:"isVerified"`
}

// OAuthLoginResponse is returned instead of a redirect when the client asks for JSON.
type OAuthLoginResponse struct {
	State   string `json:"state"`
	AuthURL string `json:"authURL"`
}

// OAuthTokenResponse carries the token obtained in the authorization callback.
type OAuthTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
}
