/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/edge-attest/pkg/crypto"
	"github.com/trustbloc/edge-attest/internal/common/adapterutil"
	"github.com/trustbloc/edge-attest/pkg/internal/common/support"
	"github.com/trustbloc/edge-attest/pkg/issuer"
	"github.com/trustbloc/edge-attest/pkg/oauth"
	"github.com/trustbloc/edge-attest/pkg/restapi"
	commhttp "github.com/trustbloc/edge-attest/pkg/restapi/internal/common/http"
	"github.com/trustbloc/edge-attest/pkg/session"
	"github.com/trustbloc/edge-attest/pkg/zk"
)

const (
	// API endpoints
	challengeEndpoint     = "/challenge"
	getChallengeEndpoint  = challengeEndpoint + "/{id}"
	issueEndpoint         = "/issue"
	verifyEndpoint        = "/verify"
	verifyDerivedEndpoint = verifyEndpoint + "/derived"
	verifyZKEndpoint      = verifyEndpoint + "/zk"
	oauthLoginEndpoint    = "/oauth/login"
	oauthCallbackEndpoint = "/oauth/callback"

	// http params
	idPathParam     = "id"
	stateQueryParam = "state"
	codeQueryParam  = "code"
)

var logger = log.New("edge-attest/restapi/issuer")

// Handler http handler for each controller API endpoint.
type Handler = restapi.Handler

// Config defines configuration for issuer operations.
type Config struct {
	Service *issuer.Service
	OAuth   *oauth.VerifierCache
}

// New returns issuer rest instance.
func New(config *Config) (*Operation, error) {
	if config == nil || config.Service == nil {
		return nil, errors.New("issuer service is mandatory")
	}

	return &Operation{service: config.Service, oauth: config.OAuth}, nil
}

// Operation defines handlers for issuer operations.
type Operation struct {
	service *issuer.Service
	oauth   *oauth.VerifierCache
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []Handler {
	handlers := []Handler{
		// issuance
		support.NewHTTPHandler(challengeEndpoint, http.MethodPost, o.createChallengeHandler),
		support.NewHTTPHandler(getChallengeEndpoint, http.MethodGet, o.canIssueHandler),
		support.NewHTTPHandler(issueEndpoint, http.MethodPost, o.issueHandler),

		// verification
		support.NewHTTPHandler(verifyEndpoint, http.MethodPost, o.verifyHandler),
		support.NewHTTPHandler(verifyDerivedEndpoint, http.MethodPost, o.verifyDerivedHandler),
		support.NewHTTPHandler(verifyZKEndpoint, http.MethodPost, o.verifyZKHandler),
	}

	if o.oauth != nil {
		handlers = append(handlers,
			support.NewHTTPHandler(oauthLoginEndpoint, http.MethodGet, o.oauthLoginHandler),
			support.NewHTTPHandler(oauthCallbackEndpoint, http.MethodGet, o.oauthCallbackHandler),
		)
	}

	return handlers
}

func (o *Operation) createChallengeHandler(rw http.ResponseWriter, req *http.Request) {
	data := &ChallengeRequest{}

	if err := json.NewDecoder(req.Body).Decode(data); err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))

		return
	}

	if data.RedirectURL != "" && !adapterutil.ValidHTTPURL(data.RedirectURL) {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest,
			fmt.Sprintf("invalid request: redirect url %q is not an http url", data.RedirectURL))

		return
	}

	if data.ValiditySeconds < 0 || data.ValiditySeconds > int64(issuer.MaxValidity/time.Second) {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest,
			fmt.Sprintf("invalid request: validitySeconds must be between 0 and %d", int64(issuer.MaxValidity/time.Second)))

		return
	}

	challenge, err := o.service.GetChallenge(req.Context(), &issuer.ChallengeRequest{
		Subject:        data.Subject,
		CredentialType: data.CredentialType,
		Validity:       time.Duration(data.ValiditySeconds) * time.Second,
		Custom:         data.Custom,
		RedirectURL:    data.RedirectURL,
	})
	if err != nil {
		writeServiceError(rw, "failed to create challenge", err)

		return
	}

	commhttp.WriteResponseWithStatus(rw, http.StatusCreated, challenge)
}

func (o *Operation) canIssueHandler(rw http.ResponseWriter, req *http.Request) {
	sessionID := mux.Vars(req)[idPathParam]

	commhttp.WriteResponse(rw, &CanIssueResponse{CanIssue: o.service.CanIssue(req.Context(), sessionID)})
}

func (o *Operation) issueHandler(rw http.ResponseWriter, req *http.Request) {
	data := &IssueRequest{}

	if err := json.NewDecoder(req.Body).Decode(data); err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))

		return
	}

	if data.SessionID == "" || data.Signature == "" {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "invalid request: sessionId and signature are mandatory")

		return
	}

	issued, err := o.service.Issue(req.Context(), data.SessionID, data.Signature)
	if err != nil {
		writeServiceError(rw, "failed to issue credential", err)

		return
	}

	commhttp.WriteResponseWithStatus(rw, http.StatusCreated, issued)
}

func (o *Operation) verifyHandler(rw http.ResponseWriter, req *http.Request) {
	data := &VerifyRequest{}

	if err := json.NewDecoder(req.Body).Decode(data); err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))

		return
	}

	if data.Credential == nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "invalid request: credential is mandatory")

		return
	}

	commhttp.WriteResponse(rw, &VerifyResponse{IsVerified: o.service.Verify(data.Credential, data.ProofSelector)})
}

func (o *Operation) verifyDerivedHandler(rw http.ResponseWriter, req *http.Request) {
	data := &crypto.DerivedProof{}

	if err := json.NewDecoder(req.Body).Decode(data); err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))

		return
	}

	commhttp.WriteResponse(rw, &VerifyResponse{IsVerified: o.service.VerifyDerived(data)})
}

func (o *Operation) verifyZKHandler(rw http.ResponseWriter, req *http.Request) {
	data := &zk.ProvingResult{}

	if err := json.NewDecoder(req.Body).Decode(data); err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))

		return
	}

	commhttp.WriteResponse(rw, &VerifyResponse{IsVerified: o.service.VerifyProvingResult(req.Context(), data)})
}

func (o *Operation) oauthLoginHandler(rw http.ResponseWriter, req *http.Request) {
	state, authURL, err := o.oauth.AuthCodeURL()
	if errors.Is(err, oauth.ErrTooManyPending) {
		commhttp.WriteErrorResponse(rw, http.StatusServiceUnavailable, err.Error())

		return
	}

	if err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusInternalServerError,
			fmt.Sprintf("failed to create authorization request: %s", err.Error()))

		return
	}

	if req.Header.Get("Accept") == "application/json" {
		commhttp.WriteResponse(rw, &OAuthLoginResponse{State: state, AuthURL: authURL})

		return
	}

	http.Redirect(rw, req, authURL, http.StatusFound)
}

func (o *Operation) oauthCallbackHandler(rw http.ResponseWriter, req *http.Request) {
	state := req.URL.Query().Get(stateQueryParam)
	code := req.URL.Query().Get(codeQueryParam)

	if state == "" || code == "" {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "missing state or code")

		return
	}

	token, err := o.oauth.Exchange(req.Context(), state, code)
	if errors.Is(err, oauth.ErrUnknownState) {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, err.Error())

		return
	}

	if err != nil {
		logger.Errorf("oauth callback: %s", err)
		commhttp.WriteErrorResponse(rw, http.StatusBadGateway,
			fmt.Sprintf("failed to exchange authorization code: %s", err.Error()))

		return
	}

	commhttp.WriteResponse(rw, &OAuthTokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	})
}

func writeServiceError(rw http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s: %s", msg, err)
	}

	commhttp.WriteErrorResponse(rw, status, fmt.Sprintf("%s: %s", msg, err.Error()))
}

// errorStatus maps service errors to response codes. Lifecycle errors tell the client to request
// a new challenge.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, issuer.ErrSignatureMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrStoreFull):
		return http.StatusServiceUnavailable
	case issuer.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
