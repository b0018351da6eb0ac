/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/edge-attest/pkg/crypto"
	"github.com/trustbloc/edge-attest/pkg/identity"
	"github.com/trustbloc/edge-attest/pkg/issuer"
	"github.com/trustbloc/edge-attest/pkg/preparator"
	"github.com/trustbloc/edge-attest/pkg/schema"
	"github.com/trustbloc/edge-attest/pkg/session"
	"github.com/trustbloc/edge-attest/pkg/vc"
)

const (
	credentialType = "accountOwnership"

	accountSchema = `{
		"subject": {
			"id": {"type": ["utf8-bytes"], "key": ["ethereum-address-bytes"]}
		},
		"custom": {
			"handle": ["utf8-bytes"]
		},
		"type": ["utf8-bytes"],
		"issuanceDate": ["date-timestamp"],
		"expirationDate": ["date-timestamp"]
	}`
)

type wallet struct {
	priv *btcec.PrivateKey
	id   vc.Identifier
}

func newWallet(t *testing.T) *wallet {
	t.Helper()

	priv, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)

	return &wallet{
		priv: priv,
		id:   vc.Identifier{Type: identity.EthereumAddress, Key: identity.AddressFromPublicKey(priv.PubKey())},
	}
}

func (w *wallet) sign(t *testing.T, message string) string {
	t.Helper()

	sig, err := identity.SignPersonal(w.priv, []byte(message))
	require.NoError(t, err)

	return "0x" + hex.EncodeToString(sig)
}

func newService(t *testing.T, ttl time.Duration) *issuer.Service {
	t.Helper()

	return newServiceWithCapacity(t, ttl, 100)
}

func newServiceWithCapacity(t *testing.T, ttl time.Duration, capacity int) *issuer.Service {
	t.Helper()

	prep, err := preparator.NewDefault()
	require.NoError(t, err)

	schemas, err := schema.New(mem.NewProvider(), prep.Graph())
	require.NoError(t, err)

	doc := fmt.Sprintf(`{%q: {%q: {"ethereum:address": %s}}}`, credentialType, crypto.Secp256k1Keccak256, accountSchema)
	require.NoError(t, schemas.Load(strings.NewReader(doc)))

	suites := crypto.NewRegistry(prep)

	s, err := crypto.NewSuite(crypto.Secp256k1Keccak256, prep, bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	suites.Register(s)

	svc, err := issuer.New(&issuer.Config{
		Store:          session.NewMemStore(capacity),
		Builder:        &session.Builder{Domain: "attest.example.com", TTL: ttl},
		Identities:     identity.NewRegistry(),
		Suites:         suites,
		Schemas:        schemas,
		CredentialType: credentialType,
	})
	require.NoError(t, err)

	return svc
}

func config(t *testing.T) *Config {
	t.Helper()

	return &Config{Service: newService(t, 5*time.Minute)}
}

func getHandler(t *testing.T, op *Operation, lookup, method string) Handler {
	t.Helper()

	return handlerLookup(t, op, lookup, method)
}

func handlerLookup(t *testing.T, op *Operation, lookup, method string) Handler {
	t.Helper()

	handlers := op.GetRESTHandlers()
	require.NotEmpty(t, handlers)

	for _, h := range handlers {
		if h.Path() == lookup && h.Method() == method {
			return h
		}
	}

	require.Fail(t, "unable to find handler")

	return nil
}

func serveHTTP(t *testing.T, handler http.HandlerFunc, method, path string, req []byte) *httptest.ResponseRecorder {
	t.Helper()

	httpReq, err := http.NewRequest(
		method,
		path,
		bytes.NewBuffer(req),
	)
	require.NoError(t, err)

	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, httpReq)

	return rr
}

func serveHTTPMux(t *testing.T, handler Handler, endpoint string, reqBytes []byte,
	urlVars map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	r, err := http.NewRequest(handler.Method(), endpoint, bytes.NewBuffer(reqBytes))
	require.NoError(t, err)

	rr := httptest.NewRecorder()

	req1 := mux.SetURLVars(r, urlVars)

	handler.Handle().ServeHTTP(rr, req1)

	return rr
}
