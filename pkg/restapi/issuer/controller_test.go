/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/edge-attest/pkg/crypto"
	"github.com/trustbloc/edge-attest/pkg/identity"
	"github.com/trustbloc/edge-attest/pkg/issuer"
	"github.com/trustbloc/edge-attest/pkg/preparator"
	"github.com/trustbloc/edge-attest/pkg/restapi/issuer/operation"
	"github.com/trustbloc/edge-attest/pkg/schema"
	"github.com/trustbloc/edge-attest/pkg/session"
)

func newIssuer(t *testing.T) *issuer.Service {
	t.Helper()

	prep, err := preparator.NewDefault()
	require.NoError(t, err)

	schemas, err := schema.New(mem.NewProvider(), prep.Graph())
	require.NoError(t, err)
	require.NoError(t, schemas.Load(strings.NewReader(`{}`)))

	svc, err := issuer.New(&issuer.Config{
		Store:      session.NewMemStore(10),
		Builder:    &session.Builder{Domain: "attest.example.com", TTL: time.Minute},
		Identities: identity.NewRegistry(),
		Suites:     crypto.NewRegistry(prep),
		Schemas:    schemas,
	})
	require.NoError(t, err)

	return svc
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("test new - success", func(t *testing.T) {
		t.Parallel()

		controller, err := New(&operation.Config{Service: newIssuer(t)})
		require.NoError(t, err)
		require.NotNil(t, controller)

		ops := controller.GetOperations()

		require.Equal(t, 6, len(ops))
		require.Equal(t, "/challenge", ops[0].Path())
	})

	t.Run("test new - path prefix", func(t *testing.T) {
		t.Parallel()

		controller, err := New(&operation.Config{Service: newIssuer(t)}, WithPathPrefix("/attest/"))
		require.NoError(t, err)

		for _, op := range controller.GetOperations() {
			require.True(t, strings.HasPrefix(op.Path(), "/attest/"), op.Path())
		}

		require.Equal(t, "/attest/challenge/{id}", controller.GetOperations()[1].Path())
	})

	t.Run("test new - relative path prefix", func(t *testing.T) {
		t.Parallel()

		controller, err := New(&operation.Config{Service: newIssuer(t)}, WithPathPrefix("attest"))
		require.Nil(t, controller)
		require.EqualError(t, err, `path prefix "attest" must start with /`)
	})

	t.Run("test new - fail", func(t *testing.T) {
		t.Parallel()

		controller, err := New(&operation.Config{})
		require.Nil(t, controller)
		require.Error(t, err)
		require.Contains(t, err.Error(), "issuer service is mandatory")
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	controller, err := New(&operation.Config{Service: newIssuer(t)}, WithPathPrefix("/attest"))
	require.NoError(t, err)

	router := mux.NewRouter()
	controller.Register(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/attest/challenge", bytes.NewBufferString("{")))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid request")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/challenge", bytes.NewBufferString("{")))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NotContains(t, rr.Body.String(), "invalid request")
}
