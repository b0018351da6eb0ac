/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package support

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHTTPHandler(t *testing.T) {
	t.Parallel()

	called := false

	handler := NewHTTPHandler("/challenge", http.MethodPost, func(rw http.ResponseWriter, _ *http.Request) {
		called = true

		rw.WriteHeader(http.StatusCreated)
	})

	require.Equal(t, "/challenge", handler.Path())
	require.Equal(t, http.MethodPost, handler.Method())

	rr := httptest.NewRecorder()
	handler.Handle().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/challenge", nil))

	require.True(t, called)
	require.Equal(t, http.StatusCreated, rr.Code)
}
