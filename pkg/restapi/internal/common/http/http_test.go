/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteErrorResponse(rr, http.StatusGone, "session expired")

	require.Equal(t, http.StatusGone, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	resp := &ErrorResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), resp))
	require.Equal(t, "session expired", resp.Message)
}

func TestWriteResponse(t *testing.T) {
	t.Parallel()

	t.Run("default status", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		WriteResponse(rr, map[string]bool{"isVerified": true})

		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"isVerified":true}`, rr.Body.String())
	})

	t.Run("explicit status", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		WriteResponseWithStatus(rr, http.StatusCreated, map[string]string{"sessionId": "abc"})

		require.Equal(t, http.StatusCreated, rr.Code)
		require.JSONEq(t, `{"sessionId":"abc"}`, rr.Body.String())
	})

	t.Run("unencodable value", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		WriteResponse(rr, make(chan int))

		require.Empty(t, rr.Body.String())
	})
}
