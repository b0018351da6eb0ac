/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package healthcheck

import (
	"net/http"
	"time"

	"github.com/trustbloc/edge-attest/pkg/internal/common/support"
	"github.com/trustbloc/edge-attest/pkg/restapi"
	commhttp "github.com/trustbloc/edge-attest/pkg/restapi/internal/common/http"
)

const healthCheckEndpoint = "/healthcheck"

type healthCheckResp struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
}

// New returns new controller instance.
func New() *Controller {
	return &Controller{handlers: []restapi.Handler{
		support.NewHTTPHandler(healthCheckEndpoint, http.MethodGet, healthCheckHandler),
	}}
}

// Controller contains handlers for controller.
type Controller struct {
	handlers []restapi.Handler
}

// GetOperations returns all controller endpoints.
func (c *Controller) GetOperations() []restapi.Handler {
	return c.handlers
}

func healthCheckHandler(rw http.ResponseWriter, _ *http.Request) {
	commhttp.WriteResponse(rw, &healthCheckResp{
		Status:      "success",
		CurrentTime: time.Now(),
	})
}
