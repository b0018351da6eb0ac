/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"fmt"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/edge-attest/pkg/internal/common/support"
	"github.com/trustbloc/edge-attest/pkg/restapi"
	"github.com/trustbloc/edge-attest/pkg/restapi/issuer/operation"
)

var logger = log.New("edge-attest/restapi/issuer")

// Option configures the controller.
type Option func(*Controller)

// WithPathPrefix mounts every attestation endpoint under prefix, e.g. "/attest".
func WithPathPrefix(prefix string) Option {
	return func(c *Controller) {
		c.prefix = prefix
	}
}

// Controller mounts the challenge, issuance, verification and oauth endpoints.
type Controller struct {
	prefix   string
	handlers []restapi.Handler
}

// New returns new controller instance.
func New(config *operation.Config, opts ...Option) (*Controller, error) {
	c := &Controller{}

	for _, opt := range opts {
		opt(c)
	}

	c.prefix = strings.TrimRight(c.prefix, "/")

	if c.prefix != "" && !strings.HasPrefix(c.prefix, "/") {
		return nil, fmt.Errorf("path prefix %q must start with /", c.prefix)
	}

	ops, err := operation.New(config)
	if err != nil {
		return nil, err
	}

	for _, h := range ops.GetRESTHandlers() {
		c.handlers = append(c.handlers, support.NewHTTPHandler(c.prefix+h.Path(), h.Method(), h.Handle()))
	}

	return c, nil
}

// GetOperations returns all controller endpoints.
func (c *Controller) GetOperations() []restapi.Handler {
	return c.handlers
}

// Register adds every endpoint to router.
func (c *Controller) Register(router *mux.Router) {
	for _, h := range c.handlers {
		router.HandleFunc(h.Path(), h.Handle()).Methods(h.Method())

		logger.Debugf("registered %s %s", h.Method(), h.Path())
	}
}
