/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"fmt"
	"time"

	"github.com/trustbloc/edge-attest/pkg/vc"
)

// Claims are the inputs to a credential's final attribute tree.
type Claims struct {
	Subject    vc.Identifier
	Pending    map[string]interface{}
	Type       string
	Issued     time.Time
	Expiration *time.Time
}

// CreateAttributes returns the attribute tree of a credential. The client payload is copied under
// custom, so it can never shadow subject.id, type or the dates filled in by the issuer.
func CreateAttributes(c *Claims) (map[string]interface{}, error) {
	if err := c.Subject.Validate(); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}

	attrs := map[string]interface{}{
		vc.SubjectAttribute:      map[string]interface{}{vc.IDAttribute: c.Subject.Attribute()},
		vc.IssuanceDateAttribute: c.Issued.UTC().Format(time.RFC3339),
	}

	if len(c.Pending) > 0 {
		attrs[vc.CustomAttribute] = deepCopy(c.Pending)
	}

	if c.Expiration != nil {
		attrs[vc.ExpirationDateAttribute] = c.Expiration.UTC().Format(time.RFC3339)
	}

	if c.Type != "" {
		attrs[vc.TypeAttribute] = c.Type
	}

	return attrs, nil
}

func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if val == nil {
			return val
		}

		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}

		return out
	default:
		return v
	}
}
