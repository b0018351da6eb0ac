/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vc

const (
	// SubjectAttribute is the attribute holding facts about the subject.
	SubjectAttribute = "subject"

	// IDAttribute is the subject attribute holding the subject identifier.
	IDAttribute = "id"

	// IssuanceDateAttribute is the top level issuance date attribute.
	IssuanceDateAttribute = "issuanceDate"

	// ExpirationDateAttribute is the top level expiration date attribute.
	ExpirationDateAttribute = "expirationDate"

	// TypeAttribute is the top level credential type attribute.
	TypeAttribute = "type"

	// CustomAttribute holds the client-supplied payload the subject signed in the challenge.
	CustomAttribute = "custom"
)
