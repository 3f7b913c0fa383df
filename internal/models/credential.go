// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package models

import "time"

// Tier is the subscription tier of an upstream account.
type Tier string

const (
	TierPremium Tier = "premium"
	TierFree    Tier = "free"
)

// DirectControlTokenLength is the length of a pairing token that can be
// authenticated against a subject.
const DirectControlTokenLength = 36

// ReservedTokenLength is a second, syntactically valid token format that
// is never authenticated.
const ReservedTokenLength = 73

// Credential is the stored authorization for one subject.
// The store owns it; callers fetch a fresh copy per operation.
type Credential struct {
	SubjectID          string    `json:"subject_id"`
	RefreshToken       string    `json:"refresh_token"`
	AccessToken        string    `json:"access_token"`
	Tier               Tier      `json:"tier"`
	DirectControlToken string    `json:"direct_control_token,omitempty"`
	ProviderUserID     string    `json:"provider_user_id,omitempty"`
	DisplayName        string    `json:"display_name,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Premium reports whether the account can be driven through the playback API.
func (c *Credential) Premium() bool {
	return c != nil && c.Tier == TierPremium
}

// HasDirectControl reports whether the account has a relay pairing token.
func (c *Credential) HasDirectControl() bool {
	return c != nil && c.DirectControlToken != ""
}

// Controllable reports whether a listener with this credential can be
// synchronized at all.
func (c *Credential) Controllable() bool {
	return c.Premium() || c.HasDirectControl()
}

// ActorRef identifies a participant by its external id.
type ActorRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}
