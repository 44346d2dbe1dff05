package domain

import (
	"strings"
	"time"
)

// MembershipStatus represents the lifecycle state of a membership.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipPastDue   MembershipStatus = "past_due"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipCancelled MembershipStatus = "cancelled"
)

// MembershipAccount is the long-lived member record keyed by email
// (case-insensitive). It is mutated only through the conditional
// state-machine updates in the account repository.
type MembershipAccount struct {
	Email            string           `json:"email"`
	Status           MembershipStatus `json:"membership_status"`
	GracePeriodStart *time.Time       `json:"grace_period_start,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// IsDegraded reports whether the account is already suspended or
// cancelled, i.e. a new grace period must not be started.
func (a *MembershipAccount) IsDegraded() bool {
	return a.Status == MembershipSuspended || a.Status == MembershipCancelled
}

// NormalizeEmail lowercases an email for use as an account key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
