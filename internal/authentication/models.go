// Package authentication owns the durable per-subject verification outcome:
// one AuthenticationRecord per (subject, method) attempt, plus the raw
// provider results it accumulates.
package authentication

import (
	"time"

	"realname/internal/method"
	"realname/internal/provider"
	"realname/pkg/domain"
)

// Status is the lifecycle state of an AuthenticationRecord.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

// Record is one subject's verification attempt and its outcome. It owns the
// provider results produced on its behalf; batch records hold only a weak
// reference to it.
type Record struct {
	ID            domain.AuthenticationID
	Subject       string
	Method        method.Method
	Status        Status
	SubmittedData map[string]string
	// LatestResult is the most recent provider result; the full history
	// lives in the result store.
	LatestResult *provider.Result
	ExpireTime   *time.Time
	Reason       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Blocking reports whether this record blocks a new attempt for the same
// (subject, method) at instant now. Rejected and expired records never block;
// anything else blocks until its expiry passes.
func (r *Record) Blocking(now time.Time) bool {
	switch r.Status {
	case StatusRejected, StatusExpired:
		return false
	}
	if r.ExpireTime != nil && !now.Before(*r.ExpireTime) {
		return false
	}
	return true
}
