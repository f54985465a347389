// Package audit captures key pipeline actions as append-only events. Events are
// transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Real-name verification outcomes fall here.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring,
	// such as rate limit hits.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	Reason    string
	BatchID   string
	RecordID  string
	// SubjectHash is a SHA-256 hash of the subject identifier being verified.
	// Raw PII never enters the audit trail.
	SubjectHash string
	Method      string
	Provider    string
}

type AuditEvent string

const (
	// Batch lifecycle events
	EventBatchCreated   AuditEvent = "batch_created"
	EventBatchCompleted AuditEvent = "batch_completed"
	EventBatchFailed    AuditEvent = "batch_failed"
	EventBatchCancelled AuditEvent = "batch_cancelled"
	EventRecordsRetried AuditEvent = "records_retried"

	// Verification events
	EventAuthenticationApproved AuditEvent = "authentication_approved"
	EventAuthenticationRejected AuditEvent = "authentication_rejected"
	EventAuthenticationExpired  AuditEvent = "authentication_expired"

	// Rate limit events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"

	// Provider events
	EventProviderRegistered AuditEvent = "provider_registered"
	EventProviderFailed     AuditEvent = "provider_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventAuthenticationApproved: CategoryCompliance,
	EventAuthenticationRejected: CategoryCompliance,
	EventAuthenticationExpired:  CategoryCompliance,

	EventRateLimitExceeded: CategorySecurity,
	EventProviderFailed:    CategorySecurity,

	EventBatchCreated:       CategoryOperations,
	EventBatchCompleted:     CategoryOperations,
	EventBatchFailed:        CategoryOperations,
	EventBatchCancelled:     CategoryOperations,
	EventRecordsRetried:     CategoryOperations,
	EventProviderRegistered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// HashSubject produces the SHA-256 hex digest stored instead of raw subject IDs.
func HashSubject(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByBatch(ctx context.Context, batchID string) ([]Event, error)
}
