// Package domain holds typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so the compiler rejects
// cross-entity ID mixups. Parse helpers enforce the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "realname/pkg/domain-errors"
)

type (
	// BatchID identifies one uploaded import batch.
	BatchID uuid.UUID

	// RecordID identifies one row of a batch.
	RecordID uuid.UUID

	// ProviderID identifies a registered verification provider.
	ProviderID uuid.UUID

	// AuthenticationID identifies a durable per-subject verification outcome.
	AuthenticationID uuid.UUID

	// ResultID identifies a single provider verification result.
	ResultID uuid.UUID
)

func (id BatchID) String() string          { return uuid.UUID(id).String() }
func (id RecordID) String() string         { return uuid.UUID(id).String() }
func (id ProviderID) String() string       { return uuid.UUID(id).String() }
func (id AuthenticationID) String() string { return uuid.UUID(id).String() }
func (id ResultID) String() string         { return uuid.UUID(id).String() }

func (id BatchID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ProviderID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AuthenticationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ResultID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }

// NewBatchID generates a fresh batch identifier.
func NewBatchID() BatchID { return BatchID(uuid.New()) }

// NewRecordID generates a fresh record identifier.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewProviderID generates a fresh provider identifier.
func NewProviderID() ProviderID { return ProviderID(uuid.New()) }

// NewAuthenticationID generates a fresh authentication identifier.
func NewAuthenticationID() AuthenticationID { return AuthenticationID(uuid.New()) }

// NewResultID generates a fresh verification result identifier.
func NewResultID() ResultID { return ResultID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id must not be nil", kind)
	}
	return parsed, nil
}

// ParseBatchID validates and converts a raw string into a BatchID.
func ParseBatchID(raw string) (BatchID, error) {
	parsed, err := parseUUID(raw, "batch")
	return BatchID(parsed), err
}

// ParseRecordID validates and converts a raw string into a RecordID.
func ParseRecordID(raw string) (RecordID, error) {
	parsed, err := parseUUID(raw, "record")
	return RecordID(parsed), err
}

// ParseProviderID validates and converts a raw string into a ProviderID.
func ParseProviderID(raw string) (ProviderID, error) {
	parsed, err := parseUUID(raw, "provider")
	return ProviderID(parsed), err
}

// ParseAuthenticationID validates and converts a raw string into an AuthenticationID.
func ParseAuthenticationID(raw string) (AuthenticationID, error) {
	parsed, err := parseUUID(raw, "authentication")
	return AuthenticationID(parsed), err
}
