package domain

import (
	"github.com/google/uuid"

	dErrors "infrastat/pkg/domain-errors"
)

// Typed IDs prevent accidental cross-assignment between aggregates.
// All IDs are UUIDs; parsing enforces non-empty, well-formed, non-nil values
// at trust boundaries (HTTP handlers, store row scans).
type (
	// TenantID identifies the owning tenant of a declaration batch.
	TenantID uuid.UUID

	// BatchID identifies one declaration batch.
	BatchID uuid.UUID

	// SubmissionID identifies one logical submission of a batch.
	SubmissionID uuid.UUID
)

func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id BatchID) String() string      { return uuid.UUID(id).String() }
func (id SubmissionID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id BatchID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SubmissionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the canonical UUID string. Defined types do not
// inherit uuid.UUID's encoding methods, and without these the JSON encoder
// falls back to the raw 16-byte array.
func (id TenantID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id BatchID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id SubmissionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the string form with the same strictness as the
// ParseXxxID constructors.
func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BatchID) UnmarshalText(b []byte) error {
	parsed, err := ParseBatchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SubmissionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubmissionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewBatchID returns a fresh random batch ID.
func NewBatchID() BatchID { return BatchID(uuid.New()) }

// NewSubmissionID returns a fresh random submission ID.
func NewSubmissionID() SubmissionID { return SubmissionID(uuid.New()) }

// ParseTenantID parses a tenant ID from its string form.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant id")
	return TenantID(u), err
}

// ParseBatchID parses a batch ID from its string form.
func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s, "batch id")
	return BatchID(u), err
}

// ParseSubmissionID parses a submission ID from its string form.
func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parseUUID(s, "submission id")
	return SubmissionID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}
