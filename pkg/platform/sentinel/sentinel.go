package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: batch or submission log does not exist in the store
// - ErrConflict: unique constraint hit, e.g. a second batch for the same
//   (tenant, period, flow) combination
// - ErrInvalidState: batch in the wrong lifecycle state for the operation
// - ErrUnavailable: portal, broker or store temporarily unreachable
//
// For validation of caller input use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
