package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these
// (optionally wrapped) so services can translate them into protocol
// errors without inspecting driver-specific failures.
//
// These represent factual states about resources, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: optimistic version check failed
// - ErrUnavailable: store or broker temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
