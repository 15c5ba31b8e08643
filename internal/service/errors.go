package service

import "errors"

// 调用边界错误分类
// Every operation recovers internal failures and returns exactly one of
// these (wrapped), so handlers can map them without string matching.
var (
	// ErrInvalidInput: missing/malformed identifiers; no state change.
	ErrInvalidInput = errors.New("invalid parameters")

	// ErrForbidden: actor lacks the required capability; no state change.
	ErrForbidden = errors.New("permission denied")

	// ErrLocked: write attempted against an existing locked submission
	// without the edit-submitted capability. Distinct from ErrForbidden:
	// the data state, not the actor's general rights, blocks the call.
	ErrLocked = errors.New("count already submitted and locked")

	// ErrModuleDisabled: the location has not enabled this module.
	ErrModuleDisabled = errors.New("module not enabled for this location")

	// ErrStorage: the storage layer failed; the call had no effect.
	ErrStorage = errors.New("storage failure")
)
