// Package tserr declares the sentinel errors for the four error kinds
// TextSwitcher distinguishes (see spec §7): missing OS permission, a
// transient OS failure, a corpus load failure, and a persistence write
// failure. None of these ever propagate out of the validator or pipeline —
// callers that hit them degrade and continue.
package tserr

import "errors"

var (
	// ErrPermissionMissing indicates the host process lacks Accessibility
	// rights, so the keyboard tap cannot be started.
	ErrPermissionMissing = errors.New("accessibility permission not granted")

	// ErrTapTimeout indicates the OS disabled the event tap because a
	// callback took too long to return; the tap must be re-armed.
	ErrTapTimeout = errors.New("event tap disabled by timeout")

	// ErrCorpusLoad indicates a corpus asset (tech terms, n-gram bundle)
	// was missing or malformed; the owning store continues empty.
	ErrCorpusLoad = errors.New("corpus asset failed to load")

	// ErrPersist indicates a persistent store failed to write its backing
	// file; the in-memory store remains authoritative until the next
	// successful write.
	ErrPersist = errors.New("persistent store write failed")
)
