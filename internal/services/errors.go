package services

import "errors"

// Error kinds surfaced by the lottery stages. Stage failures wrap one of these
// so callers can classify them with errors.Is.
var (
	// ErrSourceUnavailable: the snapshot or an input artifact could not be
	// read. Fatal; nothing is written.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrStaleExport: the applicants artifact lists as pending a record the
	// store has since decided or removed. Fatal; run export again.
	ErrStaleExport = errors.New("export is out of date")
	// ErrInvalidWinnerCount: the requested winner count is out of range.
	// Fatal; raised before any side effect.
	ErrInvalidWinnerCount = errors.New("invalid winner count")
	// ErrWriteFailure: an outcome artifact could not be persisted. Fatal.
	ErrWriteFailure = errors.New("write failure")
	// ErrItemPurgeFailure: one record could not be deleted. Recovered and
	// counted; never aborts the batch.
	ErrItemPurgeFailure = errors.New("item purge failure")
	// ErrNotConfirmed: the purge confirmation gate was not satisfied.
	ErrNotConfirmed = errors.New("purge not confirmed")
)

// Registration errors returned by the intake path.
var (
	ErrInvalidApplication = errors.New("invalid application")
	ErrDuplicatePhone     = errors.New("phone number already registered for this campaign")
	ErrAlreadyApplied     = errors.New("already applied")
)
