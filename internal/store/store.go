// Package store defines the record and identity store boundaries used by the
// lottery stages, together with the sentinel errors implementations return.
package store

import (
	"context"
	"errors"
	"fmt"

	"campaignlottery/internal/models"
)

// Sentinel errors for storage facts. Implementations return these (optionally
// wrapped) so services can translate them.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidState  = errors.New("invalid state")
)

// ApplicantStore is the durable record store holding applicant documents.
type ApplicantStore interface {
	// ListApplicants returns every applicant of campaignID, or every applicant
	// when campaignID is empty.
	ListApplicants(ctx context.Context, campaignID string) ([]models.Applicant, error)
	// GetApplicant returns the stored record of id, or ErrNotFound.
	GetApplicant(ctx context.Context, id string) (models.Applicant, error)
	// CreateApplicant stores a new pending applicant. It fails with
	// ErrAlreadyExists when the id is taken and ErrConflict when the dedupe
	// token is already used in the same campaign.
	CreateApplicant(ctx context.Context, applicant models.Applicant) error
	// SetStatus records the draw outcome for id.
	SetStatus(ctx context.Context, id string, status models.Status) error
	// DeleteApplicant removes id, returning ErrNotFound when it is absent.
	DeleteApplicant(ctx context.Context, id string) error
}

// IdentityStore holds the sign-in accounts behind applicants.
type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (models.Identity, error)
	// DeleteIdentity removes id, returning ErrNotFound when it is absent.
	DeleteIdentity(ctx context.Context, id string) error
}

// IdentityWriter is implemented by identity stores that accept accounts from
// the intake server. Hosted identity providers create accounts at sign-in and
// do not implement it.
type IdentityWriter interface {
	PutIdentity(ctx context.Context, identity models.Identity) error
}

// CheckTransition validates a status change and reports whether it changes
// anything. Outcomes are assigned once and never revert.
func CheckTransition(from, to models.Status) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidState, to)
	}
	if from == to {
		return false, nil
	}
	if from != models.StatusPending || !to.Decided() {
		return false, fmt.Errorf("%w: cannot move applicant from %s to %s", ErrInvalidState, from, to)
	}
	return true, nil
}
