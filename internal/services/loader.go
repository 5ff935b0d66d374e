package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/logger"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// Loader reads the applicant population, either live from the record store or
// from a previously exported artifact.
type Loader struct {
	records    store.ApplicantStore
	identities store.IdentityStore
}

// NewLoader creates a loader. identities may be nil, in which case exports are
// not enriched.
func NewLoader(records store.ApplicantStore, identities store.IdentityStore) *Loader {
	return &Loader{records: records, identities: identities}
}

// Snapshot reads every applicant of campaignID (all campaigns when empty).
func (l *Loader) Snapshot(ctx context.Context, campaignID string) ([]models.Applicant, error) {
	records, err := l.records.ListApplicants(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return records, nil
}

// Enrich fills missing display names and contact details from the identity
// store. A failed lookup keeps the record with the fields it already has.
func (l *Loader) Enrich(ctx context.Context, records []models.Applicant) []models.Applicant {
	if l.identities == nil {
		return records
	}
	enriched := make([]models.Applicant, len(records))
	for i, a := range records {
		enriched[i] = a
		if a.DisplayName != "" && a.ContactInfo != "" {
			continue
		}
		identity, err := l.identities.GetIdentity(ctx, a.ID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logger.Warningf("identity lookup for %s failed: %v", a.ID, err)
			}
			continue
		}
		if enriched[i].DisplayName == "" {
			enriched[i].DisplayName = identity.DisplayName
		}
		if enriched[i].ContactInfo == "" {
			enriched[i].ContactInfo = identity.Email
		}
	}
	return enriched
}

// CheckCurrent verifies that every applicant in eligible is still pending in
// the record store. Decided or deleted records fail with ErrStaleExport.
func (l *Loader) CheckCurrent(ctx context.Context, eligible []models.Applicant) error {
	var stale []string
	for _, a := range eligible {
		current, err := l.records.GetApplicant(ctx, a.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			stale = append(stale, a.ID+" (deleted)")
		case err != nil:
			return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		case current.Status != models.StatusPending:
			stale = append(stale, fmt.Sprintf("%s (%s)", a.ID, current.Status))
		}
	}
	if len(stale) > 0 {
		shown := stale[:min(len(stale), 5)]
		return fmt.Errorf("%w: %d exported applicants are no longer pending: %s",
			ErrStaleExport, len(stale), strings.Join(shown, ", "))
	}
	return nil
}

// LoadArtifact reads and decodes a named applicant list from medium.
func LoadArtifact(ctx context.Context, medium artifact.Medium, format artifact.Format, name string) ([]models.Applicant, error) {
	data, err := medium.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrSourceUnavailable, name, err)
	}
	applicants, err := format.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}
	return applicants, nil
}

type dedupeKey struct {
	campaignID string
	token      string
}

// Eligible returns the pending applicants, preserving input order. When
// several records share a dedupe token within a campaign only the earliest
// application can be eligible; the later ones are returned as duplicates.
func Eligible(records []models.Applicant) (eligible, duplicates []models.Applicant) {
	first := make(map[dedupeKey]int, len(records))
	for i, a := range records {
		if a.DedupeToken == "" {
			continue
		}
		key := dedupeKey{a.CampaignID, a.DedupeToken}
		if j, ok := first[key]; !ok || a.AppliedAt.Before(records[j].AppliedAt) {
			first[key] = i
		}
	}

	eligible = make([]models.Applicant, 0, len(records))
	for i, a := range records {
		if a.Status != models.StatusPending {
			continue
		}
		if a.DedupeToken != "" && first[dedupeKey{a.CampaignID, a.DedupeToken}] != i {
			duplicates = append(duplicates, a)
			continue
		}
		eligible = append(eligible, a)
	}
	return eligible, duplicates
}
