package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/logger"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// Confirmation phrases required before any deletion.
const (
	NotifiedPhrase = "yes"
	DeletePhrase   = "DELETE"
)

// Confirmation carries the operator's answers to the two purge prompts: that
// winners have been notified, and the explicit destruction phrase.
type Confirmation struct {
	Notified string
	Destroy  string
}

// Validate fails with ErrNotConfirmed unless both answers match. The first
// answer is case-insensitive; the destruction phrase must match exactly.
func (c Confirmation) Validate() error {
	if err := CheckNotified(c.Notified); err != nil {
		return err
	}
	if strings.TrimSpace(c.Destroy) != DeletePhrase {
		return fmt.Errorf("%w: type %s to delete", ErrNotConfirmed, DeletePhrase)
	}
	return nil
}

// CheckNotified validates the first answer on its own, so a prompt can stop
// before asking for the destruction phrase.
func CheckNotified(answer string) error {
	if !strings.EqualFold(strings.TrimSpace(answer), NotifiedPhrase) {
		return fmt.Errorf("%w: winners were not confirmed as notified", ErrNotConfirmed)
	}
	return nil
}

// PurgeAgent deletes applicant records together with their identities.
type PurgeAgent struct {
	records    store.ApplicantStore
	identities store.IdentityStore
}

func NewPurgeAgent(records store.ApplicantStore, identities store.IdentityStore) *PurgeAgent {
	return &PurgeAgent{records: records, identities: identities}
}

// PurgeLosers deletes every loser in losers. Entries whose status is not
// loser, either in losers or in the record store, are refused and counted as
// failures. A record already gone from the store counts as deleted.
func (p *PurgeAgent) PurgeLosers(ctx context.Context, losers []models.Applicant, confirm Confirmation) (models.BatchSummary, error) {
	if err := confirm.Validate(); err != nil {
		return models.BatchSummary{}, err
	}
	return p.purge(ctx, losers, p.checkLoser)
}

func (p *PurgeAgent) checkLoser(ctx context.Context, a models.Applicant) error {
	if a.Status != models.StatusLoser {
		return fmt.Errorf("applicant %s has status %q, not %s", a.ID, a.Status, models.StatusLoser)
	}
	stored, err := p.records.GetApplicant(ctx, a.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read applicant %s: %w", a.ID, err)
	}
	if stored.Status != models.StatusLoser {
		return fmt.Errorf("applicant %s is stored as %q, not %s: %w", a.ID, stored.Status, models.StatusLoser, store.ErrInvalidState)
	}
	return nil
}

// PurgeAll deletes every applicant given regardless of status.
func (p *PurgeAgent) PurgeAll(ctx context.Context, applicants []models.Applicant, confirm Confirmation) (models.BatchSummary, error) {
	if err := confirm.Validate(); err != nil {
		return models.BatchSummary{}, err
	}
	return p.purge(ctx, applicants, nil)
}

// purge processes items one at a time. An item is fully deleted (record then
// identity) before the next starts; a missing record or identity counts as
// deleted, so a purge can be re-run safely. Cancellation stops the loop and
// leaves processed items deleted.
func (p *PurgeAgent) purge(ctx context.Context, items []models.Applicant, check func(context.Context, models.Applicant) error) (models.BatchSummary, error) {
	var summary models.BatchSummary
	for _, a := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		err := p.purgeOne(ctx, a, check)
		if err == nil {
			summary.Succeeded++
			continue
		}
		logger.Errorf("purge %s: %v", a.ID, err)
		summary.Failed++
		summary.Failures = append(summary.Failures, models.ItemFailure{ID: a.ID, Err: err})
	}
	return summary, nil
}

func (p *PurgeAgent) purgeOne(ctx context.Context, a models.Applicant, check func(context.Context, models.Applicant) error) error {
	if check != nil {
		if err := check(ctx, a); err != nil {
			return fmt.Errorf("%w: %w", ErrItemPurgeFailure, err)
		}
	}
	if err := p.records.DeleteApplicant(ctx, a.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: delete record: %w", ErrItemPurgeFailure, err)
	}
	if p.identities == nil {
		return nil
	}
	if err := p.identities.DeleteIdentity(ctx, a.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: delete identity: %w", ErrItemPurgeFailure, err)
	}
	return nil
}
