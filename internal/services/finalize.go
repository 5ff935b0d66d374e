package services

import (
	"context"
	"fmt"

	"github.com/google/logger"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// Finalizer records draw outcomes on the applicant records so decided
// applicants never re-enter a later draw.
type Finalizer struct {
	records store.ApplicantStore
}

func NewFinalizer(records store.ApplicantStore) *Finalizer {
	return &Finalizer{records: records}
}

// Apply marks winners and losers. Re-applying an already recorded status is a
// no-op, so a partially applied result can be applied again. Failures are
// collected per applicant; the batch always runs to the end unless ctx ends.
func (f *Finalizer) Apply(ctx context.Context, result *models.DrawResult) (models.BatchSummary, error) {
	var summary models.BatchSummary
	for _, a := range append(append([]models.Applicant{}, result.Winners...), result.Losers...) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := f.records.SetStatus(ctx, a.ID, a.Status); err != nil {
			err = fmt.Errorf("set %s to %s: %w", a.ID, a.Status, err)
			logger.Errorf("finalize %s: %v", a.ID, err)
			summary.Failed++
			summary.Failures = append(summary.Failures, models.ItemFailure{ID: a.ID, Err: err})
			continue
		}
		summary.Succeeded++
	}
	return summary, nil
}
