package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// LotteryService runs the campaign lottery stages against one record store,
// one identity store and one artifact medium.
type LotteryService struct {
	records    store.ApplicantStore
	identities store.IdentityStore
	medium     artifact.Medium
	format     artifact.Format

	loader    *Loader
	writer    *OutcomeWriter
	finalizer *Finalizer
	purger    *PurgeAgent

	now      func() time.Time
	newRunID func() string
}

// NewLotteryService creates and initializes a new LotteryService. medium may
// be nil for processes that only register applicants.
func NewLotteryService(records store.ApplicantStore, identities store.IdentityStore, medium artifact.Medium, format artifact.Format) *LotteryService {
	if format == "" {
		format = artifact.FormatJSON
	}
	return &LotteryService{
		records:    records,
		identities: identities,
		medium:     medium,
		format:     format,
		loader:     NewLoader(records, identities),
		writer:     NewOutcomeWriter(medium, format),
		finalizer:  NewFinalizer(records),
		purger:     NewPurgeAgent(records, identities),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// Stats returns the applicant counts per status for campaignID.
func (s *LotteryService) Stats(ctx context.Context, campaignID string) (models.StatusCounts, error) {
	records, err := s.loader.Snapshot(ctx, campaignID)
	if err != nil {
		return models.StatusCounts{}, err
	}
	return models.CountStatuses(records), nil
}

// Winners returns the recorded winners of campaignID.
func (s *LotteryService) Winners(ctx context.Context, campaignID string) ([]models.Applicant, error) {
	records, err := s.loader.Snapshot(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	winners := make([]models.Applicant, 0)
	for _, a := range records {
		if a.Status == models.StatusWinner {
			winners = append(winners, a)
		}
	}
	return winners, nil
}

// Export snapshots campaignID, enriches it from the identity store and writes
// the applicants artifact. It returns the exported records.
func (s *LotteryService) Export(ctx context.Context, campaignID string) ([]models.Applicant, error) {
	records, err := s.loader.Snapshot(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	records = s.loader.Enrich(ctx, records)

	data, err := s.format.Encode(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	name := s.format.FileName(artifact.ExportName)
	if err := s.medium.Write(ctx, name, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	logger.Infof("exported %d applicants to %s", len(records), name)
	return records, nil
}

// LoadEligible reads the exported applicants and returns those eligible for a
// draw. Duplicate registrations are logged and left out. The export is
// refused with ErrStaleExport when the record store has decided or removed
// any of its pending applicants since it was written.
func (s *LotteryService) LoadEligible(ctx context.Context) ([]models.Applicant, error) {
	records, err := LoadArtifact(ctx, s.medium, s.format, s.format.FileName(artifact.ExportName))
	if err != nil {
		return nil, err
	}
	eligible, duplicates := Eligible(records)
	for _, d := range duplicates {
		logger.Warningf("excluding %s: phone already registered in campaign %s", d.ID, d.CampaignID)
	}
	if err := s.loader.CheckCurrent(ctx, eligible); err != nil {
		return nil, err
	}
	return eligible, nil
}

// Draw selects winnerCount winners from eligible using a source seeded with
// seed. The same seed and input always yield the same result.
func (s *LotteryService) Draw(eligible []models.Applicant, winnerCount int, seed uint64) (*models.DrawResult, error) {
	winners, losers, err := Draw(eligible, winnerCount, NewSeededSource(seed))
	if err != nil {
		return nil, err
	}
	result := &models.DrawResult{
		RunID:   s.newRunID(),
		Seed:    seed,
		DrawnAt: s.now().UTC(),
		Winners: winners,
		Losers:  losers,
	}
	logger.Infof("draw %s: %d winners, %d losers (seed %d)", result.RunID, len(winners), len(losers), seed)
	return result, nil
}

// WriteOutcome persists result as winners, losers and summary artifacts.
func (s *LotteryService) WriteOutcome(ctx context.Context, campaignID string, result *models.DrawResult) error {
	return s.writer.Write(ctx, campaignID, result)
}

// LoadOutcome reads back the artifacts of the last draw.
func (s *LotteryService) LoadOutcome(ctx context.Context) (*models.DrawResult, error) {
	summary, err := ReadSummary(ctx, s.medium)
	if err != nil {
		return nil, err
	}
	winners, err := LoadArtifact(ctx, s.medium, s.format, s.format.FileName(artifact.WinnersName))
	if err != nil {
		return nil, err
	}
	losers, err := s.Losers(ctx)
	if err != nil {
		return nil, err
	}
	return &models.DrawResult{
		RunID:   summary.RunID,
		Seed:    summary.Seed,
		DrawnAt: summary.DrawnAt,
		Winners: winners,
		Losers:  losers,
	}, nil
}

// Finalize records the outcome statuses of result in the record store.
func (s *LotteryService) Finalize(ctx context.Context, result *models.DrawResult) (models.BatchSummary, error) {
	return s.finalizer.Apply(ctx, result)
}

// Losers reads the losers artifact of the last draw.
func (s *LotteryService) Losers(ctx context.Context) ([]models.Applicant, error) {
	return LoadArtifact(ctx, s.medium, s.format, s.format.FileName(artifact.LosersName))
}

// PurgeLosers deletes the losers of the last draw from both stores.
func (s *LotteryService) PurgeLosers(ctx context.Context, confirm Confirmation) (models.BatchSummary, error) {
	if err := confirm.Validate(); err != nil {
		return models.BatchSummary{}, err
	}
	losers, err := s.Losers(ctx)
	if err != nil {
		return models.BatchSummary{}, err
	}
	return s.purger.PurgeLosers(ctx, losers, confirm)
}

// PurgeAll deletes every applicant of campaignID, whatever its status, from
// both stores.
func (s *LotteryService) PurgeAll(ctx context.Context, campaignID string, confirm Confirmation) (models.BatchSummary, error) {
	if err := confirm.Validate(); err != nil {
		return models.BatchSummary{}, err
	}
	records, err := s.loader.Snapshot(ctx, campaignID)
	if err != nil {
		return models.BatchSummary{}, err
	}
	return s.purger.PurgeAll(ctx, records, confirm)
}
