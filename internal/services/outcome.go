package services

import (
	"context"
	"encoding/json"
	"fmt"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/models"
)

// OutcomeWriter persists a draw result as winners, losers and summary
// artifacts. Each artifact is written atomically by the medium.
type OutcomeWriter struct {
	medium artifact.Medium
	format artifact.Format
}

func NewOutcomeWriter(medium artifact.Medium, format artifact.Format) *OutcomeWriter {
	return &OutcomeWriter{medium: medium, format: format}
}

// Write stores result. Any rejected write is reported as ErrWriteFailure.
func (w *OutcomeWriter) Write(ctx context.Context, campaignID string, result *models.DrawResult) error {
	lists := []struct {
		name       string
		applicants []models.Applicant
	}{
		{artifact.WinnersName, result.Winners},
		{artifact.LosersName, result.Losers},
	}
	for _, list := range lists {
		data, err := w.format.Encode(list.applicants)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailure, err)
		}
		if err := w.medium.Write(ctx, w.format.FileName(list.name), data); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailure, err)
		}
	}

	summary, err := json.MarshalIndent(result.Summary(campaignID), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode summary: %w", ErrWriteFailure, err)
	}
	if err := w.medium.Write(ctx, artifact.SummaryFile, append(summary, '\n')); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return nil
}

// ReadSummary loads the audit record of the last draw.
func ReadSummary(ctx context.Context, medium artifact.Medium) (models.DrawSummary, error) {
	var summary models.DrawSummary
	data, err := medium.Read(ctx, artifact.SummaryFile)
	if err != nil {
		return summary, fmt.Errorf("%w: read %s: %w", ErrSourceUnavailable, artifact.SummaryFile, err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, fmt.Errorf("%w: decode %s: %w", ErrSourceUnavailable, artifact.SummaryFile, err)
	}
	return summary, nil
}
