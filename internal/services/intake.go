package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/logger"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

const maxNameLength = 100

// Application is a registration submitted by a signed-in user.
type Application struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	ContactInfo string `json:"contactInfo"`
	Phone       string `json:"phone"`
}

// Register validates app and stores a pending applicant for campaignID.
func (s *LotteryService) Register(ctx context.Context, campaignID string, app Application) (models.Applicant, error) {
	userID := strings.TrimSpace(app.UserID)
	name := strings.TrimSpace(app.DisplayName)
	switch {
	case strings.TrimSpace(campaignID) == "":
		return models.Applicant{}, fmt.Errorf("%w: campaign is required", ErrInvalidApplication)
	case userID == "":
		return models.Applicant{}, fmt.Errorf("%w: user id is required", ErrInvalidApplication)
	case name == "":
		return models.Applicant{}, fmt.Errorf("%w: display name is required", ErrInvalidApplication)
	case utf8.RuneCountInString(name) > maxNameLength:
		return models.Applicant{}, fmt.Errorf("%w: display name exceeds %d characters", ErrInvalidApplication, maxNameLength)
	}
	token, err := DedupeToken(app.Phone)
	if err != nil {
		return models.Applicant{}, err
	}

	applicant := models.Applicant{
		ID:          userID,
		CampaignID:  campaignID,
		DisplayName: name,
		ContactInfo: strings.TrimSpace(app.ContactInfo),
		DedupeToken: token,
		AppliedAt:   s.now().UTC(),
		Status:      models.StatusPending,
	}
	err = s.records.CreateApplicant(ctx, applicant)
	switch {
	case errors.Is(err, store.ErrConflict):
		return models.Applicant{}, ErrDuplicatePhone
	case errors.Is(err, store.ErrAlreadyExists):
		return models.Applicant{}, ErrAlreadyApplied
	case err != nil:
		return models.Applicant{}, fmt.Errorf("register %s: %w", userID, err)
	}

	if w, ok := s.identities.(store.IdentityWriter); ok {
		identity := models.Identity{ID: userID, DisplayName: name, Email: applicant.ContactInfo}
		if err := w.PutIdentity(ctx, identity); err != nil {
			logger.Warningf("store identity for %s: %v", userID, err)
		}
	}
	logger.Infof("registered applicant %s in campaign %s", userID, campaignID)
	return applicant, nil
}
