package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"campaignlottery/internal/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) newApplicant(id, campaign, token string) models.Applicant {
	return models.Applicant{
		ID:          id,
		CampaignID:  campaign,
		DedupeToken: token,
		AppliedAt:   time.Now(),
		Status:      models.StatusPending,
	}
}

// TestCreateAndList verifies applicants are stored and scoped by campaign.
func (s *InMemoryStoreSuite) TestCreateAndList() {
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.newApplicant("u1", "c1", "t1")))
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.newApplicant("u2", "c1", "t2")))
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.newApplicant("u3", "c2", "t1")))

	c1, err := s.store.ListApplicants(s.ctx, "c1")
	s.Require().NoError(err)
	s.Len(c1, 2)

	all, err := s.store.ListApplicants(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)
}

// TestUniqueness verifies id and per-campaign dedupe token uniqueness.
func (s *InMemoryStoreSuite) TestUniqueness() {
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.newApplicant("u1", "c1", "t1")))

	s.Run("rejects reused id", func() {
		err := s.store.CreateApplicant(s.ctx, s.newApplicant("u1", "c1", "other"))
		s.ErrorIs(err, ErrAlreadyExists)
	})

	s.Run("rejects reused token in campaign", func() {
		err := s.store.CreateApplicant(s.ctx, s.newApplicant("u9", "c1", "t1"))
		s.ErrorIs(err, ErrConflict)
	})
}

// TestSetStatus verifies outcomes are assigned once and never revert.
func (s *InMemoryStoreSuite) TestSetStatus() {
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.newApplicant("u1", "c1", "t1")))

	s.Require().NoError(s.store.SetStatus(s.ctx, "u1", models.StatusWinner))
	s.Require().NoError(s.store.SetStatus(s.ctx, "u1", models.StatusWinner), "same status is a no-op")
	s.ErrorIs(s.store.SetStatus(s.ctx, "u1", models.StatusLoser), ErrInvalidState)
	s.ErrorIs(s.store.SetStatus(s.ctx, "u1", models.StatusPending), ErrInvalidState)
	s.ErrorIs(s.store.SetStatus(s.ctx, "missing", models.StatusLoser), ErrNotFound)

	got, err := s.store.GetApplicant(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(models.StatusWinner, got.Status)
	_, err = s.store.GetApplicant(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

// TestDelete verifies deletes report missing records.
func (s *InMemoryStoreSuite) TestDelete() {
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.newApplicant("u1", "c1", "t1")))
	s.Require().NoError(s.store.PutIdentity(s.ctx, models.Identity{ID: "u1"}))

	s.Require().NoError(s.store.DeleteApplicant(s.ctx, "u1"))
	s.ErrorIs(s.store.DeleteApplicant(s.ctx, "u1"), ErrNotFound)

	s.Require().NoError(s.store.DeleteIdentity(s.ctx, "u1"))
	s.ErrorIs(s.store.DeleteIdentity(s.ctx, "u1"), ErrNotFound)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to models.Status
		changed  bool
		wantErr  bool
	}{
		{"pending to winner", models.StatusPending, models.StatusWinner, true, false},
		{"pending to loser", models.StatusPending, models.StatusLoser, true, false},
		{"winner to winner", models.StatusWinner, models.StatusWinner, false, false},
		{"winner to loser", models.StatusWinner, models.StatusLoser, false, true},
		{"loser to pending", models.StatusLoser, models.StatusPending, false, true},
		{"unknown target", models.StatusPending, models.Status("maybe"), false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := CheckTransition(tc.from, tc.to)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckTransition(%s, %s) error = %v, wantErr %v", tc.from, tc.to, err, tc.wantErr)
			}
			if changed != tc.changed {
				t.Errorf("CheckTransition(%s, %s) changed = %v, want %v", tc.from, tc.to, changed, tc.changed)
			}
		})
	}
}
