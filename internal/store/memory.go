package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"campaignlottery/internal/models"
)

// InMemory keeps applicants and identities in process memory. It backs tests
// and the development server.
type InMemory struct {
	mu         sync.RWMutex
	applicants map[string]models.Applicant
	identities map[string]models.Identity
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		applicants: make(map[string]models.Applicant),
		identities: make(map[string]models.Identity),
	}
}

func (s *InMemory) ListApplicants(_ context.Context, campaignID string) ([]models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Applicant, 0, len(s.applicants))
	for _, a := range s.applicants {
		if campaignID != "" && a.CampaignID != campaignID {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AppliedAt.Equal(result[j].AppliedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].AppliedAt.Before(result[j].AppliedAt)
	})
	return result, nil
}

func (s *InMemory) GetApplicant(_ context.Context, id string) (models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.applicants[id]; ok {
		return a, nil
	}
	return models.Applicant{}, fmt.Errorf("applicant %s: %w", id, ErrNotFound)
}

func (s *InMemory) CreateApplicant(_ context.Context, applicant models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applicants[applicant.ID]; exists {
		return fmt.Errorf("applicant %s: %w", applicant.ID, ErrAlreadyExists)
	}
	for _, a := range s.applicants {
		if a.CampaignID == applicant.CampaignID && a.DedupeToken == applicant.DedupeToken {
			return fmt.Errorf("dedupe token in campaign %s: %w", applicant.CampaignID, ErrConflict)
		}
	}
	if applicant.Status == "" {
		applicant.Status = models.StatusPending
	}
	s.applicants[applicant.ID] = applicant
	return nil
}

func (s *InMemory) SetStatus(_ context.Context, id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applicants[id]
	if !ok {
		return fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	changed, err := CheckTransition(a.Status, status)
	if err != nil || !changed {
		return err
	}
	a.Status = status
	s.applicants[id] = a
	return nil
}

func (s *InMemory) DeleteApplicant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applicants[id]; !ok {
		return fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	delete(s.applicants, id)
	return nil
}

// PutIdentity registers or replaces an account.
func (s *InMemory) PutIdentity(_ context.Context, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.ID] = identity
	return nil
}

func (s *InMemory) GetIdentity(_ context.Context, id string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.identities[id]; ok {
		return identity, nil
	}
	return models.Identity{}, fmt.Errorf("identity %s: %w", id, ErrNotFound)
}

func (s *InMemory) DeleteIdentity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[id]; !ok {
		return fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	delete(s.identities, id)
	return nil
}

var (
	_ ApplicantStore = (*InMemory)(nil)
	_ IdentityStore  = (*InMemory)(nil)
	_ IdentityWriter = (*InMemory)(nil)
)
