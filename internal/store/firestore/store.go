// Package firestore stores applicants as Cloud Firestore documents in the
// "applicants" collection. New documents are keyed by applicant id; documents
// written by the registration front-end are keyed "<campaign>_<uid>" and are
// matched through their uid field.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// DefaultCollection is the collection registrations are written to.
const DefaultCollection = "applicants"

// document mirrors the stored fields. phoneHash keeps the field name used by
// the registration front-end.
type document struct {
	CampaignID  string    `firestore:"campaignId"`
	UID         string    `firestore:"uid"`
	DisplayName string    `firestore:"displayName,omitempty"`
	ContactInfo string    `firestore:"contactInfo,omitempty"`
	PhoneHash   string    `firestore:"phoneHash"`
	AppliedAt   time.Time `firestore:"appliedAt"`
	Status      string    `firestore:"status"`
}

// Store is a Firestore-backed applicant store.
type Store struct {
	client     *firestore.Client
	collection string
}

// New wraps an open Firestore client.
func New(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}
}

func (s *Store) ListApplicants(ctx context.Context, campaignID string) ([]models.Applicant, error) {
	query := s.client.Collection(s.collection).Query
	if campaignID != "" {
		query = query.Where("campaignId", "==", campaignID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []models.Applicant
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list applicants: %w", err)
		}
		var doc document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode applicant %s: %w", snap.Ref.ID, err)
		}
		result = append(result, toApplicant(snap.Ref.ID, doc))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AppliedAt.Before(result[j].AppliedAt)
	})
	return result, nil
}

func (s *Store) GetApplicant(ctx context.Context, id string) (models.Applicant, error) {
	var a models.Applicant
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := s.lookup(tx, id)
		if err != nil {
			return err
		}
		var doc document
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode applicant %s: %w", id, err)
		}
		a = toApplicant(snap.Ref.ID, doc)
		return nil
	}, firestore.ReadOnly)
	if err != nil {
		return models.Applicant{}, err
	}
	return a, nil
}

func (s *Store) CreateApplicant(ctx context.Context, a models.Applicant) error {
	col := s.client.Collection(s.collection)
	ref := col.Doc(a.ID)
	dupes := col.Where("campaignId", "==", a.CampaignID).Where("phoneHash", "==", a.DedupeToken).Limit(1)

	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(dupes).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("dedupe token in campaign %s: %w", a.CampaignID, store.ErrConflict)
		}
		legacy, err := tx.Documents(col.Where("uid", "==", a.ID).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(legacy) > 0 {
			return fmt.Errorf("applicant %s: %w", a.ID, store.ErrAlreadyExists)
		}
		return tx.Create(ref, fromApplicant(a))
	})
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("applicant %s: %w", a.ID, store.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create applicant %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id string, next models.Status) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := s.lookup(tx, id)
		if err != nil {
			return err
		}
		var doc document
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode applicant %s: %w", id, err)
		}
		changed, err := store.CheckTransition(models.Status(doc.Status), next)
		if err != nil || !changed {
			return err
		}
		return tx.Update(snap.Ref, []firestore.Update{{Path: "status", Value: string(next)}})
	})
}

func (s *Store) DeleteApplicant(ctx context.Context, id string) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := s.lookup(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(snap.Ref); err != nil {
			return fmt.Errorf("delete applicant %s: %w", id, err)
		}
		return nil
	})
}

// lookup finds the document of applicant id, first by document id and then
// by the uid field.
func (s *Store) lookup(tx *firestore.Transaction, id string) (*firestore.DocumentSnapshot, error) {
	col := s.client.Collection(s.collection)
	snap, err := tx.Get(col.Doc(id))
	if err == nil {
		return snap, nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("read applicant %s: %w", id, err)
	}
	matches, err := tx.Documents(col.Where("uid", "==", id).Limit(1)).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find applicant %s: %w", id, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("applicant %s: %w", id, store.ErrNotFound)
	}
	return matches[0], nil
}

// toApplicant maps a document to an applicant. The uid field wins over the
// document id so identities resolve for "<campaign>_<uid>" documents.
func toApplicant(docID string, doc document) models.Applicant {
	id := doc.UID
	if id == "" {
		id = docID
	}
	st := models.Status(doc.Status)
	if st == "" {
		st = models.StatusPending
	}
	return models.Applicant{
		ID:          id,
		CampaignID:  doc.CampaignID,
		DisplayName: doc.DisplayName,
		ContactInfo: doc.ContactInfo,
		DedupeToken: doc.PhoneHash,
		AppliedAt:   doc.AppliedAt,
		Status:      st,
	}
}

func fromApplicant(a models.Applicant) document {
	return document{
		CampaignID:  a.CampaignID,
		UID:         a.ID,
		DisplayName: a.DisplayName,
		ContactInfo: a.ContactInfo,
		PhoneHash:   a.DedupeToken,
		AppliedAt:   a.AppliedAt,
		Status:      string(a.Status),
	}
}

var _ store.ApplicantStore = (*Store)(nil)
