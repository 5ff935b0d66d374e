package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// FirebaseStore resolves applicants against Firebase Authentication users.
type FirebaseStore struct {
	client *auth.Client
}

// NewFirebase wraps an initialized Firebase Auth client.
func NewFirebase(client *auth.Client) *FirebaseStore {
	return &FirebaseStore{client: client}
}

func (s *FirebaseStore) GetIdentity(ctx context.Context, id string) (models.Identity, error) {
	user, err := s.client.GetUser(ctx, id)
	if auth.IsUserNotFound(err) {
		return models.Identity{}, fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("get identity %s: %w", id, err)
	}
	identity := models.Identity{ID: id}
	if user.UserInfo != nil {
		identity.DisplayName = user.DisplayName
		identity.Email = user.Email
	}
	return identity, nil
}

func (s *FirebaseStore) DeleteIdentity(ctx context.Context, id string) error {
	err := s.client.DeleteUser(ctx, id)
	if auth.IsUserNotFound(err) {
		return fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete identity %s: %w", id, err)
	}
	return nil
}

var _ store.IdentityStore = (*FirebaseStore)(nil)
