//go:build integration

package identity

import (
	"context"
	"os"
	"testing"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"

	"campaignlottery/internal/store"
)

// TestFirebaseStoreAgainstEmulator runs when FIREBASE_AUTH_EMULATOR_HOST
// points at a local Auth emulator.
func TestFirebaseStoreAgainstEmulator(t *testing.T) {
	if os.Getenv("FIREBASE_AUTH_EMULATOR_HOST") == "" {
		t.Skip("FIREBASE_AUTH_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: "demo-lottery"})
	require.NoError(t, err)
	client, err := app.Auth(ctx)
	require.NoError(t, err)

	user, err := client.CreateUser(ctx, (&auth.UserToCreate{}).DisplayName("Aki").Email("aki@example.com"))
	require.NoError(t, err)

	s := NewFirebase(client)
	got, err := s.GetIdentity(ctx, user.UID)
	require.NoError(t, err)
	require.Equal(t, "Aki", got.DisplayName)
	require.Equal(t, "aki@example.com", got.Email)

	require.NoError(t, s.DeleteIdentity(ctx, user.UID))
	require.ErrorIs(t, s.DeleteIdentity(ctx, user.UID), store.ErrNotFound)
	_, err = s.GetIdentity(ctx, user.UID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
