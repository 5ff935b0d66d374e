// Package backend opens the record store, identity store and artifact medium
// selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/config"
	"campaignlottery/internal/identity"
	"campaignlottery/internal/store"
	"campaignlottery/internal/store/firestore"
	"campaignlottery/internal/store/sqlstore"
)

// Backends holds the opened stores. Close releases them.
type Backends struct {
	Records    store.ApplicantStore
	Identities store.IdentityStore
	Medium     artifact.Medium

	closers []func() error
}

// Open connects every backend named by cfg. withMedium is false for processes
// that never touch artifacts.
func Open(ctx context.Context, cfg config.Config, withMedium bool) (*Backends, error) {
	b := &Backends{}
	if err := b.openRecords(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openIdentities(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if withMedium {
		if err := b.openMedium(ctx, cfg.Artifacts); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// Close releases every opened backend, returning the joined errors.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *Backends) openRecords(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		s, err := sqlstore.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return err
		}
		b.Records, b.closers = s, append(b.closers, s.Close)
	case config.StorePostgres:
		s, err := sqlstore.OpenPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		b.Records, b.closers = s, append(b.closers, s.Close)
	case config.StoreFirestore:
		client, err := gcfirestore.NewClient(ctx, cfg.Store.ProjectID, googleOptions(cfg.Store)...)
		if err != nil {
			return fmt.Errorf("open firestore: %w", err)
		}
		b.Records, b.closers = firestore.New(client, cfg.Store.Collection), append(b.closers, client.Close)
	case config.StoreMemory:
		b.Records = store.NewInMemory()
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return nil
}

func (b *Backends) openIdentities(ctx context.Context, cfg config.Config) error {
	switch cfg.Identity.Driver {
	case config.IdentityStore:
		ids, ok := b.Records.(store.IdentityStore)
		if !ok {
			return fmt.Errorf("store driver %s does not hold identities", cfg.Store.Driver)
		}
		b.Identities = ids
	case config.IdentityRedis:
		s, err := identity.NewRedis(ctx, cfg.Identity.RedisURL)
		if err != nil {
			return err
		}
		b.Identities, b.closers = s, append(b.closers, s.Close)
	case config.IdentityFirebase:
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Store.ProjectID}, googleOptions(cfg.Store)...)
		if err != nil {
			return fmt.Errorf("init firebase: %w", err)
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("init firebase auth: %w", err)
		}
		b.Identities = identity.NewFirebase(client)
	case config.IdentityNone:
	default:
		return fmt.Errorf("unknown identity driver %q", cfg.Identity.Driver)
	}
	return nil
}

func (b *Backends) openMedium(ctx context.Context, cfg config.ArtifactConfig) error {
	switch cfg.Medium {
	case config.MediumDir:
		b.Medium = artifact.NewDir(cfg.Dir)
	case config.MediumMinio:
		bucket, err := artifact.NewBucket(ctx, artifact.BucketConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Prefix:    cfg.Minio.Prefix,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return err
		}
		b.Medium = bucket
	default:
		return fmt.Errorf("unknown artifact medium %q", cfg.Medium)
	}
	return nil
}

func googleOptions(cfg config.StoreConfig) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}
