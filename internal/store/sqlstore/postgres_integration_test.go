//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
	"campaignlottery/internal/store/sqlstore/migrations"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	store     *Store
	ctx       context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	container, err := postgres.Run(s.ctx, "postgres:16-alpine",
		postgres.WithDatabase("lottery"),
		postgres.WithUsername("lottery"),
		postgres.WithPassword("lottery"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err, "start postgres container")
	s.container = container

	url, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.store, err = OpenPostgres(s.ctx, url)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.store.sqlDB.ExecContext(s.ctx, "TRUNCATE applicants, identities")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) applicant(id, token string) models.Applicant {
	return models.Applicant{ID: id, CampaignID: "c1", DedupeToken: token, AppliedAt: time.Now().UTC(), Status: models.StatusPending}
}

func (s *PostgresStoreSuite) TestUniqueness() {
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.applicant("u1", "t1")))
	s.ErrorIs(s.store.CreateApplicant(s.ctx, s.applicant("u1", "t2")), store.ErrAlreadyExists)
	s.ErrorIs(s.store.CreateApplicant(s.ctx, s.applicant("u2", "t1")), store.ErrConflict)
}

func (s *PostgresStoreSuite) TestStatusAndDelete() {
	s.Require().NoError(s.store.CreateApplicant(s.ctx, s.applicant("u1", "t1")))
	s.Require().NoError(s.store.SetStatus(s.ctx, "u1", models.StatusWinner))
	s.ErrorIs(s.store.SetStatus(s.ctx, "u1", models.StatusLoser), store.ErrInvalidState)

	got, err := s.store.ListApplicants(s.ctx, "c1")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.StatusWinner, got[0].Status)

	s.Require().NoError(s.store.DeleteApplicant(s.ctx, "u1"))
	s.ErrorIs(s.store.DeleteApplicant(s.ctx, "u1"), store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMigrationsRerun() {
	require.NoError(s.T(), applyMigrations(s.ctx, s.store.sqlDB, DialectPostgres, migrations.FS))
}
