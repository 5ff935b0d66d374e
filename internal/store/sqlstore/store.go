// Package sqlstore implements the applicant and identity stores on SQL
// databases: SQLite for single-operator deployments and PostgreSQL for hosted
// ones.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
	"campaignlottery/internal/store/sqlstore/migrations"
)

const timeFormat = time.RFC3339Nano

// Dialect selects driver name and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store provides a SQL-backed applicant and identity store.
type Store struct {
	sqlDB   *sql.DB
	dialect Dialect
}

// OpenSQLite opens a SQLite store at the provided path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return open(ctx, DialectSQLite, dsn)
}

// OpenPostgres opens a PostgreSQL store from a connection URL.
func OpenPostgres(ctx context.Context, url string) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	return open(ctx, DialectPostgres, url)
}

func open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection serializes writers on the same file.
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{sqlDB: sqlDB, dialect: dialect}
	if err := applyMigrations(ctx, sqlDB, dialect, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ListApplicants(ctx context.Context, campaignID string) ([]models.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants`
	var args []any
	if campaignID != "" {
		query += ` WHERE campaign_id = ?`
		args = append(args, campaignID)
	}

	rows, err := s.sqlDB.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	defer rows.Close()

	var result []models.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicants: %w", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].AppliedAt.Equal(result[j].AppliedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].AppliedAt.Before(result[j].AppliedAt)
	})
	return result, nil
}

func (s *Store) GetApplicant(ctx context.Context, id string) (models.Applicant, error) {
	row := s.sqlDB.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+applicantColumns+` FROM applicants WHERE id = ?`), id)
	a, err := scanApplicant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Applicant{}, fmt.Errorf("applicant %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Applicant{}, err
	}
	return a, nil
}

func (s *Store) CreateApplicant(ctx context.Context, a models.Applicant) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("applicant id is required")
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create applicant: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT 1 FROM applicants WHERE id = ?`), a.ID).Scan(&found)
	switch {
	case err == nil:
		return fmt.Errorf("applicant %s: %w", a.ID, store.ErrAlreadyExists)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check applicant %s: %w", a.ID, err)
	}

	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO applicants (id, campaign_id, display_name, contact_info, dedupe_token, applied_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), a.ID, a.CampaignID, nullString(a.DisplayName), nullString(a.ContactInfo), a.DedupeToken,
		a.AppliedAt.UTC().Format(timeFormat), string(a.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("dedupe token in campaign %s: %w", a.CampaignID, store.ErrConflict)
		}
		return fmt.Errorf("insert applicant %s: %w", a.ID, err)
	}
	return tx.Commit()
}

func (s *Store) SetStatus(ctx context.Context, id string, status models.Status) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set status: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT status FROM applicants WHERE id = ?`), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("applicant %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read status of %s: %w", id, err)
	}

	changed, err := store.CheckTransition(models.Status(current), status)
	if err != nil || !changed {
		return err
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE applicants SET status = ? WHERE id = ? AND status = ?`),
		string(status), id, current)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("applicant %s changed concurrently: %w", id, store.ErrInvalidState)
	}
	return tx.Commit()
}

func (s *Store) DeleteApplicant(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "applicants", id)
}

// PutIdentity inserts or replaces an account.
func (s *Store) PutIdentity(ctx context.Context, identity models.Identity) error {
	_, err := s.sqlDB.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO identities (id, display_name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email
	`), identity.ID, nullString(identity.DisplayName), nullString(identity.Email), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("put identity %s: %w", identity.ID, err)
	}
	return nil
}

func (s *Store) GetIdentity(ctx context.Context, id string) (models.Identity, error) {
	var displayName, email sql.NullString
	err := s.sqlDB.QueryRowContext(ctx, s.dialect.rebind(`SELECT display_name, email FROM identities WHERE id = ?`), id).
		Scan(&displayName, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Identity{}, fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("get identity %s: %w", id, err)
	}
	return models.Identity{ID: id, DisplayName: displayName.String, Email: email.String}, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "identities", id)
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, s.dialect.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete %s from %s: %w", id, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s from %s: %w", id, table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s in %s: %w", id, table, store.ErrNotFound)
	}
	return nil
}

const applicantColumns = `id, campaign_id, display_name, contact_info, dedupe_token, applied_at, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row rowScanner) (models.Applicant, error) {
	var (
		a           models.Applicant
		displayName sql.NullString
		contactInfo sql.NullString
		appliedAt   string
		status      string
	)
	if err := row.Scan(&a.ID, &a.CampaignID, &displayName, &contactInfo, &a.DedupeToken, &appliedAt, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan applicant: %w", err)
	}
	a.DisplayName = displayName.String
	a.ContactInfo = contactInfo.String
	a.Status = models.Status(status)
	var err error
	if a.AppliedAt, err = time.Parse(timeFormat, appliedAt); err != nil {
		return a, fmt.Errorf("parse applied_at for %s: %w", a.ID, err)
	}
	return a, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// isUniqueViolation recognizes unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ store.ApplicantStore = (*Store)(nil)
	_ store.IdentityStore  = (*Store)(nil)
	_ store.IdentityWriter = (*Store)(nil)
)
