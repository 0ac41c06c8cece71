// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medregs/guidance-intake/internal/intake"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// defaultTable is the historical table name for ingested guidance records.
const defaultTable = "international_documents"

// Config controls the Postgres connection pool used for document rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// DocumentStore persists document records in Postgres.
type DocumentStore struct {
	pool  querier
	table string
}

// NewDocumentStore creates a Postgres-backed DocumentStore using the provided
// config.
func NewDocumentStore(ctx context.Context, cfg Config) (*DocumentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DocumentStore{pool: pool, table: table}, nil
}

// NewDocumentStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewDocumentStoreWithPool(pool querier, table string) (*DocumentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DocumentStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *DocumentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// MaxDocketID returns the highest docket identifier for the scope, with false
// when the scope has no records.
func (s *DocumentStore) MaxDocketID(ctx context.Context, programID, country string) (int64, bool, error) {
	query := fmt.Sprintf(
		`SELECT MAX(docket_id::bigint) FROM %s WHERE program_id = $1 AND country = $2`,
		s.table,
	)
	var max *int64
	if err := s.pool.QueryRow(ctx, query, programID, country).Scan(&max); err != nil {
		return 0, false, fmt.Errorf("query max docket id: %w", err)
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

// LatestDate returns the maximum date across the modified, effective and
// publish columns for the scope. NULL columns are floored with a 1900-01-01
// sentinel inside the aggregation and the sentinel is stripped on the way
// out, so an all-NULL scope yields nil.
func (s *DocumentStore) LatestDate(ctx context.Context, programID, country string) (*time.Time, error) {
	query := fmt.Sprintf(`
SELECT MAX(GREATEST(
	COALESCE(modified_date, '1900-01-01'::date),
	COALESCE(effective_date, '1900-01-01'::date),
	COALESCE(publish_date, '1900-01-01'::date)
)) FROM %s WHERE program_id = $1 AND country = $2`, s.table)

	var latest *time.Time
	if err := s.pool.QueryRow(ctx, query, programID, country).Scan(&latest); err != nil {
		return nil, fmt.Errorf("query latest date: %w", err)
	}
	return intake.StripSentinel(latest), nil
}

// ExistsByFingerprint reports whether any row carries the given content hash.
func (s *DocumentStore) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE doc_hash = $1)`,
		s.table,
	)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, fingerprint).Scan(&exists); err != nil {
		return false, fmt.Errorf("query fingerprint: %w", err)
	}
	return exists, nil
}

// ExistsByURL reports whether any row was ingested from the given URL.
func (s *DocumentStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE url = $1)`,
		s.table,
	)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("query url: %w", err)
	}
	return exists, nil
}

// Insert persists one document record.
func (s *DocumentStore) Insert(ctx context.Context, doc intake.Document) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("document store is not configured")
	}
	if doc.Title == "" || doc.URL == "" {
		return fmt.Errorf("document title and url are required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	program_id,
	country,
	title,
	url,
	doc_hash,
	abstract,
	agency_id,
	document_type,
	reference,
	doc_format,
	publish_date,
	modified_date,
	effective_date,
	docket_id,
	doc_id,
	in_elastic,
	create_date
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`, s.table)

	args := []any{
		doc.ProgramID,
		doc.Country,
		doc.Title,
		doc.URL,
		doc.Fingerprint,
		doc.Abstract,
		doc.AgencyID,
		doc.DocumentType,
		doc.Reference,
		doc.DocFormat,
		doc.PublishDate,
		doc.ModifiedDate,
		doc.EffectiveDate,
		doc.DocketID,
		doc.DocID,
		doc.InElastic,
		doc.CreateDate,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}
