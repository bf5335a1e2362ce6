package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const reportsTable = "reports"

// SQLStore keeps reports in a single table, on SQLite or PostgreSQL.
type SQLStore struct {
	drv     *entsql.Driver
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// OpenSQLite opens (or creates) a SQLite database file and ensures the reports table.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}

	s := &SQLStore{
		drv:     entsql.OpenDB(dialect.SQLite, db),
		db:      db,
		dialect: dialect.SQLite,
		logger:  logger,
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	// the migrator holds a second connection while toggling pragmas; after it,
	// one writer at a time avoids SQLITE_BUSY under concurrent renders
	db.SetMaxOpenConns(1)
	logger.Info("storage.sqlite.open", "dsn", dsn)
	return s, nil
}

// OpenPostgres creates a pgx pool, wraps it for the ent SQL driver and ensures the reports table.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"

	dctx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for the ent driver
	db := stdlib.OpenDBFromPool(pool)
	s := &SQLStore{
		drv:     entsql.OpenDB(dialect.Postgres, db),
		db:      db,
		pool:    pool,
		dialect: dialect.Postgres,
		logger:  logger,
	}
	if err := s.migrate(dctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return s, nil
}

// reportColumns mirrors what entc would generate for a reports schema.
var (
	reportColumns = []*schema.Column{
		{Name: "reference", Type: field.TypeString, Size: 255},
		{Name: "content", Type: field.TypeBytes},
		{Name: "size", Type: field.TypeInt64},
		{Name: "created_at", Type: field.TypeTime},
	}
	reportsSchema = &schema.Table{
		Name:       reportsTable,
		Columns:    reportColumns,
		PrimaryKey: []*schema.Column{reportColumns[0]},
	}
)

func (s *SQLStore) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv, schema.WithForeignKeys(false))
	if err != nil {
		return fmt.Errorf("%s store: migrate: %w", s.dialect, err)
	}
	if err := m.Create(ctx, reportsSchema); err != nil {
		return fmt.Errorf("%s store: create table: %w", s.dialect, err)
	}
	return nil
}

// sqliteDSN turns on foreign key enforcement, which the ent migrator requires on SQLite.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func (s *SQLStore) Backend() string { return s.dialect }

func (s *SQLStore) Put(ctx context.Context, ref string, data []byte) error {
	if err := CheckRef(ref); err != nil {
		return err
	}
	query, args := entsql.Dialect(s.dialect).
		Insert(reportsTable).
		Columns("reference", "content", "size", "created_at").
		Values(ref, data, len(data), time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("reference"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("%s store: put %s: %w", s.dialect, ref, err)
	}
	s.logger.Debug("storage.sql.put", "dialect", s.dialect, "ref", ref, "bytes", len(data))
	return nil
}

func (s *SQLStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := CheckRef(ref); err != nil {
		return nil, err
	}
	b := entsql.Dialect(s.dialect)
	query, args := b.Select("content").
		From(b.Table(reportsTable)).
		Where(entsql.EQ("reference", ref)).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%s store: get %s: %w", s.dialect, ref, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var content []byte
	if err := rows.Scan(&content); err != nil {
		return nil, fmt.Errorf("%s store: scan %s: %w", s.dialect, ref, err)
	}
	return content, nil
}

func (s *SQLStore) Delete(ctx context.Context, ref string) error {
	if err := CheckRef(ref); err != nil {
		return err
	}
	query, args := entsql.Dialect(s.dialect).
		Delete(reportsTable).
		Where(entsql.EQ("reference", ref)).
		Query()

	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("%s store: delete %s: %w", s.dialect, ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the pool directly when there is one so DSN problems surface early.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	s.logger.Info("closing database connections")
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		s.logger.Error("failed to close sql driver", "error", err)
		return err
	}
	return nil
}
