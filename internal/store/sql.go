package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/i474232898/city-explorer/internal/common"
	"github.com/i474232898/city-explorer/internal/explorer"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore persists cached resources in a relational database.
type SQLStore struct {
	db       *sql.DB
	postgres bool
	now      func() time.Time
}

// Open connects to the database. For sqlite, dsn is a file path (parent
// directories are created) or a full "file:" URI.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
			dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dsn)
		}

		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		// One shared connection; sqlite serializes writers anyway.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(5 * time.Minute)

		return &SQLStore{db: db, now: time.Now}, nil

	case DriverPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(30 * time.Minute)

		return &SQLStore{db: db, postgres: true, now: time.Now}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.postgres) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Query returns the rows addressed by key ordered by id.
func (s *SQLStore) Query(ctx context.Context, key explorer.Key) ([]explorer.Record, error) {
	t, err := lookupTable(key.Resource)
	if err != nil {
		return nil, err
	}

	arg := any(key.LocationID)
	if key.Resource == explorer.ResourceLocation {
		arg = key.SearchQuery
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(t.selectSQL), arg)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []explorer.Record
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	return out, nil
}

// Insert stores rec and returns its id. A location whose search query is
// already stored is left untouched and its existing id is returned.
func (s *SQLStore) Insert(ctx context.Context, key explorer.Key, rec explorer.Record) (int64, error) {
	t, err := lookupTable(key.Resource)
	if err != nil {
		return 0, err
	}
	rec, err = prepare(key, rec, s.now().UTC())
	if err != nil {
		return 0, err
	}

	if key.Resource == explorer.ResourceLocation {
		if _, err := s.db.ExecContext(ctx, s.rebind(t.insertSQL), t.args(rec)...); err != nil {
			return 0, fmt.Errorf("insert %s: %w", t.name, err)
		}
		var id int64
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM locations WHERE search_query = ?`), key.SearchQuery).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", t.name, err)
		}
		return id, nil
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, s.rebind(t.insertSQL), t.args(rec)...).Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("insert %s: %w", t.name, ErrUnknownLocation)
		}
		return 0, fmt.Errorf("insert %s: %w", t.name, err)
	}
	return id, nil
}

// DeleteAll removes every child row addressed by key.
func (s *SQLStore) DeleteAll(ctx context.Context, key explorer.Key) (int64, error) {
	if key.Resource == explorer.ResourceLocation {
		return 0, ErrImmutable
	}
	t, err := lookupTable(key.Resource)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(t.deleteSQL), key.LocationID)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

// PurgeStale removes rows of resource r created before olderThan.
func (s *SQLStore) PurgeStale(ctx context.Context, r explorer.ResourceType, olderThan time.Time) (int64, error) {
	if r == explorer.ResourceLocation {
		return 0, ErrImmutable
	}
	t, err := lookupTable(r)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(t.purgeSQL), olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
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

// SQLSTATE for foreign_key_violation.
const pgForeignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	// modernc reports SQLITE_CONSTRAINT_FOREIGNKEY (787) with this text.
	return err != nil && common.HasAny(err.Error(), "FOREIGN KEY constraint failed", "(787)")
}
