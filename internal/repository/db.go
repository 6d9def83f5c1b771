package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DB wraps the sql pool with the dialect it was opened against. SQLite is
// the default; a postgres:// DSN switches to pgx. All repository SQL uses
// $N placeholders, which both dialects accept.
type DB struct {
	*sql.DB
	driver string
	logger *slog.Logger
}

// Open connects, applies pool settings, pings, and ensures the schema.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, dsn := resolveDriver(cfg.DSN)
	pool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, common.NewAppError("DB_OPEN_ERROR", fmt.Sprintf("open %s database", driver), err)
	}

	if driver == "sqlite" {
		// modernc's driver serializes writers per connection; a single
		// connection also keeps :memory: databases coherent
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(int(cfg.MaxConns))
		pool.SetMaxIdleConns(int(cfg.MinConns))
		pool.SetConnMaxLifetime(cfg.MaxConnLifetime)
		pool.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, common.NewAppError("DB_PING_ERROR", fmt.Sprintf("ping %s database", driver), err)
	}

	db := &DB{DB: pool, driver: driver, logger: logger}
	if err := db.ensureSchema(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Info("db.connected", "driver", driver)
	return db, nil
}

func resolveDriver(dsn string) (driver, resolved string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", dsn
	}
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return "sqlite", dsn
	}
	// bare path: a local sqlite file with enforced foreign keys
	return "sqlite", "file:" + dsn + "?_pragma=foreign_keys(1)"
}

// Driver reports the active sql driver name ("sqlite" or "pgx").
func (db *DB) Driver() string { return db.driver }

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS invoices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_number TEXT NOT NULL,
	vendor_name TEXT NOT NULL,
	invoice_date TEXT NOT NULL,
	total_amount REAL NOT NULL,
	extraction_method TEXT NOT NULL,
	confidence_score REAL NOT NULL,
	validated INTEGER NOT NULL DEFAULT 0,
	source_path TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (invoice_number, vendor_name, invoice_date)
);
CREATE TABLE IF NOT EXISTS line_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_id INTEGER NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	quantity REAL NOT NULL,
	unit_price REAL NOT NULL,
	line_total REAL NOT NULL,
	item_order INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices (vendor_name);
CREATE INDEX IF NOT EXISTS idx_line_items_invoice ON line_items (invoice_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS invoices (
	id BIGSERIAL PRIMARY KEY,
	invoice_number TEXT NOT NULL,
	vendor_name TEXT NOT NULL,
	invoice_date TEXT NOT NULL,
	total_amount DOUBLE PRECISION NOT NULL,
	extraction_method TEXT NOT NULL,
	confidence_score REAL NOT NULL,
	validated BOOLEAN NOT NULL DEFAULT FALSE,
	source_path TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (invoice_number, vendor_name, invoice_date)
);
CREATE TABLE IF NOT EXISTS line_items (
	id BIGSERIAL PRIMARY KEY,
	invoice_id BIGINT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	quantity DOUBLE PRECISION NOT NULL,
	unit_price DOUBLE PRECISION NOT NULL,
	line_total DOUBLE PRECISION NOT NULL,
	item_order INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices (vendor_name);
CREATE INDEX IF NOT EXISTS idx_line_items_invoice ON line_items (invoice_id);
`

func (db *DB) ensureSchema(ctx context.Context) error {
	schema := schemaSQLite
	if db.driver == "pgx" {
		schema = schemaPostgres
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return common.NewAppError("DB_MIGRATE_ERROR", "apply schema", err)
		}
	}
	return nil
}
