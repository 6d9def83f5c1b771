package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// InvoiceRepository is the persistence boundary for canonical invoices.
// FindByKey and Upsert operate on the natural key; Upsert must be atomic
// across the invoice row and its full line-item set.
type InvoiceRepository interface {
	FindByKey(ctx context.Context, key entity.InvoiceKey) (*entity.CanonicalInvoice, error)
	Upsert(ctx context.Context, inv *entity.CanonicalInvoice, items []entity.LineItem) (int64, error)
	List(ctx context.Context) ([]entity.CanonicalInvoice, error)
	GetLineItems(ctx context.Context, invoiceID int64) ([]entity.LineItem, error)
}

type invoiceRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewInvoiceRepository(db *DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger, now: time.Now}
}

const invoiceColumns = `id, invoice_number, vendor_name, invoice_date, total_amount,
	extraction_method, confidence_score, validated, source_path, created_at, updated_at`

func (r *invoiceRepository) FindByKey(ctx context.Context, key entity.InvoiceKey) (*entity.CanonicalInvoice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE invoice_number = $1 AND vendor_name = $2 AND invoice_date = $3`,
		key.InvoiceNumber, key.VendorName, key.InvoiceDate,
	)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("INVOICE_NOT_FOUND", "no invoice for natural key", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_QUERY_ERROR", "find invoice by key", err)
	}
	return inv, nil
}

// Upsert inserts or updates by natural key and replaces the line-item set,
// all within one transaction. On conflict every scalar is overwritten by
// the new extraction; created_at survives, updated_at is refreshed.
func (r *invoiceRepository) Upsert(ctx context.Context, inv *entity.CanonicalInvoice, items []entity.LineItem) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, common.NewAppError("DB_TX_ERROR", "begin upsert transaction", common.WrapError(common.ErrPersistence, err.Error()))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := r.now().UTC().Format(time.RFC3339)
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoices (invoice_number, vendor_name, invoice_date, total_amount,
			extraction_method, confidence_score, validated, source_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (invoice_number, vendor_name, invoice_date) DO UPDATE SET
			total_amount = excluded.total_amount,
			extraction_method = excluded.extraction_method,
			confidence_score = excluded.confidence_score,
			validated = excluded.validated,
			source_path = excluded.source_path,
			updated_at = excluded.updated_at
		RETURNING id`,
		inv.InvoiceNumber, inv.VendorName, inv.InvoiceDate, inv.TotalAmount,
		string(inv.ExtractionMethod), inv.ConfidenceScore, inv.Validated, inv.SourcePath, now, now,
	).Scan(&id)
	if err != nil {
		return 0, common.NewAppError("DB_UPSERT_ERROR", "upsert invoice", common.WrapError(common.ErrPersistence, err.Error()))
	}

	// full replacement: the old set is never merged with the new one
	if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE invoice_id = $1`, id); err != nil {
		return 0, common.NewAppError("DB_UPSERT_ERROR", "clear line items", common.WrapError(common.ErrPersistence, err.Error()))
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO line_items (invoice_id, description, quantity, unit_price, line_total, item_order)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, it.Description, it.Quantity, it.UnitPrice, it.LineTotal, it.Order,
		); err != nil {
			return 0, common.NewAppError("DB_UPSERT_ERROR", "insert line item", common.WrapError(common.ErrPersistence, err.Error()))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, common.NewAppError("DB_TX_ERROR", "commit upsert transaction", common.WrapError(common.ErrPersistence, err.Error()))
	}

	r.logger.Debug("repository.invoice_upserted",
		"id", id,
		"invoice_number", inv.InvoiceNumber,
		"vendor_name", inv.VendorName,
		"line_items", len(items),
	)
	inv.ID = id
	return id, nil
}

func (r *invoiceRepository) List(ctx context.Context) ([]entity.CanonicalInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		ORDER BY invoice_date, vendor_name, invoice_number`)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY_ERROR", "list invoices", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []entity.CanonicalInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, common.NewAppError("DB_SCAN_ERROR", "scan invoice row", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY_ERROR", "iterate invoices", err)
	}
	return out, nil
}

func (r *invoiceRepository) GetLineItems(ctx context.Context, invoiceID int64) ([]entity.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT description, quantity, unit_price, line_total, item_order
		FROM line_items
		WHERE invoice_id = $1
		ORDER BY item_order`, invoiceID)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY_ERROR", "list line items", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []entity.LineItem
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.Description, &it.Quantity, &it.UnitPrice, &it.LineTotal, &it.Order); err != nil {
			return nil, common.NewAppError("DB_SCAN_ERROR", "scan line item row", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY_ERROR", "iterate line items", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*entity.CanonicalInvoice, error) {
	var inv entity.CanonicalInvoice
	var method, createdAt, updatedAt string
	if err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.VendorName, &inv.InvoiceDate, &inv.TotalAmount,
		&method, &inv.ConfidenceScore, &inv.Validated, &inv.SourcePath, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	inv.ExtractionMethod = constants.Method(method)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &inv, nil
}
