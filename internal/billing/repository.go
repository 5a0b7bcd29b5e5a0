package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrInvoiceNotFound = errors.New("invoice not found")
var ErrReceiptNotFound = errors.New("receipt not found")

const invoiceColumns = `id, number, payment_id, booking_id, order_id, subtotal, tax_rate, tax_amount, total, issue_date, document_ref`
const receiptColumns = `id, number, payment_id, booking_id, order_id, total, issue_date, document_ref`

type repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) GetInvoiceByID(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetInvoiceByKey(ctx context.Context, bookingID, orderID *int64) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv,
		`SELECT `+invoiceColumns+` FROM invoices WHERE booking_id IS NOT DISTINCT FROM $1 AND order_id IS NOT DISTINCT FROM $2`,
		bookingID, orderID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetReceiptByKey(ctx context.Context, bookingID, orderID *int64) (*Receipt, error) {
	var rec Receipt
	err := r.db.GetContext(ctx, &rec,
		`SELECT `+receiptColumns+` FROM receipts WHERE booking_id IS NOT DISTINCT FROM $1 AND order_id IS NOT DISTINCT FROM $2`,
		bookingID, orderID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repository) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	var items []LineItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, invoice_id, description, amount FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateInvoice(ctx context.Context, inv *Invoice, items []LineItem) (*Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serialize generation per payment. The re-check below runs after the
	// lock is granted, so a loser of the race returns the winner's invoice
	// without consuming a sequence number.
	if err := lockPayment(ctx, tx, inv.PaymentID); err != nil {
		return nil, err
	}

	var existing Invoice
	err = tx.QueryRowxContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE payment_id = $1`,
		inv.PaymentID,
	).StructScan(&existing)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	year := r.now().Year()
	seq, err := nextSequence(ctx, tx, "invoice", year)
	if err != nil {
		return nil, err
	}
	inv.Number = FormatInvoiceNumber(year, seq)

	var created Invoice
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO invoices (number, payment_id, booking_id, order_id, subtotal, tax_rate, tax_amount, total, issue_date, document_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+invoiceColumns,
		inv.Number, inv.PaymentID, inv.BookingID, inv.OrderID,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total, inv.IssueDate, inv.DocumentRef,
	).StructScan(&created)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO invoice_line_items (invoice_id, description, amount) VALUES ($1, $2, $3)`,
			created.ID, item.Description, item.Amount,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) CreateReceipt(ctx context.Context, rec *Receipt) (*Receipt, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockPayment(ctx, tx, rec.PaymentID); err != nil {
		return nil, err
	}

	var existing Receipt
	err = tx.QueryRowxContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE payment_id = $1`,
		rec.PaymentID,
	).StructScan(&existing)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	year := r.now().Year()
	seq, err := nextSequence(ctx, tx, "receipt", year)
	if err != nil {
		return nil, err
	}
	rec.Number = FormatReceiptNumber(year, seq)

	var created Receipt
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO receipts (number, payment_id, booking_id, order_id, total, issue_date, document_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+receiptColumns,
		rec.Number, rec.PaymentID, rec.BookingID, rec.OrderID, rec.Total, rec.IssueDate, rec.DocumentRef,
	).StructScan(&created)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &created, nil
}

func lockPayment(ctx context.Context, tx *sqlx.Tx, paymentID int64) error {
	var id int64
	return tx.QueryRowxContext(ctx, `SELECT id FROM payments WHERE id = $1 FOR UPDATE`, paymentID).Scan(&id)
}

// nextSequence bumps the (kind, year) counter and returns the new value.
// Counters only move forward; numbers are never reused.
func nextSequence(ctx context.Context, tx *sqlx.Tx, kind string, year int) (int64, error) {
	var seq int64
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO billing_sequences (kind, year, value)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (kind, year) DO UPDATE SET value = billing_sequences.value + 1
		 RETURNING value`,
		kind, year,
	).Scan(&seq)
	return seq, err
}
