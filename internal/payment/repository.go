package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, booking_id, order_id, amount, currency, status, external_ref,
	invoice_kind, tax_amount, platform_fee, professional_amount, created_at`

type repository struct {
	db    *sqlx.DB
	codec *FieldCodec
}

func NewRepository(db *sqlx.DB, codec *FieldCodec) Repository {
	return &repository{db: db, codec: codec}
}

func (r *repository) Create(ctx context.Context, p *Payment, data *InvoiceData) (*Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var created Payment
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO payments (booking_id, order_id, amount, currency, status, external_ref, invoice_kind, tax_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+paymentColumns,
		p.BookingID, p.OrderID, p.Amount, p.Currency, p.Status, p.ExternalRef, p.InvoiceKind, p.TaxAmount,
	).StructScan(&created)
	if err != nil {
		return nil, err
	}

	if data != nil {
		encryptedTaxID, err := r.codec.Encode(data.TaxID)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO payment_invoice_data (payment_id, tax_id, legal_name, address, jurisdiction)
			 VALUES ($1, $2, $3, $4, $5)`,
			created.ID, encryptedTaxID, data.LegalName, data.Address, data.Jurisdiction,
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

func (r *repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *repository) GetByExternalRef(ctx context.Context, externalRef string) (*Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE external_ref = $1`, externalRef)
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID int64) (*Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
}

func (r *repository) getOne(ctx context.Context, query string, arg interface{}) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetInvoiceData(ctx context.Context, paymentID int64) (*InvoiceData, error) {
	var data InvoiceData
	err := r.db.GetContext(ctx, &data,
		`SELECT payment_id, tax_id, legal_name, address, jurisdiction
		 FROM payment_invoice_data
		 WHERE payment_id = $1`,
		paymentID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceDataNotFound
		}
		return nil, err
	}

	taxID, err := r.codec.Decode(data.TaxID)
	if err != nil {
		return nil, err
	}
	data.TaxID = taxID

	return &data, nil
}

func (r *repository) Transition(ctx context.Context, id int64, from []Status, to Status) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE id = $2 AND status = ANY($3)`,
		to, id, pq.Array(statusStrings(from)),
	)
	if err != nil {
		return false, err
	}
	return oneRowAffected(result)
}

func (r *repository) TransitionByRef(ctx context.Context, externalRef string, from []Status, to Status) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE external_ref = $2 AND status = ANY($3)`,
		to, externalRef, pq.Array(statusStrings(from)),
	)
	if err != nil {
		return false, err
	}
	return oneRowAffected(result)
}

func (r *repository) MarkReleased(ctx context.Context, id int64, platformFee, professionalAmount decimal.Decimal) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'released', platform_fee = $1, professional_amount = $2
		 WHERE id = $3 AND status = 'captured'`,
		platformFee, professionalAmount, id,
	)
	if err != nil {
		return false, err
	}
	return oneRowAffected(result)
}

func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
