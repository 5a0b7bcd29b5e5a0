package balance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrInvalidPayoutState  = errors.New("payout is not in a valid state for this operation")
)

const balanceColumns = `id, professional_id, available, pending, currency, created_at, updated_at`
const payoutColumns = `id, professional_id, amount, currency, status, destination_account, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreate(ctx context.Context, professionalID int64, currency string) (*Balance, error) {
	b := &Balance{}
	err := r.db.GetContext(ctx, b, `SELECT `+balanceColumns+` FROM balances WHERE professional_id = $1`, professionalID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO balances (professional_id, currency)
		 VALUES ($1, $2)
		 RETURNING `+balanceColumns,
		professionalID, currency,
	).StructScan(b)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// lockBalance loads the professional's balance row FOR UPDATE inside tx,
// creating it first if absent.
func lockBalance(ctx context.Context, tx *sqlx.Tx, professionalID int64, currency string) (*Balance, error) {
	var b Balance
	err := tx.QueryRowxContext(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE professional_id = $1 FOR UPDATE`,
		professionalID,
	).StructScan(&b)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO balances (professional_id, currency)
		 VALUES ($1, $2)
		 RETURNING `+balanceColumns,
		professionalID, currency,
	).StructScan(&b)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func addEntry(ctx context.Context, tx *sqlx.Tx, balanceID int64, amount decimal.Decimal, kind, reference string, availableAfter decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balance_entries (balance_id, amount, kind, reference, available_after)
		 VALUES ($1, $2, $3, $4, $5)`,
		balanceID, amount, kind, reference, availableAfter,
	)
	return err
}

func (r *repository) Credit(ctx context.Context, professionalID int64, amount decimal.Decimal, currency, reference string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := lockBalance(ctx, tx, professionalID, currency)
	if err != nil {
		return err
	}

	newAvailable := b.Available.Add(amount)
	_, err = tx.ExecContext(ctx,
		`UPDATE balances SET available = $1, updated_at = NOW() WHERE id = $2`,
		newAvailable, b.ID,
	)
	if err != nil {
		return err
	}

	if err := addEntry(ctx, tx, b.ID, amount, "credit", reference, newAvailable); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) RequestPayout(ctx context.Context, professionalID int64, amount decimal.Decimal, destinationAccount string) (*Payout, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := lockBalance(ctx, tx, professionalID, "")
	if err != nil {
		return nil, err
	}

	if amount.GreaterThan(b.Available) {
		return nil, ErrInsufficientBalance
	}

	newAvailable := b.Available.Sub(amount)
	_, err = tx.ExecContext(ctx,
		`UPDATE balances SET available = $1, pending = $2, updated_at = NOW() WHERE id = $3`,
		newAvailable, b.Pending.Add(amount), b.ID,
	)
	if err != nil {
		return nil, err
	}

	var payout Payout
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO payouts (professional_id, amount, currency, status, destination_account)
		 VALUES ($1, $2, $3, 'pending', $4)
		 RETURNING `+payoutColumns,
		professionalID, amount, b.Currency, destinationAccount,
	).StructScan(&payout)
	if err != nil {
		return nil, err
	}

	if err := addEntry(ctx, tx, b.ID, amount.Neg(), "payout_hold", fmt.Sprintf("payout:%d", payout.ID), newAvailable); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &payout, nil
}

func (r *repository) GetPayout(ctx context.Context, id int64) (*Payout, error) {
	var payout Payout
	err := r.db.GetContext(ctx, &payout, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListPayouts(ctx context.Context, professionalID int64) ([]Payout, error) {
	var payouts []Payout
	err := r.db.SelectContext(ctx, &payouts,
		`SELECT `+payoutColumns+` FROM payouts WHERE professional_id = $1 ORDER BY created_at DESC`,
		professionalID,
	)
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) MarkPayoutProcessing(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payouts SET status = 'processing', updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *repository) CompletePayout(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	payout, err := lockPayout(ctx, tx, id)
	if err != nil {
		return err
	}
	if payout.Status != PayoutProcessing {
		return fmt.Errorf("%w: payout %d is %s", ErrInvalidPayoutState, id, payout.Status)
	}

	b, err := lockBalance(ctx, tx, payout.ProfessionalID, payout.Currency)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE balances SET pending = $1, updated_at = NOW() WHERE id = $2`,
		b.Pending.Sub(payout.Amount), b.ID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payouts SET status = 'completed', updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}

	if err := addEntry(ctx, tx, b.ID, decimal.Zero, "payout_completed", fmt.Sprintf("payout:%d", id), b.Available); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) ReturnPayout(ctx context.Context, id int64, to PayoutStatus) error {
	if to != PayoutFailed && to != PayoutCancelled {
		return fmt.Errorf("%w: cannot return payout to status %s", ErrInvalidPayoutState, to)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	payout, err := lockPayout(ctx, tx, id)
	if err != nil {
		return err
	}
	if payout.Status != PayoutPending && payout.Status != PayoutProcessing {
		return fmt.Errorf("%w: payout %d is %s", ErrInvalidPayoutState, id, payout.Status)
	}

	b, err := lockBalance(ctx, tx, payout.ProfessionalID, payout.Currency)
	if err != nil {
		return err
	}

	newAvailable := b.Available.Add(payout.Amount)
	_, err = tx.ExecContext(ctx,
		`UPDATE balances SET available = $1, pending = $2, updated_at = NOW() WHERE id = $3`,
		newAvailable, b.Pending.Sub(payout.Amount), b.ID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE payouts SET status = $1, updated_at = NOW() WHERE id = $2`,
		to, id,
	)
	if err != nil {
		return err
	}

	if err := addEntry(ctx, tx, b.ID, payout.Amount, "payout_returned", fmt.Sprintf("payout:%d", id), newAvailable); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) ListEntries(ctx context.Context, professionalID int64, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var balanceID int64
	err := r.db.GetContext(ctx, &balanceID, `SELECT id FROM balances WHERE professional_id = $1`, professionalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Entry{}, nil
		}
		return nil, err
	}

	var entries []Entry
	err = r.db.SelectContext(ctx, &entries, `
		SELECT id, balance_id, amount, kind, reference, available_after, created_at
		FROM balance_entries
		WHERE balance_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, balanceID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func lockPayout(ctx context.Context, tx *sqlx.Tx, id int64) (*Payout, error) {
	var payout Payout
	err := tx.QueryRowxContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = $1 FOR UPDATE`,
		id,
	).StructScan(&payout)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}
