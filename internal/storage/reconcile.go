package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertBankSQL = `INSERT INTO bank_created_events (
        bank_id,
        name,
        parent_address,
        child_address,
        target_amount,
        created_at_ms,
        deadline_ms,
        duration_days,
        initial_balance,
        current_balance
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$9
    )
    ON CONFLICT (bank_id) DO NOTHING;`

	insertDepositSQL = `INSERT INTO deposit_made_events (
        bank_id,
        amount,
        depositor,
        created_at_ms
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (bank_id, depositor, created_at_ms) DO NOTHING;`

	incrementBalanceSQL = `UPDATE bank_created_events
    SET current_balance = current_balance + $1
    WHERE bank_id = $2;`

	insertWithdrawalRequestSQL = `INSERT INTO withdrawal_requests (
        request_id,
        bank_id,
        amount,
        requester,
        reason,
        status,
        approved_by,
        created_at_ms
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (request_id) DO NOTHING;`

	auditWithdrawalRequestSQL = `UPDATE withdrawal_requests
    SET status = $2, approved_by = $3, audit_at_ms = $4
    WHERE request_id = $1;`

	completeWithdrawalRequestSQL = `UPDATE withdrawal_requests
    SET status = $2, audit_at_ms = $3
    WHERE request_id = $1;`

	insertCompletionSQL = `INSERT INTO withdrawal_completed_events (
        request_id,
        bank_id,
        amount,
        left_balance,
        withdrawer,
        created_at_ms
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (request_id) DO NOTHING;`

	overwriteBalanceSQL = `UPDATE bank_created_events
    SET current_balance = $1
    WHERE bank_id = $2;`

	decrementBalanceSQL = `UPDATE bank_created_events
    SET current_balance = current_balance - $1
    WHERE bank_id = $2
    RETURNING current_balance;`
)

// EventStore applies decoded events to the projection. Each method is one
// scoped transaction; replays of already-applied events are no-ops for the
// event tables and never double-apply a balance delta.
type EventStore interface {
	ApplyBankCreated(ctx context.Context, ev NewBankEvent) error
	ApplyDeposit(ctx context.Context, ev NewDepositEvent) error
	ApplyWithdrawalRequested(ctx context.Context, ev NewWithdrawalRequestEvent) error
	ApplyWithdrawalAudit(ctx context.Context, requestID, status string, auditedBy string, auditAtMs int64) error
	ApplyWithdrawalCompleted(ctx context.Context, ev NewWithdrawalCompletedEvent) error
}

// ApplyBankCreated inserts the bank event row, which also seeds the
// aggregate balance. A duplicate bank id is ignored.
func (s *Store) ApplyBankCreated(ctx context.Context, ev NewBankEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertBankSQL,
		ev.BankID,
		ev.Name,
		ev.ParentAddress,
		ev.ChildAddress,
		ev.TargetAmount,
		ev.CreatedAtMs,
		ev.DeadlineMs,
		ev.DurationDays,
		ev.CurrentBalance,
	)
	if execErr != nil {
		return fmt.Errorf("insert bank created event: %w", execErr)
	}
	return nil
}

// ApplyDeposit inserts the deposit row and increments the bank balance in
// one transaction. The increment is gated on the insert having actually
// inserted a row, so a replayed deposit never double-counts.
func (s *Store) ApplyDeposit(ctx context.Context, ev NewDepositEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deposit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, execErr := tx.Exec(ctx, insertDepositSQL,
		ev.BankID,
		ev.Amount,
		ev.Depositor,
		ev.CreatedAtMs,
	)
	if execErr != nil {
		return fmt.Errorf("insert deposit event: %w", execErr)
	}

	if tag.RowsAffected() > 0 {
		updated, updErr := tx.Exec(ctx, incrementBalanceSQL, ev.Amount, ev.BankID)
		if updErr != nil {
			return fmt.Errorf("increment balance: %w", updErr)
		}
		if updated.RowsAffected() == 0 {
			return fmt.Errorf("apply deposit for bank %s: %w", ev.BankID, ErrBankNotFound)
		}
	}

	return tx.Commit(ctx)
}

// ApplyWithdrawalRequested inserts the request row. A duplicate request id
// is ignored; later audit events transition the existing row.
func (s *Store) ApplyWithdrawalRequested(ctx context.Context, ev NewWithdrawalRequestEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertWithdrawalRequestSQL,
		ev.RequestID,
		ev.BankID,
		ev.Amount,
		ev.Requester,
		ev.Reason,
		ev.Status,
		ev.ApprovedBy,
		ev.CreatedAtMs,
	)
	if execErr != nil {
		return fmt.Errorf("insert withdrawal request: %w", execErr)
	}
	return nil
}

// ApplyWithdrawalAudit transitions an existing request to approved or
// rejected, recording who audited it and when.
func (s *Store) ApplyWithdrawalAudit(ctx context.Context, requestID, status string, auditedBy string, auditAtMs int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tag, execErr := pool.Exec(ctx, auditWithdrawalRequestSQL, requestID, status, auditedBy, auditAtMs)
	if execErr != nil {
		return fmt.Errorf("audit withdrawal request: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("audit withdrawal request %s: %w", requestID, ErrRequestNotFound)
	}
	return nil
}

// ApplyWithdrawalCompleted inserts the completion event, transitions the
// request to completed, and updates the bank balance, all in one
// transaction. When the event states no authoritative post-withdrawal
// balance, the aggregate is decremented by the amount instead, gated on the
// event insert so replays leave the balance untouched.
func (s *Store) ApplyWithdrawalCompleted(ctx context.Context, ev NewWithdrawalCompletedEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin completion tx: %w", err)
	}
	defer tx.Rollback(ctx)

	leftBalance := int64(0)
	if ev.LeftBalance != nil {
		leftBalance = *ev.LeftBalance
	}

	tag, execErr := tx.Exec(ctx, insertCompletionSQL,
		ev.RequestID,
		ev.BankID,
		ev.Amount,
		leftBalance,
		ev.Withdrawer,
		ev.CreatedAtMs,
	)
	if execErr != nil {
		return fmt.Errorf("insert completion event: %w", execErr)
	}
	inserted := tag.RowsAffected() > 0

	reqTag, reqErr := tx.Exec(ctx, completeWithdrawalRequestSQL, ev.RequestID, StatusCompleted, ev.CreatedAtMs)
	if reqErr != nil {
		return fmt.Errorf("complete withdrawal request: %w", reqErr)
	}
	if reqTag.RowsAffected() == 0 {
		return fmt.Errorf("complete withdrawal request %s: %w", ev.RequestID, ErrRequestNotFound)
	}

	switch {
	case ev.LeftBalance != nil:
		balTag, balErr := tx.Exec(ctx, overwriteBalanceSQL, *ev.LeftBalance, ev.BankID)
		if balErr != nil {
			return fmt.Errorf("overwrite balance: %w", balErr)
		}
		if balTag.RowsAffected() == 0 {
			return fmt.Errorf("overwrite balance for bank %s: %w", ev.BankID, ErrBankNotFound)
		}
	case inserted:
		var remaining int64
		if err := tx.QueryRow(ctx, decrementBalanceSQL, ev.Amount, ev.BankID).Scan(&remaining); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("decrement balance for bank %s: %w", ev.BankID, ErrBankNotFound)
			}
			return fmt.Errorf("decrement balance: %w", err)
		}
		// Record the derived balance on the completion row.
		if _, err := tx.Exec(ctx,
			`UPDATE withdrawal_completed_events SET left_balance = $1 WHERE request_id = $2;`,
			remaining, ev.RequestID,
		); err != nil {
			return fmt.Errorf("record left balance: %w", err)
		}
	}

	return tx.Commit(ctx)
}

var _ EventStore = (*Store)(nil)
