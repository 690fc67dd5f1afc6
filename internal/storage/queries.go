package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	getBankSQL = `SELECT
        id, bank_id, name, parent_address, child_address,
        target_amount, created_at_ms, deadline_ms, duration_days,
        initial_balance, current_balance, created_at
    FROM bank_created_events
    WHERE bank_id = $1;`

	listBankIDsSQL = `SELECT bank_id FROM bank_created_events ORDER BY created_at_ms;`

	listDepositsByBankSQL = `SELECT
        id, bank_id, amount, depositor, created_at_ms, created_at
    FROM deposit_made_events
    WHERE bank_id = $1
    ORDER BY created_at_ms DESC
    LIMIT $2 OFFSET $3;`

	getRequestByIDSQL = `SELECT
        id, request_id, bank_id, amount, requester, reason,
        status, approved_by, created_at_ms, audit_at_ms, indexed_at
    FROM withdrawal_requests
    WHERE request_id = $1;`

	listRequestsByBankSQL = `SELECT
        id, request_id, bank_id, amount, requester, reason,
        status, approved_by, created_at_ms, audit_at_ms, indexed_at
    FROM withdrawal_requests
    WHERE bank_id = $1
    ORDER BY created_at_ms DESC
    LIMIT $2 OFFSET $3;`

	listRequestsByRequesterSQL = `SELECT
        id, request_id, bank_id, amount, requester, reason,
        status, approved_by, created_at_ms, audit_at_ms, indexed_at
    FROM withdrawal_requests
    WHERE requester = $1
    ORDER BY created_at_ms DESC
    LIMIT $2 OFFSET $3;`

	listRequestsByStatusSQL = `SELECT
        id, request_id, bank_id, amount, requester, reason,
        status, approved_by, created_at_ms, audit_at_ms, indexed_at
    FROM withdrawal_requests
    WHERE status = $1
    ORDER BY created_at_ms DESC
    LIMIT $2 OFFSET $3;`

	requestStatsSQL = `SELECT
        status,
        COUNT(*) AS count,
        COALESCE(SUM(amount), 0) AS total_amount
    FROM withdrawal_requests
    WHERE ($1::text IS NULL OR bank_id = $1)
    GROUP BY status;`

	getCompletionByIDSQL = `SELECT
        id, request_id, bank_id, amount, left_balance, withdrawer,
        created_at_ms, created_at
    FROM withdrawal_completed_events
    WHERE request_id = $1;`

	listCompletionsByBankSQL = `SELECT
        id, request_id, bank_id, amount, left_balance, withdrawer,
        created_at_ms, created_at
    FROM withdrawal_completed_events
    WHERE bank_id = $1
    ORDER BY created_at_ms DESC
    LIMIT $2 OFFSET $3;`

	listCompletionsByWithdrawerSQL = `SELECT
        id, request_id, bank_id, amount, left_balance, withdrawer,
        created_at_ms, created_at
    FROM withdrawal_completed_events
    WHERE withdrawer = $1
    ORDER BY created_at_ms DESC
    LIMIT $2 OFFSET $3;`

	completionStatsSQL = `SELECT
        COUNT(*) AS total_count,
        COALESCE(SUM(amount), 0) AS total_amount,
        COALESCE(AVG(amount), 0) AS average_amount
    FROM withdrawal_completed_events
    WHERE ($1::text IS NULL OR bank_id = $1);`

	recalculateBalanceSQL = `UPDATE bank_created_events b
    SET current_balance = b.initial_balance
        + COALESCE((SELECT SUM(d.amount) FROM deposit_made_events d WHERE d.bank_id = b.bank_id), 0)
        - COALESCE((SELECT SUM(w.amount) FROM withdrawal_completed_events w WHERE w.bank_id = b.bank_id), 0)
    WHERE b.bank_id = $1
    RETURNING b.current_balance;`
)

// QueryStore is the read-only surface over the projection, consumed by the
// HTTP layer and the CLI. All list paths default to 50 rows ordered by
// creation time descending.
type QueryStore interface {
	HealthCheck(ctx context.Context) error
	GetBank(ctx context.Context, bankID string) (*BankRecord, error)
	ListDepositsByBank(ctx context.Context, bankID string, limit, offset int) ([]DepositRecord, error)
	GetWithdrawalRequestByID(ctx context.Context, requestID string) (*WithdrawalRequestRecord, error)
	ListWithdrawalRequestsByBank(ctx context.Context, bankID string, limit, offset int) ([]WithdrawalRequestRecord, error)
	ListWithdrawalRequestsByRequester(ctx context.Context, requester string, limit, offset int) ([]WithdrawalRequestRecord, error)
	ListWithdrawalRequestsByStatus(ctx context.Context, status string, limit, offset int) ([]WithdrawalRequestRecord, error)
	WithdrawalRequestStats(ctx context.Context, bankID *string) (map[string]StatusStat, error)
	GetCompletionByRequestID(ctx context.Context, requestID string) (*WithdrawalCompletedRecord, error)
	ListCompletionsByBank(ctx context.Context, bankID string, limit, offset int) ([]WithdrawalCompletedRecord, error)
	ListCompletionsByWithdrawer(ctx context.Context, withdrawer string, limit, offset int) ([]WithdrawalCompletedRecord, error)
	CompletionStats(ctx context.Context, bankID *string) (*CompletionStats, error)
}

// GetBank fetches one bank row with its projected balance, or nil when the
// bank was never ingested.
func (s *Store) GetBank(ctx context.Context, bankID string) (*BankRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rec BankRecord
	row := pool.QueryRow(ctx, getBankSQL, bankID)
	if err := row.Scan(
		&rec.ID,
		&rec.BankID,
		&rec.Name,
		&rec.ParentAddress,
		&rec.ChildAddress,
		&rec.TargetAmount,
		&rec.CreatedAtMs,
		&rec.DeadlineMs,
		&rec.DurationDays,
		&rec.InitialBalance,
		&rec.CurrentBalance,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bank: %w", err)
	}
	return &rec, nil
}

// ListBankIDs returns every ingested bank id in creation order.
func (s *Store) ListBankIDs(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listBankIDsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list bank ids: %w", queryErr)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListDepositsByBank lists deposits for a bank, newest first.
func (s *Store) ListDepositsByBank(ctx context.Context, bankID string, limit, offset int) ([]DepositRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listDepositsByBankSQL, bankID, normalizeLimit(limit), normalizeOffset(offset))
	if queryErr != nil {
		return nil, fmt.Errorf("list deposits by bank: %w", queryErr)
	}
	defer rows.Close()

	deposits := make([]DepositRecord, 0)
	for rows.Next() {
		var rec DepositRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.BankID,
			&rec.Amount,
			&rec.Depositor,
			&rec.CreatedAtMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		deposits = append(deposits, rec)
	}
	return deposits, rows.Err()
}

// GetWithdrawalRequestByID fetches one request, or nil when absent.
func (s *Store) GetWithdrawalRequestByID(ctx context.Context, requestID string) (*WithdrawalRequestRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rec WithdrawalRequestRecord
	row := pool.QueryRow(ctx, getRequestByIDSQL, requestID)
	if err := scanRequestRow(row, &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal request: %w", err)
	}
	return &rec, nil
}

// ListWithdrawalRequestsByBank lists requests for a bank, newest first.
func (s *Store) ListWithdrawalRequestsByBank(ctx context.Context, bankID string, limit, offset int) ([]WithdrawalRequestRecord, error) {
	return s.listRequests(ctx, listRequestsByBankSQL, bankID, limit, offset)
}

// ListWithdrawalRequestsByRequester lists requests opened by one requester.
func (s *Store) ListWithdrawalRequestsByRequester(ctx context.Context, requester string, limit, offset int) ([]WithdrawalRequestRecord, error) {
	return s.listRequests(ctx, listRequestsByRequesterSQL, requester, limit, offset)
}

// ListWithdrawalRequestsByStatus lists requests in one lifecycle state.
func (s *Store) ListWithdrawalRequestsByStatus(ctx context.Context, status string, limit, offset int) ([]WithdrawalRequestRecord, error) {
	return s.listRequests(ctx, listRequestsByStatusSQL, status, limit, offset)
}

func (s *Store) listRequests(ctx context.Context, sql, key string, limit, offset int) ([]WithdrawalRequestRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, sql, key, normalizeLimit(limit), normalizeOffset(offset))
	if queryErr != nil {
		return nil, fmt.Errorf("list withdrawal requests: %w", queryErr)
	}
	defer rows.Close()

	requests := make([]WithdrawalRequestRecord, 0)
	for rows.Next() {
		var rec WithdrawalRequestRecord
		if err := scanRequestRow(rows, &rec); err != nil {
			return nil, err
		}
		requests = append(requests, rec)
	}
	return requests, rows.Err()
}

// WithdrawalRequestStats aggregates request counts and amounts per status,
// optionally scoped to one bank.
func (s *Store) WithdrawalRequestStats(ctx context.Context, bankID *string) (map[string]StatusStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, requestStatsSQL, bankID)
	if queryErr != nil {
		return nil, fmt.Errorf("withdrawal request stats: %w", queryErr)
	}
	defer rows.Close()

	stats := make(map[string]StatusStat)
	for rows.Next() {
		var status string
		var stat StatusStat
		if err := rows.Scan(&status, &stat.Count, &stat.TotalAmount); err != nil {
			return nil, err
		}
		stats[status] = stat
	}
	return stats, rows.Err()
}

// GetCompletionByRequestID fetches one completion event, or nil when absent.
func (s *Store) GetCompletionByRequestID(ctx context.Context, requestID string) (*WithdrawalCompletedRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var rec WithdrawalCompletedRecord
	row := pool.QueryRow(ctx, getCompletionByIDSQL, requestID)
	if err := scanCompletionRow(row, &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get completion event: %w", err)
	}
	return &rec, nil
}

// ListCompletionsByBank lists completions for one bank, newest first.
func (s *Store) ListCompletionsByBank(ctx context.Context, bankID string, limit, offset int) ([]WithdrawalCompletedRecord, error) {
	return s.listCompletions(ctx, listCompletionsByBankSQL, bankID, limit, offset)
}

// ListCompletionsByWithdrawer lists completions by one withdrawer.
func (s *Store) ListCompletionsByWithdrawer(ctx context.Context, withdrawer string, limit, offset int) ([]WithdrawalCompletedRecord, error) {
	return s.listCompletions(ctx, listCompletionsByWithdrawerSQL, withdrawer, limit, offset)
}

func (s *Store) listCompletions(ctx context.Context, sql, key string, limit, offset int) ([]WithdrawalCompletedRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, sql, key, normalizeLimit(limit), normalizeOffset(offset))
	if queryErr != nil {
		return nil, fmt.Errorf("list completion events: %w", queryErr)
	}
	defer rows.Close()

	completions := make([]WithdrawalCompletedRecord, 0)
	for rows.Next() {
		var rec WithdrawalCompletedRecord
		if err := scanCompletionRow(rows, &rec); err != nil {
			return nil, err
		}
		completions = append(completions, rec)
	}
	return completions, rows.Err()
}

// CompletionStats aggregates completed withdrawals, optionally for one bank.
func (s *Store) CompletionStats(ctx context.Context, bankID *string) (*CompletionStats, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var stats CompletionStats
	var avg decimal.Decimal
	row := pool.QueryRow(ctx, completionStatsSQL, bankID)
	if err := row.Scan(&stats.TotalCount, &stats.TotalAmount, &avg); err != nil {
		return nil, fmt.Errorf("completion stats: %w", err)
	}
	stats.AverageAmount = avg
	return &stats, nil
}

// RecalculateBankBalance rebuilds a bank's projected balance from its event
// history: initial balance plus deposits minus completed withdrawals.
func (s *Store) RecalculateBankBalance(ctx context.Context, bankID string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var balance int64
	if err := pool.QueryRow(ctx, recalculateBalanceSQL, bankID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("recalculate balance for %s: %w", bankID, ErrBankNotFound)
		}
		return 0, fmt.Errorf("recalculate balance: %w", err)
	}
	return balance, nil
}

func scanRequestRow(row pgx.Row, rec *WithdrawalRequestRecord) error {
	return row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.BankID,
		&rec.Amount,
		&rec.Requester,
		&rec.Reason,
		&rec.Status,
		&rec.ApprovedBy,
		&rec.CreatedAtMs,
		&rec.AuditAtMs,
		&rec.IndexedAt,
	)
}

func scanCompletionRow(row pgx.Row, rec *WithdrawalCompletedRecord) error {
	return row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.BankID,
		&rec.Amount,
		&rec.LeftBalance,
		&rec.Withdrawer,
		&rec.CreatedAtMs,
		&rec.CreatedAt,
	)
}

var _ QueryStore = (*Store)(nil)
