package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestStore connects to the database named by PIGGYVAULT_TEST_DATABASE_DSN
// and ensures the schema exists. Tests are skipped when the variable is
// unset so the suite stays runnable without Postgres.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("PIGGYVAULT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("PIGGYVAULT_TEST_DATABASE_DSN not set; skipping database tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}

	store := NewStore(pool)
	t.Cleanup(store.Close)

	if err := store.RunMigrations(ctx, filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return store
}

func newBankEvent(balance int64) NewBankEvent {
	return NewBankEvent{
		BankID:         "bank-" + uuid.NewString(),
		Name:           "college fund",
		ParentAddress:  "parent-" + uuid.NewString(),
		ChildAddress:   "child-" + uuid.NewString(),
		TargetAmount:   1_000_000_000,
		CreatedAtMs:    1_700_000_000_000,
		DeadlineMs:     1_800_000_000_000,
		DurationDays:   365,
		CurrentBalance: balance,
	}
}

func countRows(t *testing.T, s *Store, sql string, args ...any) int64 {
	t.Helper()
	pool, err := s.getPool()
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	var count int64
	if err := pool.QueryRow(context.Background(), sql, args...).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func bankBalance(t *testing.T, s *Store, bankID string) int64 {
	t.Helper()
	bank, err := s.GetBank(context.Background(), bankID)
	if err != nil {
		t.Fatalf("GetBank: %v", err)
	}
	if bank == nil {
		t.Fatalf("bank %s not found", bankID)
	}
	return bank.CurrentBalance
}

func TestApplyBankCreatedReplayKeepsOneRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := newBankEvent(42)
	if err := store.ApplyBankCreated(ctx, ev); err != nil {
		t.Fatalf("ApplyBankCreated: %v", err)
	}

	replay := ev
	replay.Name = "someone else entirely"
	replay.CurrentBalance = 9999
	if err := store.ApplyBankCreated(ctx, replay); err != nil {
		t.Fatalf("ApplyBankCreated replay: %v", err)
	}

	rows := countRows(t, store, `SELECT COUNT(*) FROM bank_created_events WHERE bank_id = $1`, ev.BankID)
	if rows != 1 {
		t.Fatalf("bank rows = %d, want 1", rows)
	}

	bank, err := store.GetBank(ctx, ev.BankID)
	if err != nil {
		t.Fatalf("GetBank: %v", err)
	}
	if bank.Name != "college fund" || bank.CurrentBalance != 42 || bank.InitialBalance != 42 {
		t.Fatalf("replay overwrote first write: %+v", bank)
	}
}

func TestApplyDepositArithmeticAndReplay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bank := newBankEvent(0)
	if err := store.ApplyBankCreated(ctx, bank); err != nil {
		t.Fatalf("ApplyBankCreated: %v", err)
	}

	deposit := NewDepositEvent{
		BankID:      bank.BankID,
		Amount:      10_000_000,
		Depositor:   "depositor-" + uuid.NewString(),
		CreatedAtMs: 1_700_000_100_000,
	}
	if err := store.ApplyDeposit(ctx, deposit); err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}
	if got := bankBalance(t, store, bank.BankID); got != 10_000_000 {
		t.Fatalf("balance after deposit = %d, want 10000000", got)
	}

	// Replaying the identical event must not double-count.
	if err := store.ApplyDeposit(ctx, deposit); err != nil {
		t.Fatalf("ApplyDeposit replay: %v", err)
	}
	if got := bankBalance(t, store, bank.BankID); got != 10_000_000 {
		t.Fatalf("balance after replay = %d, want 10000000", got)
	}
	rows := countRows(t, store, `SELECT COUNT(*) FROM deposit_made_events WHERE bank_id = $1`, bank.BankID)
	if rows != 1 {
		t.Fatalf("deposit rows = %d, want 1", rows)
	}

	second := deposit
	second.Amount = 5_000_000
	second.CreatedAtMs = 1_700_000_200_000
	if err := store.ApplyDeposit(ctx, second); err != nil {
		t.Fatalf("ApplyDeposit second: %v", err)
	}
	if got := bankBalance(t, store, bank.BankID); got != 15_000_000 {
		t.Fatalf("balance after second deposit = %d, want 15000000", got)
	}
}

func TestApplyDepositUnknownBank(t *testing.T) {
	store := newTestStore(t)

	err := store.ApplyDeposit(context.Background(), NewDepositEvent{
		BankID:      "bank-" + uuid.NewString(),
		Amount:      100,
		Depositor:   "nobody",
		CreatedAtMs: 1,
	})
	if !errors.Is(err, ErrBankNotFound) {
		t.Fatalf("err = %v, want ErrBankNotFound", err)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bank := newBankEvent(50)
	if err := store.ApplyBankCreated(ctx, bank); err != nil {
		t.Fatalf("ApplyBankCreated: %v", err)
	}

	request := NewWithdrawalRequestEvent{
		RequestID:   "req-" + uuid.NewString(),
		BankID:      bank.BankID,
		Amount:      20,
		Requester:   "child-wallet",
		Reason:      "new bicycle",
		Status:      StatusPending,
		CreatedAtMs: 1_700_000_300_000,
	}
	if err := store.ApplyWithdrawalRequested(ctx, request); err != nil {
		t.Fatalf("ApplyWithdrawalRequested: %v", err)
	}
	if err := store.ApplyWithdrawalRequested(ctx, request); err != nil {
		t.Fatalf("ApplyWithdrawalRequested replay: %v", err)
	}
	rows := countRows(t, store, `SELECT COUNT(*) FROM withdrawal_requests WHERE request_id = $1`, request.RequestID)
	if rows != 1 {
		t.Fatalf("request rows = %d, want 1", rows)
	}

	if err := store.ApplyWithdrawalAudit(ctx, request.RequestID, StatusApproved, "parent-wallet", 1_700_000_400_000); err != nil {
		t.Fatalf("ApplyWithdrawalAudit: %v", err)
	}
	rec, err := store.GetWithdrawalRequestByID(ctx, request.RequestID)
	if err != nil {
		t.Fatalf("GetWithdrawalRequestByID: %v", err)
	}
	if rec.Status != StatusApproved || rec.ApprovedBy == nil || *rec.ApprovedBy != "parent-wallet" {
		t.Fatalf("audited request = %+v", rec)
	}

	completion := NewWithdrawalCompletedEvent{
		RequestID:   request.RequestID,
		BankID:      bank.BankID,
		Amount:      20,
		Withdrawer:  "child-wallet",
		CreatedAtMs: 1_700_000_500_000,
	}
	if err := store.ApplyWithdrawalCompleted(ctx, completion); err != nil {
		t.Fatalf("ApplyWithdrawalCompleted: %v", err)
	}
	if got := bankBalance(t, store, bank.BankID); got != 30 {
		t.Fatalf("balance after completion = %d, want 30", got)
	}

	completed, err := store.GetCompletionByRequestID(ctx, request.RequestID)
	if err != nil {
		t.Fatalf("GetCompletionByRequestID: %v", err)
	}
	if completed == nil || completed.LeftBalance != 30 {
		t.Fatalf("completion row = %+v, want left_balance 30", completed)
	}

	rec, err = store.GetWithdrawalRequestByID(ctx, request.RequestID)
	if err != nil {
		t.Fatalf("GetWithdrawalRequestByID: %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("request status = %q, want completed", rec.Status)
	}

	// Replay leaves the derived balance untouched.
	if err := store.ApplyWithdrawalCompleted(ctx, completion); err != nil {
		t.Fatalf("ApplyWithdrawalCompleted replay: %v", err)
	}
	if got := bankBalance(t, store, bank.BankID); got != 30 {
		t.Fatalf("balance after completion replay = %d, want 30", got)
	}
}

func TestApplyWithdrawalCompletedAuthoritativeBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bank := newBankEvent(100)
	if err := store.ApplyBankCreated(ctx, bank); err != nil {
		t.Fatalf("ApplyBankCreated: %v", err)
	}
	request := NewWithdrawalRequestEvent{
		RequestID:   "req-" + uuid.NewString(),
		BankID:      bank.BankID,
		Amount:      40,
		Requester:   "child-wallet",
		Status:      StatusPending,
		CreatedAtMs: 1,
	}
	if err := store.ApplyWithdrawalRequested(ctx, request); err != nil {
		t.Fatalf("ApplyWithdrawalRequested: %v", err)
	}

	authoritative := int64(57)
	if err := store.ApplyWithdrawalCompleted(ctx, NewWithdrawalCompletedEvent{
		RequestID:   request.RequestID,
		BankID:      bank.BankID,
		Amount:      40,
		LeftBalance: &authoritative,
		Withdrawer:  "child-wallet",
		CreatedAtMs: 2,
	}); err != nil {
		t.Fatalf("ApplyWithdrawalCompleted: %v", err)
	}

	if got := bankBalance(t, store, bank.BankID); got != 57 {
		t.Fatalf("balance = %d, want authoritative 57", got)
	}
}

func TestApplyWithdrawalAuditUnknownRequest(t *testing.T) {
	store := newTestStore(t)

	err := store.ApplyWithdrawalAudit(context.Background(), "req-"+uuid.NewString(), StatusRejected, "parent-wallet", 1)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}

func TestApplyWithdrawalCompletedUnknownRequest(t *testing.T) {
	store := newTestStore(t)

	err := store.ApplyWithdrawalCompleted(context.Background(), NewWithdrawalCompletedEvent{
		RequestID:   "req-" + uuid.NewString(),
		BankID:      "bank-" + uuid.NewString(),
		Amount:      5,
		Withdrawer:  "nobody",
		CreatedAtMs: 1,
	})
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}
