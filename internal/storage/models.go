package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal request lifecycle states as persisted in the projection.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// Cursor is the durable bookmark recording how far a category's ingestion
// has progressed.
type Cursor struct {
	ID                     string
	LastProcessedSignature *string
	LastProcessedSlot      *int64
	TotalEventsProcessed   int64
	LastPollTime           *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// BankRecord is the bank-created event row. current_balance doubles as the
// derived aggregate: seeded from initial_balance, incremented by deposits,
// written down by completed withdrawals.
type BankRecord struct {
	ID             uuid.UUID
	BankID         string
	Name           string
	ParentAddress  string
	ChildAddress   string
	TargetAmount   int64
	CreatedAtMs    int64
	DeadlineMs     int64
	DurationDays   int64
	InitialBalance int64
	CurrentBalance int64
	CreatedAt      time.Time
}

// NewBankEvent carries a decoded BankCreated event into the projection.
type NewBankEvent struct {
	BankID         string
	Name           string
	ParentAddress  string
	ChildAddress   string
	TargetAmount   int64
	CreatedAtMs    int64
	DeadlineMs     int64
	DurationDays   int64
	CurrentBalance int64
}

// DepositRecord is one applied deposit event.
type DepositRecord struct {
	ID          uuid.UUID
	BankID      string
	Amount      int64
	Depositor   string
	CreatedAtMs int64
	CreatedAt   time.Time
}

// NewDepositEvent carries a decoded DepositMade event into the projection.
type NewDepositEvent struct {
	BankID      string
	Amount      int64
	Depositor   string
	CreatedAtMs int64
}

// WithdrawalRequestRecord tracks one withdrawal request and its lifecycle.
type WithdrawalRequestRecord struct {
	ID          int64
	RequestID   string
	BankID      string
	Amount      int64
	Requester   string
	Reason      string
	Status      string
	ApprovedBy  *string
	CreatedAtMs int64
	AuditAtMs   *int64
	IndexedAt   time.Time
}

// NewWithdrawalRequestEvent carries a decoded WithdrawalRequested event.
type NewWithdrawalRequestEvent struct {
	RequestID   string
	BankID      string
	Amount      int64
	Requester   string
	Reason      string
	Status      string
	ApprovedBy  *string
	CreatedAtMs int64
}

// WithdrawalCompletedRecord is one applied completion event. LeftBalance is
// the bank balance after the withdrawal as recorded at apply time.
type WithdrawalCompletedRecord struct {
	ID          uuid.UUID
	RequestID   string
	BankID      string
	Amount      int64
	LeftBalance int64
	Withdrawer  string
	CreatedAtMs int64
	CreatedAt   time.Time
}

// NewWithdrawalCompletedEvent carries a decoded WithdrawalCompleted event.
// LeftBalance is nil when the wire payload does not state the
// post-withdrawal balance; the reconciler then derives it by decrementing
// the aggregate.
type NewWithdrawalCompletedEvent struct {
	RequestID   string
	BankID      string
	Amount      int64
	LeftBalance *int64
	Withdrawer  string
	CreatedAtMs int64
}

// StatusStat aggregates withdrawal requests for one status.
type StatusStat struct {
	Count       int64 `json:"count"`
	TotalAmount int64 `json:"total_amount"`
}

// CompletionStats aggregates completed withdrawals. AverageAmount keeps the
// arbitrary precision Postgres reports for AVG over bigint.
type CompletionStats struct {
	TotalCount    int64           `json:"total_count"`
	TotalAmount   int64           `json:"total_amount"`
	AverageAmount decimal.Decimal `json:"average_amount"`
}
