package server

import (
	"time"

	"piggyvault-indexer/internal/storage"
)

type bankResponse struct {
	BankID         string    `json:"bank_id"`
	Name           string    `json:"name"`
	ParentAddress  string    `json:"parent_address"`
	ChildAddress   string    `json:"child_address"`
	TargetAmount   int64     `json:"target_amount"`
	CurrentBalance int64     `json:"current_balance"`
	CreatedAtMs    int64     `json:"created_at_ms"`
	DeadlineMs     int64     `json:"deadline_ms"`
	DurationDays   int64     `json:"duration_days"`
	IndexedAt      time.Time `json:"indexed_at"`
}

func bankResponseFrom(rec *storage.BankRecord) bankResponse {
	return bankResponse{
		BankID:         rec.BankID,
		Name:           rec.Name,
		ParentAddress:  rec.ParentAddress,
		ChildAddress:   rec.ChildAddress,
		TargetAmount:   rec.TargetAmount,
		CurrentBalance: rec.CurrentBalance,
		CreatedAtMs:    rec.CreatedAtMs,
		DeadlineMs:     rec.DeadlineMs,
		DurationDays:   rec.DurationDays,
		IndexedAt:      rec.CreatedAt,
	}
}

type depositResponse struct {
	BankID      string    `json:"bank_id"`
	Amount      int64     `json:"amount"`
	Depositor   string    `json:"depositor"`
	CreatedAtMs int64     `json:"created_at_ms"`
	IndexedAt   time.Time `json:"indexed_at"`
}

func depositResponseFrom(rec *storage.DepositRecord) depositResponse {
	return depositResponse{
		BankID:      rec.BankID,
		Amount:      rec.Amount,
		Depositor:   rec.Depositor,
		CreatedAtMs: rec.CreatedAtMs,
		IndexedAt:   rec.CreatedAt,
	}
}

type requestResponse struct {
	RequestID   string    `json:"request_id"`
	BankID      string    `json:"bank_id"`
	Amount      int64     `json:"amount"`
	Requester   string    `json:"requester"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"`
	ApprovedBy  *string   `json:"approved_by,omitempty"`
	CreatedAtMs int64     `json:"created_at_ms"`
	AuditAtMs   *int64    `json:"audit_at_ms,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

func requestResponseFrom(rec *storage.WithdrawalRequestRecord) requestResponse {
	return requestResponse{
		RequestID:   rec.RequestID,
		BankID:      rec.BankID,
		Amount:      rec.Amount,
		Requester:   rec.Requester,
		Reason:      rec.Reason,
		Status:      rec.Status,
		ApprovedBy:  rec.ApprovedBy,
		CreatedAtMs: rec.CreatedAtMs,
		AuditAtMs:   rec.AuditAtMs,
		IndexedAt:   rec.IndexedAt,
	}
}

type completionResponse struct {
	RequestID   string    `json:"request_id"`
	BankID      string    `json:"bank_id"`
	Amount      int64     `json:"amount"`
	LeftBalance int64     `json:"left_balance"`
	Withdrawer  string    `json:"withdrawer"`
	CreatedAtMs int64     `json:"created_at_ms"`
	IndexedAt   time.Time `json:"indexed_at"`
}

func completionResponseFrom(rec *storage.WithdrawalCompletedRecord) completionResponse {
	return completionResponse{
		RequestID:   rec.RequestID,
		BankID:      rec.BankID,
		Amount:      rec.Amount,
		LeftBalance: rec.LeftBalance,
		Withdrawer:  rec.Withdrawer,
		CreatedAtMs: rec.CreatedAtMs,
		IndexedAt:   rec.CreatedAt,
	}
}
