package events

import (
	"github.com/gagliardetto/solana-go"
)

// Event is a decoded domain event extracted from a transaction log.
type Event interface {
	Category() Category
}

// Withdrawal request status codes as emitted on the wire.
const (
	StatusCodePending   uint8 = 0
	StatusCodeApproved  uint8 = 1
	StatusCodeRejected  uint8 = 2
	StatusCodeCompleted uint8 = 3
)

// StatusFromCode maps a wire status code to its projection string. Unknown
// codes fall back to pending, matching how the program initialises requests.
func StatusFromCode(code uint8) string {
	switch code {
	case StatusCodeApproved:
		return "approved"
	case StatusCodeRejected:
		return "rejected"
	case StatusCodeCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// BankCreated announces a new piggy bank account. CurrentBalance is the
// on-chain balance at creation time and seeds the projected aggregate.
type BankCreated struct {
	BankID         solana.PublicKey
	Name           string
	Parent         solana.PublicKey
	Child          solana.PublicKey
	TargetAmount   uint64
	CreatedAtMs    uint64
	DeadlineMs     uint64
	DurationDays   uint64
	CurrentBalance uint64
}

func (*BankCreated) Category() Category { return CategoryBankCreated }

// DepositMade records a deposit into an existing bank.
type DepositMade struct {
	BankID      solana.PublicKey
	Amount      uint64
	Depositor   solana.PublicKey
	CreatedAtMs uint64
}

func (*DepositMade) Category() Category { return CategoryDepositMade }

// WithdrawalRequested opens a withdrawal request pending parent approval.
type WithdrawalRequested struct {
	RequestID   solana.PublicKey
	BankID      solana.PublicKey
	Amount      uint64
	Requester   solana.PublicKey
	Reason      string
	Status      uint8
	ApprovedBy  solana.PublicKey
	CreatedAtMs uint64
}

func (*WithdrawalRequested) Category() Category { return CategoryWithdrawalRequested }

// WithdrawalApproved marks a pending request as approved.
type WithdrawalApproved struct {
	RequestID   solana.PublicKey
	BankID      solana.PublicKey
	Amount      uint64
	ApprovedBy  solana.PublicKey
	Requester   solana.PublicKey
	Reason      string
	CreatedAtMs uint64
}

func (*WithdrawalApproved) Category() Category { return CategoryWithdrawalApproved }

// WithdrawalRejected marks a pending request as rejected.
type WithdrawalRejected struct {
	RequestID   solana.PublicKey
	BankID      solana.PublicKey
	Amount      uint64
	RejectedBy  solana.PublicKey
	Requester   solana.PublicKey
	Reason      string
	CreatedAtMs uint64
}

func (*WithdrawalRejected) Category() Category { return CategoryWithdrawalRejected }

// WithdrawalCompleted records the funds actually leaving the bank. The wire
// payload does not carry the post-withdrawal balance; the reconciler derives
// it from the projected aggregate.
type WithdrawalCompleted struct {
	RequestID   solana.PublicKey
	BankID      solana.PublicKey
	Amount      uint64
	Requester   solana.PublicKey
	CreatedAtMs uint64
}

func (*WithdrawalCompleted) Category() Category { return CategoryWithdrawalCompleted }
