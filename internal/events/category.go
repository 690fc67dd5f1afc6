package events

// Category identifies one of the six domain event kinds emitted by the
// piggy vault program. Cursor rows are keyed by the category name, so the
// string values are part of the persisted schema and must stay stable.
type Category string

const (
	CategoryBankCreated         Category = "BankCreated"
	CategoryDepositMade         Category = "DepositMade"
	CategoryWithdrawalRequested Category = "WithdrawalRequested"
	CategoryWithdrawalApproved  Category = "WithdrawalApproved"
	CategoryWithdrawalRejected  Category = "WithdrawalRejected"
	CategoryWithdrawalCompleted Category = "WithdrawalCompleted"
)

// Categories returns all categories in processing order. BankCreated comes
// first so that within a single cycle the aggregate row exists before
// deposits and completions for a freshly created bank are applied.
func Categories() []Category {
	return []Category{
		CategoryBankCreated,
		CategoryDepositMade,
		CategoryWithdrawalRequested,
		CategoryWithdrawalApproved,
		CategoryWithdrawalRejected,
		CategoryWithdrawalCompleted,
	}
}

// markerPatterns lists the literal log substrings that identify a category.
// Both the instruction-name form ("Instruction: CreatePiggyBank") and the
// event-name form are accepted; older program builds logged slightly
// different event names, hence multiple patterns per category.
var markerPatterns = map[Category][]string{
	CategoryBankCreated:         {"Instruction: CreatePiggyBank", "PiggyBankCreated", "BankCreated"},
	CategoryDepositMade:         {"Instruction: Deposit", "DepositMade"},
	CategoryWithdrawalRequested: {"Instruction: RequestWithdrawal", "WithdrawalRequested"},
	CategoryWithdrawalApproved:  {"Instruction: ApproveWithdrawal", "WithdrawalApproved"},
	CategoryWithdrawalRejected:  {"Instruction: RejectWithdrawal", "WithdrawalRejected"},
	CategoryWithdrawalCompleted: {"Instruction: Withdraw", "WithdrawalCompleted"},
}
