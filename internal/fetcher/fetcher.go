package fetcher

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// SignatureInfo is one entry of a signature window: the ledger's unique
// transaction identifier plus its slot.
type SignatureInfo struct {
	Signature solana.Signature
	Slot      uint64
}

// SignatureWindowFetcher retrieves program activity from the ledger.
type SignatureWindowFetcher interface {
	// FetchSince returns signatures strictly newer than sinceSignature,
	// newest first, bounded by the configured page size. A nil or
	// unparsable sinceSignature yields the newest page without a lower
	// bound.
	FetchSince(ctx context.Context, sinceSignature *string) ([]SignatureInfo, error)

	// TransactionLogs returns the textual log output of one transaction.
	TransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error)
}
