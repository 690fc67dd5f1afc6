package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"
)

// Options parameterise the ledger RPC fetcher.
type Options struct {
	RPCURL    string
	ProgramID string
	PageLimit int
	Timeout   time.Duration
}

// defaultRequestTimeout bounds a single RPC round trip when the caller does
// not configure one.
const defaultRequestTimeout = 30 * time.Second

// Ledger fetches signature windows and transaction logs over Solana RPC.
type Ledger struct {
	client  *rpc.Client
	program solana.PublicKey
	limit   int
	logger  zerolog.Logger
}

// NewLedger builds an RPC-backed fetcher. An unparsable program id is a
// startup failure; nothing should partially run with a bad address.
func NewLedger(opts Options, logger zerolog.Logger) (*Ledger, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("solana rpc url not configured")
	}

	program, err := solana.PublicKeyFromBase58(opts.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("parse program id %q: %w", opts.ProgramID, err)
	}

	limit := opts.PageLimit
	if limit <= 0 {
		limit = 100
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	rpcClient := jsonrpc.NewClientWithOpts(opts.RPCURL, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: timeout},
	})

	return &Ledger{
		client:  rpc.NewWithCustomRPCClient(rpcClient),
		program: program,
		limit:   limit,
		logger:  logger.With().Str("component", "ledger_fetcher").Logger(),
	}, nil
}

// FetchSince lists program signatures strictly newer than sinceSignature
// ("until" semantics: the cursor signature itself is excluded). A corrupted
// persisted signature falls back to an unbounded fetch instead of failing
// the cycle.
func (l *Ledger) FetchSince(ctx context.Context, sinceSignature *string) ([]SignatureInfo, error) {
	opts := rpc.GetSignaturesForAddressOpts{
		Limit:      &l.limit,
		Commitment: rpc.CommitmentConfirmed,
	}

	if sinceSignature != nil {
		until, err := solana.SignatureFromBase58(*sinceSignature)
		if err != nil {
			l.logger.Warn().
				Str("cursor_signature", *sinceSignature).
				Err(err).
				Msg("stored cursor signature is not a valid signature; fetching without lower bound")
		} else {
			opts.Until = until
		}
	}

	sigs, err := l.client.GetSignaturesForAddressWithOpts(ctx, l.program, &opts)
	if err != nil {
		return nil, fmt.Errorf("get signatures for program: %w", err)
	}

	window := make([]SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil {
			continue
		}
		window = append(window, SignatureInfo{Signature: sig.Signature, Slot: sig.Slot})
	}
	return window, nil
}

// TransactionLogs fetches one transaction and returns its log messages.
// Transactions without meta or without logs yield an empty slice.
func (l *Ledger) TransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error) {
	maxVersion := uint64(0)
	res, err := l.client.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSON,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if res == nil || res.Meta == nil {
		return nil, nil
	}
	return res.Meta.LogMessages, nil
}

var _ SignatureWindowFetcher = (*Ledger)(nil)
