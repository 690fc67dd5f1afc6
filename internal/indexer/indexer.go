package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"piggyvault-indexer/internal/alerting"
	"piggyvault-indexer/internal/events"
	"piggyvault-indexer/internal/fetcher"
	"piggyvault-indexer/internal/storage"
)

// Indexer drives one ingestion pipeline: per category it loads the durable
// cursor, fetches the signature window past it, scans transaction logs for
// event payloads, decodes them and reconciles the results into storage.
type Indexer struct {
	fetcher        fetcher.SignatureWindowFetcher
	cursors        storage.CursorStore
	events         storage.EventStore
	notifier       alerting.Notifier
	logger         zerolog.Logger
	advanceOnError bool
}

// Options configures an Indexer.
type Options struct {
	// AdvanceOnError keeps the cursor moving past signatures whose
	// processing failed, trading replay for forward progress. When false
	// a failed signature blocks the cursor and is retried next cycle.
	AdvanceOnError bool

	// Notifier, when set, is pinged for every freshly ingested
	// withdrawal request. Delivery is best effort.
	Notifier alerting.Notifier
}

// New creates an Indexer over the given fetcher and stores.
func New(f fetcher.SignatureWindowFetcher, cursors storage.CursorStore, eventStore storage.EventStore, opts Options, logger zerolog.Logger) *Indexer {
	return &Indexer{
		fetcher:        f,
		cursors:        cursors,
		events:         eventStore,
		notifier:       opts.Notifier,
		logger:         logger.With().Str("component", "indexer").Logger(),
		advanceOnError: opts.AdvanceOnError,
	}
}

// RunCycle processes every category once and returns the number of events
// applied. A failing category does not stop the others; their errors are
// joined into the returned error.
func (ix *Indexer) RunCycle(ctx context.Context) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, category := range events.Categories() {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		processed, err := ix.processCategory(ctx, category)
		total += processed
		if err != nil {
			ix.logger.Error().Err(err).Str("category", string(category)).Msg("category cycle failed")
			errs = append(errs, fmt.Errorf("%s: %w", category, err))
		}
	}
	return total, errors.Join(errs...)
}

// processCategory runs one category through the pipeline. Signatures are
// applied oldest first; the cursor advances to the newest signature that was
// fully handled, even when it yielded no events.
func (ix *Indexer) processCategory(ctx context.Context, category events.Category) (int, error) {
	cursor, err := ix.cursors.GetCursor(ctx, string(category))
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}

	var since *string
	if cursor != nil {
		since = cursor.LastProcessedSignature
	}

	window, err := ix.fetcher.FetchSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("fetch signatures: %w", err)
	}
	if len(window) == 0 {
		return 0, nil
	}

	var (
		processed int
		lastSig   string
		lastSlot  int64
	)

	// The window arrives newest first; replay it in ledger order.
	for i := len(window) - 1; i >= 0; i-- {
		info := window[i]

		logs, err := ix.fetcher.TransactionLogs(ctx, info.Signature)
		if err != nil {
			ix.logger.Warn().Err(err).
				Str("category", string(category)).
				Str("signature", info.Signature.String()).
				Msg("transaction fetch failed")
			if !ix.advanceOnError {
				break
			}
			continue
		}

		applied, err := ix.processTransaction(ctx, category, logs)
		processed += applied
		if err != nil {
			ix.logger.Error().Err(err).
				Str("category", string(category)).
				Str("signature", info.Signature.String()).
				Msg("event reconciliation failed")
			if !ix.advanceOnError {
				break
			}
		}

		lastSig = info.Signature.String()
		lastSlot = int64(info.Slot)
	}

	if lastSig != "" {
		if err := ix.cursors.AdvanceCursor(ctx, string(category), lastSig, lastSlot, int64(processed)); err != nil {
			return processed, fmt.Errorf("advance cursor: %w", err)
		}
		ix.logger.Debug().
			Str("category", string(category)).
			Str("signature", lastSig).
			Int("events", processed).
			Msg("cursor advanced")
	}
	return processed, nil
}

// processTransaction scans one transaction's logs for the category's
// payloads and applies every event that decodes. Payloads that fail to
// decode are dropped; a storage failure stops the transaction and is
// reported to the caller.
func (ix *Indexer) processTransaction(ctx context.Context, category events.Category, logs []string) (int, error) {
	applied := 0
	for _, payload := range events.ScanLogs(logs, category) {
		ev, err := events.Decode(payload, category)
		if err != nil {
			ix.logger.Warn().Err(err).
				Str("category", string(category)).
				Msg("dropping undecodable payload")
			continue
		}

		if err := ix.apply(ctx, ev); err != nil {
			if errors.Is(err, storage.ErrBankNotFound) || errors.Is(err, storage.ErrRequestNotFound) {
				// The referenced row never arrived, which retrying the
				// same signature cannot fix. Log and move on.
				ix.logger.Warn().Err(err).
					Str("category", string(category)).
					Msg("event references unknown row")
				continue
			}
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (ix *Indexer) apply(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.BankCreated:
		return ix.events.ApplyBankCreated(ctx, storage.NewBankEvent{
			BankID:         e.BankID.String(),
			Name:           e.Name,
			ParentAddress:  e.Parent.String(),
			ChildAddress:   e.Child.String(),
			TargetAmount:   int64(e.TargetAmount),
			CreatedAtMs:    int64(e.CreatedAtMs),
			DeadlineMs:     int64(e.DeadlineMs),
			DurationDays:   int64(e.DurationDays),
			CurrentBalance: int64(e.CurrentBalance),
		})
	case *events.DepositMade:
		return ix.events.ApplyDeposit(ctx, storage.NewDepositEvent{
			BankID:      e.BankID.String(),
			Amount:      int64(e.Amount),
			Depositor:   e.Depositor.String(),
			CreatedAtMs: int64(e.CreatedAtMs),
		})
	case *events.WithdrawalRequested:
		req := storage.NewWithdrawalRequestEvent{
			RequestID:   e.RequestID.String(),
			BankID:      e.BankID.String(),
			Amount:      int64(e.Amount),
			Requester:   e.Requester.String(),
			Reason:      e.Reason,
			Status:      events.StatusFromCode(e.Status),
			CreatedAtMs: int64(e.CreatedAtMs),
		}
		if !e.ApprovedBy.IsZero() {
			approver := e.ApprovedBy.String()
			req.ApprovedBy = &approver
		}
		if err := ix.events.ApplyWithdrawalRequested(ctx, req); err != nil {
			return err
		}
		ix.notifyRequest(ctx, req)
		return nil
	case *events.WithdrawalApproved:
		return ix.events.ApplyWithdrawalAudit(ctx, e.RequestID.String(), storage.StatusApproved, e.ApprovedBy.String(), int64(e.CreatedAtMs))
	case *events.WithdrawalRejected:
		return ix.events.ApplyWithdrawalAudit(ctx, e.RequestID.String(), storage.StatusRejected, e.RejectedBy.String(), int64(e.CreatedAtMs))
	case *events.WithdrawalCompleted:
		return ix.events.ApplyWithdrawalCompleted(ctx, storage.NewWithdrawalCompletedEvent{
			RequestID:   e.RequestID.String(),
			BankID:      e.BankID.String(),
			Amount:      int64(e.Amount),
			Withdrawer:  e.Requester.String(),
			CreatedAtMs: int64(e.CreatedAtMs),
		})
	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}
}

// notifyRequest pushes a withdrawal request notification. Failures are
// logged and never block ingestion.
func (ix *Indexer) notifyRequest(ctx context.Context, req storage.NewWithdrawalRequestEvent) {
	if ix.notifier == nil {
		return
	}

	note := alerting.Notification{
		RequestID:   req.RequestID,
		BankID:      req.BankID,
		Amount:      req.Amount,
		Requester:   req.Requester,
		Reason:      req.Reason,
		RequestedAt: time.UnixMilli(req.CreatedAtMs),
	}
	if err := ix.notifier.Notify(ctx, note); err != nil {
		ix.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("notification delivery failed")
	}
}
