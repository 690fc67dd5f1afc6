package app

import (
	"context"
	"fmt"
)

// Repair rebuilds projected bank balances from the stored event history.
// With a bank id it repairs just that bank; otherwise every known bank.
func (a *App) Repair(ctx context.Context, opts RepairOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	bankIDs := []string{opts.BankID}
	if opts.BankID == "" {
		bankIDs, err = store.ListBankIDs(ctx)
		if err != nil {
			return err
		}
		if len(bankIDs) == 0 {
			a.Logger.Info().Msg("no banks to repair")
			return nil
		}
	}

	failed := 0
	for _, bankID := range bankIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		balance, err := store.RecalculateBankBalance(ctx, bankID)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("bank_id", bankID).Msg("balance repair failed")
			continue
		}
		a.Logger.Info().Str("bank_id", bankID).Int64("balance", balance).Msg("balance recalculated")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d banks failed to repair", failed, len(bankIDs))
	}
	return nil
}
