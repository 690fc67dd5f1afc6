package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Status prints the ingestion cursors, one row per event category.
func (a *App) Status(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cursors, err := store.ListCursors(ctx)
	if err != nil {
		return err
	}
	if len(cursors) == 0 {
		fmt.Fprintln(os.Stdout, "no cursors found; ingestion has not run yet")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Category\tLast Signature\tSlot\tEvents\tLast Poll (UTC)")

	for _, cursor := range cursors {
		signature := "-"
		if cursor.LastProcessedSignature != nil {
			signature = truncateSignature(*cursor.LastProcessedSignature)
		}
		slot := "-"
		if cursor.LastProcessedSlot != nil {
			slot = fmt.Sprintf("%d", *cursor.LastProcessedSlot)
		}
		lastPoll := "-"
		if cursor.LastPollTime != nil {
			lastPoll = cursor.LastPollTime.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\n", cursor.ID, signature, slot, cursor.TotalEventsProcessed, lastPoll)
	}

	return writer.Flush()
}

func truncateSignature(sig string) string {
	if len(sig) <= 16 {
		return sig
	}
	return sig[:8] + ".." + sig[len(sig)-8:]
}
