// Package worker runs the background cheque-dueness scan.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"khata/internal/core"
	"khata/internal/services"
)

// ChequeWorker periodically scans pending cheques and marks those whose due
// date has arrived, publishing a cheque.due event for each.
type ChequeWorker struct {
	ledger       *services.LedgerService
	scanInterval time.Duration
	now          func() time.Time
}

func NewChequeWorker(ledger *services.LedgerService, scanInterval time.Duration) *ChequeWorker {
	return &ChequeWorker{
		ledger:       ledger,
		scanInterval: scanInterval,
		now:          time.Now,
	}
}

// Run scans once at startup and then on every tick until the context is
// cancelled.
func (w *ChequeWorker) Run(ctx context.Context) error {
	if _, err := w.ScanOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup cheque scan failed", "error", err)
	}

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping cheque worker", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ScanOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Cheque scan failed", "error", err)
			}
		}
	}
}

// ScanOnce transitions every pending cheque whose due date is today or
// earlier, returning how many were marked due. A failed transition (e.g. a
// concurrent clear) skips the cheque and continues.
func (w *ChequeWorker) ScanOnce(ctx context.Context) (int, error) {
	pending, err := w.ledger.ListCheques(ctx, core.ChequePending)
	if err != nil {
		return 0, fmt.Errorf("list pending cheques: %w", err)
	}

	today := w.today()
	marked := 0
	for _, c := range pending {
		if c.DueDate.After(today) {
			continue
		}
		if err := w.ledger.MarkChequeDue(ctx, c.ID); err != nil {
			slog.WarnContext(ctx, "Could not mark cheque due",
				"cheque_id", c.ID, "error", err)
			continue
		}
		marked++
	}

	if marked > 0 {
		slog.InfoContext(ctx, "Marked cheques due", "count", marked)
	}
	return marked, nil
}

func (w *ChequeWorker) today() time.Time {
	y, m, d := w.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
