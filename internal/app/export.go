package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"piggyvault-indexer/internal/storage"
)

// balancePoint is one step of a bank's reconstructed balance timeline.
type balancePoint struct {
	At      time.Time
	Kind    string
	Amount  int64
	Balance int64
}

// Export renders a bank's balance history as CSV and/or PNG. The timeline
// is reconstructed by replaying deposits and completed withdrawals over the
// bank's initial balance.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.BankID == "" {
		return errors.New("--bank is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	bank, err := store.GetBank(ctx, opts.BankID)
	if err != nil {
		return err
	}
	if bank == nil {
		return fmt.Errorf("bank %s not found", opts.BankID)
	}

	points, err := a.buildTimeline(ctx, store, bank, opts.MaxPoints)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Str("bank_id", opts.BankID).Msg("no events found for export")
		return nil
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(points)).Int("exported", len(downsampled)).Msg("exporting balance history")

	if opts.CSVPath != "" {
		if err := writeTimelineCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeTimelinePNG(opts.PNGPath, bank.Name, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) buildTimeline(ctx context.Context, store *storage.Store, bank *storage.BankRecord, maxPoints int) ([]balancePoint, error) {
	deposits, err := store.ListDepositsByBank(ctx, bank.BankID, maxPoints, 0)
	if err != nil {
		return nil, err
	}
	completions, err := store.ListCompletionsByBank(ctx, bank.BankID, maxPoints, 0)
	if err != nil {
		return nil, err
	}

	points := make([]balancePoint, 0, len(deposits)+len(completions)+1)
	points = append(points, balancePoint{
		At:      time.UnixMilli(bank.CreatedAtMs).UTC(),
		Kind:    "created",
		Balance: bank.InitialBalance,
	})
	for _, d := range deposits {
		points = append(points, balancePoint{
			At:     time.UnixMilli(d.CreatedAtMs).UTC(),
			Kind:   "deposit",
			Amount: d.Amount,
		})
	}
	for _, c := range completions {
		points = append(points, balancePoint{
			At:     time.UnixMilli(c.CreatedAtMs).UTC(),
			Kind:   "withdrawal",
			Amount: -c.Amount,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })

	balance := bank.InitialBalance
	for i := range points {
		if points[i].Kind != "created" {
			balance += points[i].Amount
			points[i].Balance = balance
		}
	}
	return points, nil
}

func downsamplePoints(points []balancePoint, max int) []balancePoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]balancePoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeTimelineCSV(path string, points []balancePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "kind", "amount", "balance"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.At.Format(time.RFC3339),
			point.Kind,
			fmt.Sprintf("%d", point.Amount),
			fmt.Sprintf("%d", point.Balance),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeTimelinePNG(path, bankName string, points []balancePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	balance := make([]float64, len(points))
	for i, point := range points {
		x[i] = point.At
		balance[i] = float64(point.Balance)
	}

	graph := chart.Chart{
		Title:  bankName,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Balance (lamports)",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Balance",
				XValues: x,
				YValues: balance,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
