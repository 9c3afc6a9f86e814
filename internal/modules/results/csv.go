package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradelab/breakaway/internal/modules/params"
)

// metricColumns are the fixed leading columns of a results CSV; the
// remaining columns are parameter names.
var metricColumns = []string{
	"pnl", "trades", "invested_capital", "roi", "win_rate",
	"daily_pnl_std", "max_drawdown", "positive_days", "negative_days",
}

// columnAliases maps legacy column names onto the current ones so old
// result files keep importing.
var columnAliases = map[string]string{
	"nb_trades": "trades",
	"drawdown":  "max_drawdown",
}

// ImportReport summarizes a CSV import: rows imported and rows skipped
// because they were malformed.
type ImportReport struct {
	Imported int
	Skipped  int
}

// ImportCSV loads trials from a results CSV into the repository.
// Malformed rows are skipped with a warning; only a missing or
// unreadable file is an error.
func ImportCSV(path string, space *params.Space, repo *Repository, logger zerolog.Logger) (ImportReport, error) {
	log := logger.With().Str("component", "results").Str("file", path).Logger()

	f, err := os.Open(path)
	if err != nil {
		return ImportReport{}, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // row width is validated per row

	header, err := reader.Read()
	if err != nil {
		return ImportReport{}, fmt.Errorf("failed to read results header: %w", err)
	}
	for i, col := range header {
		if canonical, ok := columnAliases[col]; ok {
			header[i] = canonical
		}
	}

	var report ImportReport
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("unreadable row, skipping")
			report.Skipped++
			continue
		}

		if len(record) != len(header) {
			log.Warn().Int("line", line).Msg("row width mismatch, skipping")
			report.Skipped++
			continue
		}

		trial, err := trialFromRow(header, record, space)
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("malformed row, skipping")
			report.Skipped++
			continue
		}

		if err := repo.Save(trial); err != nil {
			return report, err
		}
		report.Imported++
	}

	log.Info().Int("imported", report.Imported).Int("skipped", report.Skipped).Msg("results imported")
	return report, nil
}

func trialFromRow(header, record []string, space *params.Space) (*Trial, error) {
	metrics := make(map[string]string)
	form := make(map[string]string)

	metricSet := make(map[string]bool, len(metricColumns))
	for _, c := range metricColumns {
		metricSet[c] = true
	}

	// Columns that are neither known metrics nor space parameters are
	// ignored, so files carrying extra metrics still import.
	for i, col := range header {
		if metricSet[col] {
			metrics[col] = record[i]
		} else if _, ok := space.Get(col); ok {
			form[col] = record[i]
		}
	}

	pnlStr, ok := metrics["pnl"]
	if !ok {
		return nil, fmt.Errorf("missing pnl column")
	}
	pnl, err := strconv.ParseFloat(pnlStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid pnl %q", pnlStr)
	}

	cfg, err := params.ConfigFromFileForm(space, form)
	if err != nil {
		return nil, err
	}
	if err := space.Validate(cfg); err != nil {
		return nil, err
	}

	trial := &Trial{
		ConfigKey: cfg.Key(space),
		Config:    cfg,
		PnL:       pnl,
		CreatedAt: time.Now().UTC(),
	}

	// Optional metric columns default to zero for older files.
	trial.Invested = floatMetric(metrics, "invested_capital")
	trial.ROI = floatMetric(metrics, "roi")
	trial.Trades = intMetric(metrics, "trades")
	trial.WinRate = floatMetric(metrics, "win_rate")
	trial.DailyPnLStd = floatMetric(metrics, "daily_pnl_std")
	trial.MaxDrawdown = floatMetric(metrics, "max_drawdown")
	trial.PositiveDays = intMetric(metrics, "positive_days")
	trial.NegativeDays = intMetric(metrics, "negative_days")

	return trial, nil
}

func floatMetric(metrics map[string]string, name string) float64 {
	v, err := strconv.ParseFloat(metrics[name], 64)
	if err != nil {
		return 0
	}
	return v
}

func intMetric(metrics map[string]string, name string) int {
	v, err := strconv.ParseFloat(metrics[name], 64)
	if err != nil {
		return 0
	}
	return int(v)
}

// ExportCSV writes trials to a results CSV file.
func ExportCSV(path string, trials []Trial, space *params.Space) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, trials, space)
}

// WriteCSV streams trials as CSV: metric columns first, then the
// space's parameters in name order.
func WriteCSV(w io.Writer, trials []Trial, space *params.Space) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	paramNames := space.Names()
	header := append(append([]string{}, metricColumns...), paramNames...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}

	for _, trial := range trials {
		form := trial.Config.FileForm(space)
		row := []string{
			formatFloat(trial.PnL),
			strconv.Itoa(trial.Trades),
			formatFloat(trial.Invested),
			formatFloat(trial.ROI),
			formatFloat(trial.WinRate),
			formatFloat(trial.DailyPnLStd),
			formatFloat(trial.MaxDrawdown),
			strconv.Itoa(trial.PositiveDays),
			strconv.Itoa(trial.NegativeDays),
		}
		for _, name := range paramNames {
			row = append(row, form[name])
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write results row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
