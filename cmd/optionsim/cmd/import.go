package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/optionsim/internal/marketdata"
	"github.com/eddiefleurent/optionsim/internal/models"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import daily bars from CSV into the SQLite store",
	Long: `Import reads a CSV of daily bars (date,open,high,low,close,volume with a
header row, dates as YYYY-MM-DD) and writes them into the SQLite store used
by the sqlite data source.

Example:
  optionsim import --csv data/nifty.csv --db data/bars.db --symbol NIFTY`,
	RunE: runImport,
}

var (
	importCSV    string
	importDB     string
	importSymbol string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importCSV, "csv", "", "path to the bar CSV (required)")
	importCmd.Flags().StringVar(&importDB, "db", "bars.db", "path to the SQLite store")
	importCmd.Flags().StringVar(&importSymbol, "symbol", "", "symbol to store the bars under (required)")
	_ = importCmd.MarkFlagRequired("csv")
	_ = importCmd.MarkFlagRequired("symbol")
}

func runImport(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(importCSV) // #nosec G304 -- user-provided input file
	if err != nil {
		return err
	}
	defer f.Close()

	bars, err := readBarCSV(f)
	if err != nil {
		return err
	}
	if err := models.ValidateSeries(bars); err != nil {
		return fmt.Errorf("csv series invalid: %w", err)
	}

	provider, err := marketdata.NewSQLiteProvider(importDB)
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := provider.InsertBars(cmd.Context(), importSymbol, bars); err != nil {
		return err
	}
	fmt.Printf("imported %d bars for %s into %s\n", len(bars), importSymbol, importDB)
	return nil
}

// readBarCSV parses date,open,high,low,close,volume rows. The first row is
// assumed to be a header and skipped.
func readBarCSV(r io.Reader) ([]models.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6

	var bars []models.Bar
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 {
			continue // header
		}

		date, err := time.ParseInLocation("2006-01-02", record[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q: %w", line, record[0], err)
		}
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number %q: %w", line, record[i+1], err)
			}
			vals[i] = v
		}
		volume, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad volume %q: %w", line, record[5], err)
		}

		bars = append(bars, models.Bar{
			Date:   date,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: volume,
		})
	}
	return bars, nil
}
