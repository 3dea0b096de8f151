package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurewise/econengine/procure"
	"github.com/procurewise/econengine/timeseries"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// loadPanel reads a CSV whose first column is a timestamp and whose remaining
// columns are one price variable each, then aligns the variables into a
// panel. Blank cells are treated as gaps and forward-filled.
func loadPanel(path string) (*timeseries.Multivariate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: need a timestamp column and at least one variable", path)
	}
	k := len(header) - 1

	times := make([][]time.Time, k)
	values := make([][]float64, k)

	row := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		if len(record) == 1 && record[0] == "" {
			continue
		}
		if len(record) != k+1 {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", row, k+1, len(record))
		}
		ts, err := parseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		for j := 1; j <= k; j++ {
			if record[j] == "" {
				continue
			}
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %q: %w", row, header[j], err)
			}
			times[j-1] = append(times[j-1], ts)
			values[j-1] = append(values[j-1], v)
		}
	}

	series := make([]*timeseries.Series, k)
	for j := 0; j < k; j++ {
		s, err := timeseries.New(header[j+1], times[j], values[j])
		if err != nil {
			return nil, err
		}
		series[j] = s
	}
	return timeseries.Align(timeseries.GapForwardFill, series...)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// loadQuotes reads supplier quotes from a CSV with the columns
// supplier,unit_price,logistics_per_unit,payment_term_days.
func loadQuotes(path string) ([]procure.SupplierQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var quotes []procure.SupplierQuote
	row := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		if len(record) != 4 {
			return nil, fmt.Errorf("row %d: expected 4 columns, got %d", row, len(record))
		}
		price, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("row %d unit_price: %w", row, err)
		}
		logistics, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d logistics_per_unit: %w", row, err)
		}
		days, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, fmt.Errorf("row %d payment_term_days: %w", row, err)
		}
		quotes = append(quotes, procure.SupplierQuote{
			Supplier:         record[0],
			UnitPrice:        price,
			LogisticsPerUnit: logistics,
			PaymentTermDays:  days,
		})
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%s: no quotes", path)
	}
	return quotes, nil
}
