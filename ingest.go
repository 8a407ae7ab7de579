package tracker

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Progress is called after each processed item with the number of items done
// so far and the total. done never decreases.
type Progress func(done, total int)

// RowError is a batch row that could not be ingested.
type RowError struct {
	Line   int    // line number in the input, starting at 1
	Ticker string // empty when the row could not be parsed
	Err    error
}

func (e RowError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Ticker, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// BatchResult summarizes an import.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failures  []RowError
}

// Failed returns the number of rows that were not ingested.
func (r BatchResult) Failed() int { return r.Attempted - r.Succeeded }

// Lot is a parsed batch row, ready to be ingested.
type Lot struct {
	Ticker   string
	AvgPrice float64
	Quantity float64
}

// validate normalizes the lot and checks its values.
func (l *Lot) validate() error {
	l.Ticker = NormalizeTicker(l.Ticker)
	switch {
	case l.Ticker == "":
		return fmt.Errorf("%w: empty ticker", ErrInvalidInput)
	}
	if err := checkAmount("average price", l.AvgPrice); err != nil {
		return err
	}
	return checkAmount("quantity", l.Quantity)
}

// checkAmount rejects negative and non finite prices and quantities.
func checkAmount(name string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Errorf("%w: %s is not a number: %v", ErrInvalidInput, name, v)
	case v < 0:
		return fmt.Errorf("%w: negative %s %v", ErrInvalidInput, name, v)
	}
	return nil
}

// parseLot reads a "ticker,avgPrice,quantity" record.
func parseLot(record []string) (Lot, error) {
	if len(record) != 3 {
		return Lot{}, fmt.Errorf("%w: want 3 fields (ticker,avgPrice,quantity), got %d", ErrInvalidRow, len(record))
	}
	lot := Lot{Ticker: NormalizeTicker(record[0])}
	var err error
	if lot.AvgPrice, err = parseNumber(record[1]); err != nil {
		return lot, fmt.Errorf("%w: average price: %v", ErrInvalidRow, err)
	}
	if lot.Quantity, err = parseNumber(record[2]); err != nil {
		return lot, fmt.Errorf("%w: quantity: %v", ErrInvalidRow, err)
	}
	if err := lot.validate(); err != nil {
		return lot, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	return lot, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

// batchRow is one line of a batch: either a lot or the reason it is not one.
type batchRow struct {
	line int
	lot  Lot
	err  error
}

// readBatch parses a headerless CSV of lots. Blank lines are skipped and bad
// rows are kept with their error. Only a failing reader is an error.
func readBatch(r io.Reader) ([]batchRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var rows []batchRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rows = append(rows, batchRow{line: perr.Line, err: fmt.Errorf("%w: %v", ErrInvalidRow, perr.Err)})
			continue
		}
		if err != nil {
			return rows, fmt.Errorf("reading batch: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		line, _ := cr.FieldPos(0)
		lot, err := parseLot(record)
		rows = append(rows, batchRow{line: line, lot: lot, err: err})
	}
}
