package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
)

// ---------------------------------------------------------------------------
// CSV Ingestion — row-by-row validation of the transaction ledger
// The core only ever sees batches that validated cleanly.
// ---------------------------------------------------------------------------

// MaxRowErrors bounds how many row errors are collected before aborting.
const MaxRowErrors = 50

// ErrTooManyRowErrors is returned once MaxRowErrors rows have failed.
var ErrTooManyRowErrors = errors.New("ingest: too many row errors")

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("ingest: missing required columns")

var requiredColumns = []string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}

const timestampLayout = "2006-01-02 15:04:05"

// RowError describes one rejected row. Row is 1-based and counts the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParseCSV reads and validates a transaction ledger. It returns the parsed
// transactions together with every row error found; a batch with any row
// errors must be rejected by the caller. The returned error is non-nil only
// for structural failures (unreadable input, missing header columns, or the
// row-error cap being hit).
func ParseCSV(r io.Reader) ([]graph.Transaction, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // column counts are checked per row below

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("ingest: empty input, header row required")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var (
		txs    []graph.Transaction
		rowErr []RowError
		row    = 1 // header consumed
	)
	addErr := func(msg string) bool {
		rowErr = append(rowErr, RowError{Row: row, Message: msg})
		return len(rowErr) >= MaxRowErrors
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if addErr(fmt.Sprintf("malformed row: %v", parseErr.Err)) {
					return nil, rowErr, ErrTooManyRowErrors
				}
				continue
			}
			return nil, rowErr, fmt.Errorf("ingest: read row %d: %w", row, err)
		}
		if len(record) != len(header) {
			if addErr(fmt.Sprintf("expected %d columns, got %d", len(header), len(record))) {
				return nil, rowErr, ErrTooManyRowErrors
			}
			continue
		}

		tx, msg := parseRow(record, index)
		if msg != "" {
			if addErr(msg) {
				return nil, rowErr, ErrTooManyRowErrors
			}
			continue
		}
		txs = append(txs, tx)
	}

	if len(rowErr) > 0 {
		log.Warn().Int("rows", row-1).Int("errors", len(rowErr)).Msg("ingest: batch has invalid rows")
	} else {
		log.Debug().Int("transactions", len(txs)).Msg("ingest: batch parsed")
	}
	return txs, rowErr, nil
}

func parseRow(record []string, index map[string]int) (graph.Transaction, string) {
	id := strings.TrimSpace(record[index["transaction_id"]])
	sender := strings.TrimSpace(record[index["sender_id"]])
	receiver := strings.TrimSpace(record[index["receiver_id"]])
	rawAmount := strings.TrimSpace(record[index["amount"]])
	rawTS := strings.TrimSpace(record[index["timestamp"]])

	if id == "" {
		return graph.Transaction{}, "empty transaction_id"
	}
	if sender == "" {
		return graph.Transaction{}, "empty sender_id"
	}
	if receiver == "" {
		return graph.Transaction{}, "empty receiver_id"
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return graph.Transaction{}, fmt.Sprintf("unparsable amount %q", rawAmount)
	}
	if amount.IsNegative() {
		return graph.Transaction{}, fmt.Sprintf("negative amount %s", amount)
	}

	ts, err := parseTimestamp(rawTS)
	if err != nil {
		return graph.Transaction{}, fmt.Sprintf("unparsable timestamp %q", rawTS)
	}

	return graph.Transaction{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount.InexactFloat64(),
		Timestamp: ts,
	}, ""
}

// parseTimestamp accepts "YYYY-MM-DD HH:MM:SS", tolerating a 1-digit hour,
// and resolves to unix milliseconds UTC.
func parseTimestamp(raw string) (int64, error) {
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) == 2 {
		clock := strings.SplitN(parts[1], ":", 2)
		if len(clock) == 2 && len(clock[0]) == 1 {
			raw = parts[0] + " 0" + parts[1]
		}
	}
	t, err := time.ParseInLocation(timestampLayout, raw, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
