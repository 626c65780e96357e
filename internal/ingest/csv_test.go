package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "transaction_id,sender_id,receiver_id,amount,timestamp\n"

func TestParseCSV_ValidBatch(t *testing.T) {
	in := header +
		"TX001,ACC_A,ACC_B,5000.00,2024-01-01 10:00:00\n" +
		"TX002,ACC_B,ACC_C,4950.50,2024-01-01 11:30:00\n"

	txs, rowErrs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, txs, 2)

	assert.Equal(t, "TX001", txs[0].ID)
	assert.Equal(t, "ACC_A", txs[0].Sender)
	assert.Equal(t, "ACC_B", txs[0].Receiver)
	assert.Equal(t, 5000.00, txs[0].Amount)
	assert.Equal(t, 4950.50, txs[1].Amount)
	// 2024-01-01 10:00:00 UTC
	assert.Equal(t, int64(1704103200000), txs[0].Timestamp)
}

func TestParseCSV_SingleDigitHour(t *testing.T) {
	in := header + "TX001,A,B,100,2024-01-01 9:05:00\n"

	txs, rowErrs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, txs, 1)
	// 2024-01-01 09:05:00 UTC
	assert.Equal(t, int64(1704099900000), txs[0].Timestamp)
}

func TestParseCSV_RowErrorsCollected(t *testing.T) {
	in := header +
		"TX001,A,B,not-a-number,2024-01-01 10:00:00\n" +
		"TX002,A,B,100,yesterday\n" +
		"TX003,,B,100,2024-01-01 10:00:00\n" +
		"TX004,A,B,-50,2024-01-01 10:00:00\n" +
		"TX005,A,B,100,2024-01-01 10:00:00\n"

	txs, rowErrs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rowErrs, 4)
	assert.Equal(t, 2, rowErrs[0].Row)
	assert.Contains(t, rowErrs[0].Message, "amount")
	assert.Equal(t, 3, rowErrs[1].Row)
	assert.Contains(t, rowErrs[1].Message, "timestamp")
	assert.Contains(t, rowErrs[2].Message, "sender_id")
	assert.Contains(t, rowErrs[3].Message, "negative")

	// valid rows still come back so the caller can report precisely
	require.Len(t, txs, 1)
	assert.Equal(t, "TX005", txs[0].ID)
}

func TestParseCSV_ColumnCountMismatch(t *testing.T) {
	in := header + "TX001,A,B,100\n"

	_, rowErrs, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rowErrs, 1)
	assert.Contains(t, rowErrs[0].Message, "columns")
}

func TestParseCSV_MissingColumns(t *testing.T) {
	in := "transaction_id,sender_id,amount\nTX001,A,100\n"

	_, _, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "receiver_id")
	assert.Contains(t, err.Error(), "timestamp")
}

func TestParseCSV_TooManyRowErrors(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < MaxRowErrors+10; i++ {
		fmt.Fprintf(&b, "TX%03d,A,B,bad,2024-01-01 10:00:00\n", i)
	}

	_, rowErrs, err := ParseCSV(strings.NewReader(b.String()))
	require.ErrorIs(t, err, ErrTooManyRowErrors)
	assert.Len(t, rowErrs, MaxRowErrors)
}

func TestParseCSV_EmptyInput(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	txs, rowErrs, err := ParseCSV(strings.NewReader(header))
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Empty(t, rowErrs)
}
