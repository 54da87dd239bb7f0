package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"interviewhub/internal/models"
)

func TestWriteEarnings(t *testing.T) {
	paidAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e := models.Earnings{
		UserID:   1,
		Received: models.EarningsSide{Count: 1, Gross: 5000, Refunded: 1000, Net: 4000},
	}
	lines := []models.EarningsLine{{
		Side: models.SideReceived, PaymentID: 3, BookingID: 2, TransactionID: "tx1", PaymentDate: &paidAt,
		Amount: 5000, RefundAmount: 1000, Currency: "usd", Status: models.PaymentRefunded,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteEarnings(&buf, e, lines))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "paid", "received"}, f.GetSheetList())

	net, err := f.GetCellValue("Summary", "E3")
	require.NoError(t, err)
	assert.Equal(t, "40", net)

	tx, err := f.GetCellValue("received", "C2")
	require.NoError(t, err)
	assert.Equal(t, "tx1", tx)
	status, err := f.GetCellValue("received", "I2")
	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", status)
}

func TestWriter_RequiresSheet(t *testing.T) {
	w := NewWriter()
	defer w.Close()
	assert.Error(t, w.WriteRow([]any{"x"}))
}
