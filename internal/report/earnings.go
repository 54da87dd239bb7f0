package report

import (
	"fmt"
	"io"

	"interviewhub/internal/models"
)

var earningsColumns = []string{"Payment ID", "Booking ID", "Transaction", "Paid at", "Currency", "Amount", "Refunded", "Net", "Status"}

// WriteEarnings renders a summary sheet and one sheet per side.
func WriteEarnings(out io.Writer, e models.Earnings, lines []models.EarningsLine) error {
	w := NewWriter()
	defer w.Close()

	if err := w.AddSheet("Summary"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Side", "Payments", "Gross", "Refunded", "Net"}); err != nil {
		return err
	}
	for _, side := range []struct {
		name string
		s    models.EarningsSide
	}{{"Paid", e.Paid}, {"Received", e.Received}} {
		if err := w.WriteRow([]any{side.name, side.s.Count, side.s.Gross.Float(), side.s.Refunded.Float(), side.s.Net.Float()}); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	bySide := map[string][]models.EarningsLine{}
	for _, l := range lines {
		bySide[l.Side] = append(bySide[l.Side], l)
	}
	for _, side := range []string{models.SidePaid, models.SideReceived} {
		if err := writeLines(w, side, bySide[side]); err != nil {
			return err
		}
	}

	return w.Save(out)
}

func writeLines(w *Writer, side string, lines []models.EarningsLine) error {
	if err := w.AddSheet(side); err != nil {
		return err
	}
	if err := w.WriteHeader(earningsColumns); err != nil {
		return err
	}
	for _, l := range lines {
		paidAt := ""
		if l.PaymentDate != nil {
			paidAt = l.PaymentDate.UTC().Format("2006-01-02 15:04")
		}
		row := []any{
			l.PaymentID, l.BookingID, l.TransactionID, paidAt, l.Currency,
			l.Amount.Float(), l.RefundAmount.Float(), (l.Amount - l.RefundAmount).Float(), string(l.Status),
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write %s line: %w", side, err)
		}
	}
	return nil
}
