package internal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// xlsxColumns maps lower-cased header names onto transaction fields. Swedish bank
// headers are accepted alongside English ones.
var xlsxColumns = map[string]string{
	"id":                "id",
	"date":              "date",
	"transaction date":  "date",
	"transaktionsdatum": "date",
	"reskontradatum":    "date",
	"amount":            "amount",
	"belopp":            "amount",
	"category":          "category",
	"category id":       "category",
	"category_id":       "category",
	"payment":           "payment",
	"payment method":    "payment",
	"payment_method":    "payment",
	"description":       "description",
	"text":              "description",
	"payee":             "description",
}

var xlsxDateLayouts = []string{dateLayout, "2006/01/02", "02.01.2006"}

// ParseXLSX reads expenses from the first sheet of an Excel export. The header row is
// found by scanning for a date and an amount column. Negative amounts are expenses in
// bank exports and are stored as positive values; positive amounts are then income and
// are skipped. A sheet with only non-negative amounts is read as a plain expense list.
func ParseXLSX(path string) ([]Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}

	cols, dataStartRow := findXLSXHeader(rows)
	if dataStartRow < 0 {
		return nil, fmt.Errorf("could not find required columns (date, amount)")
	}

	type rawRow struct {
		tx     Transaction
		signed bool
	}
	var parsed []rawRow
	hasNegative := false

	for i := dataStartRow; i < len(rows); i++ {
		row := rows[i]
		cell := func(field string) string {
			idx, ok := cols[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		dateStr, amountStr := cell("date"), cell("amount")
		// Skip empty and summary rows
		if dateStr == "" || amountStr == "" {
			continue
		}
		date, ok := parseXLSXDate(dateStr)
		if !ok {
			continue
		}
		amount, err := parseAmount(amountStr)
		if err != nil {
			continue
		}

		tx := Transaction{
			ID:            cell("id"),
			Amount:        amount,
			OccurredOn:    date,
			Timestamp:     date,
			PaymentMethod: ParsePaymentMethod(cell("payment")),
			// Strip "Prel " prefix from pending transactions
			Description: strings.TrimPrefix(cell("description"), "Prel "),
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if id, err := strconv.ParseInt(cell("category"), 10, 64); err == nil && id > 0 {
			tx.CategoryID = CategoryID(id)
		}
		if amount.IsNegative() {
			hasNegative = true
		}
		parsed = append(parsed, rawRow{tx: tx, signed: amount.IsNegative()})
	}

	transactions := make([]Transaction, 0, len(parsed))
	for _, r := range parsed {
		if hasNegative {
			if !r.signed {
				continue
			}
			r.tx.Amount = r.tx.Amount.Neg()
		}
		transactions = append(transactions, r.tx)
	}
	return transactions, nil
}

// findXLSXHeader returns the column index per field and the first data row, or -1.
func findXLSXHeader(rows [][]string) (map[string]int, int) {
	for i, row := range rows {
		cols := make(map[string]int)
		for j, cell := range row {
			field, ok := xlsxColumns[strings.ToLower(strings.TrimSpace(cell))]
			if !ok {
				continue
			}
			// Keep the first matching column, e.g. Reskontradatum before Transaktionsdatum
			if _, seen := cols[field]; !seen {
				cols[field] = j
			}
		}
		_, hasDate := cols["date"]
		_, hasAmount := cols["amount"]
		if hasDate && hasAmount {
			return cols, i + 1
		}
	}
	return nil, -1
}

func parseXLSXDate(s string) (time.Time, bool) {
	for _, layout := range xlsxDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func init() {
	RegisterParser("xlsx", ParserFunc(ParseXLSX))
}
