package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimpleJSONFormat is the native JSON format for importing expenses
// Example:
//
//	{
//	  "transactions": [
//	    {"id": "t1", "date": "2025-01-15", "amount": 25000, "category_id": 3, "payment_method": "card", "description": "Netflix"},
//	    {"date": "2025-02-15", "amount": "25000", "category_id": 3}
//	  ]
//	}
//
// Amounts are non-negative expenses. Missing ids are generated.
type SimpleJSONFormat struct {
	Transactions []SimpleJSONTransaction `json:"transactions"`
}

type SimpleJSONTransaction struct {
	ID            string          `json:"id,omitempty"`
	Date          string          `json:"date"` // YYYY-MM-DD format
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    int64           `json:"category_id,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Description   string          `json:"description,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"` // RFC 3339, defaults to the date
}

// ParseSimpleJSON parses a JSON file in the simple JSON format
func ParseSimpleJSON(path string) ([]Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var jsonData SimpleJSONFormat
	if err := json.Unmarshal(data, &jsonData); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	transactions := make([]Transaction, 0, len(jsonData.Transactions))
	for i, tx := range jsonData.Transactions {
		date, err := time.Parse(dateLayout, tx.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: parsing date %q: %w", i, tx.Date, err)
		}
		if tx.Amount.IsNegative() {
			return nil, fmt.Errorf("transaction %d: amount %s must not be negative", i, tx.Amount)
		}
		if tx.CategoryID < 0 {
			return nil, fmt.Errorf("transaction %d: category_id %d must not be negative", i, tx.CategoryID)
		}

		ts := date
		if tx.Timestamp != "" {
			if ts, err = time.Parse(time.RFC3339, tx.Timestamp); err != nil {
				return nil, fmt.Errorf("transaction %d: parsing timestamp %q: %w", i, tx.Timestamp, err)
			}
		}
		id := tx.ID
		if id == "" {
			id = uuid.NewString()
		}

		transactions = append(transactions, Transaction{
			ID:            id,
			CategoryID:    CategoryID(tx.CategoryID),
			Amount:        tx.Amount,
			OccurredOn:    date,
			PaymentMethod: ParsePaymentMethod(tx.PaymentMethod),
			Timestamp:     ts,
			Description:   tx.Description,
		})
	}

	return transactions, nil
}

func init() {
	RegisterParser("simple-json", ParserFunc(ParseSimpleJSON))
}
