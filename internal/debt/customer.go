package debt

import (
	"bytes"
	"encoding/json"
	"time"
)

// Customer is a backend customer record. The dashboard never mutates it.
type Customer struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	TotalDebt *string `json:"totalDebt,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
}

// Transaction is one row of the backend transaction history.
type Transaction struct {
	ID           string  `json:"id"`
	CustomerID   string  `json:"customerId"`
	CustomerName string  `json:"customerName,omitempty"`
	Type         string  `json:"type"`
	Amount       *string `json:"amount,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	CreatedAt    *string `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts id, name, totalDebt and createdAt as strings, numbers
// or null. Values of any other kind decode as absent so one bad record never
// fails the whole list.
func (c *Customer) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Name      json.RawMessage `json:"name"`
		TotalDebt json.RawMessage `json:"totalDebt"`
		CreatedAt json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Customer{
		ID:        text(raw.ID),
		Name:      text(raw.Name),
		TotalDebt: looseString(raw.TotalDebt),
		CreatedAt: looseString(raw.CreatedAt),
	}
	return nil
}

// UnmarshalJSON decodes every field leniently, like Customer.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID           json.RawMessage `json:"id"`
		CustomerID   json.RawMessage `json:"customerId"`
		CustomerName json.RawMessage `json:"customerName"`
		Type         json.RawMessage `json:"type"`
		Amount       json.RawMessage `json:"amount"`
		Currency     json.RawMessage `json:"currency"`
		CreatedAt    json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Transaction{
		ID:           text(raw.ID),
		CustomerID:   text(raw.CustomerID),
		CustomerName: text(raw.CustomerName),
		Type:         text(raw.Type),
		Amount:       looseString(raw.Amount),
		Currency:     text(raw.Currency),
		CreatedAt:    looseString(raw.CreatedAt),
	}
	return nil
}

// looseString decodes a JSON string or number into its text. Null, missing
// and any other kind decode to nil.
func looseString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return &s
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		s := n.String()
		return &s
	}
	return nil
}

func text(raw json.RawMessage) string {
	if s := looseString(raw); s != nil {
		return *s
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. Absent or unparsable values
// return the Unix epoch so they sort last under newest-first ordering.
func ParseTimestamp(s *string) time.Time {
	if s == nil {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}
