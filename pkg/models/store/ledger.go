package store

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number keeps a monetary field exactly as the ledger service sent it.
// The service is inconsistent: amounts arrive as JSON numbers, quoted strings,
// null or not at all. Decoding never fails; interpretation is left to the adapters.
type Number struct {
	raw string
}

func NewNumber(raw string) Number {
	return Number{raw: raw}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.raw = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			n.raw = strings.TrimSpace(s)
			return nil
		}
	}
	n.raw = string(data)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// Raw returns the textual value, empty when the field was missing or null.
func (n Number) Raw() string {
	return n.raw
}

func (n Number) IsSet() bool {
	return n.raw != ""
}

// Text is a string field the service sometimes sends as a number, a boolean or
// null. Numbers and booleans keep their literal form; anything else is empty.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
	case '{', '[', 'n':
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Flag is a boolean the service encodes as true/false, "true"/"yes", or 1/0.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "yes", "y", "t":
		*f = true
	default:
		if v, err := strconv.ParseFloat(s, 64); err == nil && v != 0 {
			*f = true
			return nil
		}
		*f = false
	}
	return nil
}

type InvoiceRecord struct {
	ID               Text   `json:"id"`
	InvoiceNumber    Text   `json:"invoice_number"`
	Amount           Number `json:"amount"`
	TotalAmount      Number `json:"total_amount"`
	Currency         Text   `json:"currency"`
	Status           Text   `json:"status"`
	PaymentStatus    Text   `json:"payment_status"`
	RemainingBalance Number `json:"remaining_balance"`
	DueDate          Text   `json:"due_date"`
	CreatedAt        Text   `json:"created_at"`
	ProjectNumber    Text   `json:"project_number"`
	ContractNumber   Text   `json:"contract_number"`
	BookingID        Text   `json:"booking_id"`
}

type BillingItemRecord struct {
	ID                    Text   `json:"id"`
	Description           Text   `json:"description"`
	Amount                Number `json:"amount"`
	Currency              Text   `json:"currency"`
	Status                Text   `json:"status"`
	ProjectNumber         Text   `json:"project_number"`
	ContractNumber        Text   `json:"contract_number"`
	BookingID             Text   `json:"booking_id"`
	Vendor                Text   `json:"vendor"`
	SourceID              Text   `json:"source_id"`
	SourceType            Text   `json:"source_type"`
	SourceQuotationItemID Text   `json:"source_quotation_item_id"`
}

// TransactionRecord is one entry of the generic transaction feed. Only entries
// whose TransactionType marks an expense voucher are expenses.
type TransactionRecord struct {
	ID              Text   `json:"id"`
	VoucherNumber   Text   `json:"voucher_number"`
	TransactionType Text   `json:"transaction_type"`
	Amount          Number `json:"amount"`
	TotalAmount     Number `json:"total_amount"`
	Currency        Text   `json:"currency"`
	ExpenseCategory Text   `json:"expense_category"`
	ExpenseType     Text   `json:"expense_type"`
	Vendor          Text   `json:"vendor"`
	VendorName      Text   `json:"vendor_name"`
	IsBillable      Flag   `json:"is_billable"`
	Status          Text   `json:"status"`
	PaymentStatus   Text   `json:"payment_status"`
	ProjectNumber   Text   `json:"project_number"`
	ContractNumber  Text   `json:"contract_number"`
	BookingID       Text   `json:"booking_id"`
	CreatedAt       Text   `json:"created_at"`
}

type CollectionRecord struct {
	ID             Text   `json:"id"`
	Amount         Number `json:"amount"`
	AmountReceived Number `json:"amount_received"`
	Currency       Text   `json:"currency"`
	ProjectNumber  Text   `json:"project_number"`
	ContractNumber Text   `json:"contract_number"`
	BookingID      Text   `json:"booking_id"`
	ReceivedAt     Text   `json:"received_at"`
}

type QuotationItemRecord struct {
	ID          Text   `json:"id"`
	Description Text   `json:"description"`
	Quantity    Number `json:"quantity"`
	UnitPrice   Number `json:"unit_price"`
	Amount      Number `json:"amount"`
	Currency    Text   `json:"currency"`
}

type QuotationCategoryRecord struct {
	Name  Text                  `json:"name"`
	Items []QuotationItemRecord `json:"items"`
}

type QuotationRecord struct {
	ID                     Text                      `json:"id"`
	QuotationNumber        Text                      `json:"quotation_number"`
	Currency               Text                      `json:"currency"`
	Status                 Text                      `json:"status"`
	SellingPriceCategories []QuotationCategoryRecord `json:"selling_price_categories"`
	CostCategories         []QuotationCategoryRecord `json:"cost_categories"`
}
