package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The export format is a dump of an extraction pipeline: every extracted
// field may appear bare or wrapped in a {"value": ...} node, numbers may be
// encoded as strings, and timestamps use either RFC 3339 strings or Mongo
// extended JSON objects. The decoders below absorb all of those shapes so
// the mapping code only sees Go values.

// ValueNode unwraps an optional {"value": ...} envelope around T.
type ValueNode[T any] struct {
	Value   T
	Present bool
}

func (n *ValueNode[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		var envelope struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(b, &envelope); err == nil && len(envelope.Value) > 0 {
			b = envelope.Value
			if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
				return nil
			}
		}
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		// malformed node, treat as absent
		return nil
	}
	n.Present = true
	return nil
}

// Ptr returns the unwrapped value or nil when the node was absent.
func (n ValueNode[T]) Ptr() *T {
	if !n.Present {
		return nil
	}
	v := n.Value
	return &v
}

// FlexFloat decodes numbers that may arrive as JSON numbers or numeric
// strings. Anything unparseable decodes to zero.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(parsed)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// FlexTime decodes RFC 3339 strings, bare dates and Mongo extended JSON
// {"$date": ...} objects. Unparseable values decode to a nil Time.
type FlexTime struct {
	Time *time.Time
}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	// peel {"value": ...} and {"$date": ...} envelopes, possibly stacked
	for b[0] == '{' {
		var envelope struct {
			Value json.RawMessage `json:"value"`
			Date  json.RawMessage `json:"$date"`
		}
		if err := json.Unmarshal(b, &envelope); err != nil {
			return nil
		}
		switch {
		case len(envelope.Date) > 0:
			b = bytes.TrimSpace(envelope.Date)
		case len(envelope.Value) > 0:
			b = bytes.TrimSpace(envelope.Value)
		default:
			return nil
		}
		if bytes.Equal(b, []byte("null")) {
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	t.Time = parseTimestamp(s)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

// FlexID decodes document identifiers that arrive as plain strings, numbers
// or Mongo extended JSON {"$oid": ...} objects.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		var extended struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(b, &extended); err == nil && extended.OID != "" {
			*id = FlexID(extended.OID)
		}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*id = FlexID(s)
		return nil
	}
	*id = FlexID(string(b))
	return nil
}

// RawDocument is one record of the extraction export.
type RawDocument struct {
	ID             FlexID            `json:"_id"`
	Name           *string           `json:"name"`
	FilePath       *string           `json:"filePath"`
	FileType       *string           `json:"fileType"`
	Status         *string           `json:"status"`
	OrganizationID *string           `json:"organizationId"`
	DepartmentID   *string           `json:"departmentId"`
	AnalyticsID    *string           `json:"analyticsId"`
	ProcessedAt    FlexTime          `json:"processedAt"`
	Metadata       map[string]any    `json:"metadata"`
	ExtractedData  *RawExtractedData `json:"extractedData"`
}

type RawExtractedData struct {
	LLMData *RawLLMData `json:"llmData"`
}

type RawLLMData struct {
	Vendor    ValueNode[RawVendor]    `json:"vendor"`
	Invoice   ValueNode[RawInvoice]   `json:"invoice"`
	Summary   ValueNode[RawSummary]   `json:"summary"`
	Payment   ValueNode[RawPayment]   `json:"payment"`
	LineItems ValueNode[RawLineItems] `json:"lineItems"`
}

type RawVendor struct {
	VendorName    ValueNode[string] `json:"vendorName"`
	VendorTaxID   ValueNode[string] `json:"vendorTaxId"`
	VendorAddress ValueNode[string] `json:"vendorAddress"`
}

type RawInvoice struct {
	InvoiceID    ValueNode[string] `json:"invoiceId"`
	InvoiceDate  FlexTime          `json:"invoiceDate"`
	DeliveryDate FlexTime          `json:"deliveryDate"`
}

// RawSummary leaves arrive bare, without value envelopes.
type RawSummary struct {
	DocumentType   *string   `json:"documentType"`
	SubTotal       FlexFloat `json:"subTotal"`
	TotalTax       FlexFloat `json:"totalTax"`
	InvoiceTotal   FlexFloat `json:"invoiceTotal"`
	CurrencySymbol *string   `json:"currencySymbol"`
}

type RawPayment struct {
	BankAccountNumber ValueNode[string]    `json:"bankAccountNumber"`
	BIC               ValueNode[string]    `json:"BIC"`
	AccountName       ValueNode[string]    `json:"accountName"`
	DueDate           FlexTime             `json:"dueDate"`
	NetDays           ValueNode[FlexFloat] `json:"netDays"`
	DiscountedTotal   ValueNode[FlexFloat] `json:"discountedTotal"`
}

type RawLineItems struct {
	Items ValueNode[[]RawLineItem] `json:"items"`
}

type RawLineItem struct {
	SrNo        ValueNode[FlexFloat] `json:"srNo"`
	Description ValueNode[string]    `json:"description"`
	Quantity    ValueNode[FlexFloat] `json:"quantity"`
	UnitPrice   ValueNode[FlexFloat] `json:"unitPrice"`
	TotalPrice  ValueNode[FlexFloat] `json:"totalPrice"`
	VATAmount   ValueNode[FlexFloat] `json:"vatAmount"`
	VATRate     ValueNode[FlexFloat] `json:"vatRate"`
	LedgerCode  ValueNode[string]    `json:"Sachkonto"`
	BookingKey  ValueNode[string]    `json:"BUSchluessel"`
}
