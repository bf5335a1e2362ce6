package validation

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	FieldVendorName    = "vendor_name"
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldTotalAmount   = "total_amount"
	FieldLineItems     = "line_items"
)

// Issue is one validation finding about a field.
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	return i.Field + " " + i.Message
}

// IssueReport holds hard errors and advisory warnings for one set of raw fields.
type IssueReport struct {
	Errors   []Issue
	Warnings []Issue
}

func (r IssueReport) Valid() bool { return len(r.Errors) == 0 }

// RejectsTotal reports whether the total is missing or negative. Such fields can never become a record.
func (r IssueReport) RejectsTotal() bool {
	for _, e := range r.Errors {
		if e.Field == FieldTotalAmount {
			return true
		}
	}
	return false
}

func (r IssueReport) ErrorStrings() []string   { return issueStrings(r.Errors) }
func (r IssueReport) WarningStrings() []string { return issueStrings(r.Warnings) }

func issueStrings(in []Issue) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, is := range in {
		out[i] = is.String()
	}
	return out
}

// Validate checks raw fields. It never mutates them and never fails; problems are returned in the report.
func Validate(f entity.RawFields) IssueReport {
	v := common.NewValidator()
	v.Field(FieldVendorName, f.VendorName, common.Required)
	v.Field(FieldTotalAmount, f.TotalAmount, common.Required, common.NonNegative)
	for i, item := range f.LineItems {
		v.Field(fmt.Sprintf("%s[%d].cost", FieldLineItems, i), item.Cost, common.NonNegative)
	}

	var r IssueReport
	for _, e := range v.Errors() {
		r.Errors = append(r.Errors, Issue{Field: e.Field, Message: e.Message, Severity: SeverityError})
	}

	warn := func(field, msg string) {
		r.Warnings = append(r.Warnings, Issue{Field: field, Message: msg, Severity: SeverityWarning})
	}
	if strings.TrimSpace(f.InvoiceNumber) == "" {
		warn(FieldInvoiceNumber, "is missing")
	}
	if date := strings.TrimSpace(f.InvoiceDate); date == "" {
		warn(FieldInvoiceDate, "is missing")
	} else if _, err := ParseDate(date); err != nil {
		warn(FieldInvoiceDate, fmt.Sprintf("%q is not a recognized date", date))
	}
	if f.TotalAmount != nil && f.TotalAmount.IsZero() {
		warn(FieldTotalAmount, "is zero")
	}
	if len(f.LineItems) == 0 {
		warn(FieldLineItems, "are missing")
	}
	for i, item := range f.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			warn(fmt.Sprintf("%s[%d].description", FieldLineItems, i), "is missing")
		}
	}
	return r
}
