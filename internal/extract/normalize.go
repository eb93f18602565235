package extract

import (
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/shockerli/cvt"
)

// dateLayouts are tried in order when reading eventDate.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2/1/2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Monday, 2 January 2006",
	"Monday, January 2, 2006",
}

// Normalize converts an untrusted extraction payload into a form. Missing or malformed fields
// come back empty; it never fails. InvoiceType stays empty unless the payload names a valid type.
func Normalize(raw map[string]any) models.QuoteForm {
	var f models.QuoteForm
	f.ClientName = str(raw, "clientName", "client_name")
	f.ClientEmail = strings.ToLower(str(raw, "clientEmail", "client_email"))
	f.InvoiceType = invoiceType(str(raw, "invoiceType", "invoice_type"))
	f.EventTitle = str(raw, "eventTitle", "event_title")
	f.EventDate = date(str(raw, "eventDate", "event_date"))
	f.EventTime = str(raw, "eventTime", "event_time")
	f.EventLocation = str(raw, "eventLocation", "event_location")
	f.PaymentTerms = str(raw, "paymentTerms", "payment_terms")
	f.PreparationNotes = str(raw, "preparationNotes", "preparation_notes")
	f.CompulsoryItems = items(first(raw, "compulsoryItems", "compulsory_items", "items"))
	f.AddOns = items(first(raw, "addOns", "add_ons", "addons"))
	return f
}

// MergeIntoForm overlays the extracted values onto the form being edited. Non-empty extracted
// header fields win; extracted item lists replace the form's lists only when non-empty. Pricing
// settings that extraction does not produce (discounts, deposit, bank details) are kept.
func MergeIntoForm(form, extracted models.QuoteForm) models.QuoteForm {
	out := form
	out.QuoteContent = form.QuoteContent.Clone()
	setIf(&out.ClientName, extracted.ClientName)
	setIf(&out.ClientEmail, extracted.ClientEmail)
	if extracted.InvoiceType != "" {
		out.InvoiceType = extracted.InvoiceType
	}
	setIf(&out.EventTitle, extracted.EventTitle)
	setIf(&out.EventDate, extracted.EventDate)
	setIf(&out.EventTime, extracted.EventTime)
	setIf(&out.EventLocation, extracted.EventLocation)
	setIf(&out.PaymentTerms, extracted.PaymentTerms)
	setIf(&out.PreparationNotes, extracted.PreparationNotes)
	if len(extracted.CompulsoryItems) > 0 {
		out.CompulsoryItems = extracted.Clone().CompulsoryItems
	}
	if len(extracted.AddOns) > 0 {
		out.AddOns = extracted.Clone().AddOns
	}
	out.Normalize()
	return out
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func first(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(raw map[string]any, keys ...string) string {
	v := first(raw, keys...)
	if v == nil {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any:
		return ""
	}
	s, err := cvt.StringE(v)
	if err != nil {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return ""
	}
	return s
}

func invoiceType(s string) models.InvoiceType {
	switch strings.ToLower(s) {
	case "quote":
		return models.InvoiceTypeQuote
	case "invoice":
		return models.InvoiceTypeInvoice
	}
	return ""
}

// date returns YYYY-MM-DD or "" when s is not a recognizable date.
func date(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return ""
}

func items(v any) []models.QuoteItem {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]models.QuoteItem, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		it := models.QuoteItem{
			Name:        str(m, "name", "title", "item"),
			Description: str(m, "description", "details"),
			Price:       money(first(m, "amount", "cost", "price", "rate")),
			Schedule:    str(m, "schedule", "date"),
		}
		if q, ok := quantity(first(m, "quantity", "qty")); ok {
			it.Quantity = models.Qty(q)
		}
		if it.Name == "" {
			if it.Price == 0 && it.Description == "" {
				continue
			}
			it.Name = "Untitled item"
		}
		out = append(out, it)
	}
	return out
}

// money reads a non-negative amount, tolerating "$1,200.50" style strings.
func money(v any) float64 {
	if v == nil {
		return 0
	}
	if s, ok := v.(string); ok {
		v = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", "AUD", "", "aud", "").Replace(s)
	}
	f, err := cvt.Float64E(v)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func quantity(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	n, err := cvt.IntE(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
