package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/validation"
)

// InvoiceType distinguishes a price quote from a final invoice.
type InvoiceType string

const (
	InvoiceTypeQuote   InvoiceType = "Quote"
	InvoiceTypeInvoice InvoiceType = "Invoice"
)

// DefaultCurrencySymbol is used when a form leaves the currency empty.
const DefaultCurrencySymbol = "$"

// QuoteContent is the priced, presentational part of a quote shared by drafts and versions.
type QuoteContent struct {
	DiscountPercentage float64     `json:"discountPercentage"`
	DiscountAmount     float64     `json:"discountAmount"`
	DepositPercentage  float64     `json:"depositPercentage"`
	PaymentTerms       string      `json:"paymentTerms,omitempty"`
	BankDetails        BankDetails `json:"bankDetails"`
	CompulsoryItems    []QuoteItem `json:"compulsoryItems"`
	AddOns             []QuoteItem `json:"addOns"`
	CurrencySymbol     string      `json:"currencySymbol"`
	Theme              string      `json:"theme,omitempty"`
	HeaderImageURL     string      `json:"headerImageUrl,omitempty"`
	PreparationNotes   string      `json:"preparationNotes,omitempty"`
}

// Total derives the final amount from items and discounts.
func (c QuoteContent) Total() float64 {
	return CalculateQuoteTotal(c.CompulsoryItems, c.AddOns, c.DiscountPercentage, c.DiscountAmount)
}

// PreDiscountTotal is the item sum before any discount.
func (c QuoteContent) PreDiscountTotal() float64 {
	return CalculatePreDiscountTotal(c.CompulsoryItems, c.AddOns)
}

// Deposit is the deposit owed on the final total.
func (c QuoteContent) Deposit() float64 {
	return CalculateDeposit(c.Total(), c.DepositPercentage)
}

// Clone returns a copy that shares no slices with c.
func (c QuoteContent) Clone() QuoteContent {
	out := c
	out.CompulsoryItems = cloneItems(c.CompulsoryItems)
	out.AddOns = cloneItems(c.AddOns)
	return out
}

// Normalize fills presentation defaults.
func (c *QuoteContent) Normalize() {
	if strings.TrimSpace(c.CurrencySymbol) == "" {
		c.CurrencySymbol = DefaultCurrencySymbol
	}
	if c.CompulsoryItems == nil {
		c.CompulsoryItems = []QuoteItem{}
	}
	if c.AddOns == nil {
		c.AddOns = []QuoteItem{}
	}
}

// Validate checks numeric ranges and item lines.
func (c QuoteContent) Validate() validation.Violations {
	v := validation.Violations{}
	validation.RangeFloat("discountPercentage", c.DiscountPercentage, 0, 100, v)
	validation.NonNegativeFloat("discountAmount", c.DiscountAmount, v)
	validation.RangeFloat("depositPercentage", c.DepositPercentage, 0, 100, v)
	validateItems("compulsoryItems", c.CompulsoryItems, v)
	validateItems("addOns", c.AddOns, v)
	return v
}

func validateItems(field string, items []QuoteItem, v validation.Violations) {
	for i, it := range items {
		iv := validation.Violations{}
		validation.Required("name", it.Name, iv)
		validation.NonNegativeFloat("price", it.Price, iv)
		if it.Quantity != nil {
			validation.NonNegativeInt("quantity", *it.Quantity, iv)
		}
		v.Merge(fmt.Sprintf("%s[%d].", field, i), iv)
	}
}

// QuoteVersion is a snapshot of a quote's content. It is immutable once sent.
type QuoteVersion struct {
	VersionID   string      `json:"versionId"`
	VersionName string      `json:"versionName"`
	CreatedAt   *time.Time  `json:"created_at"`
	IsActive    bool        `json:"is_active"`
	Status      QuoteStatus `json:"status"`
	AcceptedAt  *time.Time  `json:"accepted_at"`
	RejectedAt  *time.Time  `json:"rejected_at"`
	TotalAmount float64     `json:"total_amount"`
	QuoteContent

	// ClientSelectedAddOns is populated only when the client accepts.
	ClientSelectedAddOns []QuoteItem `json:"clientSelectedAddOns,omitempty"`
}

// Editable reports whether the version content may still change.
func (v QuoteVersion) Editable() bool {
	return v.Status == StatusDraft || v.Status == StatusCreated
}

func (v QuoteVersion) clone() QuoteVersion {
	out := v
	out.QuoteContent = v.QuoteContent.Clone()
	out.ClientSelectedAddOns = cloneItems(v.ClientSelectedAddOns)
	return out
}

// QuoteHeader carries client and event metadata.
type QuoteHeader struct {
	ClientName    string      `gorm:"size:255" json:"clientName"`
	ClientEmail   string      `gorm:"size:255" json:"clientEmail"`
	InvoiceType   InvoiceType `gorm:"size:20;default:'Quote'" json:"invoiceType"`
	EventTitle    string      `gorm:"size:255" json:"eventTitle"`
	EventDate     string      `gorm:"size:10" json:"eventDate,omitempty"` // YYYY-MM-DD
	EventTime     string      `gorm:"size:50" json:"eventTime,omitempty"`
	EventLocation string      `gorm:"size:255" json:"eventLocation,omitempty"`
	PreparedBy    string      `gorm:"size:255" json:"preparedBy,omitempty"`
}

// Validate checks the fields required to issue a quote.
func (h QuoteHeader) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("clientName", h.ClientName, v)
	validation.Email("clientEmail", h.ClientEmail, v)
	validation.Required("eventTitle", h.EventTitle, v)
	validation.Date("eventDate", h.EventDate, v)
	validation.OneOf("invoiceType", string(h.InvoiceType), []string{string(InvoiceTypeQuote), string(InvoiceTypeInvoice)}, v)
	return v
}

// QuoteForm is the full quote builder payload: what a draft stores and what a quote is created from.
type QuoteForm struct {
	QuoteHeader
	QuoteContent
}

// Normalize fills defaults on both parts.
func (f *QuoteForm) Normalize() {
	if f.InvoiceType == "" {
		f.InvoiceType = InvoiceTypeQuote
	}
	f.QuoteContent.Normalize()
}

// Validate checks everything required before the form becomes a quote.
func (f QuoteForm) Validate() validation.Violations {
	v := f.QuoteHeader.Validate()
	for k, code := range f.QuoteContent.Validate() {
		v[k] = code
	}
	return v
}
