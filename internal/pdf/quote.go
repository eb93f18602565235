// Package pdf renders the active version of a quote as a printable document.
package pdf

import (
	"fmt"
	"strconv"

	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/dbuatti/danielebuatti-sub001/view"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/pkg/errors"
)

var (
	titleStyle = props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}
	headStyle  = props.Text{Size: 9, Style: fontstyle.Bold}
	bodyStyle  = props.Text{Size: 9}
	mutedStyle = props.Text{Size: 8, Style: fontstyle.Italic}
	rightStyle = props.Text{Size: 9, Align: align.Right}
	totalStyle = props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}
)

// Quote renders q's active version and returns the PDF bytes.
func Quote(q *models.Quote) ([]byte, error) {
	v, err := q.ActiveVersion()
	if err != nil {
		return nil, err
	}
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	header(m, q.QuoteHeader, v)
	items(m, "Items", v.CompulsoryItems, v.CurrencySymbol, models.DefaultCompulsoryQuantity)
	if len(v.AddOns) > 0 {
		items(m, "Optional extras", v.AddOns, v.CurrencySymbol, models.DefaultAddOnQuantity)
	}
	totals(m, v)
	footer(m, v)

	doc, err := m.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "generate pdf")
	}
	return doc.GetBytes(), nil
}

func header(m core.Maroto, h models.QuoteHeader, v models.QuoteVersion) {
	m.AddRow(12, text.NewCol(12, fmt.Sprintf("%s: %s", h.InvoiceType, h.EventTitle), titleStyle))
	m.AddRow(6, text.NewCol(12, "Prepared for "+h.ClientName, bodyStyle))
	when := h.EventDate
	if h.EventTime != "" {
		when += " " + h.EventTime
	}
	if when != "" || h.EventLocation != "" {
		m.AddRow(6, text.NewCol(12, when+"  "+h.EventLocation, mutedStyle))
	}
	m.AddRow(6, text.NewCol(12, v.VersionName, mutedStyle))
	m.AddRow(4)
}

func items(m core.Maroto, title string, list []models.QuoteItem, currency string, defQty int) {
	m.AddRow(8,
		text.NewCol(7, title, headStyle),
		text.NewCol(2, "Qty", headStyle),
		text.NewCol(3, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, it := range list {
		qty := ""
		if it.ShowQuantity {
			qty = strconv.Itoa(it.EffectiveQuantity(defQty))
		}
		m.AddRow(6,
			text.NewCol(7, it.Name, bodyStyle),
			text.NewCol(2, qty, bodyStyle),
			text.NewCol(3, view.Money(currency, models.LineTotal(it, defQty)), rightStyle),
		)
		if it.Description != "" {
			m.AddRow(5, text.NewCol(12, it.Description, mutedStyle))
		}
	}
	m.AddRow(4)
}

func totals(m core.Maroto, v models.QuoteVersion) {
	if v.DiscountPercentage > 0 || v.DiscountAmount > 0 {
		m.AddRow(6, text.NewCol(9, "Subtotal", rightStyle), text.NewCol(3, view.Money(v.CurrencySymbol, v.PreDiscountTotal()), rightStyle))
	}
	m.AddRow(8, text.NewCol(9, "Total", totalStyle), text.NewCol(3, view.Money(v.CurrencySymbol, v.TotalAmount), totalStyle))
	if v.DepositPercentage > 0 {
		label := fmt.Sprintf("Deposit (%s%%)", strconv.FormatFloat(v.DepositPercentage, 'f', -1, 64))
		m.AddRow(6, text.NewCol(9, label, rightStyle), text.NewCol(3, view.Money(v.CurrencySymbol, v.Deposit()), rightStyle))
	}
}

func footer(m core.Maroto, v models.QuoteVersion) {
	if v.PaymentTerms != "" {
		m.AddRow(4)
		m.AddRow(6, text.NewCol(12, "Payment terms", headStyle))
		m.AddRow(6, text.NewCol(12, v.PaymentTerms, bodyStyle))
	}
	if b := v.BankDetails; b.AccountNumber != "" {
		m.AddRow(6, text.NewCol(12, fmt.Sprintf("%s  BSB %s  Account %s", b.AccountName, b.BSB, b.AccountNumber), bodyStyle))
	}
}
