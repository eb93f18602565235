package view

import "github.com/dbuatti/danielebuatti-sub001/internal/models"

// QuotePage is the data behind the public quote page.
type QuotePage struct {
	Slug    string
	Header  models.QuoteHeader
	Version models.QuoteVersion
	// CanRespond is true while the client can still accept or reject.
	CanRespond bool
}

// QuoteEmail is the data behind the email that carries a quote link to the client.
type QuoteEmail struct {
	Header  models.QuoteHeader
	Version models.QuoteVersion
	Link    string
}

// NewQuotePage projects the active version of q for the client.
func NewQuotePage(q *models.Quote) (QuotePage, error) {
	v, err := q.ActiveVersion()
	if err != nil {
		return QuotePage{}, err
	}
	return QuotePage{
		Slug:       q.Slug,
		Header:     q.QuoteHeader,
		Version:    v,
		CanRespond: v.Status == models.StatusSent,
	}, nil
}
