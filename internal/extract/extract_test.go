package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestNormalize_FullPayload(t *testing.T) {
	raw := decode(t, `{
		"clientName": " Jane Doe ",
		"clientEmail": "Jane@Example.com",
		"invoiceType": "invoice",
		"eventTitle": "Spring Gala",
		"eventDate": "2025-05-10",
		"eventTime": "7pm",
		"eventLocation": "Town Hall",
		"paymentTerms": "50% deposit",
		"preparationNotes": "Bring the keyboard",
		"compulsoryItems": [{"name": "Performance", "amount": 500, "quantity": 1}],
		"addOns": [{"name": "Extra song", "cost": "$50", "quantity": "2"}]
	}`)

	f := Normalize(raw)
	assert.Equal(t, "Jane Doe", f.ClientName)
	assert.Equal(t, "jane@example.com", f.ClientEmail)
	assert.Equal(t, models.InvoiceTypeInvoice, f.InvoiceType)
	assert.Equal(t, "2025-05-10", f.EventDate)
	assert.Equal(t, "Town Hall", f.EventLocation)
	require.Len(t, f.CompulsoryItems, 1)
	assert.Equal(t, 500.0, f.CompulsoryItems[0].Price)
	require.Len(t, f.AddOns, 1)
	assert.Equal(t, 50.0, f.AddOns[0].Price)
	assert.Equal(t, 2, f.AddOns[0].EffectiveQuantity(0))
	assert.Equal(t, 600.0, f.Total())
}

func TestNormalize_MissingEventDate(t *testing.T) {
	f := Normalize(decode(t, `{"clientName": "Jane", "eventTitle": "Recital"}`))
	assert.Equal(t, "", f.EventDate)
	assert.Equal(t, "Recital", f.EventTitle)
}

func TestNormalize_MalformedFields(t *testing.T) {
	raw := decode(t, `{
		"clientName": {"first": "Jane"},
		"eventDate": "sometime next spring",
		"invoiceType": "purchase order",
		"compulsoryItems": "not a list",
		"addOns": [
			"just a string",
			{"name": "Choir", "amount": "lots", "quantity": -3},
			{"description": "unnamed but priced", "price": "1,200.50"},
			{}
		]
	}`)

	f := Normalize(raw)
	assert.Empty(t, f.ClientName)
	assert.Empty(t, f.EventDate)
	assert.Empty(t, f.InvoiceType)
	assert.Empty(t, f.CompulsoryItems)
	require.Len(t, f.AddOns, 2)
	assert.Equal(t, "Choir", f.AddOns[0].Name)
	assert.Equal(t, 0.0, f.AddOns[0].Price)
	assert.Nil(t, f.AddOns[0].Quantity)
	assert.Equal(t, "Untitled item", f.AddOns[1].Name)
	assert.Equal(t, 1200.5, f.AddOns[1].Price)
}

func TestNormalize_NonPositiveQuantityIsUnset(t *testing.T) {
	f := Normalize(decode(t, `{"compulsoryItems": [{"name": "Set", "amount": 500, "quantity": 0}]}`))
	require.Len(t, f.CompulsoryItems, 1)
	assert.Nil(t, f.CompulsoryItems[0].Quantity)
	assert.Equal(t, 500.0, models.CalculatePreDiscountTotal(f.CompulsoryItems, nil))
}

func TestNormalize_DateLayouts(t *testing.T) {
	for _, in := range []string{"2025-05-10", "10/05/2025", "10 May 2025", "May 10, 2025", "2025-05-10T18:00:00Z"} {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, "2025-05-10", date(in))
		})
	}
}

func TestMergeIntoForm(t *testing.T) {
	form := models.QuoteForm{
		QuoteHeader: models.QuoteHeader{ClientName: "Old", InvoiceType: models.InvoiceTypeInvoice, EventDate: "2025-01-01"},
		QuoteContent: models.QuoteContent{
			DiscountPercentage: 10,
			CompulsoryItems:    []models.QuoteItem{{Name: "Existing", Price: 100}},
		},
	}
	extracted := Normalize(decode(t, `{"clientName": "Jane", "addOns": [{"name": "Extra", "amount": 20}]}`))

	merged := MergeIntoForm(form, extracted)
	assert.Equal(t, "Jane", merged.ClientName)
	assert.Equal(t, models.InvoiceTypeInvoice, merged.InvoiceType, "no extracted type keeps the form's")
	assert.Equal(t, "2025-01-01", merged.EventDate, "missing date keeps the form's")
	assert.Equal(t, 10.0, merged.DiscountPercentage)
	require.Len(t, merged.CompulsoryItems, 1)
	assert.Equal(t, "Existing", merged.CompulsoryItems[0].Name)
	require.Len(t, merged.AddOns, 1)
	assert.Equal(t, models.DefaultCurrencySymbol, merged.CurrencySymbol)

	blank := MergeIntoForm(models.QuoteForm{}, Normalize(map[string]any{}))
	assert.Equal(t, models.InvoiceTypeQuote, blank.InvoiceType)
	assert.Empty(t, blank.EventDate)
}

func TestClient_Extract(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare object", `{"clientName":"Jane","eventTitle":"Gala"}`},
		{"wrapped in data", `{"data":{"clientName":"Jane","eventTitle":"Gala"}}`},
		{"double encoded", `"{\"clientName\":\"Jane\",\"eventTitle\":\"Gala\"}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var in map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
				assert.Contains(t, in["emailContent"], "gala")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f, err := NewClient(srv.URL, "", time.Second).Extract(context.Background(), "Hi, we'd love a quote for our gala")
			require.NoError(t, err)
			assert.Equal(t, "Jane", f.ClientName)
			assert.Equal(t, "Gala", f.EventTitle)
		})
	}
}

func TestClient_ExtractErrors(t *testing.T) {
	t.Run("empty content", func(t *testing.T) {
		_, err := NewClient("http://unused", "", time.Second).Extract(context.Background(), "  ")
		var verr *apperr.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"upstream error", http.StatusInternalServerError, `{"error":"model overloaded"}`},
		{"not json", http.StatusOK, `Sorry, I can't help with that.`},
		{"array", http.StatusOK, `[1,2,3]`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).Extract(context.Background(), "content")
			var aerr *apperr.AdapterError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, "ai_extraction", aerr.Service)
		})
	}
}
