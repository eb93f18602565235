// Package view renders the HTML surfaces of the back-office: the public quote page and the
// quote email body. Templates are embedded and parsed once per name.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var tplCache = struct {
	sync.RWMutex
	m map[string]*template.Template
}{m: map[string]*template.Template{}}

// Funcs returns the helpers shared by every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": Money,
		"lineTotal": func(it models.QuoteItem, addOn bool) float64 {
			def := models.DefaultCompulsoryQuantity
			if addOn {
				def = models.DefaultAddOnQuantity
			}
			return models.LineTotal(it, def)
		},
		"qty": func(it models.QuoteItem, addOn bool) int {
			if addOn {
				return it.EffectiveQuantity(models.DefaultAddOnQuantity)
			}
			return it.EffectiveQuantity(models.DefaultCompulsoryQuantity)
		},
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2 January 2006")
		},
		"year": func() int { return time.Now().Year() },
		// dict creates a map from key-value pairs for passing to sub-templates.
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// Money formats an amount with two decimals and a thousands separator: "$1,234.50".
func Money(symbol string, amount float64) string {
	if symbol == "" {
		symbol = models.DefaultCurrencySymbol
	}
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac := s[:len(s)-3], s[len(s)-3:]
	var b bytes.Buffer
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + symbol + b.String() + frac
}

func lookup(name string) (*template.Template, error) {
	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok {
		return t, nil
	}
	t, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS, "templates/partials.html", "templates/"+name)
	if err != nil {
		return nil, errors.Wrapf(err, "parse template %s", name)
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Execute writes the named template to w.
func Execute(w io.Writer, name string, data any) error {
	t, err := lookup(name)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}

// Render writes the named template as an HTML response. The page is buffered so that a
// template error still produces a clean 500.
func Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := Execute(&buf, name, data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
