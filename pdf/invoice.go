// Package pdf renders invoice documents with maroto.
package pdf

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/diewo77/go-timesheets/internal/money"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// DateLayout is how dates are printed on documents.
const DateLayout = "Jan 02, 2006"

type InvoiceItem struct {
	Description string
	QtyHours    float64
	RateCents   int64
	AmountCents int64
}

type ClientData struct {
	Name    string
	Address string
}

type CompanyData struct {
	Name    string
	Address string
}

// InvoiceData is everything printed on an invoice. Totals are taken as
// given; nothing is recomputed here.
type InvoiceData struct {
	InvoiceNumber string
	IssuedOn      time.Time
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Items         []InvoiceItem
	TotalCents    int64
	Client        ClientData
	Company       CompanyData
}

var (
	bold      = props.Text{Style: fontstyle.Bold, Size: 9}
	normal    = props.Text{Size: 9}
	right     = props.Text{Size: 9, Align: align.Right}
	boldRight = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	muted     = props.Text{Size: 8, Color: &props.Color{Red: 110, Green: 110, Blue: 110}}
)

// InvoicePDF renders data as a PDF document.
func InvoicePDF(data InvoiceData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(6, "INVOICE", props.Text{Size: 22, Style: fontstyle.Bold}),
		text.NewCol(6, Clean(data.Company.Name), props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRows(metaRows(data)...)
	m.AddRow(6)
	m.AddRows(partyRows(data)...)
	m.AddRow(8)
	m.AddRows(itemRows(data.Items)...)
	m.AddRows(line.NewRow(4))
	m.AddRow(6,
		col.New(6),
		text.NewCol(3, "Subtotal", right),
		text.NewCol(3, money.Format(data.TotalCents), right),
	)
	m.AddRow(8,
		col.New(6),
		text.NewCol(3, "Total Due", boldRight),
		text.NewCol(3, money.Format(data.TotalCents), boldRight),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func metaRows(data InvoiceData) []core.Row {
	meta := [][2]string{
		{"Invoice #", data.InvoiceNumber},
		{"Issued", data.IssuedOn.Format(DateLayout)},
		{"Period", data.PeriodStart.Format(DateLayout) + " - " + data.PeriodEnd.Format(DateLayout)},
	}
	rows := make([]core.Row, 0, len(meta))
	for _, kv := range meta {
		rows = append(rows, row.New(5).Add(
			col.New(6),
			text.NewCol(2, kv[0], muted),
			text.NewCol(4, kv[1], right),
		))
	}
	return rows
}

func partyRows(data InvoiceData) []core.Row {
	rows := []core.Row{
		row.New(6).Add(
			text.NewCol(6, "From", bold),
			text.NewCol(6, "Bill To", bold),
		),
		row.New(5).Add(
			text.NewCol(6, Clean(data.Company.Name), normal),
			text.NewCol(6, Clean(data.Client.Name), normal),
		),
	}
	from := addressLines(data.Company.Address)
	to := addressLines(data.Client.Address)
	for i := 0; i < max(len(from), len(to)); i++ {
		rows = append(rows, row.New(4).Add(
			text.NewCol(6, at(from, i), muted),
			text.NewCol(6, at(to, i), muted),
		))
	}
	return rows
}

func itemRows(items []InvoiceItem) []core.Row {
	rows := []core.Row{
		row.New(7).Add(
			text.NewCol(6, "Description", bold),
			text.NewCol(2, "Rate", boldRight),
			text.NewCol(2, "Hours", boldRight),
			text.NewCol(2, "Amount", boldRight),
		),
	}
	for _, it := range items {
		rows = append(rows, row.New(6).Add(
			text.NewCol(6, Clean(it.Description), normal),
			text.NewCol(2, money.FormatRate(it.RateCents), right),
			text.NewCol(2, money.FormatHours(it.QtyHours), right),
			text.NewCol(2, money.Format(it.AmountCents), right),
		))
	}
	return rows
}

func addressLines(addr string) []string {
	var out []string
	for _, l := range strings.Split(addr, "\n") {
		if l = Clean(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func at(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

// Clean drops control characters, which the PDF fonts cannot encode.
func Clean(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}

// Filename is "invoice-<client-slug>-<start>-<end>.pdf".
func Filename(clientName string, start, end time.Time) string {
	return fmt.Sprintf("invoice-%s-%s-%s.pdf", Slug(clientName), start.Format("20060102"), end.Format("20060102"))
}

// Slug lower-cases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	if b.Len() == 0 {
		return "client"
	}
	return b.String()
}
