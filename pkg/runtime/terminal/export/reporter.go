package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "USD"

type TableConfig struct {
	NameWidth   int
	AmountWidth int
	StatusWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		NameWidth:   48,
		AmountWidth: 18,
		StatusWidth: 12,
	}
}

// Reporter renders reconciled financials as text tables.
type Reporter struct {
	writer   io.Writer
	config   TableConfig
	currency string
}

func NewReporter(writer io.Writer, currency string) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	if currency == "" {
		currency = defaultCurrency
	}
	return &Reporter{
		writer:   writer,
		config:   DefaultTableConfig(),
		currency: strings.ToUpper(currency),
	}
}

// FormatAmount renders an amount in the reporter currency, e.g. "$1,234.50".
func (c *Reporter) FormatAmount(amount decimal.Decimal) string {
	return formatMoney(amount, c.currency)
}

func formatMoney(amount decimal.Decimal, code string) string {
	currency := money.GetCurrency(code)
	if currency == nil {
		return code + " " + amount.StringFixed(2)
	}
	minor := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minor, currency.Code).Display()
}

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"money": c.FormatAmount,
		"percent": func(d decimal.Decimal) string {
			return d.StringFixed(2) + "%"
		},
		"row": func(name string, amount decimal.Decimal) string {
			return fmt.Sprintf("| %-*s | %*s |", c.config.NameWidth, name, c.config.AmountWidth, c.FormatAmount(amount))
		},
		"itemRow": func(item domain.BillingItem) string {
			name := item.Description
			if name == "" {
				name = item.ID
			}
			if item.Virtual {
				name = "* " + name
			}
			if len(name) > c.config.NameWidth {
				name = name[:c.config.NameWidth-3] + "..."
			}
			return fmt.Sprintf("| %-*s | %*s | %-*s |",
				c.config.NameWidth, name,
				c.config.AmountWidth, c.FormatAmount(item.Amount),
				c.config.StatusWidth, item.Status)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+",
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2))
		},
		"itemSeparator": func() string {
			return fmt.Sprintf("+%s+%s+%s+",
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.StatusWidth+2))
		},
		"entity": entityLabel,
	}
}

const totalsTemplate = `{{define "totals"}}{{separator}}
{{row "Revenue" .Revenue}}
{{row "Unbilled revenue" .UnbilledRevenue}}
{{row "Production value" .ProductionValue}}
{{row "Cost" .Cost}}
{{row "Gross profit" .GrossProfit}}
{{separator}}
{{row "Collected" .Collected}}
{{row "Paid expenses" .PaidExpenses}}
{{row "Net cash flow" .NetCashFlow}}
{{separator}}
{{row "Open invoices" .OpenInvoicesAmount}}
{{row "Overdue invoices" .OverdueInvoicesAmount}}
{{separator}}
Profit margin: {{percent .ProfitMargin}}
{{end}}`

const financialsTemplate = `
Financials for {{entity .Snapshot.Entity}}{{if .Snapshot.Partial}} (partial: no canonical id){{end}}
{{if .Snapshot.RefreshedAt}}Refreshed: {{.Snapshot.RefreshedAt.Format "2006-01-02 15:04:05 MST"}}
{{end}}
{{template "totals" .Snapshot.Totals}}{{if .WithItems}}
Billing items (* = virtual)
{{itemSeparator}}
{{range .Snapshot.BillingItems}}{{itemRow .}}
{{end}}{{itemSeparator}}
{{end}}{{if .Snapshot.Warnings}}
Warnings:
{{range .Snapshot.Warnings}}- {{.Ledger}} unavailable: {{.Message}}
{{end}}{{end}}`

const portfolioTemplate = `
Portfolio financials ({{len .Entries}} entities)
Refreshed: {{.RefreshedAt.Format "2006-01-02 15:04:05 MST"}}
{{range .Entries}}
=== {{entity .Entity}} ===
{{template "totals" .Totals}}{{end}}{{if .Warnings}}
Warnings:
{{range .Warnings}}- {{.Ledger}}{{if .EntityID}} ({{.EntityID}}){{end}} unavailable: {{.Message}}
{{end}}{{end}}`

func (c *Reporter) render(name, body string, data any) error {
	t, err := template.New(name).Funcs(c.funcs()).Parse(totalsTemplate + body)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}

func (c *Reporter) Financials(snapshot domain.FinancialsSnapshot, withItems bool) error {
	return c.render("financials", financialsTemplate, struct {
		Snapshot  domain.FinancialsSnapshot
		WithItems bool
	}{snapshot, withItems})
}

func (c *Reporter) Portfolio(snapshot domain.PortfolioSnapshot) error {
	return c.render("portfolio", portfolioTemplate, snapshot)
}

func entityLabel(e domain.Entity) string {
	label := string(e.Kind)
	if e.HasID() {
		label += " " + e.ID
	}
	if len(e.BookingIDs) > 0 {
		label += " [bookings: " + strings.Join(e.BookingIDs, ", ") + "]"
	}
	return label
}
