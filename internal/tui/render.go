package tui

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/debtboard/internal/api"
	"github.com/jask/debtboard/internal/debt"
	"github.com/jask/debtboard/internal/query"
	"github.com/jask/debtboard/internal/tui/widgets"
)

const (
	placeholderRows = 4
	defaultWidth    = 80
	nameWidth       = 22
)

func (a *App) View() string {
	var body string
	switch a.view {
	case viewHistory:
		body = a.renderHistory()
	default:
		body = a.renderDebtors()
	}

	parts := []string{a.renderHeader(), "", body}
	if t := a.renderToasts(); t != "" {
		parts = append(parts, "", t)
	}
	parts = append(parts, "", widgets.Bar(footerStyle, a.barWidth(), a.renderHelp()))
	base := strings.Join(parts, "\n")

	if a.modal == modalPayment {
		if popup := a.renderDialog(); popup != "" {
			return widgets.RenderPopup(base, popup, a.width, a.height, colorAccent)
		}
	}
	return base
}

func (a *App) barWidth() int {
	if a.width > 0 {
		return a.width
	}
	return defaultWidth
}

func (a *App) renderHeader() string {
	tabs := []string{"Debtors", "History"}
	active := 0
	if a.view == viewHistory {
		active = 1
	}
	for i, t := range tabs {
		if i == active {
			tabs[i] = cursorStyle.Render("[" + t + "]")
		} else {
			tabs[i] = mutedStyle.Render(" " + t + " ")
		}
	}
	line := titleStyle.Render("Outstanding debts") + "  " + strings.Join(tabs, " ")
	if a.view == viewDebtors {
		line += "  " + mutedStyle.Render("Sort: "+a.order.Label())
	}
	return line
}

func (a *App) renderDebtors() string {
	var b strings.Builder
	if a.customers.Status == query.StatusError {
		msg := "Could not load customers"
		if a.customers.Err != nil {
			msg += ": " + a.customers.Err.Error()
		}
		if api.IsStatus(a.customers.Err, http.StatusUnauthorized) {
			msg += " (run debtboard set-token)"
		}
		b.WriteString(errorBannerStyle.Render(msg+"  [r] retry") + "\n\n")
	}

	customers, _ := a.customers.Data.([]debt.Customer)
	if customers == nil && a.customers.Status != query.StatusSuccess {
		if a.customers.Status == query.StatusError {
			return strings.TrimRight(b.String(), "\n")
		}
		for i := 0; i < placeholderRows; i++ {
			b.WriteString(placeholderStyle.Render("  ░░░  ░░░░░░░░░░░░░░░░░░  ░░░░░░░░░      ░░░░░░░░") + "\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}

	debtors := a.debtors()
	if len(debtors) == 0 {
		b.WriteString(mutedStyle.Render("No outstanding debts"))
		return b.String()
	}

	for i, c := range debtors {
		b.WriteString(a.renderRow(c, i == a.cursor) + "\n")
	}
	sum := debt.Summarize(debtors)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d debtors", sum.Count)))
	b.WriteString("  ")
	b.WriteString(textStyle.Bold(true).Render("Total " + debt.Money(sum.Total, a.cfg.UI.Currency)))
	return b.String()
}

func (a *App) renderRow(c debt.Customer, selected bool) string {
	marker := "  "
	if selected {
		marker = cursorStyle.Render("› ")
	}
	amount := lipgloss.NewStyle().
		Foreground(severityColor(debt.SeverityOf(c.TotalDebt))).
		Width(12).
		Align(lipgloss.Right).
		Render(debt.FormatAmount(c.TotalDebt))
	name := ansi.Truncate(c.Name, nameWidth, "…")
	name += strings.Repeat(" ", max(0, nameWidth-ansi.StringWidth(name)))
	pay := mutedStyle.Render("pay")
	if selected {
		pay = payStyle.Render("[p] pay")
	}
	return marker +
		avatarStyle.Render(" "+avatar(c.Name)+" ") + " " +
		textStyle.Render(name) + " " +
		mutedStyle.Render(fmt.Sprintf("%-9s", debt.ShortID(c.ID))) + " " +
		amount + " " + a.cfg.UI.Currency + " " +
		badgeStyle.Render("debt") + " " + pay
}

func avatar(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return strings.ToUpper(string(r))
	}
	return "?"
}

func (a *App) renderHistory() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Transactions") + "\n")
	switch {
	case a.transactions.Status == query.StatusError:
		b.WriteString(errorBannerStyle.Render("Could not load transactions  [r] retry") + "\n")
	case a.transactions.Data == nil:
		b.WriteString(mutedStyle.Render("Loading...") + "\n")
	}
	txs, _ := a.transactions.Data.([]debt.Transaction)
	txs = slices.Clone(txs)
	slices.SortStableFunc(txs, func(x, y debt.Transaction) int {
		return debt.ParseTimestamp(y.CreatedAt).Compare(debt.ParseTimestamp(x.CreatedAt))
	})
	if len(txs) == 0 && a.transactions.Data != nil {
		b.WriteString(mutedStyle.Render("No transactions yet") + "\n")
	}
	limit := len(txs)
	if a.height > 0 {
		limit = min(limit, max(5, a.height/2))
	}
	for _, tx := range txs[:limit] {
		when := "-"
		if tx.CreatedAt != nil {
			when = debt.ParseTimestamp(tx.CreatedAt).Format("2006-01-02 15:04")
		}
		cur := tx.Currency
		if cur == "" {
			cur = a.cfg.UI.Currency
		}
		b.WriteString(fmt.Sprintf("  %s  %-10s %-20s %12s %s\n",
			mutedStyle.Render(when),
			tx.Type,
			ansi.Truncate(tx.CustomerName, 20, "…"),
			debt.FormatAmount(tx.Amount),
			cur,
		))
	}

	if len(a.attempts) > 0 {
		b.WriteString("\n" + titleStyle.Render("Payment attempts") + "\n")
		for _, at := range a.attempts {
			line := fmt.Sprintf("  %s  %-9s %-20s %12s %s  tries %d",
				at.CreatedAt.Local().Format("2006-01-02 15:04"),
				at.Status,
				ansi.Truncate(at.CustomerName, 20, "…"),
				at.Amount,
				at.Currency,
				at.Tries,
			)
			if at.Error != nil {
				line += "  " + *at.Error
			}
			b.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderToasts() string {
	lines := make([]string, 0, len(a.toasts))
	for _, t := range a.toasts {
		style := lipgloss.NewStyle().Foreground(toastColor(t.Severity)).Bold(true)
		line := style.Render(t.Title)
		if t.Description != "" {
			line += "  " + textStyle.Render(t.Description)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderHelp() string {
	switch a.modal {
	case modalFind:
		return "Find: " + a.find.View()
	case modalPayment:
		return helpLine(dialogKeys.help())
	}
	return helpLine(listKeys.help())
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" && h.Desc == "" {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+" "+helpDescStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
