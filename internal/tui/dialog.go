package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/debtboard/internal/debt"
	"github.com/jask/debtboard/internal/service"
)

// amountPattern admits partial input: digits with at most one dot and two
// decimals.
var amountPattern = regexp.MustCompile(`^\d*\.?\d{0,2}$`)

type paymentDialog struct {
	customer   *debt.Customer
	input      textinput.Model
	key        string
	submitting bool
}

func newPaymentDialog() paymentDialog {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 16
	in.Width = 18
	in.Cursor.SetMode(cursor.CursorStatic)
	return paymentDialog{input: in}
}

func (d *paymentDialog) clear() {
	d.customer = nil
	d.key = ""
	d.submitting = false
	d.input.Reset()
	d.input.Blur()
}

// OpenPayment selects c, clears the draft and shows the payment dialog.
func (a *App) OpenPayment(c debt.Customer) tea.Cmd {
	a.dialog.customer = &c
	a.dialog.submitting = false
	a.dialog.key = service.NewIdempotencyKey()
	a.dialog.input.Reset()
	a.dialog.input.Placeholder = "max " + debt.FormatAmount(c.TotalDebt)
	a.modal = modalPayment
	return a.dialog.input.Focus()
}

// Draft is the payment currently being edited, if any.
func (a *App) Draft() (service.Draft, bool) {
	if a.dialog.customer == nil {
		return service.Draft{}, false
	}
	return service.Draft{
		Customer:       a.dialog.customer,
		AmountText:     a.dialog.input.Value(),
		Currency:       a.cfg.UI.Currency,
		IdempotencyKey: a.dialog.key,
	}, true
}

func (a *App) handlePaymentKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}
	// an in-flight submission locks the dialog
	if a.dialog.submitting {
		return a, nil
	}
	switch {
	case key.Matches(m, dialogKeys.Cancel):
		a.modal = modalNone
		a.dialog.input.Blur()
		return a, nil
	case key.Matches(m, dialogKeys.Confirm):
		return a, a.confirmPayment()
	}
	if m.Type == tea.KeyRunes && !a.acceptsRunes(m.Runes) {
		return a, nil
	}
	var cmd tea.Cmd
	a.dialog.input, cmd = a.dialog.input.Update(m)
	return a, cmd
}

func (a *App) confirmPayment() tea.Cmd {
	draft, ok := a.Draft()
	if !ok {
		return a.notify(SeverityError, "Invalid payment", service.ErrNoCustomer.Error())
	}
	if a.services.Payments == nil {
		return a.notify(SeverityError, "Payment failed", "payments are not configured")
	}
	if _, err := a.services.Payments.Validate(draft); err != nil {
		return a.notify(SeverityError, "Invalid amount", err.Error())
	}
	a.dialog.submitting = true
	return a.submitCmd(draft)
}

// acceptsRunes reports whether inserting runes at the cursor keeps the
// amount well formed.
func (a *App) acceptsRunes(runes []rune) bool {
	value := []rune(a.dialog.input.Value())
	pos := min(a.dialog.input.Position(), len(value))
	candidate := string(value[:pos]) + string(runes) + string(value[pos:])
	return amountPattern.MatchString(candidate)
}

func (a *App) renderDialog() string {
	c := a.dialog.customer
	if c == nil {
		return ""
	}
	cur := a.cfg.UI.Currency
	var b strings.Builder
	b.WriteString(titleStyle.Render("Record payment"))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("Customer      ") + textStyle.Render(c.Name) + "\n")
	b.WriteString(mutedStyle.Render("Current debt  ") + textStyle.Render(debt.Money(debt.ParseOptional(c.TotalDebt), cur)) + "\n")
	b.WriteString(mutedStyle.Render("Amount        ") + a.dialog.input.View() + "\n")
	if rest, ok := debt.Remaining(c.TotalDebt, a.dialog.input.Value()); ok {
		b.WriteString("\n" + mutedStyle.Render("Remaining after payment: ") + textStyle.Render(debt.Money(rest, cur)) + "\n")
	}
	b.WriteString("\n")
	if a.dialog.submitting {
		b.WriteString(mutedStyle.Render("Processing..."))
	} else {
		b.WriteString(helpLine(dialogKeys.help()))
	}
	return b.String()
}
