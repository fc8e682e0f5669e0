package tui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jask/debtboard/internal/api"
	"github.com/jask/debtboard/internal/config"
	"github.com/jask/debtboard/internal/database/repository"
	"github.com/jask/debtboard/internal/debt"
	"github.com/jask/debtboard/internal/query"
	"github.com/jask/debtboard/internal/service"
)

// App is the dashboard view-model. Every state change goes through Update.
type App struct {
	ctx        context.Context
	cfg        config.Config
	cache      *query.Cache
	services   Services
	log        logrus.FieldLogger
	saveSort   func(order string) error
	toastTTL   time.Duration

	view   viewState
	modal  modalState
	order  debt.SortOrder
	cursor int

	customers    query.Snapshot
	transactions query.Snapshot
	attempts     []repository.PaymentAttempt

	dialog paymentDialog
	find   textinput.Model

	toasts    []Toast
	nextToast int

	width  int
	height int
}

// AttemptLister reads the local payment journal.
type AttemptLister interface {
	Recent(ctx context.Context, limit int) ([]repository.PaymentAttempt, error)
}

type Services struct {
	Payments *service.PaymentService
	Export   *service.ExportService
	Journal  AttemptLister
}

type viewState string

const (
	viewDebtors viewState = "debtors"
	viewHistory viewState = "history"
)

type modalState string

const (
	modalNone    modalState = ""
	modalPayment modalState = "payment"
	modalFind    modalState = "find"
)

const recentAttempts = 10

func New(ctx context.Context, cfg config.Config, cache *query.Cache, services Services, log logrus.FieldLogger) *App {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	order, err := debt.ParseSortOrder(cfg.UI.SortOrder)
	if err != nil {
		order = debt.SortHighest
	}
	find := textinput.New()
	find.Prompt = "/"
	find.Placeholder = "name or id"
	find.CharLimit = 64
	find.Cursor.SetMode(cursor.CursorStatic)

	return &App{
		ctx:        ctx,
		cfg:        cfg,
		cache:      cache,
		services:   services,
		log:        log,
		saveSort:   config.SaveSortOrder,
		toastTTL:   defaultToastTTL,
		view:       viewDebtors,
		order:      order,
		customers:  query.Snapshot{Key: query.KeyCustomers, Status: query.StatusLoading},
		transactions: query.Snapshot{
			Key:    query.KeyTransactions,
			Status: query.StatusLoading,
		},
		dialog: newPaymentDialog(),
		find:   find,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.fetchCmd(query.KeyCustomers),
		a.fetchCmd(query.KeyTransactions),
		a.loadAttempts(),
	)
}

func (a *App) fetchCmd(key string) tea.Cmd {
	return func() tea.Msg {
		snap, _ := a.cache.Fetch(a.ctx, key)
		return queryMsg{snap: snap}
	}
}

func (a *App) refetchCmd(key string) tea.Cmd {
	a.markLoading(key)
	return func() tea.Msg {
		snap, _ := a.cache.Refetch(a.ctx, key)
		return queryMsg{snap: snap}
	}
}

func (a *App) markLoading(key string) {
	switch key {
	case query.KeyCustomers:
		a.customers.Status = query.StatusLoading
	case query.KeyTransactions:
		a.transactions.Status = query.StatusLoading
	}
}

func (a *App) loadAttempts() tea.Cmd {
	if a.services.Journal == nil {
		return nil
	}
	return func() tea.Msg {
		list, err := a.services.Journal.Recent(a.ctx, recentAttempts)
		return attemptsMsg{attempts: list, err: err}
	}
}

func (a *App) submitCmd(d service.Draft) tea.Cmd {
	return func() tea.Msg {
		res, err := a.services.Payments.Submit(a.ctx, d)
		return paymentDoneMsg{result: res, err: err, key: d.IdempotencyKey}
	}
}

func (a *App) saveSortCmd() tea.Cmd {
	order := string(a.order)
	save := a.saveSort
	return func() tea.Msg {
		if save == nil {
			return nil
		}
		if err := save(order); err != nil {
			return errMsg{fmt.Errorf("save sort order: %w", err)}
		}
		return nil
	}
}

func (a *App) exportCmd(debtors []debt.Customer) tea.Cmd {
	currency := a.cfg.UI.Currency
	name := fmt.Sprintf("debtors-%s.xlsx", time.Now().Format("20060102-150405"))
	return func() tea.Msg {
		path, err := a.services.Export.Debtors(name, debtors, currency)
		return exportDoneMsg{path: path, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
	case tea.KeyMsg:
		switch a.modal {
		case modalPayment:
			return a.handlePaymentKey(m)
		case modalFind:
			return a.handleFindKey(m)
		}
		return a.handleListKey(m)
	case queryMsg:
		a.applySnapshot(m.snap)
	case attemptsMsg:
		if m.err != nil {
			a.log.WithError(m.err).Warn("load payment journal")
			break
		}
		a.attempts = m.attempts
	case paymentDoneMsg:
		return a.finishPayment(m)
	case exportDoneMsg:
		if m.err != nil {
			return a, a.notify(SeverityError, "Export failed", m.err.Error())
		}
		return a, a.notify(SeveritySuccess, "Exported debtors", m.path)
	case toastExpiredMsg:
		a.expireToast(m.id)
	case errMsg:
		a.log.WithError(m.error).Error("dashboard")
		return a, a.notify(SeverityError, "Error", m.Error())
	}
	return a, nil
}

func (a *App) applySnapshot(snap query.Snapshot) {
	switch snap.Key {
	case query.KeyCustomers:
		a.customers = snap
		if snap.Err != nil {
			a.log.WithError(snap.Err).Warn("load customers")
		}
		if n := len(a.debtors()); a.cursor >= n {
			a.cursor = max(0, n-1)
		}
	case query.KeyTransactions:
		a.transactions = snap
		if snap.Err != nil {
			a.log.WithError(snap.Err).Warn("load transactions")
		}
	}
}

func (a *App) handleListKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, listKeys.Quit):
		return a, tea.Quit
	case key.Matches(m, listKeys.Switch):
		if a.view == viewDebtors {
			a.view = viewHistory
		} else {
			a.view = viewDebtors
		}
	case key.Matches(m, listKeys.Refresh):
		return a, tea.Batch(
			a.refetchCmd(query.KeyCustomers),
			a.refetchCmd(query.KeyTransactions),
			a.loadAttempts(),
		)
	}
	if a.view != viewDebtors {
		return a, nil
	}

	debtors := a.debtors()
	switch {
	case key.Matches(m, listKeys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, listKeys.Down):
		if a.cursor < len(debtors)-1 {
			a.cursor++
		}
	case key.Matches(m, listKeys.Sort):
		a.order = a.order.Next()
		a.cfg.UI.SortOrder = string(a.order)
		a.cursor = 0
		return a, a.saveSortCmd()
	case key.Matches(m, listKeys.Pay):
		if len(debtors) == 0 {
			return a, nil
		}
		return a, a.OpenPayment(debtors[a.cursor])
	case key.Matches(m, listKeys.Find):
		if len(debtors) == 0 {
			return a, nil
		}
		a.modal = modalFind
		a.find.Reset()
		return a, a.find.Focus()
	case key.Matches(m, listKeys.Export):
		if len(debtors) == 0 {
			return a, a.notify(SeverityInfo, "Nothing to export", "No outstanding debts")
		}
		if a.services.Export == nil {
			return a, a.notify(SeverityError, "Export failed", "export is not configured")
		}
		return a, a.exportCmd(debtors)
	}
	return a, nil
}

func (a *App) handleFindKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.modal = modalNone
		a.find.Blur()
		return a, nil
	case tea.KeyEnter:
		a.modal = modalNone
		a.find.Blur()
		q := a.find.Value()
		if idx, ok := service.FindDebtor(a.debtors(), q); ok {
			a.cursor = idx
			return a, nil
		}
		return a, a.notify(SeverityInfo, "No match", fmt.Sprintf("No debtor matches %q", q))
	}
	var cmd tea.Cmd
	a.find, cmd = a.find.Update(m)
	return a, cmd
}

func (a *App) finishPayment(m paymentDoneMsg) (tea.Model, tea.Cmd) {
	a.dialog.submitting = false
	if m.err != nil {
		a.log.WithError(m.err).WithField("key", m.key).Warn("payment not recorded")
		return a, tea.Batch(
			a.notify(SeverityError, failureTitle(m.err), m.err.Error()),
			a.loadAttempts(),
		)
	}

	a.cache.Invalidate(query.KeyCustomers)
	a.cache.Invalidate(query.KeyTransactions)
	a.modal = modalNone
	a.dialog.clear()

	cur := m.result.Currency
	desc := fmt.Sprintf("Paid %s. Remaining debt: %s", debt.Money(m.result.Amount, cur), debt.Money(m.result.NewDebt, cur))
	return a, tea.Batch(
		a.refetchCmd(query.KeyCustomers),
		a.refetchCmd(query.KeyTransactions),
		a.loadAttempts(),
		a.notify(SeveritySuccess, "Payment recorded", desc),
	)
}

// failureTitle names a Submit error for its toast.
func failureTitle(err error) string {
	switch {
	case service.IsValidation(err):
		return "Invalid amount"
	case api.IsStatus(err, http.StatusUnauthorized), api.IsStatus(err, http.StatusForbidden):
		return "Not authorized"
	}
	return "Payment failed"
}

// debtors derives the visible list from the last customer snapshot.
func (a *App) debtors() []debt.Customer {
	customers, _ := a.customers.Data.([]debt.Customer)
	return debt.Debtors(customers, a.order)
}

// messages
type queryMsg struct{ snap query.Snapshot }

type attemptsMsg struct {
	attempts []repository.PaymentAttempt
	err      error
}

type paymentDoneMsg struct {
	result service.PaymentResult
	err    error
	key    string
}

type exportDoneMsg struct {
	path string
	err  error
}

type errMsg struct{ error }
