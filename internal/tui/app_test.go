package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/jask/debtboard/internal/api"
	"github.com/jask/debtboard/internal/api/apitest"
	"github.com/jask/debtboard/internal/config"
	"github.com/jask/debtboard/internal/database"
	"github.com/jask/debtboard/internal/database/repository"
	"github.com/jask/debtboard/internal/debt"
	"github.com/jask/debtboard/internal/query"
	"github.com/jask/debtboard/internal/service"
)

func strp(s string) *string { return &s }

func ali() debt.Customer {
	return debt.Customer{ID: "abc123", Name: "Ali", TotalDebt: strp("1500.00"), CreatedAt: strp("2026-01-02T10:00:00Z")}
}

func zed() debt.Customer {
	return debt.Customer{ID: "zed00001", Name: "Zed", TotalDebt: strp("7200"), CreatedAt: strp("2025-06-01T10:00:00Z")}
}

type harness struct {
	app   *App
	srv   *apitest.Server
	cache *query.Cache
	saved []string
}

func newHarness(t *testing.T, customers ...debt.Customer) *harness {
	t.Helper()
	srv := apitest.New(customers...)
	t.Cleanup(srv.Close)

	client, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	db, err := database.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))
	journal := repository.NewPaymentAttemptRepo(db)

	cache := query.New(query.Options{})
	cache.Register(query.KeyCustomers, func(ctx context.Context) (any, error) { return client.ListCustomers(ctx) })
	cache.Register(query.KeyTransactions, func(ctx context.Context) (any, error) { return client.ListTransactions(ctx) })

	cfg := config.Config{UI: config.UIConfig{Currency: "USD", SortOrder: "highest"}}
	h := &harness{srv: srv, cache: cache}
	h.app = New(context.Background(), cfg, cache, Services{
		Payments: &service.PaymentService{Client: client, Journal: journal, AllowOverpay: true},
		Export:   &service.ExportService{Dir: t.TempDir()},
		Journal:  journal,
	}, nil)
	h.app.toastTTL = time.Millisecond
	h.app.saveSort = func(order string) error {
		h.saved = append(h.saved, order)
		return nil
	}
	return h
}

// drain runs cmd and feeds every resulting message back through Update.
func (h *harness) drain(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch m := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, m...)
		default:
			_, next := h.app.Update(m)
			queue = append(queue, next)
		}
	}
}

func (h *harness) press(k tea.KeyMsg) tea.Cmd {
	_, cmd := h.app.Update(k)
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.press(runes(string(r)))
	}
}

func (h *harness) view() string { return ansi.Strip(h.app.View()) }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
)

func (h *harness) lastToast(t *testing.T) Toast {
	t.Helper()
	toasts := h.app.Toasts()
	require.NotEmpty(t, toasts)
	return toasts[len(toasts)-1]
}

func TestLoadingShowsPlaceholders(t *testing.T) {
	h := newHarness(t, ali())

	v := h.view()
	require.Contains(t, v, "░░░")
	require.NotContains(t, v, "No outstanding debts")
}

func TestEmptyListShowsEmptyState(t *testing.T) {
	h := newHarness(t, debt.Customer{ID: "c1", Name: "Paid Up", TotalDebt: strp("0")})
	h.drain(t, h.app.Init())

	v := h.view()
	require.Contains(t, v, "No outstanding debts")
	require.NotContains(t, v, "░░░")
	require.NotContains(t, v, "Total")
}

func TestDebtorRowsAndFooter(t *testing.T) {
	h := newHarness(t, ali(), zed(), debt.Customer{ID: "c3", Name: "Nobody", TotalDebt: strp("bad")})
	h.drain(t, h.app.Init())

	v := h.view()
	require.Contains(t, v, "Ali")
	require.Contains(t, v, "abc123…")
	require.Contains(t, v, "1500.00")
	require.Contains(t, v, "7200.00")
	require.NotContains(t, v, "Nobody")
	require.Contains(t, v, "2 debtors")
	require.Contains(t, v, "Total 8700.00 USD")
	require.Contains(t, v, "Sort: Highest debt")
}

func TestOpenPaymentResetsDraft(t *testing.T) {
	h := newHarness(t, ali(), zed())
	h.drain(t, h.app.Init())

	h.press(runes("p"))
	first, ok := h.app.Draft()
	require.True(t, ok)
	require.Equal(t, "zed00001", first.Customer.ID)
	h.typeText("12")
	h.press(esc)
	require.Equal(t, modalNone, h.app.modal)

	h.press(runes("j"))
	h.press(runes("p"))
	second, ok := h.app.Draft()
	require.True(t, ok)
	require.Equal(t, "abc123", second.Customer.ID)
	require.Empty(t, second.AmountText)
	require.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
	require.Equal(t, modalPayment, h.app.modal)
}

func TestEmptyOrZeroAmountIssuesNoRequest(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.press(runes("p"))

	h.press(enter)
	require.Equal(t, SeverityError, h.lastToast(t).Severity)
	require.Equal(t, service.ErrAmountRequired.Error(), h.lastToast(t).Description)

	h.typeText("0")
	h.press(enter)
	require.Equal(t, service.ErrAmountNotPositive.Error(), h.lastToast(t).Description)

	require.False(t, h.app.dialog.submitting)
	require.Equal(t, modalPayment, h.app.modal)
	require.Equal(t, 0, h.srv.Hits("POST /customers/{id}/payment"))
}

func TestPaymentSuccess(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())

	h.press(runes("p"))
	h.typeText("500")
	require.Contains(t, h.view(), "Remaining after payment: 1000.00 USD")
	draft, _ := h.app.Draft()

	submit := h.press(enter)
	require.NotNil(t, submit)
	require.True(t, h.app.dialog.submitting)
	require.Contains(t, h.view(), "Processing...")

	msg := submit()
	done, ok := msg.(paymentDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	_, after := h.app.Update(msg)
	require.True(t, h.cache.Snapshot(query.KeyCustomers).Stale)
	require.True(t, h.cache.Snapshot(query.KeyTransactions).Stale)
	require.Equal(t, modalNone, h.app.modal)
	_, open := h.app.Draft()
	require.False(t, open)
	toast := h.lastToast(t)
	require.Equal(t, SeveritySuccess, toast.Severity)
	require.Equal(t, "Paid 500.00 USD. Remaining debt: 1000.00 USD", toast.Description)

	payments := h.srv.Payments()
	require.Len(t, payments, 1)
	require.Equal(t, "abc123", payments[0].CustomerID)
	require.Equal(t, "500", payments[0].Amount.String())
	require.Equal(t, "USD", payments[0].Currency)
	require.Equal(t, draft.IdempotencyKey, payments[0].IdempotencyKey)

	h.drain(t, after)
	require.False(t, h.cache.Snapshot(query.KeyCustomers).Stale)
	require.Empty(t, h.app.Toasts())
	require.Contains(t, h.view(), "Total 1000.00 USD")
	require.Len(t, h.app.attempts, 1)
	require.Equal(t, repository.AttemptSucceeded, h.app.attempts[0].Status)
}

func TestPaymentFailureKeepsDialog(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.srv.FailPayments(http.StatusBadGateway)

	h.press(runes("p"))
	h.typeText("500")
	before, _ := h.app.Draft()
	submit := h.press(enter)
	require.NotNil(t, submit)
	h.app.Update(submit())

	require.Equal(t, modalPayment, h.app.modal)
	require.False(t, h.app.dialog.submitting)
	draft, ok := h.app.Draft()
	require.True(t, ok)
	require.Equal(t, "abc123", draft.Customer.ID)
	require.Equal(t, "500", draft.AmountText)
	require.Equal(t, before.IdempotencyKey, draft.IdempotencyKey)
	toast := h.lastToast(t)
	require.Equal(t, SeverityError, toast.Severity)
	require.Equal(t, "Payment failed", toast.Title)
	require.False(t, h.cache.Snapshot(query.KeyCustomers).Stale)
}

func TestConfirmWhileSubmittingIsDropped(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())

	h.press(runes("p"))
	h.typeText("500")
	submit := h.press(enter)
	require.NotNil(t, submit)

	require.Nil(t, h.press(enter))
	require.Nil(t, h.press(esc))
	h.typeText("9")
	require.Equal(t, modalPayment, h.app.modal)
	draft, _ := h.app.Draft()
	require.Equal(t, "500", draft.AmountText)

	h.drain(t, submit)
	require.Len(t, h.srv.Payments(), 1)
}

func TestAmountInputFiltersRunes(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.press(runes("p"))

	h.typeText("1a2.3.45-6")
	draft, _ := h.app.Draft()
	require.Equal(t, "12.34", draft.AmountText)
}

func TestSortTogglePersists(t *testing.T) {
	h := newHarness(t, ali(), zed())
	h.drain(t, h.app.Init())

	h.drain(t, h.press(runes("s")))
	require.Equal(t, debt.SortNewest, h.app.order)
	require.Len(t, h.saved, 1)
	require.Equal(t, []string{"newest"}, h.saved)
	require.Contains(t, h.view(), "Sort: Newest first")

	h.press(runes("p"))
	draft, _ := h.app.Draft()
	require.Equal(t, "abc123", draft.Customer.ID)
}

func TestSortSaveErrorIsShown(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.app.saveSort = func(string) error { return errors.New("read-only fs") }

	cmd := h.press(runes("s"))
	h.app.Update(cmd())
	require.Contains(t, h.lastToast(t).Description, "read-only fs")
}

func TestFetchErrorShowsBannerAndRetry(t *testing.T) {
	h := newHarness(t, ali())
	h.srv.FailCustomers(http.StatusInternalServerError)
	h.drain(t, h.app.Init())

	v := h.view()
	require.Contains(t, v, "Could not load customers")
	require.Contains(t, v, "[r] retry")
	require.NotContains(t, v, "░░░")

	h.srv.FailCustomers(0)
	h.drain(t, h.press(runes("r")))
	v = h.view()
	require.NotContains(t, v, "Could not load customers")
	require.Contains(t, v, "Ali")
}

func TestFindMovesCursor(t *testing.T) {
	h := newHarness(t, ali(), zed())
	h.drain(t, h.app.Init())
	require.Equal(t, 0, h.app.cursor)

	h.press(runes("/"))
	require.Equal(t, modalFind, h.app.modal)
	h.typeText("ali")
	h.press(enter)
	require.Equal(t, modalNone, h.app.modal)
	require.Equal(t, 1, h.app.cursor)

	h.press(runes("/"))
	h.typeText("qqqqqq")
	h.press(enter)
	require.Equal(t, "No match", h.lastToast(t).Title)
	require.Equal(t, 1, h.app.cursor)
}

func TestExportWritesWorkbook(t *testing.T) {
	h := newHarness(t, ali(), zed())
	h.drain(t, h.app.Init())

	cmd := h.press(runes("x"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(exportDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	require.FileExists(t, msg.path)
}

func TestHistoryPaneListsTransactionsAndAttempts(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())

	h.press(runes("p"))
	h.typeText("250")
	h.drain(t, h.press(enter))

	h.press(tab)
	v := h.view()
	require.Contains(t, v, "Transactions")
	require.Contains(t, v, "250.00")
	require.Contains(t, v, "Payment attempts")
	require.Contains(t, v, "succeeded")

	// list keys are inert outside the debtor view
	require.Nil(t, h.press(runes("p")))
	require.Equal(t, modalNone, h.app.modal)
}

func TestToastExpires(t *testing.T) {
	h := newHarness(t)
	h.app.notify(SeverityInfo, "hello", "")
	h.app.notify(SeverityInfo, "world", "")
	require.Len(t, h.app.Toasts(), 2)

	h.app.Update(toastExpiredMsg{id: 1})
	require.Len(t, h.app.Toasts(), 1)
	require.Equal(t, "world", h.app.Toasts()[0].Title)
}

func TestDialogDrawnOverList(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	h.press(runes("p"))
	v := h.view()
	require.Contains(t, v, "Record payment")
	require.Contains(t, v, "max 1500.00")
	require.Contains(t, v, "Outstanding debts")
}

func TestPaymentModalWithoutCustomerDrawsOnlyList(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	h.app.modal = modalPayment
	require.Nil(t, h.app.dialog.customer)
	v := h.view()
	require.NotContains(t, v, "Record payment")
	require.NotContains(t, v, "Remaining after payment")
	require.Contains(t, v, "Outstanding debts")
	require.Contains(t, v, "Ali")

	cmd := h.press(enter)
	require.NotNil(t, cmd)
	require.Equal(t, service.ErrNoCustomer.Error(), h.lastToast(t).Description)
	require.Equal(t, 0, h.srv.Hits("POST /customers/{id}/payment"))
}

func TestPaymentFailureTitles(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", fmt.Errorf("submit: %w", service.ErrAmountExceedsDebt), "Invalid amount"},
		{"unauthorized", &api.StatusError{Method: "POST", Path: "/customers/x/payment", Status: http.StatusUnauthorized}, "Not authorized"},
		{"forbidden", fmt.Errorf("pay: %w", &api.StatusError{Status: http.StatusForbidden}), "Not authorized"},
		{"upstream", &api.StatusError{Status: http.StatusBadGateway}, "Payment failed"},
		{"network", errors.New("connection refused"), "Payment failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, failureTitle(tt.err))
		})
	}
}

func TestUnauthorizedPaymentToast(t *testing.T) {
	h := newHarness(t, ali())
	h.drain(t, h.app.Init())
	h.srv.FailPayments(http.StatusUnauthorized)

	h.press(runes("p"))
	h.typeText("10")
	submit := h.press(enter)
	require.NotNil(t, submit)
	h.app.Update(submit())

	require.Equal(t, "Not authorized", h.lastToast(t).Title)
	require.Equal(t, modalPayment, h.app.modal)
}

func TestUnauthorizedFetchSuggestsToken(t *testing.T) {
	h := newHarness(t, ali())
	h.srv.FailCustomers(http.StatusUnauthorized)
	h.drain(t, h.app.Init())

	require.Contains(t, h.view(), "run debtboard set-token")
}
