// Package apitest provides an in-memory customer/payment backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/jask/debtboard/internal/debt"
)

// Payment is a payment the fake backend accepted.
type Payment struct {
	CustomerID     string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
}

// Server is a fake backend. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu              sync.Mutex
	customers       []debt.Customer
	transactions    []debt.Transaction
	payments        []Payment
	byKey           map[string]json.RawMessage
	hits            map[string]int
	customersStatus int
	paymentStatus   int
	omitNewDebt     bool
	token           string
}

// New starts a fake backend seeded with customers.
func New(customers ...debt.Customer) *Server {
	s := &Server{
		customers: append([]debt.Customer(nil), customers...),
		byKey:     map[string]json.RawMessage{},
		hits:      map[string]int{},
	}
	r := mux.NewRouter()
	r.HandleFunc("/customers", s.listCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}/payment", s.pay).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.listTransactions).Methods(http.MethodGet)
	r.Use(s.count, s.auth)
	s.Server = httptest.NewServer(r)
	return s
}

// RequireToken makes every route demand "Authorization: Bearer token".
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// FailCustomers makes GET /customers answer with status. Zero restores.
func (s *Server) FailCustomers(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customersStatus = status
}

// FailPayments makes payment calls answer with status. Zero restores.
func (s *Server) FailPayments(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentStatus = status
}

// OmitNewDebt drops newDebt from successful payment responses.
func (s *Server) OmitNewDebt(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitNewDebt = omit
}

// SetCustomers replaces the customer collection.
func (s *Server) SetCustomers(customers ...debt.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append([]debt.Customer(nil), customers...)
}

// Payments returns the accepted payments in order.
func (s *Server) Payments() []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payment(nil), s.payments...)
}

// Hits returns how many requests reached the route template, e.g.
// "GET /customers".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tpl := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if t, err := route.GetPathTemplate(); err == nil {
				tpl = t
			}
		}
		s.mu.Lock()
		s.hits[r.Method+" "+tpl]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listCustomers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := s.customersStatus
	out := append([]debt.Customer(nil), s.customers...)
	s.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "customers unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTransactions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]debt.Transaction(nil), s.transactions...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) pay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	key := r.Header.Get("Idempotency-Key")

	var body struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paymentStatus != 0 {
		writeJSON(w, s.paymentStatus, map[string]string{"error": "payment rejected"})
		return
	}
	if key != "" {
		if prev, ok := s.byKey[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(prev)
			return
		}
	}
	idx := -1
	for i, c := range s.customers {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		return
	}
	if !body.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
		return
	}

	c := s.customers[idx]
	newDebt := debt.ParseOptional(c.TotalDebt).Sub(body.Amount)
	text := newDebt.StringFixed(2)
	c.TotalDebt = &text
	s.customers[idx] = c

	amount := body.Amount.StringFixed(2)
	now := time.Now().UTC().Format(time.RFC3339)
	s.payments = append(s.payments, Payment{CustomerID: id, Amount: body.Amount, Currency: body.Currency, IdempotencyKey: key})
	s.transactions = append([]debt.Transaction{{
		ID:           "tx-" + strconv.Itoa(len(s.payments)),
		CustomerID:   id,
		CustomerName: c.Name,
		Type:         "payment",
		Amount:       &amount,
		Currency:     body.Currency,
		CreatedAt:    &now,
	}}, s.transactions...)

	resp := map[string]any{"message": "payment recorded"}
	if !s.omitNewDebt {
		f, _ := newDebt.Float64()
		resp["newDebt"] = f
	}
	encoded, _ := json.Marshal(resp)
	if key != "" {
		s.byKey[key] = encoded
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
