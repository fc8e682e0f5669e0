package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jask/debtboard/internal/debt"
)

const (
	maxBody    = 4 << 20
	maxMessage = 200
)

// ErrBodyTooLarge is returned when a response exceeds the body limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Client talks to the customer/payment backend.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	log     logrus.FieldLogger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// PaymentRequest is the body of a payment call.
type PaymentRequest struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

// PaymentResponse is the success body of a payment call.
type PaymentResponse struct {
	NewDebt *decimal.Decimal `json:"newDebt,omitempty"`
	Message string           `json:"message,omitempty"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}

// New builds a Client. BaseURL must be absolute.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("api: base url is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("api: base url %q is not absolute", raw)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Client{baseURL: u, token: opts.Token, http: hc, log: logger}, nil
}

// ListCustomers fetches the full customer collection.
func (c *Client) ListCustomers(ctx context.Context) ([]debt.Customer, error) {
	var out []debt.Customer
	if err := c.getList(ctx, "customers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions fetches the transaction history.
func (c *Client) ListTransactions(ctx context.Context) ([]debt.Transaction, error) {
	var out []debt.Transaction
	if err := c.getList(ctx, "transactions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitPayment records a payment against customerID. idempotencyKey is sent
// as the Idempotency-Key header when non-empty.
func (c *Client) SubmitPayment(ctx context.Context, customerID string, req PaymentRequest, idempotencyKey string) (PaymentResponse, error) {
	if strings.TrimSpace(customerID) == "" {
		return PaymentResponse{}, errors.New("api: customer id is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("api: encode payment: %w", err)
	}
	path := "customers/" + url.PathEscape(customerID) + "/payment"
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return PaymentResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	var out PaymentResponse
	if err := c.do(httpReq, &out); err != nil {
		return PaymentResponse{}, err
	}
	return out, nil
}

func (c *Client) getList(ctx context.Context, path string, dst any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return err
	}
	return decodeList(raw, dst)
}

// decodeList accepts a bare array or an envelope {"data": [...]}.
func decodeList(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return fmt.Errorf("api: decode envelope: %w", err)
		}
		trimmed = bytes.TrimSpace(env.Data)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil
		}
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("api: decode list: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("api: bad path %q: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, dst any) error {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("path", req.URL.Path).Warn("request failed")
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":  req.Method,
		"path":    req.URL.Path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(started).Round(time.Millisecond),
	}).Debug("request done")

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return fmt.Errorf("api: read body: %w", err)
	}
	if len(payload) > maxBody {
		return fmt.Errorf("api: %s %s: %w (over %d bytes)", req.Method, req.URL.Path, ErrBodyTooLarge, maxBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:  req.Method,
			Path:    req.URL.Path,
			Status:  resp.StatusCode,
			Message: errorMessage(payload),
		}
	}
	if dst == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("api: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func errorMessage(payload []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	text := strings.ToValidUTF8(strings.TrimSpace(string(payload)), "")
	return ansi.Truncate(text, maxMessage, "…")
}
