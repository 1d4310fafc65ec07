package restoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"

	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
)

const (
	// IdempotencyHeader carries one key per order submission so the resto API
	// can drop a replayed POST.
	IdempotencyHeader = "Idempotency-Key"

	maxErrorBody = 4 << 10
)

// TokenSource yields the bearer credential for a request. The terminal does
// not interpret it; an empty token means no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Client talks to the resto API: GET /items, POST /orders and GET /orders.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     aqm.Logger
}

// NewClient builds a client for baseURL. A nil tokens falls back to the
// credential stored in the request context (see WithBearer).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger aqm.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("resto api url is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if tokens == nil {
		tokens = ContextTokens{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		logger:     logger,
	}, nil
}

// ListItems returns the full menu, available or not.
func (c *Client) ListItems(ctx context.Context) ([]checkout.MenuItem, error) {
	var records []menuItemRecord
	if err := c.do(ctx, http.MethodGet, "/items", nil, nil, &records); err != nil {
		return nil, err
	}

	items := make([]checkout.MenuItem, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.toMenuItem())
	}
	return items, nil
}

// CreateOrder posts order and returns what the server echoed back. A 2xx
// means the order exists, so a body that cannot be read is not an error:
// the identity fields that do decode are returned and the rest stays empty.
func (c *Client) CreateOrder(ctx context.Context, order checkout.Order) (checkout.Order, error) {
	body, err := json.Marshal(newCreateOrderRequest(order))
	if err != nil {
		return checkout.Order{}, checkout.NewRemoteError(checkout.ErrServer, 0, "cannot encode order", err)
	}

	key := order.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	headers := http.Header{}
	headers.Set(IdempotencyHeader, key)

	raw, err := c.send(ctx, http.MethodPost, "/orders", body, headers)
	if err != nil {
		return checkout.Order{}, err
	}

	var rec orderRecord
	if err := decodeBody(raw, &rec); err != nil {
		c.logger.Info("order placed with unreadable response", "idempotency_key", key, "error", err)
		var id orderIdentity
		_ = decodeBody(raw, &id)
		return checkout.Order{ID: id.value()}, nil
	}
	return rec.toOrder(), nil
}

// ListOrders returns persisted orders for the history view.
func (c *Client) ListOrders(ctx context.Context) ([]checkout.Order, error) {
	var records []orderRecord
	if err := c.do(ctx, http.MethodGet, "/orders", nil, nil, &records); err != nil {
		return nil, err
	}

	orders := make([]checkout.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, rec.toOrder())
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers http.Header, out interface{}) error {
	raw, err := c.send(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	if err := decodeBody(raw, out); err != nil {
		return checkout.NewRemoteError(checkout.ErrServer, 0, "malformed response", err)
	}
	return nil
}

// send performs the request and returns the body of a 2xx response. For a
// POST, any failure after the request may have left the client is
// ErrOutcomeUnknown: the server could have created the order.
func (c *Client) send(ctx context.Context, method, path string, body []byte, headers http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, checkout.NewRemoteError(checkout.ErrNetwork, 0, "create request", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("resto api call failed", "method", method, "path", path, "error", err)
		return nil, transportError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(method, resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if method == http.MethodPost {
			c.logger.Debug("cannot read resto api response", "method", method, "path", path, "error", err)
			return raw, nil
		}
		return nil, checkout.NewRemoteError(checkout.ErrNetwork, resp.StatusCode, "read response", err)
	}
	return raw, nil
}

func transportError(method string, err error) error {
	if method == http.MethodGet || neverSent(err) {
		return checkout.NewRemoteError(checkout.ErrNetwork, 0, "", err)
	}
	return checkout.NewRemoteError(checkout.ErrOutcomeUnknown, 0, "", err)
}

// neverSent reports failures that happen before a connection exists.
func neverSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// classifyStatus maps a non-2xx response onto the remote error kinds.
func classifyStatus(method string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	reason := serverReason(raw)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return checkout.NewRemoteError(checkout.ErrAuth, resp.StatusCode, reason, nil)
	case http.StatusServiceUnavailable:
		return checkout.NewRemoteError(checkout.ErrNetwork, resp.StatusCode, reason, nil)
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		// A proxy gave up on the upstream, which may still have handled a POST.
		if method == http.MethodPost {
			return checkout.NewRemoteError(checkout.ErrOutcomeUnknown, resp.StatusCode, reason, nil)
		}
		return checkout.NewRemoteError(checkout.ErrNetwork, resp.StatusCode, reason, nil)
	}
	return checkout.NewRemoteError(checkout.ErrServer, resp.StatusCode, reason, nil)
}

func serverReason(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// decodeBody accepts a bare payload or one wrapped in a {"data": ...} envelope.
func decodeBody(raw []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 {
			return json.Unmarshal(envelope.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}
