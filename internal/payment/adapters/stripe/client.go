package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/frontdesk/internal/config"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
)

const defaultAPIBase = "https://api.stripe.com"

type stripeErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type stripeCheckoutSession struct {
	ID            string          `json:"id"`
	URL           string          `json:"url"`
	PaymentIntent json.RawMessage `json:"payment_intent"`
	Customer      json.RawMessage `json:"customer"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	ExpiresAt     int64           `json:"expires_at"`
}

type stripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client is a form-encoded Stripe REST client.
type Client struct {
	apiKey  string
	apiBase string
	client  *http.Client
}

func NewClient(cfg config.Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.Stripe.APIBase), "/")
	if base == "" {
		base = defaultAPIBase
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.Stripe.SecretKey),
		apiBase: base,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) CreateCustomer(ctx context.Context, req paymentdomain.CustomerRequest) (paymentdomain.Customer, error) {
	values := url.Values{}
	setIf(values, "name", req.Name)
	setIf(values, "email", req.Email)
	setIf(values, "phone", req.Phone)
	setMetadata(values, "metadata", req.Metadata)

	var customer stripeCustomer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", values, "", &customer); err != nil {
		return paymentdomain.Customer{}, err
	}
	if customer.ID == "" {
		return paymentdomain.Customer{}, fmt.Errorf("%w: customer response missing id", paymentdomain.ErrUpstream)
	}
	return paymentdomain.Customer{ID: customer.ID, Email: customer.Email, Name: customer.Name}, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.CheckoutSession, error) {
	if len(req.Lines) == 0 {
		return paymentdomain.CheckoutSession{}, paymentdomain.ErrInvalidRequest
	}
	mode := req.Mode
	if mode == "" {
		mode = paymentdomain.ModePayment
	}

	values := url.Values{}
	values.Set("mode", string(mode))
	setIf(values, "success_url", req.SuccessURL)
	setIf(values, "cancel_url", req.CancelURL)
	setIf(values, "client_reference_id", req.ClientReferenceID)
	if req.CustomerID != "" {
		values.Set("customer", req.CustomerID)
	} else {
		setIf(values, "customer_email", req.CustomerEmail)
	}
	for i, line := range req.Lines {
		values.Set(fmt.Sprintf("line_items[%d][price]", i), line.PriceRef)
		values.Set(fmt.Sprintf("line_items[%d][quantity]", i), strconv.FormatInt(line.Quantity, 10))
	}
	if req.ExpiresAt != nil {
		values.Set("expires_at", strconv.FormatInt(req.ExpiresAt.Unix(), 10))
	}
	setMetadata(values, "metadata", req.Metadata)
	// Copy the tags onto the child object so its own events route the same way.
	switch mode {
	case paymentdomain.ModeSubscription:
		setMetadata(values, "subscription_data[metadata]", req.Metadata)
	default:
		setMetadata(values, "payment_intent_data[metadata]", req.Metadata)
	}

	var session stripeCheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", values, req.IdempotencyKey, &session); err != nil {
		return paymentdomain.CheckoutSession{}, err
	}
	if session.ID == "" {
		return paymentdomain.CheckoutSession{}, fmt.Errorf("%w: session response missing id", paymentdomain.ErrUpstream)
	}
	return session.toDomain(), nil
}

func (c *Client) RetrieveCheckoutSession(ctx context.Context, id string) (paymentdomain.CheckoutSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return paymentdomain.CheckoutSession{}, paymentdomain.ErrInvalidRequest
	}
	var session stripeCheckoutSession
	path := "/v1/checkout/sessions/" + url.PathEscape(id) + "?expand[]=payment_intent&expand[]=customer"
	if err := c.do(ctx, http.MethodGet, path, nil, "", &session); err != nil {
		return paymentdomain.CheckoutSession{}, err
	}
	return session.toDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, idempotencyKey string, out any) error {
	if !c.Configured() {
		return paymentdomain.ErrNotConfigured
	}
	body := strings.NewReader("")
	if values != nil {
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		message := "stripe_request_failed"
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil {
			if m := strings.TrimSpace(stripeErr.Error.Message); m != "" {
				message = m
			}
		}
		return fmt.Errorf("%w: %s (status %d)", paymentdomain.ErrUpstream, message, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", paymentdomain.ErrUpstream, err)
	}
	return nil
}

func (s stripeCheckoutSession) toDomain() paymentdomain.CheckoutSession {
	out := paymentdomain.CheckoutSession{
		ID:              s.ID,
		URL:             s.URL,
		PaymentIntentID: rawID(s.PaymentIntent),
		CustomerID:      rawID(s.Customer),
		Status:          s.Status,
		PaymentStatus:   s.PaymentStatus,
	}
	if s.ExpiresAt > 0 {
		t := time.Unix(s.ExpiresAt, 0).UTC()
		out.ExpiresAt = &t
	}
	return out
}

// rawID decodes a field that is either an id string, null, or an expanded object.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}

func setIf(values url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		values.Set(key, v)
	}
}

func setMetadata(values url.Values, prefix string, metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		values.Set(prefix+"["+k+"]", metadata[k])
	}
}
