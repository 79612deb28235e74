package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/adapter"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements the payment port with direct HTTP calls against
// the Razorpay REST API. No SDK; the surface we need is three endpoints.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret, baseURL string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

type razorpayOrderResponse struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type razorpayPayment struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	OrderID  string            `json:"order_id"`
	Notes    map[string]string `json:"notes"`
}

type razorpayCollection struct {
	Count int               `json:"count"`
	Items []razorpayPayment `json:"items"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateCheckoutSession creates a gateway order for the plan's price. The
// user and plan ids ride in the order notes and come back untouched on every
// payment captured against the order.
func (g *RazorpayGateway) CreateCheckoutSession(ctx context.Context, userID string, plan *model.Plan, receipt string) (*adapter.CheckoutSession, error) {
	reqBody := map[string]any{
		"amount":   plan.PriceMinor,
		"currency": plan.Currency,
		"receipt":  receipt,
		"notes": map[string]string{
			"user_id": userID,
			"plan_id": plan.ID,
		},
	}

	var order razorpayOrderResponse
	if err := g.call(ctx, http.MethodPost, "/orders", reqBody, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &adapter.CheckoutSession{
		OrderID:     order.ID,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Receipt:     order.Receipt,
		KeyID:       g.keyID,
	}, nil
}

// FetchPayment retrieves one payment by gateway id. Non-captured payments
// come back as nil so callers only ever see settled money.
func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*adapter.ConfirmedPayment, error) {
	var p razorpayPayment
	if err := g.call(ctx, http.MethodGet, "/payments/"+paymentID, nil, &p); err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	if p.Status != "captured" {
		return nil, nil
	}
	return g.confirmed(p), nil
}

func (g *RazorpayGateway) FetchOrderPayments(ctx context.Context, orderID string) ([]*adapter.ConfirmedPayment, error) {
	var coll razorpayCollection
	if err := g.call(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &coll); err != nil {
		return nil, fmt.Errorf("fetch order payments %s: %w", orderID, err)
	}
	var out []*adapter.ConfirmedPayment
	for _, p := range coll.Items {
		if p.Status == "captured" {
			out = append(out, g.confirmed(p))
		}
	}
	return out, nil
}

func (g *RazorpayGateway) confirmed(p razorpayPayment) *adapter.ConfirmedPayment {
	return &adapter.ConfirmedPayment{
		TransactionID: p.ID,
		OrderID:       p.OrderID,
		Provider:      g.Name(),
		AmountMinor:   p.Amount,
		Currency:      p.Currency,
		Meta: adapter.Metadata{
			UserID: p.Notes["user_id"],
			PlanID: p.Notes["plan_id"],
		},
	}
}

func (g *RazorpayGateway) call(ctx context.Context, method, path string, reqBody any, out any) error {
	var body io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr razorpayError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Code != "" {
			return fmt.Errorf("razorpay %s: %s (%s)", apiErr.Error.Code, apiErr.Error.Description, resp.Status)
		}
		return fmt.Errorf("razorpay returned %s: %s", resp.Status, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w, body: %s", err, string(respBody))
	}
	return nil
}
