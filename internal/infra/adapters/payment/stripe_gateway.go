// File: internal/infra/adapters/payment/stripe_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"club-registration/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.PaymentGateway against the Stripe REST
// API. Charges use PaymentIntents with confirm=true and off_session=true so
// a saved payment method is charged without the member present.
type StripeGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewStripeGateway(secretKey, baseURL string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeGateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *StripeGateway) Name() string { return "stripe" }

func (s *StripeGateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.secretKey, "")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return fmt.Errorf("stripe: %s (%s)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("stripe: http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *StripeGateway) CreateCharge(ctx context.Context, amount int64, paymentMethodID string, metadata map[string]string) (adapter.ChargeResult, error) {
	if amount <= 0 {
		return adapter.ChargeResult{}, errors.New("stripe: charge amount must be positive")
	}
	if paymentMethodID == "" {
		return adapter.ChargeResult{}, errors.New("stripe: payment method id empty")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", "usd")
	form.Set("payment_method", paymentMethodID)
	form.Set("confirm", "true")
	form.Set("off_session", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Created int64  `json:"created"`
	}
	if err := s.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return adapter.ChargeResult{}, err
	}
	if out.Status == "canceled" || out.Status == "requires_payment_method" {
		return adapter.ChargeResult{}, fmt.Errorf("stripe: charge declined, intent status %s", out.Status)
	}
	return adapter.ChargeResult{
		PaymentIntentID: out.ID,
		Status:          out.Status,
		CreatedAt:       time.Unix(out.Created, 0),
	}, nil
}

func (s *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount int64, metadata map[string]string) (adapter.RefundResult, error) {
	if paymentIntentID == "" {
		return adapter.RefundResult{}, errors.New("stripe: payment intent id empty")
	}
	if amount <= 0 {
		return adapter.RefundResult{}, errors.New("stripe: refund amount must be positive")
	}

	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	form.Set("amount", strconv.FormatInt(amount, 10))
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Amount  int64  `json:"amount"`
		Created int64  `json:"created"`
	}
	if err := s.post(ctx, "/v1/refunds", form, &out); err != nil {
		return adapter.RefundResult{}, err
	}
	if out.Status == "failed" || out.Status == "canceled" {
		return adapter.RefundResult{}, fmt.Errorf("stripe: refund rejected, status %s", out.Status)
	}
	return adapter.RefundResult{
		RefundID:  out.ID,
		Status:    out.Status,
		Amount:    out.Amount,
		CreatedAt: time.Unix(out.Created, 0),
	}, nil
}

// GetPaymentIntent looks up the current provider-side status of an intent.
// The reconciliation sweep uses this to settle staged records whose webhook
// never arrived.
func (s *StripeGateway) GetPaymentIntent(ctx context.Context, intentID string) (adapter.ChargeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/payment_intents/"+intentID, nil)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	req.SetBasicAuth(s.secretKey, "")
	resp, err := s.client.Do(req)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return adapter.ChargeResult{}, fmt.Errorf("stripe: http %d", resp.StatusCode)
	}
	var out struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Created int64  `json:"created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.ChargeResult{}, err
	}
	return adapter.ChargeResult{
		PaymentIntentID: out.ID,
		Status:          out.Status,
		CreatedAt:       time.Unix(out.Created, 0),
	}, nil
}
