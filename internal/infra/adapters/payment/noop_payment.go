package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"club-registration/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in tests and dev.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	charges map[string]int64 // intent id -> amount
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		charges: make(map[string]int64),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *NoopPaymentGateway) CreateCharge(ctx context.Context, amount int64, paymentMethodID string, metadata map[string]string) (adapter.ChargeResult, error) {
	if amount <= 0 {
		return adapter.ChargeResult{}, fmt.Errorf("noop: charge amount must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("pi_noop")
	g.charges[id] = amount
	return adapter.ChargeResult{
		PaymentIntentID: id,
		Status:          "succeeded",
		CreatedAt:       time.Now(),
	}, nil
}

func (g *NoopPaymentGateway) GetPaymentIntent(ctx context.Context, intentID string) (adapter.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charges[intentID]; !ok {
		return adapter.ChargeResult{}, fmt.Errorf("noop: intent not found")
	}
	return adapter.ChargeResult{PaymentIntentID: intentID, Status: "succeeded", CreatedAt: time.Now()}, nil
}

func (g *NoopPaymentGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount int64, metadata map[string]string) (adapter.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	charged, ok := g.charges[paymentIntentID]
	if !ok {
		return adapter.RefundResult{}, fmt.Errorf("noop: intent not found")
	}
	if amount > charged {
		return adapter.RefundResult{}, fmt.Errorf("noop: refund exceeds charge: %d > %d", amount, charged)
	}
	return adapter.RefundResult{
		RefundID:  g.next("re_noop"),
		Status:    "succeeded",
		Amount:    amount,
		CreatedAt: time.Now(),
	}, nil
}
