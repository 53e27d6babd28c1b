//go:build !integration

package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/usecase"
)

type mockReconciler struct {
	usecase.ReconcilerUseCase
	ConfirmTransactionFunc func(ctx context.Context, stagedID string, result usecase.ProcessorResult) error

	Confirmed []confirmCall
}

type confirmCall struct {
	StagedID string
	Result   usecase.ProcessorResult
}

func (m *mockReconciler) ConfirmTransaction(ctx context.Context, stagedID string, result usecase.ProcessorResult) error {
	m.Confirmed = append(m.Confirmed, confirmCall{StagedID: stagedID, Result: result})
	if m.ConfirmTransactionFunc != nil {
		return m.ConfirmTransactionFunc(ctx, stagedID, result)
	}
	return nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

const testSecret = "whsec_test"

func signedRequest(t *testing.T, path, body string) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts + "." + body))
	sig := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, sig))
	return req
}

func webhookFixture(secret string) (*mockReconciler, *http.ServeMux) {
	rec := &mockReconciler{}
	srv := NewWebhookServer(rec, "", secret, testLogger())
	mux := http.NewServeMux()
	srv.Register(mux)
	return rec, mux
}

func eventBody(evType, objID, status, stagedID string) string {
	meta := ""
	if stagedID != "" {
		meta = fmt.Sprintf(`"metadata":{"%s":"%s"},`, usecase.MetadataStagedID, stagedID)
	}
	return fmt.Sprintf(`{"type":"%s","data":{"object":{"id":"%s","status":"%s",%s"created":0}}}`,
		evType, objID, status, meta)
}

func TestWebhook_PaymentSucceeded(t *testing.T) {
	rec, mux := webhookFixture(testSecret)

	body := eventBody("payment_intent.succeeded", "pi_123", "succeeded", "st-1")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(rec.Confirmed) != 1 {
		t.Fatalf("confirm calls = %d, want 1", len(rec.Confirmed))
	}
	call := rec.Confirmed[0]
	if call.StagedID != "st-1" {
		t.Errorf("staged id = %q", call.StagedID)
	}
	if !call.Result.Succeeded || call.Result.ExternalID != "pi_123" {
		t.Errorf("result = %+v", call.Result)
	}
}

func TestWebhook_PaymentFailedCarriesReason(t *testing.T) {
	rec, mux := webhookFixture(testSecret)

	body := fmt.Sprintf(`{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_9","metadata":{"%s":"st-2"},"last_payment_error":{"message":"card declined"}}}}`,
		usecase.MetadataStagedID)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(rec.Confirmed) != 1 {
		t.Fatalf("confirm calls = %d, want 1", len(rec.Confirmed))
	}
	r := rec.Confirmed[0].Result
	if r.Succeeded {
		t.Error("expected failed result")
	}
	if r.Reason != "card declined" {
		t.Errorf("reason = %q", r.Reason)
	}
}

func TestWebhook_CanceledDefaultsReason(t *testing.T) {
	rec, mux := webhookFixture(testSecret)

	body := eventBody("payment_intent.canceled", "pi_c", "canceled", "st-3")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rec.Confirmed[0].Result.Reason; got != "payment failed" {
		t.Errorf("reason = %q", got)
	}
}

func TestWebhook_RefundEvents(t *testing.T) {
	cases := []struct {
		name      string
		status    string
		confirmed bool
		succeeded bool
	}{
		{"succeeded applies", "succeeded", true, true},
		{"failed rolls back", "failed", true, false},
		{"pending ignored", "pending", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, mux := webhookFixture(testSecret)

			body := eventBody("refund.updated", "re_1", tc.status, "st-4")
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if tc.confirmed != (len(rec.Confirmed) == 1) {
				t.Fatalf("confirm calls = %d, confirmed = %v", len(rec.Confirmed), tc.confirmed)
			}
			if tc.confirmed && rec.Confirmed[0].Result.Succeeded != tc.succeeded {
				t.Errorf("succeeded = %v, want %v", rec.Confirmed[0].Result.Succeeded, tc.succeeded)
			}
		})
	}
}

func TestWebhook_ForeignEventAcked(t *testing.T) {
	// No staged_transaction_id metadata: not one of ours, ack without acting.
	rec, mux := webhookFixture(testSecret)

	body := eventBody("payment_intent.succeeded", "pi_x", "succeeded", "")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(rec.Confirmed) != 0 {
		t.Errorf("confirm calls = %d, want 0", len(rec.Confirmed))
	}
}

func TestWebhook_UnhandledTypeAcked(t *testing.T) {
	rec, mux := webhookFixture(testSecret)

	body := eventBody("customer.created", "cus_1", "", "st-5")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(rec.Confirmed) != 0 {
		t.Errorf("confirm calls = %d, want 0", len(rec.Confirmed))
	}
}

func TestWebhook_SettledRecordAcked(t *testing.T) {
	// Duplicate deliveries against an already-settled record must stop the
	// processor's retry loop, not feed it.
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrNotStaged} {
		rec, mux := webhookFixture(testSecret)
		rec.ConfirmTransactionFunc = func(context.Context, string, usecase.ProcessorResult) error {
			return sentinel
		}

		body := eventBody("payment_intent.succeeded", "pi_dup", "succeeded", "st-6")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

		if rr.Code != http.StatusOK {
			t.Fatalf("%v: status = %d, want 200", sentinel, rr.Code)
		}
	}
}

func TestWebhook_TransientErrorRetriable(t *testing.T) {
	rec, mux := webhookFixture(testSecret)
	rec.ConfirmTransactionFunc = func(context.Context, string, usecase.ProcessorResult) error {
		return errors.New("db unavailable")
	}

	body := eventBody("payment_intent.succeeded", "pi_err", "succeeded", "st-7")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, signedRequest(t, "/webhook/stripe", body))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestWebhook_SignatureRequired(t *testing.T) {
	rec, mux := webhookFixture(testSecret)
	body := eventBody("payment_intent.succeeded", "pi_1", "succeeded", "st-8")

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte("whsec_other"))
		mac.Write([]byte(ts + "." + body))
		req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewBufferString(body))
		req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write([]byte(ts + "." + body))
		req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewBufferString(body))
		req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
	})

	if len(rec.Confirmed) != 0 {
		t.Errorf("confirm calls = %d, want 0", len(rec.Confirmed))
	}
}

func TestWebhook_DevModeSkipsVerification(t *testing.T) {
	rec, mux := webhookFixture("")

	body := eventBody("payment_intent.succeeded", "pi_dev", "succeeded", "st-9")
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(rec.Confirmed) != 1 {
		t.Errorf("confirm calls = %d, want 1", len(rec.Confirmed))
	}
}

func TestWebhook_MethodAndHealth(t *testing.T) {
	_, mux := webhookFixture(testSecret)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhook/stripe", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET webhook status = %d, want 405", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rr.Code)
	}
}
