package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/usecase"
)

// WebhookServer receives asynchronous processor confirmations and applies
// them through the reconciler. Every handler is idempotent: the processor
// retries delivery until it sees 2xx.
type WebhookServer struct {
	reconciler    usecase.ReconcilerUseCase
	webhookPath   string
	webhookSecret string
	log           *zerolog.Logger
}

func NewWebhookServer(reconciler usecase.ReconcilerUseCase, webhookPath, webhookSecret string, logger *zerolog.Logger) *WebhookServer {
	if webhookPath == "" {
		webhookPath = "/webhook/stripe"
	}
	compLog := logger.With().Str("component", "WebhookServer").Logger()
	return &WebhookServer{
		reconciler:    reconciler,
		webhookPath:   webhookPath,
		webhookSecret: webhookSecret,
		log:           &compLog,
	}
}

// Register attaches handlers to the provided mux.
func (s *WebhookServer) Register(mux *http.ServeMux) {
	mux.HandleFunc(s.webhookPath, s.handleWebhook)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// webhookEvent is the subset of the processor event envelope we act on.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string            `json:"id"`
			Status           string            `json:"status"`
			Metadata         map[string]string `json:"metadata"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

func (s *WebhookServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if err := s.verifySignature(r.Header.Get("Stripe-Signature"), body); err != nil {
		s.log.Warn().Err(err).Msg("webhook signature rejected")
		http.Error(w, "bad signature", http.StatusBadRequest)
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	stagedID := ev.Data.Object.Metadata[usecase.MetadataStagedID]
	if stagedID == "" {
		// Not one of ours; acknowledge so the processor stops retrying.
		w.WriteHeader(http.StatusOK)
		return
	}

	result, handled := s.classify(ev)
	if !handled {
		w.WriteHeader(http.StatusOK)
		return
	}

	err = s.reconciler.ConfirmTransaction(ctx, stagedID, result)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotStaged):
		// Unknown or already-settled record; retrying will not help.
		s.log.Warn().Err(err).Str("staged_id", stagedID).Str("event", ev.Type).Msg("confirmation not applicable")
		w.WriteHeader(http.StatusOK)
	default:
		s.log.Error().Err(err).Str("staged_id", stagedID).Str("event", ev.Type).Msg("confirmation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// classify maps a processor event to a normalized confirmation. Events we
// do not act on return handled=false.
func (s *WebhookServer) classify(ev webhookEvent) (usecase.ProcessorResult, bool) {
	obj := ev.Data.Object
	switch ev.Type {
	case "payment_intent.succeeded":
		return usecase.ProcessorResult{Succeeded: true, ExternalID: obj.ID}, true
	case "payment_intent.payment_failed", "payment_intent.canceled":
		reason := "payment failed"
		if obj.LastPaymentError != nil && obj.LastPaymentError.Message != "" {
			reason = obj.LastPaymentError.Message
		}
		return usecase.ProcessorResult{Succeeded: false, ExternalID: obj.ID, Reason: reason}, true
	case "refund.updated", "charge.refund.updated":
		switch obj.Status {
		case "succeeded":
			return usecase.ProcessorResult{Succeeded: true, ExternalID: obj.ID}, true
		case "failed", "canceled":
			return usecase.ProcessorResult{Succeeded: false, ExternalID: obj.ID, Reason: "refund " + obj.Status}, true
		}
		return usecase.ProcessorResult{}, false
	default:
		return usecase.ProcessorResult{}, false
	}
}

// verifySignature checks the Stripe-Signature header: a timestamp and an
// HMAC-SHA256 of "<timestamp>.<body>" under the endpoint secret.
func (s *WebhookServer) verifySignature(header string, body []byte) error {
	if s.webhookSecret == "" {
		// Dev mode runs without a secret.
		return nil
	}
	if header == "" {
		return errors.New("missing signature header")
	}
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == "" || len(sigs) == 0 {
		return errors.New("malformed signature header")
	}
	if sec, err := strconv.ParseInt(ts, 10, 64); err != nil || time.Since(time.Unix(sec, 0)) > 5*time.Minute {
		return errors.New("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return errors.New("no matching signature")
}
