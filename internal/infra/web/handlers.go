package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/infra/logging"
	"club-registration/internal/usecase"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.apiKey == "" || req.Key != s.apiKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.registration.ListBySeason(r.Context(), chi.URLParam(r, "seasonID"))
	if err != nil {
		http.Error(w, "Failed to list registrations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": regs})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.registration.Categories(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		http.Error(w, "Failed to list categories", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": cats})
}

// handleEligibility is the pre-flight check UIs call before rendering the
// checkout form.
func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	decision, err := s.eligibility.CanUserRegister(r.Context(), userID, chi.URLParam(r, "registrationID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Registration not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Eligibility check failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type registerRequest struct {
	UserID       string  `json:"user_id"`
	CategoryID   string  `json:"category_id"`
	DiscountPct  int64   `json:"discount_pct"`
	DiscountCode *string `json:"discount_code"`
	Donation     int64   `json:"donation"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	ctx := logging.WithUserID(r.Context(), req.UserID)
	outcome, err := s.registration.Register(ctx, usecase.RegisterParams{
		UserID:         req.UserID,
		RegistrationID: chi.URLParam(r, "registrationID"),
		CategoryID:     req.CategoryID,
		DiscountPct:    req.DiscountPct,
		DiscountCode:   req.DiscountCode,
		Donation:       req.Donation,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid request", http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrLockNotAcquired):
			http.Error(w, "Another registration attempt is in progress", http.StatusConflict)
		case errors.Is(err, domain.ErrSettlementPending):
			// The charge went through but its confirmation has not landed
			// yet. The member must not retry; the slot is theirs.
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "settlement_pending"})
		default:
			http.Error(w, "Registration failed", http.StatusInternalServerError)
		}
		return
	}
	code := http.StatusCreated
	if !outcome.Decision.CanRegister {
		// Structured denial, not an error: the body carries the reason.
		code = http.StatusOK
	}
	writeJSON(w, code, outcome)
}

func (s *Server) handleLeaveWaitlist(w http.ResponseWriter, r *http.Request) {
	if err := s.capacity.LeaveWaitlist(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Waitlist entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to leave waitlist", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMembershipTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.membership.ListTypes(r.Context())
	if err != nil {
		http.Error(w, "Failed to list membership types", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": types})
}

type purchaseRequest struct {
	UserID       string  `json:"user_id"`
	MembershipID string  `json:"membership_id"`
	Monthly      bool    `json:"monthly"`
	DiscountPct  int64   `json:"discount_pct"`
	DiscountCode *string `json:"discount_code"`
}

func (s *Server) handlePurchaseMembership(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	um, err := s.membership.Purchase(r.Context(), usecase.MembershipPurchase{
		UserID:       req.UserID,
		MembershipID: req.MembershipID,
		Monthly:      req.Monthly,
		DiscountPct:  req.DiscountPct,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid purchase request", http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Membership type not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrNoPaymentMethod):
			http.Error(w, "No saved payment method", http.StatusPaymentRequired)
		default:
			http.Error(w, "Purchase failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, um)
}

func (s *Server) handleMembershipWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.membership.MembershipWindows(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Failed to load memberships", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	report, err := s.capacity.OccupancyReport(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Registration not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to build occupancy report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": report})
}

type membershipTypeRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	MonthlyPrice     int64  `json:"monthly_price"`
	AnnualPrice      int64  `json:"annual_price"`
	AccountingCode   string `json:"accounting_code"`
	DiscountEligible bool   `json:"discount_eligible"`
	MonthlyAvailable bool   `json:"monthly_available"`
}

func (s *Server) handleSaveMembershipType(w http.ResponseWriter, r *http.Request) {
	var req membershipTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	m, err := model.NewMembership(req.ID, req.Name, req.AccountingCode, req.MonthlyPrice, req.AnnualPrice)
	if err != nil {
		http.Error(w, "Invalid membership type", http.StatusBadRequest)
		return
	}
	m.DiscountEligible = req.DiscountEligible
	m.MonthlyAvailable = req.MonthlyAvailable
	if err := s.membership.SaveType(r.Context(), m); err != nil {
		http.Error(w, "Failed to save membership type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleDeleteMembershipType(w http.ResponseWriter, r *http.Request) {
	if err := s.membership.DeleteType(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Membership type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete membership type", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refundRequest struct {
	PaymentID   string `json:"payment_id"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
	ProcessedBy string `json:"processed_by"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	outcome, err := s.reconciler.ExecuteRefund(r.Context(), usecase.RefundParams{
		PaymentID:   req.PaymentID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		ProcessedBy: req.ProcessedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRefundExceedsPayment):
			http.Error(w, "Refund amount exceeds the original payment", http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Payment not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Invalid refund request", http.StatusBadRequest)
		default:
			http.Error(w, "Refund failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refund":  outcome.Refund,
		"kind":    outcome.Kind,
		"message": outcome.Message,
	})
}
