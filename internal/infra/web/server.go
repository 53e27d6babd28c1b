package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"club-registration/internal/usecase"
)

// Server exposes the member-facing registration API and the JWT-guarded
// admin API on one chi router.
type Server struct {
	eligibility  usecase.EligibilityUseCase
	capacity     usecase.CapacityUseCase
	registration usecase.RegistrationUseCase
	membership   usecase.MembershipUseCase
	reconciler   usecase.ReconcilerUseCase
	auth         *AuthManager
	apiKey       string
	log          *zerolog.Logger
}

func NewServer(
	eligibility usecase.EligibilityUseCase,
	capacity usecase.CapacityUseCase,
	registration usecase.RegistrationUseCase,
	membership usecase.MembershipUseCase,
	reconciler usecase.ReconcilerUseCase,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		eligibility:  eligibility,
		capacity:     capacity,
		registration: registration,
		membership:   membership,
		reconciler:   reconciler,
		auth:         auth,
		apiKey:       apiKey,
		log:          &compLog,
	}
}

// RegisterRoutes sets up the routing for both API surfaces.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		// Member-facing surface; authentication happens upstream, handlers
		// receive the acting user id in the payload.
		r.Get("/seasons/{seasonID}/registrations", s.handleListRegistrations)
		r.Get("/registrations/{registrationID}/categories", s.handleListCategories)
		r.Get("/registrations/{registrationID}/eligibility", s.handleEligibility)
		r.Post("/registrations/{registrationID}/attempts", s.handleRegister)
		r.Delete("/waitlist/{entryID}", s.handleLeaveWaitlist)
		r.Get("/memberships", s.handleListMembershipTypes)
		r.Post("/memberships/purchases", s.handlePurchaseMembership)
		r.Get("/users/{userID}/memberships", s.handleMembershipWindows)

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/registrations/{registrationID}/occupancy", s.handleOccupancy)
			r.Post("/memberships", s.handleSaveMembershipType)
			r.Delete("/memberships/{id}", s.handleDeleteMembershipType)
			r.Post("/refunds", s.handleRefund)
		})
	})
}

// requireAdmin rejects requests without a valid admin session token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil || claims.Role != "admin" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
