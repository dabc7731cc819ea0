package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *AuthHandler
	Contact *ContactHandler
	SMS     *SMSHandler
	Number  *NumberHandler
	Admin   *AdminHandler
	Wallet  *WalletHandler
	Events  *EventsHandler
}

// NewRouter builds the REST surface. Webhooks are unauthenticated
// provider-trust boundaries; /admin and /wallet are admin-only, everything
// else behind the bearer token is open to both roles.
func NewRouter(h Handlers, validator TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Provider-trust boundary: no auth, always 200.
	r.Post("/twilio/webhook", h.SMS.TwilioWebhook)
	r.Post("/payments/webhook", h.Wallet.PaymentWebhook)

	r.Post("/auth/register", h.Auth.Register)
	r.Post("/auth/login", h.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(validator))

		r.Get("/auth/me", h.Auth.Me)
		r.Put("/auth/profile", h.Auth.UpdateProfile)

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.Contact.List)
			r.Post("/", h.Contact.Create)
			r.Put("/{id}", h.Contact.Update)
			r.Delete("/{id}", h.Contact.Delete)
			r.Put("/{id}/read", h.Contact.MarkRead)
		})

		r.Post("/sms/send", h.SMS.Send)
		r.Get("/sms/messages/{contactId}", h.SMS.Messages)

		r.Route("/phone-numbers", func(r chi.Router) {
			r.Get("/", h.Number.List)
			r.Get("/available", h.Number.SearchAvailable)
			r.With(requireAdmin).Post("/purchase", h.Number.Purchase)
			r.With(requireAdmin).Put("/{id}/activate", h.Number.Activate)
			r.With(requireAdmin).Delete("/{id}", h.Number.Release)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/sub-accounts", h.Admin.CreateSubAccount)
			r.Get("/sub-accounts", h.Admin.ListSubAccounts)
			r.Put("/sub-accounts/{id}/deactivate", h.Admin.DeactivateSubAccount)
			r.Post("/assign-number", h.Admin.AssignNumber)
			r.Post("/remove-assignment", h.Admin.RemoveAssignment)
			r.Get("/dashboard-stats", h.Admin.DashboardStats)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", h.Wallet.Get)
			r.Post("/add-funds", h.Wallet.AddFunds)
			r.Get("/stats", h.Wallet.Stats)
			r.Get("/transactions", h.Wallet.Transactions)
			r.Put("/monthly-limit", h.Wallet.SetMonthlyLimit)
			r.Get("/billing-summary", h.Wallet.BillingSummary)
			r.Post("/trigger-billing", h.Wallet.TriggerBilling)
			r.Post("/transfer-to-subaccount", h.Wallet.TransferToSubAccount)
		})

		r.Get("/events", h.Events.Stream)
		r.Post("/events/join", h.Events.JoinRoom)
		r.Post("/events/leave", h.Events.LeaveRoom)
	})

	return r
}
