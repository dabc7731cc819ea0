package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	ledgerapp "github.com/textlane/textlane/internal/ledger/app"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	numberingapp "github.com/textlane/textlane/internal/numbering/app"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	subaccountsapp "github.com/textlane/textlane/internal/subaccounts/app"
)

type AdminHandler struct {
	manager *subaccountsapp.Manager
	numbers *numberingapp.NumberService
	ledger  *ledgerapp.LedgerService
}

func NewAdminHandler(manager *subaccountsapp.Manager, numbers *numberingapp.NumberService, ledger *ledgerapp.LedgerService) *AdminHandler {
	return &AdminHandler{manager: manager, numbers: numbers, ledger: ledger}
}

func (h *AdminHandler) CreateSubAccount(w http.ResponseWriter, r *http.Request) {
	var req createSubAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	sub, err := h.manager.Create(r.Context(), actor.ActorID(), req.Email, req.Name, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (h *AdminHandler) ListSubAccounts(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	views, err := h.manager.List(r.Context(), actor.ActorID())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) AssignNumber(w http.ResponseWriter, r *http.Request) {
	var req assignNumberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subID, err := uuid.Parse(req.SubAccountID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "subAccountId is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.manager.AssignNumber(r.Context(), actor.ActorID(), subID, req.PhoneNumber); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) RemoveAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignNumberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subID, err := uuid.Parse(req.SubAccountID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "subAccountId is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.manager.RevokeNumber(r.Context(), actor.ActorID(), subID, req.PhoneNumber); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) DeactivateSubAccount(w http.ResponseWriter, r *http.Request) {
	subID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "sub-account id is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.manager.SetActive(r.Context(), actor.ActorID(), subID, false); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type dashboardStats struct {
	SubAccounts struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"subAccounts"`
	Numbers struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"numbers"`
	Wallet *ledgerapp.WalletStats `json:"wallet,omitempty"`
}

// DashboardStats aggregates the admin overview: sub-account counts, number
// inventory, and wallet totals. A missing wallet is reported as absent, not
// an error; the admin may simply never have topped up.
func (h *AdminHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	adminID := actor.ActorID()

	var stats dashboardStats

	subs, err := h.manager.List(r.Context(), adminID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	stats.SubAccounts.Total = len(subs)
	for _, s := range subs {
		if s.User.IsActive {
			stats.SubAccounts.Active++
		}
	}

	numbers, err := h.numbers.List(r.Context(), adminID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	stats.Numbers.Total = len(numbers)
	for _, n := range numbers {
		if n.Status == numberingdomain.NumberStatusActive {
			stats.Numbers.Active++
		}
	}

	wallet, err := h.ledger.Stats(r.Context(), adminID)
	if err != nil && !errors.Is(err, ledgerdomain.ErrWalletNotFound) {
		respondDomainError(w, err)
		return
	}
	stats.Wallet = wallet

	respondJSON(w, http.StatusOK, stats)
}
