package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/textlane/textlane/internal/billingcycle"
	ledgerapp "github.com/textlane/textlane/internal/ledger/app"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	numberingapp "github.com/textlane/textlane/internal/numbering/app"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	paymentsapp "github.com/textlane/textlane/internal/payments/app"
)

type WalletHandler struct {
	ledger   *ledgerapp.LedgerService
	payments *paymentsapp.PaymentService
	billing  *billingcycle.Runner
	numbers  *numberingapp.NumberService
}

func NewWalletHandler(
	ledger *ledgerapp.LedgerService,
	payments *paymentsapp.PaymentService,
	billing *billingcycle.Runner,
	numbers *numberingapp.NumberService,
) *WalletHandler {
	return &WalletHandler{ledger: ledger, payments: payments, billing: billing, numbers: numbers}
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	wallet, err := h.ledger.GetOrCreateWallet(r.Context(), actor.ActorID())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

func (h *WalletHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	var req addFundsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	tx, err := h.payments.AddFunds(r.Context(), actor.ActorID(), req.Amount, req.PaymentMethod)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (h *WalletHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	stats, err := h.ledger.Stats(r.Context(), actor.ActorID())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	actor, _ := ActorFromContext(r.Context())
	transactions, err := h.ledger.Transactions(r.Context(), actor.ActorID(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if transactions == nil {
		transactions = []ledgerdomain.Transaction{}
	}
	respondJSON(w, http.StatusOK, transactions)
}

func (h *WalletHandler) SetMonthlyLimit(w http.ResponseWriter, r *http.Request) {
	var req monthlyLimitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.ledger.SetMonthlyLimit(r.Context(), actor.ActorID(), req.Limit); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type billingSummary struct {
	Numbers      []billingLine   `json:"numbers"`
	MonthlyTotal decimal.Decimal `json:"monthlyTotal"`
	Suspended    bool            `json:"suspended"`
}

type billingLine struct {
	Number       string          `json:"number"`
	Type         string          `json:"type"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice"`
}

// BillingSummary shows what the next cycle will charge.
func (h *WalletHandler) BillingSummary(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	numbers, err := h.numbers.List(r.Context(), actor.ActorID())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	wallet, err := h.ledger.GetOrCreateWallet(r.Context(), actor.ActorID())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	summary := billingSummary{Numbers: []billingLine{}, MonthlyTotal: decimal.Zero, Suspended: wallet.ServiceSuspended}
	for _, n := range numbers {
		if n.Status != numberingdomain.NumberStatusActive {
			continue
		}
		summary.Numbers = append(summary.Numbers, billingLine{
			Number:       n.Number,
			Type:         string(n.Type),
			MonthlyPrice: n.Price,
		})
		summary.MonthlyTotal = summary.MonthlyTotal.Add(n.Price)
	}
	respondJSON(w, http.StatusOK, summary)
}

// TriggerBilling charges the caller's outstanding rental on demand, lifting
// a suspension when the wallet now covers it.
func (h *WalletHandler) TriggerBilling(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.billing.Reactivate(r.Context(), actor.ActorID()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *WalletHandler) TransferToSubAccount(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subID, err := uuid.Parse(req.SubAccountID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "subAccountId is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.ledger.Transfer(r.Context(), actor.ActorID(), subID, req.Amount); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// PaymentWebhook applies asynchronous payment confirmations. Unauthenticated
// provider-trust boundary like the SMS webhook: dedup makes replays safe,
// and the response is 200 regardless so the processor stops retrying.
func (h *WalletHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req paymentWebhookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ownerID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "userId is not a uuid")
		return
	}

	_ = h.payments.HandleWebhook(r.Context(), ownerID, req.ProviderRef, req.Amount)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
